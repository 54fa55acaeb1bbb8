package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/forgo/goodjobs/internal/middleware"
	"github.com/forgo/goodjobs/internal/model"
	"github.com/forgo/goodjobs/internal/service"
)

// UserHandler handles user endpoints
type UserHandler struct {
	userService   *service.UserService
	authService   *service.AuthService
	ledgerService *service.LedgerService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService, authService *service.AuthService, ledgerService *service.LedgerService) *UserHandler {
	return &UserHandler{
		userService:   userService,
		authService:   authService,
		ledgerService: ledgerService,
	}
}

func userLinks(id int64) map[string]string {
	base := "/api/users/" + itoa(id)
	return map[string]string{
		"self":     base,
		"goodjobs": base + "/goodjobs",
	}
}

// List handles GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "list users")
		return
	}
	WriteCollection(w, http.StatusOK, toUserResponses(users), len(users), map[string]string{
		"self": "/api/users",
	})
}

// CreateUserRequest is the admin create-user body
type CreateUserRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Create handles POST /api/users (admin)
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	actor := service.ActorFromClaims(middleware.GetClaims(r.Context()))
	result, err := h.authService.CreateUser(r.Context(), actor, service.Credentials{
		Name:     req.Name,
		Password: req.Password,
	}, req.IsAdmin)
	if err != nil {
		writeServiceError(w, r, err, "create user")
		return
	}

	w.Header().Set("Location", "/api/users/"+itoa(result.User.ID))
	WriteData(w, http.StatusCreated, toUserResponse(result.User), userLinks(result.User.ID))
}

// GetByName handles GET /api/users/by-name/{name}
func (h *UserHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetByName(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeServiceError(w, r, err, "get user by name")
		return
	}
	WriteData(w, http.StatusOK, toUserResponse(user), userLinks(user.ID))
}

// Get handles GET /api/users/{userId}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, pd := pathID(r, "userId")
	if pd != nil {
		WriteError(w, pd)
		return
	}

	user, err := h.userService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "get user")
		return
	}
	WriteData(w, http.StatusOK, toUserResponse(user), userLinks(user.ID))
}

// UpdateUserRequest is the PATCH body; omitted fields are unchanged
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

// Update handles PATCH /api/users/{userId} (admin)
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, pd := pathID(r, "userId")
	if pd != nil {
		WriteError(w, pd)
		return
	}

	var req UpdateUserRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	actor := service.ActorFromClaims(middleware.GetClaims(r.Context()))
	user, err := h.userService.Update(r.Context(), actor, id, service.UpdateUserRequest{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err, "update user")
		return
	}
	WriteData(w, http.StatusOK, toUserResponse(user), userLinks(user.ID))
}

// Delete handles DELETE /api/users/{userId} (admin)
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, pd := pathID(r, "userId")
	if pd != nil {
		WriteError(w, pd)
		return
	}

	actor := service.ActorFromClaims(middleware.GetClaims(r.Context()))
	if err := h.userService.Delete(r.Context(), actor, id); err != nil {
		writeServiceError(w, r, err, "delete user")
		return
	}
	WriteNoContent(w)
}

// ListGoodJobs handles GET /api/users/{userId}/goodjobs
func (h *UserHandler) ListGoodJobs(w http.ResponseWriter, r *http.Request) {
	id, pd := pathID(r, "userId")
	if pd != nil {
		WriteError(w, pd)
		return
	}

	jobs, err := h.ledgerService.ListByOwner(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "list goodjobs by owner")
		return
	}
	WriteCollection(w, http.StatusOK, toGoodJobResponses(jobs), len(jobs), map[string]string{
		"self":  "/api/users/" + itoa(id) + "/goodjobs",
		"owner": "/api/users/" + itoa(id),
	})
}

// CountResponse carries a balance
type CountResponse struct {
	UserID int64 `json:"userId"`
	Count  int   `json:"count"`
}

// CountGoodJobs handles GET /api/users/{userId}/goodjobs/count
func (h *UserHandler) CountGoodJobs(w http.ResponseWriter, r *http.Request) {
	id, pd := pathID(r, "userId")
	if pd != nil {
		WriteError(w, pd)
		return
	}

	count, err := h.ledgerService.CountByOwner(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "count goodjobs by owner")
		return
	}
	WriteData(w, http.StatusOK, CountResponse{UserID: id, Count: count}, nil)
}
