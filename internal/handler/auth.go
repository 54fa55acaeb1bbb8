package handler

import (
	"net/http"

	"github.com/forgo/goodjobs/internal/middleware"
	"github.com/forgo/goodjobs/internal/model"
	"github.com/forgo/goodjobs/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  *service.AuthService
	tokenService *service.TokenService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, tokenService *service.TokenService) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenService: tokenService,
	}
}

// CredentialsRequest is the body of register and login
type CredentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// AuthResponse is a user with a freshly issued token
type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	TokenType string       `json:"tokenType"`
	ExpiresIn int          `json:"expiresIn"` // seconds
}

func (h *AuthHandler) toAuthResponse(res *service.AuthResult) AuthResponse {
	return AuthResponse{
		User:      toUserResponse(res.User),
		Token:     res.Token,
		TokenType: "Bearer",
		ExpiresIn: h.tokenService.ExpiresInSeconds(),
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	result, err := h.authService.Register(r.Context(), service.Credentials{Name: req.Name, Password: req.Password})
	if err != nil {
		writeServiceError(w, r, err, "register")
		return
	}

	WriteData(w, http.StatusCreated, h.toAuthResponse(result), map[string]string{
		"self": "/api/auth/me",
	})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	result, err := h.authService.Login(r.Context(), service.Credentials{Name: req.Name, Password: req.Password})
	if err != nil {
		writeServiceError(w, r, err, "login")
		return
	}

	WriteData(w, http.StatusOK, h.toAuthResponse(result), map[string]string{
		"self": "/api/auth/me",
	})
}

// MeResponse is the current-user view
type MeResponse struct {
	User          UserResponse          `json:"user"`
	GoodJobsCount int                   `json:"goodJobsCount"`
	GoodJobs      []GoodJobResponse     `json:"goodJobs,omitempty"`
	Transactions  *service.Transactions `json:"transactions,omitempty"`
}

// Me handles GET /api/auth/me?includeGoodJobs=&includeTransactions=
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	includeGoodJobs, pd := queryBool(r, "includeGoodJobs")
	if pd != nil {
		WriteError(w, pd)
		return
	}
	includeTransactions, pd := queryBool(r, "includeTransactions")
	if pd != nil {
		WriteError(w, pd)
		return
	}

	actor := service.ActorFromClaims(middleware.GetClaims(r.Context()))
	me, err := h.authService.Me(r.Context(), actor, service.MeOptions{
		IncludeGoodJobs:     includeGoodJobs,
		IncludeTransactions: includeTransactions,
	})
	if err != nil {
		writeServiceError(w, r, err, "get current user")
		return
	}

	resp := MeResponse{
		User:          toUserResponse(me.User),
		GoodJobsCount: me.GoodJobsCount,
		Transactions:  me.Transactions,
	}
	if includeGoodJobs {
		resp.GoodJobs = toGoodJobResponses(me.GoodJobs)
	}

	WriteData(w, http.StatusOK, resp, map[string]string{
		"self":     "/api/auth/me",
		"goodjobs": "/api/users/" + itoa(me.User.ID) + "/goodjobs",
	})
}

// VerifyResponse reports the state of the presented token
type VerifyResponse struct {
	Valid     bool          `json:"valid"`
	User      *TokenSubject `json:"user,omitempty"`
	ExpiresIn string        `json:"expiresIn,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// TokenSubject is the identity carried by a token
type TokenSubject struct {
	UserID  int64  `json:"userId"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"isAdmin"`
	IAT     int64  `json:"iat"`
	EXP     int64  `json:"exp"`
}

// Verify handles GET /api/auth/verify. Invalid or missing tokens get a 401
// with valid=false rather than a problem document.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	status := h.tokenService.Status(middleware.GetClaims(r.Context()))
	if !status.Valid {
		WriteData(w, http.StatusUnauthorized, VerifyResponse{
			Valid:   false,
			Message: "Token is invalid or missing",
		}, nil)
		return
	}

	c := status.Claims
	subject := &TokenSubject{UserID: c.UserID, Name: c.Name, IsAdmin: c.IsAdmin()}
	if c.IssuedAt != nil {
		subject.IAT = c.IssuedAt.Unix()
	}
	if c.ExpiresAt != nil {
		subject.EXP = c.ExpiresAt.Unix()
	}

	WriteData(w, http.StatusOK, VerifyResponse{
		Valid:     true,
		User:      subject,
		ExpiresIn: status.ExpiresIn,
	}, nil)
}
