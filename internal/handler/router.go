package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/forgo/goodjobs/internal/metrics"
	"github.com/forgo/goodjobs/internal/middleware"
	"github.com/forgo/goodjobs/internal/model"
)

// Handlers groups the endpoint handlers mounted by NewRouter
type Handlers struct {
	Health   *HealthHandler
	Auth     *AuthHandler
	Users    *UserHandler
	GoodJobs *GoodJobHandler
	Events   *EventsHandler
}

func authed(fn http.HandlerFunc) http.Handler {
	return middleware.RequireAuth(fn)
}

func admin(fn http.HandlerFunc) http.Handler {
	return middleware.RequireAdmin(fn)
}

// NewRouter builds the route table. Authentication is resolved by the
// outer middleware chain; routes here only gate on it.
func NewRouter(h Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(metrics.InstrumentHandler)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, model.NewNotFoundError("route"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := model.NewMethodNotAllowedError(r.Method)
		p.Detail = "Method " + r.Method + " is not allowed on " + r.URL.Path
		WriteError(w, p)
	})

	r.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Auth
	api.HandleFunc("/auth/register", h.Auth.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.Auth.Login).Methods(http.MethodPost)
	api.Handle("/auth/me", authed(h.Auth.Me)).Methods(http.MethodGet)
	api.HandleFunc("/auth/verify", h.Auth.Verify).Methods(http.MethodGet)

	// Users
	api.HandleFunc("/users", h.Users.List).Methods(http.MethodGet)
	api.Handle("/users", admin(h.Users.Create)).Methods(http.MethodPost)
	api.HandleFunc("/users/by-name/{name}", h.Users.GetByName).Methods(http.MethodGet)
	api.HandleFunc("/users/{userId}", h.Users.Get).Methods(http.MethodGet)
	api.Handle("/users/{userId}", admin(h.Users.Update)).Methods(http.MethodPatch)
	api.Handle("/users/{userId}", admin(h.Users.Delete)).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userId}/goodjobs", h.Users.ListGoodJobs).Methods(http.MethodGet)
	api.HandleFunc("/users/{userId}/goodjobs/count", h.Users.CountGoodJobs).Methods(http.MethodGet)

	// GoodJobs
	api.HandleFunc("/goodjobs", h.GoodJobs.List).Methods(http.MethodGet)
	api.Handle("/goodjobs", admin(h.GoodJobs.Create)).Methods(http.MethodPost)
	api.Handle("/goodjobs/transfer", authed(h.GoodJobs.Transfer)).Methods(http.MethodPost)
	api.HandleFunc("/goodjobs/{id}", h.GoodJobs.Get).Methods(http.MethodGet)
	api.Handle("/goodjobs/{id}", admin(h.GoodJobs.Delete)).Methods(http.MethodDelete)
	api.HandleFunc("/goodjobs/{id}/transfers/last", h.GoodJobs.LastTransfer).Methods(http.MethodGet)

	// Events
	api.Handle("/events", authed(h.Events.Stream)).Methods(http.MethodGet)

	return r
}
