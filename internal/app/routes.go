package app

import (
	"net/http"

	"github.com/eventmate/eventmate/internal/config"
	"github.com/eventmate/eventmate/internal/rest"
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Auth
	api.HandleFunc("/auth/signup", deps.UserHandler.Signup).Methods("POST")
	api.HandleFunc("/auth/login", deps.UserHandler.Login).Methods("POST")
	api.HandleFunc("/auth/logout", deps.UserHandler.Logout).Methods("POST")

	protected := api.NewRoute().Subrouter()
	protected.Use(Authenticate(deps.Tokens, deps.Revocations, deps.UserService, cfg.Auth.CookieName))

	protected.HandleFunc("/auth/me", deps.UserHandler.Me).Methods("GET")

	// Events
	protected.HandleFunc("/events/today", deps.EventHandler.Today).Methods("GET")
	protected.HandleFunc("/events/month/{year}/{month}", deps.EventHandler.Month).Methods("GET")
	protected.HandleFunc("/events/day/{year}/{month}/{day}", deps.EventHandler.Day).Methods("GET")
	protected.HandleFunc("/events", deps.EventHandler.Create).Methods("POST")
	protected.HandleFunc("/events/", deps.EventHandler.Create).Methods("POST")
	protected.HandleFunc("/events/allEvents", deps.EventHandler.AllEvents).Methods("GET")
	protected.HandleFunc("/events/myEvents", deps.EventHandler.MyEvents).Methods("GET")
	protected.HandleFunc("/events/attending", deps.EventHandler.AttendingEvents).Methods("GET")
	protected.HandleFunc("/events/join/{id}", deps.EventHandler.Join).Methods("POST")
	protected.HandleFunc("/events/leave/{id}", deps.EventHandler.Leave).Methods("POST")
	protected.HandleFunc("/events/{id}", deps.EventHandler.Details).Methods("GET")
	protected.HandleFunc("/events/{id}", deps.EventHandler.Update).Methods("PUT")
	protected.HandleFunc("/events/{id}", deps.EventHandler.Delete).Methods("DELETE")
	protected.HandleFunc("/events/{id}/leave", deps.EventHandler.Leave).Methods("POST")
}
