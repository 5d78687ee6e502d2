package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"github.com/pliu/chatd/internal/auth"
	"github.com/pliu/chatd/internal/chat"
	"github.com/pliu/chatd/internal/metrics"
	"github.com/pliu/chatd/internal/middleware"
	"github.com/pliu/chatd/internal/users"
)

type RouterOptions struct {
	Auth           *auth.Service
	Users          *users.Service
	Chats          *chat.Service
	Metrics        *metrics.Metrics
	AllowedOrigins []string
}

// Router builds the HTTP handler with the auth, user, chat and message routes plus health and metrics.
func Router(opts RouterOptions) http.Handler {
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	authHandler := &AuthHandler{Auth: opts.Auth, Metrics: opts.Metrics}
	userHandler := &UserHandler{Users: opts.Users}
	chatHandler := &ChatHandler{Chats: opts.Chats, Metrics: opts.Metrics}
	messageHandler := &MessageHandler{Chats: opts.Chats, Metrics: opts.Metrics}

	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.LoggingMiddleware, middleware.Recoverer, middleware.Instrument(opts.Metrics))
	protected := middleware.AuthMiddleware(opts.Auth)

	public := func(path string, h http.HandlerFunc, method string) {
		handle(r, path, h, method)
	}
	private := func(path string, h http.HandlerFunc, method string) {
		handle(r, path, protected(h), method)
	}

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods("GET")
	r.Handle("/metrics", opts.Metrics.Handler()).Methods("GET")

	// Auth
	public("/auth/login", authHandler.Login, "POST")
	public("/auth/refresh", authHandler.Refresh, "POST")
	private("/auth/me", authHandler.Me, "GET")

	// Users
	public("/users", userHandler.Create, "POST")
	public("/users", userHandler.List, "GET")
	public("/users/{id:[0-9]+}", userHandler.Get, "GET")
	public("/users/{id:[0-9]+}", userHandler.Update, "PUT")
	public("/users/{id:[0-9]+}", userHandler.Delete, "DELETE")

	// Chats
	private("/chats", chatHandler.CreateChat, "POST")
	private("/chats/user/{id:[0-9]+}", chatHandler.UserChats, "GET")
	private("/chats/{id:[0-9]+}/add_user/{user_id:[0-9]+}", chatHandler.AddUser, "POST")
	private("/chats/{id:[0-9]+}/users/{user_id:[0-9]+}", chatHandler.RemoveUser, "DELETE")
	private("/chats/{id:[0-9]+}", chatHandler.DeleteChat, "DELETE")

	// Messages
	private("/messages", messageHandler.Send, "POST")
	private("/messages/chat/{id:[0-9]+}", messageHandler.ListForChat, "GET")
	private("/messages/{id:[0-9]+}/read", messageHandler.MarkRead, "POST")
	private("/messages/{id:[0-9]+}", messageHandler.Delete, "DELETE")

	allowed := opts.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           int((10 * time.Minute).Seconds()),
	})(r)
}

// handle registers path both with and without a trailing slash.
func handle(r *mux.Router, path string, h http.Handler, method string) {
	r.Handle(path, h).Methods(method)
	r.Handle(strings.TrimSuffix(path, "/")+"/", h).Methods(method)
}
