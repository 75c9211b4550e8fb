package api

import (
	"net/http"
	"time"

	"docuchat-backend/internal/handlers"
	"docuchat-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDependencies holds all the dependencies required by the router setup.
type RouterDependencies struct {
	AuthHandler         *handlers.AuthHandler
	ConversationHandler *handlers.ConversationHandlers
	ChatHandler         *handlers.ChatHandlers
	DocumentHandler     *handlers.DocumentHandlers
	Tokens              TokenResolver
	AllowedOrigins      []string
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	if deps.AuthHandler == nil || deps.ConversationHandler == nil || deps.ChatHandler == nil ||
		deps.DocumentHandler == nil || deps.Tokens == nil {
		panic("api: missing router dependency")
	}

	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Public Routes ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", deps.AuthHandler.HandleRegister)
		r.Post("/login", deps.AuthHandler.HandleLogin)
		r.Post("/logout", deps.AuthHandler.HandleLogout)
		r.With(AuthMiddleware(deps.Tokens)).Get("/me", deps.AuthHandler.HandleMe)
	})

	// --- Authenticated Routes ---
	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(deps.Tokens))

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", deps.ConversationHandler.HandleCreate)
			r.Get("/", deps.ConversationHandler.HandleList)
			r.Get("/{id}", deps.ConversationHandler.HandleGet)
			r.Delete("/{id}", deps.ConversationHandler.HandleDelete)
			r.Get("/{id}/messages", deps.ConversationHandler.HandleMessages)
		})

		r.Post("/chat", deps.ChatHandler.HandleChat)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", deps.DocumentHandler.HandleUpload)
			r.Get("/", deps.DocumentHandler.HandleList)
			r.Post("/import/notion", deps.DocumentHandler.HandleImportNotion)
			r.Get("/{id}", deps.DocumentHandler.HandleGet)
			r.Get("/{id}/file", deps.DocumentHandler.HandleDownload)
			r.Delete("/{id}", deps.DocumentHandler.HandleDelete)
		})

		r.Post("/search", deps.DocumentHandler.HandleSearch)
	})

	return r
}
