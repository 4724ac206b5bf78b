package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/26haroon26/chatapp-server/internal/http/handlers"
	"github.com/26haroon26/chatapp-server/internal/middleware"
)

// NewRouter creates the HTTP router with all routes configured
func NewRouter(
	gate *middleware.Gate,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	messageHandler *handlers.MessageHandler,
	wsHandler http.Handler,
	corsOrigin string,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	// Credentials must be allowed: the session rides a cross-site cookie.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Post("/forget-password", authHandler.HandleForgetPassword)
		r.Post("/forget-password-2", authHandler.HandleResetPassword)

		// Protected routes (require a valid session cookie)
		r.Group(func(r chi.Router) {
			r.Use(gate.Middleware)
			r.Get("/profile", userHandler.HandleProfile)
			r.Get("/profile/{id}", userHandler.HandleProfile)
			r.Post("/change-password", userHandler.HandleChangePassword)
			r.Get("/users", userHandler.HandleUsers)
			r.Post("/message", messageHandler.HandleSend)
			r.Get("/messages/{id}", messageHandler.HandleConversation)
		})
	})

	// The push channel authenticates inside its own handshake handler.
	r.Handle("/ws", wsHandler)

	return r
}
