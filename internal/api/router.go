package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"github.com/sirupsen/logrus"

	"bookshelf/internal/api/handler"
	"bookshelf/internal/api/middleware"
	"bookshelf/internal/app/service"
	"bookshelf/internal/common/security"
	"bookshelf/internal/platform/config"
)

func NewRouter(
	cfg *config.Config,
	logger *logrus.Logger,
	tokens *security.TokenManager,
	authService *service.AuthService,
	bookService *service.BookService,
	shelfService *service.ShelfService,
	userService *service.UserService,
	authRateLimit func(next http.Handler) http.Handler,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.NewStructuredLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Parses and verifies "Authorization: Bearer T" when present, putting
	// claims in context. Routes that require auth add the Authenticator
	// middleware on top.
	r.Use(jwtauth.Verifier(tokens.JWTAuth()))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Auth routes, rate limited per client IP
	authHandler := handler.NewAuthHandler(authService)
	r.Route("/auth", func(ar chi.Router) {
		if authRateLimit != nil {
			ar.Use(authRateLimit)
		}
		authHandler.RegisterRoutes(ar)
	})

	// Catalog routes (reads public, writes authenticated)
	bookHandler := handler.NewBookHandler(bookService)
	r.Route("/books", bookHandler.RegisterRoutes)

	// Shelf routes (authenticated)
	shelfHandler := handler.NewShelfHandler(shelfService)
	r.Route("/shelf", shelfHandler.RegisterRoutes)

	// User management routes (authenticated)
	userHandler := handler.NewUserHandler(userService)
	r.Route("/users", userHandler.RegisterRoutes)

	return r
}
