package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pinvent/apiserver/config"
	"github.com/pinvent/apiserver/internal/db"
	"github.com/pinvent/apiserver/internal/handlers"
	"github.com/pinvent/apiserver/internal/mailer"
	"github.com/pinvent/apiserver/internal/notify"
	"github.com/pinvent/apiserver/internal/services"
	"github.com/pinvent/apiserver/internal/storage"
	"github.com/pinvent/apiserver/internal/store"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *notify.Publisher
}

// New constructs a Server with its stores, services and routes wired up.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.UploadsDir, 0o755); err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	imageStorage, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	events, err := notify.FromConfig(ctx, cfg.Notify)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	productRepo := store.NewProductRepository(dbConn)
	resetRepo := store.NewResetTokenRepository(dbConn)

	sender := mailer.NewSMTPSender(cfg.Mail)
	userService := services.NewUserService(
		userRepo,
		resetRepo,
		sender,
		events,
		cfg.FrontendURL,
		cfg.Mail.SupportAddr,
	)
	productService := services.NewProductService(productRepo, imageStorage, cfg.Storage.Folder)

	dev := cfg.IsDev()
	authMiddleware := handlers.RequireAuth([]byte(jwtSecret), dev)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, jwtSecret, dev)
	})
	router.Route("/api/products", func(r chi.Router) {
		handlers.ProductRouter(r, productService, authMiddleware, cfg.UploadsDir, dev)
	})
	router.Route("/api/contactus", func(r chi.Router) {
		handlers.ContactRouter(r, userService, authMiddleware, dev)
	})
	router.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir))))

	port := cfg.ServerPort
	if port == 0 {
		port = 5000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     events,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.events != nil {
		_ = s.events.Close()
	}
	return s.httpServer.Close()
}
