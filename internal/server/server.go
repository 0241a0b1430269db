// Package server is the composition root: it opens the database, builds
// every layer on top of it and mounts the handlers on a chi router.
//
//	sqlite.DB → matcher.Matcher → nutrition.Aggregator
//	          → swap.Engine, swap.Applier, swap.Propagator
//	          → service.{Meal,Swap,Insight,Auth}Service
//	          → handler.*Handler → routes
//
// Each layer only receives the interfaces it needs; nothing below the
// handlers knows about HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/nutriswap/internal/auth"
	"github.com/sakif/nutriswap/internal/config"
	"github.com/sakif/nutriswap/internal/handler"
	"github.com/sakif/nutriswap/internal/matcher"
	"github.com/sakif/nutriswap/internal/middleware"
	"github.com/sakif/nutriswap/internal/nutrition"
	sqliteRepo "github.com/sakif/nutriswap/internal/repository/sqlite"
	"github.com/sakif/nutriswap/internal/service"
	"github.com/sakif/nutriswap/internal/swap"
)

// Server owns the router and the database connection. The connection is
// closed when Start returns.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database at cfg.DBPath and wires all routes.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// DB is the store behind the server. Seeding tools and tests use it to load
// foods.
func (s *Server) DB() *sqliteRepo.DB {
	return s.db
}

// setupRoutes builds the dependency chain and mounts:
//
//	GET  /healthz
//	POST /auth/register, /auth/login, /auth/logout
//	GET  /auth/github/login, /auth/github/callback
//
//	/api (JWT cookie or Bearer token required)
//	GET  /me
//	POST /nutrients/aggregate
//	GET  /foods/search
//	POST /meals              GET /meals   GET /meals/{id}
//	POST /meals/{id}/swaps/suggestions
//	POST /meals/{id}/swaps
//	POST /swaps/propagate
//	GET  /insights/{daily-average,rda,food-groups,swap-effect}
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	github := auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	if !github.Configured() {
		s.logger.Info("GitHub sign-in disabled (GITHUB_CLIENT_ID not set)")
	}

	// Core
	foodMatcher := matcher.New(s.db, matcher.Config{
		MaxTokens:         s.config.MatchMaxTokens,
		PreferredKeyword:  matcher.DefaultConfig().PreferredKeyword,
		ProcessedKeywords: matcher.DefaultConfig().ProcessedKeywords,
	}, s.logger)
	aggregator := nutrition.NewAggregator(foodMatcher, s.db, s.logger)
	engine := swap.NewEngine(s.db, aggregator, swap.Config{
		ExtremeLimit: s.config.SwapExtremeLimit,
		MaxResults:   s.config.SwapMaxResults,
	}, s.logger)
	applier := swap.NewApplier(aggregator, s.logger)
	propagator := swap.NewPropagator(s.db, applier, s.logger)

	// Services
	mealService := service.NewMealService(s.db, foodMatcher, aggregator, s.logger)
	swapService := service.NewSwapService(s.db, engine, applier, propagator, s.logger)
	insightService := service.NewInsightService(s.db, aggregator, s.logger)
	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.logger)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, github, tokens.TTL(), s.logger)
	mealHandler := handler.NewMealHandler(mealService, s.logger)
	swapHandler := handler.NewSwapHandler(swapService, s.logger)
	insightHandler := handler.NewInsightHandler(insightService, s.logger)

	s.router.Get("/healthz", handler.HandleHealth(s.db, s.logger))

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/me", authHandler.HandleMe)

		r.Post("/nutrients/aggregate", mealHandler.HandleAggregate)
		r.Get("/foods/search", mealHandler.HandleSearchFoods)

		r.Post("/meals", mealHandler.HandleCreate)
		r.Get("/meals", mealHandler.HandleList)
		r.Get("/meals/{id}", mealHandler.HandleGet)
		r.Post("/meals/{id}/swaps/suggestions", swapHandler.HandleSuggestions)
		r.Post("/meals/{id}/swaps", swapHandler.HandleApply)
		r.Post("/swaps/propagate", swapHandler.HandlePropagate)

		r.Route("/insights", func(r chi.Router) {
			r.Get("/daily-average", insightHandler.HandleDailyAverage)
			r.Get("/rda", insightHandler.HandleRDA)
			r.Get("/food-groups", insightHandler.HandleFoodGroups)
			r.Get("/swap-effect", insightHandler.HandleSwapEffect)
		})
	})

	return nil
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
