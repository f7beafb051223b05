package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crmweb/internal"
	"crmweb/internal/crm"
	"crmweb/internal/handler"
	"crmweb/internal/metrics"
	"crmweb/internal/middleware"
	"crmweb/internal/session"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// sessionCleanupInterval controls how often expired sessions are purged.
const sessionCleanupInterval = time.Hour

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize session store
	store, err := session.NewSQLiteStore(cfg.SessionDBPath)
	if err != nil {
		return fmt.Errorf("session store initialization failed: %w", err)
	}
	defer store.Close()
	logger.Info("Session store ready", "path", store.Path())

	// Initialize CRM API client and services
	client := crm.NewClient(cfg.APIBaseURL, cfg.APITimeout, logger)
	authService := crm.NewAuthService(client, logger)
	contactService := crm.NewContactService(client, logger)
	companyService := crm.NewCompanyService(client, logger)
	logger.Info("CRM API client ready", "base_url", cfg.APIBaseURL)

	// Initialize template renderer
	renderer, err := handler.NewRenderer(handler.RendererConfig{
		TemplatesDir: cfg.TemplatesDir,
		Logger:       logger,
		IsDev:        cfg.Env == "development",
	})
	if err != nil {
		return fmt.Errorf("renderer initialization failed: %w", err)
	}
	logger.Info("Templates loaded", "count", len(renderer.ListTemplates()))

	// Initialize middleware
	isSecure := cfg.Env != "development"
	sessionMw := middleware.NewSessionMiddleware(store, logger, isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	authLimiter := middleware.NewAuthRateLimiter(logger)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, store, renderer, logger, authLimiter, cfg.SessionTTL, isSecure)
	dashboardHandler := handler.NewDashboardHandler(contactService, companyService, renderer, logger, isSecure)
	contactHandler := handler.NewContactHandler(contactService, companyService, renderer, logger, isSecure)
	companyHandler := handler.NewCompanyHandler(companyService, renderer, logger, isSecure)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Static files
	staticFS := http.FileServer(http.Dir(cfg.StaticDir))
	mux.Handle("GET /static/", http.StripPrefix("/static/", staticFS))

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics (basic auth)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Middleware stacks. Public routes still resolve the session so that
	// already-authenticated visitors get redirected off the login page.
	withSession := middleware.Stack(sessionMw.WithSession)
	requireSession := middleware.Stack(sessionMw.WithSession, sessionMw.RequireSession)

	// Auth routes (public)
	mux.Handle("GET /login", withSession(http.HandlerFunc(authHandler.ShowLogin)))
	mux.Handle("POST /login", authLimiter.LimitLogin(http.HandlerFunc(authHandler.Login)))
	mux.Handle("GET /register", withSession(http.HandlerFunc(authHandler.ShowRegister)))
	mux.Handle("POST /register", authLimiter.LimitRegister(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /logout", http.HandlerFunc(authHandler.Logout))

	// Dashboard
	mux.Handle("GET /dashboard", requireSession(http.HandlerFunc(dashboardHandler.Show)))

	// Contact routes
	mux.Handle("GET /contacts", requireSession(http.HandlerFunc(contactHandler.Index)))
	mux.Handle("GET /contacts/new", requireSession(http.HandlerFunc(contactHandler.New)))
	mux.Handle("POST /contacts", requireSession(http.HandlerFunc(contactHandler.Create)))
	mux.Handle("GET /contacts/{id}/edit", requireSession(http.HandlerFunc(contactHandler.Edit)))
	mux.Handle("POST /contacts/{id}", requireSession(http.HandlerFunc(contactHandler.Update)))
	mux.Handle("POST /contacts/{id}/delete", requireSession(http.HandlerFunc(contactHandler.Delete)))

	// Company routes
	mux.Handle("GET /companies", requireSession(http.HandlerFunc(companyHandler.Index)))
	mux.Handle("GET /companies/new", requireSession(http.HandlerFunc(companyHandler.New)))
	mux.Handle("POST /companies", requireSession(http.HandlerFunc(companyHandler.Create)))
	mux.Handle("GET /companies/{id}/edit", requireSession(http.HandlerFunc(companyHandler.Edit)))
	mux.Handle("POST /companies/{id}", requireSession(http.HandlerFunc(companyHandler.Update)))
	mux.Handle("POST /companies/{id}/delete", requireSession(http.HandlerFunc(companyHandler.Delete)))

	// Root redirects to the dashboard; the route guard bounces anonymous
	// visitors on to the login page from there.
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			handler.NotFoundResponse(w, r, logger)
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})

	// Outer middleware applied to every request
	root := middleware.Stack(
		securityMw.Handler,
		loggingMw.Handler,
		metrics.Middleware,
	)(mux)

	// ==========================================================================
	// Background session cleanup
	// ==========================================================================

	cleanupCtx, cancelCleanup := context.WithCancel(ctx)
	defer cancelCleanup()
	go func() {
		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				removed, err := store.DeleteExpired(cleanupCtx)
				if err != nil {
					logger.Error("Session cleanup failed", "error", err)
					continue
				}
				if removed > 0 {
					metrics.SessionsActive.Sub(float64(removed))
					logger.Info("Expired sessions removed", "count", removed)
				}
			}
		}
	}()

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
