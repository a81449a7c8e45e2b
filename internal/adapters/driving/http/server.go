package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimblechat/integrations-core/internal/core/domain"
	"github.com/nimblechat/integrations-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	serverBaseURL string
	clientBaseURL string

	// Services
	tokenService     driving.TokenService
	handshakeService driving.HandshakeService
	oauthService     driving.OAuthService
	registry         *domain.ScopeRegistry

	// Auth
	verifier       TokenVerifier
	internalSecret string

	// Infrastructure
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// ServerBaseURL is this service's public base URL, used to build the
	// authorization URL handed back to the client.
	ServerBaseURL string

	// ClientBaseURL is the chat application's base URL, the target of all
	// post-flow redirects.
	ClientBaseURL string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:          "0.0.0.0",
		Port:          8080,
		Version:       "dev",
		ServerBaseURL: "http://localhost:8080",
		ClientBaseURL: "http://localhost:3000",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	tokenService driving.TokenService,
	handshakeService driving.HandshakeService,
	oauthService driving.OAuthService,
	registry *domain.ScopeRegistry,
	verifier TokenVerifier,
	internalSecret string,
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	s := &Server{
		router:           http.NewServeMux(),
		version:          cfg.Version,
		serverBaseURL:    cfg.ServerBaseURL,
		clientBaseURL:    cfg.ClientBaseURL,
		tokenService:     tokenService,
		handshakeService: handshakeService,
		oauthService:     oauthService,
		registry:         registry,
		verifier:         verifier,
		internalSecret:   internalSecret,
		db:               db,
		redisClient:      redisClient,
	}

	logging := &LoggingMiddleware{}
	recovery := &RecoveryMiddleware{}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      recovery.Handler(logging.Handler(s.router)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Create middleware
	userAuth := NewAuthMiddleware(s.verifier)
	internalAuth := NewInternalAuthMiddleware(s.internalSecret)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Browser-facing flow endpoints (public; the init token and OAuth state
	// carry the authentication)
	s.router.HandleFunc("GET /api/integrations/google-workspace", s.handleAuthorize)
	s.router.HandleFunc("GET /api/integrations/google-workspace/callback", s.handleCallback)
	s.router.HandleFunc("GET /api/integrations/error", s.handleError)

	// Client endpoints (end-user session auth)
	s.router.Handle("POST /api/integrations/google-workspace/{service}/init",
		userAuth.Authenticate(http.HandlerFunc(s.handleInitAuth)))
	s.router.Handle("GET /api/integrations/google-workspace/enabled",
		userAuth.Authenticate(http.HandlerFunc(s.handleEnabled)))
	s.router.Handle("POST /api/integrations/google-workspace/revoke",
		userAuth.Authenticate(http.HandlerFunc(s.handleRevoke)))

	// Internal endpoints (shared-secret auth)
	s.router.Handle("GET /api/integrations/google-workspace/access_token",
		internalAuth.Authenticate(http.HandlerFunc(s.handleAccessToken)))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	log.Println("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
