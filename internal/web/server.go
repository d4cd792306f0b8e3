// Package web serves the browser front-end: an embedded page and a small
// JSON API over per-browser tempmail sessions, with live updates over a
// websocket.
package web

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	tempmail "github.com/tempmailkit/tempmail-go"
)

// SessionCookie names the cookie carrying the session ID.
const SessionCookie = "tempmail_session"

const (
	sessionKey      = "tempmail.session"
	janitorInterval = time.Minute
	shutdownTimeout = 5 * time.Second
)

//go:embed static/index.html
var indexHTML []byte

// Config configures the web front-end.
type Config struct {
	Addr           string
	AllowedOrigins []string
	// SessionIdle is how long an unused session lives. Zero keeps sessions
	// until shutdown.
	SessionIdle time.Duration
	// Metrics exposes /metrics when the client has metrics.
	Metrics bool
	// HealthTimeout bounds the upstream readiness probe.
	HealthTimeout time.Duration
}

// Server is the web front-end.
type Server struct {
	cfg     Config
	client  *tempmail.Client
	store   *Store
	hub     *Hub
	health  healthcheck.Handler
	engine  *gin.Engine
	logger  *zap.Logger
	baseCtx context.Context
	cancel  context.CancelFunc
}

// New builds the server. opts are applied to every session it creates.
func New(client *tempmail.Client, cfg Config, logger *zap.Logger, opts ...tempmail.SessionOption) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(cfg.AllowedOrigins, logger.Named("ws"))
	s := &Server{
		cfg:     cfg,
		client:  client,
		hub:     hub,
		store:   NewStore(client, hub, cfg.SessionIdle, logger.Named("session"), opts...),
		health:  newHealth(client, cfg.HealthTimeout),
		logger:  logger,
		baseCtx: ctx,
		cancel:  cancel,
	}
	s.engine = s.routes()
	return s
}

func newHealth(client *tempmail.Client, timeout time.Duration) healthcheck.Handler {
	h := healthcheck.NewHandler()
	h.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(10000))
	h.AddReadinessCheck("upstream-domains", healthcheck.HTTPGetCheck(client.BaseURL()+"/domains", timeout))
	return h
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(recovery(s.logger))
	router.Use(requestLogger(s.logger))

	corsConfig := gincors.Config{
		AllowOrigins:     s.cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	router.GET("/healthz/live", gin.WrapF(s.health.LiveEndpoint))
	router.GET("/healthz/ready", gin.WrapF(s.health.ReadyEndpoint))
	if s.cfg.Metrics && s.client.Metrics() != nil {
		router.GET("/metrics", gin.WrapH(s.client.Metrics().Handler()))
	}

	withSession := s.withSession()
	router.GET("/", withSession, s.index)

	api := router.Group("/api", withSession)
	{
		api.GET("/domains", s.listDomains)
		api.POST("/email", s.generateEmail)
		api.GET("/session", s.getSession)
		api.POST("/session/poll", s.startPolling)
		api.POST("/session/check", s.checkMessages)
		api.GET("/session/events", s.events)
	}

	return router
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Store returns the session store.
func (s *Server) Store() *Store {
	return s.store
}

// Run serves on cfg.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.store.RunJanitor(ctx, janitorInterval)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web front-end listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close stops every session's polling and drops websocket listeners.
func (s *Server) Close() {
	s.cancel()
	s.store.Close()
}
