package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	api "github.com/ipc-control-room/ipc-project/internal/api/http"
	"github.com/ipc-control-room/ipc-project/internal/api/middleware"
	"github.com/ipc-control-room/ipc-project/internal/api/ws"
	"github.com/ipc-control-room/ipc-project/internal/domain/channel"
	"github.com/ipc-control-room/ipc-project/internal/domain/process"
	"github.com/ipc-control-room/ipc-project/internal/domain/registry"
	"github.com/ipc-control-room/ipc-project/internal/domain/security"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/config"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/logging"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/monitoring"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/tracing"
)

// Server wires the broker together and serves it over HTTP
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	registry   *registry.Registry
	supervisor *process.Supervisor
	hub        *logging.Hub
	history    *logging.Ring
	tracer     *tracing.Tracer
	metrics    *monitoring.Metrics
	logger     *logging.Logger
	config     *config.Config
}

// NewServer creates a new server instance. base may be nil, in which case a
// logger is built from cfg.Logging.
func NewServer(cfg *config.Config, base *logging.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if base == nil {
		built, err := logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
			OutputPaths: []string{"stdout"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
		base = built
	}

	// Every component logs through the hub so the WebSocket stream and
	// GET /logs see the same entries as stdout.
	hub := logging.NewHub()
	history := logging.NewRing(cfg.Logging.History)
	hub.Register(history.Sink())
	logger := base.WithHub(hub)

	logger.Info("Initializing IPC broker",
		zap.String("port", cfg.Server.Port),
		zap.Int("shm_capacity", cfg.IPC.SharedBufferCapacity),
		zap.Duration("worker_tick", cfg.Workers.Tick),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("ipc-broker", logger)

	gate := security.NewGate(logger).WithMetrics(metrics)
	reg := registry.New(channel.Deps{
		Policy:  gate,
		Logger:  logger,
		Metrics: metrics,
	}, registry.Options{
		Capacity:     cfg.IPC.SharedBufferCapacity,
		StreamBuffer: cfg.IPC.StreamBuffer,
	})

	supervisor := process.NewSupervisor(process.Config{
		Tick:       cfg.Workers.Tick,
		EmitPeriod: cfg.Workers.EmitPeriod,
		Marker:     cfg.Workers.Marker,
	}, logger).WithMetrics(metrics)

	s := &Server{
		registry:   reg,
		supervisor: supervisor,
		hub:        hub,
		history:    history,
		tracer:     tracer,
		metrics:    metrics,
		logger:     logger,
		config:     cfg,
	}

	if cfg.IPC.SeedDir != "" {
		if err := s.seed(context.Background()); err != nil {
			s.Close(context.Background())
			return nil, err
		}
	}

	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: s.router,
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

func (s *Server) seed(ctx context.Context) error {
	span, ctx := s.tracer.StartSpan(ctx, "seed")
	defer func() {
		span.Finish()
		s.tracer.Submit(span)
	}()
	span.SetTag("dir", s.config.IPC.SeedDir)

	result, err := registry.NewSeeder(s.registry, s.config.IPC.SeedDir, s.logger).Seed(ctx)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to seed channels: %w", err)
	}
	span.SetTag("created", fmt.Sprint(result.Created))
	return nil
}

func (s *Server) buildRouter() *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(s.tracer))
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(s.config.Server.CORSOrigins)))
	if s.config.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", s.config.RateLimit.RequestsPerSecond),
			zap.Int("burst", s.config.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: s.config.RateLimit.RequestsPerSecond,
			Burst:             s.config.RateLimit.Burst,
		}))
	}

	handlers := api.NewHandlers(s.registry, s.supervisor, s.metrics, s.logger, s.history)
	api.RegisterRoutes(router, handlers)

	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	router.GET("/logs/stream", ws.NewHandler(s.hub, s.history, s.metrics, s.logger).HandleConnection)

	return router
}

// Handler returns the HTTP handler serving the broker.
func (s *Server) Handler() http.Handler { return s.router }

// Registry returns the channel registry.
func (s *Server) Registry() *registry.Registry { return s.registry }

// Supervisor returns the worker supervisor.
func (s *Server) Supervisor() *process.Supervisor { return s.supervisor }

// Hub returns the log hub every component writes through.
func (s *Server) Hub() *logging.Hub { return s.hub }

// Logger returns the hub-attached logger.
func (s *Server) Logger() *logging.Logger { return s.logger }

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.Close(context.Background())
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	if n := s.config.Server.MaxConnections; n > 0 {
		ln = netutil.LimitListener(ln, n)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server",
			zap.String("addr", ln.Addr().String()),
			zap.Int("max_connections", s.config.Server.MaxConnections),
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.Close(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	return s.Close(shutdownCtx)
}

// Close stops every worker, closes every channel and flushes the logger.
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	timeout := s.config.Workers.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	workerCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.supervisor.Shutdown(workerCtx)
	if err != nil {
		s.logger.Error("Failed to stop workers", zap.Error(err))
	}

	s.registry.CloseAll()
	s.tracer.Close()
	_ = s.logger.Sync()

	if err != nil {
		return fmt.Errorf("failed to stop workers: %w", err)
	}
	return nil
}
