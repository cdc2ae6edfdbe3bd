package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ProofBench/internal/auth"
	"ProofBench/internal/benchmark"
	xerrors "ProofBench/internal/errors"
	"ProofBench/internal/network"
	"ProofBench/internal/observability/alerting"
	"ProofBench/internal/observability/metrics"
	"ProofBench/pkg/logger"
)

// Options 控制监听地址、超时与运行环境。
type Options struct {
	Address         string
	Production      bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

// Server 负责暴露 REST 接口。
type Server struct {
	opts       Options
	production bool
	adapter    network.Adapter
	catalog    *benchmark.Catalog
	auth       *auth.Service
	alerts     alerting.Dispatcher
	logger     *slog.Logger
	clock      func() time.Time
	router     chi.Router
}

// Option 定义可选配置。
type Option func(*Server)

// WithAlerts 设置告警分发器。
func WithAlerts(d alerting.Dispatcher) Option {
	return func(s *Server) {
		if d != nil {
			s.alerts = d
		}
	}
}

// WithLogger 覆盖默认日志记录器。
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock 覆盖时间源。
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewServer 构造 API 服务实例并注册路由。
func NewServer(opts Options, adapter network.Adapter, catalog *benchmark.Catalog, authSvc *auth.Service, options ...Option) (*Server, error) {
	if adapter == nil || catalog == nil || authSvc == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "api server requires adapter, catalog and auth service")
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		opts:       opts,
		production: opts.Production,
		adapter:    adapter,
		catalog:    catalog,
		auth:       authSvc,
		logger:     logger.Named("api"),
		clock:      time.Now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(s.observe)
	r.Use(s.limitBody)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Get("/industries", s.handleIndustries)
		api.Get("/industries/{industry}/benchmarks", s.handleIndustryBenchmarks)
		api.Post("/benchmarks/submit", s.handleSubmit)
		api.Get("/benchmarks/stats/{industry}", s.handleStats)

		api.Post("/proofs/verify", s.handleVerifyProof)
		api.Get("/proofs/{proofHash}", s.handleGetProof)

		api.Get("/auth/challenge", s.handleChallenge)
		api.Post("/auth/verify", s.handleRedeem)

		api.Get("/network", s.handleNetwork)

		api.Group(func(protected chi.Router) {
			protected.Use(s.auth.Middleware(auth.MiddlewareConfig{
				AuditEvent: "consent_api",
				OnError:    s.writeError,
			}))
			protected.Post("/consent/mint", s.handleMintConsent)
			protected.Get("/consent/{consentId}", s.handleGetConsent)
			protected.Post("/consent/{consentId}/revoke", s.handleRevokeConsent)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Error: &errorBody{Code: "NOT_FOUND", Message: "Route not found"}})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Error: &errorBody{Code: "METHOD_NOT_ALLOWED", Message: "Method not allowed"}})
	})
	return r
}

// Handler 返回完整的路由，便于测试与嵌入。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", slog.String("address", s.opts.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("API 服务启动失败: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("API 服务关闭失败: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// alert 对需要告警的错误异步通知，不阻塞响应。
func (s *Server) alert(r *http.Request, err error) {
	if s.alerts == nil || !xerrors.ShouldAlert(err) {
		return
	}
	event := alerting.FromError(err, r.Method, r.URL.Path, s.clock())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if notifyErr := s.alerts.Notify(ctx, event); notifyErr != nil {
			s.logger.Warn("alert dispatch failed", slog.String("error", notifyErr.Error()))
		}
	}()
}
