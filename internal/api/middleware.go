package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	xerrors "ProofBench/internal/errors"
	"ProofBench/internal/observability/metrics"
)

// observe 记录请求耗时与状态码，handler 标签使用路由模式避免基数膨胀。
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		metrics.ObserveHTTPRequest(pattern, r.Method, status, elapsed)
		s.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("route", pattern),
			slog.Int("status", status),
			slog.Duration("duration", elapsed),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// limitBody 限制请求体大小。
func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// recoverer 将 panic 转换为 INTERNAL_ERROR 响应。
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("panic while handling request",
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec))
				s.writeError(w, r, xerrors.New(xerrors.CodeInternal, fmt.Sprintf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
