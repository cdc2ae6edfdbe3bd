package auth

import (
	"net/http"
	"time"
)

// MiddlewareConfig 配置身份认证中间件的行为。
type MiddlewareConfig struct {
	// AuditEvent 指定记录审计日志时使用的事件名称。
	AuditEvent string
	// OnError 负责输出认证失败的响应，默认使用 http.Error。
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

// Middleware 返回一个 HTTP 中间件，要求请求携带有效的 Bearer Token。
func (s *Service) Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	onError := cfg.OnError
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := s.AuthorizeHeader(r.Header.Get("Authorization"))
			if err != nil {
				s.audit.Warn("access_denied",
					"path", r.URL.Path,
					"method", r.Method,
					"error", err.Error(),
				)
				onError(w, r, err)
				return
			}

			start := time.Now()
			aw := &auditWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(aw, r.WithContext(WithIdentity(r.Context(), identity)))
			event := cfg.AuditEvent
			if event == "" {
				event = r.URL.Path
			}
			s.audit.Info("api_request",
				"event", event,
				"method", r.Method,
				"path", r.URL.Path,
				"status", aw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"identity", identity.Address,
			)
		})
	}
}

// auditWriter 包装 http.ResponseWriter 以捕获响应状态码。
type auditWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader 捕获响应状态码并调用底层的 WriteHeader 方法。
func (w *auditWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
