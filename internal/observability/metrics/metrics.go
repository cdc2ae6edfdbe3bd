package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "proofbench"

var (
	registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests processed.",
	}, []string{"handler", "method", "code"})

	httpErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_request_errors_total",
		Help:      "Total number of HTTP requests that resulted in a server error.",
	}, []string{"handler", "method"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"handler", "method"})

	proofsGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "proofs_generated_total",
		Help:      "Proof artifacts generated, by effective reference industry.",
	}, []string{"industry", "fallback"})

	proofVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "proof_verifications_total",
		Help:      "Proof verification outcomes.",
	}, []string{"outcome"})

	consentOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "consent_operations_total",
		Help:      "Consent ledger operations by outcome.",
	}, []string{"operation", "outcome"})

	challengeEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_challenges_total",
		Help:      "Challenge lifecycle events (issued, redeemed, rejected, swept).",
	}, []string{"event"})

	adapterFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "network_adapter_fallbacks_total",
		Help:      "Operations served by the mock adapter because the real adapter is unconfigured or unreachable.",
	}, []string{"operation"})

	eventPublishFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_publish_failures_total",
		Help:      "Consent events that could not be published.",
	}, []string{"driver"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpErrors,
		httpDuration,
		proofsGenerated,
		proofVerifications,
		consentOperations,
		challengeEvents,
		adapterFallbacks,
		eventPublishFailures,
	)
}

// ObserveHTTPRequest records metrics about an HTTP request lifecycle.
func ObserveHTTPRequest(handler, method string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(handler, method, strconv.Itoa(status)).Inc()
	if status >= 500 {
		httpErrors.WithLabelValues(handler, method).Inc()
	}
	httpDuration.WithLabelValues(handler, method).Observe(duration.Seconds())
}

// ProofGenerated counts a generated artifact.
func ProofGenerated(industry string, fellBack bool) {
	proofsGenerated.WithLabelValues(industry, strconv.FormatBool(fellBack)).Inc()
}

// Verification outcomes.
const (
	OutcomeFound       = "found"
	OutcomeNotFound    = "not_found"
	OutcomeMalformed   = "malformed"
	OutcomeSynthesized = "synthesized"
	OutcomeOK          = "ok"
	OutcomeError       = "error"
)

// ProofVerified counts a verification by outcome.
func ProofVerified(outcome string) {
	proofVerifications.WithLabelValues(outcome).Inc()
}

// ConsentOperation counts a ledger operation (mint, lookup, revoke).
func ConsentOperation(operation, outcome string) {
	consentOperations.WithLabelValues(operation, outcome).Inc()
}

// ChallengeEvent counts challenge store activity.
func ChallengeEvent(event string, n int) {
	if n <= 0 {
		return
	}
	challengeEvents.WithLabelValues(event).Add(float64(n))
}

// AdapterFallback counts an operation that fell back to the mock adapter.
func AdapterFallback(operation string) {
	adapterFallbacks.WithLabelValues(operation).Inc()
}

// EventPublishFailed counts an event lost by a publisher.
func EventPublishFailed(driver string) {
	eventPublishFailures.WithLabelValues(driver).Inc()
}

// Handler exposes the metrics in Prometheus text exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// StartServer launches a standalone HTTP server exposing the /metrics endpoint.
func StartServer(ctx context.Context, addr string) error {
	if addr == "" {
		return errors.New("metrics address is empty")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}
