package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// AssessmentsTotal counts full pipeline runs by outcome.
	AssessmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stableguard",
		Name:      "assessments_total",
		Help:      "Full risk assessment cycles by outcome.",
	}, []string{"status"})

	// StageDuration observes per-stage wall time within a cycle.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stableguard",
		Name:      "stage_duration_seconds",
		Help:      "Pipeline stage duration.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	// TransactionDecisions counts on-demand evaluations by final decision.
	TransactionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stableguard",
		Name:      "transaction_decisions_total",
		Help:      "Transaction evaluations by decision.",
	}, []string{"decision"})

	// AlertsTotal counts dispatched risk alerts.
	AlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stableguard",
		Name:      "alerts_total",
		Help:      "Risk alerts dispatched to notifiers.",
	})
)

// CycleMetrics is the per-cycle timing summary persisted for the UI layer.
// StageDataPoints counts the items each stage produced (observations,
// snapshots, reports, bundles).
type CycleMetrics struct {
	Timestamp       time.Time        `json:"timestamp"`
	Success         bool             `json:"success"`
	AssetCount      int              `json:"assetCount"`
	StageDurationMS map[string]int64 `json:"stageDurationMs"`
	StageDataPoints map[string]int   `json:"stageDataPoints"`
	TotalDurationMS int64            `json:"totalDurationMs"`
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info().Str("addr", addr).Msg("metrics listener started")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
