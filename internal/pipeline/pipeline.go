// Package pipeline selects the matching strategy for a configuration and
// runs it with metrics and a logged summary.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gss-opera-matcher/internal/debug"
	"github.com/gss-opera-matcher/internal/linkage"
	"github.com/gss-opera-matcher/internal/match"
	"github.com/gss-opera-matcher/internal/metrics"
	"github.com/gss-opera-matcher/internal/similarity"
)

// New returns the linkage strategy for the Record Linkage algorithm and the
// match engine for every other algorithm.
func New(ec match.EngineConfig) (match.Strategy, error) {
	if ec.Match.Algorithm == similarity.RecordLinkage {
		l, err := linkage.NewLinker(ec.Match)
		if err != nil {
			return nil, err
		}
		return l, nil
	}

	e, err := match.NewEngine(ec)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Run builds the strategy for ec and matches primary against secondary.
func Run(ctx context.Context, ec match.EngineConfig, primary, secondary *match.Table, progress match.ProgressFunc) (*match.ResultSet, error) {
	strategy, err := New(ec)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(ec.Match.Algorithm.String(), metrics.Status(err)).Inc()
		return nil, err
	}
	return Execute(ctx, strategy, ec.Match.Algorithm, primary, secondary, progress)
}

// Execute runs a prepared strategy and records the outcome.
func Execute(ctx context.Context, strategy match.Strategy, alg similarity.Algorithm, primary, secondary *match.Table, progress match.ProgressFunc) (*match.ResultSet, error) {
	label := alg.String()
	logger := debug.Logger().Named("pipeline")

	metrics.RunsInFlight.Inc()
	defer metrics.RunsInFlight.Dec()

	startTime := time.Now()
	rs, err := strategy.Run(ctx, primary, secondary, progress)
	elapsed := time.Since(startTime)

	metrics.RunsTotal.WithLabelValues(label, metrics.Status(err)).Inc()
	metrics.RunDuration.WithLabelValues(label).Observe(elapsed.Seconds())
	if err != nil {
		logger.Warn("match run failed", zap.String("algorithm", label), zap.Error(err))
		return nil, err
	}

	if primary != nil {
		metrics.PrimaryRowsTotal.WithLabelValues(label).Add(float64(primary.Len()))
	}
	summary := rs.Summarize()
	fields := []zap.Field{
		zap.String("algorithm", label),
		zap.Int("rows", summary.Rows),
		zap.Int("matched_primary", summary.MatchedPrimary),
		zap.Duration("elapsed", elapsed),
	}
	for _, c := range match.Confidences() {
		n := summary.ByConfidence[c]
		if n > 0 {
			metrics.ResultRowsTotal.WithLabelValues(string(c)).Add(float64(n))
		}
		fields = append(fields, zap.Int(string(c), n))
	}
	logger.Info("match run complete", fields...)

	return rs, nil
}
