package pipeline

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gss-opera-matcher/internal/linkage"
	"github.com/gss-opera-matcher/internal/match"
	"github.com/gss-opera-matcher/internal/metrics"
	"github.com/gss-opera-matcher/internal/similarity"
)

func sampleTables() (*match.Table, *match.Table) {
	primary := match.NewTable("Last Name", "First Name", "Date")
	primary.Append(match.Record{"Last Name": "Smith", "First Name": "John", "Date": "2024-01-15"})
	primary.Append(match.Record{"Last Name": "Patel", "First Name": "Asha", "Date": "2024-02-01"})

	secondary := match.NewTable("USERID", "LastName", "FirstName", "Date")
	secondary.Append(match.Record{"USERID": "U1", "LastName": "Smith", "FirstName": "John", "Date": "2024-01-15"})
	return primary, secondary
}

func TestNewSelectsStrategy(t *testing.T) {
	cfg := match.DefaultConfig()

	s, err := New(match.EngineConfig{Match: cfg})
	require.NoError(t, err)
	assert.IsType(t, &match.Engine{}, s)

	cfg.Algorithm = similarity.RecordLinkage
	s, err = New(match.EngineConfig{Match: cfg})
	require.NoError(t, err)
	assert.IsType(t, &linkage.Linker{}, s)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := match.DefaultConfig()
	cfg.Threshold = 101

	_, err := New(match.EngineConfig{Match: cfg})
	assert.ErrorIs(t, err, match.ErrInvalidConfig)

	cfg.Algorithm = similarity.RecordLinkage
	_, err = New(match.EngineConfig{Match: cfg})
	assert.ErrorIs(t, err, match.ErrInvalidConfig)
}

func TestRunRecordsMetrics(t *testing.T) {
	cfg := match.DefaultConfig()
	cfg.ShowAllMatches = true
	label := cfg.Algorithm.String()

	success := metrics.RunsTotal.WithLabelValues(label, "success")
	rowsSeen := metrics.PrimaryRowsTotal.WithLabelValues(label)
	noMatch := metrics.ResultRowsTotal.WithLabelValues(string(match.NoMatch))
	beforeRuns := testutil.ToFloat64(success)
	beforeRows := testutil.ToFloat64(rowsSeen)
	beforeNoMatch := testutil.ToFloat64(noMatch)

	primary, secondary := sampleTables()
	rs, err := Run(context.Background(), match.EngineConfig{Match: cfg}, primary, secondary, nil)
	require.NoError(t, err)
	require.Len(t, rs.Rows, 2)

	assert.Equal(t, beforeRuns+1, testutil.ToFloat64(success))
	assert.Equal(t, beforeRows+2, testutil.ToFloat64(rowsSeen))
	assert.Equal(t, beforeNoMatch+1, testutil.ToFloat64(noMatch))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.RunsInFlight))
}

func TestRunCountsFailures(t *testing.T) {
	cfg := match.DefaultConfig()
	failed := metrics.RunsTotal.WithLabelValues(cfg.Algorithm.String(), "error")
	before := testutil.ToFloat64(failed)

	primary, _ := sampleTables()
	_, err := Run(context.Background(), match.EngineConfig{Match: cfg}, primary, match.NewTable("USERID"), nil)
	assert.ErrorIs(t, err, match.ErrMissingColumn)
	assert.Equal(t, before+1, testutil.ToFloat64(failed))
}

func TestRunLinkageRoute(t *testing.T) {
	cfg := match.DefaultConfig()
	cfg.Algorithm = similarity.RecordLinkage

	primary, secondary := sampleTables()
	var last int
	rs, err := Run(context.Background(), match.EngineConfig{Match: cfg}, primary, secondary, func(p int) { last = p })
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, 100, rs.Rows[0].CombinedScore)
	assert.Equal(t, 100, last)
}
