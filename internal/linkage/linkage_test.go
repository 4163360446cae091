package linkage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gss-opera-matcher/internal/match"
	"github.com/gss-opera-matcher/internal/similarity"
)

type explodingName struct{}

func (explodingName) String() string { panic("bad cell") }

func linkageConfig() match.Config {
	cfg := match.DefaultConfig()
	cfg.Algorithm = similarity.RecordLinkage
	return cfg
}

func tables() (*match.Table, *match.Table) {
	primary := match.NewTable("Last Name", "First Name", "Date", "Intent to Return")
	primary.Append(match.Record{"Last Name": "Smith", "First Name": "John", "Date": "2024-01-15", "Intent to Return": 9})
	primary.Append(match.Record{"Last Name": "Jones", "First Name": "Mary", "Date": "not a date", "Intent to Return": 8})
	primary.Append(match.Record{"Last Name": "Brown", "First Name": "Alice", "Date": "2024-01-20", "Intent to Return": 3})

	secondary := match.NewTable("USERID", "LastName", "FirstName", "Date")
	secondary.Append(match.Record{"USERID": "U1", "LastName": "Smyth", "FirstName": "Jon", "Date": "15/01/2024"})
	secondary.Append(match.Record{"USERID": "U2", "LastName": "Zhou", "FirstName": "Wei", "Date": "2024-01-15"})
	secondary.Append(match.Record{"USERID": "U3", "LastName": "Jones", "FirstName": "Mary", "Date": "garbage"})
	return primary, secondary
}

func TestFeaturesScore(t *testing.T) {
	assert.Equal(t, 1.0, Features{true, true, true}.Score())
	assert.InDelta(t, 2.0/3, Features{LastName: true, ExactDate: true}.Score(), 1e-9)
	assert.Equal(t, 0.0, Features{}.Score())
}

func TestRunComparesAgreementFraction(t *testing.T) {
	primary := match.NewTable("Last Name", "First Name", "Date")
	primary.Append(match.Record{"Last Name": "Smith", "First Name": "John", "Date": "2024-01-15"})
	secondary := match.NewTable("USERID", "LastName", "FirstName", "Date")
	secondary.Append(match.Record{"USERID": "U1", "LastName": "Smith", "FirstName": "Xavier", "Date": "2024-01-15"})

	tests := []struct {
		threshold int
		rows      int
	}{
		{85, 0},
		{67, 0},
		{66, 1},
	}

	for _, tt := range tests {
		cfg := linkageConfig()
		cfg.Threshold = tt.threshold
		l, err := NewLinker(cfg)
		require.NoError(t, err)

		rs, err := l.Run(context.Background(), primary, secondary, nil)
		require.NoError(t, err)
		assert.Len(t, rs.Rows, tt.rows, "threshold %d", tt.threshold)
	}
}

func TestRunLinksWithinDateBlock(t *testing.T) {
	l, err := NewLinker(linkageConfig())
	require.NoError(t, err)

	primary, secondary := tables()
	var progress []int
	rs, err := l.Run(context.Background(), primary, secondary, func(p int) { progress = append(progress, p) })
	require.NoError(t, err)

	require.Len(t, rs.Rows, 1)
	row := rs.Rows[0]
	assert.Equal(t, 0, row.PrimaryIndex)
	assert.Equal(t, 0, row.SecondaryIndex)
	assert.Equal(t, 100, row.LastScore)
	assert.Equal(t, 100, row.FirstScore)
	assert.Equal(t, 100, row.CombinedScore)
	assert.Equal(t, match.High, row.Confidence)
	require.NotNil(t, row.ITRBucket)
	assert.Equal(t, 10, *row.ITRBucket)
	assert.Equal(t, []int{100}, progress)
}

func TestRunLowerThresholdAcceptsPartialAgreement(t *testing.T) {
	cfg := linkageConfig()
	cfg.Threshold = 30
	l, err := NewLinker(cfg)
	require.NoError(t, err)

	primary, secondary := tables()
	rs, err := l.Run(context.Background(), primary, secondary, nil)
	require.NoError(t, err)
	require.Len(t, rs.Rows, 2)

	zhou := rs.Rows[1]
	assert.Equal(t, 1, zhou.SecondaryIndex)
	assert.Equal(t, 0, zhou.LastScore)
	assert.Equal(t, 0, zhou.FirstScore)
	assert.Equal(t, 33, zhou.CombinedScore)
	assert.Equal(t, match.VeryLow, zhou.Confidence)
}

func TestRunShowAllSkipsUndatedRows(t *testing.T) {
	cfg := linkageConfig()
	cfg.ShowAllMatches = true
	l, err := NewLinker(cfg)
	require.NoError(t, err)

	primary, secondary := tables()
	rs, err := l.Run(context.Background(), primary, secondary, nil)
	require.NoError(t, err)

	var noMatch []int
	for _, row := range rs.Rows {
		if row.IsNoMatch() {
			noMatch = append(noMatch, row.PrimaryIndex)
			assert.Nil(t, row.ITRBucket)
		}
	}
	// Row 1 has no usable date and is excluded entirely.
	assert.Equal(t, []int{2}, noMatch)
}

func TestRunRecoversFromPanics(t *testing.T) {
	l, err := NewLinker(linkageConfig())
	require.NoError(t, err)

	primary, secondary := tables()
	primary.Rows[0]["Last Name"] = explodingName{}

	rs, err := l.Run(context.Background(), primary, secondary, nil)
	require.NoError(t, err)
	require.NotNil(t, rs)
	assert.Empty(t, rs.Rows)
	assert.Equal(t, primary.Columns, rs.PrimaryColumns)
}

func TestRunMissingColumnIsAnError(t *testing.T) {
	l, err := NewLinker(linkageConfig())
	require.NoError(t, err)

	primary, _ := tables()
	_, err = l.Run(context.Background(), primary, match.NewTable("LastName"), nil)
	assert.ErrorIs(t, err, match.ErrMissingColumn)
}

func TestRunCancelled(t *testing.T) {
	l, err := NewLinker(linkageConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	primary, secondary := tables()
	_, err = l.Run(ctx, primary, secondary, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestITRColumnDiscovery(t *testing.T) {
	l, err := NewLinker(linkageConfig())
	require.NoError(t, err)

	assert.Equal(t, "Intent to Return", l.itrColumn(match.NewTable("Name", "Intent to Return", "ITR")))
	assert.Equal(t, "GSS_ITR", l.itrColumn(match.NewTable("Name", "GSS_ITR")))
	assert.Equal(t, "", l.itrColumn(match.NewTable("Name", "Date")))

	cfg := linkageConfig()
	cfg.PrimaryITR = "Score"
	l, err = NewLinker(cfg)
	require.NoError(t, err)
	assert.Equal(t, "Score", l.itrColumn(match.NewTable("Score", "ITR")))
}
