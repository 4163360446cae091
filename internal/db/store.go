package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/gss-opera-matcher/internal/debug"
	"github.com/gss-opera-matcher/internal/match"
	"github.com/gss-opera-matcher/internal/metrics"
)

var (
	// ErrRunNotFound is returned when no run has the requested id.
	ErrRunNotFound = errors.New("run not found")
	// ErrInvalidRunID is returned for ids that are not UUIDs.
	ErrInvalidRunID = errors.New("invalid run id")
)

const (
	runsTable    = "match_runs"
	resultsTable = "match_results"

	// DefaultResultLimit caps GetResults when no limit is given.
	DefaultResultLimit = 1000
	maxResultLimit     = 10000
)

var runColumns = []string{
	"id", "algorithm", "threshold", "config",
	"primary_rows", "secondary_rows", "result_rows", "matched_primary",
	"high_count", "medium_count", "low_count", "very_low_count", "no_match_count",
	"elapsed_ms", "created_at",
}

var resultColumns = []string{
	"run_id", "row_no", "primary_index", "secondary_index",
	"last_score", "first_score", "combined_score", "date_diff",
	"confidence", "itr_bucket", "primary_record", "secondary_record",
}

// Run is a stored matching run.
type Run struct {
	ID             string          `db:"id" json:"id"`
	Algorithm      string          `db:"algorithm" json:"algorithm"`
	Threshold      int             `db:"threshold" json:"threshold"`
	Config         json.RawMessage `db:"config" json:"config"`
	PrimaryRows    int             `db:"primary_rows" json:"primary_rows"`
	SecondaryRows  int             `db:"secondary_rows" json:"secondary_rows"`
	ResultRows     int             `db:"result_rows" json:"result_rows"`
	MatchedPrimary int             `db:"matched_primary" json:"matched_primary"`
	High           int             `db:"high_count" json:"high"`
	Medium         int             `db:"medium_count" json:"medium"`
	Low            int             `db:"low_count" json:"low"`
	VeryLow        int             `db:"very_low_count" json:"very_low"`
	NoMatch        int             `db:"no_match_count" json:"no_match"`
	ElapsedMS      int64           `db:"elapsed_ms" json:"elapsed_ms"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// StoredResult is one stored result row. Score fields are nil on No Match
// rows.
type StoredResult struct {
	RunID          string          `db:"run_id" json:"-"`
	RowNo          int             `db:"row_no" json:"row"`
	PrimaryIndex   int             `db:"primary_index" json:"primary_index"`
	SecondaryIndex *int64          `db:"secondary_index" json:"secondary_index,omitempty"`
	LastScore      *int64          `db:"last_score" json:"last_score,omitempty"`
	FirstScore     *int64          `db:"first_score" json:"first_score,omitempty"`
	CombinedScore  *int64          `db:"combined_score" json:"combined_score,omitempty"`
	DateDiff       *int64          `db:"date_diff" json:"date_diff,omitempty"`
	Confidence     string          `db:"confidence" json:"confidence"`
	ITRBucket      *int64          `db:"itr_bucket" json:"itr_bucket,omitempty"`
	Primary        json.RawMessage `db:"primary_record" json:"primary"`
	Secondary      json.RawMessage `db:"secondary_record" json:"secondary"`
}

// ResultFilter narrows GetResults.
type ResultFilter struct {
	Confidence match.Confidence
	Limit      int
	Offset     int
}

// Store persists runs and their result rows.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewStore creates a store on an open connection.
func NewStore(conn *Connection) *Store {
	return &Store{db: conn.DB, logger: debug.Logger().Named("store")}
}

// SaveRun stores a run summary and every result row in one transaction.
// Result rows are bulk loaded with COPY.
func (s *Store) SaveRun(ctx context.Context, cfg match.Config, primaryRows, secondaryRows int, rs *match.ResultSet) (run *Run, err error) {
	defer func() {
		metrics.StoreOperationsTotal.WithLabelValues("save_run", metrics.Status(err)).Inc()
	}()

	run, err = newRun(uuid.NewString(), cfg, primaryRows, secondaryRows, rs)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	query, args := insertRunQuery(run)
	if err := tx.QueryRowxContext(ctx, query+" RETURNING created_at", args...).Scan(&run.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(resultsTable, resultColumns...))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare copy: %w", err)
	}
	for i, row := range rs.Rows {
		values, err := resultValues(run.ID, i, rs, row)
		if err != nil {
			stmt.Close()
			return nil, err
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			stmt.Close()
			return nil, fmt.Errorf("failed to copy result %d: %w", i, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return nil, fmt.Errorf("failed to flush results: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return nil, fmt.Errorf("failed to close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}

	s.logger.Info("stored run", zap.String("run_id", run.ID), zap.Int("rows", run.ResultRows))
	return run, nil
}

// GetRun loads a run summary.
func (s *Store) GetRun(ctx context.Context, id string) (run *Run, err error) {
	defer func() {
		metrics.StoreOperationsTotal.WithLabelValues("get_run", metrics.Status(err)).Inc()
	}()

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRunID, id)
	}

	query, args := selectRunQuery(id)
	var r Run
	if err := s.db.GetContext(ctx, &r, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &r, nil
}

// GetResults loads the result rows of a run in emission order.
func (s *Store) GetResults(ctx context.Context, id string, filter ResultFilter) (results []StoredResult, err error) {
	defer func() {
		metrics.StoreOperationsTotal.WithLabelValues("get_results", metrics.Status(err)).Inc()
	}()

	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}

	query, args := selectResultsQuery(id, filter)
	results = []StoredResult{}
	if err := s.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}
	return results, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func newRun(id string, cfg match.Config, primaryRows, secondaryRows int, rs *match.ResultSet) (*Run, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	summary := rs.Summarize()
	return &Run{
		ID:             id,
		Algorithm:      cfg.Algorithm.String(),
		Threshold:      cfg.Threshold,
		Config:         cfgJSON,
		PrimaryRows:    primaryRows,
		SecondaryRows:  secondaryRows,
		ResultRows:     summary.Rows,
		MatchedPrimary: summary.MatchedPrimary,
		High:           summary.ByConfidence[match.High],
		Medium:         summary.ByConfidence[match.Medium],
		Low:            summary.ByConfidence[match.Low],
		VeryLow:        summary.ByConfidence[match.VeryLow],
		NoMatch:        summary.ByConfidence[match.NoMatch],
		ElapsedMS:      summary.Elapsed.Milliseconds(),
	}, nil
}

func insertRunQuery(run *Run) (string, []any) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(runsTable)
	ib.Cols(runColumns[:len(runColumns)-1]...)
	ib.Values(
		run.ID, run.Algorithm, run.Threshold, string(run.Config),
		run.PrimaryRows, run.SecondaryRows, run.ResultRows, run.MatchedPrimary,
		run.High, run.Medium, run.Low, run.VeryLow, run.NoMatch,
		run.ElapsedMS,
	)
	return ib.Build()
}

func selectRunQuery(id string) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(runColumns...)
	sb.From(runsTable)
	sb.Where(sb.Equal("id", id))
	return sb.Build()
}

func selectResultsQuery(id string, filter ResultFilter) (string, []any) {
	limit := filter.Limit
	if limit < 1 || limit > maxResultLimit {
		limit = DefaultResultLimit
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(resultColumns...)
	sb.From(resultsTable)
	sb.Where(sb.Equal("run_id", id))
	if filter.Confidence != "" {
		sb.Where(sb.Equal("confidence", string(filter.Confidence)))
	}
	sb.OrderBy("row_no")
	sb.Limit(limit)
	if filter.Offset > 0 {
		sb.Offset(filter.Offset)
	}
	return sb.Build()
}

// resultValues renders one result row in resultColumns order.
func resultValues(runID string, rowNo int, rs *match.ResultSet, row match.ResultRow) ([]any, error) {
	primary, err := recordJSON(rs.PrimaryColumns, row.Primary)
	if err != nil {
		return nil, err
	}

	if row.IsNoMatch() {
		return []any{
			runID, rowNo, row.PrimaryIndex, nil,
			nil, nil, nil, nil,
			string(row.Confidence), nil, primary, "{}",
		}, nil
	}

	secondary, err := recordJSON(rs.SecondaryColumns, row.Secondary)
	if err != nil {
		return nil, err
	}
	var bucket any
	if row.ITRBucket != nil {
		bucket = *row.ITRBucket
	}
	return []any{
		runID, rowNo, row.PrimaryIndex, row.SecondaryIndex,
		row.LastScore, row.FirstScore, row.CombinedScore, row.DateDiff,
		string(row.Confidence), bucket, primary, secondary,
	}, nil
}

func recordJSON(columns []string, r match.Record) (string, error) {
	out := make(map[string]string, len(columns))
	for _, c := range columns {
		out[c] = match.FormatValue(r[c])
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}
	return string(data), nil
}
