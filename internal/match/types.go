package match

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gss-opera-matcher/internal/similarity"
)

var (
	// ErrInvalidConfig is returned when a run configuration fails validation.
	ErrInvalidConfig = errors.New("invalid match configuration")
	// ErrMissingColumn is returned when a configured column is absent from
	// its table.
	ErrMissingColumn = errors.New("missing column")
)

// Output column prefixes and score columns.
const (
	PrimaryPrefix   = "T1_"
	SecondaryPrefix = "T2_"

	ColLastScore     = "LastName_Score"
	ColFirstScore    = "FirstName_Score"
	ColCombinedScore = "Combined_Score"
	ColConfidence    = "Confidence"
	ColITRBucket     = "ITR_Bucket"
)

// Source labels used in reports.
const (
	PrimaryLabel   = "GSS"
	SecondaryLabel = "Opera"
)

// DefaultThreshold is the combined score needed for a High match.
const DefaultThreshold = 85

// Record is one input row keyed by column name.
type Record map[string]any

// Table is an ordered set of columns and the rows that carry them.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

// Append adds a row.
func (t *Table) Append(r Record) {
	t.Rows = append(t.Rows, r)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	return t != nil && slices.Contains(t.Columns, name)
}

// Confidence is the tier assigned to an emitted row.
type Confidence string

const (
	High    Confidence = "High"
	Medium  Confidence = "Medium"
	Low     Confidence = "Low"
	VeryLow Confidence = "Very Low"
	NoMatch Confidence = "No Match"
)

// Confidences lists every tier from best to worst.
func Confidences() []Confidence {
	return []Confidence{High, Medium, Low, VeryLow, NoMatch}
}

// ProgressFunc receives the percentage of primary rows processed.
type ProgressFunc func(percent int)

// Strategy runs one matching approach over two tables.
type Strategy interface {
	Run(ctx context.Context, primary, secondary *Table, progress ProgressFunc) (*ResultSet, error)
}

// Tuning holds the heuristic constants of the matcher.
type Tuning struct {
	ExactDateNameBoost     int     `json:"exact_date_name_boost" mapstructure:"exact_date_name_boost" validate:"gte=0,lte=100"`
	CloseDateNameBoost     int     `json:"close_date_name_boost" mapstructure:"close_date_name_boost" validate:"gte=0,lte=100"`
	ExactDateCombinedBonus int     `json:"exact_date_combined_bonus" mapstructure:"exact_date_combined_bonus" validate:"gte=0,lte=100"`
	CloseDateCombinedBonus int     `json:"close_date_combined_bonus" mapstructure:"close_date_combined_bonus" validate:"gte=0,lte=100"`
	PhoneticBoost          int     `json:"phonetic_boost" mapstructure:"phonetic_boost" validate:"gte=0,lte=100"`
	ToleranceReduction     int     `json:"tolerance_reduction" mapstructure:"tolerance_reduction" validate:"gte=0,lte=100"`
	MediumPassReduction    int     `json:"medium_pass_reduction" mapstructure:"medium_pass_reduction" validate:"gte=0,lte=100"`
	LenientPassReduction   int     `json:"lenient_pass_reduction" mapstructure:"lenient_pass_reduction" validate:"gte=0,lte=100"`
	MaxLengthDiffRatio     float64 `json:"max_length_diff_ratio" mapstructure:"max_length_diff_ratio" validate:"gte=0,lte=1"`
	WeightTrigger          float64 `json:"weight_trigger" mapstructure:"weight_trigger" validate:"gte=0.5,lte=1"`
	WeightCap              float64 `json:"weight_cap" mapstructure:"weight_cap" validate:"gte=0.5,lte=1"`
	HighBand               int     `json:"high_band" mapstructure:"high_band" validate:"gte=0,lte=100"`
	MediumBand             int     `json:"medium_band" mapstructure:"medium_band" validate:"gte=0,lte=100,ltefield=HighBand"`
	LowBand                int     `json:"low_band" mapstructure:"low_band" validate:"gte=0,lte=100,ltefield=MediumBand"`
	ProgressIntervalPct    int     `json:"progress_interval_pct" mapstructure:"progress_interval_pct" validate:"gte=1,lte=100"`
}

// DefaultTuning returns the standard heuristic constants.
func DefaultTuning() *Tuning {
	return &Tuning{
		ExactDateNameBoost:     3,
		CloseDateNameBoost:     1,
		ExactDateCombinedBonus: 10,
		CloseDateCombinedBonus: 5,
		PhoneticBoost:          15,
		ToleranceReduction:     8,
		MediumPassReduction:    10,
		LenientPassReduction:   15,
		MaxLengthDiffRatio:     0.5,
		WeightTrigger:          0.6,
		WeightCap:              0.7,
		HighBand:               90,
		MediumBand:             80,
		LowBand:                70,
		ProgressIntervalPct:    1,
	}
}

// Band maps a combined score to a fixed confidence band.
func (t *Tuning) Band(score int) Confidence {
	switch {
	case score >= t.HighBand:
		return High
	case score >= t.MediumBand:
		return Medium
	case score >= t.LowBand:
		return Low
	}
	return VeryLow
}

// Config is the immutable configuration of one run.
type Config struct {
	PrimaryLast    string `json:"primary_last" mapstructure:"primary_last" validate:"required"`
	PrimaryFirst   string `json:"primary_first" mapstructure:"primary_first" validate:"required"`
	PrimaryDate    string `json:"primary_date" mapstructure:"primary_date" validate:"required"`
	PrimaryITR     string `json:"primary_itr,omitempty" mapstructure:"primary_itr"`
	SecondaryLast  string `json:"secondary_last" mapstructure:"secondary_last" validate:"required"`
	SecondaryFirst string `json:"secondary_first" mapstructure:"secondary_first" validate:"required"`
	SecondaryDate  string `json:"secondary_date" mapstructure:"secondary_date" validate:"required"`
	SecondaryID    string `json:"secondary_id" mapstructure:"secondary_id" validate:"required"`

	Algorithm         similarity.Algorithm `json:"algorithm" mapstructure:"algorithm"`
	Threshold         int                  `json:"threshold" mapstructure:"threshold" validate:"gte=0,lte=100"`
	DateToleranceDays int                  `json:"date_tolerance_days" mapstructure:"date_tolerance_days" validate:"gte=0,lte=3650"`

	PreNormalize     bool `json:"pre_normalize" mapstructure:"pre_normalize"`
	EnhancedFuzzy    bool `json:"enhanced_fuzzy" mapstructure:"enhanced_fuzzy"`
	DateBonus        bool `json:"date_bonus" mapstructure:"date_bonus"`
	Phonetic         bool `json:"phonetic" mapstructure:"phonetic"`
	NicknameVariants bool `json:"nickname_variants" mapstructure:"nickname_variants"`
	CompoundSurnames bool `json:"compound_surnames" mapstructure:"compound_surnames"`
	SafeMissing      bool `json:"safe_missing" mapstructure:"safe_missing"`
	ShowAllMatches   bool `json:"show_all_matches" mapstructure:"show_all_matches"`
	MultiPass        bool `json:"multi_pass" mapstructure:"multi_pass"`

	Tuning *Tuning `json:"tuning,omitempty" mapstructure:"-"`
	Debug  bool    `json:"-" mapstructure:"debug"`
}

// DefaultConfig returns a configuration for the standard GSS/Opera column
// names with every refinement enabled except show-all.
func DefaultConfig() Config {
	return Config{
		PrimaryLast:      "Last Name",
		PrimaryFirst:     "First Name",
		PrimaryDate:      "Date",
		SecondaryLast:    "LastName",
		SecondaryFirst:   "FirstName",
		SecondaryDate:    "Date",
		SecondaryID:      "USERID",
		Algorithm:        similarity.Ensemble,
		Threshold:        DefaultThreshold,
		PreNormalize:     true,
		EnhancedFuzzy:    true,
		DateBonus:        true,
		Phonetic:         true,
		NicknameVariants: true,
		CompoundSurnames: true,
		SafeMissing:      false,
		MultiPass:        true,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and required column roles.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !c.Algorithm.Valid() {
		return fmt.Errorf("%w: unknown algorithm %d", ErrInvalidConfig, int(c.Algorithm))
	}
	if c.Tuning != nil {
		if err := validate.Struct(c.Tuning); err != nil {
			return fmt.Errorf("%w: tuning: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// EffectiveTuning returns the configured tuning or the defaults.
func (c Config) EffectiveTuning() *Tuning {
	if c.Tuning != nil {
		return c.Tuning
	}
	return DefaultTuning()
}

// CheckColumns verifies that every configured column exists in its table.
func (c Config) CheckColumns(primary, secondary *Table) error {
	if primary == nil || secondary == nil {
		return fmt.Errorf("%w: both tables are required", ErrInvalidConfig)
	}

	required := []struct {
		table *Table
		side  string
		role  string
		col   string
	}{
		{primary, PrimaryLabel, "last name", c.PrimaryLast},
		{primary, PrimaryLabel, "first name", c.PrimaryFirst},
		{primary, PrimaryLabel, "date", c.PrimaryDate},
		{secondary, SecondaryLabel, "last name", c.SecondaryLast},
		{secondary, SecondaryLabel, "first name", c.SecondaryFirst},
		{secondary, SecondaryLabel, "date", c.SecondaryDate},
		{secondary, SecondaryLabel, "id", c.SecondaryID},
	}
	if c.PrimaryITR != "" {
		required = append(required, struct {
			table *Table
			side  string
			role  string
			col   string
		}{primary, PrimaryLabel, "intent score", c.PrimaryITR})
	}

	for _, r := range required {
		if !r.table.HasColumn(r.col) {
			return fmt.Errorf("%w: %s %s column %q", ErrMissingColumn, r.side, r.role, r.col)
		}
	}
	return nil
}

// ResultRow is one emitted pairing, or a placeholder for an unmatched
// primary row.
type ResultRow struct {
	PrimaryIndex   int
	SecondaryIndex int
	Primary        Record
	Secondary      Record
	LastScore      int
	FirstScore     int
	CombinedScore  int
	DateDiff       int
	Confidence     Confidence
	ITRBucket      *int
}

// IsNoMatch reports whether the row is an unmatched placeholder.
func (r ResultRow) IsNoMatch() bool {
	return r.Confidence == NoMatch
}

// ResultSet is the output of a run.
type ResultSet struct {
	PrimaryColumns   []string
	SecondaryColumns []string
	Rows             []ResultRow
	Elapsed          time.Duration
}

// NewResultSet creates an empty result set shaped for the two tables.
func NewResultSet(primary, secondary *Table) *ResultSet {
	rs := &ResultSet{}
	if primary != nil {
		rs.PrimaryColumns = slices.Clone(primary.Columns)
	}
	if secondary != nil {
		rs.SecondaryColumns = slices.Clone(secondary.Columns)
	}
	return rs
}

// Len returns the number of rows.
func (rs *ResultSet) Len() int {
	return len(rs.Rows)
}

// Header returns the output column names.
func (rs *ResultSet) Header() []string {
	header := make([]string, 0, len(rs.PrimaryColumns)+len(rs.SecondaryColumns)+5)
	for _, c := range rs.PrimaryColumns {
		header = append(header, PrimaryPrefix+c)
	}
	for _, c := range rs.SecondaryColumns {
		header = append(header, SecondaryPrefix+c)
	}
	return append(header, ColLastScore, ColFirstScore, ColCombinedScore, ColConfidence, ColITRBucket)
}

// Values renders row i in Header order. Score and ITR cells are empty on
// placeholder rows, as are all secondary cells.
func (rs *ResultSet) Values(i int) []string {
	row := rs.Rows[i]
	values := make([]string, 0, len(rs.PrimaryColumns)+len(rs.SecondaryColumns)+5)
	for _, c := range rs.PrimaryColumns {
		values = append(values, FormatValue(row.Primary[c]))
	}
	for _, c := range rs.SecondaryColumns {
		if row.IsNoMatch() {
			values = append(values, "")
			continue
		}
		values = append(values, FormatValue(row.Secondary[c]))
	}

	if row.IsNoMatch() {
		return append(values, "", "", "", string(row.Confidence), "")
	}
	itr := ""
	if row.ITRBucket != nil {
		itr = strconv.Itoa(*row.ITRBucket)
	}
	return append(values,
		strconv.Itoa(row.LastScore),
		strconv.Itoa(row.FirstScore),
		strconv.Itoa(row.CombinedScore),
		string(row.Confidence),
		itr,
	)
}

// Summary counts the rows of a result set.
type Summary struct {
	Rows           int                `json:"rows"`
	MatchedPrimary int                `json:"matched_primary"`
	ByConfidence   map[Confidence]int `json:"by_confidence"`
	Elapsed        time.Duration      `json:"elapsed_ns"`
}

// Summarize counts rows per confidence tier and distinct matched primary
// rows.
func (rs *ResultSet) Summarize() Summary {
	s := Summary{
		Rows:         len(rs.Rows),
		ByConfidence: make(map[Confidence]int),
		Elapsed:      rs.Elapsed,
	}
	matched := make(map[int]struct{})
	for _, row := range rs.Rows {
		s.ByConfidence[row.Confidence]++
		if !row.IsNoMatch() {
			matched[row.PrimaryIndex] = struct{}{}
		}
	}
	s.MatchedPrimary = len(matched)
	return s
}

// FormatValue renders a cell value as text.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if math.IsNaN(t) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return FormatValue(float64(t))
	case time.Time:
		if t.IsZero() {
			return ""
		}
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.DateTime)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}
