package tabular

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/gss-opera-matcher/internal/debug"
	"github.com/gss-opera-matcher/internal/match"
)

// Load reads a table from path, choosing the reader from the extension:
// .csv for delimited files and .txt for Opera activity logs.
func Load(path string) (*match.Table, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var read func(*os.File) (*match.Table, error)
	switch ext {
	case ".csv":
		read = func(f *os.File) (*match.Table, error) { return ReadCSV(f) }
	case ".txt":
		read = func(f *os.File) (*match.Table, error) { return ReadOpera(f) }
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	table, err := read(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	debug.Logger().Info("loaded table",
		zap.String("path", path),
		zap.Int("rows", table.Len()),
		zap.Int("columns", len(table.Columns)),
	)
	return table, nil
}

// SaveResults writes a result set as CSV to path.
func SaveResults(path string, rs *match.ResultSet) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if err := WriteResults(file, rs); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
