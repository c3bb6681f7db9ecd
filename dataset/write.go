package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/go-gota/gota/series"
)

// WriteCSV writes the table with a header row. Floats use the shortest
// representation that round-trips and missing cells are written empty.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	names := t.Names()
	if err := cw.Write(names); err != nil {
		return errors.Wrap(err, "dataset: write header")
	}

	cols := make([][]string, len(names))
	for j, name := range names {
		cols[j] = formatColumn(t.df.Col(name))
	}
	row := make([]string, len(names))
	for i := 0; i < t.Nrow(); i++ {
		for j := range cols {
			row[j] = cols[j][i]
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "dataset: write row %d", i)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "dataset: flush csv")
}

// SaveCSV writes the table to path, creating parent directories.
func (t Table) SaveCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "dataset: create directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "dataset: create %s", path)
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "dataset: close %s", path)
}

func formatColumn(s series.Series) []string {
	missing := s.IsNaN()
	out := make([]string, s.Len())
	if s.Type() == series.Float {
		for i, v := range s.Float() {
			if missing[i] || math.IsNaN(v) {
				continue
			}
			out[i] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		return out
	}
	for i, rec := range s.Records() {
		if missing[i] {
			continue
		}
		out[i] = rec
	}
	return out
}
