package dataset

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/YuminosukeSato/devperf/pkg/log"
	"github.com/go-gota/gota/dataframe"
)

// DefaultNaNValues are the cell values read as missing.
var DefaultNaNValues = []string{"", "NA", "N/A", "NaN", "nan", "NULL", "null", "None", "<nil>"}

// IsNaNToken reports whether s, trimmed, is one of DefaultNaNValues.
func IsNaNToken(s string) bool {
	s = strings.TrimSpace(s)
	for _, v := range DefaultNaNValues {
		if s == v {
			return true
		}
	}
	return false
}

type loadOptions struct {
	delimiter rune
	nanValues []string
}

// LoadOption configures CSV loading.
type LoadOption func(*loadOptions)

// WithDelimiter forces a field delimiter. Zero means auto-detect.
func WithDelimiter(d rune) LoadOption {
	return func(o *loadOptions) { o.delimiter = d }
}

// WithNaNValues replaces the set of tokens read as missing.
func WithNaNValues(values []string) LoadOption {
	return func(o *loadOptions) { o.nanValues = values }
}

// Load reads a delimited text file with a header row. Column kinds are
// detected from the values.
func Load(path string, opts ...LoadOption) (Table, error) {
	logger := log.GetLoggerWithName("dataset")

	f, err := os.Open(path)
	if err != nil {
		return Table{}, errors.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close()

	cfg := loadOptions{nanValues: DefaultNaNValues}
	for _, opt := range opts {
		opt(&cfg)
	}

	br := bufio.NewReader(f)
	if cfg.delimiter == 0 {
		head, _ := br.Peek(4096)
		cfg.delimiter = SniffDelimiter(path, head)
	}

	t, err := read(br, cfg)
	if err != nil {
		return Table{}, errors.Wrapf(err, "dataset: load %s", path)
	}
	logger.Debug("Table loaded",
		log.PathKey, path,
		log.SamplesKey, t.Nrow(),
		log.FeaturesKey, t.Ncol(),
	)
	return t, nil
}

// ReadCSV reads delimited text from r. Without WithDelimiter the delimiter
// is sniffed from the header line.
func ReadCSV(r io.Reader, opts ...LoadOption) (Table, error) {
	cfg := loadOptions{nanValues: DefaultNaNValues}
	for _, opt := range opts {
		opt(&cfg)
	}
	br := bufio.NewReader(r)
	if cfg.delimiter == 0 {
		head, _ := br.Peek(4096)
		cfg.delimiter = SniffDelimiter("", head)
	}
	return read(br, cfg)
}

func read(r io.Reader, cfg loadOptions) (Table, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(cfg.nanValues),
		dataframe.WithDelimiter(cfg.delimiter),
	)
	if df.Err != nil {
		if strings.Contains(df.Err.Error(), "empty DataFrame") {
			return Table{}, errors.Wrap(errors.ErrEmptyData, "dataset: read csv")
		}
		return Table{}, errors.Wrap(df.Err, "dataset: read csv")
	}
	return Table{df: df}, nil
}

// SniffDelimiter picks the delimiter of a file. A .tsv extension means tab;
// otherwise the most frequent of ',', ';' and '\t' in the first line wins,
// defaulting to comma.
func SniffDelimiter(path string, head []byte) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if c := bytes.Count(line, []byte(string(d))); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}
