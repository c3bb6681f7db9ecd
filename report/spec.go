// Package report runs descriptive analyses over a cleaned table: banding,
// grouped means, pivots, correlation and filtered exports. Each analysis
// writes CSV tables and PNG charts into one output directory.
package report

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed default_report.yaml
var defaultSpecYAML []byte

// Spec describes a report.
type Spec struct {
	Title       string     `yaml:"title"`
	Bands       []Band     `yaml:"bands" validate:"dive"`
	Analyses    []Analysis `yaml:"analyses" validate:"dive"`
	Filters     []Filter   `yaml:"filters,omitempty" validate:"dive"`
	Exports     []Export   `yaml:"exports,omitempty" validate:"dive"`
	Correlation bool       `yaml:"correlation"`
}

// Band derives a categorical column from a numeric source column. Rules
// are tried in order and the first match wins.
type Band struct {
	Name   string `yaml:"name" validate:"required"`
	Source string `yaml:"source" validate:"required"`
	Rules  []Rule `yaml:"rules" validate:"required,min=1,dive"`
	// Otherwise labels values no rule matched. Empty leaves them missing.
	Otherwise string `yaml:"otherwise,omitempty"`
	// Within restricts the band to (Gt, Le]; values outside are missing.
	Within *Range `yaml:"within,omitempty"`
}

// Rule compares a value with a fixed threshold or a statistic of the
// source column.
type Rule struct {
	Op    string   `yaml:"op" validate:"required,oneof=< <= > >="`
	Value *float64 `yaml:"value,omitempty" validate:"required_without=Stat,excluded_with=Stat"`
	Stat  string   `yaml:"stat,omitempty" validate:"omitempty,oneof=median mean"`
	Label string   `yaml:"label" validate:"required"`
}

// Range is a half-open interval (Gt, Le].
type Range struct {
	Gt float64 `yaml:"gt"`
	Le float64 `yaml:"le" validate:"gtfield=Gt"`
}

// Analysis groups rows by one or two bands and reports metric means.
type Analysis struct {
	Name    string   `yaml:"name" validate:"required"`
	By      []string `yaml:"by,omitempty" validate:"max=2,dive,required"`
	Metrics []string `yaml:"metrics,omitempty" validate:"dive,required"`
	Charts  []Chart  `yaml:"charts,omitempty" validate:"dive"`
}

// Chart kinds.
const (
	ChartBar        = "bar"
	ChartGroupedBar = "grouped_bar"
	ChartHistogram  = "histogram"
)

// Chart renders part of an analysis.
//
//   - bar: Metric over the labels of the single band
//   - grouped_bar: Metric with By[0] on the x axis and one series per label of By[1]
//   - histogram: the raw Column in Bins bins, with an optional Threshold marker
type Chart struct {
	Type      string   `yaml:"type" validate:"required,oneof=bar grouped_bar histogram"`
	Metric    string   `yaml:"metric,omitempty"`
	Column    string   `yaml:"column,omitempty"`
	Bins      int      `yaml:"bins,omitempty" validate:"gte=0"`
	Threshold *float64 `yaml:"threshold,omitempty"`
	Title     string   `yaml:"title,omitempty"`
	XLabel    string   `yaml:"xlabel,omitempty"`
	YLabel    string   `yaml:"ylabel,omitempty"`
	// Decimals is the precision of the value labels drawn above bars.
	Decimals int `yaml:"decimals,omitempty" validate:"gte=0,lte=6"`
}

// Filter selects the rows where Column Op Value holds.
type Filter struct {
	Name   string  `yaml:"name" validate:"required"`
	Column string  `yaml:"column" validate:"required"`
	Op     string  `yaml:"op" validate:"required,oneof=< <= > >= == !="`
	Value  float64 `yaml:"value"`
}

// Export writes the whole table with band columns appended.
type Export struct {
	Name  string   `yaml:"name" validate:"required"`
	Bands []string `yaml:"bands" validate:"required,min=1,dive,required"`
}

var validate = validator.New()

// DefaultSpec returns the embedded default report.
func DefaultSpec() *Spec {
	spec, err := ParseSpec(defaultSpecYAML)
	if err != nil {
		panic(fmt.Sprintf("report: embedded spec is invalid: %v", err))
	}
	return spec
}

// LoadSpec reads and validates a YAML report spec.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "report: read spec %s", path)
	}
	spec, err := ParseSpec(data)
	if err != nil {
		return nil, errors.Wrapf(err, "report: spec %s", path)
	}
	return spec, nil
}

// ParseSpec decodes and validates a YAML report spec.
func ParseSpec(data []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, errors.Wrap(err, "report: decode spec")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks struct tags and the references between sections.
func (s *Spec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(err, "report: invalid spec")
	}

	bands := make(map[string]bool, len(s.Bands))
	for _, b := range s.Bands {
		if bands[b.Name] {
			return errors.NewValidationError("bands", "duplicate band name", b.Name)
		}
		bands[b.Name] = true
	}

	names := map[string]bool{}
	for i, a := range s.Analyses {
		field := fmt.Sprintf("analyses[%d]", i)
		if names[a.Name] {
			return errors.NewValidationError(field+".name", "duplicate analysis name", a.Name)
		}
		names[a.Name] = true
		for _, by := range a.By {
			if !bands[by] {
				return errors.NewValidationError(field+".by", "unknown band", by)
			}
		}
		if len(a.By) > 0 && len(a.Metrics) == 0 {
			return errors.NewValidationError(field+".metrics", "grouped analysis needs metrics", a.Name)
		}
		for j, c := range a.Charts {
			if err := c.check(a, fmt.Sprintf("%s.charts[%d]", field, j)); err != nil {
				return err
			}
		}
	}

	for i, e := range s.Exports {
		for _, b := range e.Bands {
			if !bands[b] {
				return errors.NewValidationError(fmt.Sprintf("exports[%d].bands", i), "unknown band", b)
			}
		}
	}
	return nil
}

func (c Chart) check(a Analysis, field string) error {
	switch c.Type {
	case ChartBar, ChartGroupedBar:
		want := 1
		if c.Type == ChartGroupedBar {
			want = 2
		}
		if len(a.By) != want {
			return errors.NewValidationError(field+".type", fmt.Sprintf("%s needs %d bands", c.Type, want), len(a.By))
		}
		if !contains(a.Metrics, c.Metric) {
			return errors.NewValidationError(field+".metric", "metric is not computed by the analysis", c.Metric)
		}
	case ChartHistogram:
		if c.Column == "" {
			return errors.NewValidationError(field+".column", "histogram needs a column", c.Column)
		}
		if c.Bins <= 0 {
			return errors.NewValidationError(field+".bins", "must be positive", c.Bins)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
