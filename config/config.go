// Package config loads devperf settings from defaults, an optional YAML
// file and DEVPERF_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/devperf/cleaning"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/YuminosukeSato/devperf/pkg/log"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. DEVPERF_SPLIT_SEED.
const EnvPrefix = "DEVPERF"

// Config is the full configuration of a run.
type Config struct {
	Data       Data                `mapstructure:"data" yaml:"data"`
	Target     string              `mapstructure:"target" yaml:"target" validate:"required"`
	Cleaning   cleaning.RepairSpec `mapstructure:"cleaning" yaml:"cleaning"`
	Split      Split               `mapstructure:"split" yaml:"split"`
	Evaluation Evaluation          `mapstructure:"evaluation" yaml:"evaluation"`
	Report     Report              `mapstructure:"report" yaml:"report"`
	Log        Log                 `mapstructure:"log" yaml:"log"`
	Metrics    Metrics             `mapstructure:"metrics" yaml:"metrics"`
}

// Data locates the input table.
type Data struct {
	Path string `mapstructure:"path" yaml:"path"`
	// Delimiter is a single character or "tab". Empty means sniff.
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter" validate:"omitempty,oneof=tab 0x2C ;"`
}

// Split configures the train/test partition.
type Split struct {
	TestSize float64 `mapstructure:"test_size" yaml:"test_size" validate:"gt=0,lt=1"`
	Seed     uint64  `mapstructure:"seed" yaml:"seed"`
}

// Evaluation configures model comparison.
type Evaluation struct {
	Parallel bool `mapstructure:"parallel" yaml:"parallel"`
}

// Report configures the reporter.
type Report struct {
	// Spec is a YAML report spec path. Empty uses the built-in report.
	Spec      string `mapstructure:"spec" yaml:"spec"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir" validate:"required"`
}

// Log configures the global logger.
type Log struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=auto json console cloud"`
}

// Metrics configures the Prometheus textfile export.
type Metrics struct {
	// File is the textfile path. Empty disables the export.
	File string `mapstructure:"file" yaml:"file"`
}

var validate = validator.New()

func setDefaults(v *viper.Viper) {
	spec := cleaning.DefaultSpec()
	v.SetDefault("data.path", "")
	v.SetDefault("data.delimiter", "")
	v.SetDefault("target", "Task_Success_Rate")
	v.SetDefault("cleaning.columns", spec.Columns)
	v.SetDefault("cleaning.lower_quantile", spec.LowerQuantile)
	v.SetDefault("cleaning.upper_quantile", spec.UpperQuantile)
	v.SetDefault("split.test_size", 0.2)
	v.SetDefault("split.seed", 42)
	v.SetDefault("evaluation.parallel", true)
	v.SetDefault("report.spec", "")
	v.SetDefault("report.output_dir", "out")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("metrics.file", "")
}

// Default returns the configuration with no file and no environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		panic(err)
	}
	return &c
}

// Load reads configuration. Precedence: env > config file > defaults.
// With an empty cfgFile, devperf.yaml is looked up in the working
// directory and in ~/.devperf; a missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "config: read %s", cfgFile)
		}
	} else {
		v.SetConfigName("devperf")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".devperf"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "config: read devperf.yaml")
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "config: unmarshal")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if used := v.ConfigFileUsed(); used != "" {
		log.GetLoggerWithName("config").Debug("Config file loaded", log.PathKey, used)
	}
	return &c, nil
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "config: invalid")
	}
	return nil
}

// DelimiterRune returns the configured field delimiter, or zero to sniff.
func (d Data) DelimiterRune() rune {
	switch d.Delimiter {
	case "":
		return 0
	case "tab":
		return '\t'
	}
	return []rune(d.Delimiter)[0]
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.LevelInfo
	}
	return level
}

// Save writes c as YAML to path, creating the parent directory.
func Save(c *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "config: create directory for %s", path)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "config: marshal yaml")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "config: write %s", path)
	}
	return nil
}
