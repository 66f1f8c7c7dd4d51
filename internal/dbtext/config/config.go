// Package config loads the startup configuration for a dbtext process:
// per-database default TableOptions, the on-disk data directory, and
// logging level, from an optional YAML file (SPEC_FULL.md §2
// "Configuration"). The default TableOptions are parsed and exposed by
// Config.TableOptions, but Bootstrap does not pass them on: CREATE TABLE
// starts from ast.DefaultTableOptions(). The teacher repo has no config file of its own;
// gopkg.in/yaml.v3 is already a transitive dependency of its go.mod
// (pulled in under testify's closure), so loading real config through
// it keeps the dependency exercised directly instead of only
// transitively.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/woralem/dbtext/internal/dbtext/ast"
	"github.com/woralem/dbtext/internal/dbtext/dberr"
	"github.com/woralem/dbtext/internal/dbtext/logger"
)

// LogFileConfig configures optional rotation of the engine's log file,
// the YAML-facing shape of logger.RotatingFileConfig (teacher's
// monitoring.LogConfig rotation knobs).
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// TableOptionsConfig is the YAML-facing shape of ast.TableOptions: field
// names follow the file format's snake_case convention and are mapped
// onto ast.TableOptions explicitly, rather than tagging ast.TableOptions
// itself, so the language package stays free of a serialization-format
// dependency.
type TableOptionsConfig struct {
	AllowedTypes        []string `yaml:"allowed_types"`
	MaxColumnNameLength int      `yaml:"max_column_name_length"`
	AdditionalNameChars string   `yaml:"additional_name_chars"`
	MaxStringLength     int64    `yaml:"max_string_length"`
	GCFrequencyDays     int      `yaml:"gc_frequency_days"`
}

// Config is the top-level YAML document loaded at startup.
type Config struct {
	DataDir          string             `yaml:"data_dir"`
	LogLevel         string             `yaml:"log_level"`
	LogFile          LogFileConfig      `yaml:"log_file"`
	DefaultTableOpts TableOptionsConfig `yaml:"default_table_options"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		LogLevel: "INFO",
		DefaultTableOpts: TableOptionsConfig{
			MaxColumnNameLength: 16,
			MaxStringLength:     65536,
			GCFrequencyDays:     7,
		},
	}
}

// Load reads and parses a YAML config file at path.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, dberr.Wrap(dberr.OptionError, "failed to read config file", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, dberr.Wrap(dberr.OptionError, "failed to parse config file", err)
	}
	return cfg, nil
}

// TableOptions converts the YAML-facing options into ast.TableOptions,
// applying spec.md §3 defaults for any zero field.
func (c Config) TableOptions() ast.TableOptions {
	opts := ast.DefaultTableOptions()
	o := c.DefaultTableOpts
	if len(o.AllowedTypes) > 0 {
		allowed := make(map[ast.DataType]bool, len(o.AllowedTypes))
		for _, name := range o.AllowedTypes {
			allowed[ast.ParseDataType(name)] = true
		}
		opts.AllowedTypes = allowed
	}
	if o.MaxColumnNameLength > 0 {
		opts.MaxColumnNameLength = o.MaxColumnNameLength
	}
	opts.AdditionalNameChars = o.AdditionalNameChars
	if o.MaxStringLength > 0 {
		opts.MaxStringLength = o.MaxStringLength
	}
	if o.GCFrequencyDays > 0 {
		opts.GCFrequencyDays = o.GCFrequencyDays
	}
	return opts
}

// LogLevelValue maps the config's textual log level to logger.Level,
// defaulting to INFO for an empty or unrecognized value.
func (c Config) LogLevelValue() logger.Level {
	switch c.LogLevel {
	case "DEBUG":
		return logger.DEBUG
	case "WARN":
		return logger.WARN
	case "ERROR":
		return logger.ERROR
	case "FATAL":
		return logger.FATAL
	default:
		return logger.INFO
	}
}

// LogOutputs builds the logger.Output set for this config: text to
// stdout always, plus a rotating file output when LogFile.Path is set.
func (c Config) LogOutputs() []logger.Output {
	outputs := []logger.Output{
		{Writer: os.Stdout, Formatter: &logger.TextFormatter{TimeFormat: "2006-01-02 15:04:05"}},
	}
	if c.LogFile.Path != "" {
		w := logger.RotatingFileWriter(logger.RotatingFileConfig{
			Path:       c.LogFile.Path,
			MaxSizeMB:  c.LogFile.MaxSizeMB,
			MaxBackups: c.LogFile.MaxBackups,
			MaxAgeDays: c.LogFile.MaxAgeDays,
			Compress:   c.LogFile.Compress,
		})
		outputs = append(outputs, logger.Output{Writer: w, Formatter: &logger.JSONFormatter{TimeFormat: "2006-01-02T15:04:05Z07:00"}})
	}
	return outputs
}
