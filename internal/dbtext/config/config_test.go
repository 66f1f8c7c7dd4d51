package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woralem/dbtext/internal/dbtext/ast"
	"github.com/woralem/dbtext/internal/dbtext/logger"
)

func TestDefaultConfigMatchesSpecDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ast.DefaultTableOptions(), cfg.TableOptions())
	assert.Equal(t, logger.INFO, cfg.LogLevelValue())
}

func TestLoadParsesYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dbtext.yaml")
	contents := `
data_dir: /var/lib/dbtext
log_level: DEBUG
default_table_options:
  allowed_types: [INT, VARCHAR]
  max_column_name_length: 32
  additional_name_chars: "."
  max_string_length: 1024
  gc_frequency_days: 14
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/dbtext", cfg.DataDir)
	assert.Equal(t, logger.DEBUG, cfg.LogLevelValue())

	opts := cfg.TableOptions()
	assert.True(t, opts.TypeAllowed(ast.INT))
	assert.True(t, opts.TypeAllowed(ast.VARCHAR))
	assert.False(t, opts.TypeAllowed(ast.BOOLEAN))
	assert.Equal(t, 32, opts.MaxColumnNameLength)
	assert.Equal(t, ".", opts.AdditionalNameChars)
	assert.Equal(t, int64(1024), opts.MaxStringLength)
	assert.Equal(t, 14, opts.GCFrequencyDays)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLogOutputsAddsRotatingFileWhenConfigured(t *testing.T) {
	cfg := Default()
	assert.Len(t, cfg.LogOutputs(), 1, "no log file configured means stdout only")

	cfg.LogFile = LogFileConfig{Path: filepath.Join(t.TempDir(), "dbtext.log"), MaxSizeMB: 10}
	outputs := cfg.LogOutputs()
	require.Len(t, outputs, 2)
	assert.IsType(t, &logger.JSONFormatter{}, outputs[1].Formatter)
}
