package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MEDOCS_CONFIG", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "eng", cfg.OCR.TesseractLang)
	assert.Equal(t, IndexBackendMemory, cfg.Index.Backend)
	assert.Equal(t, 5, cfg.Index.DefaultLimit)
	assert.Equal(t, 1, cfg.LLM.RepairAttempts)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.False(t, cfg.Processor.StrictClassification)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MEDOCS_CONFIG", "")
	t.Setenv("INDEX_BACKEND", "SQLite")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("CLASSIFY_STRICT", "true")
	t.Setenv("LLM_SUMMARY_TEMPERATURE", "0.5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, IndexBackendSQLite, cfg.Index.Backend)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.True(t, cfg.Processor.StrictClassification)
	assert.InDelta(t, 0.5, cfg.LLM.SummaryTemperature, 1e-6)
}

func TestLoadConfig_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "medocs.yaml")
	content := `
llm:
  model: gpt-4o
  timeout: 15s
index:
  backend: redis
  default_limit: 3
ocr:
  pdf_fallback: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LLM_EMBEDDING_MODEL", "embed-x")
	t.Setenv("MEDOCS_CONFIG", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "embed-x", cfg.LLM.EmbeddingModel, "keys absent from the file keep env values")
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, IndexBackendRedis, cfg.Index.Backend)
	assert.Equal(t, 3, cfg.Index.DefaultLimit)
	assert.True(t, cfg.OCR.PDFFallback)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unclosed"), 0o600))
	t.Setenv("MEDOCS_CONFIG", path)

	_, err := LoadConfig()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			LLM:   LLMConfig{APIKey: "k", Model: "m", EmbeddingModel: "e", RepairAttempts: 1},
			Index: IndexConfig{Backend: IndexBackendMemory, DefaultLimit: 5},
		}
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.LLM.APIKey = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)

	cfg = base()
	cfg.LLM.RepairAttempts = 2
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Index.Backend = IndexBackendPostgres
	assert.Error(t, cfg.Validate())
	cfg.Database.DSN = "postgres://localhost/medocs"
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Index.Backend = "faiss"
	assert.Error(t, cfg.Validate())
}

func TestSlogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	assert.Equal(t, "DEBUG", cfg.SlogLevel().String())
	cfg.LogLevel = "nonsense"
	assert.Equal(t, "INFO", cfg.SlogLevel().String())
}
