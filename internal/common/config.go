package common

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Index backends
const (
	IndexBackendMemory   = "memory"
	IndexBackendSQLite   = "sqlite"
	IndexBackendPostgres = "postgres"
	IndexBackendRedis    = "redis"
)

// Config holds all application configuration
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Server    ServerConfig    `yaml:"server"`
	OCR       OCRConfig       `yaml:"ocr"`
	LLM       LLMConfig       `yaml:"llm"`
	Index     IndexConfig     `yaml:"index"`
	Database  DatabaseConfig  `yaml:"database"`
	Processor ProcessorConfig `yaml:"processor"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
	WatchDir string `yaml:"watch_dir"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract     string        `yaml:"tesseract"`
	TesseractLang string        `yaml:"tesseract_lang"`
	TessdataDir   string        `yaml:"tessdata_dir"`
	Pdftoppm      string        `yaml:"pdftoppm"`
	DPI           int           `yaml:"dpi"`
	PDFFallback   bool          `yaml:"pdf_fallback"`
	HeicConverter string        `yaml:"heic_converter"`
	Timeout       time.Duration `yaml:"timeout"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	BaseURL             string        `yaml:"base_url"`
	APIKey              string        `yaml:"api_key"`
	Model               string        `yaml:"model"`
	EmbeddingModel      string        `yaml:"embedding_model"`
	Timeout             time.Duration `yaml:"timeout"`
	ExtractionMaxTokens int           `yaml:"extraction_max_tokens"`
	SummaryMaxTokens    int           `yaml:"summary_max_tokens"`
	SummaryTemperature  float32       `yaml:"summary_temperature"`
	MaxInputChars       int           `yaml:"max_input_chars"`
	RepairAttempts      int           `yaml:"repair_attempts"`
}

// IndexConfig selects and configures the similarity index store.
type IndexConfig struct {
	Backend          string        `yaml:"backend"`
	SQLitePath       string        `yaml:"sqlite_path"`
	RedisAddr        string        `yaml:"redis_addr"`
	RedisKey         string        `yaml:"redis_key"`
	EmbeddingTimeout time.Duration `yaml:"embedding_timeout"`
	DefaultLimit     int           `yaml:"default_limit"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ProcessorConfig holds pipeline policy switches.
type ProcessorConfig struct {
	StrictClassification bool `yaml:"strict_classification"`
}

// LoadConfig loads configuration from an optional .env file, environment variables
// and, when MEDOCS_CONFIG is set, a YAML file whose keys override the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
			WatchDir: getEnv("WATCH_DIR", ""),
		},
		OCR: OCRConfig{
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			Pdftoppm:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			PDFFallback:   getEnvAsBool("OCR_PDF_FALLBACK", false),
			HeicConverter: getEnv("HEIC_CONVERTER", ""),
			Timeout:       getEnvAsDuration("OCR_TIMEOUT", 120*time.Second),
		},
		LLM: LLMConfig{
			BaseURL:             getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			Model:               getEnv("LLM_MODEL", "gpt-4o-mini"),
			EmbeddingModel:      getEnv("LLM_EMBEDDING_MODEL", "text-embedding-3-small"),
			Timeout:             getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			ExtractionMaxTokens: getEnvAsInt("LLM_EXTRACTION_MAX_TOKENS", 2000),
			SummaryMaxTokens:    getEnvAsInt("LLM_SUMMARY_MAX_TOKENS", 150),
			SummaryTemperature:  getEnvAsFloat32("LLM_SUMMARY_TEMPERATURE", 0.3),
			MaxInputChars:       getEnvAsInt("LLM_MAX_INPUT_CHARS", 12000),
			RepairAttempts:      getEnvAsInt("LLM_REPAIR_ATTEMPTS", 1),
		},
		Index: IndexConfig{
			Backend:          strings.ToLower(getEnv("INDEX_BACKEND", IndexBackendMemory)),
			SQLitePath:       getEnv("INDEX_SQLITE_PATH", "medocs-index.db"),
			RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
			RedisKey:         getEnv("REDIS_KEY", "medocs:index"),
			EmbeddingTimeout: getEnvAsDuration("EMBEDDING_TIMEOUT", 30*time.Second),
			DefaultLimit:     getEnvAsInt("SEARCH_DEFAULT_LIMIT", 5),
		},
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Processor: ProcessorConfig{
			StrictClassification: getEnvAsBool("CLASSIFY_STRICT", false),
		},
	}

	if path := getEnv("MEDOCS_CONFIG", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// applyFile decodes a YAML file over cfg; keys absent from the file keep their values.
func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return NewAppError(CodeConfig, "read config file", ErrInvalidInput).WithCause(err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return NewAppError(CodeConfig, fmt.Sprintf("parse config file %s", path), ErrInvalidInput).WithCause(err)
	}
	c.Index.Backend = strings.ToLower(c.Index.Backend)
	return nil
}

// SlogLevel converts LogLevel into a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError(CodeConfig, "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.LLM.Model == "" || c.LLM.EmbeddingModel == "" {
		return NewAppError(CodeConfig, "LLM_MODEL and LLM_EMBEDDING_MODEL are required", ErrInvalidInput)
	}
	if c.LLM.RepairAttempts < 0 || c.LLM.RepairAttempts > 1 {
		return NewAppError(CodeConfig, "LLM_REPAIR_ATTEMPTS must be 0 or 1", ErrInvalidInput)
	}
	if c.Index.DefaultLimit <= 0 {
		return NewAppError(CodeConfig, "SEARCH_DEFAULT_LIMIT must be positive", ErrInvalidInput)
	}
	switch c.Index.Backend {
	case IndexBackendMemory:
	case IndexBackendSQLite:
		if c.Index.SQLitePath == "" {
			return NewAppError(CodeConfig, "INDEX_SQLITE_PATH is required for the sqlite backend", ErrInvalidInput)
		}
	case IndexBackendPostgres:
		if c.Database.DSN == "" {
			return NewAppError(CodeConfig, "DB_URL is required for the postgres backend", ErrInvalidInput)
		}
	case IndexBackendRedis:
		if c.Index.RedisAddr == "" {
			return NewAppError(CodeConfig, "REDIS_ADDR is required for the redis backend", ErrInvalidInput)
		}
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unknown INDEX_BACKEND %q", c.Index.Backend), ErrInvalidInput)
	}
	return nil
}
