package common

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	OCR        OCRConfig
	Extraction ExtractionConfig
	Metrics    MetricsConfig
}

// DatabaseConfig holds the profile store configuration
type DatabaseConfig struct {
	Driver           string // postgres | sqlite
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// OCRConfig holds rasterisation and recognition settings
type OCRConfig struct {
	Engine         string // tesseract | gosseract | azure
	PdftoppmBin    string
	TesseractBin   string
	TessdataDir    string
	Languages      []string
	PSM            int
	DPI            int
	Preprocess     bool
	AzureEndpoint  string
	AzureKey       string
	RequestTimeout time.Duration
}

// ExtractionConfig holds orchestrator settings
type ExtractionConfig struct {
	MinExpected    int
	DefaultProfile string
	Currency       string
	RowTolerance   float64
	CacheEntries   int
}

type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// LoadConfig loads a .env file when present and then reads environment variables.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, NewAppError(CodeConfig, "load "+f, err)
		}
	}

	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "sqlite"),
			DSN:              getEnv("DB_URL", "file:installments.db?_pragma=busy_timeout(5000)"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		OCR: OCRConfig{
			Engine:         getEnv("OCR_ENGINE", "tesseract"),
			PdftoppmBin:    getEnv("PDFTOPPM_BIN", "pdftoppm"),
			TesseractBin:   getEnv("TESSERACT_BIN", "tesseract"),
			TessdataDir:    getEnv("TESSDATA_PREFIX", ""),
			Languages:      getEnvAsList("OCR_LANGUAGES", []string{"ita", "eng"}),
			PSM:            getEnvAsInt("OCR_PSM", 6),
			DPI:            getEnvAsInt("OCR_DPI", 300),
			Preprocess:     getEnvAsBool("OCR_PREPROCESS", true),
			AzureEndpoint:  getEnv("AZURE_VISION_ENDPOINT", ""),
			AzureKey:       getEnv("AZURE_VISION_KEY", ""),
			RequestTimeout: getEnvAsDuration("OCR_TIMEOUT", 2*time.Minute),
		},
		Extraction: ExtractionConfig{
			MinExpected:    getEnvAsInt("EXTRACT_MIN_EXPECTED", 10),
			DefaultProfile: getEnv("EXTRACT_PROFILE", ""),
			Currency:       getEnv("EXTRACT_CURRENCY", "EUR"),
			RowTolerance:   getEnvAsFloat("EXTRACT_ROW_TOLERANCE", 0),
			CacheEntries:   getEnvAsInt("EXTRACT_CACHE_ENTRIES", 64),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", false),
			Addr:    getEnv("METRICS_ADDR", ":9090"),
		},
	}, nil
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

// getEnvAsList splits on '+' or ',' so tesseract style "ita+eng" works too.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == '+' || r == ',' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return NewAppError(CodeConfig, "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError(CodeConfig, "DB_URL is required", ErrInvalidInput)
	}
	switch c.OCR.Engine {
	case "tesseract", "gosseract":
	case "azure":
		if c.OCR.AzureEndpoint == "" || c.OCR.AzureKey == "" {
			return NewAppError(CodeConfig, "AZURE_VISION_ENDPOINT and AZURE_VISION_KEY are required for the azure engine", ErrInvalidInput)
		}
	default:
		return NewAppError(CodeConfig, "OCR_ENGINE must be tesseract, gosseract or azure", ErrInvalidInput)
	}
	if c.OCR.DPI < 72 || c.OCR.DPI > 1200 {
		return NewAppError(CodeConfig, "OCR_DPI must be between 72 and 1200", ErrInvalidInput)
	}
	if c.Extraction.MinExpected < 1 {
		return NewAppError(CodeConfig, "EXTRACT_MIN_EXPECTED must be positive", ErrInvalidInput)
	}
	if verr := CurrencyCode("EXTRACT_CURRENCY", c.Extraction.Currency); verr != nil {
		return NewAppError(CodeConfig, verr.Error(), ErrInvalidInput)
	}
	return nil
}
