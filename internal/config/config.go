package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the scanguard configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Detector    DetectorConfig    `yaml:"detector"`
	Scan        ScanConfig        `yaml:"scan"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Model       ModelConfig       `yaml:"model"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int64 `yaml:"max_body_bytes"`
}

// DatabaseConfig holds key-value store settings. Empty addrs runs without
// scan cache, credential refs and persisted quota.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a store is configured.
func (d DatabaseConfig) Enabled() bool { return len(d.Addrs) > 0 }

// DetectorConfig holds secret detector settings.
type DetectorConfig struct {
	BaseURL            string      `yaml:"base_url"`
	APIKey             string      `yaml:"api_key"`
	APIKeyRef          string      `yaml:"api_key_ref"` // credential name in the store
	TimeoutSec         int         `yaml:"timeout_sec"`
	MaxDocumentBytes   int         `yaml:"max_document_bytes"`
	MaxDocuments       int         `yaml:"max_documents"`
	OffsetUnit         string      `yaml:"offset_unit"`          // byte (default) | rune
	DailyDocumentQuota int64       `yaml:"daily_document_quota"` // 0 = unlimited
	QuotaAction        string      `yaml:"quota_action"`         // "reject" (default) | "warn"
	Retry              RetryConfig `yaml:"retry"`
}

// RetryConfig holds detector retry settings. Attempts counts the first call.
type RetryConfig struct {
	Attempts  int `yaml:"attempts"`
	BackoffMS int `yaml:"backoff_ms"`
}

// ScanConfig holds pipeline settings.
type ScanConfig struct {
	Marker        string `yaml:"marker"`
	Concurrency   int    `yaml:"concurrency"`
	MaxBatchItems int    `yaml:"max_batch_items"`
	CacheTTLSec   int    `yaml:"cache_ttl_sec"` // 0 disables the scan result cache
}

// CredentialsConfig holds credential cache settings.
type CredentialsConfig struct {
	CacheTTLSec int `yaml:"cache_ttl_sec"`
	CacheSize   int `yaml:"cache_size"`
}

// ModelConfig holds the chat model provider. Empty provider disables the chat endpoint.
type ModelConfig struct {
	Provider string `yaml:"provider"` // openai | gemini
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
}

// ObjectStoreConfig holds S3-compatible storage settings. Empty endpoint disables object scans.
type ObjectStoreConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	UseSSL         bool   `yaml:"use_ssl"`
	MaxObjectBytes int64  `yaml:"max_object_bytes"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 16 << 20
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Detector.TimeoutSec <= 0 {
		c.Detector.TimeoutSec = 30
	}
	if c.Detector.MaxDocumentBytes <= 0 {
		c.Detector.MaxDocumentBytes = 1 << 20
	}
	if c.Detector.MaxDocuments <= 0 {
		c.Detector.MaxDocuments = 20
	}
	if c.Detector.OffsetUnit == "" {
		c.Detector.OffsetUnit = "byte"
	}
	if c.Detector.QuotaAction == "" {
		c.Detector.QuotaAction = "reject"
	}
	if c.Detector.Retry.Attempts <= 0 {
		c.Detector.Retry.Attempts = 1
	}
	if c.Scan.Marker == "" {
		c.Scan.Marker = "REDACTED"
	}
	if c.Scan.Concurrency <= 0 {
		c.Scan.Concurrency = 8
	}
	if c.Scan.MaxBatchItems <= 0 {
		c.Scan.MaxBatchItems = 100
	}
	if c.Credentials.CacheTTLSec <= 0 {
		c.Credentials.CacheTTLSec = 300
	}
	if c.Credentials.CacheSize <= 0 {
		c.Credentials.CacheSize = 16
	}
	if c.ObjectStore.MaxObjectBytes <= 0 {
		c.ObjectStore.MaxObjectBytes = 8 << 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Detector.BaseURL == "" {
		return fmt.Errorf("detector.base_url is required")
	}
	if c.Detector.APIKey == "" && c.Detector.APIKeyRef == "" {
		return fmt.Errorf("detector.api_key or detector.api_key_ref is required")
	}
	if c.Detector.APIKeyRef != "" && !c.Database.Enabled() {
		return fmt.Errorf("detector.api_key_ref requires database.addrs")
	}
	switch c.Detector.OffsetUnit {
	case "byte", "rune":
	default:
		return fmt.Errorf("detector.offset_unit must be \"byte\" or \"rune\", got %q", c.Detector.OffsetUnit)
	}
	switch c.Detector.QuotaAction {
	case "warn", "reject":
	default:
		return fmt.Errorf("detector.quota_action must be \"warn\" or \"reject\", got %q", c.Detector.QuotaAction)
	}
	if c.Detector.Retry.BackoffMS < 0 {
		return fmt.Errorf("detector.retry.backoff_ms must not be negative, got %d", c.Detector.Retry.BackoffMS)
	}
	switch c.Model.Provider {
	case "", "openai", "gemini":
	default:
		return fmt.Errorf("model.provider must be \"openai\" or \"gemini\", got %q", c.Model.Provider)
	}
	if c.Model.Provider != "" && c.Model.Model == "" {
		return fmt.Errorf("model.model is required when model.provider is set")
	}
	if c.ObjectStore.Endpoint != "" && (c.ObjectStore.AccessKey == "" || c.ObjectStore.SecretKey == "") {
		return fmt.Errorf("object_store.access_key and object_store.secret_key are required")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
