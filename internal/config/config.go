package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Procurement ProcurementConfig `yaml:"procurement"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Logging     LoggingConfig     `yaml:"logging"`
	Security    SecurityConfig    `yaml:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string        `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
}

// ProcurementConfig holds the simulation knobs for the procurement core
type ProcurementConfig struct {
	// Provider is the provenance label on responses, e.g. "mock-sandbox".
	Provider string `yaml:"provider"`

	// Simulated upstream latency window in milliseconds.
	LatencyMinMs int `yaml:"latency_min_ms"`
	LatencyMaxMs int `yaml:"latency_max_ms"`

	// OverloadOneIn injects a simulated 429 on roughly one call in N.
	// Zero disables the simulation.
	OverloadOneIn int `yaml:"overload_one_in"`

	// CacheTTL bounds how long search responses are reused.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// Price jitter factor bounds applied to catalog base prices.
	JitterMin float64 `yaml:"jitter_min"`
	JitterMax float64 `yaml:"jitter_max"`

	// Seed fixes the simulation RNG. Zero seeds from the wall clock.
	Seed int64 `yaml:"seed"`
}

// CatalogConfig holds supplier-data configuration
type CatalogConfig struct {
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
	Output string `yaml:"output"` // "stdout", "stderr", or file path
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	RateLimiting RateLimitConfig  `yaml:"rate_limiting"`
	CORS         CORSConfig       `yaml:"cors"`
	Validation   ValidationConfig `yaml:"request_validation"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_minute"`
	BurstSize      int  `yaml:"burst_size"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// ValidationConfig holds request validation configuration
type ValidationConfig struct {
	Enabled        bool   `yaml:"enabled"`
	OpenAPISpec    string `yaml:"openapi_spec"`
	MaxRequestSize int64  `yaml:"max_request_size"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	config.setDefaults()

	if configPath != "" {
		if err := config.loadFromFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	config.loadFromEnv()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func (c *Config) setDefaults() {
	c.Server = ServerConfig{
		Port:           "8080",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	c.Procurement = ProcurementConfig{
		Provider:      "mock-sandbox",
		LatencyMinMs:  200,
		LatencyMaxMs:  600,
		OverloadOneIn: 20,
		CacheTTL:      24 * time.Hour,
		JitterMin:     0.99,
		JitterMax:     1.02,
	}

	c.Catalog = CatalogConfig{
		DataDir: "data",
	}

	c.Logging = LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}

	c.Security = SecurityConfig{
		RateLimiting: RateLimitConfig{
			Enabled:        false,
			RequestsPerMin: 60,
			BurstSize:      10,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key"},
		},
		Validation: ValidationConfig{
			Enabled:        false,
			OpenAPISpec:    "docs/openapi.yaml",
			MaxRequestSize: 1 << 20, // 1MB
		},
	}
}

// loadFromFile loads configuration from YAML file
func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PROCUREMENT_PORT"); port != "" {
		c.Server.Port = port
	}

	if dir := os.Getenv("PROCUREMENT_DATA_DIR"); dir != "" {
		c.Catalog.DataDir = dir
	}

	if provider := os.Getenv("PROCUREMENT_PROVIDER"); provider != "" {
		c.Procurement.Provider = provider
	}

	if seed := os.Getenv("PROCUREMENT_SEED"); seed != "" {
		if v, err := strconv.ParseInt(seed, 10, 64); err == nil {
			c.Procurement.Seed = v
		}
	}

	if ttl := os.Getenv("PROCUREMENT_CACHE_TTL"); ttl != "" {
		if v, err := time.ParseDuration(ttl); err == nil {
			c.Procurement.CacheTTL = v
		}
	}

	if level := os.Getenv("PROCUREMENT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	if format := os.Getenv("PROCUREMENT_LOG_FORMAT"); format != "" {
		c.Logging.Format = format
	}
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Catalog.DataDir == "" {
		return fmt.Errorf("catalog data_dir cannot be empty")
	}

	p := c.Procurement
	if p.LatencyMinMs < 0 || p.LatencyMaxMs < 0 {
		return fmt.Errorf("latency bounds must be non-negative")
	}
	if p.LatencyMinMs > p.LatencyMaxMs {
		return fmt.Errorf("latency_min_ms %d exceeds latency_max_ms %d", p.LatencyMinMs, p.LatencyMaxMs)
	}
	if p.OverloadOneIn < 0 {
		return fmt.Errorf("overload_one_in must be non-negative")
	}
	if p.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive")
	}
	if p.JitterMin <= 0 || p.JitterMax < p.JitterMin {
		return fmt.Errorf("invalid jitter bounds [%v, %v]", p.JitterMin, p.JitterMax)
	}

	if c.Security.RateLimiting.Enabled {
		if c.Security.RateLimiting.RequestsPerMin <= 0 {
			return fmt.Errorf("requests_per_minute must be positive when rate limiting is enabled")
		}
		if c.Security.RateLimiting.BurstSize <= 0 {
			return fmt.Errorf("burst_size must be positive when rate limiting is enabled")
		}
	}

	return nil
}

// SaveToFile saves the current configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
