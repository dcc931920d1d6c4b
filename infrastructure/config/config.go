package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tablegrid/domain/services"
)

// Store drivers
const (
	DriverDynamoDB = "dynamodb"
	DriverLocal    = "local"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string
	ServiceName   string

	// AWS configuration
	AWSRegion        string
	TableName        string
	DynamoDBEndpoint string
	EventBusName     string

	// Backing store
	StoreDriver  string
	LocalDBPath  string // empty keeps the local store in memory
	ScanPageSize int
	CacheTTL     time.Duration

	// Lambda configuration
	IsLambda bool

	// Password gate and sessions
	GatePassword       string
	GatePasswordFile   string
	SessionSecret      string
	SessionTTL         time.Duration
	LoginRatePerMinute int

	// Reconciliation
	BlankRowPolicy      services.BlankRowPolicy
	UnsetRemovedColumns bool

	// Logging
	LogLevel string

	// Feature flags
	EnableMetrics  bool
	EnableXRay     bool
	OTLPEndpoint   string
	EnableCORS     bool
	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables, falling back to
// the YAML file named by CONFIG_FILE and then to defaults
func LoadConfig() (*Config, error) {
	src, err := newSource(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	policy, err := services.ParseBlankRowPolicy(src.getEnv("BLANK_ROW_POLICY", string(services.BlankRowsModify)))
	if err != nil {
		return nil, fmt.Errorf("BLANK_ROW_POLICY: %w", err)
	}

	cfg := &Config{
		ServerAddress: src.getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   src.getEnv("ENVIRONMENT", "development"),
		ServiceName:   src.getEnv("SERVICE_NAME", "tablegrid"),

		AWSRegion:        src.getEnv("AWS_REGION", "us-west-2"),
		TableName:        src.getEnv("TABLE_NAME", src.getEnv("DYNAMODB_TABLE", "")),
		DynamoDBEndpoint: src.getEnv("DYNAMODB_ENDPOINT", ""),
		EventBusName:     src.getEnv("EVENT_BUS_NAME", ""),

		StoreDriver:  strings.ToLower(src.getEnv("STORE_DRIVER", DriverDynamoDB)),
		LocalDBPath:  src.getEnv("LOCAL_DB_PATH", ""),
		ScanPageSize: src.getEnvInt("SCAN_PAGE_SIZE", 0),
		CacheTTL:     src.getEnvDuration("CACHE_TTL", 60*time.Second),

		IsLambda: src.getEnv("AWS_LAMBDA_FUNCTION_NAME", "") != "",

		GatePassword:       src.getEnv("GATE_PASSWORD", ""),
		GatePasswordFile:   src.getEnv("GATE_PASSWORD_FILE", ""),
		SessionSecret:      src.getEnv("SESSION_SECRET", ""),
		SessionTTL:         src.getEnvDuration("SESSION_TTL", 12*time.Hour),
		LoginRatePerMinute: src.getEnvInt("LOGIN_RATE_PER_MINUTE", 10),

		BlankRowPolicy:      policy,
		UnsetRemovedColumns: src.getEnvBool("UNSET_REMOVED_COLUMNS", false),

		LogLevel:       src.getEnv("LOG_LEVEL", "info"),
		EnableMetrics:  src.getEnvBool("ENABLE_METRICS", false),
		EnableXRay:     src.getEnvBool("ENABLE_XRAY", false),
		OTLPEndpoint:   src.getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		EnableCORS:     src.getEnvBool("ENABLE_CORS", false),
		AllowedOrigins: splitList(src.getEnv("ALLOWED_ORIGINS", "")),
	}

	if cfg.TableName == "" && cfg.StoreDriver == DriverLocal {
		cfg.TableName = "local"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverDynamoDB, DriverLocal:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverDynamoDB, DriverLocal, c.StoreDriver)
	}
	if c.StoreDriver == DriverDynamoDB && c.TableName == "" {
		return fmt.Errorf("TABLE_NAME is required")
	}
	if c.GatePassword == "" && c.GatePasswordFile == "" {
		return fmt.Errorf("GATE_PASSWORD or GATE_PASSWORD_FILE is required")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative")
	}
	if c.ScanPageSize < 0 {
		return fmt.Errorf("SCAN_PAGE_SIZE must not be negative")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	if c.IsProduction() {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in production")
		}
		if c.StoreDriver != DriverDynamoDB {
			return fmt.Errorf("STORE_DRIVER must be %q in production", DriverDynamoDB)
		}
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// source resolves keys from the environment first, then the config file
type source struct {
	file map[string]string
}

func (s source) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return s.file[key]
}

func (s source) getEnv(key, defaultValue string) string {
	if value := s.lookup(key); value != "" {
		return value
	}
	return defaultValue
}

func (s source) getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(s.lookup(key))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func (s source) getEnvInt(key string, defaultValue int) int {
	if value := s.lookup(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90")
func (s source) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := s.lookup(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
