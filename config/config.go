package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	RoleGraph   RoleGraphConfig
	Embedding   EmbeddingConfig
	Generation  GenerationConfig
	Retrieval   RetrievalConfig
	Audit       AuditConfig
	Environment string
	LogLevel    string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration for the chunk store and
// audit sink. When ConnectionString (from DATABASE_URL) is set, it takes
// precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// AuthConfig holds token validation configuration
type AuthConfig struct {
	// SigningKey is the shared HMAC key the identity provider signs with.
	SigningKey string
}

// RoleGraphConfig points at the role graph definition file
type RoleGraphConfig struct {
	Path string
}

// EmbeddingConfig holds embedding service configuration
type EmbeddingConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// GenerationConfig holds generation service configuration
type GenerationConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// RetrievalConfig tunes search and ranking
type RetrievalConfig struct {
	TopK             int
	OverFetch        int
	DedupThreshold   float64
	DedupTieBreak    string // "similarity" or "recency"
	SimilarityFloor  float64
	RetrievalTimeout time.Duration
}

// AuditConfig tunes the async audit recorder
type AuditConfig struct {
	BufferSize  int
	WorkerCount int
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: loadDatabaseConfig(),
		Auth: AuthConfig{
			SigningKey: getEnv("AUTH_SIGNING_KEY", ""),
		},
		RoleGraph: RoleGraphConfig{
			Path: getEnv("ROLE_GRAPH_PATH", "config/roles.yaml"),
		},
		Embedding: EmbeddingConfig{
			BaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8001/v1"),
			APIKey:    getEnv("EMBEDDING_API_KEY", ""),
			Model:     getEnv("EMBEDDING_MODEL", "all-minilm-l6-v2"),
			Dimension: getEnvAsInt("EMBEDDING_DIMENSION", 384),
			Timeout:   getEnvAsDuration("EMBEDDING_TIMEOUT", 10*time.Second),
		},
		Generation: GenerationConfig{
			BaseURL:     getEnv("GENERATION_BASE_URL", "http://localhost:8002/v1"),
			APIKey:      getEnv("GENERATION_API_KEY", ""),
			Model:       getEnv("GENERATION_MODEL", "mistral"),
			MaxTokens:   getEnvAsInt("GENERATION_MAX_TOKENS", 1024),
			Temperature: getEnvAsFloat("GENERATION_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("GENERATION_TIMEOUT", 30*time.Second),
		},
		Retrieval: RetrievalConfig{
			TopK:             getEnvAsInt("RETRIEVAL_TOP_K", 5),
			OverFetch:        getEnvAsInt("RETRIEVAL_OVER_FETCH", 3),
			DedupThreshold:   getEnvAsFloat("RERANK_DEDUP_THRESHOLD", 0.9),
			DedupTieBreak:    getEnv("RERANK_DEDUP_TIE_BREAK", "similarity"),
			SimilarityFloor:  getEnvAsFloat("CONFIDENCE_SIMILARITY_FLOOR", 0.25),
			RetrievalTimeout: getEnvAsDuration("RETRIEVAL_TIMEOUT", 10*time.Second),
		},
		Audit: AuditConfig{
			BufferSize:  getEnvAsInt("AUDIT_BUFFER_SIZE", 10000),
			WorkerCount: getEnvAsInt("AUDIT_WORKER_COUNT", 4),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.IsProduction() && c.Auth.SigningKey == "" {
		return fmt.Errorf("auth signing key is required in production")
	}

	if c.RoleGraph.Path == "" {
		return fmt.Errorf("role graph path is required")
	}

	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top-k must be positive")
	}
	if c.Retrieval.OverFetch < 2 {
		return fmt.Errorf("retrieval over-fetch multiplier must be at least 2")
	}
	switch c.Retrieval.DedupTieBreak {
	case "similarity", "recency":
	default:
		return fmt.Errorf("dedup tie-break must be similarity or recency")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password).
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "dev"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "knowledge"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
