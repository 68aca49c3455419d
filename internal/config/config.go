// Package config provides application configuration management using koanf
package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `koanf:"server"`

	// Storage paths
	Paths PathsConfig `koanf:"paths"`

	// External services
	Services ServicesConfig `koanf:"services"`

	// Ingestion and retrieval tuning
	Ingest    IngestConfig    `koanf:"ingest"`
	Retrieval RetrievalConfig `koanf:"retrieval"`

	// Security settings
	Security SecurityConfig `koanf:"security"`

	// Application settings
	App AppConfig `koanf:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	ReadTimeout  int    `koanf:"read_timeout"`  // seconds
	WriteTimeout int    `koanf:"write_timeout"` // seconds
}

// PathsConfig holds the filesystem layout: one document directory and one
// index database per tenant under the respective roots.
type PathsConfig struct {
	IndexRoot string `koanf:"index_root"`
	DocsRoot  string `koanf:"docs_root"`
	UsageDB   string `koanf:"usage_db"`
}

// ServicesConfig holds external service configuration
type ServicesConfig struct {
	// Provider selects the model backend: "ollama" or "gemini".
	Provider string       `koanf:"provider"`
	Ollama   OllamaConfig `koanf:"ollama"`
	Gemini   GeminiConfig `koanf:"gemini"`
}

// OllamaConfig holds Ollama service configuration
type OllamaConfig struct {
	BaseURL        string `koanf:"base_url"`
	EmbeddingModel string `koanf:"embedding_model"`
	EconomyModel   string `koanf:"economy_model"`
	PremiumModel   string `koanf:"premium_model"`
	Timeout        int    `koanf:"timeout"` // seconds
}

// GeminiConfig holds Google Gemini service configuration
type GeminiConfig struct {
	APIKey         string `koanf:"api_key"`
	EmbeddingModel string `koanf:"embedding_model"`
	EconomyModel   string `koanf:"economy_model"`
	PremiumModel   string `koanf:"premium_model"`
}

// IngestConfig holds chunking parameters. Chunks must be small enough to keep
// retrieval precise but large enough to keep a clause in one piece.
type IngestConfig struct {
	ChunkSize    int `koanf:"chunk_size"`
	ChunkOverlap int `koanf:"chunk_overlap"`
}

// RetrievalConfig holds similarity search parameters.
type RetrievalConfig struct {
	TopK int `koanf:"top_k"`
	// MaxDistance is the relevance cutoff: hits with a greater cosine
	// distance are dropped rather than fed to the model.
	MaxDistance float64 `koanf:"max_distance"`
}

// SecurityConfig holds security-related settings
type SecurityConfig struct {
	AdminToken string `koanf:"admin_token"`
}

// AppConfig holds general application settings
type AppConfig struct {
	Environment string `koanf:"environment"` // "development", "staging", "production"
	LogLevel    string `koanf:"log_level"`   // "debug", "info", "warn", "error"
}

// Load loads configuration from multiple sources with precedence:
// 1. config.yaml (if exists)
// 2. config.json (if exists)
// 3. Environment variables (highest precedence)
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	k := koanf.New(".")

	// Set defaults
	setDefaults(k)

	// Load from config files (optional)
	loadConfigFiles(k)

	// Load from environment variables (highest precedence)
	// Use simple prefix matching for now
	if err := k.Load(env.Provider(".", env.Opt{}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	// Unmarshal into config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(k *koanf.Koanf) {
	defaults := map[string]interface{}{
		// Server defaults
		"server.host":          "localhost",
		"server.port":          8080,
		"server.read_timeout":  30,
		"server.write_timeout": 60,

		// Path defaults
		"paths.index_root": "index",
		"paths.docs_root":  "docs",
		"paths.usage_db":   "usage.db",

		// Services defaults
		"services.provider":               "ollama",
		"services.ollama.base_url":        "http://localhost:11434",
		"services.ollama.embedding_model": "nomic-embed-text",
		"services.ollama.economy_model":   "llama3",
		"services.ollama.premium_model":   "llama3:70b",
		"services.ollama.timeout":         60,
		"services.gemini.embedding_model": "text-embedding-004",
		"services.gemini.economy_model":   "gemini-1.5-flash-latest",
		"services.gemini.premium_model":   "gemini-1.5-pro-latest",

		// Ingest defaults
		"ingest.chunk_size":    1000,
		"ingest.chunk_overlap": 200,

		// Retrieval defaults
		"retrieval.top_k":        3,
		"retrieval.max_distance": 0.75,

		// App defaults
		"app.environment": "development",
		"app.log_level":   "info",
	}

	for key, value := range defaults {
		_ = k.Set(key, value) // Ignore error for setting defaults
	}
}

// loadConfigFiles loads configuration from files
func loadConfigFiles(k *koanf.Koanf) {
	// Try to load YAML config
	if _, err := os.Stat("config.yaml"); err == nil {
		if err := k.Load(file.Provider("config.yaml"), yaml.Parser()); err != nil {
			log.Printf("Warning: failed to load config.yaml: %v", err)
		}
	}

	// Try to load JSON config
	if _, err := os.Stat("config.json"); err == nil {
		if err := k.Load(file.Provider("config.json"), json.Parser()); err != nil {
			log.Printf("Warning: failed to load config.json: %v", err)
		}
	}
}

// Validate validates the configuration
func Validate(cfg *Config) error {
	if cfg.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest chunk size must be positive")
	}
	if cfg.Ingest.ChunkOverlap < 0 || cfg.Ingest.ChunkOverlap >= cfg.Ingest.ChunkSize {
		return fmt.Errorf("chunk overlap must be smaller than chunk size")
	}

	if cfg.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive")
	}
	if cfg.Retrieval.MaxDistance <= 0 {
		return fmt.Errorf("retrieval max_distance must be positive")
	}

	switch cfg.Services.Provider {
	case "ollama":
		// No credentials required.
	case "gemini":
		if cfg.Services.Gemini.APIKey == "" {
			return fmt.Errorf("gemini API key is required when provider is gemini")
		}
	default:
		return fmt.Errorf("unknown model provider: %s", cfg.Services.Provider)
	}

	if cfg.IsProduction() && cfg.Security.AdminToken == "" {
		return fmt.Errorf("admin token is required in production")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
