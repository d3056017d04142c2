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

// Config holds the normrag configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Store     StoreConfig     `yaml:"store"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Feedback  FeedbackConfig  `yaml:"feedback"`
	Logging   LoggingConfig   `yaml:"logging"`
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
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the optional embedding cache connection. Empty addrs disable the cache.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	CacheTTLHours    int      `yaml:"cache_ttl_hours"` // 0 = no expiry
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"`
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	MaxBatchSize        int    `yaml:"max_batch_size"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// LLMConfig holds the model-call provider settings.
type LLMConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// StoreConfig locates the persisted norm collections and their indexes.
type StoreConfig struct {
	TextNorms   string `yaml:"text_norms"`
	TextIndex   string `yaml:"text_index"`
	TableNorms  string `yaml:"table_norms"`
	TableIndex  string `yaml:"table_index"`
	Watch       bool   `yaml:"watch"`
	DebounceMS  int    `yaml:"debounce_ms"`
	LockFile    string `yaml:"lock_file"`
	RebuildSize int    `yaml:"rebuild_chunk_size"`
}

// RetrievalConfig tunes both retrievers.
type RetrievalConfig struct {
	TextTopK         int      `yaml:"text_top_k"`
	TableTopK        int      `yaml:"table_top_k"`
	TextOverfetch    int      `yaml:"text_overfetch"`
	TableOverfetch   int      `yaml:"table_overfetch"`
	AppliesThreshold float32  `yaml:"applies_threshold"`
	IgnoredDomains   []string `yaml:"ignored_domains"`
}

// SynthesisConfig tunes the batch orchestrator.
type SynthesisConfig struct {
	Mode          string   `yaml:"mode"`     // categorized, combined
	Strategy      string   `yaml:"strategy"` // halves, fixed
	BatchSize     int      `yaml:"batch_size"`
	Workers       int      `yaml:"workers"`
	Jurisdiction  *string  `yaml:"jurisdiction"` // nil = default, "" = none
	ReasoningTags []string `yaml:"reasoning_tags"`
}

// FeedbackConfig selects the feedback sinks. Empty paths disable a sink.
type FeedbackConfig struct {
	JSONLPath  string `yaml:"jsonl_path"`
	SQLitePath string `yaml:"sqlite_path"`
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
		c.HTTP.WriteTimeoutSec = 300 // synthesis runs several model calls
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 128
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 120
	}
	if c.Store.DebounceMS <= 0 {
		c.Store.DebounceMS = 2000
	}
	if c.Store.LockFile == "" && c.Store.TextNorms != "" {
		c.Store.LockFile = filepath.Join(filepath.Dir(c.Store.TextNorms), ".normindex.lock")
	}
	if c.Retrieval.TextTopK <= 0 {
		c.Retrieval.TextTopK = 20
	}
	if c.Retrieval.TableTopK <= 0 {
		c.Retrieval.TableTopK = 5
	}
	if c.Synthesis.Mode == "" {
		c.Synthesis.Mode = "categorized"
	}
	if c.Synthesis.Strategy == "" {
		c.Synthesis.Strategy = "halves"
	}
	if c.Synthesis.BatchSize <= 0 {
		c.Synthesis.BatchSize = 8
	}
	if c.Synthesis.Workers <= 0 {
		c.Synthesis.Workers = 4
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.Store.TextNorms == "" && c.Store.TableNorms == "" {
		return fmt.Errorf("store.text_norms or store.table_norms is required")
	}
	if c.Store.TextNorms != "" && c.Store.TextIndex == "" {
		return fmt.Errorf("store.text_index is required with store.text_norms")
	}
	if c.Store.TableNorms != "" && c.Store.TableIndex == "" {
		return fmt.Errorf("store.table_index is required with store.table_norms")
	}
	switch c.Synthesis.Mode {
	case "categorized", "combined":
	default:
		return fmt.Errorf("synthesis.mode must be \"categorized\" or \"combined\", got %q", c.Synthesis.Mode)
	}
	switch c.Synthesis.Strategy {
	case "halves", "fixed":
	default:
		return fmt.Errorf("synthesis.strategy must be \"halves\" or \"fixed\", got %q", c.Synthesis.Strategy)
	}
	if t := c.Retrieval.AppliesThreshold; t < 0 || t > 1 {
		return fmt.Errorf("retrieval.applies_threshold must be within [0, 1], got %v", t)
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
