package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"cipher_workbench/internal/engine"
)

// Config holds all configuration for the workbench. Every field has a
// working default; a config file and CWB_* environment variables layer on
// top of it.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Rerank    RerankConfig    `yaml:"rerank"`
	Engine    EngineConfig    `yaml:"engine"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Database  DatabaseConfig  `yaml:"database"`
}

// ServerConfig holds the HTTP API listen address.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RerankConfig selects and parameterizes the external re-ranking provider.
// The OpenAI key never lives in the file; the file names the env var that
// holds it.
type RerankConfig struct {
	Provider       string `yaml:"provider"` // ollama, openai or none
	OllamaURL      string `yaml:"ollama_url"`
	OllamaModel    string `yaml:"ollama_model"`
	OpenAIBaseURL  string `yaml:"openai_base_url"`
	OpenAIModel    string `yaml:"openai_model"`
	OpenAIKeyEnv   string `yaml:"openai_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (c RerankConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// OpenAIKey reads the API key from the configured environment variable.
func (c RerankConfig) OpenAIKey() string {
	name := strings.TrimSpace(c.OpenAIKeyEnv)
	if name == "" {
		name = "OPENAI_API_KEY"
	}
	return os.Getenv(name)
}

// EngineConfig exposes the analysis knobs worth tuning from outside.
type EngineConfig struct {
	QuadgramPath   string `yaml:"quadgram_path"`
	ShortlistSize  int    `yaml:"shortlist_size"`
	FallbackTop    int    `yaml:"fallback_top"`
	HillClimbIters int    `yaml:"hill_climb_iters"`
}

// WorkspaceConfig points at the on-disk workspace root. Empty means the
// per-user default under the home directory.
type WorkspaceConfig struct {
	Dir string `yaml:"dir"`
}

// DatabaseConfig points at the sqlite file. Empty means a default path
// inside the workspace.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Load reads and parses the configuration file, then fills defaults. An
// empty path skips the file and yields pure defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	base := engine.DefaultConfig()
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Rerank.Provider == "" {
		cfg.Rerank.Provider = "ollama"
	}
	if cfg.Rerank.OllamaURL == "" {
		cfg.Rerank.OllamaURL = "http://127.0.0.1:11434"
	}
	if cfg.Rerank.OllamaModel == "" {
		cfg.Rerank.OllamaModel = "llama3.1:8b"
	}
	if cfg.Rerank.OpenAIModel == "" {
		cfg.Rerank.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.Rerank.OpenAIKeyEnv == "" {
		cfg.Rerank.OpenAIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Rerank.TimeoutSeconds == 0 {
		cfg.Rerank.TimeoutSeconds = 120
	}
	if cfg.Engine.ShortlistSize == 0 {
		cfg.Engine.ShortlistSize = base.ShortlistSize
	}
	if cfg.Engine.FallbackTop == 0 {
		cfg.Engine.FallbackTop = base.FallbackTop
	}
	if cfg.Engine.HillClimbIters == 0 {
		cfg.Engine.HillClimbIters = base.Solver.HillClimbIters
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides. A
// .env file is read first when present, so local setups can keep secrets
// out of the shell profile.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("CWB_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	cfg.Server.Port = getenvInt("CWB_SERVER_PORT", cfg.Server.Port)
	if v := os.Getenv("CWB_RERANK_PROVIDER"); v != "" {
		cfg.Rerank.Provider = v
	}
	if v := os.Getenv("CWB_OLLAMA_URL"); v != "" {
		cfg.Rerank.OllamaURL = v
	}
	if v := os.Getenv("CWB_OLLAMA_MODEL"); v != "" {
		cfg.Rerank.OllamaModel = v
	}
	if v := os.Getenv("CWB_OPENAI_BASE_URL"); v != "" {
		cfg.Rerank.OpenAIBaseURL = v
	}
	if v := os.Getenv("CWB_OPENAI_MODEL"); v != "" {
		cfg.Rerank.OpenAIModel = v
	}
	cfg.Rerank.TimeoutSeconds = getenvInt("CWB_RERANK_TIMEOUT_SECONDS", cfg.Rerank.TimeoutSeconds)
	if v := os.Getenv("CWB_QUADGRAM_PATH"); v != "" {
		cfg.Engine.QuadgramPath = v
	}
	cfg.Engine.ShortlistSize = getenvInt("CWB_SHORTLIST_SIZE", cfg.Engine.ShortlistSize)
	cfg.Engine.FallbackTop = getenvInt("CWB_FALLBACK_TOP", cfg.Engine.FallbackTop)
	cfg.Engine.HillClimbIters = getenvInt("CWB_HILL_CLIMB_ITERS", cfg.Engine.HillClimbIters)
	if v := os.Getenv("CWB_WORKSPACE_DIR"); v != "" {
		cfg.Workspace.Dir = v
	}
	if v := os.Getenv("CWB_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	return cfg, nil
}

// EngineConfig maps the tunable subset onto the full engine configuration.
func (c *Config) EngineConfig() engine.Config {
	ec := engine.DefaultConfig()
	ec.QuadgramPath = c.Engine.QuadgramPath
	if c.Engine.ShortlistSize > 0 {
		ec.ShortlistSize = c.Engine.ShortlistSize
	}
	if c.Engine.FallbackTop > 0 {
		ec.FallbackTop = c.Engine.FallbackTop
	}
	if c.Engine.HillClimbIters > 0 {
		ec.Solver.HillClimbIters = c.Engine.HillClimbIters
	}
	return ec
}

func getenvInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
