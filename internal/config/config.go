package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

const (
	BackendGemini = "gemini"
	BackendClaude = "claude"
	BackendOllama = "ollama"
)

type Config struct {
	Port             int           `env:"PORT" envDefault:"3000"`
	InferenceBackend string        `env:"INFERENCE_BACKEND" envDefault:"gemini"`
	FetchTimeout     time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
	InferenceTimeout time.Duration `env:"INFERENCE_TIMEOUT" envDefault:"30s"`
	MaxBodyBytes     int64         `env:"MAX_BODY_BYTES" envDefault:"52428800"`
	CORSOrigins      []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	PprofEnabled     bool          `env:"PPROF_ENABLED" envDefault:"false"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string        `env:"LOG_FORMAT" envDefault:"json"`
	LogFile          string        `env:"LOG_FILE"`

	Gemini GeminiConfig `envPrefix:"GEMINI_"`
	Claude ClaudeConfig `envPrefix:"CLAUDE_"`
	Ollama OllamaConfig `envPrefix:"OLLAMA_"`
}

type GeminiConfig struct {
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL" envDefault:"gemini-2.5-flash"`
	BaseURL string `env:"BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
}

type ClaudeConfig struct {
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL" envDefault:"claude-3-5-sonnet-latest"`
	BaseURL string `env:"BASE_URL"`
}

type OllamaConfig struct {
	Host  string `env:"HOST" envDefault:"http://localhost:11434"`
	Model string `env:"MODEL" envDefault:"llava"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs to run.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.FetchTimeout <= 0 || c.InferenceTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT and INFERENCE_TIMEOUT must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}

	switch c.InferenceBackend {
	case BackendGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when INFERENCE_BACKEND=gemini")
		}
	case BackendClaude:
		if c.Claude.APIKey == "" {
			return fmt.Errorf("CLAUDE_API_KEY is required when INFERENCE_BACKEND=claude")
		}
	case BackendOllama:
		if c.Ollama.Host == "" {
			return fmt.Errorf("OLLAMA_HOST is required when INFERENCE_BACKEND=ollama")
		}
	default:
		return fmt.Errorf("unsupported INFERENCE_BACKEND %q", c.InferenceBackend)
	}
	return nil
}

// ListenAddr is the address the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
