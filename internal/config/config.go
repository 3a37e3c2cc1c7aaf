package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	LLM     LLM     `yaml:"llm"`
	Fetch   Fetch   `yaml:"fetch"`
	Output  Output  `yaml:"output"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// LLM configures the provider chain used for chat replies and narratives.
type LLM struct {
	Chain          []string     `yaml:"chain"`
	TimeoutSeconds int          `yaml:"timeout_seconds"`
	OpenAI         HostedModel  `yaml:"openai"`
	Gemini         HostedModel  `yaml:"gemini"`
	Anthropic      HostedModel  `yaml:"anthropic"`
	Ollama         OllamaModel  `yaml:"ollama"`
	Backend        BackendProxy `yaml:"backend"`
}

// HostedModel is a provider authenticated by an API key read from the environment.
type HostedModel struct {
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
}

type OllamaModel struct {
	Model string `yaml:"model"`
	URL   string `yaml:"url"`
}

// BackendProxy points at the Joseph backend chat proxy. URL wins over URLEnv.
type BackendProxy struct {
	URL    string `yaml:"url"`
	URLEnv string `yaml:"url_env"`
}

// Fetch configures web-context page fetching.
type Fetch struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxURLs        int    `yaml:"max_urls"`
	MaxChars       int    `yaml:"max_chars"`
	CacheSize      int    `yaml:"cache_size"`
	UserAgent      string `yaml:"user_agent"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port            int  `yaml:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for joseph.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "joseph")
}

// DataDir returns the XDG data directory for joseph.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "joseph")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/joseph/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'joseph init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration, used when no file exists.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		return defaults()
	}
	return cfg
}

func defaults() *Config {
	return &Config{
		LLM: LLM{
			Chain:          []string{"openai", "gemini", "backend"},
			TimeoutSeconds: 60,
			OpenAI:         HostedModel{Model: "gpt-4o-mini", APIKeyEnv: "OPENAI_API_KEY"},
			Gemini:         HostedModel{Model: "gemini-2.5-flash", APIKeyEnv: "GEMINI_API_KEY"},
			Anthropic:      HostedModel{Model: "claude-3-5-haiku-latest", APIKeyEnv: "ANTHROPIC_API_KEY"},
			Ollama:         OllamaModel{Model: "qwen2.5:7b", URL: "http://localhost:11434"},
			Backend:        BackendProxy{URLEnv: "CHATBOT_BACKEND_URL"},
		},
		Fetch: Fetch{
			TimeoutSeconds: 15,
			MaxURLs:        2,
			MaxChars:       6000,
			CacheSize:      128,
			UserAgent:      "JosephAI/1.0 (web context)",
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := defaults()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// Timeout returns the per-request provider timeout.
func (l LLM) Timeout() time.Duration {
	if l.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// BackendURL resolves the proxy base URL from config or the environment.
func (l LLM) BackendURL() string {
	if l.Backend.URL != "" {
		return l.Backend.URL
	}
	if l.Backend.URLEnv != "" {
		return os.Getenv(l.Backend.URLEnv)
	}
	return ""
}

// Timeout returns the per-page fetch timeout.
func (f Fetch) Timeout() time.Duration {
	if f.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(f.TimeoutSeconds) * time.Second
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
