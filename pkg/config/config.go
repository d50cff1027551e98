package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	WebChat WebChatConfig `json:"webchat" yaml:"webchat" toml:"webchat"`
	Chat    ChatConfig    `json:"chat" yaml:"chat" toml:"chat"`
	Store   StoreConfig   `json:"store" yaml:"store" toml:"store"`
	Log     LogConfig     `json:"log" yaml:"log" toml:"log"`
	mu      sync.RWMutex
}

type WebChatConfig struct {
	Host       string `json:"host" yaml:"host" toml:"host" env:"PICOCHAT_WEBCHAT_HOST"`
	Port       int    `json:"port" yaml:"port" toml:"port" env:"PICOCHAT_WEBCHAT_PORT"`
	Username   string `json:"username" yaml:"username" toml:"username" env:"PICOCHAT_WEBCHAT_USERNAME"`
	Password   string `json:"password" yaml:"password" toml:"password" env:"PICOCHAT_WEBCHAT_PASSWORD"`
	SessionTTL int    `json:"session_ttl" yaml:"session_ttl" toml:"session_ttl" env:"PICOCHAT_WEBCHAT_SESSION_TTL"` // seconds
}

type ChatConfig struct {
	WelcomeMessage string `json:"welcome_message" yaml:"welcome_message" toml:"welcome_message" env:"PICOCHAT_CHAT_WELCOME_MESSAGE"`
	ReplyText      string `json:"reply_text" yaml:"reply_text" toml:"reply_text" env:"PICOCHAT_CHAT_REPLY_TEXT"`
	ReplyDelayMs   int    `json:"reply_delay_ms" yaml:"reply_delay_ms" toml:"reply_delay_ms" env:"PICOCHAT_CHAT_REPLY_DELAY_MS"`
}

type StoreConfig struct {
	Backend string `json:"backend" yaml:"backend" toml:"backend" env:"PICOCHAT_STORE_BACKEND"` // memory | sqlite
	Path    string `json:"path" yaml:"path" toml:"path" env:"PICOCHAT_STORE_PATH"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level" toml:"level" env:"PICOCHAT_LOG_LEVEL"`
}

func DefaultConfig() *Config {
	return &Config{
		WebChat: WebChatConfig{
			Host:       "0.0.0.0",
			Port:       18800,
			Username:   "user",
			Password:   "pass",
			SessionTTL: 86400,
		},
		Chat: ChatConfig{
			WelcomeMessage: "Hi there 👋\nHow can I help you today?",
			ReplyText:      "Working on it...",
			ReplyDelayMs:   1000,
		},
		Store: StoreConfig{
			Backend: "memory",
			Path:    "~/.picochat/transcripts.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Support full config from env var (for containers / serverless)
	if cfgJSON := os.Getenv("PICOCHAT_CONFIG_JSON"); cfgJSON != "" {
		if err := json.Unmarshal([]byte(cfgJSON), cfg); err != nil {
			return nil, fmt.Errorf("parsing PICOCHAT_CONFIG_JSON: %w", err)
		}
		if err := env.Parse(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	default:
		return json.Unmarshal(data, cfg)
	}
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (c *Config) ListenAddr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf("%s:%d", c.WebChat.Host, c.WebChat.Port)
}

func (c *Config) ReplyDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Chat.ReplyDelayMs < 0 {
		return 0
	}
	return time.Duration(c.Chat.ReplyDelayMs) * time.Millisecond
}

func (c *Config) SessionTTL() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.WebChat.SessionTTL <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.WebChat.SessionTTL) * time.Second
}

func (c *Config) StorePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Store.Path)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}

// DefaultPath is where the CLI looks for a config file when none is given.
func DefaultPath() string {
	return expandHome("~/.picochat/config.json")
}
