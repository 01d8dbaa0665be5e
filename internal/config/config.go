package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"school-chatbot/internal/llm"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port            string        `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"server"`

	Logging struct {
		Development bool `yaml:"development"`
	} `yaml:"logging"`

	Database struct {
		Type string `yaml:"type"` // "postgres" or "sqlite"
		URL  string `yaml:"url"`  // PostgreSQL DSN
		Path string `yaml:"path"` // SQLite file, ":memory:" for tests
	} `yaml:"database"`

	LLM struct {
		Providers               []llm.ProviderConfig `yaml:"providers"`
		MaxFailuresBeforeSwitch int                  `yaml:"max_failures_before_switch"`
		RequestTimeout          time.Duration        `yaml:"request_timeout"`
		Warmup                  struct {
			Enabled  bool          `yaml:"enabled"`
			Interval time.Duration `yaml:"interval"`
		} `yaml:"warmup"`
	} `yaml:"llm"`

	Chat struct {
		HistoryLimit            int           `yaml:"history_limit"`
		AdvisorAttendanceWindow int           `yaml:"advisor_attendance_window"`
		OfficePhone             string        `yaml:"office_phone"`
		PersistTimeout          time.Duration `yaml:"persist_timeout"`
	} `yaml:"chat"`

	Admin struct {
		Username     string        `yaml:"username"`
		PasswordHash string        `yaml:"password_hash"`
		JWTSecret    string        `yaml:"jwt_secret"`
		TokenTTL     time.Duration `yaml:"token_ttl"`
	} `yaml:"admin"`

	Telegram struct {
		Enabled          bool   `yaml:"enabled"`
		BotToken         string `yaml:"bot_token"`
		SessionCacheSize int    `yaml:"session_cache_size"`
		// Chats maps a Telegram chat ID to the student IDs it may ask about.
		// Empty serves every chat.
		Chats map[int64][]int64 `yaml:"chats"`
	} `yaml:"telegram"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8000"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}

	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/school.db"
	}

	if c.LLM.MaxFailuresBeforeSwitch == 0 {
		c.LLM.MaxFailuresBeforeSwitch = 3
	}
	if c.LLM.RequestTimeout == 0 {
		c.LLM.RequestTimeout = 30 * time.Second
	}
	if c.LLM.Warmup.Interval == 0 {
		c.LLM.Warmup.Interval = 5 * time.Minute
	}

	if c.Chat.HistoryLimit == 0 {
		c.Chat.HistoryLimit = 20
	}
	if c.Chat.AdvisorAttendanceWindow == 0 {
		c.Chat.AdvisorAttendanceWindow = 10
	}
	if c.Chat.PersistTimeout == 0 {
		c.Chat.PersistTimeout = 3 * time.Second
	}

	if c.Admin.Username == "" {
		c.Admin.Username = "admin"
	}
	if c.Admin.TokenTTL == 0 {
		c.Admin.TokenTTL = 24 * time.Hour
	}

	if c.Telegram.SessionCacheSize == 0 {
		c.Telegram.SessionCacheSize = 1024
	}

	// Expand environment variables in secrets
	for i := range c.LLM.Providers {
		c.LLM.Providers[i].APIKey = os.ExpandEnv(c.LLM.Providers[i].APIKey)
		c.LLM.Providers[i].BaseURL = os.ExpandEnv(c.LLM.Providers[i].BaseURL)
	}
	c.Database.URL = os.ExpandEnv(c.Database.URL)
	// argon2id hashes contain '$', so only a whole ${VAR} reference is expanded
	if strings.HasPrefix(c.Admin.PasswordHash, "${") && strings.HasSuffix(c.Admin.PasswordHash, "}") {
		c.Admin.PasswordHash = os.ExpandEnv(c.Admin.PasswordHash)
	}
	c.Admin.JWTSecret = os.ExpandEnv(c.Admin.JWTSecret)
	c.Telegram.BotToken = os.ExpandEnv(c.Telegram.BotToken)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for postgres")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unknown database type %q", c.Database.Type)
	}

	if c.LLM.RequestTimeout < 0 {
		return fmt.Errorf("llm.request_timeout must be positive")
	}
	if c.LLM.Warmup.Interval < 0 {
		return fmt.Errorf("llm.warmup.interval must be positive")
	}
	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
	}
	return nil
}
