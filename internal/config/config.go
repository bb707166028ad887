package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/jeanpaul/adcrew/internal/types"
)

type Config struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	DefaultModel    string                    `yaml:"default_model" mapstructure:"default_model"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
	Retries         int                       `yaml:"retries" mapstructure:"retries"`
	Team            TeamConfig                `yaml:"team" mapstructure:"team"`
	Ads             AdsConfig                 `yaml:"ads" mapstructure:"ads"`
	Batch           BatchConfig               `yaml:"batch" mapstructure:"batch"`
	Notify          NotifyConfig              `yaml:"notify" mapstructure:"notify"`
	Log             LogConfig                 `yaml:"log" mapstructure:"log"`
}

type ProviderConfig struct {
	Type    string `yaml:"type" mapstructure:"type"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	Model   string `yaml:"model" mapstructure:"model"`
}

type TeamConfig struct {
	MaxRound       int                  `yaml:"max_round" mapstructure:"max_round"`
	MaxDepth       int                  `yaml:"max_depth" mapstructure:"max_depth"`
	Seed           *int                 `yaml:"seed" mapstructure:"seed"`
	Temperature    float64              `yaml:"temperature" mapstructure:"temperature"`
	HumanInputMode types.HumanInputMode `yaml:"human_input_mode" mapstructure:"human_input_mode"`
	WorkDir        string               `yaml:"work_dir" mapstructure:"work_dir"`
}

type AdsConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Token   string `yaml:"token" mapstructure:"token"`
}

type BatchConfig struct {
	Schedule    string   `yaml:"schedule" mapstructure:"schedule"`
	Timezone    string   `yaml:"timezone" mapstructure:"timezone"`
	AllowList   []string `yaml:"allow_list" mapstructure:"allow_list"`
	Concurrency int      `yaml:"concurrency" mapstructure:"concurrency"`
	MaxRound    int      `yaml:"max_round" mapstructure:"max_round"`
	RosterFile  string   `yaml:"roster_file" mapstructure:"roster_file"`
	WebhookURL  string   `yaml:"webhook_url" mapstructure:"webhook_url"`
	HistoryDB   string   `yaml:"history_db" mapstructure:"history_db"`
}

type NotifyConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	From    string `yaml:"from" mapstructure:"from"`
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

var envVarRe = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)

func expandEnv(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "$")
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

func DefaultConfig() *Config {
	return &Config{
		DefaultProvider: "openai",
		DefaultModel:    "gpt-4o",
		Retries:         3,
		Providers: map[string]ProviderConfig{
			"openai": {Type: "openai", BaseURL: "https://api.openai.com/v1", APIKey: "$OPENAI_API_KEY"},
			"ollama": {Type: "openai", BaseURL: "http://localhost:11434/v1"},
		},
		Team: TeamConfig{
			MaxRound:       20,
			MaxDepth:       2,
			HumanInputMode: types.HumanInputNever,
			WorkDir:        filepath.Join(stateDir(), "conversations"),
		},
		Batch: BatchConfig{
			Schedule:    "0 6 * * *",
			Timezone:    "UTC",
			Concurrency: 4,
			MaxRound:    30,
			HistoryDB:   filepath.Join(stateDir(), "history.db"),
		},
		Log: LogConfig{Level: "info"},
	}
}

func stateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "adcrew")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "adcrew")
}

// Load reads path, or config.yaml from the usual places when path is empty.
// ADCREW_* environment variables override file values, e.g.
// ADCREW_BATCH_WEBHOOK_URL.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "adcrew"))
		}
		home, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(home, ".config", "adcrew"))
	}

	v.SetEnvPrefix("ADCREW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	for name, p := range cfg.Providers {
		p.APIKey = expandEnv(p.APIKey)
		p.BaseURL = expandEnv(p.BaseURL)
		cfg.Providers[name] = p
	}
	cfg.Ads.Token = expandEnv(cfg.Ads.Token)
	cfg.Ads.BaseURL = expandEnv(cfg.Ads.BaseURL)
	cfg.Notify.APIKey = expandEnv(cfg.Notify.APIKey)
	cfg.Batch.WebhookURL = expandEnv(cfg.Batch.WebhookURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every scalar key so environment overrides apply
// even when the file does not mention the key.
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("default_provider", c.DefaultProvider)
	v.SetDefault("default_model", c.DefaultModel)
	v.SetDefault("retries", c.Retries)
	v.SetDefault("team.max_round", c.Team.MaxRound)
	v.SetDefault("team.max_depth", c.Team.MaxDepth)
	v.SetDefault("team.temperature", c.Team.Temperature)
	v.SetDefault("team.human_input_mode", string(c.Team.HumanInputMode))
	v.SetDefault("team.work_dir", c.Team.WorkDir)
	v.SetDefault("ads.base_url", "")
	v.SetDefault("ads.token", "")
	v.SetDefault("batch.schedule", c.Batch.Schedule)
	v.SetDefault("batch.timezone", c.Batch.Timezone)
	v.SetDefault("batch.allow_list", c.Batch.AllowList)
	v.SetDefault("batch.concurrency", c.Batch.Concurrency)
	v.SetDefault("batch.max_round", c.Batch.MaxRound)
	v.SetDefault("batch.roster_file", "")
	v.SetDefault("batch.webhook_url", "")
	v.SetDefault("batch.history_db", c.Batch.HistoryDB)
	v.SetDefault("notify.base_url", "")
	v.SetDefault("notify.api_key", "")
	v.SetDefault("notify.from", "")
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.json", c.Log.JSON)
}

func (c *Config) ProviderFor(name string) (ProviderConfig, bool) {
	p, ok := c.Providers[name]
	return p, ok
}

// Location returns the batch time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Batch.Timezone)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.DefaultProvider == "" {
		return fmt.Errorf("config: default_provider is required")
	}
	if _, ok := c.Providers[c.DefaultProvider]; !ok {
		return fmt.Errorf("config: default_provider %q not found in providers", c.DefaultProvider)
	}
	for name, p := range c.Providers {
		validTypes := map[string]bool{"openai": true, "anthropic": true, "google": true}
		if !validTypes[p.Type] {
			return fmt.Errorf("config: provider %q has invalid type %q (must be openai, anthropic, or google)", name, p.Type)
		}
		if p.Type == "openai" && p.BaseURL == "" {
			return fmt.Errorf("config: provider %q (type openai) requires base_url", name)
		}
	}
	if !c.Team.HumanInputMode.Valid() {
		return fmt.Errorf("config: team.human_input_mode %q must be NEVER, ALWAYS or TERMINATE", c.Team.HumanInputMode)
	}
	if _, err := cron.ParseStandard(c.Batch.Schedule); err != nil {
		return fmt.Errorf("config: batch.schedule %q: %w", c.Batch.Schedule, err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config: batch.timezone: %w", err)
	}
	if c.Team.MaxRound < 1 {
		c.Team.MaxRound = 20
	}
	if c.Team.MaxDepth < 0 {
		c.Team.MaxDepth = 0
	}
	if c.Batch.Concurrency < 1 {
		c.Batch.Concurrency = 1
	}
	if c.Batch.MaxRound < 1 {
		c.Batch.MaxRound = 30
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	return nil
}
