// Package config loads notemuse settings from flags, environment, a YAML
// config file and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jmylchreest/notemuse/pkg/llm"
	"github.com/jmylchreest/notemuse/pkg/segment"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix prefixes every configuration key in the environment.
const EnvPrefix = "NOTEMUSE"

// Config is the complete bot configuration.
type Config struct {
	// Sections are validated on their own, see Load and ValidateBot.
	GitHub  GitHubConfig  `mapstructure:"github" yaml:"github" validate:"-"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm" validate:"-"`
	Discord DiscordConfig `mapstructure:"discord" yaml:"discord" validate:"-"`
	Segment SegmentConfig `mapstructure:"segment" yaml:"segment" validate:"-"`

	Interval     time.Duration `mapstructure:"interval" yaml:"interval" validate:"gte=1s"`
	NotesCount   int           `mapstructure:"notes_count" yaml:"notes_count" validate:"gt=0,lte=50"`
	CycleTimeout time.Duration `mapstructure:"cycle_timeout" yaml:"cycle_timeout" validate:"gt=0"`
	KeepGoing    bool          `mapstructure:"keep_going" yaml:"keep_going"`
}

// GitHubConfig locates the notes vault.
type GitHubConfig struct {
	Token       string `mapstructure:"token" yaml:"token"`
	Owner       string `mapstructure:"owner" yaml:"owner" validate:"required"`
	Repo        string `mapstructure:"repo" yaml:"repo" validate:"required"`
	Folder      string `mapstructure:"folder" yaml:"folder"`
	Ref         string `mapstructure:"ref" yaml:"ref"`
	MaxFileSize string `mapstructure:"max_file_size" yaml:"max_file_size"` // e.g. 64KB, 0 for no limit
	BaseURL     string `mapstructure:"base_url" yaml:"base_url" validate:"omitempty,url"`
}

// LLMConfig selects the generation backend.
type LLMConfig struct {
	Provider string        `mapstructure:"provider" yaml:"provider"` // "" detects from API key variables
	Model    string        `mapstructure:"model" yaml:"model"`
	APIKey   string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL  string        `mapstructure:"base_url" yaml:"base_url" validate:"omitempty,url"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
}

// DiscordConfig is where ideas are posted.
type DiscordConfig struct {
	Token     string `mapstructure:"token" yaml:"token" validate:"required"`
	ChannelID string `mapstructure:"channel_id" yaml:"channel_id" validate:"required,numeric"`
}

// SegmentConfig mirrors segment.Options.
type SegmentConfig struct {
	MaxLength      int `mapstructure:"max_length" yaml:"max_length"`
	ShortThreshold int `mapstructure:"short_threshold" yaml:"short_threshold"`
	LongThreshold  int `mapstructure:"long_threshold" yaml:"long_threshold"`
	TrailingChars  int `mapstructure:"trailing_chars" yaml:"trailing_chars"`
}

// Options converts the section to segment.Options. Validation happens in
// segment.New.
func (s SegmentConfig) Options() segment.Options {
	return segment.Options{
		MaxLength:      s.MaxLength,
		ShortThreshold: s.ShortThreshold,
		LongThreshold:  s.LongThreshold,
		TrailingChars:  s.TrailingChars,
	}
}

// SetDefaults registers every key with its default so that environment
// variables are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	seg := segment.DefaultOptions()

	v.SetDefault("github.token", "")
	v.SetDefault("github.owner", "")
	v.SetDefault("github.repo", "")
	v.SetDefault("github.folder", "20_Literature")
	v.SetDefault("github.ref", "")
	v.SetDefault("github.max_file_size", "64KB")
	v.SetDefault("github.base_url", "")

	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", 2*time.Minute)

	v.SetDefault("discord.token", "")
	v.SetDefault("discord.channel_id", "")

	v.SetDefault("segment.max_length", seg.MaxLength)
	v.SetDefault("segment.short_threshold", seg.ShortThreshold)
	v.SetDefault("segment.long_threshold", seg.LongThreshold)
	v.SetDefault("segment.trailing_chars", seg.TrailingChars)

	v.SetDefault("interval", 10*time.Minute)
	v.SetDefault("notes_count", 5)
	v.SetDefault("cycle_timeout", 5*time.Minute)
	v.SetDefault("keep_going", false)
}

// legacyEnv maps keys to the bare variable names the bot has always read.
var legacyEnv = map[string]string{
	"github.token":       "GITHUB_TOKEN",
	"github.owner":       "OBSIDIAN_REPO_OWNER",
	"github.repo":        "OBSIDIAN_REPO_NAME",
	"github.folder":      "TARGET_FOLDER",
	"discord.token":      "DISCORD_BOT_TOKEN",
	"discord.channel_id": "DISCORD_CHANNEL_ID",
}

// BindEnv enables NOTEMUSE_* variables (github.owner is NOTEMUSE_GITHUB_OWNER)
// and the legacy bare names. Prefixed variables win.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, prefixed, legacy)
	}
}

// ReadFile reads path, or searches for .notemuse.yaml in the working
// directory and the home directory when path is empty. A missing default
// file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.SetConfigName(".notemuse")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load decodes v into a Config and validates the sections every command
// needs. Bot-only sections are checked by ValidateBot.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg.GitHub.Folder = strings.Trim(cfg.GitHub.Folder, "/")
	cfg.resolveLLM()

	validate := validator.New()
	for _, section := range []any{cfg, cfg.LLM, cfg.Segment.Options()} {
		if err := validate.Struct(section); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if !llm.IsRegistered(cfg.LLM.Provider) {
		return nil, fmt.Errorf("%w: unknown llm provider %q (available: %s)",
			ErrInvalid, cfg.LLM.Provider, strings.Join(llm.AvailableProviders(), ", "))
	}
	if _, err := cfg.GitHub.MaxFileSizeBytes(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveLLM fills the provider, key and model from the environment when
// they were not configured.
func (c *Config) resolveLLM() {
	if c.LLM.Provider == "" {
		provider, key := llm.DetectProvider()
		c.LLM.Provider = provider
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = key
		}
	}
	if c.LLM.APIKey == "" {
		if env := llm.APIKeyEnv(c.LLM.Provider); env != "" {
			c.LLM.APIKey = os.Getenv(env)
		}
	}
	if c.LLM.Model == "" {
		c.LLM.Model = llm.GetDefaultModel(c.LLM.Provider)
	}
}

// ValidateBot checks what a generation cycle needs. Discord settings are
// required only when posting.
func (c *Config) ValidateBot(posting bool) error {
	validate := validator.New()
	if err := validate.Struct(c.GitHub); err != nil {
		return fmt.Errorf("%w: github: %v", ErrInvalid, err)
	}
	if c.LLM.APIKey == "" && c.LLM.Provider != "ollama" {
		env := llm.APIKeyEnv(c.LLM.Provider)
		return fmt.Errorf("%w: llm: no API key for %s (set %s or llm.api_key)", ErrInvalid, c.LLM.Provider, env)
	}
	if posting {
		if err := validate.Struct(c.Discord); err != nil {
			return fmt.Errorf("%w: discord: %v", ErrInvalid, err)
		}
	}
	return nil
}

// MaxFileSizeBytes parses the human-readable size limit. Zero means no limit.
func (g GitHubConfig) MaxFileSizeBytes() (int64, error) {
	s := strings.TrimSpace(g.MaxFileSize)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w: github.max_file_size %q: %v", ErrInvalid, g.MaxFileSize, err)
	}
	return int64(n), nil
}

// ProviderConfig builds the llm provider configuration.
func (c *Config) ProviderConfig() llm.ProviderConfig {
	pc := llm.DefaultProviderConfig()
	pc.APIKey = c.LLM.APIKey
	pc.BaseURL = c.LLM.BaseURL
	pc.Model = c.LLM.Model
	pc.Timeout = c.LLM.Timeout
	return pc
}
