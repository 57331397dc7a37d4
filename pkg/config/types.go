package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent aidm configuration stored as config.toml
// in the .aidm/ directory. The TOML layout uses sections for logical grouping.
//
// Secrets (the Discord bot token and the assistant API key) are never
// written to config.toml; they are read from the environment via viper
// (AIDM_BOT_TOKEN, AIDM_ASSISTANT_API_KEY).
type Config struct {
	Version   int             `toml:"version"`
	Bot       BotConfig       `toml:"bot"`
	Assistant AssistantConfig `toml:"assistant"`
	API       APIConfig       `toml:"api"`
	Storage   StorageConfig   `toml:"storage"`
}

// BotConfig holds Discord-facing settings.
type BotConfig struct {
	// Token is the Discord bot token. Environment only, never persisted.
	Token string `toml:"-"`

	// GuildID optionally scopes slash-command registration to one guild.
	// Empty registers commands globally.
	GuildID string `toml:"guild_id,omitempty"`

	// OutOfGameChannel is the channel name that is always routed to the
	// out-of-game memory slot, regardless of prior assignment.
	OutOfGameChannel string `toml:"out_of_game_channel,omitempty"`

	// SummaryChannel is the channel name session summaries are posted
	// to, created on demand inside the category.
	SummaryChannel string `toml:"summary_channel,omitempty"`
}

// AssistantConfig holds conversation service settings.
type AssistantConfig struct {
	// APIKey authenticates against the assistant provider. Environment
	// only, never persisted.
	APIKey string `toml:"-"`

	// BaseURL is the assistant provider API URL.
	BaseURL string `toml:"base_url,omitempty"`

	// AssistantID is the remote assistant used for every run.
	AssistantID string `toml:"assistant_id,omitempty"`

	// PollIntervalSeconds is the base interval between run status polls.
	PollIntervalSeconds uint `toml:"poll_interval_seconds,omitempty"`

	// RunTimeoutSeconds bounds how long a single run may stay queued or
	// in progress before the client gives up.
	RunTimeoutSeconds uint `toml:"run_timeout_seconds,omitempty"`
}

// APIConfig holds status API server settings.
type APIConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen,omitempty"`
}

// StorageConfig holds paths for the routing document and transcript store.
// Empty paths resolve through the .aidm/ dot directory.
type StorageConfig struct {
	RoutesPath      string `toml:"routes_path,omitempty"`
	TranscriptsPath string `toml:"transcripts_path,omitempty"`
}

// PollInterval returns the configured poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Assistant.PollIntervalSeconds) * time.Second
}

// RunTimeout returns the configured run timeout as a duration.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.Assistant.RunTimeoutSeconds) * time.Second
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
// The two secret keys are deliberately absent so "aidm config set" can
// never write them to disk.
var configKeys = map[string]configKeyInfo{
	"bot.guild_id": {
		get: func(c *Config) string { return c.Bot.GuildID },
		set: func(c *Config, v string) error { c.Bot.GuildID = v; return nil },
	},
	"bot.out_of_game_channel": {
		get: func(c *Config) string { return c.Bot.OutOfGameChannel },
		set: func(c *Config, v string) error { c.Bot.OutOfGameChannel = v; return nil },
	},
	"bot.summary_channel": {
		get: func(c *Config) string { return c.Bot.SummaryChannel },
		set: func(c *Config, v string) error { c.Bot.SummaryChannel = v; return nil },
	},
	"assistant.base_url": {
		get: func(c *Config) string { return c.Assistant.BaseURL },
		set: func(c *Config, v string) error { c.Assistant.BaseURL = v; return nil },
	},
	"assistant.assistant_id": {
		get: func(c *Config) string { return c.Assistant.AssistantID },
		set: func(c *Config, v string) error { c.Assistant.AssistantID = v; return nil },
	},
	"assistant.poll_interval_seconds": {
		get: func(c *Config) string {
			if c.Assistant.PollIntervalSeconds == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Assistant.PollIntervalSeconds), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for assistant.poll_interval_seconds: %w", err)
			}
			c.Assistant.PollIntervalSeconds = uint(n)
			return nil
		},
	},
	"assistant.run_timeout_seconds": {
		get: func(c *Config) string {
			if c.Assistant.RunTimeoutSeconds == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Assistant.RunTimeoutSeconds), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for assistant.run_timeout_seconds: %w", err)
			}
			c.Assistant.RunTimeoutSeconds = uint(n)
			return nil
		},
	},
	"api.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.API.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for api.enabled: %w", err)
			}
			c.API.Enabled = b
			return nil
		},
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"storage.routes_path": {
		get: func(c *Config) string { return c.Storage.RoutesPath },
		set: func(c *Config, v string) error { c.Storage.RoutesPath = v; return nil },
	},
	"storage.transcripts_path": {
		get: func(c *Config) string { return c.Storage.TranscriptsPath },
		set: func(c *Config, v string) error { c.Storage.TranscriptsPath = v; return nil },
	},
}
