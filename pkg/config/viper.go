package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/aidm5e/aidm/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the AIDM_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound by commands)
//  2. Environment variables (AIDM_BOT_TOKEN, AIDM_API_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: AIDM_BOT_TOKEN, AIDM_ASSISTANT_API_KEY, etc.
	v.SetEnvPrefix("AIDM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from a configured viper instance,
// layering env/file values over defaults and pulling the two secrets
// (bot token, assistant API key) from their env-only keys.
func FromViper(v *viper.Viper) *Config {
	cfg := NewDefaultConfig()

	cfg.Bot.Token = v.GetString("bot.token")
	cfg.Bot.GuildID = v.GetString("bot.guild_id")
	if s := v.GetString("bot.out_of_game_channel"); s != "" {
		cfg.Bot.OutOfGameChannel = s
	}
	if s := v.GetString("bot.summary_channel"); s != "" {
		cfg.Bot.SummaryChannel = s
	}

	cfg.Assistant.APIKey = v.GetString("assistant.api_key")
	if s := v.GetString("assistant.base_url"); s != "" {
		cfg.Assistant.BaseURL = s
	}
	cfg.Assistant.AssistantID = v.GetString("assistant.assistant_id")
	if n := v.GetUint("assistant.poll_interval_seconds"); n != 0 {
		cfg.Assistant.PollIntervalSeconds = n
	}
	if n := v.GetUint("assistant.run_timeout_seconds"); n != 0 {
		cfg.Assistant.RunTimeoutSeconds = n
	}

	cfg.API.Enabled = v.GetBool("api.enabled")
	if s := v.GetString("api.listen"); s != "" {
		cfg.API.Listen = s
	}

	cfg.Storage.RoutesPath = v.GetString("storage.routes_path")
	cfg.Storage.TranscriptsPath = v.GetString("storage.transcripts_path")

	return cfg
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Bot
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.guild_id", d.Bot.GuildID)
	v.SetDefault("bot.out_of_game_channel", d.Bot.OutOfGameChannel)
	v.SetDefault("bot.summary_channel", d.Bot.SummaryChannel)

	// Assistant
	v.SetDefault("assistant.api_key", "")
	v.SetDefault("assistant.base_url", d.Assistant.BaseURL)
	v.SetDefault("assistant.assistant_id", d.Assistant.AssistantID)
	v.SetDefault("assistant.poll_interval_seconds", d.Assistant.PollIntervalSeconds)
	v.SetDefault("assistant.run_timeout_seconds", d.Assistant.RunTimeoutSeconds)

	// API
	v.SetDefault("api.enabled", d.API.Enabled)
	v.SetDefault("api.listen", d.API.Listen)

	// Storage
	v.SetDefault("storage.routes_path", d.Storage.RoutesPath)
	v.SetDefault("storage.transcripts_path", d.Storage.TranscriptsPath)
}
