package config

const (
	defaultOutOfGameChannel = "telldm"

	defaultSummaryChannel = "session-summary"

	defaultAssistantBaseURL = "https://api.openai.com"

	defaultPollIntervalSeconds = 1
	defaultRunTimeoutSeconds   = 120

	defaultAPIListen = ":8082"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Bot: BotConfig{
			OutOfGameChannel: defaultOutOfGameChannel,
			SummaryChannel:   defaultSummaryChannel,
		},
		Assistant: AssistantConfig{
			BaseURL:             defaultAssistantBaseURL,
			PollIntervalSeconds: defaultPollIntervalSeconds,
			RunTimeoutSeconds:   defaultRunTimeoutSeconds,
		},
		API: APIConfig{
			Enabled: true,
			Listen:  defaultAPIListen,
		},
	}
}
