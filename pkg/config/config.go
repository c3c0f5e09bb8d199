package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Discord  DiscordConfig  `mapstructure:"discord"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Database DatabaseConfig `mapstructure:"database"`
}

type DiscordConfig struct {
	Token         string   `mapstructure:"token"`
	MainChannelID string   `mapstructure:"main_channel_id"`
	Aliases       []string `mapstructure:"aliases"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// GitHubConfig is optional; the repository helpers are disabled when the
// token is empty.
type GitHubConfig struct {
	Token string `mapstructure:"token"`
	Repo  string `mapstructure:"repo"`
}

type DatabaseConfig struct {
	URL         string `mapstructure:"url"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.max_tokens", 256)
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("database.use_in_memory", true)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file if one is present; env-only setups are fine.
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Environment variables take precedence over the file.
	if token := v.GetString("DISCORD_BOT_TOKEN"); token != "" {
		config.Discord.Token = token
	}
	if channelID := v.GetString("DISCORD_CHANNEL_ID"); channelID != "" {
		config.Discord.MainChannelID = channelID
	}
	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if ghToken := v.GetString("GITHUB_TOKEN"); ghToken != "" {
		config.GitHub.Token = ghToken
	}
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
		config.Database.UseInMemory = false
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate reports every missing or malformed required field, joined into a
// single error so startup logs name each problem.
func (c *Config) Validate() error {
	var errs []error
	if c.Discord.Token == "" {
		errs = append(errs, errors.New("DISCORD_BOT_TOKEN is required in the environment"))
	}
	if c.Discord.MainChannelID == "" {
		errs = append(errs, errors.New("DISCORD_CHANNEL_ID is required in the environment"))
	} else if !isNumeric(c.Discord.MainChannelID) {
		errs = append(errs, fmt.Errorf("DISCORD_CHANNEL_ID must be a numeric string, got %q", c.Discord.MainChannelID))
	}
	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required in the environment"))
	}
	return errors.Join(errs...)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) == -1
}
