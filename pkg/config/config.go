package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration: the normalized plugin Settings plus
// the sections the bot host needs.
type Config struct {
	*Settings `yaml:"-"`

	BotSettings struct {
		CommandAliases []string `yaml:"command_aliases"`
		DataDir        string   `yaml:"data_dir"`
		OutputDir      string   `yaml:"output_dir"`
	} `yaml:"bot_settings"`
	LLMSettings struct {
		BaseURL      string  `yaml:"base_url"`
		Model        string  `yaml:"model"`
		Temperature  float64 `yaml:"temperature"`
		SystemPrompt string  `yaml:"system_prompt"`
	} `yaml:"llm_settings"`
	ScheduleSettings struct {
		Table           string `yaml:"table"`
		GenerateMissing bool   `yaml:"generate_missing"`
	} `yaml:"schedule_settings"`
}

var DefaultCommandAliases = []string{"/自拍", "自拍", "selfie"}

func defaultConfig() *Config {
	config := &Config{Settings: Normalize(nil)}
	config.BotSettings.CommandAliases = append([]string(nil), DefaultCommandAliases...)
	config.BotSettings.DataDir = "data"
	config.LLMSettings.Model = "gpt-4o-mini"
	config.LLMSettings.Temperature = 0.7
	config.ScheduleSettings.Table = "daily_schedule"
	config.ScheduleSettings.GenerateMissing = true
	return config
}

func LoadConfig(path string) (*Config, error) {
	config := defaultConfig()

	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return config, nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Host sections decode onto the defaults; plugin sections go through Normalize
	// so malformed values never fail the load.
	if err := yaml.Unmarshal(file, config); err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(file, &raw); err != nil {
		return nil, err
	}
	config.Settings = Normalize(raw)

	if len(config.BotSettings.CommandAliases) == 0 {
		config.BotSettings.CommandAliases = append([]string(nil), DefaultCommandAliases...)
	}

	return config, nil
}

// KeysFromEnv parses a comma separated key list the same way configured keys are normalized.
func KeysFromEnv(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]any, len(parts))
	for i, p := range parts {
		items[i] = p
	}
	return NormalizeKeys(items)
}

// WithAPIKeys returns a copy of s using keys. s itself is left untouched.
func (s *Settings) WithAPIKeys(keys []string) *Settings {
	out := *s
	out.api.APIKeys = NormalizeKeys(keys)
	out.persona.ReferenceImages = append([]string(nil), s.persona.ReferenceImages...)
	return &out
}
