package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_EmptyYieldsDefaults(t *testing.T) {
	for _, raw := range []map[string]any{nil, {}} {
		s := Normalize(raw)

		api := s.API()
		assert.Equal(t, []string{}, api.APIKeys)
		assert.Equal(t, DefaultEndpointID, api.EndpointID)
		assert.Equal(t, DefaultAPIBase, api.APIBase)
		assert.Equal(t, "2K", api.DefaultSize)
		assert.False(t, api.Watermark)
		assert.Equal(t, "standard", api.OptimizePromptMode)
		assert.Equal(t, "doubao", api.APIType)

		assert.Equal(t, "1K", s.ImageGeneration().Resolution)
		assert.Equal(t, "1:1", s.ImageGeneration().AspectRatio)

		assert.True(t, s.Persona().EnableAutoOutfit)
		assert.Empty(t, s.Persona().ReferenceImages)

		assert.Equal(t, 3, s.Retry().MaxAttemptsPerKey)
		assert.True(t, s.Retry().EnableSmartRetry)
		assert.Equal(t, 120, s.Retry().TotalTimeout)

		assert.True(t, s.RateLimit().Enabled)
		assert.Equal(t, 5, s.RateLimit().MaxRequests)
		assert.Equal(t, 60, s.RateLimit().PeriodSeconds)
	}
}

func TestNormalize_APIKeys(t *testing.T) {
	overrides := func(entry map[string]any) map[string]any {
		entry["__template_key"] = "doubao"
		return map[string]any{
			"api_settings": map[string]any{
				"provider_overrides": []any{entry},
			},
		}
	}

	t.Run("list is trimmed and filtered", func(t *testing.T) {
		s := Normalize(overrides(map[string]any{"api_keys": []any{" a ", "", "b"}}))
		assert.Equal(t, []string{"a", "b"}, s.API().APIKeys)
	})

	t.Run("duplicates are dropped", func(t *testing.T) {
		s := Normalize(overrides(map[string]any{"api_keys": []any{"a", " a", 3, "b"}}))
		assert.Equal(t, []string{"a", "b"}, s.API().APIKeys)
	})

	t.Run("legacy single key", func(t *testing.T) {
		s := Normalize(overrides(map[string]any{"api_key": " x "}))
		assert.Equal(t, []string{"x"}, s.API().APIKeys)
	})

	t.Run("legacy blank key", func(t *testing.T) {
		s := Normalize(overrides(map[string]any{"api_key": "   "}))
		assert.Equal(t, []string{}, s.API().APIKeys)
	})

	t.Run("list wins over legacy key", func(t *testing.T) {
		s := Normalize(overrides(map[string]any{"api_keys": nil, "api_key": "x"}))
		assert.Equal(t, []string{}, s.API().APIKeys)
	})

	t.Run("neither", func(t *testing.T) {
		s := Normalize(overrides(map[string]any{}))
		assert.Equal(t, []string{}, s.API().APIKeys)
	})
}

func TestNormalize_ProviderOverrides(t *testing.T) {
	raw := map[string]any{
		"api_settings": map[string]any{
			"provider_id": "ark",
			"provider_overrides": []any{
				"junk",
				map[string]any{"__template_key": "openai", "api_base": "https://wrong"},
				map[string]any{
					"__template_key":       "doubao",
					"api_keys":             []any{"k1"},
					"endpoint_id":          "seedream-x",
					"api_base":             "https://example.test/",
					"default_size":         "4K",
					"watermark":            true,
					"optimize_prompt_mode": "fast",
				},
				map[string]any{"__template_key": "doubao", "endpoint_id": "second"},
			},
		},
	}

	api := Normalize(raw).API()
	assert.Equal(t, "ark", api.ProviderID)
	assert.Equal(t, []string{"k1"}, api.APIKeys)
	assert.Equal(t, "seedream-x", api.EndpointID)
	assert.Equal(t, "https://example.test/", api.APIBase)
	assert.Equal(t, "4K", api.DefaultSize)
	assert.True(t, api.Watermark)
	assert.Equal(t, "fast", api.OptimizePromptMode)
}

func TestNormalize_MalformedSections(t *testing.T) {
	raw := map[string]any{
		"api_settings":              "not a map",
		"image_generation_settings": []any{1, 2},
		"persona_settings":          map[string]any{"persona_reference_image": 42, "enable_auto_outfit": "yes"},
		"retry_settings":            map[string]any{"max_attempts_per_key": "three"},
		"rate_limit_settings":       map[string]any{"max_requests": 2.0, "period_seconds": "soon", "enabled": false},
	}

	assert.NotPanics(t, func() {
		s := Normalize(raw)
		assert.Equal(t, []string{}, s.API().APIKeys)
		assert.Equal(t, "1K", s.ImageGeneration().Resolution)
		assert.Empty(t, s.Persona().ReferenceImages)
		assert.True(t, s.Persona().EnableAutoOutfit)
		assert.Equal(t, 3, s.Retry().MaxAttemptsPerKey)
		assert.False(t, s.RateLimit().Enabled)
		assert.Equal(t, 2, s.RateLimit().MaxRequests)
		assert.Equal(t, 60, s.RateLimit().PeriodSeconds)
	})
}

func TestNormalize_ReferenceImages(t *testing.T) {
	single := Normalize(map[string]any{"persona_settings": map[string]any{"persona_reference_image": "me.png"}})
	assert.Equal(t, []string{"me.png"}, single.Persona().ReferenceImages)

	list := Normalize(map[string]any{"persona_settings": map[string]any{"persona_reference_image": []any{"", "a.png", 7, "b.jpg"}}})
	assert.Equal(t, []string{"a.png", "b.jpg"}, list.Persona().ReferenceImages)
}

func TestSettings_GroupsAreCopies(t *testing.T) {
	s := Normalize(map[string]any{
		"api_settings": map[string]any{
			"provider_overrides": []any{map[string]any{"__template_key": "doubao", "api_keys": []any{"a"}}},
		},
	})

	api := s.API()
	api.APIKeys[0] = "mutated"
	assert.Equal(t, []string{"a"}, s.API().APIKeys)

	withKeys := s.WithAPIKeys([]string{" z "})
	assert.Equal(t, []string{"z"}, withKeys.API().APIKeys)
	assert.Equal(t, []string{"a"}, s.API().APIKeys)
}

func TestKeysFromEnv(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, KeysFromEnv(" a, ,b,a "))
	assert.Equal(t, []string{}, KeysFromEnv(""))
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig("non_existent_config.yml")
	require.NoError(t, err)

	assert.Equal(t, 5, config.RateLimit().MaxRequests)
	assert.Equal(t, 60, config.RateLimit().PeriodSeconds)
	assert.Equal(t, []string{}, config.API().APIKeys)
	assert.Equal(t, DefaultCommandAliases, config.BotSettings.CommandAliases)
	assert.Equal(t, "data", config.BotSettings.DataDir)
	assert.Equal(t, "daily_schedule", config.ScheduleSettings.Table)
	assert.True(t, config.ScheduleSettings.GenerateMissing)
}

func TestLoadConfig_ValidFile(t *testing.T) {
	content := []byte(`
api_settings:
  provider_overrides:
    - __template_key: doubao
      api_keys: [" key-1 ", "", "key-2"]
      default_size: 4k
image_generation_settings:
  resolution: 2K
persona_settings:
  persona_reference_image:
    - persona/marin.png
  enable_auto_outfit: false
rate_limit_settings:
  max_requests: 2
  period_seconds: 30
bot_settings:
  data_dir: /var/lib/selfie
llm_settings:
  model: test-model
  temperature: 0.2
`)
	path := writeTemp(t, content)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"key-1", "key-2"}, config.API().APIKeys)
	assert.Equal(t, "4k", config.API().DefaultSize)
	assert.Equal(t, "2K", config.ImageGeneration().Resolution)
	assert.Equal(t, []string{"persona/marin.png"}, config.Persona().ReferenceImages)
	assert.False(t, config.Persona().EnableAutoOutfit)
	assert.Equal(t, 2, config.RateLimit().MaxRequests)
	assert.Equal(t, 30, config.RateLimit().PeriodSeconds)
	assert.Equal(t, "/var/lib/selfie", config.BotSettings.DataDir)
	assert.Equal(t, DefaultCommandAliases, config.BotSettings.CommandAliases)
	assert.Equal(t, "test-model", config.LLMSettings.Model)
	assert.Equal(t, 0.2, config.LLMSettings.Temperature)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeTemp(t, []byte(`
api_settings:
  broken_yaml: [ unclosed bracket
`))

	config, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, config)
}

func writeTemp(t *testing.T, content []byte) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "config_test_*.yml")
	require.NoError(t, err)
	_, err = tmpfile.Write(content)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())
	return tmpfile.Name()
}
