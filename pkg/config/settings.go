package config

import (
	"strings"
)

const (
	templateKeyField = "__template_key"
	doubaoTemplate   = "doubao"

	DefaultEndpointID         = "doubao-seedream-4-5-251128"
	DefaultAPIBase            = "https://ark.cn-beijing.volces.com"
	DefaultSize               = "2K"
	DefaultOptimizePromptMode = "standard"
	DefaultAPIType            = "doubao"
)

// APISettings holds credentials and model selection for the image API.
type APISettings struct {
	ProviderID         string
	APIType            string
	Model              string
	APIKeys            []string
	EndpointID         string
	APIBase            string
	DefaultSize        string
	Watermark          bool
	OptimizePromptMode string
}

type ImageGenerationSettings struct {
	Resolution  string
	AspectRatio string
}

type PersonaSettings struct {
	ReferenceImages  []string
	EnableAutoOutfit bool
	// ReferenceMaxSide downscales reference images whose longest side exceeds it. 0 disables.
	ReferenceMaxSide int
}

// RetrySettings are parsed for compatibility with existing config files.
// Nothing in the request path reads them.
type RetrySettings struct {
	MaxAttemptsPerKey int
	EnableSmartRetry  bool
	TotalTimeout      int
}

type RateLimitSettings struct {
	Enabled       bool
	MaxRequests   int
	PeriodSeconds int
}

// Settings is an immutable snapshot of the plugin configuration.
// Group accessors return copies.
type Settings struct {
	api     APISettings
	image   ImageGenerationSettings
	persona PersonaSettings
	retry   RetrySettings
	rate    RateLimitSettings
}

func (s *Settings) API() APISettings {
	out := s.api
	out.APIKeys = append([]string(nil), s.api.APIKeys...)
	return out
}

func (s *Settings) ImageGeneration() ImageGenerationSettings {
	return s.image
}

func (s *Settings) Persona() PersonaSettings {
	out := s.persona
	out.ReferenceImages = append([]string(nil), s.persona.ReferenceImages...)
	return out
}

func (s *Settings) Retry() RetrySettings {
	return s.retry
}

func (s *Settings) RateLimit() RateLimitSettings {
	return s.rate
}

// Normalize builds Settings from an arbitrary nested mapping. Missing or malformed
// sections fall back to defaults; it never fails.
func Normalize(raw map[string]any) *Settings {
	s := &Settings{}

	apiSection := section(raw, "api_settings")
	s.api = APISettings{
		ProviderID:         stringOr(apiSection, "provider_id", ""),
		APIType:            stringOr(apiSection, "api_type", DefaultAPIType),
		Model:              stringOr(apiSection, "model", ""),
		APIKeys:            []string{},
		EndpointID:         DefaultEndpointID,
		APIBase:            DefaultAPIBase,
		DefaultSize:        DefaultSize,
		Watermark:          false,
		OptimizePromptMode: DefaultOptimizePromptMode,
	}

	override := findOverride(apiSection["provider_overrides"], doubaoTemplate)
	if value, ok := override["api_keys"]; ok {
		s.api.APIKeys = NormalizeKeys(value)
	} else if key, ok := override["api_key"].(string); ok {
		s.api.APIKeys = NormalizeKeys([]any{key})
	}
	if len(override) > 0 {
		s.api.EndpointID = stringOr(override, "endpoint_id", s.api.EndpointID)
		s.api.APIBase = stringOr(override, "api_base", s.api.APIBase)
		s.api.DefaultSize = stringOr(override, "default_size", s.api.DefaultSize)
		s.api.Watermark = boolOr(override, "watermark", s.api.Watermark)
		s.api.OptimizePromptMode = stringOr(override, "optimize_prompt_mode", s.api.OptimizePromptMode)
	}

	imageSection := section(raw, "image_generation_settings")
	s.image = ImageGenerationSettings{
		Resolution:  stringOr(imageSection, "resolution", "1K"),
		AspectRatio: stringOr(imageSection, "aspect_ratio", "1:1"),
	}

	personaSection := section(raw, "persona_settings")
	s.persona = PersonaSettings{
		ReferenceImages:  referenceImages(personaSection["persona_reference_image"]),
		EnableAutoOutfit: boolOr(personaSection, "enable_auto_outfit", true),
		ReferenceMaxSide: intOr(personaSection, "reference_max_side", 0),
	}

	retrySection := section(raw, "retry_settings")
	s.retry = RetrySettings{
		MaxAttemptsPerKey: intOr(retrySection, "max_attempts_per_key", 3),
		EnableSmartRetry:  boolOr(retrySection, "enable_smart_retry", true),
		TotalTimeout:      intOr(retrySection, "total_timeout", 120),
	}

	rateSection := section(raw, "rate_limit_settings")
	s.rate = RateLimitSettings{
		Enabled:       boolOr(rateSection, "enabled", true),
		MaxRequests:   intOr(rateSection, "max_requests", 5),
		PeriodSeconds: intOr(rateSection, "period_seconds", 60),
	}

	return s
}

// NormalizeKeys trims string keys, drops empty ones and duplicates. Anything that is
// not a list of strings yields an empty list.
func NormalizeKeys(value any) []string {
	keys := []string{}
	var items []any
	switch v := value.(type) {
	case []any:
		items = v
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	default:
		return keys
	}

	seen := make(map[string]bool, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		keys = append(keys, s)
	}
	return keys
}

// findOverride returns a copy of the first override whose discriminator matches,
// without the discriminator itself.
func findOverride(value any, template string) map[string]any {
	list, ok := value.([]any)
	if !ok {
		return map[string]any{}
	}
	for _, item := range list {
		m := asMap(item)
		if m == nil {
			continue
		}
		if key, _ := m[templateKeyField].(string); key != template {
			continue
		}
		out := make(map[string]any, len(m))
		for k, v := range m {
			if k != templateKeyField {
				out[k] = v
			}
		}
		return out
	}
	return map[string]any{}
}

func referenceImages(value any) []string {
	switch v := value.(type) {
	case string:
		if v == "" {
			return []string{}
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return append([]string{}, v...)
	}
	return []string{}
}

func section(raw map[string]any, name string) map[string]any {
	if m := asMap(raw[name]); m != nil {
		return m
	}
	return map[string]any{}
}

// asMap accepts both decoder shapes: yaml.v3 yields map[string]any, older decoders
// produce map[any]any.
func asMap(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out
	}
	return nil
}

func stringOr(m map[string]any, key, def string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return def
}

func boolOr(m map[string]any, key string, def bool) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return def
}

func intOr(m map[string]any, key string, def int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}
