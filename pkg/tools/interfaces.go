package tools

import (
	"context"
	"time"
)

type Tool interface {
	Name() string
	Description() string
	Parameters() ParameterSchema
	Execute(ctx context.Context, params map[string]any, toolCtx *ToolContext) (Result, error)
}

type ParameterSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]PropertySchema `json:"properties,omitempty"`
	Required   []string                  `json:"required,omitempty"`
}

type PropertySchema struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Enum        []string `json:"enum,omitempty"`
}

// AsMap renders the schema in the JSON-schema shape chat APIs expect.
func (s ParameterSchema) AsMap() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[name] = prop
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       s.Type,
		"properties": props,
		"required":   required,
	}
}

type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Responder lets a tool talk back to the conversation it was called from after it
// has returned.
type Responder interface {
	SendText(ctx context.Context, text string) error
	SendImage(ctx context.Context, locator string) error
}

// ToolContext provides context for tool execution
type ToolContext struct {
	ChannelID string
	UserID    string
	GuildID   string
	MessageID string
	// Origin identifies the conversation across platforms, e.g. "discord:<channel>".
	Origin    string
	Responder Responder
	StartedAt time.Time
}
