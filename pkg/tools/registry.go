package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	validator *Validator
}

func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]Tool),
		validator: NewValidator(),
	}
}

func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("tool %s already registered", tool.Name())
	}
	r.tools[tool.Name()] = tool
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *Registry) Execute(ctx context.Context, name string, params map[string]any, toolCtx *ToolContext) (Result, error) {
	tool, ok := r.Get(name)
	if !ok {
		return Result{}, fmt.Errorf("tool %s not found", name)
	}

	// Invalid arguments go back to the model as a failed result it can correct.
	validated, errs := r.validator.Validate(tool.Parameters(), params)
	if len(errs) > 0 {
		return Result{Success: false, Error: errs.ToLLMMessage()}, nil
	}
	return tool.Execute(ctx, validated, toolCtx)
}

func (r *Registry) GetToolDefinitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	definitions := make([]ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		definitions = append(definitions, ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}
	sort.Slice(definitions, func(i, j int) bool { return definitions[i].Name < definitions[j].Name })
	return definitions
}

type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

func (r *Registry) ListTools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseArguments decodes the JSON argument string of a model tool call.
func ParseArguments(arguments string) (map[string]any, error) {
	params := make(map[string]any)
	if arguments == "" {
		return params, nil
	}
	if err := json.Unmarshal([]byte(arguments), &params); err != nil {
		return nil, fmt.Errorf("parse parameters: %w", err)
	}
	return params, nil
}
