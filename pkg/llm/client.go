package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"selfiebot/pkg/tools"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const defaultModel = "gpt-4o-mini"

type Message struct {
	Role       string
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Reply struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}

// Client talks to any OpenAI compatible chat completions endpoint.
type Client struct {
	client      openai.Client
	model       string
	temperature float64
}

func NewClient(apiKey, baseURL, model string, temperature float64) *Client {
	if model == "" {
		model = defaultModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: temperature,
	}
}

func (c *Client) ChatCompletion(ctx context.Context, messages []Message) (string, error) {
	reply, err := c.ChatCompletionWithTools(ctx, messages, nil)
	if err != nil {
		return "", err
	}
	return reply.Content, nil
}

func (c *Client) ChatCompletionWithTools(ctx context.Context, messages []Message, defs []tools.ToolDefinition) (*Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Messages:    toParams(messages),
		Temperature: openai.Float(c.temperature),
	}

	if len(defs) > 0 {
		toolParams := make([]openai.ChatCompletionToolParam, len(defs))
		for i, d := range defs {
			toolParams[i] = openai.ChatCompletionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        d.Name,
					Description: openai.String(d.Description),
					Parameters:  shared.FunctionParameters(d.Parameters.AsMap()),
				},
			}
		}
		params.Tools = toolParams
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from model %s", c.model)
	}

	choice := resp.Choices[0]
	reply := &Reply{
		Content: choice.Message.Content,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	log.Printf("[LLM] %s success (took %v, tokens: in=%d, out=%d, tool calls=%d)",
		c.model, time.Since(start), reply.Usage.PromptTokens, reply.Usage.CompletionTokens, len(reply.ToolCalls))

	return reply, nil
}

func toParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case "system":
			out[i] = openai.SystemMessage(msg.Content)
		case "assistant":
			if len(msg.ToolCalls) == 0 {
				out[i] = openai.AssistantMessage(msg.Content)
				continue
			}
			calls := make([]openai.ChatCompletionMessageToolCallParam, len(msg.ToolCalls))
			for j, tc := range msg.ToolCalls {
				calls[j] = openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
			assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: calls}
			if msg.Content != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			out[i] = openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
		case "tool":
			out[i] = openai.ToolMessage(msg.Content, msg.ToolCallID)
		default:
			out[i] = openai.UserMessage(msg.Content)
		}
	}
	return out
}
