package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"selfiebot/pkg/llm"
	"selfiebot/pkg/tools"

	"github.com/bwmarrin/discordgo"
)

const (
	maxToolIterations = 3
	emptyReplyText    = "Sorry, I couldn't process that. Please try again."
)

const defaultSystemPrompt = "You are a friendly anime girl chatting on Discord. Keep replies short and playful. " +
	"When someone asks for a selfie or a photo of you, call the " + SelfieToolName + " tool, then tell them in character that the picture is on its way."

// runAgent answers one message, executing tool calls until the model replies with text.
func (h *Handler) runAgent(ctx context.Context, content string, m *discordgo.MessageCreate, conv Conversation) (string, error) {
	systemPrompt := h.systemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: content},
	}
	defs := h.registry.GetToolDefinitions()

	toolCtx := &tools.ToolContext{
		ChannelID: m.ChannelID,
		UserID:    conv.UserID(),
		GuildID:   m.GuildID,
		MessageID: m.ID,
		Origin:    conv.Origin(),
		Responder: conv,
		StartedAt: time.Now(),
	}

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		reply, err := h.chat.ChatCompletionWithTools(ctx, messages, defs)
		if err != nil {
			return "", err
		}

		if len(reply.ToolCalls) == 0 {
			if strings.TrimSpace(reply.Content) == "" {
				return emptyReplyText, nil
			}
			return reply.Content, nil
		}

		log.Printf("[Agent] Tool iteration %d: processing %d tool calls", iteration+1, len(reply.ToolCalls))
		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   reply.Content,
			ToolCalls: reply.ToolCalls,
		})
		for _, call := range reply.ToolCalls {
			messages = append(messages, llm.Message{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    h.executeToolCall(ctx, call, toolCtx),
			})
		}
	}

	return "", fmt.Errorf("max tool iterations reached")
}

// executeToolCall runs one call and renders its outcome as the text the model sees.
func (h *Handler) executeToolCall(ctx context.Context, call llm.ToolCall, toolCtx *tools.ToolContext) string {
	params, err := tools.ParseArguments(call.Arguments)
	if err != nil {
		log.Printf("[Agent] Failed to parse arguments for %s: %v", call.Name, err)
		params = map[string]any{}
	}

	result, err := h.registry.Execute(ctx, call.Name, params, toolCtx)
	if err != nil {
		return "Error: " + err.Error()
	}
	if !result.Success {
		return result.Error
	}

	switch data := result.Data.(type) {
	case string:
		return data
	case nil:
		return "ok"
	default:
		encoded, err := json.Marshal(data)
		if err != nil {
			return fmt.Sprintf("%v", data)
		}
		return string(encoded)
	}
}
