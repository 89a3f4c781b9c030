package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"selfiebot/pkg/llm"
)

// ChatClient is the completion call the generator needs.
type ChatClient interface {
	ChatCompletion(ctx context.Context, messages []llm.Message) (string, error)
}

const generatorSystemPrompt = `You plan the day of a cheerful anime girl who chats on Discord.
Reply with a single JSON object and nothing else:
{"outfit": "<what she wears today, one sentence, in Chinese>", "schedule": "<her plan for the day, a few short lines, in Chinese>"}`

// LLMGenerator asks a chat model for the day's outfit and plan.
type LLMGenerator struct {
	chat  ChatClient
	saver Saver
}

// NewLLMGenerator returns a generator; saver may be nil.
func NewLLMGenerator(chat ChatClient, saver Saver) *LLMGenerator {
	return &LLMGenerator{chat: chat, saver: saver}
}

func (g *LLMGenerator) Generate(ctx context.Context, day time.Time, origin string) (*View, error) {
	date := day.Format(DateLayout)
	user := fmt.Sprintf("Today is %s (%s).", date, day.Weekday())
	if origin != "" {
		user += fmt.Sprintf(" The request came from %s.", origin)
	}

	content, err := g.chat.ChatCompletion(ctx, []llm.Message{
		{Role: "system", Content: generatorSystemPrompt},
		{Role: "user", Content: user},
	})
	if err != nil {
		return nil, err
	}

	view, err := parseView(content)
	if err != nil {
		return nil, err
	}
	view.Date = date

	if g.saver != nil {
		if err := g.saver.Save(ctx, view); err != nil {
			log.Printf("[Schedule] Failed to save schedule for %s: %v", date, err)
		}
	}
	return view, nil
}

func parseView(content string) (*View, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var view View
	if err := json.Unmarshal([]byte(content), &view); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	view.Outfit = strings.TrimSpace(view.Outfit)
	return &view, nil
}
