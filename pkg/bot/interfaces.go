package bot

import (
	"context"

	"selfiebot/pkg/llm"
	"selfiebot/pkg/seedream"
	"selfiebot/pkg/tools"

	"github.com/bwmarrin/discordgo"
)

// Session interface abstracts discordgo.Session for testing
type Session interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) (err error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Conversation is where a selfie request came from and where its result goes.
type Conversation interface {
	tools.Responder
	UserID() string
	// Origin identifies the conversation for the scheduler, e.g. "discord:<channel>".
	Origin() string
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, req seedream.Request) (string, error)
	Close()
}

type ChatClient interface {
	ChatCompletionWithTools(ctx context.Context, messages []llm.Message, defs []tools.ToolDefinition) (*llm.Reply, error)
}
