package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

func isRemote(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

func imageEmbed(url string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Image: &discordgo.MessageEmbedImage{URL: url}}
}

func openImage(path string) (*discordgo.File, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open image: %w", err)
	}
	return &discordgo.File{
		Name:        filepath.Base(path),
		ContentType: "image/png",
		Reader:      f,
	}, f, nil
}

// channelConversation answers in a text channel, replying to the triggering message.
type channelConversation struct {
	s         Session
	channelID string
	userID    string
	reference *discordgo.MessageReference
}

func newChannelConversation(s Session, m *discordgo.MessageCreate) *channelConversation {
	c := &channelConversation{s: s, channelID: m.ChannelID, reference: m.Reference()}
	if m.Author != nil {
		c.userID = m.Author.ID
	}
	return c
}

func (c *channelConversation) UserID() string { return c.userID }

func (c *channelConversation) Origin() string { return "discord:" + c.channelID }

func (c *channelConversation) SendText(ctx context.Context, text string) error {
	var err error
	if c.reference != nil {
		_, err = c.s.ChannelMessageSendReply(c.channelID, text, c.reference)
	} else {
		_, err = c.s.ChannelMessageSend(c.channelID, text)
	}
	return err
}

func (c *channelConversation) SendImage(ctx context.Context, locator string) error {
	msg := &discordgo.MessageSend{
		Reference: c.reference,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			RepliedUser: false,
		},
	}
	if isRemote(locator) {
		msg.Embeds = []*discordgo.MessageEmbed{imageEmbed(locator)}
	} else {
		file, f, err := openImage(locator)
		if err != nil {
			return err
		}
		defer f.Close()
		msg.Files = []*discordgo.File{file}
	}
	_, err := c.s.ChannelMessageSendComplex(c.channelID, msg)
	return err
}

// interactionConversation answers a slash command: the first message is the
// interaction response, later ones are followups.
type interactionConversation struct {
	s           Session
	interaction *discordgo.Interaction
	userID      string

	mu        sync.Mutex
	responded bool
}

func newInteractionConversation(s Session, i *discordgo.InteractionCreate, userID string) *interactionConversation {
	return &interactionConversation{s: s, interaction: i.Interaction, userID: userID}
}

func (c *interactionConversation) UserID() string { return c.userID }

func (c *interactionConversation) Origin() string { return "discord:" + c.interaction.ChannelID }

func (c *interactionConversation) SendText(ctx context.Context, text string) error {
	return c.send(text, nil, nil)
}

func (c *interactionConversation) SendImage(ctx context.Context, locator string) error {
	if isRemote(locator) {
		return c.send("", []*discordgo.MessageEmbed{imageEmbed(locator)}, nil)
	}
	file, f, err := openImage(locator)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.send("", nil, []*discordgo.File{file})
}

func (c *interactionConversation) send(content string, embeds []*discordgo.MessageEmbed, files []*discordgo.File) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.responded {
		err := c.s.InteractionRespond(c.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: content,
				Embeds:  embeds,
				Files:   files,
			},
		})
		if err != nil {
			return err
		}
		c.responded = true
		return nil
	}

	_, err := c.s.FollowupMessageCreate(c.interaction, true, &discordgo.WebhookParams{
		Content: content,
		Embeds:  embeds,
		Files:   files,
	})
	return err
}
