package bot

import (
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
)

func (h *Handler) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	h.HandleMessage(s, m)
}

func (h *Handler) HandleMessage(s Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == h.botID {
		return
	}

	conv := newChannelConversation(s, m)

	if outfit, ok := h.parseCommand(m.Content); ok {
		log.Printf("[Selfie] Command from %s in %s", m.Author.ID, m.ChannelID)
		h.HandleSelfieCommand(h.ctx, conv, outfit)
		return
	}

	if h.chat == nil {
		return
	}

	// Get channel info to check if it's a DM
	channel, err := s.Channel(m.ChannelID)
	isDM := err == nil && channel.Type == discordgo.ChannelTypeDM

	isMentioned := false
	for _, user := range m.Mentions {
		if user.ID == h.botID {
			isMentioned = true
			break
		}
	}

	if !isMentioned && !isDM {
		return
	}

	s.ChannelTyping(m.ChannelID)

	content := strings.TrimSpace(strings.NewReplacer(
		"<@"+h.botID+">", "",
		"<@!"+h.botID+">", "",
	).Replace(m.Content))

	reply, err := h.runAgent(h.ctx, content, m, conv)
	if err != nil {
		log.Printf("[Agent] Failed to answer %s: %v", m.Author.ID, err)
		return
	}
	h.sendSplitMessage(s, m.ChannelID, reply, m.Reference())
}

// parseCommand matches a message that is exactly an alias, or a slash alias
// followed by an outfit ("/自拍 <outfit>"). Bare-word aliases take no arguments.
func (h *Handler) parseCommand(content string) (string, bool) {
	trimmed := strings.TrimSpace(content)
	if h.aliases[trimmed] {
		return "", true
	}
	fields := strings.Fields(trimmed)
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "/") || !h.aliases[fields[0]] {
		return "", false
	}
	return strings.Join(fields[1:], " "), true
}

func (h *Handler) sendSplitMessage(s Session, channelID, content string, reference *discordgo.MessageReference) {
	parts := strings.Split(content, "\n\n")

	isFirstPart := true
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		var err error
		if reference == nil {
			_, err = s.ChannelMessageSend(channelID, part)
		} else if isFirstPart {
			// The first part of a reply pings the user by default
			_, err = s.ChannelMessageSendReply(channelID, part, reference)
			isFirstPart = false
		} else {
			_, err = s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
				Content:   part,
				Reference: reference,
				AllowedMentions: &discordgo.MessageAllowedMentions{
					RepliedUser: false,
				},
			})
		}

		if err != nil {
			log.Printf("Error sending message part: %v", err)
		}
	}
}
