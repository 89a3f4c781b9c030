package bot

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

// SlashCommands defines all available slash commands
var SlashCommands = []*discordgo.ApplicationCommand{
	{
		Name:              "selfie",
		NameLocalizations: &map[discordgo.Locale]string{discordgo.ChineseCN: "自拍"},
		Description:       "Ask the bot for a selfie",
		DescriptionLocalizations: &map[discordgo.Locale]string{
			discordgo.ChineseCN: "生成一张 Bot 的自拍",
		},
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "outfit",
				Description: "What to wear (defaults to today's outfit)",
				NameLocalizations: map[discordgo.Locale]string{
					discordgo.ChineseCN: "穿搭",
				},
				Required: false,
			},
		},
	},
}

// SlashCommandHandlers maps command names to their handler functions
var SlashCommandHandlers = map[string]func(h *Handler, s Session, i *discordgo.InteractionCreate){
	"selfie": handleSelfieSlashCommand,
}

func handleSelfieSlashCommand(h *Handler, s Session, i *discordgo.InteractionCreate) {
	userID, err := getUserFromInteraction(i)
	if err != nil {
		log.Printf("Error: %v", err)
		userID = ""
	}

	outfit := ""
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "outfit" && opt.Type == discordgo.ApplicationCommandOptionString {
			outfit = opt.StringValue()
		}
	}

	h.HandleSelfieCommand(h.ctx, newInteractionConversation(s, i, userID), outfit)
}

// InteractionCreate handles all slash command interactions
func (h *Handler) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.HandleInteraction(s, i)
}

func (h *Handler) HandleInteraction(s Session, i *discordgo.InteractionCreate) {
	// Only handle application commands (slash commands)
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	commandName := i.ApplicationCommandData().Name

	if handler, ok := SlashCommandHandlers[commandName]; ok {
		handler(h, s, i)
	} else {
		log.Printf("Unknown slash command: %s", commandName)
	}
}

// getUserFromInteraction extracts the user ID from an interaction in a guild (Member)
// or a DM (User).
func getUserFromInteraction(i *discordgo.InteractionCreate) (string, error) {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID, nil
	}
	if i.User != nil {
		return i.User.ID, nil
	}
	return "", fmt.Errorf("could not determine user from interaction")
}

// RegisterSlashCommands registers all slash commands with Discord
func RegisterSlashCommands(s *discordgo.Session, guildID string) ([]*discordgo.ApplicationCommand, error) {
	log.Println("Registering slash commands...")

	registeredCommands := make([]*discordgo.ApplicationCommand, len(SlashCommands))

	for i, cmd := range SlashCommands {
		// Register globally (guildID = "") or for a specific guild
		registeredCmd, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, cmd)
		if err != nil {
			log.Printf("Cannot create '%s' command: %v", cmd.Name, err)
			return nil, err
		}
		registeredCommands[i] = registeredCmd
		log.Printf("Registered command: %s", cmd.Name)
	}

	return registeredCommands, nil
}

// UnregisterSlashCommands removes all registered slash commands
func UnregisterSlashCommands(s *discordgo.Session, guildID string, commands []*discordgo.ApplicationCommand) error {
	log.Println("Unregistering slash commands...")

	for _, cmd := range commands {
		err := s.ApplicationCommandDelete(s.State.User.ID, guildID, cmd.ID)
		if err != nil {
			log.Printf("Cannot delete '%s' command: %v", cmd.Name, err)
			return err
		}
		log.Printf("Unregistered command: %s", cmd.Name)
	}

	return nil
}
