package handlers

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

// MessageHandler handles message commands
func MessageHandler(s *discordgo.Session, m *discordgo.MessageCreate) {
	// If message is sent from the bot
	if m.Author == nil || m.Author.Bot || m.Author.ID == s.State.User.ID {
		return
	}
	prefix := viper.GetString("prefix")

	switch prefixCommand(m.Content, prefix) {
	case "":
		return
	case "help":
		HelpEmbedding(s, m)
	default:
		s.ChannelMessageSend(m.ChannelID, "type `"+prefix+"help` to open help menu.") // invalid prefix command
	}
}

// prefixCommand returns the word following prefix, or "" if content is not a
// prefix command. A bare prefix returns a single space.
func prefixCommand(content, prefix string) string {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return ""
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return " "
	}
	return strings.ToLower(fields[0])
}
