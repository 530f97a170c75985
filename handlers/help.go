package handlers

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

var helpCommands = []struct {
	usage       string
	description string
}{
	{"/play <term>", "Queue a song from a Youtube link, playlist or search"},
	{"/replace <term>", "Replace your most recently queued song"},
	{"/pause", "Pause the current song"},
	{"/resume", "Resume the paused song or start the queue"},
	{"/skip", "Vote to skip the current song"},
	{"/stop", "Vote to stop playback in your channel"},
	{"/nowplaying", "Show the song that's now playing"},
	{"/pet", "Pet the bot"},
}

// helpEmbed creates the embedding for the help menu
func helpEmbed(avatarURL string) *discordgo.MessageEmbed {
	var b strings.Builder
	for _, c := range helpCommands {
		fmt.Fprintf(&b, "`%s` %s\n", c.usage, c.description)
	}
	return &discordgo.MessageEmbed{
		Title:       "Encore Help",
		Description: b.String(),
		Color:       viper.GetInt("theme"),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Everyone gets a turn: queues are played round-robin per user.",
		},
		Thumbnail: &discordgo.MessageEmbedThumbnail{
			URL: avatarURL,
		},
	}
}

// HelpEmbedding sends the help menu
func HelpEmbedding(s *discordgo.Session, m *discordgo.MessageCreate) {
	s.ChannelMessageSendEmbed(m.ChannelID, helpEmbed(s.State.User.AvatarURL("64")))
}
