package discord

import (
	"context"

	"Encore/message"
	"Encore/model"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

// MessageAPI is the part of *discordgo.Session used to post messages.
type MessageAPI interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Sender posts one embed somewhere, e.g. a channel or an interaction response.
type Sender interface {
	Send(embed *discordgo.MessageEmbed) (*discordgo.Message, error)
}

// Messenger renders messages and keeps a single live action message per guild.
type Messenger struct {
	api MessageAPI
}

func NewMessenger(api MessageAPI) *Messenger {
	return &Messenger{api: api}
}

// Notify posts msgs to a text channel.
func (m *Messenger) Notify(ctx context.Context, g *model.Guild, channelID string, msgs []message.Message) error {
	return m.Deliver(g, &channelSender{api: m.api, channelID: channelID}, msgs)
}

// Deliver sends msgs in order through to. Each action message replaces the
// guild's previous one. The guild must be locked by the caller.
func (m *Messenger) Deliver(g *model.Guild, to Sender, msgs []message.Message) error {
	for _, msg := range msgs {
		sent, err := to.Send(Embed(msg))
		if err != nil {
			return err
		}
		if msg.IsAction() && sent != nil {
			m.replaceAction(g, sent)
		}
	}
	return nil
}

func (m *Messenger) replaceAction(g *model.Guild, sent *discordgo.Message) {
	if old := g.LastAction(); old != nil {
		if err := m.api.ChannelMessageDelete(old.ChannelID, old.MessageID); err != nil {
			log.WithFields(log.Fields{
				"guild_id":   g.ID(),
				"message_id": old.MessageID,
				"error":      err,
			}).Debug("Could not delete previous action message")
		}
	}
	g.SetLastAction(&model.ActionRef{ChannelID: sent.ChannelID, MessageID: sent.ID})
}

// Embed renders a message in the bot's theme colour.
func Embed(msg message.Message) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: msg.Render(),
		Color:       viper.GetInt("theme"),
	}
}

type channelSender struct {
	api       MessageAPI
	channelID string
}

func (c *channelSender) Send(embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	return c.api.ChannelMessageSendEmbed(c.channelID, embed)
}
