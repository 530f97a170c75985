package discord

import (
	"context"

	"Encore/speaker"

	"github.com/bwmarrin/discordgo"
)

// Connector joins voice channels as one bot account.
type Connector struct {
	s *discordgo.Session
}

func NewConnector(s *discordgo.Session) *Connector {
	return &Connector{s: s}
}

func (c *Connector) ID() string {
	if c.s.State == nil || c.s.State.User == nil {
		return ""
	}
	return c.s.State.User.ID
}

func (c *Connector) Join(ctx context.Context, guildID, channelID string) (speaker.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vc, err := c.s.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, err
	}
	return &Conn{s: c.s, vc: vc, guildID: guildID, userID: c.ID()}, nil
}

// Conn is a voice connection of one bot account.
type Conn struct {
	s       *discordgo.Session
	vc      *discordgo.VoiceConnection
	guildID string
	userID  string
}

func (c *Conn) Voice() *discordgo.VoiceConnection {
	return c.vc
}

// ChannelID reports the channel the bot is in according to the gateway. It is
// empty once the connection was replaced or the bot was disconnected.
func (c *Conn) ChannelID() string {
	c.s.RLock()
	current := c.s.VoiceConnections[c.guildID]
	c.s.RUnlock()
	if current != c.vc {
		return ""
	}

	vs, err := c.s.State.VoiceState(c.guildID, c.userID)
	if err != nil {
		return ""
	}
	return vs.ChannelID
}

func (c *Conn) Disconnect() error {
	return c.vc.Disconnect()
}
