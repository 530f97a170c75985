package discord

import (
	"context"

	"Encore/model"

	"github.com/bwmarrin/discordgo"
)

// Members answers voice membership questions from a session's state cache.
type Members struct {
	state  *discordgo.State
	ignore map[string]bool
}

// NewMembers reads voice states from state. Users in ignore, typically the
// speaker bots, never count towards channel occupancy.
func NewMembers(state *discordgo.State, ignore ...string) *Members {
	m := &Members{state: state, ignore: make(map[string]bool, len(ignore))}
	for _, id := range ignore {
		m.ignore[id] = true
	}
	return m
}

// Delegate snapshots the guild's voice states. The snapshot does not change when
// users move afterwards.
func (m *Members) Delegate(ctx context.Context, guildID string) (model.Delegate, error) {
	guild, err := m.state.Guild(guildID)
	if err != nil {
		return nil, err
	}

	snap := voiceSnapshot{
		channels:  make(map[string]string),
		occupancy: make(map[string]int),
	}
	m.state.RLock()
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == "" {
			continue
		}
		snap.channels[vs.UserID] = vs.ChannelID
		if m.ignore[vs.UserID] || (vs.Member != nil && vs.Member.User != nil && vs.Member.User.Bot) {
			continue
		}
		snap.occupancy[vs.ChannelID]++
	}
	m.state.RUnlock()

	return snap, nil
}

type voiceSnapshot struct {
	channels  map[string]string // user -> voice channel
	occupancy map[string]int    // voice channel -> humans in it
}

func (v voiceSnapshot) UserVoiceChannel(userID string) (string, bool) {
	ch, ok := v.channels[userID]
	return ch, ok
}

func (v voiceSnapshot) ChannelOccupancy(channelID string) int {
	return v.occupancy[channelID]
}
