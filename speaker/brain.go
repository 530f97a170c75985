package speaker

import (
	"context"
	"sync"

	"Encore/model"

	"github.com/Strum355/log"
)

// Brain owns the speakers of every guild. Each connector contributes exactly one
// speaker to each guild's pool.
type Brain struct {
	connectors []Connector
	streamer   Streamer

	mu     sync.Mutex
	guilds map[string]*GuildSpeakers
}

func NewBrain(streamer Streamer, connectors ...Connector) *Brain {
	return &Brain{
		connectors: connectors,
		streamer:   streamer,
		guilds:     make(map[string]*GuildSpeakers),
	}
}

// Guild returns the speaker pool of a guild, creating it on first use.
func (b *Brain) Guild(guildID string) *GuildSpeakers {
	b.mu.Lock()
	defer b.mu.Unlock()

	gs, ok := b.guilds[guildID]
	if !ok {
		gs = &GuildSpeakers{
			guildID:  guildID,
			streamer: b.streamer,
		}
		for _, c := range b.connectors {
			gs.speakers = append(gs.speakers, &Speaker{connector: c})
		}
		b.guilds[guildID] = gs
	}
	return gs
}

// Shutdown stops every stream and leaves every voice channel.
func (b *Brain) Shutdown() {
	b.mu.Lock()
	guilds := make([]*GuildSpeakers, 0, len(b.guilds))
	for _, gs := range b.guilds {
		guilds = append(guilds, gs)
	}
	b.mu.Unlock()

	for _, gs := range guilds {
		gs.mu.Lock()
		for _, s := range gs.speakers {
			s.gen++
			if s.stream != nil {
				s.stream.Stop()
			}
			s.disconnect()
			s.reset()
		}
		gs.mu.Unlock()
	}
}

// GuildSpeakers is the fixed pool of speakers in one guild.
type GuildSpeakers struct {
	guildID  string
	streamer Streamer

	mu       sync.Mutex
	speakers []*Speaker
}

func (gs *GuildSpeakers) GuildID() string {
	return gs.guildID
}

// Lock takes exclusive access to the pool. Handles obtained from the returned
// PoolRef are only valid until Unlock.
func (gs *GuildSpeakers) Lock() *PoolRef {
	gs.mu.Lock()
	return &PoolRef{gs: gs}
}

type PoolRef struct {
	gs *GuildSpeakers
}

func (r *PoolRef) Unlock() {
	r.gs.mu.Unlock()
}

// FindToPlayIn returns a speaker that may start playing in channelID: the idle
// speaker already bound there, or any idle unbound speaker. It returns false if
// a speaker is still serving the channel or every speaker is busy elsewhere.
func (r *PoolRef) FindToPlayIn(channelID string) (*Handle, bool) {
	var free *Speaker
	for _, s := range r.gs.speakers {
		bound := s.boundChannel()
		switch {
		case bound == channelID:
			if s.state == Idle {
				return &Handle{gs: r.gs, s: s}, true
			}
			return nil, false
		case bound == "" && s.state == Idle && free == nil:
			free = s
		}
	}
	if free == nil {
		return nil, false
	}
	return &Handle{gs: r.gs, s: free}, true
}

// FindActiveIn returns the speaker serving channelID along with the item it is
// playing.
func (r *PoolRef) FindActiveIn(channelID string) (*Handle, *model.Item, bool) {
	for _, s := range r.gs.speakers {
		if s.boundChannel() == channelID && s.active() && s.current != nil {
			return &Handle{gs: r.gs, s: s}, s.current, true
		}
	}
	return nil, nil, false
}

// Handle refers to a speaker while the pool lock is held.
type Handle struct {
	gs *GuildSpeakers
	s  *Speaker
}

func (h *Handle) SpeakerID() string {
	return h.s.ID()
}

// Play binds the speaker to channelID and starts item. onEnded is called exactly
// once, from its own goroutine, when the playback ends. If Play returns an error
// the speaker is left idle and unbound and onEnded is never called.
func (h *Handle) Play(ctx context.Context, channelID string, item *model.Item, onEnded EndedFunc) error {
	return h.s.play(ctx, h.gs, channelID, item, onEnded)
}

func (h *Handle) Pause() {
	h.s.pause()
}

func (h *Handle) Unpause() {
	h.s.unpause()
}

// Stop ends the current playback. It is safe to call in any state.
func (h *Handle) Stop() {
	h.s.stop()
}

func (h *Handle) IsPaused() bool {
	return h.s.state == Paused
}

func (h *Handle) State() State {
	return h.s.state
}

// EndedFunc receives the end of a playback.
type EndedFunc func(h *EndedHandle)

func (gs *GuildSpeakers) watch(s *Speaker, gen uint64, stream Stream, channelID string, item *model.Item, onEnded EndedFunc) {
	<-stream.Done()

	gs.mu.Lock()
	if s.gen == gen {
		s.state = Idle
		s.stream = nil
		s.endPending = true
	}
	gs.mu.Unlock()

	fields := log.Fields{
		"guild_id":   gs.guildID,
		"speaker":    s.ID(),
		"channel_id": channelID,
		"title":      item.Title,
	}
	if err := stream.Err(); err != nil {
		fields["error"] = err
		log.WithFields(fields).Warn("Playback ended with an error")
	} else {
		log.WithFields(fields).Debug("Playback ended")
	}

	onEnded(&EndedHandle{gs: gs, s: s, gen: gen, item: item, err: stream.Err()})
}

// EndedHandle is given to the completion callback of a playback.
type EndedHandle struct {
	gs   *GuildSpeakers
	s    *Speaker
	gen  uint64
	item *model.Item
	err  error
}

func (h *EndedHandle) GuildID() string {
	return h.gs.guildID
}

// Err is the reason the stream stopped, nil for a natural end or a requested stop.
func (h *EndedHandle) Err() error {
	return h.err
}

// EndedState is the speaker's situation at the time the callback locked it.
type EndedState struct {
	ChannelID  string      // current binding, "" if the speaker left voice
	Ended      *model.Item // item whose playback ended
	Superseded bool        // a newer Play already took over the speaker
}

// Lock takes the pool lock for the speaker that ended. Callers holding a guild
// model lock must take it before calling Lock.
func (h *EndedHandle) Lock() (EndedState, *EndedRef) {
	h.gs.mu.Lock()

	state := EndedState{
		Ended:      h.item,
		Superseded: h.s.gen != h.gen,
	}
	if !state.Superseded {
		state.ChannelID = h.s.boundChannel()
		h.s.endPending = false
	}
	return state, &EndedRef{gs: h.gs, s: h.s, gen: h.gen, channelID: state.ChannelID}
}

// EndedRef lets a completion callback act on its speaker while holding the pool
// lock taken by EndedHandle.Lock.
type EndedRef struct {
	gs        *GuildSpeakers
	s         *Speaker
	gen       uint64
	channelID string
}

// Play starts another item on the same speaker in the channel it was bound to
// when the handle was locked.
func (r *EndedRef) Play(ctx context.Context, item *model.Item, onEnded EndedFunc) error {
	err := r.s.play(ctx, r.gs, r.channelID, item, onEnded)
	r.gen = r.s.gen
	return err
}

// Release leaves the voice channel unless another playback took the speaker over.
func (r *EndedRef) Release() {
	if r.s.gen != r.gen {
		return
	}
	if r.s.stream != nil {
		r.s.stream.Stop()
	}
	r.s.disconnect()
	r.s.reset()
}

func (r *EndedRef) Unlock() {
	r.gs.mu.Unlock()
}
