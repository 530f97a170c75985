package speaker

import (
	"context"
	"errors"
	"fmt"

	"Encore/model"

	"github.com/Strum355/log"
)

var (
	ErrConnectFailed = errors.New("failed to join voice channel")
	ErrStreamFailed  = errors.New("failed to start audio stream")
)

// PlaybackError is returned by Play. Kind is ErrConnectFailed or ErrStreamFailed.
type PlaybackError struct {
	Kind error
	Err  error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *PlaybackError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Connector is a bot identity able to join voice channels. Each connector backs
// one Speaker per guild.
type Connector interface {
	ID() string
	Join(ctx context.Context, guildID, channelID string) (Conn, error)
}

// Conn is a live voice connection. ChannelID reports where the connection is
// right now, which changes if the bot is moved and is empty once it is gone.
type Conn interface {
	ChannelID() string
	Disconnect() error
}

// Streamer starts sending an item's audio over a connection.
type Streamer interface {
	Start(ctx context.Context, conn Conn, item *model.Item) (Stream, error)
}

// Stream is a running playback. Done is closed exactly once when playback ends
// for any reason, after which Err reports why (nil on a natural end or Stop).
type Stream interface {
	Pause()
	Resume()
	Stop()
	Done() <-chan struct{}
	Err() error
}

type State int

const (
	Idle State = iota
	Playing
	Paused
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Stopping:
		return "stopping"
	}
	return "unknown"
}

// Speaker is one output binding inside a guild. All fields are guarded by the
// owning GuildSpeakers lock.
type Speaker struct {
	connector Connector
	conn      Conn
	state     State
	current   *model.Item
	stream    Stream

	gen        uint64 // bumped on every play attempt
	endPending bool   // playback ended but the callback has not claimed it yet
}

func (s *Speaker) ID() string {
	return s.connector.ID()
}

func (s *Speaker) boundChannel() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.ChannelID()
}

// active reports whether the speaker still counts as serving its channel.
func (s *Speaker) active() bool {
	return s.state != Idle || s.endPending
}

func (s *Speaker) play(ctx context.Context, gs *GuildSpeakers, channelID string, item *model.Item, onEnded EndedFunc) error {
	s.gen++
	gen := s.gen
	s.endPending = false

	if s.stream != nil {
		// The running playback is superseded; its watcher still reports the end.
		s.stream.Stop()
		s.stream = nil
	}

	if s.conn != nil && s.conn.ChannelID() != channelID {
		s.disconnect()
	}
	if s.conn == nil {
		conn, err := s.connector.Join(ctx, gs.guildID, channelID)
		if err != nil {
			s.reset()
			return &PlaybackError{Kind: ErrConnectFailed, Err: err}
		}
		s.conn = conn
	}

	stream, err := gs.streamer.Start(ctx, s.conn, item)
	if err != nil {
		s.disconnect()
		s.reset()
		return &PlaybackError{Kind: ErrStreamFailed, Err: err}
	}

	s.state = Playing
	s.current = item
	s.stream = stream
	go gs.watch(s, gen, stream, channelID, item, onEnded)
	return nil
}

func (s *Speaker) pause() {
	if s.state != Playing {
		return
	}
	s.stream.Pause()
	s.state = Paused
}

func (s *Speaker) unpause() {
	if s.state != Paused {
		return
	}
	s.stream.Resume()
	s.state = Playing
}

func (s *Speaker) stop() {
	if s.state != Playing && s.state != Paused {
		return
	}
	s.state = Stopping
	s.stream.Stop()
}

func (s *Speaker) disconnect() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Disconnect(); err != nil {
		log.WithFields(log.Fields{
			"speaker": s.ID(),
			"error":   err,
		}).Warn("Failed to disconnect speaker")
	}
	s.conn = nil
}

func (s *Speaker) reset() {
	s.state = Idle
	s.current = nil
	s.stream = nil
	s.endPending = false
}
