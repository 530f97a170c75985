package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"Encore/message"
	"Encore/model"
	"Encore/speaker"

	"github.com/Strum355/log"
)

var (
	// ErrDesync means the guild model believes a channel is playing but no
	// speaker is serving it. It always indicates a bug.
	ErrDesync         = errors.New("guild model is playing but no speaker is active")
	ErrUnknownCommand = errors.New("unknown command")
)

// Members looks up voice membership for a guild.
type Members interface {
	Delegate(ctx context.Context, guildID string) (model.Delegate, error)
}

// Resolver turns a search term or link into playable items. It returns
// model.ErrUnsupportedSource or model.ErrNoResults for user errors.
type Resolver interface {
	Resolve(ctx context.Context, term, requesterID string) ([]*model.Item, error)
}

// Notifier posts messages that are not replies to a command.
type Notifier interface {
	Notify(ctx context.Context, g *model.Guild, channelID string, msgs []message.Message) error
}

// Recorder is told about every item that starts playing. Calls are made off the
// guild lock and may be slow.
type Recorder interface {
	Record(ctx context.Context, guildID, channelID string, item *model.Item)
}

// Preparer readies an item for playback ahead of time, e.g. by downloading its
// audio. A Resolver that also implements Preparer is asked to prepare the next
// item before a speaker is claimed for it.
type Preparer interface {
	Prepare(ctx context.Context, item *model.Item) error
}

const recordTimeout = 10 * time.Second

type Command string

const (
	CmdPlay       Command = "play"
	CmdReplace    Command = "replace"
	CmdPause      Command = "pause"
	CmdResume     Command = "resume"
	CmdSkip       Command = "skip"
	CmdStop       Command = "stop"
	CmdNowPlaying Command = "nowplaying"
	CmdPet        Command = "pet"
)

type Request struct {
	Command          Command
	GuildID          string
	UserID           string
	MessageChannelID string // text channel the command was sent from
	Term             string // search term or link for play and replace
}

// Responder delivers the outcome of a command. It runs while the guild is still
// locked so it may update the guild's message bookkeeping.
type Responder func(g *model.Guild, msgs []message.Message) error

type Orchestrator struct {
	models   *model.App
	brain    *speaker.Brain
	members  Members
	resolver Resolver
	notifier Notifier
	history  Recorder
	prepare  Preparer
	roll     func(n int) int
}

// New wires an orchestrator. history may be nil.
func New(models *model.App, brain *speaker.Brain, members Members, resolver Resolver, notifier Notifier, history Recorder) *Orchestrator {
	o := &Orchestrator{
		models:   models,
		brain:    brain,
		members:  members,
		resolver: resolver,
		notifier: notifier,
		history:  history,
		roll:     rand.Intn,
	}
	if p, ok := resolver.(Preparer); ok {
		o.prepare = p
	}
	return o
}

// Handle runs one command with the guild locked for its whole duration,
// including media resolution.
func (o *Orchestrator) Handle(ctx context.Context, req Request, respond Responder) error {
	handle := o.models.Get(req.GuildID)
	g, err := handle.Lock(ctx)
	if err != nil {
		return err
	}
	defer handle.Unlock()

	g.SetMessageChannel(req.MessageChannelID)

	var msgs []message.Message
	switch req.Command {
	case CmdPlay:
		msgs, err = o.play(ctx, g, req)
	case CmdReplace:
		msgs, err = o.replace(ctx, g, req)
	case CmdPause:
		msgs, err = o.pause(ctx, g, req)
	case CmdResume:
		msgs, err = o.resume(ctx, g, req)
	case CmdSkip:
		msgs, err = o.skip(ctx, g, req)
	case CmdStop:
		msgs, err = o.stop(ctx, g, req)
	case CmdNowPlaying:
		msgs, err = o.nowPlaying(ctx, g, req)
	case CmdPet:
		msgs = o.pet()
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownCommand, req.Command)
	}
	if err != nil {
		if errors.Is(err, ErrDesync) {
			log.WithFields(log.Fields{
				"guild_id": req.GuildID,
				"command":  string(req.Command),
				"error":    err,
			}).Error("BUG: guild model and speakers disagree")
		}
		return err
	}

	return respond(g, msgs)
}

// playTo starts item on h and marks the channel stopped if that fails.
func (o *Orchestrator) playTo(ctx context.Context, g *model.Guild, h *speaker.Handle, channelID string, item *model.Item) error {
	log.WithContext(ctx).Debug("Playing item to speaker")
	if err := h.Play(ctx, channelID, item, o.onEnded(channelID)); err != nil {
		g.SetStopped(channelID)
		return err
	}
	o.record(ctx, g.ID(), channelID, item)
	return nil
}

// record hands item to the history recorder in the background.
func (o *Orchestrator) record(ctx context.Context, guildID, channelID string, item *model.Item) {
	if o.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	go func() {
		defer cancel()
		o.history.Record(ctx, guildID, channelID, item)
	}()
}

// prepareNext readies the item the channel would play next. It runs before the
// pool lock is taken so that slow preparation only holds up this guild's model.
// Failures are left for the speaker to report when it starts the item.
func (o *Orchestrator) prepareNext(ctx context.Context, g *model.Guild, delegate model.Delegate, channelID string) {
	if o.prepare == nil {
		return
	}
	item, ok := g.PeekForChannel(delegate, channelID)
	if !ok {
		return
	}
	if err := o.prepare.Prepare(ctx, item); err != nil {
		log.WithFields(log.Fields{
			"guild_id":   g.ID(),
			"channel_id": channelID,
			"title":      item.Title,
			"error":      err,
		}).Debug("Failed to prepare next item")
	}
}

func (o *Orchestrator) onEnded(startedChannelID string) speaker.EndedFunc {
	return func(h *speaker.EndedHandle) {
		o.handleEnded(startedChannelID, h)
	}
}

// handleEnded reacts to the end of a playback: it either continues with the next
// queued item in the same channel or lets the speaker go.
func (o *Orchestrator) handleEnded(startedChannelID string, h *speaker.EndedHandle) {
	ctx := context.WithValue(context.Background(), log.Key, log.Fields{
		"guild_id":   h.GuildID(),
		"channel_id": startedChannelID,
		"event":      "playback_ended",
	})

	handle := o.models.Get(h.GuildID())
	g, err := handle.Lock(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to lock guild after playback ended")
		return
	}
	defer handle.Unlock()

	if o.prepare != nil && !g.IsStopped(startedChannelID) {
		if delegate, err := o.members.Delegate(ctx, g.ID()); err == nil {
			o.prepareNext(ctx, g, delegate, startedChannelID)
		}
	}

	state, ref := h.Lock()
	msgs, err := o.continuePlayback(ctx, g, startedChannelID, state, ref)
	ref.Unlock()

	dest, ok := g.MessageChannel()
	if err != nil {
		log.WithFields(log.Fields{
			"guild_id":   h.GuildID(),
			"channel_id": startedChannelID,
			"error":      err,
		}).Error("Error while continuing playback")
		msgs = []message.Message{{Kind: message.UnknownError}}
	}
	if !ok || len(msgs) == 0 {
		return
	}
	if err := o.notifier.Notify(ctx, g, dest, msgs); err != nil {
		log.WithFields(log.Fields{
			"guild_id": h.GuildID(),
			"error":    err,
		}).Error("Failed to send playback message")
	}
}

func (o *Orchestrator) continuePlayback(ctx context.Context, g *model.Guild, startedChannelID string, state speaker.EndedState, ref *speaker.EndedRef) ([]message.Message, error) {
	if state.Superseded {
		log.WithContext(ctx).Debug("Playback was superseded, nothing to continue")
		return nil, nil
	}

	// A speaker that left voice was kicked or disconnected: treat it as a stop.
	if state.ChannelID == "" {
		g.SetStopped(startedChannelID)
		ref.Release()
		if state.Ended == nil {
			return nil, nil
		}
		return []message.Message{{
			Kind:      message.Stopped,
			Title:     state.Ended.Title,
			URL:       state.Ended.URL,
			ChannelID: startedChannelID,
			UserID:    state.Ended.RequesterID,
		}}, nil
	}

	// Never follow a speaker into a channel it was moved to.
	if state.ChannelID != startedChannelID {
		log.WithContext(ctx).Debug("Speaker has switched channel, not playing any more items")
		g.SetStopped(startedChannelID)
		ref.Release()
		return nil, nil
	}

	if g.IsStopped(startedChannelID) {
		log.WithContext(ctx).Debug("Channel has been stopped, not playing any more items")
		ref.Release()
		return nil, nil
	}

	delegate, err := o.members.Delegate(ctx, g.ID())
	if err != nil {
		g.SetStopped(startedChannelID)
		ref.Release()
		return nil, err
	}

	for {
		item, ok := g.NextForChannelAfterFinish(delegate, startedChannelID)
		if !ok {
			break
		}

		err := ref.Play(ctx, item, o.onEnded(startedChannelID))
		if err == nil {
			o.record(ctx, g.ID(), startedChannelID, item)
			return []message.Message{playing(item, startedChannelID)}, nil
		}
		log.WithFields(log.Fields{
			"guild_id":   g.ID(),
			"channel_id": startedChannelID,
			"title":      item.Title,
			"error":      err,
		}).Warn("Failed to play next item, trying the one after")
	}

	log.WithContext(ctx).Debug("No items are available to play in the channel")
	ref.Release()
	return []message.Message{{Kind: message.Finished, ChannelID: startedChannelID}}, nil
}

func playing(item *model.Item, channelID string) message.Message {
	return message.Message{
		Kind:      message.Playing,
		Title:     item.Title,
		URL:       item.URL,
		ChannelID: channelID,
		UserID:    item.RequesterID,
		Duration:  item.Duration,
	}
}
