package orchestrator

import (
	"context"
	"errors"

	"Encore/message"
	"Encore/model"
	"Encore/speaker"

	"github.com/Strum355/log"
	"golang.org/x/sync/errgroup"
)

const shinyOdds = 8192

// lookup resolves the term and fetches voice membership concurrently. Nothing in
// the guild is touched until both have succeeded.
func (o *Orchestrator) lookup(ctx context.Context, req Request) ([]*model.Item, model.Delegate, error) {
	var (
		items    []*model.Item
		delegate model.Delegate
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		items, err = o.resolver.Resolve(egCtx, req.Term, req.UserID)
		return err
	})
	eg.Go(func() (err error) {
		delegate, err = o.members.Delegate(egCtx, req.GuildID)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	if len(items) == 0 {
		return nil, nil, model.ErrNoResults
	}
	return items, delegate, nil
}

// userError maps resolution failures that are the user's fault to a response.
func userError(err error) (message.Message, bool) {
	switch {
	case errors.Is(err, model.ErrUnsupportedSource):
		return message.Message{Kind: message.UnsupportedSite}, true
	case errors.Is(err, model.ErrNoResults):
		return message.Message{Kind: message.NoMatchingSongs}, true
	}
	return message.Message{}, false
}

func (o *Orchestrator) play(ctx context.Context, g *model.Guild, req Request) ([]message.Message, error) {
	items, delegate, err := o.lookup(ctx, req)
	if err != nil {
		if msg, ok := userError(err); ok {
			return []message.Message{msg}, nil
		}
		return nil, err
	}

	g.Enqueue(req.UserID, items...)

	queued := message.Message{Kind: message.Queued, Title: items[0].Title, URL: items[0].URL, UserID: req.UserID}
	queuedNoSpeakers := message.Message{Kind: message.QueuedNoSpeakers, Title: items[0].Title, URL: items[0].URL, UserID: req.UserID}
	if len(items) > 1 {
		queued = message.Message{Kind: message.QueuedMultiple, Count: len(items), UserID: req.UserID}
		queuedNoSpeakers = message.Message{Kind: message.QueuedMultipleNoSpeakers, Count: len(items), UserID: req.UserID}
	}

	channelID, ok := delegate.UserVoiceChannel(req.UserID)
	if !ok {
		return []message.Message{queued}, nil
	}
	queued.ChannelID = channelID
	queuedNoSpeakers.ChannelID = channelID

	if g.IsActive(channelID) {
		return []message.Message{queued}, nil
	}
	o.prepareNext(ctx, g, delegate, channelID)

	pool := o.brain.Guild(req.GuildID).Lock()
	defer pool.Unlock()

	h, ok := pool.FindToPlayIn(channelID)
	if !ok {
		return []message.Message{queuedNoSpeakers}, nil
	}

	next := g.NextForChannel(delegate, channelID)
	if next.Status != model.NextEntry {
		return []message.Message{queued}, nil
	}

	if err := o.playTo(ctx, g, h, channelID, next.Item); err != nil {
		return nil, err
	}

	if len(items) == 1 && next.Item == items[0] {
		return []message.Message{playingResponse(next.Item, channelID)}, nil
	}
	return []message.Message{queued, playing(next.Item, channelID)}, nil
}

func (o *Orchestrator) replace(ctx context.Context, g *model.Guild, req Request) ([]message.Message, error) {
	items, delegate, err := o.lookup(ctx, req)
	if err != nil {
		if msg, ok := userError(err); ok {
			return []message.Message{msg}, nil
		}
		return nil, err
	}

	first := items[0]
	maybeChannel, _ := delegate.UserVoiceChannel(req.UserID)
	res := g.ReplaceLatest(req.UserID, maybeChannel, first)
	g.Enqueue(req.UserID, items[1:]...)

	switch res.Status {
	case model.Queued:
		return []message.Message{{
			Kind:      message.Queued,
			Title:     first.Title,
			URL:       first.URL,
			ChannelID: maybeChannel,
			UserID:    req.UserID,
		}}, nil
	case model.ReplacedInQueue:
		return []message.Message{{
			Kind:     message.Replaced,
			Title:    first.Title,
			URL:      first.URL,
			OldTitle: res.Old.Title,
			OldURL:   res.Old.URL,
			UserID:   req.UserID,
		}}, nil
	}
	o.prepareNext(ctx, g, delegate, res.ChannelID)

	pool := o.brain.Guild(req.GuildID).Lock()
	defer pool.Unlock()

	h, _, ok := pool.FindActiveIn(res.ChannelID)
	if !ok {
		return nil, ErrDesync
	}

	next, ok := g.NextForChannelAfterFinish(delegate, res.ChannelID)
	if !ok {
		return []message.Message{{Kind: message.NothingIsQueued}}, nil
	}
	if err := o.playTo(ctx, g, h, res.ChannelID, next); err != nil {
		return nil, err
	}

	if next == first {
		return []message.Message{playingResponse(next, res.ChannelID)}, nil
	}
	return []message.Message{
		{
			Kind:      message.ReplaceSkipped,
			Title:     first.Title,
			URL:       first.URL,
			OldTitle:  res.Old.Title,
			OldURL:    res.Old.URL,
			ChannelID: res.ChannelID,
			UserID:    req.UserID,
		},
		playing(next, res.ChannelID),
	}, nil
}

func (o *Orchestrator) userChannel(ctx context.Context, req Request) (model.Delegate, string, bool, error) {
	delegate, err := o.members.Delegate(ctx, req.GuildID)
	if err != nil {
		return nil, "", false, err
	}
	channelID, ok := delegate.UserVoiceChannel(req.UserID)
	return delegate, channelID, ok, nil
}

func (o *Orchestrator) pause(ctx context.Context, g *model.Guild, req Request) ([]message.Message, error) {
	_, channelID, ok, err := o.userChannel(ctx, req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []message.Message{{Kind: message.NotInVoiceChannel}}, nil
	}

	pool := o.brain.Guild(req.GuildID).Lock()
	defer pool.Unlock()

	h, item, ok := pool.FindActiveIn(channelID)
	if !ok || h.State() != speaker.Playing {
		return []message.Message{{Kind: message.NothingIsPlaying}}, nil
	}
	h.Pause()

	return []message.Message{{
		Kind:      message.Paused,
		Title:     item.Title,
		URL:       item.URL,
		ChannelID: channelID,
		UserID:    item.RequesterID,
	}}, nil
}

func (o *Orchestrator) resume(ctx context.Context, g *model.Guild, req Request) ([]message.Message, error) {
	delegate, channelID, ok, err := o.userChannel(ctx, req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []message.Message{{Kind: message.NotInVoiceChannel}}, nil
	}
	if !g.IsActive(channelID) {
		o.prepareNext(ctx, g, delegate, channelID)
	}

	pool := o.brain.Guild(req.GuildID).Lock()
	defer pool.Unlock()

	if h, item, ok := pool.FindActiveIn(channelID); ok {
		if !h.IsPaused() {
			return []message.Message{{Kind: message.AlreadyPlaying}}, nil
		}
		h.Unpause()
		return []message.Message{playingResponse(item, channelID)}, nil
	}

	if g.IsActive(channelID) {
		return []message.Message{{Kind: message.AlreadyPlaying}}, nil
	}

	h, ok := pool.FindToPlayIn(channelID)
	if !ok {
		return []message.Message{{Kind: message.NoSpeakers, ChannelID: channelID}}, nil
	}

	next := g.NextForChannel(delegate, channelID)
	switch next.Status {
	case model.NextAlreadyPlaying:
		return []message.Message{{Kind: message.AlreadyPlaying}}, nil
	case model.NextNoneAvailable:
		return []message.Message{{Kind: message.NothingIsQueued}}, nil
	}
	if err := o.playTo(ctx, g, h, channelID, next.Item); err != nil {
		return nil, err
	}
	return []message.Message{playingResponse(next.Item, channelID)}, nil
}

func (o *Orchestrator) skip(ctx context.Context, g *model.Guild, req Request) ([]message.Message, error) {
	delegate, channelID, ok, err := o.userChannel(ctx, req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []message.Message{{Kind: message.NotInVoiceChannel}}, nil
	}

	vote := g.Vote(delegate, model.VoteSkip, channelID, req.UserID)
	if vote.Status == model.VoteNothingPlaying {
		return []message.Message{{Kind: message.NothingIsPlaying}}, nil
	}

	pool := o.brain.Guild(req.GuildID).Lock()
	defer pool.Unlock()

	h, item, ok := pool.FindActiveIn(channelID)
	if !ok {
		return nil, ErrDesync
	}

	msg := message.Message{
		Title:     item.Title,
		URL:       item.URL,
		ChannelID: channelID,
		UserID:    item.RequesterID,
	}
	switch vote.Status {
	case model.VoteSuccess:
		log.WithContext(ctx).Debug("Skip vote passed, stopping speaker")
		h.Stop()
		msg.Kind = message.Skipped
	case model.VoteAlreadyVoted:
		msg.Kind = message.SkipAlreadyVoted
	default:
		msg.Kind = message.SkipMoreVotesNeeded
		msg.Count = vote.Remaining
	}
	return []message.Message{msg}, nil
}

func (o *Orchestrator) stop(ctx context.Context, g *model.Guild, req Request) ([]message.Message, error) {
	delegate, channelID, ok, err := o.userChannel(ctx, req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []message.Message{{Kind: message.NotInVoiceChannel}}, nil
	}

	vote := g.Vote(delegate, model.VoteStop, channelID, req.UserID)
	if vote.Status == model.VoteNothingPlaying {
		return []message.Message{{Kind: message.NothingIsPlaying}}, nil
	}

	pool := o.brain.Guild(req.GuildID).Lock()
	defer pool.Unlock()

	h, item, ok := pool.FindActiveIn(channelID)
	if !ok {
		return nil, ErrDesync
	}

	msg := message.Message{
		Title:     item.Title,
		URL:       item.URL,
		ChannelID: channelID,
		UserID:    item.RequesterID,
	}
	switch vote.Status {
	case model.VoteSuccess:
		log.WithContext(ctx).Debug("Stop vote passed, stopping speaker")
		g.SetStopped(channelID)
		h.Stop()
		msg.Kind = message.Stopped
	case model.VoteAlreadyVoted:
		msg.Kind = message.StopAlreadyVoted
	default:
		msg.Kind = message.StopMoreVotesNeeded
		msg.Count = vote.Remaining
	}
	return []message.Message{msg}, nil
}

func (o *Orchestrator) nowPlaying(ctx context.Context, g *model.Guild, req Request) ([]message.Message, error) {
	_, channelID, ok, err := o.userChannel(ctx, req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []message.Message{{Kind: message.NotInVoiceChannel}}, nil
	}

	pool := o.brain.Guild(req.GuildID).Lock()
	defer pool.Unlock()

	_, item, ok := pool.FindActiveIn(channelID)
	if !ok {
		return []message.Message{{Kind: message.NothingIsPlaying}}, nil
	}
	return []message.Message{{
		Kind:      message.NowPlaying,
		Title:     item.Title,
		URL:       item.URL,
		ChannelID: channelID,
		UserID:    item.RequesterID,
		Duration:  item.Duration,
	}}, nil
}

func (o *Orchestrator) pet() []message.Message {
	if o.roll(shinyOdds) == 0 {
		return []message.Message{{Kind: message.ShinyPet}}
	}
	return []message.Message{{Kind: message.Pet}}
}

func playingResponse(item *model.Item, channelID string) message.Message {
	msg := playing(item, channelID)
	msg.Kind = message.PlayingResponse
	return msg
}
