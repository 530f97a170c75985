package model

import (
	"errors"
	"time"
)

var (
	ErrUnsupportedSource = errors.New("unsupported source")
	ErrNoResults         = errors.New("no results found")
)

// Item is a resolved, playable unit of the queue. Items are never modified after
// they are created; the queue only ever moves pointers to them around.
type Item struct {
	Title       string        // Title shown to users
	URL         string        // Canonical link to the source
	RequesterID string        // Discord ID of the user who queued the item
	Duration    time.Duration // Zero when unknown
	Payload     any           // Opaque handle understood by the audio streamer
}

// Delegate answers membership questions about the guild a model belongs to.
type Delegate interface {
	UserVoiceChannel(userID string) (string, bool)
	ChannelOccupancy(channelID string) int
}
