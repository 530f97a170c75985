package message

import "time"

// Kind identifies what happened. Action kinds may be sent outside of a command
// response, and only the latest action message is kept in a guild.
type Kind int

const (
	// Actions
	Playing Kind = iota
	PlayingResponse
	Finished
	NoSpeakers
	UnknownError

	// Responses
	Queued
	QueuedMultiple
	QueuedNoSpeakers
	QueuedMultipleNoSpeakers
	Replaced
	ReplaceSkipped
	Paused
	Skipped
	SkipMoreVotesNeeded
	Stopped
	StopMoreVotesNeeded
	NowPlaying
	NoMatchingSongs
	NotInVoiceChannel
	UnsupportedSite
	SkipAlreadyVoted
	StopAlreadyVoted
	NothingIsQueued
	NothingIsPlaying
	AlreadyPlaying
	Pet
	ShinyPet
)

// Message is one outcome of a command or playback event. Which fields are set
// depends on Kind.
type Message struct {
	Kind      Kind
	Title     string
	URL       string
	OldTitle  string
	OldURL    string
	ChannelID string // voice channel
	UserID    string // requester of the item
	Duration  time.Duration
	Count     int
}

func (m Message) IsAction() bool {
	return m.Kind <= UnknownError
}
