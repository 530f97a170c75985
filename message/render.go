package message

import (
	"strconv"
	"strings"

	"Encore/utils"

	"github.com/spf13/viper"
)

var keys = map[Kind]string{
	Playing:                  "action.playing",
	PlayingResponse:          "action.playing_response",
	Finished:                 "action.finished",
	NoSpeakers:               "action.no_speakers_error",
	UnknownError:             "action.unknown_error",
	Queued:                   "response.queued",
	QueuedMultiple:           "response.queued_multiple",
	QueuedNoSpeakers:         "response.queued_no_speakers",
	QueuedMultipleNoSpeakers: "response.queued_multiple_no_speakers",
	Replaced:                 "response.replaced",
	ReplaceSkipped:           "response.replace_skipped",
	Paused:                   "response.paused",
	Skipped:                  "response.skipped",
	SkipMoreVotesNeeded:      "response.skip_more_votes_needed",
	Stopped:                  "response.stopped",
	StopMoreVotesNeeded:      "response.stop_more_votes_needed",
	NowPlaying:               "response.now_playing",
	NoMatchingSongs:          "response.no_matching_songs_error",
	NotInVoiceChannel:        "response.not_in_voice_channel_error",
	UnsupportedSite:          "response.unsupported_site_error",
	SkipAlreadyVoted:         "response.skip_already_voted_error",
	StopAlreadyVoted:         "response.stop_already_voted_error",
	NothingIsQueued:          "response.nothing_is_queued_error",
	NothingIsPlaying:         "response.nothing_is_playing_error",
	AlreadyPlaying:           "response.already_playing_error",
	Pet:                      "response.pet",
	ShinyPet:                 "response.shiny_pet",
}

// Key returns the configuration key of the template used for m, without the
// "messages." prefix.
func (m Message) Key() string {
	key := keys[m.Kind]
	if m.Kind == SkipMoreVotesNeeded || m.Kind == StopMoreVotesNeeded {
		if m.Count == 1 {
			return key + ".singular"
		}
		return key + ".plural"
	}
	return key
}

// Render fills the configured template for m.
func (m Message) Render() string {
	template := viper.GetString("messages." + m.Key())
	if template == "" {
		template = viper.GetString("messages." + keys[UnknownError])
	}

	return strings.NewReplacer(
		"{song_title}", escape(m.Title),
		"{song_url}", m.URL,
		"{old_song_title}", escape(m.OldTitle),
		"{old_song_url}", m.OldURL,
		"{new_song_title}", escape(m.Title),
		"{new_song_url}", m.URL,
		"{voice_channel_id}", m.ChannelID,
		"{user_id}", m.UserID,
		"{count}", strconv.Itoa(m.Count),
		"{duration}", utils.FormatYtDuration(m.Duration),
	).Replace(template)
}

// escape stops titles from breaking out of markdown links.
func escape(title string) string {
	return strings.NewReplacer("[", "\\[", "]", "\\]", "*", "\\*", "_", "\\_").Replace(title)
}
