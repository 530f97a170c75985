package message

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestIsAction(t *testing.T) {
	assert.True(t, Message{Kind: Playing}.IsAction())
	assert.True(t, Message{Kind: Finished}.IsAction())
	assert.True(t, Message{Kind: UnknownError}.IsAction())
	assert.False(t, Message{Kind: Queued}.IsAction())
	assert.False(t, Message{Kind: ShinyPet}.IsAction())
}

func TestKey_VotePlurals(t *testing.T) {
	assert.Equal(t, "response.skip_more_votes_needed.singular", Message{Kind: SkipMoreVotesNeeded, Count: 1}.Key())
	assert.Equal(t, "response.skip_more_votes_needed.plural", Message{Kind: SkipMoreVotesNeeded, Count: 3}.Key())
	assert.Equal(t, "response.stop_more_votes_needed.plural", Message{Kind: StopMoreVotesNeeded, Count: 2}.Key())
}

func TestKey_EveryKindHasTemplate(t *testing.T) {
	for kind := Playing; kind <= ShinyPet; kind++ {
		assert.NotEmpty(t, keys[kind], "kind %d has no template key", kind)
	}
}

func TestRender(t *testing.T) {
	viper.Set("messages.action.playing", "Playing [{song_title}]({song_url}) in <#{voice_channel_id}> for <@{user_id}>")
	viper.Set("messages.response.replaced", "Replaced {old_song_title} with {new_song_title}")
	viper.Set("messages.response.skip_more_votes_needed.plural", "{count} more votes needed")
	viper.Set("messages.action.unknown_error", "Something went wrong")
	viper.Set("messages.response.now_playing", "{song_title} ({duration})")
	defer viper.Reset()

	got := Message{
		Kind:      Playing,
		Title:     "Never [Gonna] Give",
		URL:       "https://youtu.be/dQw4w9WgXcQ",
		ChannelID: "123",
		UserID:    "456",
	}.Render()
	assert.Equal(t, "Playing [Never \\[Gonna\\] Give](https://youtu.be/dQw4w9WgXcQ) in <#123> for <@456>", got)

	got = Message{Kind: Replaced, Title: "new", OldTitle: "old"}.Render()
	assert.Equal(t, "Replaced old with new", got)

	got = Message{Kind: SkipMoreVotesNeeded, Count: 2}.Render()
	assert.Equal(t, "2 more votes needed", got)

	got = Message{Kind: NowPlaying, Title: "song", Duration: 3*time.Minute + 5*time.Second}.Render()
	assert.Equal(t, "song (00:03:05)", got)

	got = Message{Kind: Pet}.Render()
	assert.Equal(t, "Something went wrong", got)
}
