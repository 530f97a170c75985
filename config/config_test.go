package config

import (
	"testing"

	"Encore/message"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestSpeakerTokens(t *testing.T) {
	defer viper.Reset()

	viper.Set("speaker.tokens", "a, b c,,")
	assert.Equal(t, []string{"a", "b", "c"}, SpeakerTokens())

	viper.Set("speaker.tokens", "")
	assert.Empty(t, SpeakerTokens())
}

func TestDefaultMessagesCoverEveryKind(t *testing.T) {
	defer viper.Reset()
	initDefaults()

	for kind := message.Playing; kind <= message.ShinyPet; kind++ {
		for _, count := range []int{1, 2} {
			m := message.Message{Kind: kind, Count: count}
			assert.NotEmpty(t, viper.GetString("messages."+m.Key()), m.Key())
		}
	}
}
