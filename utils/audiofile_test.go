package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetAudioFile(t *testing.T) {
	assert.Equal(t, "cache/abc123.opus", GetAudioFile("cache", "abc123"))
	assert.Equal(t, "/var/cache/encore/abc123.opus", GetAudioFile("/var/cache/encore/", "abc123"))
}

func TestGetAudioID(t *testing.T) {
	assert.Equal(t, "abc123", GetAudioID("cache/abc123.opus"))
	assert.Equal(t, "abc123", GetAudioID(GetAudioFile("/tmp/x", "abc123")))
	assert.Equal(t, "", GetAudioID("cache/abc123.opus.part"))
}
