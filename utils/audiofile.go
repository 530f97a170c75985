package utils

import (
	"path/filepath"
	"strings"
)

const audioExt = ".opus"

// GetAudioFile returns where the cached audio of a video lives inside dir.
func GetAudioFile(dir, videoID string) string {
	return filepath.Join(dir, videoID+audioExt)
}

// GetAudioID is the inverse of GetAudioFile. It returns "" for files that are not
// cached audio.
func GetAudioID(path string) string {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, audioExt) {
		return ""
	}
	return strings.TrimSuffix(name, audioExt)
}
