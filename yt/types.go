package yt

import (
	"time"

	"Encore/model"
)

const watchURL = "https://www.youtube.com/watch?v="

// Video is the metadata kept in Redis for a YouTube video.
type Video struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Author   string        `json:"author,omitempty"`
	Duration time.Duration `json:"duration"`
}

func (v *Video) URL() string {
	return watchURL + v.ID
}

// Item turns the video into a queue item. The payload is the video ID.
func (v *Video) Item(requesterID string) *model.Item {
	title := v.Title
	if title == "" {
		title = "Unknown Title"
	}
	return &model.Item{
		Title:       title,
		URL:         v.URL(),
		RequesterID: requesterID,
		Duration:    v.Duration,
		Payload:     v.ID,
	}
}

// ytdlpEntry is one line or entry of yt-dlp's JSON output.
type ytdlpEntry struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Uploader string       `json:"uploader"`
	Duration float64      `json:"duration"`
	Entries  []ytdlpEntry `json:"entries"`
}

func (e ytdlpEntry) video() *Video {
	d := time.Duration(e.Duration * float64(time.Second))
	if d < 0 {
		d = 0
	}
	return &Video{ID: e.ID, Title: e.Title, Author: e.Uploader, Duration: d}
}
