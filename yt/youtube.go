package yt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"Encore/model"

	"github.com/Strum355/log"
	"github.com/kkdai/youtube/v2"
)

// source is where videos come from. Manager layers caching on top of it.
type source interface {
	Video(ctx context.Context, videoID string) (*Video, error)
	Playlist(ctx context.Context, playlistURL string) ([]*Video, error)
	Search(ctx context.Context, query string) (*Video, error)
	Download(ctx context.Context, videoID, filename string) error
}

// youtubeSource talks to YouTube through kkdai/youtube and falls back to yt-dlp
// for everything the client cannot do.
type youtubeSource struct {
	client       *youtube.Client
	searchPrefix string
}

func (ys *youtubeSource) Video(ctx context.Context, videoID string) (*Video, error) {
	video, err := ys.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return &Video{
		ID:       video.ID,
		Title:    video.Title,
		Author:   video.Author,
		Duration: video.Duration,
	}, nil
}

// Playlist returns the entries of a playlist, trying the YouTube client first and
// yt-dlp second.
func (ys *youtubeSource) Playlist(ctx context.Context, playlistURL string) ([]*Video, error) {
	playlist, err := ys.client.GetPlaylistContext(ctx, playlistURL)
	if err == nil {
		videos := make([]*Video, 0, len(playlist.Videos))
		for _, entry := range playlist.Videos {
			videos = append(videos, &Video{
				ID:       entry.ID,
				Title:    entry.Title,
				Author:   entry.Author,
				Duration: entry.Duration,
			})
		}
		return videos, nil
	}
	log.WithFields(log.Fields{
		"playlist": playlistURL,
		"error":    err,
	}).Debug("YouTube client could not read playlist, falling back to yt-dlp")

	out, err := ytdlp(ctx, "-j", "--flat-playlist", playlistURL)
	if err != nil {
		return nil, err
	}

	var videos []*Video
	for _, line := range bytes.Split(out, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var entry ytdlpEntry
		if err := json.Unmarshal(line, &entry); err != nil || entry.ID == "" {
			continue
		}
		videos = append(videos, entry.video())
	}
	return videos, nil
}

// Search returns the first YouTube result for query.
func (ys *youtubeSource) Search(ctx context.Context, query string) (*Video, error) {
	out, err := ytdlp(ctx,
		"--no-warnings",
		"--dump-single-json",
		"--skip-download",
		"--flat-playlist",
		ys.searchPrefix+"1:"+query,
	)
	if err != nil {
		return nil, err
	}

	var root ytdlpEntry
	if err := json.Unmarshal(out, &root); err != nil {
		return nil, fmt.Errorf("invalid yt-dlp output: %w", err)
	}
	for _, entry := range root.Entries {
		if entry.ID != "" {
			return entry.video(), nil
		}
	}
	return nil, model.ErrNoResults
}

// Download writes the audio of a video to filename, trying the YouTube client
// first and yt-dlp second.
func (ys *youtubeSource) Download(ctx context.Context, videoID, filename string) error {
	err := ys.clientDownload(ctx, videoID, filename)
	if err == nil {
		return nil
	}
	log.WithFields(log.Fields{
		"video_id": videoID,
		"error":    err,
	}).Debug("YouTube client download failed, falling back to yt-dlp")

	_, err = ytdlp(ctx,
		"-f", "bestaudio[ext=opus]/bestaudio",
		"-o", filename,
		watchURL+videoID,
	)
	return err
}

func (ys *youtubeSource) clientDownload(ctx context.Context, videoID, filename string) error {
	video, err := ys.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return err
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return errors.New("no audio formats available")
	}

	stream, _, err := ys.client.GetStreamContext(ctx, video, &formats[0])
	if err != nil {
		return err
	}
	defer stream.Close()

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := io.Copy(file, stream); err != nil {
		os.Remove(filename)
		return err
	}
	return nil
}

func ytdlp(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "yt-dlp", args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
