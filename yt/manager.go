package yt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"Encore/model"
	"Encore/utils"

	"github.com/Strum355/log"
	"github.com/kkdai/youtube/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"golang.org/x/sync/singleflight"
)

var youtubeHosts = map[string]bool{
	"youtube.com":          true,
	"youtu.be":             true,
	"youtube-nocookie.com": true,
}

type YouTubeManager struct {
	redis        *redis.Client
	src          source
	cacheYoutube time.Duration
	cacheAudio   time.Duration
	cacheDir     string
	maxPlaylist  int
	prefetch     int

	downloads singleflight.Group
}

// NewYouTubeManager creates a YouTubeManager with Redis cache. rdb may be nil, in
// which case nothing is cached.
func NewYouTubeManager(rdb *redis.Client) *YouTubeManager {
	src := &youtubeSource{
		client:       &youtube.Client{},
		searchPrefix: viper.GetString("play.search_prefix"),
	}
	return newManager(rdb, src)
}

func newManager(rdb *redis.Client, src source) *YouTubeManager {
	return &YouTubeManager{
		redis:        rdb,
		src:          src,
		cacheYoutube: time.Duration(viper.GetInt("cache.youtube")) * time.Second,
		cacheAudio:   time.Duration(viper.GetInt("cache.audio")) * time.Second,
		cacheDir:     viper.GetString("cache.dir"),
		maxPlaylist:  viper.GetInt("play.max_playlist"),
		prefetch:     viper.GetInt("play.prefetch"),
	}
}

// Resolve turns a search term, video link or playlist link into queue items and
// starts downloading the first few in the background.
func (ym *YouTubeManager) Resolve(ctx context.Context, term, requesterID string) ([]*model.Item, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, model.ErrNoResults
	}

	videos, err := ym.resolveVideos(ctx, term)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, model.ErrNoResults
	}

	items := make([]*model.Item, 0, len(videos))
	for _, v := range videos {
		items = append(items, v.Item(requesterID))
	}

	go ym.Prefetch(context.WithoutCancel(ctx), items)
	return items, nil
}

func (ym *YouTubeManager) resolveVideos(ctx context.Context, term string) ([]*Video, error) {
	if !looksLikeURL(term) {
		v, err := ym.Search(ctx, term)
		if err != nil {
			return nil, err
		}
		return []*Video{v}, nil
	}

	u, err := url.Parse(term)
	if err != nil || !isYouTubeHost(u.Hostname()) {
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedSource, term)
	}

	if u.Path == "/playlist" && u.Query().Get("list") != "" {
		videos, err := ym.src.Playlist(ctx, term)
		if err != nil {
			return nil, err
		}
		if ym.maxPlaylist > 0 && len(videos) > ym.maxPlaylist {
			videos = videos[:ym.maxPlaylist]
		}
		return videos, nil
	}

	videoID, err := youtube.ExtractVideoID(term)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUnsupportedSource, err)
	}
	v, err := ym.GetVideoMetadata(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return []*Video{v}, nil
}

func looksLikeURL(term string) bool {
	lower := strings.ToLower(term)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func isYouTubeHost(host string) bool {
	host = strings.ToLower(host)
	for _, prefix := range []string{"www.", "m.", "music."} {
		host = strings.TrimPrefix(host, prefix)
	}
	return youtubeHosts[host]
}

// GetVideoMetadata fetches YouTube video metadata given videoID
func (ym *YouTubeManager) GetVideoMetadata(ctx context.Context, videoID string) (*Video, error) {
	if cached, ok := ym.cacheGet(ctx, "ytmeta:"+videoID); ok {
		var video Video
		if err := json.Unmarshal([]byte(cached), &video); err == nil {
			return &video, nil
		}
	}

	video, err := ym.src.Video(ctx, videoID)
	if err != nil {
		return nil, err
	}
	ym.storeMetadata(ctx, video)
	return video, nil
}

// Search returns the first result for query. The chosen video ID is cached so
// repeated searches skip yt-dlp.
func (ym *YouTubeManager) Search(ctx context.Context, query string) (*Video, error) {
	key := "ytsearch:" + strings.ToLower(query)
	if videoID, ok := ym.cacheGet(ctx, key); ok {
		return ym.GetVideoMetadata(ctx, videoID)
	}

	video, err := ym.src.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	ym.cacheSet(ctx, key, video.ID, ym.cacheYoutube)
	ym.storeMetadata(ctx, video)
	return video, nil
}

func (ym *YouTubeManager) storeMetadata(ctx context.Context, video *Video) {
	data, err := json.Marshal(video)
	if err != nil {
		return
	}
	ym.cacheSet(ctx, "ytmeta:"+video.ID, string(data), ym.cacheYoutube)
}

// AudioFile returns the path of the item's cached audio, downloading it first if
// needed. Concurrent calls for the same video share one download.
func (ym *YouTubeManager) AudioFile(ctx context.Context, item *model.Item) (string, error) {
	videoID, ok := item.Payload.(string)
	if !ok || videoID == "" {
		var err error
		if videoID, err = youtube.ExtractVideoID(item.URL); err != nil {
			return "", fmt.Errorf("%w: %v", model.ErrUnsupportedSource, err)
		}
	}

	// Keeps the file alive for the cache cleaner.
	ym.cacheSet(ctx, "ytvideo:"+videoID, "1", ym.cacheAudio)

	filename := utils.GetAudioFile(ym.cacheDir, videoID)
	if _, err := os.Stat(filename); err == nil {
		return filename, nil
	}

	_, err, _ := ym.downloads.Do(videoID, func() (any, error) {
		if _, err := os.Stat(filename); err == nil {
			return nil, nil
		}
		if err := os.MkdirAll(ym.cacheDir, 0o755); err != nil {
			return nil, err
		}

		tmp := filename + ".tmp"
		if err := ym.src.Download(ctx, videoID, tmp); err != nil {
			os.Remove(tmp)
			return nil, err
		}
		return nil, os.Rename(tmp, filename)
	})
	if err != nil {
		return "", err
	}
	return filename, nil
}

// Prepare downloads the item's audio ahead of playback so that starting it later
// only opens a cached file.
func (ym *YouTubeManager) Prepare(ctx context.Context, item *model.Item) error {
	_, err := ym.AudioFile(ctx, item)
	return err
}

// CleanCache removes cached audio files whose recency key has expired.
func (ym *YouTubeManager) CleanCache(ctx context.Context) {
	if ym.redis == nil {
		return
	}
	files, err := os.ReadDir(ym.cacheDir)
	if err != nil {
		return
	}

	removed := 0
	for _, file := range files {
		videoID := utils.GetAudioID(file.Name())
		if videoID == "" {
			continue
		}
		_, err := ym.redis.Get(ctx, "ytvideo:"+videoID).Result()
		if errors.Is(err, redis.Nil) {
			if os.Remove(utils.GetAudioFile(ym.cacheDir, videoID)) == nil {
				removed++
			}
		}
	}
	log.WithFields(log.Fields{"removed": removed}).Info("Cache cleanup completed")
}

func (ym *YouTubeManager) cacheGet(ctx context.Context, key string) (string, bool) {
	if ym.redis == nil {
		return "", false
	}
	val, err := ym.redis.Get(ctx, key).Result()
	if err != nil || val == "" {
		return "", false
	}
	return val, true
}

func (ym *YouTubeManager) cacheSet(ctx context.Context, key, val string, ttl time.Duration) {
	if ym.redis == nil {
		return
	}
	if err := ym.redis.Set(ctx, key, val, ttl).Err(); err != nil {
		log.WithFields(log.Fields{
			"key":   key,
			"error": err,
		}).Debug("Failed to write cache")
	}
}
