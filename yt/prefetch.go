package yt

import (
	"context"

	"Encore/model"

	"github.com/Strum355/log"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentDownloads = 3

// Prefetch downloads the audio of the first few items with limited concurrency,
// so playback can start without waiting on the network. Failures are only logged:
// the streamer retries the download when the item is played.
func (ym *YouTubeManager) Prefetch(ctx context.Context, items []*model.Item) int {
	if len(items) > ym.prefetch {
		items = items[:ym.prefetch]
	}
	if len(items) == 0 {
		return 0
	}

	results := make([]bool, len(items))
	var eg errgroup.Group
	eg.SetLimit(maxConcurrentDownloads)
	for idx, item := range items {
		idx, item := idx, item
		eg.Go(func() error {
			if _, err := ym.AudioFile(ctx, item); err != nil {
				log.WithFields(log.Fields{
					"title": item.Title,
					"url":   item.URL,
					"error": err,
				}).Debug("Prefetch failed")
				return nil
			}
			results[idx] = true
			return nil
		})
	}
	eg.Wait()

	successCount := 0
	for _, ok := range results {
		if ok {
			successCount++
		}
	}
	return successCount
}
