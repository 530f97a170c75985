package model

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// App holds the state of every guild the bot has seen.
type App struct {
	mu        sync.Mutex
	guilds    map[string]*GuildHandle
	threshold ThresholdFunc
}

func NewApp(threshold ThresholdFunc) *App {
	return &App{
		guilds:    make(map[string]*GuildHandle),
		threshold: threshold,
	}
}

// Get returns the handle for a guild, creating empty state on first use.
func (a *App) Get(guildID string) *GuildHandle {
	a.mu.Lock()
	defer a.mu.Unlock()

	h, ok := a.guilds[guildID]
	if !ok {
		h = &GuildHandle{
			sem:   semaphore.NewWeighted(1),
			guild: NewGuild(guildID, a.threshold),
		}
		a.guilds[guildID] = h
	}
	return h
}

// GuildHandle serializes access to one guild's state. The lock may be held while
// blocking on network calls.
type GuildHandle struct {
	sem   *semaphore.Weighted
	guild *Guild
}

// Lock waits for exclusive access to the guild or until ctx is done.
func (h *GuildHandle) Lock(ctx context.Context) (*Guild, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return h.guild, nil
}

func (h *GuildHandle) Unlock() {
	h.sem.Release(1)
}
