package model

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp_GetReturnsSameGuild(t *testing.T) {
	app := NewApp(nil)

	first := app.Get("guild-1")
	assert.Same(t, first, app.Get("guild-1"))
	assert.NotSame(t, first, app.Get("guild-2"))

	g, err := first.Lock(context.Background())
	require.NoError(t, err)
	defer first.Unlock()
	assert.Equal(t, "guild-1", g.ID())
}

func TestGuildHandle_LockIsExclusive(t *testing.T) {
	app := NewApp(nil)
	h := app.Get("guild")
	d := newFakeDelegate()
	d.join("vc", "u1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			g, err := h.Lock(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			defer h.Unlock()
			g.Enqueue("u1", newItem("u1", n))
		}(i)
	}
	wg.Wait()

	g, err := h.Lock(context.Background())
	require.NoError(t, err)
	defer h.Unlock()
	assert.Equal(t, 50, g.Pending())
}

func TestGuildHandle_LockHonoursContext(t *testing.T) {
	h := NewApp(nil).Get("guild")

	_, err := h.Lock(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = h.Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	h.Unlock()
	_, err = h.Lock(context.Background())
	assert.NoError(t, err)
	h.Unlock()
}

func TestGuildHandle_OnlyOneConcurrentPlayStarts(t *testing.T) {
	h := NewApp(nil).Get("guild")
	d := newFakeDelegate()
	d.join("vc", "u1", "u2")

	g, err := h.Lock(context.Background())
	require.NoError(t, err)
	g.Enqueue("u1", newItem("u1", 1))
	g.Enqueue("u2", newItem("u2", 1))
	h.Unlock()

	results := make(chan NextStatus, 10)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := h.Lock(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			defer h.Unlock()
			results <- g.NextForChannel(d, "vc").Status
		}()
	}
	wg.Wait()
	close(results)

	counts := map[NextStatus]int{}
	for status := range results {
		counts[status]++
	}
	assert.Equal(t, 1, counts[NextEntry])
	assert.Equal(t, 9, counts[NextAlreadyPlaying])
}
