package orchestrator

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"Encore/message"
	"Encore/model"
	"Encore/speaker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const guildID = "guild"

type snapshot struct {
	voice map[string]string
}

func (s snapshot) UserVoiceChannel(userID string) (string, bool) {
	ch, ok := s.voice[userID]
	return ch, ok
}

func (s snapshot) ChannelOccupancy(channelID string) int {
	n := 0
	for _, ch := range s.voice {
		if ch == channelID {
			n++
		}
	}
	return n
}

type fakeMembers struct {
	mu    sync.Mutex
	voice map[string]string
}

func (m *fakeMembers) join(userID, channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voice[userID] = channelID
}

func (m *fakeMembers) Delegate(ctx context.Context, guildID string) (model.Delegate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	voice := make(map[string]string, len(m.voice))
	for k, v := range m.voice {
		voice[k] = v
	}
	return snapshot{voice: voice}, nil
}

var errResolverDown = errors.New("resolver down")

// fakeResolver answers a term with one item per title, or with an error.
type fakeResolver struct {
	mu      sync.Mutex
	results map[string][]string
	errs    map[string]error
}

func (r *fakeResolver) Resolve(ctx context.Context, term, requesterID string) ([]*model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.errs[term]; ok {
		return nil, err
	}
	var items []*model.Item
	for _, title := range r.results[term] {
		items = append(items, &model.Item{
			Title:       title,
			URL:         "https://www.youtube.com/watch?v=" + title,
			RequesterID: requesterID,
		})
	}
	return items, nil
}

type fakeNotifier struct {
	sent chan []message.Message
}

func (n *fakeNotifier) Notify(ctx context.Context, g *model.Guild, channelID string, msgs []message.Message) error {
	n.sent <- msgs
	return nil
}

// preparingResolver also prepares items, noting whether the guild's speaker pool
// could be locked while it did so.
type preparingResolver struct {
	*fakeResolver
	pool func() *speaker.GuildSpeakers

	mu       sync.Mutex
	prepared []string
	poolHeld bool
}

func (r *preparingResolver) Prepare(ctx context.Context, item *model.Item) error {
	free := make(chan struct{})
	go func() {
		r.pool().Lock().Unlock()
		close(free)
	}()
	held := false
	select {
	case <-free:
	case <-time.After(time.Second):
		held = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.prepared = append(r.prepared, item.Title)
	r.poolHeld = r.poolHeld || held
	return nil
}

func (r *preparingResolver) titles() ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.prepared...), r.poolHeld
}

type fakeHistory struct {
	mu     sync.Mutex
	played []string
	// block, when set, holds every Record until it is closed.
	block chan struct{}
}

func (h *fakeHistory) Record(ctx context.Context, guildID, channelID string, item *model.Item) {
	if h.block != nil {
		select {
		case <-h.block:
		case <-ctx.Done():
			return
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.played = append(h.played, item.Title)
}

func (h *fakeHistory) titles() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.played...)
}

type fakeConn struct {
	mu        sync.Mutex
	channelID string
}

func (c *fakeConn) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelID
}

// move puts the connection in another channel, "" meaning it was kicked.
func (c *fakeConn) move(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channelID = channelID
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channelID = ""
	return nil
}

type fakeConnector struct {
	id string

	mu    sync.Mutex
	conns []*fakeConn
}

func (c *fakeConnector) ID() string {
	return c.id
}

func (c *fakeConnector) Join(ctx context.Context, guildID, channelID string) (speaker.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conn := &fakeConn{channelID: channelID}
	c.conns = append(c.conns, conn)
	return conn, nil
}

// connected reports whether the connector's latest connection is still in voice.
func (c *fakeConnector) connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.conns) == 0 {
		return false
	}
	return c.conns[len(c.conns)-1].ChannelID() != ""
}

func (c *fakeConnector) lastConn() *fakeConn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conns[len(c.conns)-1]
}

type fakeStream struct {
	title string

	once   sync.Once
	done   chan struct{}
	mu     sync.Mutex
	paused bool
}

func (s *fakeStream) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

func (s *fakeStream) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

func (s *fakeStream) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *fakeStream) Stop() {
	s.finish()
}

func (s *fakeStream) finish() {
	s.once.Do(func() { close(s.done) })
}

func (s *fakeStream) Done() <-chan struct{} {
	return s.done
}

func (s *fakeStream) Err() error {
	return nil
}

var errBadStream = errors.New("bad stream")

type fakeStreamer struct {
	mu      sync.Mutex
	fail    map[string]bool
	streams []*fakeStream
}

func (f *fakeStreamer) Start(ctx context.Context, conn speaker.Conn, item *model.Item) (speaker.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[item.Title] {
		return nil, errBadStream
	}
	s := &fakeStream{title: item.Title, done: make(chan struct{})}
	f.streams = append(f.streams, s)
	return s, nil
}

func (f *fakeStreamer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}

func (f *fakeStreamer) last() *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[len(f.streams)-1]
}

type fixture struct {
	o          *Orchestrator
	members    *fakeMembers
	resolver   *fakeResolver
	notifier   *fakeNotifier
	history    *fakeHistory
	streamer   *fakeStreamer
	connectors []*fakeConnector
}

func newFixture(speakers int) *fixture {
	f := &fixture{
		members:  &fakeMembers{voice: map[string]string{}},
		resolver: &fakeResolver{results: map[string][]string{}, errs: map[string]error{}},
		notifier: &fakeNotifier{sent: make(chan []message.Message, 16)},
		history:  &fakeHistory{},
		streamer: &fakeStreamer{fail: map[string]bool{}},
	}
	var connectors []speaker.Connector
	for i := 0; i < speakers; i++ {
		c := &fakeConnector{id: string(rune('a' + i))}
		f.connectors = append(f.connectors, c)
		connectors = append(connectors, c)
	}
	f.o = New(model.NewApp(model.MajorityThreshold), speaker.NewBrain(f.streamer, connectors...), f.members, f.resolver, f.notifier, f.history)
	return f
}

// withPreparer rebuilds the orchestrator around a resolver that prepares items.
func (f *fixture) withPreparer() *preparingResolver {
	p := &preparingResolver{fakeResolver: f.resolver}
	brain := f.o.brain
	p.pool = func() *speaker.GuildSpeakers { return brain.Guild(guildID) }
	f.o = New(f.o.models, brain, f.members, p, f.notifier, f.history)
	return p
}

// waitHistory waits for the recorder to have seen exactly titles, in any order.
func (f *fixture) waitHistory(t *testing.T, titles ...string) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(sorted(titles), sorted(f.history.titles()))
	}, time.Second, 5*time.Millisecond, "recorded %v", f.history.titles())
}

func sorted(in []string) []string {
	out := append([]string{}, in...)
	slices.Sort(out)
	return out
}

func (f *fixture) run(t *testing.T, cmd Command, userID, term string) []message.Message {
	t.Helper()
	msgs, err := f.try(cmd, userID, term)
	require.NoError(t, err)
	return msgs
}

func (f *fixture) try(cmd Command, userID, term string) ([]message.Message, error) {
	var got []message.Message
	err := f.o.Handle(context.Background(), Request{
		Command:          cmd,
		GuildID:          guildID,
		UserID:           userID,
		MessageChannelID: "text",
		Term:             term,
	}, func(g *model.Guild, msgs []message.Message) error {
		got = msgs
		return nil
	})
	return got, err
}

// guild runs fn with the guild model locked.
func (f *fixture) guild(t *testing.T, fn func(g *model.Guild)) {
	t.Helper()
	handle := f.o.models.Get(guildID)
	g, err := handle.Lock(context.Background())
	require.NoError(t, err)
	defer handle.Unlock()
	fn(g)
}

func (f *fixture) waitNotify(t *testing.T) []message.Message {
	t.Helper()
	select {
	case msgs := <-f.notifier.sent:
		return msgs
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a notification")
		return nil
	}
}

func (f *fixture) assertNoNotify(t *testing.T) {
	t.Helper()
	select {
	case msgs := <-f.notifier.sent:
		t.Fatalf("unexpected notification: %+v", msgs)
	case <-time.After(50 * time.Millisecond):
	}
}

func kinds(msgs []message.Message) []message.Kind {
	var out []message.Kind
	for _, m := range msgs {
		out = append(out, m.Kind)
	}
	return out
}
