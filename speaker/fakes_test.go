package speaker

import (
	"context"
	"errors"
	"sync"

	"Encore/model"
)

type fakeConn struct {
	mu           sync.Mutex
	channelID    string
	disconnected bool
}

func (c *fakeConn) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelID
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	c.channelID = ""
	return nil
}

func (c *fakeConn) move(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channelID = channelID
}

type fakeConnector struct {
	id string

	mu    sync.Mutex
	fail  error
	joins int
	conns []*fakeConn
}

func (c *fakeConnector) ID() string {
	return c.id
}

func (c *fakeConnector) Join(ctx context.Context, guildID, channelID string) (Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joins++
	if c.fail != nil {
		return nil, c.fail
	}
	conn := &fakeConn{channelID: channelID}
	c.conns = append(c.conns, conn)
	return conn, nil
}

func (c *fakeConnector) lastConn() *fakeConn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conns[len(c.conns)-1]
}

type fakeStream struct {
	once   sync.Once
	done   chan struct{}
	mu     sync.Mutex
	err    error
	paused bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{done: make(chan struct{})}
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
	s.finish(nil)
}

func (s *fakeStream) finish(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *fakeStream) Done() <-chan struct{} {
	return s.done
}

func (s *fakeStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

var errBadStream = errors.New("bad stream")

type fakeStreamer struct {
	mu      sync.Mutex
	fail    map[string]bool // item titles that fail to start
	streams []*fakeStream
}

func (f *fakeStreamer) Start(ctx context.Context, conn Conn, item *model.Item) (Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[item.Title] {
		return nil, errBadStream
	}
	s := newFakeStream()
	f.streams = append(f.streams, s)
	return s, nil
}

func (f *fakeStreamer) last() *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[len(f.streams)-1]
}
