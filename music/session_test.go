package music

import (
	"bytes"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frameBytes is the size of one PCM frame on the wire.
const frameBytes = frameSize * channels * 2

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

type failingReader struct{ err error }

func (r failingReader) Read(p []byte) (int, error) {
	return 0, r.err
}

func fakeEncode(pcm []int16) ([]byte, error) {
	return []byte{0xf8, 0xff, 0xfe}, nil
}

func waitDone(t *testing.T, s *AudioSession) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session did not finish")
	}
}

func TestAudioSession_PlaysToEnd(t *testing.T) {
	out := make(chan []byte, 10)
	pcm := bytes.NewReader(make([]byte, 2*frameBytes+100))

	var cleaned atomic.Bool
	s := newAudioSession(pcm, fakeEncode, out)
	s.cleanup = func() { cleaned.Store(true) }
	go s.run()

	waitDone(t, s)
	assert.NoError(t, s.Err())
	assert.Len(t, out, 2)
	assert.True(t, cleaned.Load())
}

func TestAudioSession_Stop(t *testing.T) {
	out := make(chan []byte)
	var interrupted atomic.Bool
	s := newAudioSession(zeroReader{}, fakeEncode, out)
	s.interrupt = func() { interrupted.Store(true) }
	go s.run()

	<-out
	s.Stop()
	s.Stop()

	waitDone(t, s)
	assert.NoError(t, s.Err())
	assert.True(t, interrupted.Load())
}

func TestAudioSession_PauseResume(t *testing.T) {
	out := make(chan []byte)
	s := newAudioSession(zeroReader{}, fakeEncode, out)
	s.Pause()
	go s.run()
	defer s.Stop()

	select {
	case <-out:
		t.Fatal("paused session sent a frame")
	case <-time.After(3 * pausePoll):
	}

	s.Resume()
	select {
	case <-out:
	case <-time.After(time.Second):
		t.Fatal("resumed session sent nothing")
	}
}

func TestAudioSession_StopWhilePaused(t *testing.T) {
	s := newAudioSession(zeroReader{}, fakeEncode, make(chan []byte))
	s.Pause()
	go s.run()

	s.Stop()
	waitDone(t, s)
	assert.NoError(t, s.Err())
}

func TestAudioSession_Errors(t *testing.T) {
	errRead := errors.New("pipe broke")
	s := newAudioSession(failingReader{errRead}, fakeEncode, make(chan []byte, 1))
	go s.run()
	waitDone(t, s)
	assert.ErrorIs(t, s.Err(), errRead)

	errEncode := errors.New("bad frame")
	s = newAudioSession(zeroReader{}, func([]int16) ([]byte, error) { return nil, errEncode }, make(chan []byte, 1))
	go s.run()
	waitDone(t, s)
	assert.ErrorIs(t, s.Err(), errEncode)
}

func TestAudioSession_SkipsEmptyPackets(t *testing.T) {
	out := make(chan []byte, 10)
	pcm := io.LimitReader(zeroReader{}, 3*frameBytes)
	calls := 0
	s := newAudioSession(pcm, func([]int16) ([]byte, error) {
		calls++
		if calls == 2 {
			return nil, nil
		}
		return []byte{1}, nil
	}, out)
	go s.run()

	waitDone(t, s)
	require.NoError(t, s.Err())
	assert.Len(t, out, 2)
}
