package music

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"time"
)

const (
	sampleRate       = 48000
	channels         = 2
	frameSize        = 960
	maxOpusFrameSize = 4000

	pausePoll   = 100 * time.Millisecond
	sendTimeout = time.Second
)

var errSendTimeout = errors.New("timeout sending opus frame")

// AudioSession pumps PCM frames through an encoder into a voice connection until
// the input ends or it is stopped.
type AudioSession struct {
	pcm       io.Reader                         // raw s16le audio, usually ffmpeg's stdout
	encode    func(pcm []int16) ([]byte, error) // PCM frame to Opus packet
	out       chan<- []byte                     // the voice connection's Opus channel
	interrupt func()                            // unblocks pcm reads, e.g. kills ffmpeg
	cleanup   func()                            // runs once the pump has exited

	mu       sync.Mutex
	isPaused bool
	stopped  bool
	err      error
	stop     chan struct{}
	done     chan struct{}
}

func newAudioSession(pcm io.Reader, encode func([]int16) ([]byte, error), out chan<- []byte) *AudioSession {
	return &AudioSession{
		pcm:    pcm,
		encode: encode,
		out:    out,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Pause sets the audio session to paused, stopping audio playback temporarily
func (s *AudioSession) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isPaused = true
}

// Resume unpauses the audio session, allowing playback to continue
func (s *AudioSession) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isPaused = false
}

// Stop ends playback. It is safe to call more than once.
func (s *AudioSession) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stop)
	s.mu.Unlock()

	if s.interrupt != nil {
		s.interrupt()
	}
}

func (s *AudioSession) Done() <-chan struct{} {
	return s.done
}

// Err reports why playback ended. It is nil for a natural end or Stop.
func (s *AudioSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *AudioSession) state() (paused, stopped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isPaused, s.stopped
}

func (s *AudioSession) run() {
	err := s.pump()
	if s.cleanup != nil {
		s.cleanup()
	}

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.done)
}

func (s *AudioSession) pump() error {
	buf := make([]int16, frameSize*channels)
	for {
		paused, stopped := s.state()
		if stopped {
			return nil
		}
		if paused {
			select {
			case <-s.stop:
				return nil
			case <-time.After(pausePoll):
			}
			continue
		}

		if err := binary.Read(s.pcm, binary.LittleEndian, buf); err != nil {
			if _, stopped := s.state(); stopped {
				return nil
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}

		opus, err := s.encode(buf)
		if err != nil {
			return err
		}
		if len(opus) == 0 {
			continue
		}

		select {
		case s.out <- opus:
		case <-time.After(sendTimeout):
			return errSendTimeout
		case <-s.stop:
			return nil
		}
	}
}
