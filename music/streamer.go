package music

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"Encore/model"
	"Encore/speaker"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"layeh.com/gopus"
)

var errNotVoice = errors.New("connection cannot carry audio")

// VoiceSender is a speaker connection backed by a Discord voice connection.
type VoiceSender interface {
	speaker.Conn
	Voice() *discordgo.VoiceConnection
}

// AudioSource provides a local file with an item's audio.
type AudioSource interface {
	AudioFile(ctx context.Context, item *model.Item) (string, error)
}

// Streamer plays items by decoding them with ffmpeg and sending Opus frames over
// the speaker's voice connection.
type Streamer struct {
	audio AudioSource
}

func NewStreamer(audio AudioSource) *Streamer {
	return &Streamer{audio: audio}
}

func (st *Streamer) Start(ctx context.Context, conn speaker.Conn, item *model.Item) (speaker.Stream, error) {
	sender, ok := conn.(VoiceSender)
	if !ok {
		return nil, errNotVoice
	}
	vc := sender.Voice()

	filename, err := st.audio.AudioFile(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("fetching audio: %w", err)
	}

	if err := waitReady(ctx, vc); err != nil {
		return nil, err
	}

	// Not bound to ctx: playback outlives the request that started it.
	cmd := exec.Command("ffmpeg",
		"-loglevel", "error",
		"-i", filename,
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, err
	}

	session := newAudioSession(stdout, func(pcm []int16) ([]byte, error) {
		return encoder.Encode(pcm, frameSize, maxOpusFrameSize)
	}, vc.OpusSend)
	session.interrupt = func() {
		cmd.Process.Kill()
	}
	session.cleanup = func() {
		cmd.Process.Kill()
		if err := cmd.Wait(); err != nil {
			log.WithFields(log.Fields{
				"title": item.Title,
				"error": err,
			}).Debug("ffmpeg exited")
		}
		vc.Speaking(false)
	}

	vc.Speaking(true)
	go session.run()
	return session, nil
}

// waitReady waits up to five seconds for a freshly joined voice connection.
func waitReady(ctx context.Context, vc *discordgo.VoiceConnection) error {
	for i := 0; i < 20; i++ {
		vc.RLock()
		ready := vc.Ready
		vc.RUnlock()
		if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
	return errors.New("voice connection never became ready")
}
