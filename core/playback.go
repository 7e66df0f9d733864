package orchestration

import (
	"context"
	"fmt"
	"sync"

	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
)

// playbackController plays one SynthesizedAudio at a time and releases it
// exactly once, however playback ends.
type playbackController struct {
	output AudioOutput

	mu     sync.Mutex
	active *activePlayback
}

type activePlayback struct {
	audio *audio.SynthesizedAudio
	done  chan error
	once  sync.Once
}

func (p *activePlayback) finish(err error) {
	p.once.Do(func() {
		p.audio.Release()
		p.done <- err
	})
}

func newPlaybackController(output AudioOutput) *playbackController {
	return &playbackController{output: output}
}

// Begin queues the audio on the device and returns the playback to Wait on.
// A previous playback still running is abandoned first.
func (c *playbackController) Begin(synthesized *audio.SynthesizedAudio) *activePlayback {
	playback := &activePlayback{audio: synthesized, done: make(chan error, 1)}
	if c == nil || c.output == nil {
		playback.finish(fmt.Errorf("no audio output configured: %w", ErrPlaybackFailed))
		return playback
	}

	c.Abandon()

	pcm := synthesized.PCM()
	outputEncoding := c.output.EncodingInfo()
	if !outputEncoding.IsZero() && outputEncoding.SampleRate != synthesized.Encoding.SampleRate {
		pcm = audio.ResampleBytes(pcm, synthesized.Encoding.SampleRate, outputEncoding.SampleRate)
	}

	c.mu.Lock()
	c.active = playback
	c.mu.Unlock()

	if err := c.output.SendAudio(pcm); err != nil {
		c.clear(playback)
		playback.finish(fmt.Errorf("%w: failed to send audio: %w", ErrPlaybackFailed, err))
		return playback
	}
	if err := c.output.Mark(synthesized.Handle, func(string) { playback.finish(nil) }); err != nil {
		c.clear(playback)
		c.output.ClearBuffer()
		playback.finish(fmt.Errorf("%w: failed to mark playback end: %w", ErrPlaybackFailed, err))
	}
	return playback
}

// Wait blocks until the playback completes, fails or is abandoned. If ctx
// ends first the playback is abandoned.
func (c *playbackController) Wait(ctx context.Context, playback *activePlayback) error {
	var err error
	select {
	case err = <-playback.done:
	case <-ctx.Done():
		c.abandon(playback, ctx.Err())
		err = <-playback.done
	}

	c.clear(playback)
	return err
}

// Abandon stops the running playback, if any. The audio is released before
// Abandon returns.
func (c *playbackController) Abandon() bool {
	if c == nil {
		return false
	}

	c.mu.Lock()
	playback := c.active
	c.mu.Unlock()
	if playback == nil {
		return false
	}

	c.abandon(playback, nil)
	return true
}

func (c *playbackController) abandon(playback *activePlayback, cause error) {
	c.clear(playback)
	if c.output != nil {
		c.output.ClearBuffer()
	}
	if cause != nil {
		playback.finish(fmt.Errorf("%w: %w", ErrPlaybackAbandoned, cause))
		return
	}
	playback.finish(ErrPlaybackAbandoned)
}

func (c *playbackController) clear(playback *activePlayback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == playback {
		c.active = nil
	}
}
