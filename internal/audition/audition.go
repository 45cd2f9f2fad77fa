// Package audition plays rendered samples and bundle pads through the
// default output device.
package audition

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"

	"github.com/Danondso/padforge/internal/audio"
	"github.com/Danondso/padforge/internal/bundle"
)

// resampleQuality is beep's interpolation window size.
const resampleQuality = 4

// Player manages sample playback. The speaker is opened once, at the rate
// of the first sample played; later samples are resampled to it.
type Player struct {
	enabled  bool
	logger   *log.Logger
	initOnce sync.Once
	initErr  error
	rate     beep.SampleRate
	mu       sync.Mutex // one sample at a time
}

// New creates a Player. If enabled is false, Play is a no-op.
func New(enabled bool, logger *log.Logger) *Player {
	return &Player{enabled: enabled, logger: logger}
}

// Enabled reports whether playback is on.
func (p *Player) Enabled() bool {
	return p.enabled
}

func (p *Player) initSpeaker(format beep.Format) {
	p.initOnce.Do(func() {
		p.rate = format.SampleRate
		p.initErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
}

// Play decodes WAV data and blocks until it has played or ctx is done.
func (p *Player) Play(ctx context.Context, data []byte) error {
	if !p.enabled || len(data) == 0 {
		return nil
	}

	streamer, format, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("audition: decode wav: %w", err)
	}
	defer streamer.Close()

	p.initSpeaker(format)
	if p.initErr != nil {
		return fmt.Errorf("audition: speaker init: %w", p.initErr)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var s beep.Streamer = streamer
	if format.SampleRate != p.rate {
		s = beep.Resample(resampleQuality, format.SampleRate, p.rate, s)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// PlayPad plays the sample behind one pad of a packed bundle. Silent pads
// play nothing.
func (p *Player) PlayPad(ctx context.Context, archive []byte, pad int) error {
	b, err := bundle.Open(archive)
	if err != nil {
		return err
	}
	name, data, err := b.Sample(pad)
	if err != nil {
		return err
	}
	if name == "" {
		if p.logger != nil {
			p.logger.Printf("audition: pad %d is silent", pad+1)
		}
		return nil
	}
	if p.logger != nil {
		p.logger.Printf("audition: pad %d %s", pad+1, name)
	}
	return p.Play(ctx, data)
}

// Cue returns a short enveloped sweep from startFreq to endFreq, used to
// mark the start and end of a capture.
func Cue(sampleRate int, duration time.Duration, startFreq, endFreq float64) *audio.Buffer {
	n := int(float64(sampleRate) * duration.Seconds())
	buf := audio.New(1, n, sampleRate)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		progress := float64(i) / float64(n)
		freq := startFreq + (endFreq-startFreq)*progress
		// fade in/out
		envelope := math.Sin(math.Pi * progress)
		buf.Channels[0][i] = math.Sin(2*math.Pi*freq*t) * envelope * 0.5
	}
	return buf
}

// StartCue is the rising cue played before a capture.
func StartCue(sampleRate int) *audio.Buffer {
	return Cue(sampleRate, 150*time.Millisecond, 440, 523)
}

// StopCue is the falling cue played after a capture.
func StopCue(sampleRate int) *audio.Buffer {
	return Cue(sampleRate, 150*time.Millisecond, 523, 440)
}
