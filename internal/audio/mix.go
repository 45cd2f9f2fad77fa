package audio

import (
	"errors"
	"fmt"
	"math"
)

// DefaultPeak is the target level used by the chord renderer.
const DefaultPeak = 0.9

var (
	// ErrEmptyMixInput is returned when Mix is called without buffers.
	ErrEmptyMixInput = errors.New("empty mix input")
	// ErrSampleRateMismatch is returned when mixed buffers disagree on rate.
	ErrSampleRateMismatch = errors.New("sample rate mismatch")
)

// Mix sums buffers into a new buffer. The result has as many channels and
// frames as the widest and longest input. A buffer with fewer channels
// repeats its last channel, and a shorter buffer contributes silence past
// its end. Sums are not clamped.
func Mix(buffers []*Buffer) (*Buffer, error) {
	if len(buffers) == 0 {
		return nil, ErrEmptyMixInput
	}

	rate := buffers[0].SampleRate
	channels, frames := 0, 0
	for i, b := range buffers {
		if b.SampleRate != rate {
			return nil, fmt.Errorf("buffer %d at %d Hz, want %d Hz: %w", i, b.SampleRate, rate, ErrSampleRateMismatch)
		}
		channels = max(channels, b.NumChannels())
		frames = max(frames, b.Frames())
	}

	out := New(channels, frames, rate)
	for _, b := range buffers {
		if b.NumChannels() == 0 {
			continue
		}
		for c := 0; c < channels; c++ {
			src := b.Channels[min(c, b.NumChannels()-1)]
			dst := out.Channels[c]
			for i, v := range src {
				dst[i] += v
			}
		}
	}
	return out, nil
}

// Peak returns the largest absolute sample over all channels.
func Peak(b *Buffer) float64 {
	var peak float64
	for _, ch := range b.Channels {
		for _, v := range ch {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
	}
	return peak
}

// Normalize scales b in place so its peak equals target and returns b.
// A silent buffer is returned unchanged.
func Normalize(b *Buffer, target float64) *Buffer {
	peak := Peak(b)
	if peak == 0 {
		return b
	}
	gain := target / peak
	for _, ch := range b.Channels {
		for i := range ch {
			ch[i] *= gain
		}
	}
	return b
}
