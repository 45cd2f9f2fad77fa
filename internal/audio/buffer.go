package audio

import (
	"errors"
	"fmt"
	"time"
)

// Buffer holds planar float samples, nominally in [-1, 1].
// All channels have the same length.
type Buffer struct {
	Channels   [][]float64
	SampleRate int
}

// New allocates a silent buffer with the given layout.
func New(channels, frames, sampleRate int) *Buffer {
	b := &Buffer{
		Channels:   make([][]float64, channels),
		SampleRate: sampleRate,
	}
	for c := range b.Channels {
		b.Channels[c] = make([]float64, frames)
	}
	return b
}

// FromInterleaved builds a buffer from interleaved samples.
// Trailing samples that do not fill a whole frame are dropped.
func FromInterleaved(samples []float64, channels, sampleRate int) *Buffer {
	if channels < 1 {
		channels = 1
	}
	frames := len(samples) / channels
	b := New(channels, frames, sampleRate)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			b.Channels[c][i] = samples[i*channels+c]
		}
	}
	return b
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int {
	return len(b.Channels)
}

// Frames returns the number of frames (samples per channel).
func (b *Buffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback length at the buffer's sample rate.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// Seconds returns the playback length in seconds.
func (b *Buffer) Seconds() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Validate checks the sample rate and that all channels have equal length.
func (b *Buffer) Validate() error {
	if b == nil {
		return errors.New("nil buffer")
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", b.SampleRate)
	}
	if len(b.Channels) == 0 {
		return errors.New("buffer has no channels")
	}
	n := len(b.Channels[0])
	for c, ch := range b.Channels {
		if len(ch) != n {
			return fmt.Errorf("channel %d has %d frames, want %d", c, len(ch), n)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{
		Channels:   make([][]float64, len(b.Channels)),
		SampleRate: b.SampleRate,
	}
	for c, ch := range b.Channels {
		out.Channels[c] = append([]float64(nil), ch...)
	}
	return out
}

// Slice copies frames [from, to) into a new buffer. Bounds are clamped
// to the buffer.
func (b *Buffer) Slice(from, to int) *Buffer {
	n := b.Frames()
	if from < 0 {
		from = 0
	}
	if to > n {
		to = n
	}
	if to < from {
		to = from
	}
	out := New(b.NumChannels(), to-from, b.SampleRate)
	for c, ch := range b.Channels {
		copy(out.Channels[c], ch[from:to])
	}
	return out
}

// Interleave returns the samples frame-major: all channels for frame 0,
// then frame 1, and so on.
func (b *Buffer) Interleave() []float64 {
	channels := b.NumChannels()
	frames := b.Frames()
	out := make([]float64, frames*channels)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			out[i*channels+c] = b.Channels[c][i]
		}
	}
	return out
}

// Mono returns a single-channel copy that averages all channels.
func (b *Buffer) Mono() *Buffer {
	if b.NumChannels() <= 1 {
		return b.Clone()
	}
	out := New(1, b.Frames(), b.SampleRate)
	scale := 1.0 / float64(b.NumChannels())
	for _, ch := range b.Channels {
		for i, v := range ch {
			out.Channels[0][i] += v * scale
		}
	}
	return out
}
