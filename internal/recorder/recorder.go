// Package recorder captures source material from the default input device.
package recorder

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/Danondso/padforge/internal/audio"
)

// Recorder captures audio from the default input device. Mono and stereo
// inputs keep their channel layout.
type Recorder struct {
	mu             sync.Mutex
	stream         *portaudio.Stream
	buf            []int16 // interleaved
	channels       int
	recording      bool
	done           chan struct{} // closed when readLoop should exit
	loopDone       chan struct{} // closed when readLoop has exited
	nativeSR       float64
	nativeChannels int
	targetSR       int
	maxDurationSec int
	startTime      time.Time
	truncated      bool
	audioLevel     uint64 // atomic float64 bits; RMS of last chunk (0.0–1.0)
}

// New creates a Recorder. Call portaudio.Initialize() before using this.
func New(targetSampleRate, maxDurationSec int) (*Recorder, error) {
	defIn, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("default input device: %w", err)
	}

	return &Recorder{
		nativeSR:       defIn.DefaultSampleRate,
		nativeChannels: defIn.MaxInputChannels,
		targetSR:       targetSampleRate,
		maxDurationSec: maxDurationSec,
	}, nil
}

// Start begins capturing audio. Returns an error if already recording.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return fmt.Errorf("already recording")
	}

	r.buf = nil
	r.truncated = false
	r.startTime = time.Now()

	channels := min(max(r.nativeChannels, 1), 2)
	r.channels = channels

	framesPerBuffer := int(r.nativeSR / 10) // ~100ms chunks
	inputBuf := make([]int16, framesPerBuffer*channels)

	stream, err := portaudio.OpenDefaultStream(channels, 0, r.nativeSR, framesPerBuffer, &inputBuf)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start stream: %w", err)
	}

	r.stream = stream
	r.recording = true
	r.done = make(chan struct{})
	r.loopDone = make(chan struct{})

	go r.readLoop(stream, inputBuf, channels, r.done, r.loopDone)

	return nil
}

func (r *Recorder) readLoop(stream *portaudio.Stream, inputBuf []int16, channels int, done, loopDone chan struct{}) {
	defer close(loopDone)
	maxSamples := int(r.nativeSR) * r.maxDurationSec * channels

	for {
		select {
		case <-done:
			return
		default:
		}

		err := stream.Read()
		if err != nil {
			return
		}

		r.mu.Lock()
		if !r.recording {
			r.mu.Unlock()
			return
		}

		r.buf = append(r.buf, inputBuf...)
		atomic.StoreUint64(&r.audioLevel, math.Float64bits(computeRMS(inputBuf, channels)))

		if len(r.buf) >= maxSamples {
			r.truncated = true
			r.recording = false
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()
	}
}

// Stop stops recording and returns the captured audio at the target rate.
// The second return value indicates if recording was truncated due to max duration.
func (r *Recorder) Stop() (*audio.Buffer, bool, error) {
	r.mu.Lock()
	wasRecording := r.recording
	wasTruncated := r.truncated
	r.recording = false
	done := r.done
	loopDone := r.loopDone
	r.mu.Unlock()

	if !wasRecording && !wasTruncated {
		return nil, false, fmt.Errorf("not recording")
	}

	// Signal readLoop to stop, then wait for it to exit before closing the stream.
	// This prevents a segfault from stream.Read() racing with stream.Close().
	if done != nil {
		close(done)
	}
	if loopDone != nil {
		<-loopDone
	}

	if r.stream != nil {
		r.stream.Stop()
		r.stream.Close()
		r.stream = nil
	}

	atomic.StoreUint64(&r.audioLevel, math.Float64bits(0))

	r.mu.Lock()
	samples := make([]int16, len(r.buf))
	copy(samples, r.buf)
	truncated := r.truncated
	channels := r.channels
	nativeSR := r.nativeSR
	targetSR := r.targetSR
	r.mu.Unlock()

	if len(samples) < channels {
		return nil, truncated, fmt.Errorf("no audio captured")
	}

	buf := Deinterleave(samples, channels, int(nativeSR))
	if targetSR > 0 && int(nativeSR) != targetSR {
		resampled, err := Resample(buf, targetSR)
		if err != nil {
			return nil, truncated, fmt.Errorf("resample: %w", err)
		}
		buf = resampled
	}
	return buf, truncated, nil
}

// IsRecording returns whether the recorder is currently capturing.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Elapsed returns how long the current capture has been running.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return 0
	}
	return time.Since(r.startTime)
}

// AudioLevel returns the RMS amplitude of the most recently captured chunk,
// in the range [0.0, 1.0]. Safe to call from any goroutine.
func (r *Recorder) AudioLevel() float64 {
	return math.Float64frombits(atomic.LoadUint64(&r.audioLevel))
}

// computeRMS computes the root-mean-square of int16 samples normalized to [0.0, 1.0].
// For stereo input, averages the two channels before computing.
func computeRMS(buf []int16, channels int) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	n := len(buf) / channels
	for i := 0; i+channels <= len(buf); i += channels {
		var v float64
		if channels == 2 {
			v = float64(int32(buf[i])+int32(buf[i+1])) / 2.0
		} else {
			v = float64(buf[i])
		}
		v /= 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}

// MicAvailable returns true if PortAudio can find a default input device.
// portaudio.Initialize() must have been called before using this.
func MicAvailable() bool {
	dev, err := portaudio.DefaultInputDevice()
	return err == nil && dev != nil && dev.MaxInputChannels > 0
}

// Deinterleave splits interleaved int16 PCM into a float buffer in [-1, 1).
// A trailing partial frame is dropped.
func Deinterleave(samples []int16, channels, sampleRate int) *audio.Buffer {
	frames := len(samples) / channels
	buf := audio.New(channels, frames, sampleRate)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			buf.Channels[c][i] = float64(samples[i*channels+c]) / 32768.0
		}
	}
	return buf
}

// Resample converts every channel of buf to outputRate using polyphase FIR
// filtering with Kaiser window (via go-audio-resampling). Uses QualityHigh,
// since captures end up as instrument material.
func Resample(buf *audio.Buffer, outputRate int) (*audio.Buffer, error) {
	if buf.SampleRate == outputRate || buf.Frames() == 0 {
		out := buf.Clone()
		out.SampleRate = outputRate
		return out, nil
	}

	out := &audio.Buffer{Channels: make([][]float64, buf.NumChannels()), SampleRate: outputRate}
	for c, ch := range buf.Channels {
		resampled, err := resampling.ResampleMono(ch, float64(buf.SampleRate), float64(outputRate), resampling.QualityHigh)
		if err != nil {
			return nil, fmt.Errorf("resample channel %d: %w", c, err)
		}
		out.Channels[c] = resampled
	}

	// Channels may differ by a frame at the filter edge.
	n := out.Frames()
	for _, ch := range out.Channels {
		n = min(n, len(ch))
	}
	for c := range out.Channels {
		out.Channels[c] = out.Channels[c][:n]
	}
	return out, nil
}
