// Package source loads the sample a kit is rendered from.
package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"

	"github.com/Danondso/padforge/internal/audio"
	"github.com/Danondso/padforge/internal/wavfile"
)

// MP3Rate is the rate compressed sources are converted to.
const MP3Rate = 44100

// resampleQuality is beep's interpolation window size.
const resampleQuality = 4

// Options controls Load.
type Options struct {
	// SampleRate converts the source to this rate when non-zero. MP3
	// sources default to MP3Rate.
	SampleRate int
}

// Load decodes a WAV or MP3 file into a buffer. Sources with more than two
// channels are mixed down to mono.
func Load(path string, opts Options) (*audio.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	var buf *audio.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		buf, err = decodeWAV(data, opts.SampleRate)
	case ".mp3":
		rate := opts.SampleRate
		if rate == 0 {
			rate = MP3Rate
		}
		buf, err = decodeMP3(data, rate)
	default:
		return nil, fmt.Errorf("unsupported source format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}

	if buf.NumChannels() > 2 {
		buf = buf.Mono()
	}
	if buf.Frames() == 0 {
		return nil, fmt.Errorf("load %s: source is empty", filepath.Base(path))
	}
	return buf, nil
}

// BaseName returns the file name without directory or extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func decodeWAV(data []byte, rate int) (*audio.Buffer, error) {
	buf, err := wavfile.Decode(data)
	if err == nil {
		if rate == 0 || rate == buf.SampleRate {
			return buf, nil
		}
		return Resample(buf, rate), nil
	}

	// Extensible and other non-canonical headers go through beep's decoder.
	streamer, format, berr := wav.Decode(bytes.NewReader(data))
	if berr != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	defer streamer.Close()
	return fromStream(streamer, format, rate), nil
}

func decodeMP3(data []byte, rate int) (*audio.Buffer, error) {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()
	return fromStream(streamer, format, rate), nil
}

// fromStream drains s, converting it to rate when that differs from the
// stream's own rate.
func fromStream(s beep.Streamer, format beep.Format, rate int) *audio.Buffer {
	if rate != 0 && beep.SampleRate(rate) != format.SampleRate {
		s = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(rate), s)
	} else {
		rate = int(format.SampleRate)
	}
	channels := format.NumChannels
	if channels < 1 || channels > 2 {
		channels = 2
	}
	return drain(s, channels, rate)
}

// drain reads s to the end. beep streams are always stereo; for mono
// sources only the left channel is kept.
func drain(s beep.Streamer, channels, rate int) *audio.Buffer {
	out := &audio.Buffer{Channels: make([][]float64, channels), SampleRate: rate}
	chunk := make([][2]float64, 4096)
	for {
		n, ok := s.Stream(chunk)
		for i := 0; i < n; i++ {
			for c := 0; c < channels; c++ {
				out.Channels[c] = append(out.Channels[c], chunk[i][c])
			}
		}
		if !ok {
			break
		}
	}
	for c := range out.Channels {
		if out.Channels[c] == nil {
			out.Channels[c] = []float64{}
		}
	}
	return out
}

// Resample converts buf to rate through beep's resampler.
func Resample(buf *audio.Buffer, rate int) *audio.Buffer {
	if buf.SampleRate == rate {
		return buf.Clone()
	}
	s := &bufferStreamer{buf: buf}
	r := beep.Resample(resampleQuality, beep.SampleRate(buf.SampleRate), beep.SampleRate(rate), s)
	return drain(r, buf.NumChannels(), rate)
}

// bufferStreamer plays a buffer as a beep.Streamer, duplicating mono into
// both channels.
type bufferStreamer struct {
	buf *audio.Buffer
	pos int
}

func (b *bufferStreamer) Stream(samples [][2]float64) (int, bool) {
	frames := b.buf.Frames()
	if b.pos >= frames {
		return 0, false
	}
	n := min(len(samples), frames-b.pos)
	last := b.buf.NumChannels() - 1
	for i := 0; i < n; i++ {
		samples[i][0] = b.buf.Channels[0][b.pos+i]
		samples[i][1] = b.buf.Channels[min(1, last)][b.pos+i]
	}
	b.pos += n
	return n, true
}

func (b *bufferStreamer) Err() error {
	return nil
}
