// Package wavfile reads and writes canonical 44-byte-header RIFF/WAVE data.
package wavfile

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Danondso/padforge/internal/audio"
)

// Format selects the sample encoding written by Encode.
type Format int

const (
	PCM16 Format = iota
	Float32
)

// WAVE format tags.
const (
	tagPCM       = 1
	tagIEEEFloat = 3
)

// HeaderSize is the length of the canonical header Encode writes.
const HeaderSize = 44

// ErrUnsupportedChannelCount is returned for buffers that are neither mono
// nor stereo.
var ErrUnsupportedChannelCount = errors.New("unsupported channel count")

func (f Format) String() string {
	switch f {
	case PCM16:
		return "pcm16"
	case Float32:
		return "float32"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// BitDepth returns the bits per sample for the format.
func (f Format) BitDepth() int {
	if f == Float32 {
		return 32
	}
	return 16
}

// ParseFormat maps a config/CLI name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pcm16", "pcm", "int16":
		return PCM16, nil
	case "float32", "float", "f32":
		return Float32, nil
	default:
		return 0, fmt.Errorf("unknown wav format: %s", s)
	}
}

// writeSeeker is an in-memory io.WriteSeeker for WAV encoding.
type writeSeeker struct {
	buf []byte
	pos int
}

func (ws *writeSeeker) Write(p []byte) (int, error) {
	end := ws.pos + len(p)
	if end > len(ws.buf) {
		ws.buf = append(ws.buf, make([]byte, end-len(ws.buf))...)
	}
	copy(ws.buf[ws.pos:], p)
	ws.pos = end
	return len(p), nil
}

func (ws *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var newPos int
	switch whence {
	case 0: // io.SeekStart
		newPos = int(offset)
	case 1: // io.SeekCurrent
		newPos = ws.pos + int(offset)
	case 2: // io.SeekEnd
		newPos = len(ws.buf) + int(offset)
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}
	if newPos < 0 || newPos > len(ws.buf) {
		return 0, fmt.Errorf("seek position %d out of bounds [0, %d]", newPos, len(ws.buf))
	}
	ws.pos = newPos
	return int64(ws.pos), nil
}

// QuantizePCM16 clamps v to [-1, 1] and scales it asymmetrically:
// negative values by 32768, the rest by 32767, truncating toward zero.
func QuantizePCM16(v float64) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	if v < 0 {
		return int16(v * 0x8000)
	}
	return int16(v * 0x7FFF)
}

// Encode serializes buf as a WAV file with a 44-byte header and
// frame-interleaved little-endian samples.
func Encode(buf *audio.Buffer, format Format) ([]byte, error) {
	channels := buf.NumChannels()
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("encode %d channels: %w", channels, ErrUnsupportedChannelCount)
	}
	if buf.SampleRate <= 0 {
		return nil, fmt.Errorf("encode: invalid sample rate %d", buf.SampleRate)
	}

	frames := buf.Frames()
	intBuf := &goaudio.IntBuffer{
		Data: make([]int, frames*channels),
		Format: &goaudio.Format{
			SampleRate:  buf.SampleRate,
			NumChannels: channels,
		},
		SourceBitDepth: format.BitDepth(),
	}

	tag := tagPCM
	samples := buf.Interleave()
	switch format {
	case PCM16:
		for i, v := range samples {
			intBuf.Data[i] = int(QuantizePCM16(v))
		}
	case Float32:
		// The encoder writes 32-bit samples as int32, so IEEE floats are
		// handed over as their raw bit patterns.
		tag = tagIEEEFloat
		for i, v := range samples {
			intBuf.Data[i] = int(int32(math.Float32bits(float32(v))))
		}
	default:
		return nil, fmt.Errorf("encode: unknown format %d", int(format))
	}

	ws := &writeSeeker{}
	enc := wav.NewEncoder(ws, buf.SampleRate, format.BitDepth(), channels, tag)
	if err := enc.Write(intBuf); err != nil {
		return nil, fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close wav encoder: %w", err)
	}
	return ws.buf, nil
}

// Decode reads WAV bytes into a planar float buffer. Integer PCM of 8, 16,
// 24 or 32 bits and 32-bit IEEE float are supported.
func Decode(data []byte) (*audio.Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}

	pcmBuf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		return nil, fmt.Errorf("decode wav: %w", ErrUnsupportedChannelCount)
	}
	bitDepth := int(dec.BitDepth)
	isFloat := dec.WavAudioFormat == tagIEEEFloat

	var conv func(int) float64
	switch {
	case isFloat && bitDepth == 32:
		conv = func(v int) float64 { return float64(math.Float32frombits(uint32(int32(v)))) }
	case isFloat:
		return nil, fmt.Errorf("decode wav: unsupported float bit depth %d", bitDepth)
	case bitDepth == 8:
		conv = func(v int) float64 { return float64(v-128) / 128 }
	case bitDepth == 16, bitDepth == 24, bitDepth == 32:
		scale := float64(int64(1) << (bitDepth - 1))
		conv = func(v int) float64 { return float64(v) / scale }
	default:
		return nil, fmt.Errorf("decode wav: unsupported bit depth %d", bitDepth)
	}

	samples := make([]float64, len(pcmBuf.Data))
	for i, v := range pcmBuf.Data {
		samples[i] = conv(v)
	}
	return audio.FromInterleaved(samples, channels, int(dec.SampleRate)), nil
}
