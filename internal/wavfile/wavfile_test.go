package wavfile

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Danondso/padforge/internal/audio"
)

func TestQuantizePCM16(t *testing.T) {
	tests := []struct {
		in   float64
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32768},
		{1.5, 32767},
		{-2, -32768},
		{0.5, 16383},
		{-0.5, -16384},
	}
	for _, tt := range tests {
		if got := QuantizePCM16(tt.in); got != tt.want {
			t.Errorf("QuantizePCM16(%v): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestEncodePCM16HeaderBytes(t *testing.T) {
	buf := audio.New(2, 3, 44100)
	data, err := Encode(buf, PCM16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantData := 3 * 2 * 2
	if len(data) != HeaderSize+wantData {
		t.Fatalf("expected %d bytes, got %d", HeaderSize+wantData, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Errorf("bad RIFF/WAVE ids: %q %q", data[0:4], data[8:12])
	}
	if got := binary.LittleEndian.Uint32(data[4:8]); got != uint32(36+wantData) {
		t.Errorf("expected riff size %d, got %d", 36+wantData, got)
	}
	if string(data[12:16]) != "fmt " {
		t.Errorf("expected fmt chunk, got %q", data[12:16])
	}
	if got := binary.LittleEndian.Uint32(data[16:20]); got != 16 {
		t.Errorf("expected fmt size 16, got %d", got)
	}
	if got := binary.LittleEndian.Uint16(data[20:22]); got != 1 {
		t.Errorf("expected format tag 1, got %d", got)
	}
	if got := binary.LittleEndian.Uint16(data[22:24]); got != 2 {
		t.Errorf("expected 2 channels, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(data[24:28]); got != 44100 {
		t.Errorf("expected 44100 Hz, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(data[28:32]); got != 44100*4 {
		t.Errorf("expected byte rate %d, got %d", 44100*4, got)
	}
	if got := binary.LittleEndian.Uint16(data[32:34]); got != 4 {
		t.Errorf("expected block align 4, got %d", got)
	}
	if got := binary.LittleEndian.Uint16(data[34:36]); got != 16 {
		t.Errorf("expected 16 bits, got %d", got)
	}
	if string(data[36:40]) != "data" {
		t.Errorf("expected data chunk, got %q", data[36:40])
	}
	if got := binary.LittleEndian.Uint32(data[40:44]); got != uint32(wantData) {
		t.Errorf("expected data size %d, got %d", wantData, got)
	}
}

func TestEncodeStereoInterleaves(t *testing.T) {
	buf := audio.New(2, 2, 8000)
	buf.Channels[0] = []float64{1, -1}
	buf.Channels[1] = []float64{0, 0.5}
	data, err := Encode(buf, PCM16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int16{32767, 0, -32768, 16383}
	for i, w := range want {
		got := int16(binary.LittleEndian.Uint16(data[HeaderSize+2*i:]))
		if got != w {
			t.Errorf("sample %d: expected %d, got %d", i, w, got)
		}
	}
}

func TestEncodeFloat32(t *testing.T) {
	buf := audio.New(1, 3, 48000)
	buf.Channels[0] = []float64{0.25, -0.75, 1.5}
	data, err := Encode(buf, Float32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h, err := ReadHeader(data)
	if err != nil {
		t.Fatalf("unexpected header error: %v", err)
	}
	if h.AudioFormat != 3 {
		t.Errorf("expected format tag 3, got %d", h.AudioFormat)
	}
	if h.BitsPerSample != 32 || h.BlockAlign != 4 || h.ByteRate != 48000*4 {
		t.Errorf("unexpected layout bits=%d align=%d rate=%d", h.BitsPerSample, h.BlockAlign, h.ByteRate)
	}
	if h.DataSize != 12 {
		t.Errorf("expected data size 12, got %d", h.DataSize)
	}
	// float samples are written verbatim, without clamping
	for i, w := range buf.Channels[0] {
		got := math.Float32frombits(binary.LittleEndian.Uint32(data[HeaderSize+4*i:]))
		if got != float32(w) {
			t.Errorf("sample %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestEncodeEmptyBuffer(t *testing.T) {
	data, err := Encode(audio.New(1, 0, 44100), PCM16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != HeaderSize {
		t.Fatalf("expected %d bytes, got %d", HeaderSize, len(data))
	}
	h, err := ReadHeader(data)
	if err != nil {
		t.Fatalf("unexpected header error: %v", err)
	}
	if h.DataSize != 0 || h.RIFFSize != 36 {
		t.Errorf("expected empty data chunk, got data=%d riff=%d", h.DataSize, h.RIFFSize)
	}
}

func TestEncodeUnsupportedChannelCount(t *testing.T) {
	for _, n := range []int{0, 3, 6} {
		_, err := Encode(audio.New(n, 10, 44100), PCM16)
		if !errors.Is(err, ErrUnsupportedChannelCount) {
			t.Errorf("%d channels: expected ErrUnsupportedChannelCount, got %v", n, err)
		}
	}
}

func TestPCM16RoundTripWithinTwoSteps(t *testing.T) {
	buf := audio.New(2, 441, 44100)
	for i := 0; i < buf.Frames(); i++ {
		buf.Channels[0][i] = 0.8 * math.Sin(2*math.Pi*440*float64(i)/44100)
		buf.Channels[1][i] = -0.5 * math.Cos(2*math.Pi*220*float64(i)/44100)
	}
	data, err := Encode(buf, PCM16)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SampleRate != 44100 || got.NumChannels() != 2 || got.Frames() != 441 {
		t.Fatalf("unexpected layout: rate=%d ch=%d frames=%d", got.SampleRate, got.NumChannels(), got.Frames())
	}
	for c := range buf.Channels {
		for i, want := range buf.Channels[c] {
			// positives encode at 32767 and decode at 32768, so allow two steps
			if d := math.Abs(got.Channels[c][i] - want); d > 2.0/32768 {
				t.Fatalf("ch %d sample %d: expected %v, got %v", c, i, want, got.Channels[c][i])
			}
		}
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode([]byte("not a wav file at all")); err == nil {
		t.Error("expected error for invalid data")
	}
}

func TestReadHeaderRejects(t *testing.T) {
	good, err := Encode(audio.New(1, 4, 16000), PCM16)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if _, err := ReadHeader(good[:20]); err == nil {
		t.Error("expected error for short data")
	}

	bad := append([]byte(nil), good...)
	copy(bad[0:4], "RIFX")
	if _, err := ReadHeader(bad); err == nil {
		t.Error("expected error for bad RIFF id")
	}

	bad = append([]byte(nil), good...)
	binary.LittleEndian.PutUint16(bad[32:34], 7)
	if _, err := ReadHeader(bad); err == nil {
		t.Error("expected error for bad block align")
	}

	bad = append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(bad[40:44], 1000)
	if _, err := ReadHeader(bad); err == nil {
		t.Error("expected error for oversized data chunk")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", PCM16, false},
		{"pcm16", PCM16, false},
		{"Float32", Float32, false},
		{"mp3", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q): unexpected error state %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseFormat(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}
