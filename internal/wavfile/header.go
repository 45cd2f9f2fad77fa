package wavfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Header is the decoded canonical WAV header.
type Header struct {
	RIFFSize      uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

// Frames returns the number of frames the data chunk declares.
func (h Header) Frames() int {
	if h.BlockAlign == 0 {
		return 0
	}
	return int(h.DataSize) / int(h.BlockAlign)
}

// ReadHeader parses and checks the 44-byte header at the start of data.
// Only the canonical layout (fmt chunk of 16 bytes followed directly by
// the data chunk) is accepted.
func ReadHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSize {
		return h, fmt.Errorf("data too short for WAV header")
	}

	r := bytes.NewReader(data)

	// read wraps binary.Read to capture the first error.
	var firstErr error
	read := func(v interface{}) {
		if firstErr != nil {
			return
		}
		firstErr = binary.Read(r, binary.LittleEndian, v)
	}

	var riffID [4]byte
	read(&riffID)
	read(&h.RIFFSize)
	var waveID [4]byte
	read(&waveID)
	if firstErr != nil {
		return h, fmt.Errorf("read RIFF header: %w", firstErr)
	}
	if string(riffID[:]) != "RIFF" {
		return h, fmt.Errorf("not a RIFF file")
	}
	if string(waveID[:]) != "WAVE" {
		return h, fmt.Errorf("not a WAVE file")
	}

	var fmtID [4]byte
	var fmtSize uint32
	read(&fmtID)
	read(&fmtSize)
	read(&h.AudioFormat)
	read(&h.Channels)
	read(&h.SampleRate)
	read(&h.ByteRate)
	read(&h.BlockAlign)
	read(&h.BitsPerSample)
	if firstErr != nil {
		return h, fmt.Errorf("read WAV format: %w", firstErr)
	}
	if string(fmtID[:]) != "fmt " || fmtSize != 16 {
		return h, fmt.Errorf("unexpected fmt chunk %q size %d", fmtID[:], fmtSize)
	}

	var dataID [4]byte
	read(&dataID)
	read(&h.DataSize)
	if firstErr != nil {
		return h, fmt.Errorf("read data chunk: %w", firstErr)
	}
	if string(dataID[:]) != "data" {
		return h, fmt.Errorf("unexpected chunk %q, want data", dataID[:])
	}

	if h.AudioFormat != tagPCM && h.AudioFormat != tagIEEEFloat {
		return h, fmt.Errorf("unsupported format tag %d", h.AudioFormat)
	}
	if want := h.Channels * (h.BitsPerSample / 8); h.BlockAlign != want {
		return h, fmt.Errorf("block align %d, want %d", h.BlockAlign, want)
	}
	if want := h.SampleRate * uint32(h.BlockAlign); h.ByteRate != want {
		return h, fmt.Errorf("byte rate %d, want %d", h.ByteRate, want)
	}
	if h.RIFFSize != 36+h.DataSize {
		return h, fmt.Errorf("riff size %d, want %d", h.RIFFSize, 36+h.DataSize)
	}
	if int(h.DataSize) > len(data)-HeaderSize {
		return h, fmt.Errorf("data chunk declares %d bytes, have %d", h.DataSize, len(data)-HeaderSize)
	}
	return h, nil
}
