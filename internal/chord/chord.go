// Package chord renders stacked-pitch chord samples from a single source.
package chord

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/Danondso/padforge/internal/audio"
	"github.com/Danondso/padforge/internal/stretch"
	"github.com/Danondso/padforge/internal/wavfile"
)

// Spec names a chord and the semitone offsets stacked to build it.
type Spec struct {
	Name    string
	Offsets []int
}

func (s Spec) String() string {
	parts := make([]string, len(s.Offsets))
	for i, o := range s.Offsets {
		parts[i] = fmt.Sprintf("%+d", o)
	}
	return fmt.Sprintf("%s [%s]", s.Name, strings.Join(parts, " "))
}

// Rendered is one finished chord sample.
type Rendered struct {
	Name   string // file name, e.g. "pad_chord_Cm9.wav"
	Buffer *audio.Buffer
	Data   []byte // encoded WAV
}

// Renderer turns a source sample and a Spec into a chord sample. A
// Renderer is safe for concurrent use if its Stretcher is.
type Renderer struct {
	Stretcher  stretch.Stretcher
	Format     wavfile.Format
	TargetPeak float64 // 0 means audio.DefaultPeak
	Logger     *log.Logger
}

// Sanitize strips all whitespace from a chord name.
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
}

// FileName returns the sample file name for a chord.
func FileName(baseName, chordName string) string {
	return baseName + "_chord_" + Sanitize(chordName) + ".wav"
}

// Render pitch-shifts src once per offset, mixes the results, normalizes
// the mix and encodes it. Stages run one after another; src is not
// modified.
func (r *Renderer) Render(ctx context.Context, src *audio.Buffer, spec Spec, baseName string) (*Rendered, error) {
	if len(spec.Offsets) == 0 {
		return nil, fmt.Errorf("render %s: %w", spec.Name, audio.ErrEmptyMixInput)
	}
	start := time.Now()

	layers := make([]*audio.Buffer, 0, len(spec.Offsets))
	for _, semis := range spec.Offsets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		shifted, err := r.Stretcher.Stretch(ctx, src, stretch.Ratio(semis))
		if err != nil {
			return nil, fmt.Errorf("stretch %s by %+d: %w", spec.Name, semis, err)
		}
		layers = append(layers, shifted)
	}

	mixed, err := audio.Mix(layers)
	if err != nil {
		return nil, fmt.Errorf("mix %s: %w", spec.Name, err)
	}

	peak := r.TargetPeak
	if peak <= 0 {
		peak = audio.DefaultPeak
	}
	audio.Normalize(mixed, peak)

	data, err := wavfile.Encode(mixed, r.Format)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", spec.Name, err)
	}

	if r.Logger != nil {
		r.Logger.Printf("chord %s: layers=%d frames=%d bytes=%d latency=%s",
			spec.Name, len(layers), mixed.Frames(), len(data), time.Since(start).Round(time.Millisecond))
	}
	return &Rendered{
		Name:   FileName(baseName, spec.Name),
		Buffer: mixed,
		Data:   data,
	}, nil
}
