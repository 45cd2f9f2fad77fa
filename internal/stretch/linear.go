package stretch

import (
	"context"

	"github.com/Danondso/padforge/internal/audio"
)

// Linear reads the source at ratio speed with linear interpolation between
// neighbouring samples. It is deterministic and needs no external backend.
type Linear struct{}

// NewLinear creates a linear-interpolation stretcher.
func NewLinear() *Linear {
	return &Linear{}
}

func (l *Linear) Stretch(ctx context.Context, buf *audio.Buffer, ratio float64) (*audio.Buffer, error) {
	if err := checkRatio(ratio); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := buf.Frames()
	frames := OutputFrames(n, ratio)
	out := audio.New(buf.NumChannels(), frames, buf.SampleRate)
	for c, src := range buf.Channels {
		dst := out.Channels[c]
		for i := range dst {
			pos := float64(i) * ratio
			idx := int(pos)
			frac := pos - float64(idx)
			s0 := src[idx]
			s1 := s0
			if idx+1 < n {
				s1 = src[idx+1]
			}
			dst[i] = s0 + (s1-s0)*frac
		}
	}
	return out, nil
}
