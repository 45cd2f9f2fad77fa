package stretch

import (
	"context"
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/Danondso/padforge/internal/audio"
)

// Polyphase pitch-shifts with a polyphase FIR sample-rate converter
// (Kaiser window, via go-audio-resampling). The source is treated as if it
// were recorded at rate*ratio and converted back down to rate.
type Polyphase struct {
	quality string
}

// NewPolyphase creates a polyphase stretcher. quality is "low" or "high".
func NewPolyphase(quality string) (*Polyphase, error) {
	switch quality {
	case "", "high":
		return &Polyphase{quality: "high"}, nil
	case "low":
		return &Polyphase{quality: "low"}, nil
	default:
		return nil, fmt.Errorf("unknown polyphase quality: %s", quality)
	}
}

func (p *Polyphase) Stretch(ctx context.Context, buf *audio.Buffer, ratio float64) (*audio.Buffer, error) {
	if err := checkRatio(ratio); err != nil {
		return nil, err
	}

	frames := OutputFrames(buf.Frames(), ratio)
	out := audio.New(buf.NumChannels(), frames, buf.SampleRate)
	if frames == 0 {
		return out, nil
	}
	if ratio == 1 {
		for c, ch := range buf.Channels {
			copy(out.Channels[c], ch)
		}
		return out, nil
	}

	inRate := float64(buf.SampleRate) * ratio
	outRate := float64(buf.SampleRate)
	for c, ch := range buf.Channels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var (
			resampled []float64
			err       error
		)
		if p.quality == "low" {
			resampled, err = resampling.ResampleMono(ch, inRate, outRate, resampling.QualityLow)
		} else {
			resampled, err = resampling.ResampleMono(ch, inRate, outRate, resampling.QualityHigh)
		}
		if err != nil {
			return nil, fmt.Errorf("resample channel %d: %w", c, err)
		}
		out.Channels[c] = fit(resampled, frames)
	}
	return out, nil
}
