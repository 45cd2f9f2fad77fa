// Package stretch pitch-shifts buffers by reading them at a different speed.
//
// Every Stretcher returns floor(frames/ratio) frames at the input sample
// rate, processing each channel independently. A ratio large enough to
// leave no frames yields an empty buffer, not an error.
package stretch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/Danondso/padforge/internal/audio"
	"github.com/Danondso/padforge/internal/config"
)

// ErrInvalidRatio is returned for ratios that are not finite and positive.
var ErrInvalidRatio = errors.New("invalid stretch ratio")

// Stretcher resamples a buffer so it plays back ratio times faster.
type Stretcher interface {
	Stretch(ctx context.Context, buf *audio.Buffer, ratio float64) (*audio.Buffer, error)
}

// Ratio returns the playback speed for a shift of the given semitones.
func Ratio(semitones int) float64 {
	return math.Pow(2, float64(semitones)/12)
}

// Semitones is the inverse of Ratio.
func Semitones(ratio float64) float64 {
	return 12 * math.Log2(ratio)
}

// OutputFrames returns the frame count a stretch of n frames must produce.
func OutputFrames(n int, ratio float64) int {
	return int(math.Floor(float64(n) / ratio))
}

func checkRatio(ratio float64) error {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return fmt.Errorf("ratio %v: %w", ratio, ErrInvalidRatio)
	}
	return nil
}

// fit truncates or zero-pads ch to exactly n samples.
func fit(ch []float64, n int) []float64 {
	if len(ch) >= n {
		return ch[:n:n]
	}
	out := make([]float64, n)
	copy(out, ch)
	return out
}

// New creates a Stretcher based on the resampler config.
func New(cfg *config.ResamplerConfig, logger *log.Logger) (Stretcher, error) {
	var s Stretcher
	switch cfg.Provider {
	case "", "linear":
		s = NewLinear()
	case "polyphase":
		p, err := NewPolyphase(cfg.Quality)
		if err != nil {
			return nil, err
		}
		s = p
	case "command":
		if cfg.Command == "" {
			return nil, fmt.Errorf("command provider requires a non-empty command")
		}
		s = NewCommand(cfg.Command, cfg.TimeoutSec, logger)
	default:
		return nil, fmt.Errorf("unknown resampler provider: %s", cfg.Provider)
	}

	if cfg.Serial {
		s = NewSerial(s)
	}
	if cfg.Retries > 0 {
		s = WithRetry(s, cfg.Retries, logger)
	}
	if logger != nil {
		logger.Printf("resampler: provider=%s serial=%v retries=%d", cfg.Provider, cfg.Serial, cfg.Retries)
	}
	return s, nil
}

// timed logs how long a stretch took.
func timed(logger *log.Logger, name string, ratio float64, start time.Time) {
	if logger != nil {
		logger.Printf("stretch %s: ratio=%.4f latency=%s", name, ratio, time.Since(start).Round(time.Millisecond))
	}
}
