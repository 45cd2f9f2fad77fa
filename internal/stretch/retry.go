package stretch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/Danondso/padforge/internal/audio"
)

// DefaultRetryInterval is the pause between attempts of a Retrying stretcher.
const DefaultRetryInterval = 250 * time.Millisecond

// Retrying retries a failing Stretcher a bounded number of times with a
// constant pause. Invalid ratios fail immediately.
type Retrying struct {
	Next     Stretcher
	Retries  int
	Interval time.Duration
	logger   *log.Logger
}

// WithRetry wraps s so failed stretches are retried up to retries times.
func WithRetry(s Stretcher, retries int, logger *log.Logger) *Retrying {
	return &Retrying{
		Next:     s,
		Retries:  retries,
		Interval: DefaultRetryInterval,
		logger:   logger,
	}
}

func (r *Retrying) Stretch(ctx context.Context, buf *audio.Buffer, ratio float64) (*audio.Buffer, error) {
	if err := checkRatio(ratio); err != nil {
		return nil, err
	}

	var out *audio.Buffer
	op := func() error {
		res, err := r.Next.Stretch(ctx, buf, ratio)
		if err != nil {
			return err
		}
		out = res
		return nil
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(r.Interval)
	b = backoff.WithMaxRetries(b, uint64(r.Retries))
	b = backoff.WithContext(b, ctx)

	notify := func(err error, wait time.Duration) {
		if r.logger != nil {
			r.logger.Printf("stretch retry: ratio=%.4f err=%v next_in=%s", ratio, err, wait)
		}
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return out, nil
}

// Serial lets only one stretch run at a time through the wrapped Stretcher,
// for backends that cannot handle concurrent conversions.
type Serial struct {
	mu   sync.Mutex
	next Stretcher
}

// NewSerial wraps s with a process-wide lock.
func NewSerial(s Stretcher) *Serial {
	return &Serial{next: s}
}

func (s *Serial) Stretch(ctx context.Context, buf *audio.Buffer, ratio float64) (*audio.Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Stretch(ctx, buf, ratio)
}
