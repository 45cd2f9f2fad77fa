// Package region splits a sample's timeline into contiguous slices.
package region

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Danondso/padforge/internal/audio"
)

// MaxCount is the largest number of regions EvenSplit will produce.
const MaxCount = 64

// ErrInvalidRegionBounds is returned when an adjustment or a region list
// would leave a region empty, inverted or outside the sample.
var ErrInvalidRegionBounds = errors.New("invalid region bounds")

// Region is a half-open time interval [Start, End) in seconds.
type Region struct {
	Start float64
	End   float64
}

// Length returns End - Start.
func (r Region) Length() float64 {
	return r.End - r.Start
}

// Frames converts the region to a frame range at the given sample rate.
func (r Region) Frames(sampleRate int) (from, to int) {
	from = int(math.Round(r.Start * float64(sampleRate)))
	to = int(math.Round(r.End * float64(sampleRate)))
	return from, to
}

func (r Region) String() string {
	return fmt.Sprintf("[%.3f, %.3f)", r.Start, r.End)
}

// EvenSplit divides [0, duration) into count regions of equal length.
// Each region ends exactly where the next begins and the last one ends at
// duration.
func EvenSplit(duration float64, count int) ([]Region, error) {
	if count < 1 || count > MaxCount {
		return nil, fmt.Errorf("split into %d regions: count must be in [1, %d]", count, MaxCount)
	}
	if !(duration > 0) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("split %v seconds: %w", duration, ErrInvalidRegionBounds)
	}

	step := duration / float64(count)
	regions := make([]Region, count)
	for i := range regions {
		regions[i] = Region{Start: float64(i) * step, End: float64(i+1) * step}
		if i > 0 {
			regions[i].Start = regions[i-1].End
		}
	}
	regions[count-1].End = duration
	return regions, nil
}

// Adjust moves the start and/or end of regions[index] and snaps the
// neighbouring edges so the regions stay contiguous. The first start is
// clamped to 0 and the last end to duration. An adjustment that would make
// either affected region empty or inverted is rejected. The input slice is
// not modified.
func Adjust(regions []Region, index int, newStart, newEnd *float64, duration float64) ([]Region, error) {
	if index < 0 || index >= len(regions) {
		return nil, fmt.Errorf("adjust region %d of %d: index out of range", index, len(regions))
	}

	out := make([]Region, len(regions))
	copy(out, regions)
	last := len(out) - 1

	if newStart != nil {
		v := *newStart
		if math.IsNaN(v) {
			return nil, fmt.Errorf("adjust region %d start: %w", index, ErrInvalidRegionBounds)
		}
		if index == 0 {
			v = math.Max(v, 0)
		}
		out[index].Start = v
		if index > 0 {
			out[index-1].End = v
		}
	}
	if newEnd != nil {
		v := *newEnd
		if math.IsNaN(v) {
			return nil, fmt.Errorf("adjust region %d end: %w", index, ErrInvalidRegionBounds)
		}
		if index == last {
			v = math.Min(v, duration)
		}
		out[index].End = v
		if index < last {
			out[index+1].Start = v
		}
	}

	for i := max(index-1, 0); i <= min(index+1, last); i++ {
		if out[i].Start >= out[i].End {
			return nil, fmt.Errorf("adjust region %d: region %d would be %s: %w", index, i, out[i], ErrInvalidRegionBounds)
		}
	}
	if out[0].Start < 0 || out[last].End > duration {
		return nil, fmt.Errorf("adjust region %d: outside [0, %v]: %w", index, duration, ErrInvalidRegionBounds)
	}
	return out, nil
}

// Validate checks that regions are non-empty, within [0, duration] and in
// ascending order. Gaps are allowed between regions passed explicitly but
// overlaps are not.
func Validate(regions []Region, duration float64) error {
	if len(regions) == 0 {
		return fmt.Errorf("no regions: %w", ErrInvalidRegionBounds)
	}
	for i, r := range regions {
		if !(r.Start >= 0) || !(r.Start < r.End) || r.End > duration {
			return fmt.Errorf("region %d %s in %v seconds: %w", i, r, duration, ErrInvalidRegionBounds)
		}
		if i > 0 && r.Start < regions[i-1].End {
			return fmt.Errorf("region %d overlaps region %d: %w", i, i-1, ErrInvalidRegionBounds)
		}
	}
	return nil
}

// Contiguous reports whether each region ends where the next begins.
func Contiguous(regions []Region) bool {
	for i := 1; i < len(regions); i++ {
		if regions[i-1].End != regions[i].Start {
			return false
		}
	}
	return true
}

// Extract copies the frames covered by r out of buf.
func Extract(buf *audio.Buffer, r Region) *audio.Buffer {
	from, to := r.Frames(buf.SampleRate)
	return buf.Slice(from, to)
}

// Parse reads a comma-separated list of start:end pairs in seconds, such as
// "0:1.5,1.5:3".
func Parse(s string) ([]Region, error) {
	var regions []Region
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		startStr, endStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("parse region %q: want start:end", part)
		}
		start, err := strconv.ParseFloat(strings.TrimSpace(startStr), 64)
		if err != nil {
			return nil, fmt.Errorf("parse region %q start: %w", part, err)
		}
		end, err := strconv.ParseFloat(strings.TrimSpace(endStr), 64)
		if err != nil {
			return nil, fmt.Errorf("parse region %q end: %w", part, err)
		}
		regions = append(regions, Region{Start: start, End: end})
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("parse regions %q: none given", s)
	}
	return regions, nil
}
