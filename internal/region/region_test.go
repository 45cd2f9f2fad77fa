package region

import (
	"errors"
	"testing"

	"github.com/Danondso/padforge/internal/audio"
)

func f(v float64) *float64 { return &v }

func TestEvenSplitEightByFour(t *testing.T) {
	regions, err := EvenSplit(8.0, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Region{{0, 2}, {2, 4}, {4, 6}, {6, 8}}
	if len(regions) != len(want) {
		t.Fatalf("expected %d regions, got %d", len(want), len(regions))
	}
	for i, w := range want {
		if regions[i] != w {
			t.Errorf("region %d: expected %v, got %v", i, w, regions[i])
		}
	}
}

func TestEvenSplitContiguousForAwkwardDurations(t *testing.T) {
	for _, count := range []int{1, 3, 7, 16, 64} {
		regions, err := EvenSplit(1.234567, count)
		if err != nil {
			t.Fatalf("count %d: unexpected error: %v", count, err)
		}
		if !Contiguous(regions) {
			t.Errorf("count %d: regions not contiguous: %v", count, regions)
		}
		if regions[0].Start != 0 || regions[count-1].End != 1.234567 {
			t.Errorf("count %d: expected [0, 1.234567], got %v..%v", count, regions[0].Start, regions[count-1].End)
		}
		if err := Validate(regions, 1.234567); err != nil {
			t.Errorf("count %d: unexpected validate error: %v", count, err)
		}
	}
}

func TestEvenSplitRejects(t *testing.T) {
	if _, err := EvenSplit(8, 0); err == nil {
		t.Error("expected error for zero count")
	}
	if _, err := EvenSplit(8, MaxCount+1); err == nil {
		t.Error("expected error for count above max")
	}
	if _, err := EvenSplit(0, 4); !errors.Is(err, ErrInvalidRegionBounds) {
		t.Errorf("expected ErrInvalidRegionBounds for zero duration, got %v", err)
	}
}

func TestAdjustEndSnapsNext(t *testing.T) {
	regions, _ := EvenSplit(8.0, 4)
	got, err := Adjust(regions, 1, nil, f(3.5), 8.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Region{{0, 2}, {2, 3.5}, {3.5, 6}, {6, 8}}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("region %d: expected %v, got %v", i, w, got[i])
		}
	}
	if regions[1].End != 4 {
		t.Error("input slice was modified")
	}
}

func TestAdjustStartSnapsPrevious(t *testing.T) {
	regions, _ := EvenSplit(8.0, 4)
	got, err := Adjust(regions, 2, f(3), nil, 8.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[1].End != 3 || got[2].Start != 3 {
		t.Errorf("expected boundary at 3, got %v %v", got[1], got[2])
	}
	if !Contiguous(got) {
		t.Error("regions no longer contiguous")
	}
}

func TestAdjustClampsOuterEdges(t *testing.T) {
	regions, _ := EvenSplit(8.0, 4)
	got, err := Adjust(regions, 0, f(-1), nil, 8.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Start != 0 {
		t.Errorf("expected first start clamped to 0, got %v", got[0].Start)
	}

	got, err = Adjust(regions, 3, nil, f(12), 8.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[3].End != 8 {
		t.Errorf("expected last end clamped to 8, got %v", got[3].End)
	}
}

func TestAdjustBothEdges(t *testing.T) {
	regions, _ := EvenSplit(8.0, 4)
	got, err := Adjust(regions, 1, f(1.5), f(4.5), 8.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Region{{0, 1.5}, {1.5, 4.5}, {4.5, 6}, {6, 8}}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("region %d: expected %v, got %v", i, w, got[i])
		}
	}
}

func TestAdjustRejectsInversion(t *testing.T) {
	regions, _ := EvenSplit(8.0, 4)
	tests := []struct {
		name  string
		index int
		start *float64
		end   *float64
	}{
		{"end before own start", 1, nil, f(1.5)},
		{"end past next end", 1, nil, f(6)},
		{"start past own end", 2, f(6.5), nil},
		{"start before previous start", 2, f(1), nil},
		{"start equals end", 1, f(3), f(3)},
		{"first region emptied by clamp", 0, nil, f(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Adjust(regions, tt.index, tt.start, tt.end, 8.0)
			if !errors.Is(err, ErrInvalidRegionBounds) {
				t.Errorf("expected ErrInvalidRegionBounds, got %v", err)
			}
		})
	}
}

func TestAdjustIndexOutOfRange(t *testing.T) {
	regions, _ := EvenSplit(8.0, 4)
	if _, err := Adjust(regions, 4, f(1), nil, 8.0); err == nil {
		t.Error("expected error for index out of range")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate([]Region{{0, 1}, {1.5, 2}}, 2); err != nil {
		t.Errorf("gaps should be allowed, got %v", err)
	}
	bad := [][]Region{
		nil,
		{{1, 1}},
		{{-0.1, 1}},
		{{0, 3}},
		{{0, 1.5}, {1, 2}},
	}
	for _, regions := range bad {
		if err := Validate(regions, 2); !errors.Is(err, ErrInvalidRegionBounds) {
			t.Errorf("%v: expected ErrInvalidRegionBounds, got %v", regions, err)
		}
	}
}

func TestExtract(t *testing.T) {
	buf := audio.New(2, 100, 100)
	for i := range buf.Channels[0] {
		buf.Channels[0][i] = float64(i)
		buf.Channels[1][i] = -float64(i)
	}
	got := Extract(buf, Region{Start: 0.25, End: 0.5})
	if got.Frames() != 25 {
		t.Fatalf("expected 25 frames, got %d", got.Frames())
	}
	if got.Channels[0][0] != 25 || got.Channels[1][24] != -49 {
		t.Errorf("unexpected samples %v %v", got.Channels[0][0], got.Channels[1][24])
	}
}

func TestParse(t *testing.T) {
	regions, err := Parse("0:1.5, 1.5:3 ,")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 2 || regions[1] != (Region{1.5, 3}) {
		t.Errorf("unexpected regions %v", regions)
	}

	for _, in := range []string{"", "1.5", "a:2", "0:b"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q): expected error", in)
		}
	}
}
