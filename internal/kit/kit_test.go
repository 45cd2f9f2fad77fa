package kit

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/Danondso/padforge/internal/audio"
	"github.com/Danondso/padforge/internal/bundle"
	"github.com/Danondso/padforge/internal/chord"
	"github.com/Danondso/padforge/internal/preset"
	"github.com/Danondso/padforge/internal/region"
	"github.com/Danondso/padforge/internal/stretch"
	"github.com/Danondso/padforge/internal/wavfile"
)

func sine(seconds float64, rate int) *audio.Buffer {
	n := int(seconds * float64(rate))
	b := audio.New(1, n, rate)
	for i := range b.Channels[0] {
		b.Channels[0][i] = 0.4 * math.Sin(2*math.Pi*220*float64(i)/float64(rate))
	}
	return b
}

type failingStretcher struct{}

func (failingStretcher) Stretch(ctx context.Context, buf *audio.Buffer, ratio float64) (*audio.Buffer, error) {
	return nil, errors.New("backend down")
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func chords() []chord.Spec {
	return []chord.Spec{
		{Name: "C", Offsets: []int{0, 4, 7}},
		{Name: "Fm add9", Offsets: []int{-7, 5, 8}},
	}
}

func TestChordsBuildsBundle(t *testing.T) {
	rec := &recorder{}
	p := &Pipeline{Stretcher: stretch.NewLinear(), Workers: 2, Progress: rec.record}
	res, err := p.Chords(context.Background(), sine(0.5, 44100), RenderRequest{
		BaseName:   "keys",
		PresetName: "Keys Kit",
		Chords:     chords(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.FileName != "Keys Kit.ablpresetbundle" {
		t.Errorf("unexpected file name %s", res.FileName)
	}
	if len(res.Samples) != 2 || res.Samples[0].Name != "keys_chord_C.wav" || res.Samples[1].Name != "keys_chord_Fmadd9.wav" {
		t.Fatalf("unexpected samples %+v", res.Samples)
	}

	b, err := bundle.Open(res.Archive)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	want := []string{"Preset.ablpreset", "Samples/keys_chord_C.wav", "Samples/keys_chord_Fmadd9.wav"}
	if len(b.Entries) != len(want) {
		t.Fatalf("expected entries %v, got %v", want, b.Entries)
	}
	for i, w := range want {
		if b.Entries[i] != w {
			t.Errorf("entry %d: expected %s, got %s", i, w, b.Entries[i])
		}
	}

	rack, err := b.Preset.DrumRack()
	if err != nil {
		t.Fatalf("drum rack: %v", err)
	}
	if len(rack.Chains) != DefaultPads {
		t.Fatalf("expected %d pads, got %d", DefaultPads, len(rack.Chains))
	}
	if rack.Chains[1].Name != "Fm add9" {
		t.Errorf("expected pad 2 labelled Fm add9, got %q", rack.Chains[1].Name)
	}
	for i := 2; i < DefaultPads; i++ {
		ref, err := b.Preset.PadSampleRef(i)
		if err != nil || ref != "" {
			t.Errorf("pad %d: expected silent, got %q %v", i, ref, err)
		}
	}

	if n := rec.count(PadStarted); n != 2 {
		t.Errorf("expected 2 started events, got %d", n)
	}
	if n := rec.count(PadDone); n != 2 {
		t.Errorf("expected 2 done events, got %d", n)
	}
}

func TestChordsDeterministicAcrossWorkers(t *testing.T) {
	req := RenderRequest{BaseName: "keys", PresetName: "Keys", Chords: chords()}
	one, err := (&Pipeline{Stretcher: stretch.NewLinear(), Workers: 1}).Chords(context.Background(), sine(0.25, 22050), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	many, err := (&Pipeline{Stretcher: stretch.NewLinear(), Workers: 8}).Chords(context.Background(), sine(0.25, 22050), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(one.Archive) != string(many.Archive) {
		t.Error("expected identical archives regardless of worker count")
	}
}

func TestChordsTooManyVoicings(t *testing.T) {
	p := &Pipeline{Stretcher: stretch.NewLinear()}
	_, err := p.Chords(context.Background(), sine(0.1, 8000), RenderRequest{
		PresetName: "x",
		Pads:       1,
		Chords:     chords(),
	})
	if !errors.Is(err, ErrTooManyVoicings) {
		t.Errorf("expected ErrTooManyVoicings, got %v", err)
	}
}

func TestChordsRequiresStretcher(t *testing.T) {
	_, err := (&Pipeline{}).Chords(context.Background(), sine(0.1, 8000), RenderRequest{Chords: chords()})
	if err == nil {
		t.Error("expected error without stretcher")
	}
}

func TestChordsRejectsEmptyRequest(t *testing.T) {
	p := &Pipeline{Stretcher: stretch.NewLinear()}
	if _, err := p.Chords(context.Background(), sine(0.1, 8000), RenderRequest{}); err == nil {
		t.Error("expected error for no chords")
	}
	if _, err := p.Chords(context.Background(), sine(0.1, 8000), RenderRequest{Chords: []chord.Spec{{Name: " ", Offsets: []int{0}}}}); err == nil {
		t.Error("expected error for unnamed chord")
	}
}

func TestChordsRejectsCollidingNamesBeforeRendering(t *testing.T) {
	rec := &recorder{}
	p := &Pipeline{Stretcher: stretch.NewLinear(), Progress: rec.record}
	_, err := p.Chords(context.Background(), sine(0.1, 8000), RenderRequest{
		BaseName: "keys",
		Chords: []chord.Spec{
			{Name: "Ab", Offsets: []int{0, 4, 7}},
			{Name: "A b", Offsets: []int{0, 3, 7}},
		},
	})
	if !errors.Is(err, bundle.ErrDuplicateSampleName) {
		t.Fatalf("expected ErrDuplicateSampleName, got %v", err)
	}
	var rerr *RenderError
	if !errors.As(err, &rerr) || rerr.Pad != 1 || rerr.Stage != StageValidate {
		t.Errorf("expected validate error on pad 1, got %v", err)
	}
	if n := rec.count(PadStarted); n != 0 {
		t.Errorf("expected no pads started, got %d", n)
	}

	_, err = p.Chords(context.Background(), sine(0.1, 8000), RenderRequest{
		BaseName: "keys",
		Chords:   []chord.Spec{{Name: "C/G", Offsets: []int{-5, 0, 4}}},
	})
	if !errors.As(err, &rerr) || rerr.Stage != StageValidate {
		t.Errorf("expected validate error for slash in name, got %v", err)
	}
	if n := rec.count(PadStarted); n != 0 {
		t.Errorf("expected no pads started, got %d", n)
	}
}

func TestChordsReportsFailingPad(t *testing.T) {
	rec := &recorder{}
	p := &Pipeline{Stretcher: failingStretcher{}, Workers: 1, Progress: rec.record}
	_, err := p.Chords(context.Background(), sine(0.1, 8000), RenderRequest{PresetName: "x", Chords: chords()[:1]})

	var rerr *RenderError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RenderError, got %v", err)
	}
	if rerr.Pad != 0 || rerr.Voicing != "C" || rerr.Stage != StageRender {
		t.Errorf("unexpected render error %+v", rerr)
	}
	if n := rec.count(PadFailed); n != 1 {
		t.Errorf("expected 1 failed event, got %d", n)
	}
}

func TestSlicesFragments(t *testing.T) {
	src := sine(2, 8000)
	regions, err := region.EvenSplit(src.Seconds(), 4)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	var logs bytes.Buffer
	p := &Pipeline{Logger: log.New(&logs, "", 0)}
	res, err := p.Slices(context.Background(), src, RenderRequest{
		BaseName:   "loop",
		PresetName: "Loop",
		Regions:    regions,
		Format:     wavfile.Float32,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(logs.String(), "regions=4 contiguous=true") {
		t.Errorf("expected slice summary in log, got %q", logs.String())
	}
	if len(res.Samples) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(res.Samples))
	}
	for i, s := range res.Samples {
		if want := FragmentName("loop", i); s.Name != want {
			t.Errorf("sample %d: expected %s, got %s", i, want, s.Name)
		}
		if s.Buffer.Frames() != 4000 {
			t.Errorf("sample %d: expected 4000 frames, got %d", i, s.Buffer.Frames())
		}
	}
	ref, err := res.Preset.PadSampleRef(3)
	if err != nil || ref != "Samples/loop_slice_04.wav" {
		t.Errorf("unexpected pad 4 ref %q %v", ref, err)
	}

	rack, _ := res.Preset.DrumRack()
	params := rack.Chains[0].Devices[0].Parameters
	if params[preset.ParamPlaybackStart] != 0.0 || params[preset.ParamEnvelopeDecay] != 0.0 {
		t.Errorf("unexpected fragment params %v", params)
	}
}

func TestSlicesOffsets(t *testing.T) {
	src := sine(2, 8000)
	regions := []region.Region{{Start: 0, End: 0.5}, {Start: 0.5, End: 2}}
	res, err := (&Pipeline{}).Slices(context.Background(), src, RenderRequest{
		BaseName:        "loop",
		PresetName:      "Loop",
		Regions:         regions,
		SliceMode:       SliceOffsets,
		BundleExtension: "zip",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FileName != "Loop.zip" {
		t.Errorf("expected Loop.zip, got %s", res.FileName)
	}
	if len(res.Samples) != 1 || res.Samples[0].Name != "loop-sliced.wav" {
		t.Fatalf("unexpected samples %+v", res.Samples)
	}

	rack, _ := res.Preset.DrumRack()
	params := rack.Chains[1].Devices[0].Parameters
	if params[preset.ParamPlaybackStart] != 0.25 {
		t.Errorf("expected playback start 0.25, got %v", params[preset.ParamPlaybackStart])
	}
	if params[preset.ParamPlaybackLength] != 0.75 {
		t.Errorf("expected playback length 0.75, got %v", params[preset.ParamPlaybackLength])
	}
	if ref, _ := res.Preset.PadSampleRef(2); ref != "" {
		t.Errorf("expected pad 3 silent, got %q", ref)
	}
}

func TestSlicesRejectsBadRegions(t *testing.T) {
	src := sine(1, 8000)
	p := &Pipeline{}
	bad := [][]region.Region{
		{{Start: 0, End: 2}},
		{{Start: 0, End: 0.6}, {Start: 0.5, End: 1}},
		nil,
	}
	for i, regions := range bad {
		if _, err := p.Slices(context.Background(), src, RenderRequest{Regions: regions}); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestSlicesUnknownMode(t *testing.T) {
	_, err := (&Pipeline{}).Slices(context.Background(), sine(1, 8000), RenderRequest{
		Regions:   []region.Region{{Start: 0, End: 1}},
		SliceMode: "grains",
	})
	if err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestSlicesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Pipeline{}).Slices(ctx, sine(1, 8000), RenderRequest{
		Regions: []region.Region{{Start: 0, End: 0.5}, {Start: 0.5, End: 1}},
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRenderErrorMessage(t *testing.T) {
	err := &RenderError{Pad: 2, Voicing: "Cm9", Stage: StageRender, Cause: errors.New("boom")}
	if got := err.Error(); got != "pad 3 (Cm9) render: boom" {
		t.Errorf("unexpected message %q", got)
	}
	err = &RenderError{Pad: -1, Stage: StagePack, Cause: errors.New("boom")}
	if got := err.Error(); got != "pack: boom" {
		t.Errorf("unexpected message %q", got)
	}
}
