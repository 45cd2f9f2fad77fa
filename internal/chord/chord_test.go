package chord

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/Danondso/padforge/internal/audio"
	"github.com/Danondso/padforge/internal/config"
	"github.com/Danondso/padforge/internal/stretch"
	"github.com/Danondso/padforge/internal/wavfile"
)

func sineSource(seconds float64, rate int) *audio.Buffer {
	n := int(seconds * float64(rate))
	b := audio.New(1, n, rate)
	for i := range b.Channels[0] {
		b.Channels[0][i] = 0.4 * math.Sin(2*math.Pi*261.63*float64(i)/float64(rate))
	}
	return b
}

// recordingStretcher records the ratios it was asked for.
type recordingStretcher struct {
	ratios []float64
	err    error
}

func (s *recordingStretcher) Stretch(ctx context.Context, buf *audio.Buffer, ratio float64) (*audio.Buffer, error) {
	s.ratios = append(s.ratios, ratio)
	if s.err != nil {
		return nil, s.err
	}
	return stretch.NewLinear().Stretch(ctx, buf, ratio)
}

func TestFileNameStripsWhitespace(t *testing.T) {
	tests := []struct {
		chord string
		want  string
	}{
		{"Cm9", "pad_chord_Cm9.wav"},
		{"Bb11 sus", "pad_chord_Bb11sus.wav"},
		{"Fm add9", "pad_chord_Fmadd9.wav"},
		{" A\tb ", "pad_chord_Ab.wav"},
	}
	for _, tt := range tests {
		if got := FileName("pad", tt.chord); got != tt.want {
			t.Errorf("FileName(%q): expected %q, got %q", tt.chord, tt.want, got)
		}
	}
}

func TestRenderStackedChord(t *testing.T) {
	src := sineSource(1, 44100)
	r := &Renderer{Stretcher: stretch.NewLinear(), Format: wavfile.PCM16}

	got, err := r.Render(context.Background(), src, Spec{Name: "C", Offsets: []int{-12, 0, 4, 7, 12}}, "keys")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "keys_chord_C.wav" {
		t.Errorf("expected keys_chord_C.wav, got %s", got.Name)
	}

	// the octave-down layer is the longest, so it sets the mix length
	wantFrames := 88200
	if got.Buffer.Frames() != wantFrames {
		t.Errorf("expected %d frames, got %d", wantFrames, got.Buffer.Frames())
	}

	h, err := wavfile.ReadHeader(got.Data)
	if err != nil {
		t.Fatalf("unexpected header error: %v", err)
	}
	if h.DataSize != uint32(wantFrames*2*1) {
		t.Errorf("expected data size %d, got %d", wantFrames*2, h.DataSize)
	}

	decoded, err := wavfile.Decode(got.Data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if peak := audio.Peak(decoded); math.Abs(peak-0.9) > 2.0/32768 {
		t.Errorf("expected decoded peak near 0.9, got %v", peak)
	}
}

func TestRenderUsesOffsetsInOrder(t *testing.T) {
	s := &recordingStretcher{}
	r := &Renderer{Stretcher: s}
	if _, err := r.Render(context.Background(), sineSource(0.1, 8000), Spec{Name: "x", Offsets: []int{-12, 0, 12}}, "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{0.5, 1, 2}
	if len(s.ratios) != len(want) {
		t.Fatalf("expected %d stretches, got %d", len(want), len(s.ratios))
	}
	for i, w := range want {
		if math.Abs(s.ratios[i]-w) > 1e-12 {
			t.Errorf("stretch %d: expected ratio %v, got %v", i, w, s.ratios[i])
		}
	}
}

func TestRenderFloat32(t *testing.T) {
	r := &Renderer{Stretcher: stretch.NewLinear(), Format: wavfile.Float32, TargetPeak: 0.5}
	got, err := r.Render(context.Background(), sineSource(0.05, 8000), Spec{Name: "x", Offsets: []int{0, 7}}, "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h, err := wavfile.ReadHeader(got.Data)
	if err != nil {
		t.Fatalf("unexpected header error: %v", err)
	}
	if h.AudioFormat != 3 || h.BitsPerSample != 32 {
		t.Errorf("expected float32 wav, got format %d bits %d", h.AudioFormat, h.BitsPerSample)
	}
	if peak := audio.Peak(got.Buffer); math.Abs(peak-0.5) > 1e-12 {
		t.Errorf("expected peak 0.5, got %v", peak)
	}
}

func TestRenderDoesNotModifySource(t *testing.T) {
	src := sineSource(0.05, 8000)
	before := src.Clone()
	r := &Renderer{Stretcher: stretch.NewLinear()}
	if _, err := r.Render(context.Background(), src, Spec{Name: "x", Offsets: []int{0}}, "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range src.Channels[0] {
		if src.Channels[0][i] != before.Channels[0][i] {
			t.Fatal("source was modified")
		}
	}
}

func TestRenderEmptyOffsets(t *testing.T) {
	r := &Renderer{Stretcher: stretch.NewLinear()}
	_, err := r.Render(context.Background(), sineSource(0.01, 8000), Spec{Name: "none"}, "b")
	if !errors.Is(err, audio.ErrEmptyMixInput) {
		t.Errorf("expected ErrEmptyMixInput, got %v", err)
	}
}

func TestRenderShortSourceHighShift(t *testing.T) {
	src := audio.New(1, 3, 44100)
	src.Channels[0] = []float64{0.1, 0.2, 0.3}
	r := &Renderer{Stretcher: stretch.NewLinear()}
	got, err := r.Render(context.Background(), src, Spec{Name: "up", Offsets: []int{24, 36}}, "b")
	if err != nil {
		t.Fatalf("expected no error for zero-length chord, got %v", err)
	}
	if got.Buffer.Frames() != 0 {
		t.Errorf("expected 0 frames, got %d", got.Buffer.Frames())
	}
	if len(got.Data) != wavfile.HeaderSize {
		t.Errorf("expected header-only wav, got %d bytes", len(got.Data))
	}
}

func TestRenderStretchFailure(t *testing.T) {
	boom := errors.New("backend down")
	r := &Renderer{Stretcher: &recordingStretcher{err: boom}}
	_, err := r.Render(context.Background(), sineSource(0.01, 8000), Spec{Name: "x", Offsets: []int{0, 4}}, "b")
	if !errors.Is(err, boom) {
		t.Errorf("expected backend error, got %v", err)
	}
}

func TestBuiltinBanks(t *testing.T) {
	ResetBanks()
	ext, err := Bank("extended")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ext) != 14 {
		t.Errorf("expected 14 extended voicings, got %d", len(ext))
	}
	if ext[0].Name != "Cm9" || ext[3].Name != "Bb11 sus" {
		t.Errorf("unexpected extended order: %s, %s", ext[0].Name, ext[3].Name)
	}

	tri, err := Bank("triads")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tri) != 16 {
		t.Errorf("expected 16 triads, got %d", len(tri))
	}

	def, err := Bank("")
	if err != nil || def[0].Name != "Cm9" {
		t.Errorf("expected default bank extended, got %v %v", def, err)
	}

	if _, err := Bank("jazz"); err == nil {
		t.Error("expected error for unknown bank")
	}
}

func TestBankReturnsCopy(t *testing.T) {
	ResetBanks()
	a, _ := Bank("triads")
	a[0].Offsets[0] = 99
	b, _ := Bank("triads")
	if b[0].Offsets[0] != 0 {
		t.Error("bank contents leaked through returned slice")
	}
}

func TestRegisterCustomChords(t *testing.T) {
	ResetBanks()
	defer ResetBanks()

	RegisterCustomChords([]config.CustomChord{
		{Name: "Power", Offsets: []int{0, 7, 12}},
		{Name: "", Offsets: []int{1}},
		{Name: "Empty"},
		{Name: "Power", Offsets: []int{0, 7}},
		{Name: "Fifth", Offsets: []int{7}},
	}, nil)

	custom, err := Bank(CustomBank)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(custom) != 2 {
		t.Fatalf("expected 2 custom chords, got %d", len(custom))
	}
	if custom[0].Name != "Power" || len(custom[0].Offsets) != 2 {
		t.Errorf("expected Power replaced by later entry, got %v", custom[0])
	}

	names := BankNames()
	want := []string{"custom", "extended", "triads"}
	for i, w := range want {
		if names[i] != w {
			t.Errorf("bank %d: expected %s, got %s", i, w, names[i])
		}
	}
}

func TestRegisterNoCustomChords(t *testing.T) {
	ResetBanks()
	RegisterCustomChords(nil, nil)
	if _, err := Bank(CustomBank); err == nil {
		t.Error("expected custom bank absent when nothing registered")
	}
}
