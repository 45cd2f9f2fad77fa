// Package kit runs a full render request: voicings in, preset bundle out.
package kit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Danondso/padforge/internal/audio"
	"github.com/Danondso/padforge/internal/bundle"
	"github.com/Danondso/padforge/internal/chord"
	"github.com/Danondso/padforge/internal/preset"
	"github.com/Danondso/padforge/internal/region"
	"github.com/Danondso/padforge/internal/stretch"
	"github.com/Danondso/padforge/internal/wavfile"
)

// DefaultPads is the pad count of the device's drum rack.
const DefaultPads = 16

// SliceMode selects how the slice tool lays samples out.
type SliceMode string

const (
	// SliceFragments writes one sample file per region.
	SliceFragments SliceMode = "fragments"
	// SliceOffsets writes the source once and points each pad at a
	// playback window inside it.
	SliceOffsets SliceMode = "offsets"
)

// Render stages reported in RenderError.
const (
	StageValidate = "validate"
	StageRender   = "render"
	StageExtract  = "extract"
	StageEncode   = "encode"
	StagePreset   = "preset"
	StagePack     = "pack"
)

// ErrTooManyVoicings is returned when a request has more voicings than pads.
var ErrTooManyVoicings = errors.New("more voicings than pads")

// RenderRequest describes one kit to build.
type RenderRequest struct {
	BaseName        string // prefix of sample file names
	PresetName      string
	Pads            int // 0 means DefaultPads
	Format          wavfile.Format
	TargetPeak      float64 // chords only; 0 means audio.DefaultPeak
	Chords          []chord.Spec
	Regions         []region.Region
	SliceMode       SliceMode
	PresetExtension string
	BundleExtension string
}

func (r *RenderRequest) pads() int {
	if r.Pads <= 0 {
		return DefaultPads
	}
	return r.Pads
}

// Sample is a rendered voicing and its encoded bytes.
type Sample struct {
	Name   string
	Buffer *audio.Buffer
	Data   []byte
}

// Result is a finished kit.
type Result struct {
	Preset   *preset.Preset
	Samples  []Sample
	Archive  []byte
	FileName string
}

// RenderError reports which voicing and stage failed.
type RenderError struct {
	Pad     int // -1 when not tied to a pad
	Voicing string
	Stage   string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Pad < 0 {
		return fmt.Sprintf("%s: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("pad %d (%s) %s: %v", e.Pad+1, e.Voicing, e.Stage, e.Cause)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Pipeline renders requests. Stretcher is only needed for chords. Progress, when set, is called from worker
// goroutines and must be safe for concurrent use.
type Pipeline struct {
	Stretcher  stretch.Stretcher
	Workers    int // 0 means runtime.NumCPU()
	Logger     *log.Logger
	Progress   func(Event)
	NewArchive func() bundle.ArchiveWriter // nil means bundle.NewZipWriter
}

func (p *Pipeline) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.NumCPU()
}

func (p *Pipeline) emit(ev Event) {
	if p.Progress != nil {
		p.Progress(ev)
	}
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}

// Chords renders one chord sample per spec, in parallel across chords,
// and packs them onto consecutive pads. Pads past the last chord are
// silent.
func (p *Pipeline) Chords(ctx context.Context, src *audio.Buffer, req RenderRequest) (*Result, error) {
	if p.Stretcher == nil {
		return nil, &RenderError{Pad: -1, Stage: StageValidate, Cause: errors.New("pipeline has no stretcher")}
	}
	if err := p.checkRequest(src, len(req.Chords), req.pads()); err != nil {
		return nil, err
	}
	names := make(map[string]int, len(req.Chords))
	for i, c := range req.Chords {
		if strings.TrimSpace(c.Name) == "" {
			return nil, &RenderError{Pad: i, Stage: StageValidate, Cause: errors.New("chord has no name")}
		}
		if strings.Contains(c.Name, "/") {
			return nil, &RenderError{Pad: i, Voicing: c.Name, Stage: StageValidate, Cause: errors.New("chord name contains '/'")}
		}
		name := chord.FileName(req.BaseName, c.Name)
		if j, ok := names[name]; ok {
			return nil, &RenderError{Pad: i, Voicing: c.Name, Stage: StageValidate,
				Cause: fmt.Errorf("%s shared with pad %d: %w", name, j+1, bundle.ErrDuplicateSampleName)}
		}
		names[name] = i
	}
	start := time.Now()

	renderer := &chord.Renderer{
		Stretcher:  p.Stretcher,
		Format:     req.Format,
		TargetPeak: req.TargetPeak,
		Logger:     p.Logger,
	}

	samples := make([]Sample, len(req.Chords))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for i, spec := range req.Chords {
		g.Go(func() error {
			p.emit(Event{Kind: PadStarted, Pad: i, Voicing: spec.Name})
			r, err := renderer.Render(gctx, src, spec, req.BaseName)
			if err != nil {
				p.emit(Event{Kind: PadFailed, Pad: i, Voicing: spec.Name, Err: err})
				return &RenderError{Pad: i, Voicing: spec.Name, Stage: StageRender, Cause: err}
			}
			samples[i] = Sample{Name: r.Name, Buffer: r.Buffer, Data: r.Data}
			p.emit(Event{Kind: PadDone, Pad: i, Voicing: spec.Name, Sample: r.Name})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pr := preset.Base(req.PresetName)
	for i := 0; i < req.pads(); i++ {
		label, path := "", ""
		if i < len(samples) {
			label = req.Chords[i].Name
			path = preset.SamplePath(samples[i].Name)
		}
		if err := pr.AppendVoicingChain(i, label, nil, path); err != nil {
			return nil, &RenderError{Pad: i, Voicing: label, Stage: StagePreset, Cause: err}
		}
	}

	res, err := p.pack(pr, samples, req)
	if err != nil {
		return nil, err
	}
	p.logf("kit chords: preset=%q chords=%d bytes=%d latency=%s", req.PresetName, len(samples), len(res.Archive), time.Since(start).Round(time.Millisecond))
	return res, nil
}

// Slices carves src into req.Regions and packs them onto consecutive pads,
// either as separate fragments or as playback windows of one sample.
func (p *Pipeline) Slices(ctx context.Context, src *audio.Buffer, req RenderRequest) (*Result, error) {
	if err := p.checkRequest(src, len(req.Regions), req.pads()); err != nil {
		return nil, err
	}
	duration := src.Seconds()
	if err := region.Validate(req.Regions, duration); err != nil {
		return nil, &RenderError{Pad: -1, Stage: StageValidate, Cause: err}
	}
	start := time.Now()

	var (
		pr      *preset.Preset
		samples []Sample
		err     error
	)
	switch req.SliceMode {
	case SliceFragments, "":
		pr, samples, err = p.fragments(ctx, src, req)
	case SliceOffsets:
		pr, samples, err = p.offsets(ctx, src, req, duration)
	default:
		return nil, &RenderError{Pad: -1, Stage: StageValidate, Cause: fmt.Errorf("unknown slice mode %q", req.SliceMode)}
	}
	if err != nil {
		return nil, err
	}

	res, err := p.pack(pr, samples, req)
	if err != nil {
		return nil, err
	}
	p.logf("kit slices: preset=%q mode=%s regions=%d contiguous=%v bytes=%d latency=%s", req.PresetName, req.SliceMode, len(req.Regions), region.Contiguous(req.Regions), len(res.Archive), time.Since(start).Round(time.Millisecond))
	return res, nil
}

// FragmentName returns the file name of slice i (0-based).
func FragmentName(baseName string, i int) string {
	return fmt.Sprintf("%s_slice_%02d.wav", baseName, i+1)
}

// OffsetsName returns the file name of the single sample used in offsets mode.
func OffsetsName(baseName string) string {
	return baseName + "-sliced.wav"
}

func (p *Pipeline) fragments(ctx context.Context, src *audio.Buffer, req RenderRequest) (*preset.Preset, []Sample, error) {
	samples := make([]Sample, len(req.Regions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for i, r := range req.Regions {
		g.Go(func() error {
			label := r.String()
			p.emit(Event{Kind: PadStarted, Pad: i, Voicing: label})
			if err := gctx.Err(); err != nil {
				return err
			}
			buf := region.Extract(src, r)
			if buf.Frames() == 0 {
				err := errors.New("region covers no frames")
				p.emit(Event{Kind: PadFailed, Pad: i, Voicing: label, Err: err})
				return &RenderError{Pad: i, Voicing: label, Stage: StageExtract, Cause: err}
			}
			data, err := wavfile.Encode(buf, req.Format)
			if err != nil {
				p.emit(Event{Kind: PadFailed, Pad: i, Voicing: label, Err: err})
				return &RenderError{Pad: i, Voicing: label, Stage: StageEncode, Cause: err}
			}
			name := FragmentName(req.BaseName, i)
			samples[i] = Sample{Name: name, Buffer: buf, Data: data}
			p.emit(Event{Kind: PadDone, Pad: i, Voicing: label, Sample: name})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	pr := preset.Base(req.PresetName)
	for i := 0; i < req.pads(); i++ {
		params := preset.Parameters{
			preset.ParamPlaybackStart: 0.0,
			preset.ParamEnvelopeDecay: 0.0,
		}
		path := ""
		if i < len(samples) {
			path = preset.SamplePath(samples[i].Name)
		}
		if err := pr.AppendVoicingChain(i, "", params, path); err != nil {
			return nil, nil, &RenderError{Pad: i, Stage: StagePreset, Cause: err}
		}
	}
	return pr, samples, nil
}

func (p *Pipeline) offsets(ctx context.Context, src *audio.Buffer, req RenderRequest, duration float64) (*preset.Preset, []Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	name := OffsetsName(req.BaseName)
	data, err := wavfile.Encode(src, req.Format)
	if err != nil {
		return nil, nil, &RenderError{Pad: -1, Voicing: name, Stage: StageEncode, Cause: err}
	}

	pr := preset.Base(req.PresetName)
	for i := 0; i < req.pads(); i++ {
		params := preset.Parameters{
			preset.ParamPlaybackStart: 0.0,
			preset.ParamEnvelopeDecay: 0.0,
		}
		path := ""
		if i < len(req.Regions) {
			r := req.Regions[i]
			p.emit(Event{Kind: PadStarted, Pad: i, Voicing: r.String()})
			params[preset.ParamPlaybackStart] = r.Start / duration
			params[preset.ParamPlaybackLength] = r.Length() / duration
			path = preset.SamplePath(name)
		}
		if err := pr.AppendVoicingChain(i, "", params, path); err != nil {
			return nil, nil, &RenderError{Pad: i, Stage: StagePreset, Cause: err}
		}
		if i < len(req.Regions) {
			p.emit(Event{Kind: PadDone, Pad: i, Voicing: req.Regions[i].String(), Sample: name})
		}
	}
	return pr, []Sample{{Name: name, Buffer: src, Data: data}}, nil
}

func (p *Pipeline) checkRequest(src *audio.Buffer, voicings, pads int) error {
	if err := src.Validate(); err != nil {
		return &RenderError{Pad: -1, Stage: StageValidate, Cause: fmt.Errorf("source: %w", err)}
	}
	if voicings == 0 {
		return &RenderError{Pad: -1, Stage: StageValidate, Cause: errors.New("no voicings requested")}
	}
	if voicings > pads {
		return &RenderError{Pad: -1, Stage: StageValidate, Cause: fmt.Errorf("%d voicings for %d pads: %w", voicings, pads, ErrTooManyVoicings)}
	}
	return nil
}

func (p *Pipeline) pack(pr *preset.Preset, samples []Sample, req RenderRequest) (*Result, error) {
	newArchive := p.NewArchive
	if newArchive == nil {
		newArchive = func() bundle.ArchiveWriter { return bundle.NewZipWriter() }
	}
	files := make([]bundle.Sample, len(samples))
	for i, s := range samples {
		files[i] = bundle.Sample{Name: s.Name, Data: s.Data}
	}
	archive, err := bundle.Pack(newArchive(), pr, files, bundle.Options{PresetExtension: req.PresetExtension})
	if err != nil {
		return nil, &RenderError{Pad: -1, Stage: StagePack, Cause: err}
	}

	ext := req.BundleExtension
	if ext == "" {
		ext = bundle.DefaultBundleExtension
	}
	return &Result{
		Preset:   pr,
		Samples:  samples,
		Archive:  archive,
		FileName: req.PresetName + "." + ext,
	}, nil
}
