package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Danondso/padforge/internal/audio"
	"github.com/Danondso/padforge/internal/audition"
	"github.com/Danondso/padforge/internal/chord"
	"github.com/Danondso/padforge/internal/clipboard"
	"github.com/Danondso/padforge/internal/config"
	"github.com/Danondso/padforge/internal/kit"
	"github.com/Danondso/padforge/internal/preset"
	"github.com/Danondso/padforge/internal/region"
	"github.com/Danondso/padforge/internal/source"
	"github.com/Danondso/padforge/internal/stretch"
	"github.com/Danondso/padforge/internal/tui"
	"github.com/Danondso/padforge/internal/wavfile"
)

var chordCmd = &cobra.Command{
	Use:   "chord <source>",
	Short: "Render a bank of chord stacks onto pads",
	Long: `Pitch-shift the source once per chord tone, mix and normalize each chord,
and pack one chord per pad.

Examples:
  padforge chord keys.wav
  padforge chord keys.wav --bank triads --format float32 --out ~/Presets
  padforge chord keys.wav --name "Dusty Keys" --tui`,
	Args: cobra.ExactArgs(1),
	RunE: runChord,
}

var sliceCmd = &cobra.Command{
	Use:   "slice <source>",
	Short: "Cut the source into regions, one per pad",
	Long: `Split the source into equal regions, or the regions given with --regions,
and pack one region per pad.

Modes:
  fragments - one sample file per region
  offsets   - the whole source once, each pad playing its own window

Examples:
  padforge slice loop.wav --count 8
  padforge slice break.mp3 --regions 0:0.5,0.5:1.25,1.25:2 --mode offsets`,
	Args: cobra.ExactArgs(1),
	RunE: runSlice,
}

var chordsCmd = &cobra.Command{
	Use:   "chords",
	Short: "List the voicings of a chord bank",
	Args:  cobra.NoArgs,
	RunE:  runChords,
}

// Flags shared by chord and slice.
var (
	renderName    string
	renderFormat  string
	renderOut     string
	renderTUI     bool
	renderWorkers int
)

var (
	chordBankName string
	chordPeak     float64
	sliceCount    int
	sliceRegions  string
	sliceMode     string
)

func init() {
	for _, c := range []*cobra.Command{chordCmd, sliceCmd} {
		c.Flags().StringVarP(&renderName, "name", "n", "", "preset name (default: source file name)")
		c.Flags().StringVarP(&renderFormat, "format", "f", "", "sample format: pcm16 or float32")
		c.Flags().StringVarP(&renderOut, "out", "o", "", "output directory")
		c.Flags().BoolVar(&renderTUI, "tui", false, "show render progress on a pad grid")
		c.Flags().IntVarP(&renderWorkers, "workers", "w", 0, "parallel renders (0 = one per CPU)")
	}
	chordCmd.Flags().StringVarP(&chordBankName, "bank", "b", "", "chord bank (extended, triads, custom)")
	chordCmd.Flags().Float64Var(&chordPeak, "peak", 0, "normalization target peak")
	chordsCmd.Flags().StringVarP(&chordBankName, "bank", "b", "", "chord bank (extended, triads, custom)")

	sliceCmd.Flags().IntVarP(&sliceCount, "count", "c", 0, "number of equal regions")
	sliceCmd.Flags().StringVarP(&sliceRegions, "regions", "r", "", "explicit regions as start:end seconds, comma separated")
	sliceCmd.Flags().StringVarP(&sliceMode, "mode", "m", "", "fragments or offsets")
}

// applyRenderFlags copies explicitly set flags over the config and
// validates the result.
func applyRenderFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Render.Format = strings.ToLower(renderFormat)
	}
	if flags.Changed("out") {
		cfg.Output.Dir = renderOut
	}
	if flags.Changed("workers") {
		cfg.Render.Workers = renderWorkers
	}
	if flags.Changed("bank") {
		cfg.Render.ChordBank = chordBankName
	}
	if flags.Changed("peak") {
		cfg.Render.TargetPeak = chordPeak
	}
	if flags.Changed("count") {
		cfg.Slice.Count = sliceCount
	}
	if flags.Changed("mode") {
		cfg.Slice.Mode = sliceMode
	}
	return cfg.Validate()
}

func baseRequest(cfg *config.Config, srcPath string) (kit.RenderRequest, error) {
	format, err := wavfile.ParseFormat(cfg.Render.Format)
	if err != nil {
		return kit.RenderRequest{}, err
	}
	base := source.BaseName(srcPath)
	name := renderName
	if name == "" {
		name = base
	}
	return kit.RenderRequest{
		BaseName:        base,
		PresetName:      name,
		Pads:            cfg.Render.Pads,
		Format:          format,
		PresetExtension: cfg.Render.PresetExtension,
		BundleExtension: cfg.Render.BundleExtension,
	}, nil
}

func runChord(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}
	if err := applyRenderFlags(cmd, cfg); err != nil {
		return err
	}

	src, err := source.Load(args[0], source.Options{})
	if err != nil {
		return err
	}
	logger.Printf("source: %s rate=%d channels=%d seconds=%.3f", args[0], src.SampleRate, src.NumChannels(), src.Seconds())

	specs, err := chord.Bank(cfg.Render.ChordBank)
	if err != nil {
		return err
	}
	req, err := baseRequest(cfg, args[0])
	if err != nil {
		return err
	}
	req.TargetPeak = cfg.Render.TargetPeak
	req.Chords = specs

	stretcher, err := stretch.New(&cfg.Resampler, logger)
	if err != nil {
		return err
	}
	labels := make([]string, len(specs))
	for i, s := range specs {
		labels[i] = s.Name
	}

	pipeline := &kit.Pipeline{Stretcher: stretcher, Workers: cfg.Render.Workers, Logger: logger}
	return execute(cmd, cfg, logger, req.PresetName, labels, pipeline, func(ctx context.Context) (*kit.Result, error) {
		return pipeline.Chords(ctx, src, req)
	})
}

func runSlice(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}
	if err := applyRenderFlags(cmd, cfg); err != nil {
		return err
	}

	src, err := source.Load(args[0], source.Options{})
	if err != nil {
		return err
	}
	logger.Printf("source: %s rate=%d channels=%d seconds=%.3f", args[0], src.SampleRate, src.NumChannels(), src.Seconds())

	regions, err := sliceRegionsFor(src, cfg.Slice.Count)
	if err != nil {
		return err
	}
	req, err := baseRequest(cfg, args[0])
	if err != nil {
		return err
	}
	req.Regions = regions
	req.SliceMode = kit.SliceMode(cfg.Slice.Mode)

	labels := make([]string, len(regions))
	for i, r := range regions {
		labels[i] = r.String()
	}

	pipeline := &kit.Pipeline{Workers: cfg.Render.Workers, Logger: logger}
	return execute(cmd, cfg, logger, req.PresetName, labels, pipeline, func(ctx context.Context) (*kit.Result, error) {
		return pipeline.Slices(ctx, src, req)
	})
}

func sliceRegionsFor(src *audio.Buffer, count int) ([]region.Region, error) {
	if sliceRegions != "" {
		return region.Parse(sliceRegions)
	}
	return region.EvenSplit(src.Seconds(), count)
}

func runChords(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}
	bank := cfg.Render.ChordBank
	if cmd.Flags().Changed("bank") {
		bank = chordBankName
	}
	specs, err := chord.Bank(bank)
	if err != nil {
		return fmt.Errorf("%w (banks: %s)", err, strings.Join(chord.BankNames(), ", "))
	}
	out := cmd.OutOrStdout()
	for i, s := range specs {
		fmt.Fprintf(out, "pad %2d  note %d  %-10s %v\n", i+1, preset.BaseNote+i, s.Name, s.Offsets)
	}
	return nil
}

// execute runs render, writes the bundle and reports progress either as
// plain lines on stderr or on the TUI pad grid.
func execute(cmd *cobra.Command, cfg *config.Config, logger *log.Logger, presetName string, labels []string, pipeline *kit.Pipeline, render func(context.Context) (*kit.Result, error)) error {
	ctx, cancel := signalContext()
	defer cancel()

	if !renderTUI {
		pipeline.Progress = lineProgress(cmd.ErrOrStderr())
		res, err := render(ctx)
		if err != nil {
			return err
		}
		path, err := writeResult(cfg, res, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d samples)\n", path, len(res.Samples))
		return nil
	}

	player := audition.New(cfg.Audio.AuditionEnabled, logger)
	model := tui.NewModel(cfg, player, nil, nil, logger, debug)
	p := tea.NewProgram(model, tea.WithAltScreen())

	// When debug is enabled, redirect logger output into the TUI debug panel
	if debug {
		logger.SetOutput(tui.NewLogWriter(p))
	}
	pipeline.Progress = tui.ProgressSender(p)

	done := make(chan error, 1)
	go func() {
		p.Send(tui.RenderStartedMsg{Preset: presetName, Labels: labels})
		res, err := render(ctx)
		if err == nil {
			var path string
			if path, err = writeResult(cfg, res, logger); err == nil {
				p.Send(tui.RenderDoneMsg{Result: res, Path: path})
			}
		}
		if err != nil {
			p.Send(tui.RenderErrorMsg{Err: err})
		}
		done <- err
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	// quitting mid-render cancels it
	cancel()
	return <-done
}

func lineProgress(w io.Writer) func(kit.Event) {
	return func(ev kit.Event) {
		switch ev.Kind {
		case kit.PadDone:
			fmt.Fprintf(w, "pad %2d  %-14s %s\n", ev.Pad+1, ev.Voicing, ev.Sample)
		case kit.PadFailed:
			fmt.Fprintf(w, "pad %2d  %-14s failed: %v\n", ev.Pad+1, ev.Voicing, ev.Err)
		}
	}
}

// writeResult writes the bundle into the output directory and, when
// configured, copies its path to the clipboard.
func writeResult(cfg *config.Config, res *kit.Result, logger *log.Logger) (string, error) {
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(cfg.Output.Dir, res.FileName)
	if err := os.WriteFile(path, res.Archive, 0o644); err != nil {
		return "", fmt.Errorf("write bundle: %w", err)
	}
	logger.Printf("wrote %s bytes=%d", path, len(res.Archive))

	if cfg.Output.CopyPath {
		if abs, err := clipboard.CopyPath(path); err != nil {
			logger.Printf("clipboard: %v", err)
		} else {
			logger.Printf("clipboard: copied %s", abs)
		}
	}
	return path, nil
}
