package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gordonklaus/portaudio"
	"github.com/spf13/cobra"

	"github.com/Danondso/padforge/internal/audio"
	"github.com/Danondso/padforge/internal/audition"
	"github.com/Danondso/padforge/internal/bundle"
	"github.com/Danondso/padforge/internal/config"
	"github.com/Danondso/padforge/internal/recorder"
	"github.com/Danondso/padforge/internal/tui"
	"github.com/Danondso/padforge/internal/wavfile"
)

var recordCmd = &cobra.Command{
	Use:   "record <out.wav>",
	Short: "Capture a source sample from the default input device",
	Long: `Record from the default microphone until Enter is pressed, the time
limit is reached or the command is interrupted.

With --tui the input level is drawn live; q stops early.

Example:
  padforge record keys.wav --seconds 4
  padforge record keys.wav --tui`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

var auditionCmd = &cobra.Command{
	Use:   "audition <bundle>",
	Short: "Play one pad of a preset bundle",
	Long: `Play the sample behind a pad of a packed bundle. Pads count from 1,
bottom left.

Example:
  padforge audition "Dusty Keys.ablpresetbundle" --pad 5`,
	Args: cobra.ExactArgs(1),
	RunE: runAudition,
}

var (
	recordSeconds int
	recordFormat  string
	recordTUI     bool
	auditionPad   int
)

func init() {
	recordCmd.Flags().IntVarP(&recordSeconds, "seconds", "s", 0, "stop after this many seconds (default: audio.max_duration_sec)")
	recordCmd.Flags().StringVarP(&recordFormat, "format", "f", "", "sample format: pcm16 or float32")
	recordCmd.Flags().BoolVar(&recordTUI, "tui", false, "show the input level while recording")
	auditionCmd.Flags().IntVarP(&auditionPad, "pad", "p", 1, "pad number, 1-based")
}

func runRecord(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}
	if recordFormat != "" {
		cfg.Render.Format = strings.ToLower(recordFormat)
	}
	format, err := wavfile.ParseFormat(cfg.Render.Format)
	if err != nil {
		return err
	}
	seconds := cfg.Audio.MaxDurationSec
	if recordSeconds > 0 {
		seconds = recordSeconds
	}

	// Initialize PortAudio (Linux suppresses ALSA/JACK stderr noise)
	if err := initPortAudio(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()
	logger.Printf("portaudio initialized")

	if !recorder.MicAvailable() {
		return fmt.Errorf("no input device found")
	}
	logger.Printf("recorder: device=%q seconds=%d rate=%d", recorder.MicName(), seconds, cfg.Audio.SampleRate)

	rec, err := recorder.New(cfg.Audio.SampleRate, seconds)
	if err != nil {
		return fmt.Errorf("create recorder: %w", err)
	}
	player := audition.New(cfg.Audio.AuditionEnabled, logger)

	ctx, cancel := signalContext()
	defer cancel()

	var buf *audio.Buffer
	if recordTUI {
		buf, err = recordWithTUI(ctx, cancel, rec, player, cfg, logger, seconds)
	} else {
		buf, err = recordPlain(ctx, cmd, rec, player, logger, seconds)
	}
	if err != nil {
		return err
	}

	data, err := wavfile.Encode(buf, format)
	if err != nil {
		return fmt.Errorf("encode recording: %w", err)
	}
	out := args[0]
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", out, buf.Duration().Round(time.Millisecond))
	return nil
}

func recordPlain(ctx context.Context, cmd *cobra.Command, rec *recorder.Recorder, player *audition.Player, logger *log.Logger, seconds int) (*audio.Buffer, error) {
	playCue(ctx, player, audition.StartCue, logger)
	if err := rec.Start(); err != nil {
		return nil, fmt.Errorf("start recording: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Recording from %s (Enter to stop, limit %ds)...\n", recorder.MicName(), seconds)

	waitForStop(ctx, cmd, seconds)

	buf, truncated, err := rec.Stop()
	if err != nil {
		return nil, fmt.Errorf("stop recording: %w", err)
	}
	playCue(context.Background(), player, audition.StopCue, logger)
	logger.Printf("recording stopped: frames=%d channels=%d truncated=%v", buf.Frames(), buf.NumChannels(), truncated)
	return buf, nil
}

type capture struct {
	buf *audio.Buffer
	err error
}

// capturer is the part of the recorder the TUI capture drives.
type capturer interface {
	Start() error
	Stop() (*audio.Buffer, bool, error)
}

// program is the part of a running tea.Program the capture reports to.
type program interface {
	Send(msg tea.Msg)
	Quit()
}

// recordWithTUI records behind the level visualizer. Recording ends at the
// time limit or when the program exits, and the capture is kept either way.
func recordWithTUI(ctx context.Context, cancel context.CancelFunc, rec *recorder.Recorder, player *audition.Player, cfg *config.Config, logger *log.Logger, seconds int) (*audio.Buffer, error) {
	model := tui.NewModel(cfg, player, rec, micCheckerAdapter{}, logger, debug)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if debug {
		logger.SetOutput(tui.NewLogWriter(p))
	}

	done := make(chan capture, 1)
	go func() {
		done <- captureTo(ctx, rec, p, logger, time.Duration(seconds)*time.Second)
	}()

	_, runErr := p.Run()
	cancel()
	c := <-done
	if runErr != nil {
		return nil, fmt.Errorf("TUI error: %w", runErr)
	}
	return c.buf, c.err
}

// captureTo records until limit or ctx is done, reporting to p. The program
// is told to quit whichever way the capture ends.
func captureTo(ctx context.Context, rec capturer, p program, logger *log.Logger, limit time.Duration) capture {
	defer p.Quit()
	if err := rec.Start(); err != nil {
		return capture{err: fmt.Errorf("start recording: %w", err)}
	}
	p.Send(tui.RecordingStartedMsg{})

	timer := time.NewTimer(limit)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	buf, truncated, err := rec.Stop()
	if err != nil {
		return capture{err: fmt.Errorf("stop recording: %w", err)}
	}
	logger.Printf("recording stopped: frames=%d channels=%d truncated=%v", buf.Frames(), buf.NumChannels(), truncated)
	p.Send(tui.RecordingStoppedMsg{Seconds: buf.Seconds()})
	return capture{buf: buf}
}

// waitForStop returns on Enter, after the time limit or when ctx is done.
// The recorder stops itself at the limit; the timer only ends the wait.
func waitForStop(ctx context.Context, cmd *cobra.Command, seconds int) {
	enter := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		close(enter)
	}()

	timer := time.NewTimer(time.Duration(seconds) * time.Second)
	defer timer.Stop()

	select {
	case <-enter:
	case <-timer.C:
	case <-ctx.Done():
	}
}

func playCue(ctx context.Context, player *audition.Player, cue func(int) *audio.Buffer, logger *log.Logger) {
	if !player.Enabled() {
		return
	}
	data, err := wavfile.Encode(cue(44100), wavfile.PCM16)
	if err == nil {
		err = player.Play(ctx, data)
	}
	if err != nil {
		logger.Printf("audition: cue: %v", err)
	}
}

func runAudition(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}
	b, err := bundle.Open(data)
	if err != nil {
		return err
	}
	name, _, err := b.Sample(auditionPad - 1)
	if err != nil {
		return err
	}
	if name == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Pad %d is silent\n", auditionPad)
		return nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Fprintf(cmd.OutOrStdout(), "Pad %d: %s\n", auditionPad, name)
	player := audition.New(true, logger)
	return player.PlayPad(ctx, data, auditionPad-1)
}
