package stretch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Danondso/padforge/internal/audio"
	"github.com/Danondso/padforge/internal/wavfile"
)

// BackendError describes a failed run of an external stretch command.
type BackendError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Tool)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	} else if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}

// Command implements Stretcher by shelling out to an external converter
// such as sox or rubberband.
type Command struct {
	command    string
	timeoutSec int
	logger     *log.Logger
}

// NewCommand creates a command-based stretcher. The command string may
// contain {input} and {output} (WAV file paths), {ratio} and {semitones}.
// The input is written as 32-bit float WAV; the command must write a WAV
// file at {output} with the same sample rate.
func NewCommand(command string, timeoutSec int, logger *log.Logger) *Command {
	return &Command{
		command:    command,
		timeoutSec: timeoutSec,
		logger:     logger,
	}
}

// Expand substitutes the placeholders of the command template.
func (c *Command) Expand(input, output string, ratio float64) string {
	semitones := strconv.FormatFloat(Semitones(ratio), 'f', 4, 64)
	r := strings.NewReplacer(
		"{input}", input,
		"{output}", output,
		"{ratio}", strconv.FormatFloat(ratio, 'f', -1, 64),
		"{semitones}", semitones,
	)
	return r.Replace(c.command)
}

func (c *Command) Stretch(ctx context.Context, buf *audio.Buffer, ratio float64) (*audio.Buffer, error) {
	if err := checkRatio(ratio); err != nil {
		return nil, err
	}
	frames := OutputFrames(buf.Frames(), ratio)
	if frames == 0 {
		return audio.New(buf.NumChannels(), 0, buf.SampleRate), nil
	}

	if c.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.timeoutSec)*time.Second)
		defer cancel()
	}

	wavData, err := wavfile.Encode(buf, wavfile.Float32)
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}

	dir, err := os.MkdirTemp("", "padforge-stretch-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "input.wav")
	outPath := filepath.Join(dir, "output.wav")
	if err := os.WriteFile(inPath, wavData, 0o600); err != nil {
		return nil, fmt.Errorf("write temp file: %w", err)
	}

	cmdStr := c.Expand(inPath, outPath, ratio)
	if strings.TrimSpace(cmdStr) == "" {
		return nil, fmt.Errorf("empty command after substitution")
	}

	if c.logger != nil {
		c.logger.Printf("stretch command: %s wav_size=%d", cmdStr, len(wavData))
	}

	start := time.Now()
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		be := &BackendError{
			Tool:   toolName(cmdStr),
			Stderr: strings.TrimSpace(stderr.String()),
			Cause:  err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			be.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			be.Cause = ctxErr
		}
		return nil, be
	}
	timed(c.logger, "command", ratio, start)

	outData, err := os.ReadFile(outPath)
	if err != nil {
		return nil, &BackendError{Tool: toolName(cmdStr), Cause: fmt.Errorf("read output: %w", err)}
	}
	res, err := wavfile.Decode(outData)
	if err != nil {
		return nil, &BackendError{Tool: toolName(cmdStr), Cause: err}
	}
	if res.SampleRate != buf.SampleRate {
		return nil, &BackendError{
			Tool:  toolName(cmdStr),
			Cause: fmt.Errorf("output at %d Hz, want %d Hz", res.SampleRate, buf.SampleRate),
		}
	}

	out := audio.New(buf.NumChannels(), frames, buf.SampleRate)
	for ch := range out.Channels {
		src := res.Channels[min(ch, res.NumChannels()-1)]
		out.Channels[ch] = fit(src, frames)
	}
	return out, nil
}

func toolName(cmdStr string) string {
	fields := strings.Fields(cmdStr)
	if len(fields) == 0 {
		return "command"
	}
	return filepath.Base(fields[0])
}
