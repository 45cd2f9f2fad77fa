package tui

import (
	"context"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Danondso/padforge/internal/audio"
	"github.com/Danondso/padforge/internal/audition"
	"github.com/Danondso/padforge/internal/config"
	"github.com/Danondso/padforge/internal/kit"
	"github.com/Danondso/padforge/internal/wavfile"
)

// LevelSampler can report the current audio amplitude level and how long
// the capture has been running.
type LevelSampler interface {
	AudioLevel() float64
	Elapsed() time.Duration
}

// MicChecker can report whether a microphone input device is available.
type MicChecker interface {
	MicAvailable() bool
	MicName() string
}

// Auditioner plays encoded samples.
type Auditioner interface {
	Play(ctx context.Context, data []byte) error
	PlayPad(ctx context.Context, archive []byte, pad int) error
}

// State represents the application state.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateRendering
	StateDone
	StateError
)

// PadState is the render progress of one pad.
type PadState int

const (
	PadEmpty PadState = iota
	PadPending
	PadRendering
	PadReady
	PadFailed
)

// Pad is one cell of the grid.
type Pad struct {
	State PadState
	Label string
}

// Messages sent through the Bubble Tea update loop.

type RecordingStartedMsg struct{}

type RecordingStoppedMsg struct {
	Seconds float64
}

// RenderStartedMsg resets the grid for a new kit. Labels are the voicings
// in pad order.
type RenderStartedMsg struct {
	Preset string
	Labels []string
}

// PadEventMsg carries pipeline progress into the TUI.
type PadEventMsg struct {
	Event kit.Event
}

// RenderDoneMsg reports a finished kit and where it was written.
type RenderDoneMsg struct {
	Result *kit.Result
	Path   string
}

type RenderErrorMsg struct {
	Err error
}

type errorTimeoutMsg struct{}

type audioLevelTickMsg struct{}

// StatusCheckMsg carries the result of a mic availability check.
type StatusCheckMsg struct {
	MicDetected   bool
	MicDeviceName string
}

type statusCheckTickMsg struct{}

// DebugEntry is a structured debug log entry.
type DebugEntry struct {
	Time     string // e.g. "11:27:53"
	Category string // e.g. "stretch", "kit", "bundle"
	Message  string // the log message
}

// DebugLogMsg carries a structured debug log entry into the TUI.
type DebugLogMsg struct {
	Entry DebugEntry
}

const maxDebugLines = 50

// Model is the Bubble Tea model for the padforge TUI.
type Model struct {
	State         State
	Preset        string
	Pads          []Pad
	Selected      int
	LastPath      string
	LastError     string
	Archive       []byte
	Config        *config.Config
	Theme         Theme
	Player        Auditioner
	Logger        *log.Logger
	DebugMode     bool
	DebugEntries  []DebugEntry
	AudioLevel    float64
	Elapsed       time.Duration
	Recorder      LevelSampler
	MicChecker    MicChecker
	MicDetected   bool
	MicDeviceName string
	statusChecked bool
}

// NewModel creates a new TUI model.
func NewModel(cfg *config.Config, player Auditioner, rec LevelSampler, mc MicChecker, logger *log.Logger, debug bool) Model {
	theme := LoadTheme(cfg.Theme)
	applyTheme(theme)
	return Model{
		State:      StateIdle,
		Pads:       make([]Pad, cfg.Render.Pads),
		Config:     cfg,
		Theme:      theme,
		Player:     player,
		Recorder:   rec,
		MicChecker: mc,
		Logger:     logger,
		DebugMode:  debug,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return m.statusCheckCmd()
}

// Update handles messages and transitions state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case RecordingStartedMsg:
		m.State = StateRecording
		m.Elapsed = 0
		m.LastError = ""
		return m, tea.Batch(audioLevelTickCmd(), m.cueCmd(audition.StartCue))

	case audioLevelTickMsg:
		if m.State == StateRecording && m.Recorder != nil {
			m.AudioLevel = m.Recorder.AudioLevel()
			m.Elapsed = m.Recorder.Elapsed()
			return m, audioLevelTickCmd()
		}
		m.AudioLevel = 0
		return m, nil

	case RecordingStoppedMsg:
		m.State = StateIdle
		m.AudioLevel = 0
		m.logf("recording: captured %.2fs", msg.Seconds)
		return m, m.cueCmd(audition.StopCue)

	case StatusCheckMsg:
		m.MicDetected = msg.MicDetected
		m.MicDeviceName = msg.MicDeviceName
		m.statusChecked = true
		return m, scheduleStatusRecheck()

	case statusCheckTickMsg:
		return m, m.statusCheckCmd()

	case RenderStartedMsg:
		m.State = StateRendering
		m.Preset = msg.Preset
		m.LastError = ""
		m.LastPath = ""
		m.Archive = nil
		m.Pads = make([]Pad, max(len(m.Pads), len(msg.Labels)))
		for i, label := range msg.Labels {
			m.Pads[i] = Pad{State: PadPending, Label: label}
		}

	case PadEventMsg:
		ev := msg.Event
		if ev.Pad < 0 || ev.Pad >= len(m.Pads) {
			return m, nil
		}
		switch ev.Kind {
		case kit.PadStarted:
			m.Pads[ev.Pad].State = PadRendering
		case kit.PadDone:
			m.Pads[ev.Pad].State = PadReady
		case kit.PadFailed:
			m.Pads[ev.Pad].State = PadFailed
		}
		if ev.Voicing != "" && m.Pads[ev.Pad].Label == "" {
			m.Pads[ev.Pad].Label = ev.Voicing
		}

	case RenderDoneMsg:
		m.State = StateDone
		m.LastPath = msg.Path
		if msg.Result != nil {
			m.Archive = msg.Result.Archive
		}
		m.logf("kit: wrote %s", msg.Path)

	case RenderErrorMsg:
		m.State = StateError
		m.LastError = msg.Err.Error()
		return m, scheduleErrorTimeout()

	case errorTimeoutMsg:
		if m.State == StateError {
			m.State = StateIdle
			m.LastError = ""
		}

	case DebugLogMsg:
		m.DebugEntries = append(m.DebugEntries, msg.Entry)
		if len(m.DebugEntries) > maxDebugLines {
			m.DebugEntries = m.DebugEntries[len(m.DebugEntries)-maxDebugLines:]
		}
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "t":
		m.Theme = NextTheme(m.Theme.Name)
		applyTheme(m.Theme)
	case "left", "h":
		if m.Selected%gridColumns > 0 {
			m.Selected--
		}
	case "right", "l":
		if m.Selected%gridColumns < gridColumns-1 && m.Selected+1 < len(m.Pads) {
			m.Selected++
		}
	case "up", "k":
		// pad 1 sits bottom left, so up means a higher pad number
		if m.Selected+gridColumns < len(m.Pads) {
			m.Selected += gridColumns
		}
	case "down", "j":
		if m.Selected-gridColumns >= 0 {
			m.Selected -= gridColumns
		}
	case "enter", " ":
		return m, m.auditionCmd(m.Selected)
	}
	return m, nil
}

func (m Model) logf(format string, args ...any) {
	if m.Logger != nil {
		m.Logger.Printf(format, args...)
	}
}

// auditionCmd plays one pad of the finished kit.
func (m Model) auditionCmd(pad int) tea.Cmd {
	if m.Player == nil || m.Archive == nil {
		return nil
	}
	player := m.Player
	archive := m.Archive
	return func() tea.Msg {
		if err := player.PlayPad(context.Background(), archive, pad); err != nil {
			return RenderErrorMsg{Err: err}
		}
		return nil
	}
}

func (m Model) cueCmd(cue func(int) *audio.Buffer) tea.Cmd {
	if m.Player == nil {
		return nil
	}
	player := m.Player
	logger := m.Logger
	return func() tea.Msg {
		data, err := wavfile.Encode(cue(cueSampleRate), wavfile.PCM16)
		if err == nil {
			err = player.Play(context.Background(), data)
		}
		if err != nil && logger != nil {
			logger.Printf("audition: cue: %v", err)
		}
		return nil
	}
}

const cueSampleRate = 44100

func scheduleErrorTimeout() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return errorTimeoutMsg{}
	})
}

const audioLevelTickInterval = 100 * time.Millisecond

func audioLevelTickCmd() tea.Cmd {
	return tea.Tick(audioLevelTickInterval, func(time.Time) tea.Msg {
		return audioLevelTickMsg{}
	})
}

const statusRecheckInterval = 30 * time.Second

func (m Model) statusCheckCmd() tea.Cmd {
	mc := m.MicChecker
	return func() tea.Msg {
		micOk := false
		micName := ""
		if mc != nil {
			micOk = mc.MicAvailable()
			micName = mc.MicName()
		}
		return StatusCheckMsg{MicDetected: micOk, MicDeviceName: micName}
	}
}

func scheduleStatusRecheck() tea.Cmd {
	return tea.Tick(statusRecheckInterval, func(time.Time) tea.Msg {
		return statusCheckTickMsg{}
	})
}

// ProgressSender forwards pipeline events to a running program. The send
// is synchronous so a pad's events arrive in order; do not call it from
// inside a Bubble Tea command.
func ProgressSender(p *tea.Program) func(kit.Event) {
	return func(ev kit.Event) {
		p.Send(PadEventMsg{Event: ev})
	}
}
