package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles are set by applyTheme.
var (
	titleStyle           lipgloss.Style
	borderStyle          lipgloss.Style
	labelStyle           lipgloss.Style
	presetStyle          lipgloss.Style
	helpStyle            lipgloss.Style
	quitStyle            lipgloss.Style
	idleBadge            lipgloss.Style
	recordingBadge       lipgloss.Style
	renderingBadge       lipgloss.Style
	errorBadge           lipgloss.Style
	bodyStyle            lipgloss.Style
	padEmptyStyle        lipgloss.Style
	padPendingStyle      lipgloss.Style
	padRenderingStyle    lipgloss.Style
	padReadyStyle        lipgloss.Style
	padFailedStyle       lipgloss.Style
	debugTitleStyle      lipgloss.Style
	debugRuleStyle       lipgloss.Style
	debugHeaderStyle     lipgloss.Style
	debugTimeStyle       lipgloss.Style
	debugCategoryStyle   lipgloss.Style
	debugMsgStyle        lipgloss.Style
	debugSepStyle        lipgloss.Style
	visualizerStyle      lipgloss.Style
	visualizerLabelStyle lipgloss.Style
	statusOkStyle        lipgloss.Style
	statusBadStyle       lipgloss.Style
)

func init() {
	applyTheme(themes[themeOrder[0]])
}

// panelWidth is the total outer width of the main panel.
// borderStyle has: border (1+1) = 2, padding (2+2) = 4, total chrome = 6.
// Width() in lipgloss sets width including padding but excluding border.
// So we pass panelWidth - 2 (border) to Width(), and the actual text area
// is panelWidth - 6 (border + padding).
const panelWidth = 80
const panelWidthForStyle = panelWidth - 2 // passed to borderStyle.Width()
const panelContentWidth = panelWidth - 6  // actual usable text area

// View renders the TUI.
func (m Model) View() string {
	var b strings.Builder

	// Title, centered with color bars extending to panel edges
	titleText := "  PADFORGE  "
	barTotal := panelContentWidth - len(titleText)
	barLeft := barTotal / 2
	barRight := barTotal - barLeft
	title := strings.Repeat("▓", barLeft) + titleText + strings.Repeat("▓", barRight)
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	// Status / Visualizer
	b.WriteString(labelStyle.Render("Status:  "))
	b.WriteString(m.renderBadge())
	if m.State == StateRecording {
		b.WriteString(bodyStyle.Render("  "))
		b.WriteString(m.renderVisualizer())
	}
	b.WriteString("\n\n")

	// Pad grid
	name := m.Preset
	if name == "" {
		name = "(no kit yet)"
	}
	b.WriteString(labelStyle.Render("Kit: "))
	b.WriteString(presetStyle.Render(name))
	b.WriteString("\n")
	b.WriteString(m.renderGrid())
	b.WriteString("\n")
	if m.LastPath != "" {
		b.WriteString(bodyStyle.Render("Wrote " + m.LastPath))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(helpStyle.Render("Arrows select a pad, enter plays it, t cycles theme"))
	b.WriteString("\n")
	b.WriteString(quitStyle.Render("Press q to quit"))

	// Debug sub-panel (inside main panel)
	if m.DebugMode || len(m.DebugEntries) > 0 {
		b.WriteString("\n\n")
		b.WriteString(m.renderDebugPanel())
	}

	return borderStyle.Width(panelWidthForStyle).Render(b.String())
}

// gridColumns is the width of the pad grid. Pads fill rows from the bottom
// left, the way the device lays them out.
const gridColumns = 4

// cellWidth fits four cells and their gaps inside the panel.
const cellWidth = (panelContentWidth - gridColumns + 1) / gridColumns

func (m Model) renderGrid() string {
	rows := (len(m.Pads) + gridColumns - 1) / gridColumns
	lines := make([]string, 0, rows)
	for r := rows - 1; r >= 0; r-- {
		cells := make([]string, 0, gridColumns)
		for c := 0; c < gridColumns; c++ {
			i := r*gridColumns + c
			if i >= len(m.Pads) {
				break
			}
			cells = append(cells, m.renderCell(i))
		}
		lines = append(lines, strings.Join(cells, bodyStyle.Render(" ")))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderCell(i int) string {
	pad := m.Pads[i]
	marker := " "
	if i == m.Selected {
		marker = ">"
	}
	label := pad.Label
	if pad.State == PadEmpty {
		label = "·"
	}
	text := fmt.Sprintf("%s%2d %s", marker, i+1, label)
	if lipgloss.Width(text) > cellWidth {
		text = truncate(text, cellWidth-1) + "…"
	}

	style := padEmptyStyle
	switch pad.State {
	case PadPending:
		style = padPendingStyle
	case PadRendering:
		style = padRenderingStyle
	case PadReady:
		style = padReadyStyle
	case PadFailed:
		style = padFailedStyle
	}
	return style.Width(cellWidth).Render(text)
}

// truncate cuts s to at most width terminal cells without splitting a rune.
func truncate(s string, width int) string {
	w := 0
	for i, r := range s {
		rw := lipgloss.Width(string(r))
		if w+rw > width {
			return s[:i]
		}
		w += rw
	}
	return s
}

const debugPanelMaxLines = 5

// Debug table column widths. Row content must fit within panelContentWidth.
const (
	colTimeWidth     = 15
	colCategoryWidth = 10
	colSepWidth      = 3 // " │ "
	colMsgWidth      = panelContentWidth - colTimeWidth - colCategoryWidth - colSepWidth*2
)

func (m Model) renderDebugPanel() string {
	sep := debugSepStyle.Render(" │ ")
	rule := debugRuleStyle.Render(strings.Repeat("─", panelContentWidth))

	var db strings.Builder

	// Title + divider
	db.WriteString(debugTitleStyle.Render("Debug"))
	db.WriteString("\n")
	db.WriteString(rule)
	db.WriteString("\n")

	// Header row
	db.WriteString(
		debugHeaderStyle.Width(colTimeWidth).Render("TIME") +
			sep +
			debugHeaderStyle.Width(colCategoryWidth).Render("TYPE") +
			sep +
			debugHeaderStyle.Width(colMsgWidth).Render("MESSAGE"))
	db.WriteString("\n")
	db.WriteString(rule)

	// Data rows
	entries := m.DebugEntries
	if len(entries) > debugPanelMaxLines {
		entries = entries[len(entries)-debugPanelMaxLines:]
	}
	for _, entry := range entries {
		timeStr := entry.Time
		if len(timeStr) > colTimeWidth {
			timeStr = timeStr[:colTimeWidth]
		}

		cat := entry.Category
		if len(cat) > colCategoryWidth {
			cat = cat[:colCategoryWidth]
		}

		msg := entry.Message
		if lipgloss.Width(msg) > colMsgWidth {
			msg = truncate(msg, colMsgWidth-3) + "..."
		}

		db.WriteString("\n")
		db.WriteString(
			debugTimeStyle.Width(colTimeWidth).Render(timeStr) +
				sep +
				debugCategoryStyle.Width(colCategoryWidth).Render(cat) +
				sep +
				debugMsgStyle.Width(colMsgWidth).Render(msg))
	}

	return db.String()
}

const visualizerWidth = 20

func (m Model) renderVisualizer() string {
	scaled := math.Sqrt(m.AudioLevel)
	filled := int(math.Round(scaled * float64(visualizerWidth)))
	if filled > visualizerWidth {
		filled = visualizerWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", visualizerWidth-filled)
	return visualizerLabelStyle.Render("Mic  ") + visualizerStyle.Render(bar)
}

func (m Model) renderStatusBar() string {
	stretcher := quitStyle.Render(m.Config.Resampler.Provider)
	format := quitStyle.Render(m.Config.Render.Format)
	if !m.statusChecked {
		return quitStyle.Render("Mic: ...  Stretch: ") + stretcher + quitStyle.Render("  Format: ") + format
	}
	var mic string
	if m.MicDetected {
		mic = statusOkStyle.Render("✓")
		if m.MicDeviceName != "" {
			mic += quitStyle.Render(" (" + m.MicDeviceName + ")")
		}
	} else {
		mic = statusBadStyle.Render("✗")
	}
	return quitStyle.Render("Mic: ") + mic + quitStyle.Render("  Stretch: ") + stretcher + quitStyle.Render("  Format: ") + format
}

func (m Model) renderBadge() string {
	switch m.State {
	case StateRecording:
		return recordingBadge.Render(fmt.Sprintf("● Recording %.1fs", m.Elapsed.Seconds()))
	case StateRendering:
		return renderingBadge.Render(fmt.Sprintf("● Rendering %d/%d", m.readyCount(), m.voicingCount()))
	case StateDone:
		return idleBadge.Render("● Done")
	case StateError:
		errText := m.LastError
		if lipgloss.Width(errText) > 50 {
			errText = truncate(errText, 50) + "..."
		}
		return errorBadge.Render(fmt.Sprintf("● Error: %s", errText))
	default:
		return idleBadge.Render("● Idle")
	}
}

func (m Model) readyCount() int {
	n := 0
	for _, p := range m.Pads {
		if p.State == PadReady {
			n++
		}
	}
	return n
}

func (m Model) voicingCount() int {
	n := 0
	for _, p := range m.Pads {
		if p.State != PadEmpty {
			n++
		}
	}
	return n
}
