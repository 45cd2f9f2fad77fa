package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Danondso/padforge/internal/config"
)

// Theme is a TUI color palette. Pad cells reuse the badge colors so a
// pad's state reads the same as the status line.
type Theme struct {
	Name       string
	Primary    lipgloss.Color // title, recording, pads being rendered
	Secondary  lipgloss.Color // border, labels, help
	Accent     lipgloss.Color // kit name, queued pads
	Error      lipgloss.Color
	Success    lipgloss.Color // ready pads
	Warning    lipgloss.Color // render progress, log categories
	Background lipgloss.Color
	Text       lipgloss.Color
	Dimmed     lipgloss.Color
	Separator  lipgloss.Color // empty pads, table rules
}

// DefaultTheme is used when the configured theme is unknown.
const DefaultTheme = "synthwave"

var themes = map[string]Theme{
	"synthwave": {
		Name:       "Synthwave",
		Primary:    lipgloss.Color("#FF6AC1"),
		Secondary:  lipgloss.Color("#00E5FF"),
		Accent:     lipgloss.Color("#B388FF"),
		Error:      lipgloss.Color("#FF8A80"),
		Success:    lipgloss.Color("#64FFDA"),
		Warning:    lipgloss.Color("#FFAB40"),
		Background: lipgloss.Color("#1A1A2E"),
		Text:       lipgloss.Color("#E0E0E0"),
		Dimmed:     lipgloss.Color("#666666"),
		Separator:  lipgloss.Color("#444444"),
	},
	// backlit rubber pads on a dark chassis
	"studio": {
		Name:       "Studio",
		Primary:    lipgloss.Color("#FF9F1C"),
		Secondary:  lipgloss.Color("#8D99AE"),
		Accent:     lipgloss.Color("#2EC4B6"),
		Error:      lipgloss.Color("#E63946"),
		Success:    lipgloss.Color("#A7C957"),
		Warning:    lipgloss.Color("#FFD166"),
		Background: lipgloss.Color("#1B1B1E"),
		Text:       lipgloss.Color("#EDF2F4"),
		Dimmed:     lipgloss.Color("#6C757D"),
		Separator:  lipgloss.Color("#3A3A40"),
	},
	"monochrome": {
		Name:       "Monochrome",
		Primary:    lipgloss.Color("#FFFFFF"),
		Secondary:  lipgloss.Color("#BBBBBB"),
		Accent:     lipgloss.Color("#DDDDDD"),
		Error:      lipgloss.Color("#FF5555"),
		Success:    lipgloss.Color("#FFFFFF"),
		Warning:    lipgloss.Color("#BBBBBB"),
		Background: lipgloss.Color("#000000"),
		Text:       lipgloss.Color("#EEEEEE"),
		Dimmed:     lipgloss.Color("#808080"),
		Separator:  lipgloss.Color("#404040"),
	},
}

// themeOrder is the cycle order of the t key. Built-ins come first.
var themeOrder = []string{"synthwave", "studio", "monochrome"}

var builtinCount = len(themeOrder)

// ThemeNames returns the theme keys in cycle order.
func ThemeNames() []string {
	return themeOrder
}

// LoadTheme returns the theme named name, ignoring case, or the default.
func LoadTheme(name string) Theme {
	if t, ok := themes[strings.ToLower(name)]; ok {
		return t
	}
	return themes[DefaultTheme]
}

// NextTheme returns the theme after current in the cycle.
func NextTheme(current string) Theme {
	current = strings.ToLower(current)
	for i, name := range themeOrder {
		if name == current {
			return themes[themeOrder[(i+1)%len(themeOrder)]]
		}
	}
	return themes[themeOrder[0]]
}

func isBuiltin(key string) bool {
	for _, name := range themeOrder[:builtinCount] {
		if name == key {
			return true
		}
	}
	return false
}

// RegisterCustomThemes adds the config's custom themes to the cycle.
// Unnamed entries and names already taken are skipped.
func RegisterCustomThemes(custom []config.CustomTheme) {
	for _, ct := range custom {
		key := strings.ToLower(ct.Name)
		if key == "" || isBuiltin(key) {
			continue
		}
		if _, exists := themes[key]; exists {
			continue
		}
		themes[key] = Theme{
			Name:       ct.Name,
			Primary:    lipgloss.Color(ct.Primary),
			Secondary:  lipgloss.Color(ct.Secondary),
			Accent:     lipgloss.Color(ct.Accent),
			Error:      lipgloss.Color(ct.Error),
			Success:    lipgloss.Color(ct.Success),
			Warning:    lipgloss.Color(ct.Warning),
			Background: lipgloss.Color(ct.Background),
			Text:       lipgloss.Color(ct.Text),
			Dimmed:     lipgloss.Color(ct.Dimmed),
			Separator:  lipgloss.Color(ct.Separator),
		}
		themeOrder = append(themeOrder, key)
	}
}

// applyTheme rebuilds every style from t.
func applyTheme(t Theme) {
	base := lipgloss.NewStyle().Background(t.Background)
	fg := func(c lipgloss.Color) lipgloss.Style { return base.Foreground(c) }
	bold := func(c lipgloss.Color) lipgloss.Style { return fg(c).Bold(true) }

	titleStyle = bold(t.Primary).MarginBottom(1)
	borderStyle = base.
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Secondary).
		Padding(1, 2)
	labelStyle = bold(t.Secondary)
	presetStyle = fg(t.Accent).Italic(true)
	helpStyle = fg(t.Secondary)
	quitStyle = fg(t.Dimmed)
	bodyStyle = fg(t.Text)

	idleBadge = bold(t.Success)
	recordingBadge = bold(t.Primary)
	renderingBadge = bold(t.Warning)
	errorBadge = bold(t.Error)

	padEmptyStyle = fg(t.Separator)
	padPendingStyle = fg(t.Accent)
	padRenderingStyle = bold(t.Primary)
	padReadyStyle = fg(t.Success)
	padFailedStyle = bold(t.Error)

	debugTitleStyle = bold(t.Dimmed)
	debugHeaderStyle = bold(t.Dimmed)
	debugRuleStyle = fg(t.Dimmed)
	debugTimeStyle = fg(t.Dimmed)
	debugMsgStyle = fg(t.Dimmed)
	debugCategoryStyle = fg(t.Warning)
	debugSepStyle = fg(t.Separator)

	visualizerStyle = fg(t.Primary)
	visualizerLabelStyle = fg(t.Dimmed)
	statusOkStyle = bold(t.Success)
	statusBadStyle = bold(t.Error)
}
