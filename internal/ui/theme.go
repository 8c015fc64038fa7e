package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ayafuji/melodine/internal/structures"
)

// ThemeManager caches lipgloss styles built from the configured theme.
type ThemeManager struct {
	theme structures.Theme

	baseStyle     lipgloss.Style
	selectedStyle lipgloss.Style
	playingStyle  lipgloss.Style
	borderStyle   lipgloss.Style
	noticeStyle   lipgloss.Style
	titleStyle    lipgloss.Style
	subtitleStyle lipgloss.Style
	helpStyle     lipgloss.Style
	progressStyle lipgloss.Style
	progressFill  lipgloss.Style
}

// NewThemeManager creates a theme manager with the given theme.
func NewThemeManager(theme structures.Theme) *ThemeManager {
	tm := &ThemeManager{theme: theme}
	tm.initStyles()
	return tm
}

func (tm *ThemeManager) initStyles() {
	tm.baseStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(tm.theme.Foreground))

	tm.selectedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(tm.theme.Selected)).
		Bold(true)

	tm.playingStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(tm.theme.Playing)).
		Bold(true)

	tm.borderStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(tm.theme.Border))

	tm.noticeStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(tm.theme.Notice)).
		Bold(true)

	tm.titleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(tm.theme.Selected)).
		Bold(true)

	tm.subtitleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(tm.theme.ProgressBar))

	tm.helpStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(tm.theme.Border))

	tm.progressStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(tm.theme.ProgressBar))

	tm.progressFill = lipgloss.NewStyle().
		Foreground(lipgloss.Color(tm.theme.ProgressBarFill))
}
