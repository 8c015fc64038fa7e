package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ayafuji/melodine/internal/structures"
)

// renderPlayer draws the persistent bottom bar: now playing, transport state,
// progress and volume.
func (m *Model) renderPlayer() string {
	ps := m.playerState

	var lines []string
	lines = append(lines, m.theme.progressStyle.Render(strings.Repeat("─", max(m.width, 1))))

	if ps.Current == nil {
		lines = append(lines, m.theme.helpStyle.Render("  Nothing playing"))
		lines = append(lines, m.renderNoticeLine())
		lines = append(lines, "")
		return strings.Join(lines, "\n")
	}

	icon := "▶"
	if !ps.IsPlaying {
		icon = "⏸"
	}
	if ps.State == structures.StateLoading {
		icon = "…"
	}

	quality := sourceLabel(ps.State)
	title := runewidth.Truncate(ps.Current.Title+" — "+ps.Current.Artist, max(m.width-20, 10), "…")

	nowPlaying := fmt.Sprintf("  %s %s", icon, title)
	if quality != "" {
		nowPlaying += "  " + m.theme.noticeStyle.Render(quality)
	}
	if len(ps.Queue) > 0 {
		nowPlaying += m.theme.helpStyle.Render(fmt.Sprintf("  (%d/%d)", ps.Index+1, len(ps.Queue)))
	}
	lines = append(lines, nowPlaying)

	lines = append(lines, m.renderProgressLine())
	lines = append(lines, m.renderNoticeLine())

	return strings.Join(lines, "\n")
}

// sourceLabel tags the playing source quality. The full-length source carries
// no position feedback, so the label is the main signal that the hot switch
// happened.
func sourceLabel(state structures.SessionState) string {
	switch state {
	case structures.StatePlayingEmbed:
		return "FULL"
	case structures.StatePlayingPreview:
		return "PREVIEW"
	}
	return ""
}

func (m *Model) renderProgressLine() string {
	ps := m.playerState

	elapsed := formatTime(ps.Position)
	total := formatTime(ps.Total)
	volume := fmt.Sprintf("vol %d%%", int(ps.Volume*100+0.5))

	barWidth := m.width - len(elapsed) - len(total) - len(volume) - 10
	if barWidth < 10 {
		barWidth = 10
	}

	filled := 0
	if ps.Total > 0 && ps.Position > 0 {
		filled = int(float64(barWidth) * float64(ps.Position) / float64(ps.Total))
		if filled > barWidth {
			filled = barWidth
		}
	}

	bar := m.theme.progressFill.Render(strings.Repeat("█", filled)) +
		m.theme.progressStyle.Render(strings.Repeat("░", barWidth-filled))

	return fmt.Sprintf("  %s %s %s  %s", elapsed, bar, total, m.theme.subtitleStyle.Render(volume))
}

func (m *Model) renderNoticeLine() string {
	if m.notice == "" {
		return ""
	}
	return "  " + m.theme.noticeStyle.Render(m.notice)
}
