package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/ayafuji/melodine/internal/constants"
	"github.com/ayafuji/melodine/internal/structures"
)

func (m *Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	if m.state == LoginView {
		return m.renderLogin()
	}

	contentHeight := m.height - constants.DefaultPlayerHeight - 1
	if contentHeight < 1 {
		contentHeight = 1
	}

	var content string
	switch m.state {
	case HomeView:
		content = m.renderHome(contentHeight)
	case SearchView:
		content = m.renderSearch(contentHeight)
	case AlbumView:
		content = m.renderAlbum(contentHeight)
	case ArtistView:
		content = m.renderArtist(contentHeight)
	case LibraryView:
		content = m.renderLibrary(contentHeight)
	}

	content = clampHeight(content, contentHeight)
	return lipgloss.JoinVertical(lipgloss.Left, content, m.renderPlayer())
}

func (m *Model) renderLogin() string {
	title := "melodine"
	action := "Sign in"
	hint := "ctrl+r: create an account instead"
	if m.registering {
		action = "Create account"
		hint = "ctrl+r: sign in instead"
	}

	var b strings.Builder
	b.WriteString(m.theme.titleStyle.Render(title))
	b.WriteString("\n\n")
	b.WriteString(m.theme.subtitleStyle.Render(action))
	b.WriteString("\n\n")
	b.WriteString(m.usernameInput.View())
	b.WriteString("\n")
	b.WriteString(m.passwordInput.View())
	b.WriteString("\n\n")
	if m.loginErr != "" {
		b.WriteString(m.theme.noticeStyle.Render(m.loginErr))
		b.WriteString("\n\n")
	}
	b.WriteString(m.theme.helpStyle.Render("enter: submit  tab: switch field  " + hint))

	box := m.theme.borderStyle.Padding(1, 3).Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// greeting matches the hour like the original client: morning, afternoon,
// evening.
func greeting(now time.Time) string {
	switch hour := now.Hour(); {
	case hour < 12:
		return "Good morning"
	case hour < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

func (m *Model) renderHome(height int) string {
	var b strings.Builder

	who := ""
	if m.user != nil {
		who = ", " + m.user.Username
	}
	b.WriteString(m.theme.titleStyle.Render(greeting(time.Now()) + who))
	b.WriteString("\n\n")

	for i, s := range m.sections {
		cursor := "  "
		style := m.theme.subtitleStyle
		if i == m.sectionIndex {
			cursor = "> "
			style = m.theme.selectedStyle
		}
		b.WriteString(style.Render(cursor + s.title))
		b.WriteString("\n")

		if i != m.sectionIndex {
			continue
		}

		if len(s.artists) > 0 {
			for j, artist := range s.artists {
				b.WriteString(m.renderRow(artist.Name, "Artist", j == m.selectedIndex, false))
			}
		} else if len(s.tracks) == 0 {
			b.WriteString(m.theme.helpStyle.Render("    loading..."))
			b.WriteString("\n")
		} else {
			for j, track := range s.tracks {
				label := track.Title
				detail := track.Artist
				if s.albums {
					label = track.Album
					if label == "" {
						label = track.Title
					}
				}
				b.WriteString(m.renderRow(label, detail, j == m.selectedIndex, m.isCurrent(track)))
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(m.helpLine())
	return b.String()
}

func (m *Model) renderSearch(height int) string {
	var b strings.Builder

	b.WriteString(m.theme.titleStyle.Render("Search"))
	b.WriteString("\n")
	b.WriteString(m.searchInput.View())
	b.WriteString("\n\n")

	groups := []string{"Songs", "Artists", "Albums"}
	var tabs []string
	for i, g := range groups {
		if i == m.searchGroup && !m.searchInput.Focused() {
			tabs = append(tabs, m.theme.selectedStyle.Render("["+g+"]"))
		} else {
			tabs = append(tabs, m.theme.subtitleStyle.Render(" "+g+" "))
		}
	}
	b.WriteString(strings.Join(tabs, " "))
	b.WriteString("\n\n")

	selecting := !m.searchInput.Focused()
	switch m.searchGroup {
	case 0:
		if len(m.searchSongs) == 0 {
			b.WriteString(m.theme.helpStyle.Render("  type to search songs"))
			b.WriteString("\n")
		}
		for i, track := range m.searchSongs {
			b.WriteString(m.renderRow(track.Title, track.Artist+" · "+track.Album, selecting && i == m.selectedIndex, m.isCurrent(track)))
		}
	case 1:
		for i, artist := range m.searchArtists {
			b.WriteString(m.renderRow(artist.Name, "Artist", selecting && i == m.selectedIndex, false))
		}
	case 2:
		for i, album := range m.searchAlbums {
			name := album.Album
			if name == "" {
				name = album.Title
			}
			b.WriteString(m.renderRow(name, album.Artist, selecting && i == m.selectedIndex, false))
		}
	}

	b.WriteString("\n")
	if m.searchInput.Focused() {
		b.WriteString(m.theme.helpStyle.Render("enter: search  esc: browse results"))
	} else {
		b.WriteString(m.theme.helpStyle.Render("tab: next group  enter: play/open  f: edit query  esc: home"))
	}
	return b.String()
}

func (m *Model) renderAlbum(height int) string {
	var b strings.Builder
	b.WriteString(m.theme.titleStyle.Render(m.albumTitle))
	b.WriteString("\n")
	if len(m.albumTracks) > 0 {
		b.WriteString(m.theme.subtitleStyle.Render(fmt.Sprintf("%s · %d tracks", m.albumTracks[0].Artist, len(m.albumTracks))))
	}
	b.WriteString("\n\n")

	for i, track := range m.albumTracks {
		detail := formatTime(track.Duration())
		b.WriteString(m.renderRow(fmt.Sprintf("%2d. %s", i+1, track.Title), detail, i == m.selectedIndex, m.isCurrent(track)))
	}

	b.WriteString("\n")
	b.WriteString(m.helpLine())
	return b.String()
}

func (m *Model) renderArtist(height int) string {
	var b strings.Builder
	b.WriteString(m.theme.titleStyle.Render(m.artistName))
	b.WriteString("\n\n")
	b.WriteString(m.theme.subtitleStyle.Render("Popular"))
	b.WriteString("\n")

	for i, track := range m.artistSongs {
		b.WriteString(m.renderRow(track.Title, track.Album, i == m.selectedIndex, m.isCurrent(track)))
	}

	if len(m.artistAlbums) > 0 {
		b.WriteString("\n")
		b.WriteString(m.theme.subtitleStyle.Render("Albums"))
		b.WriteString("\n")
		for _, album := range m.artistAlbums {
			name := album.Album
			if name == "" {
				name = album.Title
			}
			b.WriteString(m.renderRow(name, "", false, false))
		}
	}

	b.WriteString("\n")
	b.WriteString(m.helpLine())
	return b.String()
}

func (m *Model) renderLibrary(height int) string {
	var b strings.Builder
	b.WriteString(m.theme.titleStyle.Render("Your Library"))
	b.WriteString("\n\n")

	for i, name := range m.library.Playlists {
		b.WriteString(m.renderRow(name, "Playlist", i == m.selectedIndex, false))
	}

	recent := m.systems.History.Recent(constants.HistoryLimit)
	if len(recent) > 0 {
		b.WriteString("\n")
		b.WriteString(m.theme.subtitleStyle.Render("Recently Played"))
		b.WriteString("\n")
		max := len(recent)
		if max > 10 {
			max = 10
		}
		for _, track := range recent[:max] {
			b.WriteString(m.renderRow(track.Title, track.Artist, false, m.isCurrent(track)))
		}
	}

	b.WriteString("\n")
	b.WriteString(m.helpLine())
	return b.String()
}

// renderRow draws one list line: a cursor marker, the label, and a dimmed
// detail column, truncated to the terminal width.
func (m *Model) renderRow(label, detail string, selected, playing bool) string {
	cursor := "    "
	style := m.theme.baseStyle
	if playing {
		cursor = "  ♪ "
		style = m.theme.playingStyle
	}
	if selected {
		cursor = "  > "
		style = m.theme.selectedStyle
	}

	width := m.width - 6
	if width < 10 {
		width = 10
	}

	line := label
	if detail != "" {
		line = label + "  " + detail
	}
	line = runewidth.Truncate(line, width, "…")

	return style.Render(cursor+line) + "\n"
}

func (m *Model) isCurrent(track structures.Track) bool {
	return m.playerState.Current != nil && m.playerState.Current.Key() == track.Key()
}

func (m *Model) helpLine() string {
	kb := m.config.KeyBindings
	return m.theme.helpStyle.Render(fmt.Sprintf(
		"%s: search  %s: home  %s: library  space: play/pause  %s/%s: next/prev  %s: quit",
		kb.Search, kb.Home, kb.Library, kb.NextTrack, kb.PrevTrack, kb.Quit,
	))
}

func clampHeight(s string, height int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func formatTime(d time.Duration) string {
	if d <= 0 {
		return "0:00"
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
