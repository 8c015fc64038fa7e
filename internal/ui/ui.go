package ui

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/ayafuji/melodine/internal/catalog"
	"github.com/ayafuji/melodine/internal/constants"
	"github.com/ayafuji/melodine/internal/structures"
	"github.com/ayafuji/melodine/internal/systems"
)

func init() {
	runewidth.DefaultCondition.EastAsianWidth = false
}

type ViewState int

const (
	LoginView ViewState = iota
	HomeView
	SearchView
	LibraryView
	AlbumView
	ArtistView
)

// section is one horizontal row of the home view, mirrored as a vertical
// block in the terminal.
type section struct {
	title   string
	tracks  []structures.Track
	artists []catalog.Artist
	albums  bool
}

// Model is the bubbletea model for the whole client.
type Model struct {
	systems *systems.Systems
	config  *structures.Config
	theme   *ThemeManager

	state  ViewState
	width  int
	height int

	// Login form
	usernameInput textinput.Model
	passwordInput textinput.Model
	loginFocus    int
	registering   bool
	loginErr      string
	user          *structures.User

	// Home sections
	sections      []section
	sectionIndex  int
	selectedIndex int

	// Search
	searchInput   textinput.Model
	searchSongs   []structures.Track
	searchArtists []catalog.Artist
	searchAlbums  []structures.Track
	searchGroup   int // 0 songs, 1 artists, 2 albums
	pendingSearch string

	// Album / artist views
	albumTitle   string
	albumTracks  []structures.Track
	artistName   string
	artistSongs  []structures.Track
	artistAlbums []structures.Track

	// Library
	library structures.Library

	playerState structures.PlayerState
	notice      string
	noticeAt    time.Time
}

type tickMsg time.Time
type noticeMsg string
type sectionLoadedMsg struct {
	index   int
	tracks  []structures.Track
	artists []catalog.Artist
}
type searchDoneMsg struct {
	term    string
	songs   []structures.Track
	artists []catalog.Artist
	albums  []structures.Track
}
type searchTickMsg struct{ term string }
type albumLoadedMsg struct {
	title  string
	tracks []structures.Track
}
type artistLoadedMsg struct {
	name   string
	songs  []structures.Track
	albums []structures.Track
}

// notifier forwards session notices into the bubbletea program.
type notifier struct{ program *tea.Program }

func (n notifier) Notify(message string) {
	n.program.Send(noticeMsg(message))
}

// Run starts the UI and blocks until quit.
func Run(sys *systems.Systems, cfg *structures.Config) error {
	m := newModel(sys, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())
	sys.Session.SetNotifier(notifier{program: p})

	_, err := p.Run()
	return err
}

func newModel(sys *systems.Systems, cfg *structures.Config) *Model {
	username := textinput.New()
	username.Placeholder = "username"
	username.Focus()
	username.CharLimit = 64

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.CharLimit = 64

	search := textinput.New()
	search.Placeholder = "What do you want to listen to?"
	search.CharLimit = 128

	m := &Model{
		systems:       sys,
		config:        cfg,
		theme:         NewThemeManager(cfg.Theme),
		usernameInput: username,
		passwordInput: password,
		searchInput:   search,
		state:         LoginView,
	}

	if user, ok := sys.Auth.CurrentUser(); ok {
		m.user = user
		m.state = HomeView
	}

	return m
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tickCmd(), textinput.Blink}
	if m.state == HomeView {
		cmds = append(cmds, m.loadHomeCmd()...)
	}
	return tea.Batch(cmds...)
}

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(constants.PlayerUpdateInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.playerState = m.systems.Session.GetState()
		if m.notice != "" && time.Since(m.noticeAt) > constants.NoticeDuration {
			m.notice = ""
		}
		return m, m.tickCmd()

	case noticeMsg:
		m.notice = string(msg)
		m.noticeAt = time.Now()
		return m, nil

	case sectionLoadedMsg:
		if msg.index < len(m.sections) {
			m.sections[msg.index].tracks = msg.tracks
			m.sections[msg.index].artists = msg.artists
		}
		return m, nil

	case searchTickMsg:
		// Debounce: only fire if the input has not changed since the tick
		// was scheduled.
		if msg.term == m.searchInput.Value() && len(msg.term) > 2 {
			return m, m.searchCmd(msg.term)
		}
		return m, nil

	case searchDoneMsg:
		if msg.term == m.searchInput.Value() {
			m.searchSongs = msg.songs
			m.searchArtists = msg.artists
			m.searchAlbums = msg.albums
			m.selectedIndex = 0
		}
		return m, nil

	case albumLoadedMsg:
		m.albumTitle = msg.title
		m.albumTracks = msg.tracks
		m.selectedIndex = 0
		m.state = AlbumView
		m.systems.Session.SendAction(structures.ReplaceQueueAction{Tracks: msg.tracks})
		return m, nil

	case artistLoadedMsg:
		m.artistName = msg.name
		m.artistSongs = msg.songs
		m.artistAlbums = msg.albums
		m.selectedIndex = 0
		m.state = ArtistView
		m.systems.Session.SendAction(structures.ReplaceQueueAction{Tracks: msg.songs})
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	kb := m.config.KeyBindings

	if key == kb.Quit || key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.state == LoginView {
		return m.handleLoginKey(msg)
	}

	// The search input swallows most keys while focused.
	if m.state == SearchView && m.searchInput.Focused() {
		return m.handleSearchInputKey(msg)
	}

	switch {
	case key == kb.PlayPause:
		m.systems.Session.SendAction(structures.PlayPauseAction{})
	case key == kb.NextTrack:
		m.systems.Session.SendAction(structures.NextAction{})
	case key == kb.PrevTrack:
		m.systems.Session.SendAction(structures.PreviousAction{})
	case slices.Contains(kb.VolumeUp, key):
		m.systems.Session.SendAction(structures.VolumeUpAction{})
	case slices.Contains(kb.VolumeDown, key):
		m.systems.Session.SendAction(structures.VolumeDownAction{})
	case key == kb.SeekForward:
		m.seekBy(time.Duration(m.config.SeekSeconds) * time.Second)
	case key == kb.SeekBackward:
		m.seekBy(-time.Duration(m.config.SeekSeconds) * time.Second)

	case key == kb.Search:
		m.state = SearchView
		m.searchInput.Focus()
		return m, textinput.Blink
	case key == kb.Home:
		m.state = HomeView
		m.selectedIndex = 0
		return m, tea.Batch(m.loadHomeCmd()...)
	case key == kb.Library:
		m.state = LibraryView
		m.loadLibrary()
		m.selectedIndex = 0

	case slices.Contains(kb.Back, key):
		m.handleBack()
	case slices.Contains(kb.MoveUp, key):
		m.moveSelection(-1)
	case slices.Contains(kb.MoveDown, key):
		m.moveSelection(1)
	case key == "tab":
		m.nextGroup(1)
	case key == "shift+tab":
		m.nextGroup(-1)
	case slices.Contains(kb.Select, key):
		return m, m.handleSelect()
	}

	return m, nil
}

func (m *Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		m.loginFocus = 1 - m.loginFocus
		if m.loginFocus == 0 {
			m.usernameInput.Focus()
			m.passwordInput.Blur()
		} else {
			m.passwordInput.Focus()
			m.usernameInput.Blur()
		}
		return m, textinput.Blink

	case "ctrl+r":
		m.registering = !m.registering
		m.loginErr = ""
		return m, nil

	case "enter":
		m.submitLogin()
		if m.state == HomeView {
			return m, tea.Batch(m.loadHomeCmd()...)
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.usernameInput, cmd = m.usernameInput.Update(msg)
	} else {
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) submitLogin() {
	username := m.usernameInput.Value()
	password := m.passwordInput.Value()

	var err error
	if m.registering {
		m.user, err = m.systems.Auth.Register(username, password)
	} else {
		m.user, err = m.systems.Auth.Login(username, password)
	}

	if err != nil {
		m.loginErr = err.Error()
		return
	}

	m.loginErr = ""
	m.state = HomeView
}

func (m *Model) handleSearchInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searchInput.Blur()
		return m, nil
	case "enter":
		m.searchInput.Blur()
		term := m.searchInput.Value()
		if term != "" {
			return m, m.searchCmd(term)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)

	term := m.searchInput.Value()
	if len(term) > 2 && term != m.pendingSearch {
		m.pendingSearch = term
		debounce := tea.Tick(constants.SearchDebounce, func(time.Time) tea.Msg {
			return searchTickMsg{term: term}
		})
		return m, tea.Batch(cmd, debounce)
	}

	return m, cmd
}

func (m *Model) handleBack() {
	switch m.state {
	case AlbumView, ArtistView, LibraryView:
		m.state = HomeView
	case SearchView:
		if m.searchInput.Focused() {
			m.searchInput.Blur()
		} else {
			m.state = HomeView
		}
	}
	m.selectedIndex = 0
}

func (m *Model) seekBy(delta time.Duration) {
	pos := m.playerState.Position + delta
	if pos < 0 {
		pos = 0
	}
	m.systems.Session.SendAction(structures.SeekAction{Position: pos})
}

// currentListLen returns the length of the list under the cursor for the
// active view and group.
func (m *Model) currentListLen() int {
	switch m.state {
	case HomeView:
		if m.sectionIndex < len(m.sections) {
			s := m.sections[m.sectionIndex]
			if len(s.artists) > 0 {
				return len(s.artists)
			}
			return len(s.tracks)
		}
	case SearchView:
		switch m.searchGroup {
		case 0:
			return len(m.searchSongs)
		case 1:
			return len(m.searchArtists)
		case 2:
			return len(m.searchAlbums)
		}
	case AlbumView:
		return len(m.albumTracks)
	case ArtistView:
		return len(m.artistSongs)
	case LibraryView:
		return len(m.library.Playlists)
	}
	return 0
}

func (m *Model) moveSelection(delta int) {
	n := m.currentListLen()
	if n == 0 {
		return
	}
	m.selectedIndex += delta
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
	if m.selectedIndex >= n {
		m.selectedIndex = n - 1
	}
}

func (m *Model) nextGroup(delta int) {
	m.selectedIndex = 0
	switch m.state {
	case HomeView:
		if len(m.sections) == 0 {
			return
		}
		m.sectionIndex = (m.sectionIndex + delta + len(m.sections)) % len(m.sections)
	case SearchView:
		m.searchGroup = (m.searchGroup + delta + 3) % 3
	}
}

// handleSelect acts on the highlighted item: play a song, open an album or
// artist, load a library playlist.
func (m *Model) handleSelect() tea.Cmd {
	switch m.state {
	case HomeView:
		if m.sectionIndex >= len(m.sections) {
			return nil
		}
		s := m.sections[m.sectionIndex]
		if len(s.artists) > 0 && m.selectedIndex < len(s.artists) {
			return m.loadArtistCmd(s.artists[m.selectedIndex].Name)
		}
		if m.selectedIndex < len(s.tracks) {
			track := s.tracks[m.selectedIndex]
			if s.albums {
				return m.loadAlbumCmd(track)
			}
			m.systems.Session.SendAction(structures.ReplaceQueueAction{Tracks: s.tracks, StartIndex: m.selectedIndex})
			m.systems.Session.SendAction(structures.PlayTrackAction{Track: track, QueueIndex: m.selectedIndex})
		}

	case SearchView:
		switch m.searchGroup {
		case 0:
			if m.selectedIndex < len(m.searchSongs) {
				// Clicking out of search abandons the old queue; the session
				// reseeds around this track.
				m.systems.Session.SendAction(structures.ReplaceQueueAction{})
				m.systems.Session.SendAction(structures.PlayTrackAction{Track: m.searchSongs[m.selectedIndex], QueueIndex: -1})
			}
		case 1:
			if m.selectedIndex < len(m.searchArtists) {
				return m.loadArtistCmd(m.searchArtists[m.selectedIndex].Name)
			}
		case 2:
			if m.selectedIndex < len(m.searchAlbums) {
				return m.loadAlbumCmd(m.searchAlbums[m.selectedIndex])
			}
		}

	case AlbumView:
		if m.selectedIndex < len(m.albumTracks) {
			m.systems.Session.SendAction(structures.PlayTrackAction{Track: m.albumTracks[m.selectedIndex], QueueIndex: m.selectedIndex})
		}

	case ArtistView:
		if m.selectedIndex < len(m.artistSongs) {
			m.systems.Session.SendAction(structures.PlayTrackAction{Track: m.artistSongs[m.selectedIndex], QueueIndex: m.selectedIndex})
		}
	}

	return nil
}

// loadHomeCmd seeds the home sections: recently played from the history
// recorder, then a few curated rows from the catalog.
func (m *Model) loadHomeCmd() []tea.Cmd {
	m.sections = []section{
		{title: "Recently Played"},
		{title: "Made For You"},
		{title: "Popular Artists"},
		{title: "Charts"},
		{title: "New Releases"},
		{title: "Popular Albums", albums: true},
	}
	m.sectionIndex = 0

	recent := m.systems.History.Recent(constants.HomeRowSize)
	m.sections[0].tracks = recent

	cmds := []tea.Cmd{}
	if len(recent) == 0 {
		cmds = append(cmds, m.loadSectionCmd(0, "Ed Sheeran", catalog.EntitySong, false))
	}
	cmds = append(cmds,
		m.loadSectionCmd(1, "Taylor Swift", catalog.EntitySong, false),
		m.loadSectionCmd(2, "The Weeknd", catalog.EntitySong, true),
		m.loadSectionCmd(3, "Billie Eilish", catalog.EntitySong, false),
		m.loadSectionCmd(4, "Dua Lipa", catalog.EntitySong, false),
		m.loadSectionCmd(5, "Drake", catalog.EntityAlbum, false),
	)
	return cmds
}

func (m *Model) loadSectionCmd(index int, term string, entity catalog.Entity, asArtists bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if asArtists {
			artists, err := m.systems.Catalog.SearchArtists(ctx, term, 8)
			if err != nil {
				return sectionLoadedMsg{index: index}
			}
			return sectionLoadedMsg{index: index, artists: artists}
		}

		tracks, err := m.systems.Catalog.Search(ctx, term, entity, constants.HomeRowSize)
		if err != nil {
			return sectionLoadedMsg{index: index}
		}
		return sectionLoadedMsg{index: index, tracks: tracks}
	}
}

func (m *Model) searchCmd(term string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		songs, _ := m.systems.Catalog.Search(ctx, term, catalog.EntitySong, 10)
		artists, _ := m.systems.Catalog.SearchArtists(ctx, term, 8)
		albums, _ := m.systems.Catalog.Search(ctx, term, catalog.EntityAlbum, 6)

		return searchDoneMsg{term: term, songs: songs, artists: artists, albums: albums}
	}
}

func (m *Model) loadAlbumCmd(album structures.Track) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		tracks, err := m.systems.Catalog.Lookup(ctx, album.CollectionID)
		if err != nil {
			return noticeMsg("Could not load album")
		}

		title := album.Album
		if title == "" {
			title = album.Title
		}
		return albumLoadedMsg{title: title, tracks: tracks}
	}
}

func (m *Model) loadArtistCmd(name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		songs, err := m.systems.Catalog.Search(ctx, name, catalog.EntitySong, 20)
		if err != nil {
			return noticeMsg("Could not load artist")
		}
		albums, _ := m.systems.Catalog.Search(ctx, name, catalog.EntityAlbum, 6)

		return artistLoadedMsg{name: name, songs: songs, albums: albums}
	}
}

func (m *Model) loadLibrary() {
	m.library = structures.Library{Playlists: []string{"Liked Songs", "My Playlist #1"}}

	raw, ok := m.systems.Store.GetState("library_data")
	if !ok {
		return
	}

	var lib structures.Library
	if err := json.Unmarshal([]byte(raw), &lib); err == nil && len(lib.Playlists) > 0 {
		m.library = lib
	}
}
