package systems

import (
	"context"
	"sync"
	"time"

	"github.com/ayafuji/melodine/internal/catalog"
	"github.com/ayafuji/melodine/internal/constants"
	"github.com/ayafuji/melodine/internal/logger"
	"github.com/ayafuji/melodine/internal/player"
	"github.com/ayafuji/melodine/internal/structures"
)

// TrackSearcher is the slice of the catalog client the session needs for
// queue broadening.
type TrackSearcher interface {
	Search(ctx context.Context, term string, entity catalog.Entity, limit int) ([]structures.Track, error)
}

// SourceResolver resolves a track to a playable source. It never fails.
type SourceResolver interface {
	Resolve(ctx context.Context, track structures.Track) structures.Source
}

// PlayRecorder records played tracks.
type PlayRecorder interface {
	Record(track structures.Track)
}

// Notifier receives ephemeral user-facing notices. Implementations must not
// call back into the session synchronously.
type Notifier interface {
	Notify(message string)
}

// sourceResolvedMsg is the completion of an asynchronous resolution. gen ties
// it to the play request that started it: a completion whose generation no
// longer matches the session's is stale and discarded.
type sourceResolvedMsg struct {
	gen        uint64
	track      structures.Track
	source     structures.Source
	background bool
}

// queueSeededMsg is the completion of an asynchronous queue broadening. Like
// resolutions it carries the generation it started under; a completion for a
// superseded play request is discarded.
type queueSeededMsg struct {
	gen    uint64
	track  structures.Track
	tracks []structures.Track
}

// trackEndedMsg reports the preview backend reaching its natural end.
type trackEndedMsg struct{}

// Session owns what is currently loaded: the queue, the current track, the
// attached backend and the play/pause flag. All mutation is routed through
// its action channel; the view layer only sends actions and reads snapshots.
type Session struct {
	mu       sync.RWMutex
	cfg      *structures.Config
	searcher TrackSearcher
	resolver SourceResolver
	recorder PlayRecorder
	notifier Notifier

	preview player.Backend
	embed   player.Backend

	queue        Queue
	state        structures.SessionState
	current      *structures.Track
	activeSource structures.SourceKind
	active       player.Backend
	isPlaying    bool
	volume       float64

	// gen is bumped on every play request; in-flight resolutions carry the
	// generation they started under so stale results can be discarded.
	gen uint64

	actionChan chan structures.PlayerAction
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// NewSession creates a playback session.
func NewSession(cfg *structures.Config, searcher TrackSearcher, resolver SourceResolver,
	recorder PlayRecorder, preview, embed player.Backend) *Session {
	return &Session{
		cfg:        cfg,
		searcher:   searcher,
		resolver:   resolver,
		recorder:   recorder,
		preview:    preview,
		embed:      embed,
		state:      structures.StateIdle,
		volume:     cfg.DefaultVolume,
		actionChan: make(chan structures.PlayerAction, 100),
		stopChan:   make(chan struct{}),
	}
}

// SetNotifier sets the notification sink.
func (s *Session) SetNotifier(n Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// Start runs the session loops.
func (s *Session) Start() {
	go s.run()
	go s.updateLoop()
}

// Stop shuts the session down and detaches both backends.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopBackendsLocked()
}

// SendAction queues an action for the session. Never blocks; actions are
// dropped if the session is flooded.
func (s *Session) SendAction(action structures.PlayerAction) {
	select {
	case s.actionChan <- action:
	default:
	}
}

// GetState returns a snapshot of the session for rendering.
func (s *Session) GetState() structures.PlayerState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := structures.PlayerState{
		Queue:     s.queue.Tracks(),
		Index:     s.queue.Index(),
		State:     s.state,
		IsPlaying: s.isPlaying,
		Volume:    s.volume,
	}

	if s.current != nil {
		track := *s.current
		state.Current = &track
		state.Total = track.Duration()
	}

	// Only the preview backend reports real progress; the embed backend is
	// write-only, so the catalog duration stands in and position stays zero.
	if s.active == s.preview && s.active != nil {
		state.Position = s.preview.Position()
		if d := s.preview.Duration(); d > 0 {
			state.Total = d
		}
	}

	return state
}

func (s *Session) run() {
	for {
		select {
		case action := <-s.actionChan:
			s.handleAction(action)
		case <-s.stopChan:
			return
		}
	}
}

// updateLoop watches for the preview stream reaching its natural end. The
// embed backend has no end signal at all, so nothing is watched there.
func (s *Session) updateLoop() {
	ticker := time.NewTicker(constants.PlayerUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.RLock()
			ended := s.state == structures.StatePlayingPreview && s.isPlaying &&
				s.preview.Duration() > 0 &&
				s.preview.Position() >= s.preview.Duration()-constants.PlayerUpdateInterval/2
			s.mu.RUnlock()

			if ended {
				s.SendAction(trackEndedMsg{})
			}
		case <-s.stopChan:
			return
		}
	}
}

func (s *Session) handleAction(action structures.PlayerAction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch a := action.(type) {
	case structures.PlayTrackAction:
		s.playLocked(a.Track, a.QueueIndex)

	case structures.ReplaceQueueAction:
		s.queue.Replace(a.Tracks, a.StartIndex)

	case structures.NextAction:
		s.advanceLocked(Next, "No next track")

	case structures.PreviousAction:
		s.advanceLocked(Previous, "No previous track")

	case structures.PlayPauseAction:
		s.togglePlayPauseLocked()

	case structures.SeekAction:
		if s.active != nil {
			if err := s.active.Seek(a.Position); err != nil {
				logger.Debug("seek failed: %v", err)
			}
		}

	case structures.VolumeUpAction:
		s.setVolumeLocked(s.volume + constants.VolumeStep)

	case structures.VolumeDownAction:
		s.setVolumeLocked(s.volume - constants.VolumeStep)

	case structures.CleanupAction:
		s.stopBackendsLocked()
		s.queue.Replace(nil, 0)
		s.current = nil
		s.state = structures.StateIdle
		s.isPlaying = false

	case sourceResolvedMsg:
		s.handleResolvedLocked(a)

	case queueSeededMsg:
		s.handleSeededLocked(a)

	case trackEndedMsg:
		s.handleTrackEndedLocked()
	}
}

// playLocked is the playRequest transition. It validates the track, seeds or
// repositions the queue, supersedes any in-flight resolution, synchronously
// stops whichever backend is attached, and kicks off a fresh resolution.
func (s *Session) playLocked(track structures.Track, queueIndex int) {
	if !track.Playable() {
		s.notifyLocked("This track cannot be played")
		return
	}

	seed := false
	if queueIndex >= 0 {
		s.queue.Jump(queueIndex)
	} else if s.queue.Len() == 0 {
		// Singleton immediately; broadening happens off the action loop and
		// lands through the channel like a resolution.
		s.queue.Replace([]structures.Track{track}, 0)
		seed = true
	} else if i := s.queue.IndexOf(track); i >= 0 {
		s.queue.Jump(i)
	}

	// Supersede any in-flight resolution: its completion will carry an old
	// generation and be discarded on arrival.
	s.gen++
	s.stopBackendsLocked()

	current := track
	s.current = &current
	s.state = structures.StateLoading
	s.isPlaying = true // optimistic; resolution has not completed yet

	s.notifyLocked("Loading full version...")
	if seed {
		go s.seedAsync(s.gen, track)
	}
	go s.resolveAsync(s.gen, track, false)
}

// seedAsync broadens a single played track into a queue of songs by the same
// artist. It runs outside the session lock so a slow catalog never stalls the
// action loop or state snapshots; the result is posted back through the
// action channel. On any failure the queue silently stays the singleton.
func (s *Session) seedAsync(gen uint64, track structures.Track) {
	if s.searcher == nil || track.Artist == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.ResolveTimeout)
	defer cancel()

	results, err := s.searcher.Search(ctx, track.Artist, catalog.EntitySong, constants.SeedFetchLimit)
	if err != nil || len(results) == 0 {
		logger.Debug("queue broadening failed for %q: %v", track.Artist, err)
		return
	}

	select {
	case s.actionChan <- queueSeededMsg{gen: gen, track: track, tracks: results}:
	case <-s.stopChan:
	}
}

// handleSeededLocked installs a broadened queue, cursor on the played track.
// The played track stays in the queue even when the broadening search did not
// return it.
func (s *Session) handleSeededLocked(msg queueSeededMsg) {
	if msg.gen != s.gen {
		logger.Debug("discarding stale queue broadening for %q", msg.track.Artist)
		return
	}

	s.queue.Replace(msg.tracks, 0)
	if i := s.queue.IndexOf(msg.track); i >= 0 {
		s.queue.Jump(i)
		return
	}

	s.queue.Replace(append([]structures.Track{msg.track}, msg.tracks...), 0)
}

func (s *Session) resolveAsync(gen uint64, track structures.Track, background bool) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.ResolveTimeout)
	defer cancel()

	source := s.resolver.Resolve(ctx, track)

	select {
	case s.actionChan <- sourceResolvedMsg{gen: gen, track: track, source: source, background: background}:
	case <-s.stopChan:
	}
}

func (s *Session) handleResolvedLocked(msg sourceResolvedMsg) {
	if msg.gen != s.gen {
		logger.Debug("discarding stale resolution for %q", msg.track.Title)
		return
	}

	switch msg.source.Kind {
	case structures.SourceEmbed:
		// A background completion only upgrades an ongoing preview; anything
		// else (already on embed, paused, idle) is left alone.
		if msg.background && s.state != structures.StatePlayingPreview {
			return
		}
		s.attachEmbedLocked(msg)

	case structures.SourcePreview:
		if msg.background {
			return
		}
		s.attachPreviewLocked(msg)
	}
}

func (s *Session) attachEmbedLocked(msg sourceResolvedMsg) {
	s.stopBackendsLocked()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.embed.Load(ctx, msg.source.VideoID); err != nil {
		logger.Error("failed to attach embedded player: %v", err)
		s.notifyLocked("Error playing track. Please try another song.")
		s.resetIdleLocked()
		return
	}

	s.embed.SetVolume(s.volume)
	s.embed.Play()

	s.active = s.embed
	s.activeSource = structures.SourceEmbed
	s.state = structures.StatePlayingEmbed
	s.isPlaying = true

	if msg.background {
		s.notifyLocked("Switched to full version!")
	} else {
		s.notifyLocked("Playing full version!")
	}

	s.recordAsync(msg.track)
}

func (s *Session) attachPreviewLocked(msg sourceResolvedMsg) {
	if msg.source.URL == "" {
		s.notifyLocked("This track is not available for playback")
		s.resetIdleLocked()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.preview.Load(ctx, msg.source.URL); err != nil {
		logger.Error("failed to load preview: %v", err)
		s.notifyLocked("Error playing track. Please try another song.")
		s.resetIdleLocked()
		return
	}

	s.preview.SetVolume(s.volume)
	if err := s.preview.Play(); err != nil {
		logger.Error("failed to start preview: %v", err)
		s.notifyLocked("Error playing track. Please try another song.")
		s.resetIdleLocked()
		return
	}

	s.active = s.preview
	s.activeSource = structures.SourcePreview
	s.state = structures.StatePlayingPreview
	s.isPlaying = true

	s.recordAsync(msg.track)

	// Keep hunting for a full-length source in the background; if one turns
	// up while this track is still current, the session hot-switches.
	go s.resolveAsync(msg.gen, msg.track, true)
}

func (s *Session) handleTrackEndedLocked() {
	if s.state != structures.StatePlayingPreview {
		return
	}

	next, ok := s.queue.Advance(Next)
	if !ok {
		s.resetIdleLocked()
		return
	}

	// A single-entry queue wraps onto itself: replaying re-attempts embed
	// resolution, since preview fallbacks are never cached.
	s.playLocked(next, s.queue.Index())
}

func (s *Session) advanceLocked(dir Direction, emptyNotice string) {
	next, ok := s.queue.Advance(dir)
	if !ok {
		s.notifyLocked(emptyNotice)
		return
	}

	s.playLocked(next, s.queue.Index())
}

func (s *Session) togglePlayPauseLocked() {
	if s.active == nil {
		return
	}

	if s.isPlaying {
		// The embed backend cannot acknowledge; the flag is optimistic.
		if err := s.active.Pause(); err != nil {
			logger.Error("pause failed: %v", err)
			return
		}
		s.isPlaying = false
		s.state = structures.StatePaused
		return
	}

	if err := s.active.Play(); err != nil {
		logger.Error("resume failed: %v", err)
		return
	}
	s.isPlaying = true
	if s.activeSource == structures.SourceEmbed {
		s.state = structures.StatePlayingEmbed
	} else {
		s.state = structures.StatePlayingPreview
	}
}

func (s *Session) setVolumeLocked(volume float64) {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	s.volume = volume

	s.preview.SetVolume(volume)
	s.embed.SetVolume(volume)
}

// stopBackendsLocked detaches both backends. Always called before a new
// attach so the two sources can never play simultaneously.
func (s *Session) stopBackendsLocked() {
	if s.preview != nil {
		s.preview.Stop()
	}
	if s.embed != nil {
		s.embed.Stop()
	}
	s.active = nil
}

// resetIdleLocked puts the session into the safe paused-looking idle state.
func (s *Session) resetIdleLocked() {
	s.stopBackendsLocked()
	s.state = structures.StateIdle
	s.isPlaying = false
}

func (s *Session) notifyLocked(message string) {
	if s.notifier != nil {
		s.notifier.Notify(message)
	}
}

// recordAsync schedules a history update without blocking playback.
func (s *Session) recordAsync(track structures.Track) {
	if s.recorder == nil {
		return
	}
	go s.recorder.Record(track)
}
