package systems

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ayafuji/melodine/internal/catalog"
	"github.com/ayafuji/melodine/internal/config"
	"github.com/ayafuji/melodine/internal/structures"
)

type fakeBackend struct {
	mu      sync.Mutex
	loads   []string
	loadErr error
	playing bool
	stops   int
	volume  float64

	position time.Duration
	duration time.Duration
}

func (b *fakeBackend) Load(_ context.Context, ref string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loadErr != nil {
		return b.loadErr
	}
	b.loads = append(b.loads, ref)
	return nil
}

func (b *fakeBackend) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playing = true
	return nil
}

func (b *fakeBackend) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playing = false
	return nil
}

func (b *fakeBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playing = false
	b.stops++
	return nil
}

func (b *fakeBackend) Seek(pos time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = pos
	return nil
}

func (b *fakeBackend) SetVolume(v float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = v
	return nil
}

func (b *fakeBackend) Volume() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.volume
}

func (b *fakeBackend) Position() time.Duration { return b.position }
func (b *fakeBackend) Duration() time.Duration { return b.duration }
func (b *fakeBackend) Close() error            { return nil }

func (b *fakeBackend) loadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.loads)
}

type fakeSearcher struct {
	mu      sync.Mutex
	results []structures.Track
	err     error
	calls   int

	// gate, when set, blocks Search until closed.
	gate chan struct{}
}

func (f *fakeSearcher) Search(context.Context, string, catalog.Entity, int) ([]structures.Track, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results, f.err
}

type fakeResolver struct {
	source structures.Source
}

func (f *fakeResolver) Resolve(context.Context, structures.Track) structures.Source {
	return f.source
}

type fakeRecorder struct {
	mu     sync.Mutex
	tracks []structures.Track
}

func (f *fakeRecorder) Record(track structures.Track) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks = append(f.tracks, track)
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Notify(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
}

func (f *fakeNotifier) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1]
}

type sessionFixture struct {
	session  *Session
	preview  *fakeBackend
	embed    *fakeBackend
	searcher *fakeSearcher
	notifier *fakeNotifier
	recorder *fakeRecorder
}

// newFixture builds a session whose loops are not running; tests drive
// handleAction directly so every transition is synchronous and deterministic.
func newFixture(resolved structures.Source) *sessionFixture {
	f := &sessionFixture{
		preview:  &fakeBackend{},
		embed:    &fakeBackend{},
		searcher: &fakeSearcher{},
		notifier: &fakeNotifier{},
		recorder: &fakeRecorder{},
	}
	f.session = NewSession(config.Default(), f.searcher, &fakeResolver{source: resolved},
		f.recorder, f.preview, f.embed)
	f.session.SetNotifier(f.notifier)
	return f
}

func track(id int64, title, artist string) structures.Track {
	return structures.Track{TrackID: id, Title: title, Artist: artist, PreviewURL: "http://x/p.m4a", DurationMS: 30000}
}

func TestPlayRejectsUnplayableTrack(t *testing.T) {
	f := newFixture(structures.Source{Kind: structures.SourcePreview})

	f.session.handleAction(structures.PlayTrackAction{Track: structures.Track{}, QueueIndex: -1})

	state := f.session.GetState()
	if state.State != structures.StateIdle {
		t.Errorf("unplayable track must not change state, got %v", state.State)
	}
	if len(state.Queue) != 0 {
		t.Error("unplayable track must not touch the queue")
	}
	if f.notifier.last() == "" {
		t.Error("expected a notice for the rejected track")
	}
}

func TestPlaySeedsQueueAroundSingleTrack(t *testing.T) {
	target := track(3, "Target", "Artist")
	f := newFixture(structures.Source{Kind: structures.SourcePreview, URL: target.PreviewURL})
	results := []structures.Track{
		track(1, "First", "Artist"),
		track(2, "Second", "Artist"),
		target,
		track(4, "Fourth", "Artist"),
	}

	f.session.handleAction(structures.PlayTrackAction{Track: target, QueueIndex: -1})

	// The queue is a singleton until the broadening completion lands.
	state := f.session.GetState()
	if len(state.Queue) != 1 || state.Index != 0 {
		t.Fatalf("expected singleton before broadening, got len=%d index=%d", len(state.Queue), state.Index)
	}
	if state.State != structures.StateLoading {
		t.Errorf("expected loading state, got %v", state.State)
	}
	if !state.IsPlaying {
		t.Error("play flag should be optimistically set while loading")
	}

	f.session.handleAction(queueSeededMsg{gen: f.session.gen, track: target, tracks: results})

	state = f.session.GetState()
	if len(state.Queue) != 4 {
		t.Fatalf("expected broadened queue of 4, got %d", len(state.Queue))
	}
	if state.Index != 2 {
		t.Errorf("cursor should sit on the played track, got index %d", state.Index)
	}
}

func TestPlaySeedDegradesToSingletonOnSearchFailure(t *testing.T) {
	target := track(1, "Target", "Artist")
	f := newFixture(structures.Source{Kind: structures.SourcePreview, URL: target.PreviewURL})
	f.searcher.err = context.DeadlineExceeded

	f.session.handleAction(structures.PlayTrackAction{Track: target, QueueIndex: -1})

	// Run the broadening inline: a failed search posts no completion.
	f.session.seedAsync(f.session.gen, target)
	select {
	case msg := <-f.session.actionChan:
		if _, ok := msg.(queueSeededMsg); ok {
			t.Fatal("failed broadening must not post a completion")
		}
	default:
	}

	state := f.session.GetState()
	if len(state.Queue) != 1 || state.Index != 0 {
		t.Errorf("expected singleton queue, got len=%d index=%d", len(state.Queue), state.Index)
	}
}

func TestQueueBroadeningDoesNotBlockSession(t *testing.T) {
	target := track(3, "Target", "Artist")
	f := newFixture(structures.Source{Kind: structures.SourcePreview, URL: target.PreviewURL})

	gate := make(chan struct{})
	f.searcher.gate = gate
	f.searcher.results = []structures.Track{track(1, "First", "Artist"), target}

	// The play request must return while the broadening search is still
	// hanging; state snapshots must stay available throughout.
	done := make(chan struct{})
	go func() {
		f.session.handleAction(structures.PlayTrackAction{Track: target, QueueIndex: -1})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("play request blocked on the broadening search")
	}

	state := f.session.GetState()
	if len(state.Queue) != 1 {
		t.Fatalf("expected singleton while broadening is in flight, got %d", len(state.Queue))
	}

	close(gate)

	// The completion arrives through the action channel, alongside the
	// resolution the play request also started.
	deadline := time.Now().Add(time.Second)
	seeded := false
	for !seeded {
		if time.Now().After(deadline) {
			t.Fatal("expected a broadening completion")
		}
		select {
		case msg := <-f.session.actionChan:
			if _, ok := msg.(queueSeededMsg); ok {
				seeded = true
			}
			f.session.handleAction(msg)
		case <-time.After(10 * time.Millisecond):
		}
	}

	state = f.session.GetState()
	if len(state.Queue) != 2 || state.Index != 1 {
		t.Errorf("expected broadened queue with cursor on the played track, got len=%d index=%d", len(state.Queue), state.Index)
	}
}

func TestStaleQueueBroadeningDiscarded(t *testing.T) {
	a := track(1, "A", "Artist")
	b := track(2, "B", "Other")
	f := newFixture(structures.Source{Kind: structures.SourcePreview, URL: a.PreviewURL})

	f.session.handleAction(structures.PlayTrackAction{Track: a, QueueIndex: -1})
	staleGen := f.session.gen

	// A new play request supersedes the broadening before it completes.
	f.session.handleAction(structures.ReplaceQueueAction{})
	f.session.handleAction(structures.PlayTrackAction{Track: b, QueueIndex: -1})

	f.session.handleAction(queueSeededMsg{
		gen:    staleGen,
		track:  a,
		tracks: []structures.Track{a, track(3, "C", "Artist")},
	})

	state := f.session.GetState()
	if len(state.Queue) != 1 || state.Queue[0].Title != "B" {
		t.Errorf("stale broadening must not replace the queue, got %+v", state.Queue)
	}
}

func TestSeedKeepsPlayedTrackWhenMissingFromResults(t *testing.T) {
	target := track(9, "Target", "Artist")
	f := newFixture(structures.Source{Kind: structures.SourcePreview, URL: target.PreviewURL})

	f.session.handleAction(structures.PlayTrackAction{Track: target, QueueIndex: -1})
	f.session.handleAction(queueSeededMsg{
		gen:   f.session.gen,
		track: target,
		tracks: []structures.Track{
			track(1, "First", "Artist"),
			track(2, "Second", "Artist"),
		},
	})

	state := f.session.GetState()
	if len(state.Queue) != 3 {
		t.Fatalf("played track must stay in the queue, got len=%d", len(state.Queue))
	}
	if state.Index != 0 || state.Queue[0].Title != "Target" {
		t.Errorf("cursor should stay on the played track, got index %d (%q)", state.Index, state.Queue[state.Index].Title)
	}
}

func TestStaleResolutionIsDiscarded(t *testing.T) {
	a := track(1, "A", "Artist")
	b := track(2, "B", "Artist")
	f := newFixture(structures.Source{Kind: structures.SourcePreview, URL: a.PreviewURL})

	f.session.handleAction(structures.ReplaceQueueAction{Tracks: []structures.Track{a, b}})
	f.session.handleAction(structures.PlayTrackAction{Track: a, QueueIndex: 0})
	staleGen := f.session.gen
	f.session.handleAction(structures.PlayTrackAction{Track: b, QueueIndex: 1})

	// The first request's resolution arrives after the second play. It must
	// not attach anything.
	f.session.handleAction(sourceResolvedMsg{
		gen:    staleGen,
		track:  a,
		source: structures.Source{Kind: structures.SourceEmbed, VideoID: "stale945678"},
	})

	if f.embed.loadCount() != 0 {
		t.Error("stale embed resolution must not load the backend")
	}
	state := f.session.GetState()
	if state.Current == nil || state.Current.Title != "B" {
		t.Error("current track must remain the newer request")
	}

	// The live generation still attaches.
	f.session.handleAction(sourceResolvedMsg{
		gen:    f.session.gen,
		track:  b,
		source: structures.Source{Kind: structures.SourceEmbed, VideoID: "live4567890"},
	})
	if f.embed.loadCount() != 1 {
		t.Error("current-generation resolution should attach the embed backend")
	}
	if got := f.session.GetState().State; got != structures.StatePlayingEmbed {
		t.Errorf("expected embed playback, got %v", got)
	}
}

func TestPreviewAttachAndHotSwitch(t *testing.T) {
	a := track(1, "A", "Artist")
	f := newFixture(structures.Source{Kind: structures.SourcePreview, URL: a.PreviewURL})

	f.session.handleAction(structures.PlayTrackAction{Track: a, QueueIndex: -1})
	f.session.handleAction(sourceResolvedMsg{
		gen:    f.session.gen,
		track:  a,
		source: structures.Source{Kind: structures.SourcePreview, URL: a.PreviewURL},
	})

	if got := f.session.GetState().State; got != structures.StatePlayingPreview {
		t.Fatalf("expected preview playback, got %v", got)
	}
	if f.preview.loadCount() != 1 {
		t.Fatal("preview backend should have been loaded")
	}

	// A background embed arrives while the preview is playing: hot switch.
	f.session.handleAction(sourceResolvedMsg{
		gen:        f.session.gen,
		track:      a,
		source:     structures.Source{Kind: structures.SourceEmbed, VideoID: "abc12345678"},
		background: true,
	})

	state := f.session.GetState()
	if state.State != structures.StatePlayingEmbed {
		t.Errorf("expected hot switch to embed, got %v", state.State)
	}
	if f.embed.loadCount() != 1 {
		t.Error("embed backend should have been loaded for the switch")
	}
	if f.preview.stops == 0 {
		t.Error("preview must be stopped before the embed attaches")
	}
}

func TestBackgroundEmbedIgnoredWhenNotOnPreview(t *testing.T) {
	a := track(1, "A", "Artist")
	f := newFixture(structures.Source{Kind: structures.SourcePreview, URL: a.PreviewURL})

	f.session.handleAction(structures.PlayTrackAction{Track: a, QueueIndex: -1})
	f.session.handleAction(sourceResolvedMsg{
		gen:    f.session.gen,
		track:  a,
		source: structures.Source{Kind: structures.SourcePreview, URL: a.PreviewURL},
	})
	f.session.handleAction(structures.PlayPauseAction{}) // now paused

	f.session.handleAction(sourceResolvedMsg{
		gen:        f.session.gen,
		track:      a,
		source:     structures.Source{Kind: structures.SourceEmbed, VideoID: "abc12345678"},
		background: true,
	})

	if f.embed.loadCount() != 0 {
		t.Error("background embed must not interrupt a paused session")
	}
	if got := f.session.GetState().State; got != structures.StatePaused {
		t.Errorf("expected paused, got %v", got)
	}
}

func TestPreviewWithoutURLResetsIdle(t *testing.T) {
	a := structures.Track{TrackID: 1, Title: "A", Artist: "Artist"} // no preview URL
	f := newFixture(structures.Source{Kind: structures.SourcePreview})

	f.session.handleAction(structures.PlayTrackAction{Track: a, QueueIndex: -1})
	f.session.handleAction(sourceResolvedMsg{
		gen:    f.session.gen,
		track:  a,
		source: structures.Source{Kind: structures.SourcePreview},
	})

	state := f.session.GetState()
	if state.State != structures.StateIdle || state.IsPlaying {
		t.Errorf("expected idle after unavailable track, got %v playing=%v", state.State, state.IsPlaying)
	}
	if f.notifier.last() != "This track is not available for playback" {
		t.Errorf("unexpected notice %q", f.notifier.last())
	}
}

func TestNaturalEndAdvancesWithWraparound(t *testing.T) {
	a := track(1, "A", "Artist")
	b := track(2, "B", "Artist")
	f := newFixture(structures.Source{Kind: structures.SourcePreview, URL: a.PreviewURL})

	f.session.handleAction(structures.ReplaceQueueAction{Tracks: []structures.Track{a, b}, StartIndex: 1})
	f.session.handleAction(structures.PlayTrackAction{Track: b, QueueIndex: 1})
	f.session.handleAction(sourceResolvedMsg{
		gen:    f.session.gen,
		track:  b,
		source: structures.Source{Kind: structures.SourcePreview, URL: b.PreviewURL},
	})

	// Last track ends: playback wraps to the first.
	f.session.handleAction(trackEndedMsg{})

	state := f.session.GetState()
	if state.Index != 0 {
		t.Errorf("expected wraparound to index 0, got %d", state.Index)
	}
	if state.Current == nil || state.Current.Title != "A" {
		t.Error("expected the first track to be loading")
	}
	if state.State != structures.StateLoading {
		t.Errorf("expected loading, got %v", state.State)
	}
}

func TestNaturalEndIgnoredOutsidePreviewPlayback(t *testing.T) {
	f := newFixture(structures.Source{Kind: structures.SourcePreview})

	f.session.handleAction(trackEndedMsg{})

	if got := f.session.GetState().State; got != structures.StateIdle {
		t.Errorf("end signal while idle must be a no-op, got %v", got)
	}
}

func TestNextOnEmptyQueueNotifies(t *testing.T) {
	f := newFixture(structures.Source{Kind: structures.SourcePreview})

	f.session.handleAction(structures.NextAction{})
	if f.notifier.last() != "No next track" {
		t.Errorf("unexpected notice %q", f.notifier.last())
	}

	f.session.handleAction(structures.PreviousAction{})
	if f.notifier.last() != "No previous track" {
		t.Errorf("unexpected notice %q", f.notifier.last())
	}
}

func TestVolumeClampsAndPropagates(t *testing.T) {
	f := newFixture(structures.Source{Kind: structures.SourcePreview})

	for i := 0; i < 30; i++ {
		f.session.handleAction(structures.VolumeUpAction{})
	}
	if got := f.session.GetState().Volume; got != 1.0 {
		t.Errorf("volume should clamp at 1.0, got %v", got)
	}
	if f.preview.Volume() != 1.0 || f.embed.Volume() != 1.0 {
		t.Error("volume should propagate to both backends")
	}

	for i := 0; i < 40; i++ {
		f.session.handleAction(structures.VolumeDownAction{})
	}
	if got := f.session.GetState().Volume; got != 0.0 {
		t.Errorf("volume should clamp at 0.0, got %v", got)
	}
}

func TestPlayPauseToggleOnEmbedIsOptimistic(t *testing.T) {
	a := track(1, "A", "Artist")
	f := newFixture(structures.Source{Kind: structures.SourcePreview, URL: a.PreviewURL})

	f.session.handleAction(structures.PlayTrackAction{Track: a, QueueIndex: -1})
	f.session.handleAction(sourceResolvedMsg{
		gen:    f.session.gen,
		track:  a,
		source: structures.Source{Kind: structures.SourceEmbed, VideoID: "abc12345678"},
	})

	f.session.handleAction(structures.PlayPauseAction{})
	state := f.session.GetState()
	if state.IsPlaying || state.State != structures.StatePaused {
		t.Errorf("expected paused, got %v playing=%v", state.State, state.IsPlaying)
	}

	f.session.handleAction(structures.PlayPauseAction{})
	state = f.session.GetState()
	if !state.IsPlaying || state.State != structures.StatePlayingEmbed {
		t.Errorf("expected embed playback resumed, got %v playing=%v", state.State, state.IsPlaying)
	}
}

func TestEmbedAttachRecordsHistory(t *testing.T) {
	a := track(1, "A", "Artist")
	f := newFixture(structures.Source{Kind: structures.SourcePreview, URL: a.PreviewURL})

	f.session.handleAction(structures.PlayTrackAction{Track: a, QueueIndex: -1})
	f.session.handleAction(sourceResolvedMsg{
		gen:    f.session.gen,
		track:  a,
		source: structures.Source{Kind: structures.SourceEmbed, VideoID: "abc12345678"},
	})

	// Recording is asynchronous.
	deadline := time.Now().Add(time.Second)
	for {
		f.recorder.mu.Lock()
		n := len(f.recorder.tracks)
		f.recorder.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected the played track to be recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCleanupResetsEverything(t *testing.T) {
	a := track(1, "A", "Artist")
	f := newFixture(structures.Source{Kind: structures.SourcePreview, URL: a.PreviewURL})

	f.session.handleAction(structures.PlayTrackAction{Track: a, QueueIndex: -1})
	f.session.handleAction(structures.CleanupAction{})

	state := f.session.GetState()
	if state.State != structures.StateIdle || state.Current != nil || len(state.Queue) != 0 {
		t.Errorf("cleanup should empty the session, got %+v", state)
	}
}
