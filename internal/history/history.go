package history

import (
	"encoding/json"
	"sync"

	"github.com/ayafuji/melodine/internal/constants"
	"github.com/ayafuji/melodine/internal/logger"
	"github.com/ayafuji/melodine/internal/store"
	"github.com/ayafuji/melodine/internal/structures"
)

const stateKey = "recently_played"

// Recorder maintains the bounded, deduplicated, most-recent-first log of
// played tracks, persisted to the store after every play.
type Recorder struct {
	mu      sync.Mutex
	store   store.Store
	entries []structures.Track
}

// NewRecorder creates a recorder and loads the persisted list. Corrupt or
// missing storage yields an empty history, never an error.
func NewRecorder(st store.Store) *Recorder {
	r := &Recorder{store: st}
	r.load()
	return r
}

func (r *Recorder) load() {
	raw, ok := r.store.GetState(stateKey)
	if !ok {
		return
	}

	var entries []structures.Track
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		logger.Warn("discarding corrupt play history: %v", err)
		return
	}

	if len(entries) > constants.HistoryLimit {
		entries = entries[:constants.HistoryLimit]
	}
	r.entries = entries
}

// Record moves the track to the front of the history, dropping any existing
// entry with the same identity, truncates to the limit, and persists.
func (r *Recorder) Record(track structures.Track) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := track.Key()
	for i, t := range r.entries {
		if t.Key() == key {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}

	r.entries = append([]structures.Track{track}, r.entries...)
	if len(r.entries) > constants.HistoryLimit {
		r.entries = r.entries[:constants.HistoryLimit]
	}

	data, err := json.Marshal(r.entries)
	if err != nil {
		logger.Error("failed to encode play history: %v", err)
		return
	}
	if err := r.store.SetState(stateKey, string(data)); err != nil {
		logger.Error("failed to persist play history: %v", err)
	}
}

// Recent returns up to limit entries, most recent first. A non-positive
// limit returns the whole history.
func (r *Recorder) Recent(limit int) []structures.Track {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.entries)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]structures.Track, n)
	copy(out, r.entries[:n])
	return out
}

// Len returns the number of recorded tracks.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
