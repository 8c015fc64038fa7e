package systems

import (
	"github.com/ayafuji/melodine/internal/structures"
)

// Direction selects which way Advance moves the cursor.
type Direction int

const (
	Next Direction = iota
	Previous
)

// Queue is the ordered sequence of tracks being played through, with a
// cursor into it. It is owned and mutated exclusively by the session; the
// view layer only ever requests replacements.
type Queue struct {
	tracks []structures.Track
	index  int
}

// Replace atomically swaps the queue contents and cursor. The cursor is
// clamped into [0, len); an empty replacement leaves the queue inactive.
func (q *Queue) Replace(tracks []structures.Track, startIndex int) {
	q.tracks = make([]structures.Track, len(tracks))
	copy(q.tracks, tracks)

	if startIndex < 0 || startIndex >= len(q.tracks) {
		startIndex = 0
	}
	q.index = startIndex
}

// Advance moves the cursor one step with wraparound: next past the end
// returns to the first track, previous before the start jumps to the last.
// It reports false when the queue is empty.
func (q *Queue) Advance(dir Direction) (structures.Track, bool) {
	if len(q.tracks) == 0 {
		return structures.Track{}, false
	}

	switch dir {
	case Next:
		q.index++
		if q.index >= len(q.tracks) {
			q.index = 0
		}
	case Previous:
		q.index--
		if q.index < 0 {
			q.index = len(q.tracks) - 1
		}
	}

	return q.tracks[q.index], true
}

// Jump moves the cursor to i when in range.
func (q *Queue) Jump(i int) bool {
	if i < 0 || i >= len(q.tracks) {
		return false
	}
	q.index = i
	return true
}

// Current returns the track under the cursor.
func (q *Queue) Current() (structures.Track, bool) {
	if len(q.tracks) == 0 {
		return structures.Track{}, false
	}
	return q.tracks[q.index], true
}

// IndexOf locates a track by identifier, falling back to a title match when
// no identifier matches. Returns -1 when neither does.
func (q *Queue) IndexOf(track structures.Track) int {
	if track.TrackID != 0 {
		for i, t := range q.tracks {
			if t.TrackID == track.TrackID {
				return i
			}
		}
	}

	for i, t := range q.tracks {
		if t.Title == track.Title {
			return i
		}
	}

	return -1
}

// Len returns the queue length.
func (q *Queue) Len() int { return len(q.tracks) }

// Index returns the cursor position. Meaningless when the queue is empty.
func (q *Queue) Index() int { return q.index }

// Tracks returns a copy of the queue contents.
func (q *Queue) Tracks() []structures.Track {
	out := make([]structures.Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}
