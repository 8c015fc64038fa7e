// Package player provides the two playback backends the session drives: a
// direct audio backend for short preview streams and an embedded external
// player for full-length sources. Only one backend may be attached at a time;
// the session stops the previous one before attaching the next.
package player

import (
	"context"
	"time"
)

// Backend is a playback backend. Load attaches a source reference (a preview
// URL or an embed video ID depending on the backend) and leaves it paused;
// Play starts it.
//
// Backends differ in observability: the preview backend reports real
// position/duration, while the embed backend is driven over a fire-and-forget
// command channel and reports nothing back. Callers must treat its play/pause
// state as optimistic.
type Backend interface {
	Load(ctx context.Context, ref string) error
	Play() error
	Pause() error
	Stop() error
	Seek(pos time.Duration) error
	SetVolume(volume float64) error
	Volume() float64
	Position() time.Duration
	Duration() time.Duration
	Close() error
}
