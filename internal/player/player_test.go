package player

import (
	"context"
	"slices"
	"testing"
)

func TestDBVolume(t *testing.T) {
	cases := []struct {
		level float64
		want  float64
	}{
		{1.0, 0},
		{1.5, 0}, // over-unity clamps to 0 dB
		{0.5, -10},
		{0.0, -20},
	}

	for _, tc := range cases {
		if got := dbVolume(tc.level); got != tc.want {
			t.Errorf("dbVolume(%v) = %v, want %v", tc.level, got, tc.want)
		}
	}
}

func TestMpvArgsStartPaused(t *testing.T) {
	args := mpvArgs("/tmp/s.sock", "abc12345678")

	// Load must leave the source paused; Play starts it, per the Backend
	// contract.
	if !slices.Contains(args, "--pause") {
		t.Error("player process must start paused")
	}
	if !slices.Contains(args, "ytdl://abc12345678") {
		t.Errorf("expected the video reference in the args, got %v", args)
	}
	if !slices.Contains(args, "--input-ipc-server=/tmp/s.sock") {
		t.Errorf("expected the IPC socket in the args, got %v", args)
	}
}

func TestEmbedBackendUnavailableBinary(t *testing.T) {
	e := NewEmbedBackend("definitely-not-a-real-binary-mpv")

	if e.Available() {
		t.Error("nonexistent binary should report unavailable")
	}
	if err := e.Load(context.Background(), "abc12345678"); err == nil {
		e.Stop()
		t.Error("loading with a missing binary should fail")
	}
}

func TestEmbedBackendCommandsWithoutProcessAreNoOps(t *testing.T) {
	e := NewEmbedBackend("mpv")

	// No process running: every command must be a silent no-op.
	if err := e.Play(); err != nil {
		t.Errorf("play: %v", err)
	}
	if err := e.Pause(); err != nil {
		t.Errorf("pause: %v", err)
	}
	if err := e.SetVolume(0.5); err != nil {
		t.Errorf("set volume: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Errorf("stop: %v", err)
	}
}
