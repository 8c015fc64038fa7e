package player

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayafuji/melodine/internal/logger"
)

// EmbedBackend plays full-length sources by driving a detached mpv process
// over its JSON IPC socket. Commands are fire-and-forget: nothing is ever
// read back from the socket, so pause/play state cannot be confirmed and
// callers keep an optimistic local flag instead. Position and duration are
// likewise unobservable and report zero.
type EmbedBackend struct {
	mu         sync.Mutex
	mpvPath    string
	cmd        *exec.Cmd
	conn       net.Conn
	socketPath string
}

// NewEmbedBackend creates the embed backend. mpvPath may be a bare binary
// name resolved through PATH.
func NewEmbedBackend(mpvPath string) *EmbedBackend {
	if mpvPath == "" {
		mpvPath = "mpv"
	}
	return &EmbedBackend{mpvPath: mpvPath}
}

// Available reports whether the external player binary can be found.
func (e *EmbedBackend) Available() bool {
	_, err := exec.LookPath(e.mpvPath)
	return err == nil
}

// mpvArgs builds the player invocation. The process starts paused so Load
// leaves the source attached but silent until Play.
func mpvArgs(socketPath, ref string) []string {
	return []string{
		"--no-video",
		"--really-quiet",
		"--no-terminal",
		"--pause",
		"--input-ipc-server=" + socketPath,
		"ytdl://" + ref,
	}
}

// Load starts a fresh player process for the given video ID, paused. Any
// previous process is torn down first.
func (e *EmbedBackend) Load(ctx context.Context, ref string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.teardownLocked()

	socketPath := filepath.Join(os.TempDir(), "melodine-mpv-"+uuid.NewString()+".sock")

	cmd := exec.Command(e.mpvPath, mpvArgs(socketPath, ref)...)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start embedded player: %w", err)
	}

	e.cmd = cmd
	e.socketPath = socketPath

	// Reap the process whenever it exits on its own.
	go cmd.Wait()

	logger.Debug("embedded player started for %s (pid %d)", ref, cmd.Process.Pid)
	return nil
}

// Play resumes playback. Best effort, no acknowledgment.
func (e *EmbedBackend) Play() error {
	e.send("set_property", "pause", false)
	return nil
}

// Pause pauses playback. Best effort, no acknowledgment.
func (e *EmbedBackend) Pause() error {
	e.send("set_property", "pause", true)
	return nil
}

// Stop tears down the player process.
func (e *EmbedBackend) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.teardownLocked()
	return nil
}

// Seek is not supported on the embed backend.
func (e *EmbedBackend) Seek(pos time.Duration) error { return nil }

// SetVolume adjusts the player volume. Best effort, no acknowledgment.
func (e *EmbedBackend) SetVolume(volume float64) error {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	e.send("set_property", "volume", volume*100)
	return nil
}

// Volume always reports zero; the real level is unobservable.
func (e *EmbedBackend) Volume() float64 { return 0 }

// Position always reports zero; the real position is unobservable.
func (e *EmbedBackend) Position() time.Duration { return 0 }

// Duration always reports zero; callers fall back to catalog metadata.
func (e *EmbedBackend) Duration() time.Duration { return 0 }

// Close tears down any running process.
func (e *EmbedBackend) Close() error {
	return e.Stop()
}

// send writes one IPC command, connecting lazily. Failures are logged and
// swallowed; the command channel carries no acknowledgments.
func (e *EmbedBackend) send(args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cmd == nil {
		return
	}

	if e.conn == nil {
		conn, err := net.DialTimeout("unix", e.socketPath, time.Second)
		if err != nil {
			logger.Debug("embedded player socket not ready: %v", err)
			return
		}
		e.conn = conn
	}

	payload, err := json.Marshal(map[string]any{"command": args})
	if err != nil {
		return
	}

	if _, err := e.conn.Write(append(payload, '\n')); err != nil {
		logger.Debug("embedded player command dropped: %v", err)
		e.conn.Close()
		e.conn = nil
	}
}

func (e *EmbedBackend) teardownLocked() {
	if e.conn != nil {
		// Polite quit first; the kill below covers a dead socket.
		payload, _ := json.Marshal(map[string]any{"command": []any{"quit"}})
		e.conn.Write(append(payload, '\n'))
		e.conn.Close()
		e.conn = nil
	}

	if e.cmd != nil && e.cmd.Process != nil {
		e.cmd.Process.Kill()
	}
	e.cmd = nil

	if e.socketPath != "" {
		os.Remove(e.socketPath)
		e.socketPath = ""
	}
}
