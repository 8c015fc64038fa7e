package player

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"

	"github.com/ayafuji/melodine/internal/logger"
)

// PreviewBackend plays short preview audio URLs through the system speaker.
// Previews are small (30 seconds), so the whole stream is buffered into
// memory before decoding; that keeps the decoder seekable without holding a
// network connection open for the duration of playback.
type PreviewBackend struct {
	mu                 sync.RWMutex
	httpClient         *http.Client
	streamer           beep.StreamSeekCloser
	ctrl               *beep.Ctrl
	volume             *effects.Volume
	format             beep.Format
	duration           time.Duration
	volumeLevel        float64
	speakerInitialized bool
	currentSampleRate  beep.SampleRate
}

// NewPreviewBackend creates the preview backend. The speaker is initialized
// lazily on the first load.
func NewPreviewBackend() *PreviewBackend {
	return &PreviewBackend{
		httpClient:  &http.Client{Timeout: 20 * time.Second},
		volumeLevel: 0.7,
	}
}

type memoryStream struct{ *bytes.Reader }

func (memoryStream) Close() error { return nil }

// Load fetches the preview URL and prepares it for playback, paused.
func (p *PreviewBackend) Load(ctx context.Context, ref string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch preview: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("preview fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read preview body: %w", err)
	}

	streamer, format, err := mp3.Decode(memoryStream{bytes.NewReader(data)})
	if err != nil {
		return fmt.Errorf("failed to decode preview: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer != nil {
		p.streamer.Close()
		p.streamer = nil
	}
	if p.speakerInitialized {
		speaker.Clear()
	}

	volume := &effects.Volume{
		Streamer: streamer,
		Base:     2,
		Volume:   dbVolume(p.volumeLevel),
		Silent:   p.volumeLevel <= 0,
	}
	ctrl := &beep.Ctrl{Streamer: volume, Paused: true}

	p.streamer = streamer
	p.ctrl = ctrl
	p.volume = volume
	p.format = format
	p.duration = format.SampleRate.D(streamer.Len())

	if !p.speakerInitialized || p.currentSampleRate != format.SampleRate {
		if p.speakerInitialized {
			speaker.Close()
		}
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			return fmt.Errorf("failed to initialize speaker: %w", err)
		}
		p.speakerInitialized = true
		p.currentSampleRate = format.SampleRate
	}

	speaker.Clear()
	speaker.Play(ctrl)

	logger.Debug("preview loaded, duration %v, sample rate %d", p.duration, format.SampleRate)
	return nil
}

// Play starts or resumes playback.
func (p *PreviewBackend) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl == nil {
		return fmt.Errorf("no preview loaded")
	}

	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

// Pause pauses playback.
func (p *PreviewBackend) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl == nil {
		return fmt.Errorf("no preview loaded")
	}

	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

// Stop detaches the current stream entirely.
func (p *PreviewBackend) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.speakerInitialized {
		speaker.Clear()
	}
	if p.streamer != nil {
		p.streamer.Close()
		p.streamer = nil
	}
	p.ctrl = nil
	p.volume = nil
	p.duration = 0
	return nil
}

// Seek moves playback to pos, clamped to the stream bounds.
func (p *PreviewBackend) Seek(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil {
		return fmt.Errorf("no preview loaded")
	}

	if pos < 0 {
		pos = 0
	}
	if pos > p.duration {
		pos = p.duration
	}

	sample := p.format.SampleRate.N(pos)
	if sample >= p.streamer.Len() {
		sample = p.streamer.Len() - 1
		if sample < 0 {
			sample = 0
		}
	}

	speaker.Lock()
	err := p.streamer.Seek(sample)
	speaker.Unlock()
	return err
}

// SetVolume sets the playback volume in [0, 1].
func (p *PreviewBackend) SetVolume(volume float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	p.volumeLevel = volume

	if p.volume != nil {
		speaker.Lock()
		p.volume.Silent = volume <= 0
		p.volume.Volume = dbVolume(volume)
		speaker.Unlock()
	}
	return nil
}

// Volume returns the playback volume in [0, 1].
func (p *PreviewBackend) Volume() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volumeLevel
}

// Position returns the current playback position.
func (p *PreviewBackend) Position() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.streamer == nil {
		return 0
	}

	speaker.Lock()
	sample := p.streamer.Position()
	speaker.Unlock()
	return p.format.SampleRate.D(sample)
}

// Duration returns the loaded stream's total length.
func (p *PreviewBackend) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.duration
}

// Close releases the speaker.
func (p *PreviewBackend) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer != nil {
		p.streamer.Close()
		p.streamer = nil
	}
	if p.speakerInitialized {
		speaker.Close()
		p.speakerInitialized = false
	}
	return nil
}

// dbVolume maps a linear [0, 1] level onto the decibel scale the volume
// effect expects, 1.0 mapping to 0 dB.
func dbVolume(volume float64) float64 {
	if volume >= 1 {
		return 0
	}
	return 20 * (volume - 1)
}
