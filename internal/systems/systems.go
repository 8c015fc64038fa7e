package systems

import (
	"github.com/ayafuji/melodine/internal/auth"
	"github.com/ayafuji/melodine/internal/catalog"
	"github.com/ayafuji/melodine/internal/history"
	"github.com/ayafuji/melodine/internal/player"
	"github.com/ayafuji/melodine/internal/resolver"
	"github.com/ayafuji/melodine/internal/store"
	"github.com/ayafuji/melodine/internal/structures"
)

// Systems contains all the core systems of the application.
type Systems struct {
	Config  *structures.Config
	Store   store.Store
	Catalog *catalog.Client
	History *history.Recorder
	Auth    *auth.Manager
	Session *Session

	preview *player.PreviewBackend
	embed   *player.EmbedBackend
}

// New wires up the application systems.
func New(cfg *structures.Config, st store.Store) *Systems {
	cat := catalog.New(cfg.CatalogBaseURL)
	res := resolver.New(cfg.ProxyBaseURL)
	hist := history.NewRecorder(st)
	preview := player.NewPreviewBackend()
	embed := player.NewEmbedBackend(cfg.MpvPath)

	return &Systems{
		Config:  cfg,
		Store:   st,
		Catalog: cat,
		History: hist,
		Auth:    auth.NewManager(st),
		Session: NewSession(cfg, cat, res, hist, preview, embed),
		preview: preview,
		embed:   embed,
	}
}

// EmbedAvailable reports whether the external embedded player binary exists.
// Without it the client still runs on previews alone.
func (s *Systems) EmbedAvailable() bool {
	return s.embed.Available()
}

// Start starts the session loops.
func (s *Systems) Start() error {
	s.Session.Start()
	return nil
}

// Stop stops everything and releases the audio device.
func (s *Systems) Stop() error {
	s.Session.Stop()
	s.preview.Close()
	s.embed.Close()
	return nil
}
