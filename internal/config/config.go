package config

import (
	"os"

	"github.com/ayafuji/melodine/internal/structures"
	"github.com/pelletier/go-toml/v2"
)

// Load loads the configuration from a TOML file.
func Load(path string) (*structures.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a TOML file.
func Save(cfg *structures.Config, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Default returns the default configuration.
func Default() *structures.Config {
	return &structures.Config{
		CatalogBaseURL: "https://itunes.apple.com",
		ProxyBaseURL:   "https://api.allorigins.win",
		SearchLimit:    10,
		DefaultVolume:  0.7,
		SeekSeconds:    5,
		MpvPath:        "mpv",
		Theme: structures.Theme{
			Foreground:      "#c0caf5",
			Selected:        "#7aa2f7",
			Playing:         "#9ece6a",
			Border:          "#3b4261",
			Notice:          "#e0af68",
			ProgressBar:     "#565f89",
			ProgressBarFill: "#7aa2f7",
		},
		KeyBindings: structures.KeyBindings{
			PlayPause:    "space",
			Quit:         "ctrl+d",
			NextTrack:    "n",
			PrevTrack:    "p",
			VolumeUp:     []string{"+", "="},
			VolumeDown:   []string{"-", "_"},
			SeekForward:  "right",
			SeekBackward: "left",

			MoveUp:   []string{"up", "k"},
			MoveDown: []string{"down", "j"},
			Select:   []string{"enter", "l"},
			Back:     []string{"esc", "backspace"},

			Search:  "f",
			Home:    "h",
			Library: "y",
		},
	}
}
