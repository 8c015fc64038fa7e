package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ayafuji/melodine/internal/config"
	"github.com/ayafuji/melodine/internal/logger"
	"github.com/ayafuji/melodine/internal/store"
	"github.com/ayafuji/melodine/internal/systems"
	"github.com/ayafuji/melodine/internal/ui"
)

var version = "0.1.0"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	showFiles := flag.Bool("files", false, "print config and data paths and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *showVersion {
		fmt.Printf("melodine %s\n", version)
		return
	}

	configDir, dataDir, err := appDirs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate app directories: %v\n", err)
		os.Exit(1)
	}

	configPath := filepath.Join(configDir, "config.toml")
	dbPath := filepath.Join(dataDir, "melodine.db")
	logPath := filepath.Join(dataDir, "melodine.log")

	if *showFiles {
		fmt.Printf("config: %s\ndatabase: %s\nlog: %s\n", configPath, dbPath, logPath)
		return
	}

	level := logger.INFO
	if *debug {
		level = logger.DEBUG
	}
	if err := logger.Init(logPath, level); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	cfg, err := config.Load(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("config load failed, using defaults: %v", err)
		}
		cfg = config.Default()
		if err := config.Save(cfg, configPath); err != nil {
			logger.Warn("could not write default config: %v", err)
		}
	}

	st, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	sys := systems.New(cfg, st)
	if !sys.EmbedAvailable() {
		logger.Warn("mpv not found in PATH, full-length playback disabled")
		fmt.Fprintln(os.Stderr, "warning: mpv not found, only 30-second previews will play")
	}

	if err := sys.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}
	defer sys.Stop()

	logger.Info("melodine %s starting", version)

	if err := ui.Run(sys, cfg); err != nil {
		logger.Error("ui exited with error: %v", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// appDirs resolves the XDG config and data directories, creating them when
// missing.
func appDirs() (configDir, dataDir string, err error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", "", err
	}
	configDir = filepath.Join(base, "melodine")

	dataBase := os.Getenv("XDG_DATA_HOME")
	if dataBase == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		dataBase = filepath.Join(home, ".local", "share")
	}
	dataDir = filepath.Join(dataBase, "melodine")

	for _, dir := range []string{configDir, dataDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", "", err
		}
	}

	return configDir, dataDir, nil
}
