package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/lurk-reader/lurk/internal/api"
	"github.com/lurk-reader/lurk/internal/cache"
	"github.com/lurk-reader/lurk/internal/config"
	"github.com/lurk-reader/lurk/internal/ui"
	"github.com/lurk-reader/lurk/internal/ui/messages"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()

	category := flag.StringP("category", "t", cfg.Category, "start list (top, new, best, ask, show, jobs)")
	pageSize := flag.IntP("page-size", "n", cfg.PageSize, "stories per page")
	maxConc := flag.IntP("max-concurrent", "c", cfg.MaxConcurrent, "max outstanding API requests")
	logPath := flag.String("log", cfg.LogPath, "log file path")
	dbPath := flag.String("db", cfg.DBPath, "item store path (\":memory:\" for none)")
	flag.Parse()
	cfg.Category = *category
	cfg.PageSize = *pageSize
	cfg.MaxConcurrent = *maxConc
	cfg.LogPath = *logPath
	cfg.DBPath = *dbPath

	log := newLogger(cfg.LogPath)
	defer func() { _ = log.Sync() }()

	store, err := cache.OpenStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := api.NewClient(cfg.RequestTimeout, cfg.MaxConcurrent, log)
	c := cache.New(ctx, client, store, log)

	app := ui.NewApp(cfg, client, c)
	p := tea.NewProgram(app, tea.WithAltScreen())

	// Fetch completions land on goroutines; the watcher forwards them
	// into the update loop, the sole owner of tree and pager state.
	unwatch := c.Watch(func(u cache.Update) {
		p.Send(messages.CacheUpdateMsg{Update: u})
	})
	defer unwatch()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}

// newLogger writes structured logs to path; the terminal belongs to
// the TUI. Falls back to a no-op logger if the file can't be opened.
func newLogger(path string) *zap.Logger {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zap.NewNop()
	}
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{path}
	zcfg.ErrorOutputPaths = []string{path}
	log, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}
