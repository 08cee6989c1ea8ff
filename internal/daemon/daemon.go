package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chroniclehq/chronicle/internal/batch"
	"github.com/chroniclehq/chronicle/internal/cache"
	"github.com/chroniclehq/chronicle/internal/config"
	"github.com/chroniclehq/chronicle/internal/host"
	"github.com/chroniclehq/chronicle/internal/ocr"
	"github.com/chroniclehq/chronicle/internal/pipeline"
	"github.com/chroniclehq/chronicle/internal/store"
	"github.com/chroniclehq/chronicle/internal/version"
	"github.com/chroniclehq/chronicle/internal/watch"
)

// DefaultWatchDirs are the spec-default watch directories, relative to
// $HOME, used when the config's watch.dirs is empty.
var DefaultWatchDirs = []string{"Desktop", "Pictures/Screenshots"}

// Run is the main daemon orchestrator: it opens the store, wires the
// watcher, batch coordinator, and OCR pipeline together, starts the host
// HTTP/SSE surface, and blocks until a shutdown signal arrives.
func Run(cfg *config.Config, foreground bool) error {
	dataDir := expandHome(cfg.Index.DataDir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("daemon: creating data directory %s: %w", dataDir, err)
	}

	setupLogger(dataDir, cfg.Log.Level, foreground)

	log.Info().
		Str("version", version.Version).
		Str("data_dir", dataDir).
		Bool("foreground", foreground).
		Msg("chronicle starting")

	if IsRunning(dataDir) {
		return fmt.Errorf("chronicle is already running (PID file exists at %s)", pidPath(dataDir))
	}

	lock, err := AcquireLock(dataDir)
	if err != nil {
		return fmt.Errorf("daemon: acquiring lock: %w", err)
	}
	defer lock.Release()

	if err := WritePID(dataDir); err != nil {
		return fmt.Errorf("daemon: writing PID file: %w", err)
	}
	defer func() {
		if err := RemovePID(dataDir); err != nil {
			log.Error().Err(err).Msg("daemon: failed to remove PID file")
		}
	}()
	log.Info().Int("pid", os.Getpid()).Msg("PID file written")

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("daemon: opening store: %w", err)
	}
	defer st.Close()
	log.Info().Str("db_path", cfg.DBPath()).Msg("store opened")

	entryCache, err := cache.NewEntryCache(0)
	if err != nil {
		return fmt.Errorf("daemon: creating entry cache: %w", err)
	}

	configFile := config.ConfigFilePath()
	var cfgWatcher *config.Watcher
	if configFile != "" {
		if w, watchErr := config.Watch(configFile); watchErr != nil {
			log.Warn().Err(watchErr).Msg("daemon: failed to start config watcher; continuing without hot-reload")
		} else {
			cfgWatcher = w
			defer cfgWatcher.Close()
			cfgWatcher.OnChange(func(_, newCfg *config.Config) {
				log.Info().Msg("daemon: configuration reloaded")
				zerolog.SetGlobalLevel(parseLogLevel(newCfg.Log.Level))
			})
			log.Info().Str("file", configFile).Msg("config watcher started")
		}
	}

	broadcaster := host.NewBroadcaster()

	var visionEngine ocr.Engine
	if cfg.OCR.VisionEnabled {
		visionEngine = ocr.NewPlatformVision()
	}
	tesseract := ocr.NewGenericTesseract()

	watchDirs := cfg.Watch.Dirs
	if len(watchDirs) == 0 {
		watchDirs = DefaultWatchDirs
	}

	// runCtx governs every background goroutine started below (pipeline
	// work, watcher, batch pass, cache reconciler); it's cancelled once on
	// shutdown so everything winds down together.
	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	var watcher *watch.Watcher
	chain := buildChain(visionEngine, tesseract, func(oldPath, newPath string) {
		if watcher != nil {
			watcher.MarkKnown(oldPath)
			watcher.MarkKnown(newPath)
			watcher.MarkIgnored(oldPath)
			watcher.MarkIgnored(newPath)
		}
	})

	process := func(ctx context.Context, path string, createdAtMs int64) {
		runPipeline(ctx, chain, st, entryCache, broadcaster, path, createdAtMs)
	}

	watcher, err = watch.New(watch.Config{
		Dirs:                  watchDirs,
		DebounceWindow:        time.Duration(cfg.Watch.DebounceMS) * time.Millisecond,
		IgnoreTTL:             time.Duration(cfg.Watch.IgnoreTTLSeconds) * time.Second,
		StabilizationPolls:    cfg.Watch.StabilizationPolls,
		StabilizationInterval: time.Duration(cfg.Watch.StabilizationMS) * time.Millisecond,
		OnReady:               process,
	})
	if err != nil {
		return fmt.Errorf("daemon: creating watcher: %w", err)
	}
	defer watcher.Close()

	// Startup reconciliation: process anything that arrived while the
	// daemon wasn't running, marking every on-disk path known before the
	// watcher starts so it never replays them, per §4.10.
	coordinator := &batch.Coordinator{
		Dirs:    watcher.Dirs(),
		Store:   st,
		Marker:  watcher,
		Process: process,
		OnProgress: func(p batch.Progress) {
			emitBatchProgress(broadcaster, p)
		},
	}
	if err := coordinator.Run(runCtx); err != nil {
		log.Error().Err(err).Msg("daemon: startup batch reconciliation failed")
	}

	if entries, err := st.ListAll(); err != nil {
		log.Error().Err(err).Msg("daemon: warming cache failed")
	} else {
		entryCache.Warm(entries)
	}
	reconcilerDone := entryCache.StartReconciler(runCtx, st)

	if err := watcher.Start(runCtx); err != nil {
		return fmt.Errorf("daemon: starting watcher: %w", err)
	}

	hostDeps := &host.Deps{
		Store:       st,
		Cache:       entryCache,
		WatchDirs:   watcher.Dirs(),
		Broadcaster: broadcaster,
	}
	hostAddr := fmt.Sprintf("%s:%d", cfg.Host.BindAddress, cfg.Host.Port)
	hostServer := host.NewServer(hostDeps, hostAddr)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", hostAddr).Msg("host server starting")
		if err := hostServer.Start(); err != nil {
			errCh <- fmt.Errorf("host server: %w", err)
		}
	}()

	log.Info().
		Strs("watch_dirs", watcher.Dirs()).
		Str("host_addr", hostAddr).
		Msg("chronicle is ready")

	if foreground {
		fmt.Printf("\n  Chronicle is running!\n")
		fmt.Printf("  Host: http://%s\n\n", hostAddr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("fatal server error")
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Info().Msg("shutting down...")
	if err := hostServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("host server shutdown error")
	}

	runCancel()
	<-reconcilerDone

	log.Info().Msg("chronicle stopped")
	return nil
}

// buildChain assembles the concrete §4 pipeline stages in order.
func buildChain(vision ocr.Engine, tesseract *ocr.GenericTesseract, onRename func(old, new string)) *pipeline.Chain {
	return pipeline.NewChain(
		pipeline.PreprocessStage{},
		pipeline.OCRStage{Vision: vision, Tesseract: tesseract},
		pipeline.CompositeStage{},
		pipeline.EnrichStage{},
		pipeline.RenameStage{OnRename: onRename},
	)
}

// runPipeline drives one screenshot through chain, emitting ocr-status
// events before and after, and upserting the result into st on success.
func runPipeline(ctx context.Context, chain *pipeline.Chain, st *store.Store, entryCache *cache.EntryCache, broadcaster *host.Broadcaster, path string, createdAtMs int64) {
	runID := uuid.NewString()
	ctx = pipeline.WithRunID(ctx, runID)

	emitOCRStatus(broadcaster, host.OCRStatusPayload{Status: "processing", Path: path})

	work := &pipeline.Work{
		RunID:        runID,
		OriginalPath: path,
		CurrentPath:  path,
		CreatedAtMs:  createdAtMs,
		StartedAt:    time.Now(),
	}
	chain.Run(ctx, work)

	if work.Err != nil {
		log.Error().Err(work.Err).Str("stage", work.FailedStage).Str("path", path).Msg("pipeline: run failed")
		emitOCRStatus(broadcaster, host.OCRStatusPayload{Status: "idle", Path: path, Error: work.Err.Error()})
		return
	}

	entry, err := st.Upsert(work.CurrentPath, work.Text, work.CreatedAtMs)
	if err != nil {
		log.Error().Err(err).Str("path", work.CurrentPath).Msg("pipeline: upsert failed")
		emitOCRStatus(broadcaster, host.OCRStatusPayload{Status: "idle", Path: work.CurrentPath, Error: err.Error()})
		return
	}
	entryCache.Put(entry)

	emitOCRStatus(broadcaster, entryStatusPayload(entry))
}

func entryStatusPayload(e *store.Entry) host.OCRStatusPayload {
	return host.OCRStatusPayload{
		Status:    "idle",
		Path:      e.Path,
		Text:      e.Text,
		CreatedAt: e.CreatedAt,
		Tags:      jsonOrEmptyArray(e.Tags),
		URLs:      jsonOrEmptyArray(e.URLs),
		Emails:    jsonOrEmptyArray(e.Emails),
	}
}

// jsonOrEmptyArray JSON-encodes v, falling back to "[]" on a marshal error
// or a nil slice, per §6's "defaults to [] when present" contract.
func jsonOrEmptyArray(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return "[]"
	}
	return string(b)
}

func emitOCRStatus(b *host.Broadcaster, payload host.OCRStatusPayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("daemon: marshal ocr-status event")
		return
	}
	b.Publish(host.Event{Name: "ocr-status", Data: string(data)})
}

func emitBatchProgress(b *host.Broadcaster, p batch.Progress) {
	data, err := json.Marshal(p)
	if err != nil {
		log.Error().Err(err).Msg("daemon: marshal batch-progress event")
		return
	}
	b.Publish(host.Event{Name: "batch-progress", Data: string(data)})
}

// setupLogger configures the global zerolog logger: always to
// dataDir/chronicle.log, and additionally to stdout with console
// formatting when running in the foreground.
func setupLogger(dataDir, level string, foreground bool) {
	zerolog.SetGlobalLevel(parseLogLevel(level))

	logPath := filepath.Join(dataDir, "chronicle.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "chronicle").Logger()
		log.Error().Err(err).Str("path", logPath).Msg("daemon: could not open log file, logging to stderr only")
		return
	}

	var combined zerolog.LevelWriter
	if foreground {
		console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
		combined = zerolog.MultiLevelWriter(logFile, console)
	} else {
		combined = zerolog.MultiLevelWriter(logFile)
	}

	log.Logger = zerolog.New(combined).With().Timestamp().Str("service", "chronicle").Logger()
}

// Stop reads the PID file and sends SIGTERM to the running daemon.
func Stop() error {
	dataDir := expandHome(config.Get().Index.DataDir)

	pid, err := ReadPID(dataDir)
	if err != nil {
		return fmt.Errorf("chronicle does not appear to be running: %w", err)
	}

	if !isProcessAlive(pid) {
		if rmErr := RemovePID(dataDir); rmErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to remove stale PID file: %v\n", rmErr)
		}
		return fmt.Errorf("chronicle is not running (stale PID file removed)")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending SIGTERM to process %d: %w", pid, err)
	}

	fmt.Printf("Sent SIGTERM to chronicle (PID %d)\n", pid)

	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if !isProcessAlive(pid) {
			return nil
		}
	}
	return nil
}

// Status reports whether the daemon is running, its PID, and a quick
// summary of the index pulled directly from the store (the daemon has no
// separate stats API; the store is the single source of truth).
func Status() error {
	cfg := config.Get()
	dataDir := expandHome(cfg.Index.DataDir)

	if !IsRunning(dataDir) {
		fmt.Println("chronicle is not running")
		return nil
	}

	pid, _ := ReadPID(dataDir)
	fmt.Printf("chronicle is running (PID %d)\n", pid)

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		fmt.Println("  (index unreachable)")
		return nil
	}
	defer st.Close()

	entries, err := st.ListAll()
	if err != nil {
		fmt.Println("  (index query failed)")
		return nil
	}

	fmt.Printf("  Indexed entries: %d\n", len(entries))
	if len(entries) > 0 {
		fmt.Printf("  Most recent:     %s\n", entries[0].Path)
	}
	return nil
}

// parseLogLevel converts a string log level to a zerolog.Level.
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
