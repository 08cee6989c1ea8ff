package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/chroniclehq/chronicle/internal/config"
	"github.com/chroniclehq/chronicle/internal/daemon"
	"github.com/chroniclehq/chronicle/internal/host"
	"github.com/chroniclehq/chronicle/internal/store"
	"github.com/chroniclehq/chronicle/internal/watch"
)

func loadConfigOrExit() *config.Config {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func openStoreOrExit(cfg *config.Config) *store.Store {
	st, err := store.Open(cfg.DBPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening index: %v\n", err)
		os.Exit(1)
	}
	return st
}

// resolvedWatchDirs resolves cfg's configured (or default) watch dirs
// against $HOME, reusing the watcher's own resolution logic so the CLI and
// the daemon always agree on what counts as "inside a watch directory".
func resolvedWatchDirs(cfg *config.Config) []string {
	dirs := cfg.Watch.Dirs
	if len(dirs) == 0 {
		dirs = daemon.DefaultWatchDirs
	}
	w, err := watch.New(watch.Config{Dirs: dirs})
	if err != nil {
		return nil
	}
	defer w.Close()
	return w.Dirs()
}

func cmdStart(args []string) {
	foreground := false
	for _, a := range args {
		if a == "--foreground" || a == "-f" {
			foreground = true
		}
	}

	cfg := loadConfigOrExit()
	if err := daemon.Run(cfg, foreground); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func cmdStop() {
	if err := daemon.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "error stopping daemon: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("chronicle stopped")
}

func cmdStatus() {
	if err := daemon.Status(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func cmdInitConfig() {
	if err := config.InitConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "error generating config: %v\n", err)
		os.Exit(1)
	}
}

func cmdInstallService() {
	if err := daemon.InstallService(); err != nil {
		fmt.Fprintf(os.Stderr, "error installing service: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Service installed successfully")
}

func cmdUninstallService() {
	if err := daemon.UninstallService(); err != nil {
		fmt.Fprintf(os.Stderr, "error uninstalling service: %v\n", err)
		os.Exit(1)
	}
}

func cmdReprocessTags() {
	cfg := loadConfigOrExit()
	st := openStoreOrExit(cfg)
	defer st.Close()

	count, err := st.ReprocessTags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reprocessing tags: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Reprocessed tags for %d entries\n", count)
}

func cmdComputeHashes() {
	cfg := loadConfigOrExit()
	st := openStoreOrExit(cfg)
	defer st.Close()

	count, err := st.ComputeMissingHashes(func(path string, err error) {
		fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, err)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error computing hashes: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Computed %d new perceptual hashes\n", count)
}

func cmdFindSimilar(args []string) {
	threshold := 0
	if len(args) > 0 {
		t, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid threshold %q\n", args[0])
			os.Exit(1)
		}
		threshold = t
	}

	cfg := loadConfigOrExit()
	st := openStoreOrExit(cfg)
	defer st.Close()

	groups, err := st.FindSimilar(threshold)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error finding similar screenshots: %v\n", err)
		os.Exit(1)
	}

	if len(groups) == 0 {
		fmt.Println("no similar groups found")
		return
	}
	for i, group := range groups {
		fmt.Printf("group %d:\n", i+1)
		for _, path := range group {
			fmt.Printf("  %s\n", path)
		}
	}
}

func cmdDelete(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: chronicle delete <path> [path...]")
		os.Exit(1)
	}

	cfg := loadConfigOrExit()
	st := openStoreOrExit(cfg)
	defer st.Close()

	dirs := resolvedWatchDirs(cfg)
	deleted, failed := 0, 0
	for _, path := range args {
		if !host.UnderWatchDir(path, dirs) {
			fmt.Fprintf(os.Stderr, "refusing to delete %s: outside watch directories\n", path)
			failed++
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "failed to remove %s: %v\n", path, err)
			failed++
			continue
		}
		if err := st.DeleteByPath(path); err != nil {
			fmt.Fprintf(os.Stderr, "failed to delete index row for %s: %v\n", path, err)
			failed++
			continue
		}
		deleted++
	}
	fmt.Printf("deleted %d, failed %d\n", deleted, failed)
}
