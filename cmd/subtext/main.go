// Package main is the entry point for the subtext editor core host.
// The GUI shell is a separate program; this host wires the engine
// together, recovers crashed sessions, and runs the autosave loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dshills/subtext/internal/config"
	"github.com/dshills/subtext/internal/document"
	"github.com/dshills/subtext/internal/engine/buffer"
	"github.com/dshills/subtext/internal/engine/history"
	"github.com/dshills/subtext/internal/event"
	"github.com/dshills/subtext/internal/fileio"
	"github.com/dshills/subtext/internal/logging"
	"github.com/dshills/subtext/internal/session"
	"github.com/dshills/subtext/internal/tabs"
	"github.com/dshills/subtext/internal/watch"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	ConfigPath string
	SessionDir string
	Recover    string
	Files      []string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if opts.SessionDir != "" {
		cfg.Autosave.SessionDir = opts.SessionDir
	}

	logger := logging.New(cfg.Logging.Level)
	logging.SetDefault(logger)

	sessionDir, err := cfg.ResolveSessionDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	store, err := session.NewStore(sessionDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	pending, err := session.RecoverPending(store)
	if err != nil {
		logger.Warn("could not read previous session", logging.FieldError, err)
	}

	if opts.Recover == "list" {
		printPending(pending)
		return 0
	}
	if opts.Recover == "discard" {
		if err := store.Clear(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("Discarded %d recovery snapshot(s)\n", len(pending))
		return 0
	}

	bus := event.NewBus()
	bus.SetPanicHandler(func(topic event.Topic, v any, stack []byte) {
		logger.Error("event handler panicked", "topic", string(topic), "panic", v)
	})

	mgr := tabs.NewManager(
		tabs.WithBus(bus),
		tabs.WithDocumentOptions(
			document.WithFileOptions(fileio.Options{AllowLatin1: cfg.Encoding.AllowLatin1}),
			document.WithUndoOptions(
				history.WithCoalesceWindow(cfg.Undo.CoalesceWindow.Std()),
				history.WithCoalesceMaxBytes(cfg.Undo.CoalesceMaxBytes),
				history.WithMaxEntries(cfg.Undo.MaxEntries),
			),
		),
	)

	if opts.Recover == "restore" {
		for _, p := range pending {
			doc := mgr.Restore(document.ID(p.ID), p.Path, p.Title, p.Content)
			doc.SetCursor(buffer.Point{Line: p.CursorLine, Column: p.CursorColumn})
			logger.Info("restored snapshot",
				logging.FieldDocument, p.ID, logging.FieldPath, p.Path)
		}
	} else if len(pending) > 0 {
		fmt.Fprintf(os.Stderr, "%d recovery snapshot(s) from a previous session; run with -recover=list to inspect\n", len(pending))
	}

	watcher, err := watch.New(bus, watch.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer watcher.Close()

	for _, path := range opts.Files {
		doc, err := mgr.Open(path)
		if err != nil {
			logger.Error("open failed", logging.FieldPath, path, logging.FieldError, err)
			continue
		}
		if err := watcher.Watch(doc.Path()); err != nil {
			logger.Warn("watch failed", logging.FieldPath, doc.Path(), logging.FieldError, err)
		}
	}
	bus.Subscribe(event.TopicDocumentSaving, func(_ event.Topic, payload any) {
		if path, ok := payload.(string); ok {
			watcher.MarkSelfWrite(path)
		}
	})
	bus.Subscribe(event.TopicFileChanged, func(_ event.Topic, payload any) {
		logger.Info("file changed on disk", logging.FieldPath, payload.(string))
	})
	bus.Subscribe(event.TopicFileRemoved, func(_ event.Topic, payload any) {
		logger.Warn("file removed on disk", logging.FieldPath, payload.(string))
	})

	printTabs(mgr)

	saver := session.NewAutosaver(store, mgr,
		session.WithBus(bus),
		session.WithLogger(logger),
		session.WithInterval(cfg.Autosave.Interval.Std()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()

	logger.Info("autosave running",
		logging.FieldDir, sessionDir,
		logging.FieldDuration, cfg.Autosave.Interval.Std())
	saver.Run(ctx)

	// Final snapshot so a clean shutdown still leaves nothing behind
	// that an unsaved buffer would need.
	saver.Tick()
	return 0
}

func printPending(pending []session.Pending) {
	if len(pending) == 0 {
		fmt.Println("No recovery snapshots")
		return
	}
	for _, p := range pending {
		name := p.Title
		if p.Path != "" {
			name = p.Path
		}
		fmt.Printf("%s  %s  (%d bytes, %s)\n",
			p.ID, name, len(p.Content), p.Timestamp.Format(time.RFC3339))
	}
}

func printTabs(mgr *tabs.Manager) {
	for _, info := range mgr.List() {
		marker := " "
		if info.Dirty {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, info.Name)
	}
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.SessionDir, "session-dir", "", "Session/recovery directory override")
	flag.StringVar(&opts.Recover, "recover", "", "Recovery action: list, restore, or discard")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Subtext - text editor core engine host\n\n")
		fmt.Fprintf(os.Stderr, "Usage: subtext [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  subtext file.go               Open a file\n")
		fmt.Fprintf(os.Stderr, "  subtext -recover=list         Show crash-recovery snapshots\n")
		fmt.Fprintf(os.Stderr, "  subtext -recover=restore      Reopen snapshots as tabs\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("Subtext %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch opts.Recover {
	case "", "list", "restore", "discard":
		// Valid
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid -recover action %q (must be list, restore, or discard)\n", opts.Recover)
		os.Exit(1)
	}

	opts.Files = flag.Args()
	return opts
}
