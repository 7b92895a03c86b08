package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"solo-orchestra/config"
	"solo-orchestra/debug"
	"solo-orchestra/engine"
	"solo-orchestra/fetch"
	"solo-orchestra/midi"
	"solo-orchestra/performance"
	"solo-orchestra/theme"
	"solo-orchestra/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}

	perfRef := flag.String("performance", cfg.Performance, "performance descriptor (path or URL)")
	headless := flag.Bool("headless", cfg.Headless, "run without the UI, logging to stderr")
	levelName := flag.String("log-level", cfg.LogLevel, "debug, info, warn or error")
	verbose := flag.Bool("debug", false, "shorthand for -log-level debug")
	flag.Parse()
	if flag.NArg() > 0 {
		*perfRef = flag.Arg(0)
	}

	level, err := log.ParseLevel(*levelName)
	if err != nil {
		level = log.InfoLevel
	}
	if *verbose {
		level = log.DebugLevel
	}

	if *headless {
		debug.EnableStderr(level)
	} else if path, err := config.LogPath(); err == nil {
		if err := debug.Enable(path, level); err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
		}
	}
	defer debug.Disable()
	logger := debug.Logger("main")

	palette := theme.Default()
	if cfg.Palette != "" {
		if p, err := theme.LoadGPL(cfg.Palette); err != nil {
			logger.Warn("palette", "err", err)
		} else {
			palette = p
		}
	}

	var backend midi.Backend = midi.NewDriverBackend()
	if _, err := backend.InPorts(); err != nil {
		logger.Error("midi driver unavailable, running without ports", "err", err)
		backend = midi.NewMemoryBackend()
	} else {
		defer gomidi.CloseDriver()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dir := midi.NewDirectory(backend)
	defer dir.Close()

	fetcher := fetch.New(time.Duration(cfg.FetchTimeout))
	e := engine.New(engine.Options{
		Devices: dir,
		Source:  fetcher,
		Palette: palette,
	})

	// the engine outlives ctx so Shutdown can still run
	engineCtx, stopEngine := context.WithCancel(context.Background())
	defer stopEngine()
	go e.Run(engineCtx)

	if *perfRef != "" {
		perf, err := performance.Load(ctx, fetcher, *perfRef)
		if err != nil {
			logger.Error("load performance", "ref", *perfRef, "err", err)
		} else {
			e.Load(ctx, perf)
			cfg.AddRecent(*perfRef)
			if err := cfg.Save(); err != nil {
				logger.Warn("save config", "err", err)
			}
		}
	} else {
		logger.Warn("no performance given")
	}

	deviceMgr := midi.NewDeviceManager(backend, time.Duration(cfg.PollInterval), cfg.Launchpad)
	go deviceMgr.Run(ctx)

	if *headless {
		runHeadless(ctx, e, deviceMgr.Events())
	} else {
		m := tui.NewModel(e, deviceMgr.Events(), theme.New(palette))
		p := tea.NewProgram(m, tea.WithAltScreen())
		go func() {
			<-ctx.Done()
			p.Quit()
		}()
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	e.Shutdown()
	cancel()
	logger.Info("bye")
}

func runHeadless(ctx context.Context, e *engine.Engine, events <-chan midi.DeviceEvent) {
	logger := debug.Logger("main")
	logger.Info("running headless, ctrl+c to stop")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.HandleDeviceEvent(ev)
		case <-e.Updates():
			s := e.Snapshot()
			for _, g := range s.Groups {
				for _, p := range g.Presets {
					if p.Active {
						logger.Debug("active", "group", g.ID, "preset", p.ID)
					}
				}
			}
		}
	}
}
