// main.go - Main entry point for the Visual Hive performance engine

/*
██╗   ██╗██╗███████╗██╗   ██╗ █████╗ ██╗         ██╗  ██╗██╗██╗   ██╗███████╗
██║   ██║██║██╔════╝██║   ██║██╔══██╗██║         ██║  ██║██║██║   ██║██╔════╝
██║   ██║██║███████╗██║   ██║███████║██║         ███████║██║██║   ██║█████╗
╚██╗ ██╔╝██║╚════██║██║   ██║██╔══██║██║         ██╔══██║██║╚██╗ ██╔╝██╔══╝
 ╚████╔╝ ██║███████║╚██████╔╝██║  ██║███████╗    ██║  ██║██║ ╚████╔╝ ███████╗
  ╚═══╝  ╚═╝╚══════╝ ╚═════╝ ╚═╝  ╚═╝╚══════╝    ╚═╝  ╚═╝╚═╝  ╚═══╝  ╚══════╝

Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

func boilerPlate() {
	fmt.Println("\nVisual Hive - beat-synchronised visual performance engine")
	fmt.Println("https://github.com/visualhive/visual-hive")
	fmt.Println("License: GPLv3 or later")
	fmt.Println()
}

func main() {
	boilerPlate()

	var (
		configPath   string
		displayID    int
		listDisplays bool
		noLink       bool
		headless     bool
		verbose      bool
	)
	flags := flag.NewFlagSet("visual-hive", flag.ExitOnError)
	flags.StringVar(&configPath, "config", "config/config.yaml", "path to the YAML configuration file")
	flags.IntVar(&displayID, "display", -1, "display to open the output window on (-1 = primary)")
	flags.BoolVar(&listDisplays, "list-displays", false, "list attached displays and exit")
	flags.BoolVar(&noLink, "no-link", false, "disable Ableton Link even when the config enables it")
	flags.BoolVar(&headless, "headless", false, "run without a window, draining frames at 60 Hz")
	flags.BoolVar(&verbose, "verbose", false, "enable debug logging")
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if listDisplays {
		for _, d := range ListDisplays() {
			primary := ""
			if d.Primary {
				primary = " (primary)"
			}
			fmt.Printf("%d: %s %dx%d%s\n", d.ID, d.Name, d.Width, d.Height, primary)
		}
		return
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		logrus.WithError(err).Fatal("startup: configuration rejected")
	}
	if noLink {
		cfg.Link.Enabled = false
	}

	// Asset pool. An empty pool is fatal: there is nothing to perform with.
	assets := NewAssetManager(cfg, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err := assets.Scan(cfg); err != nil {
		logrus.WithError(err).WithField("dir", cfg.Paths.AssetsDir).Fatal("startup: asset scan failed")
	}
	if !assets.LoadKeyMapping() {
		assets.AssignDefaultKeys()
		if err := assets.SaveKeyMapping(); err != nil {
			logrus.WithError(err).Warn("startup: could not persist key mapping")
		}
	}
	logrus.WithFields(logrus.Fields{
		"backgrounds": len(assets.ByType(AssetBackground)),
		"foregrounds": len(assets.ByType(AssetForeground)),
	}).Info("startup: asset pool ready")

	bindings, err := BuildBindings(cfg, assets.Assets())
	if err != nil {
		logrus.WithError(err).Fatal("startup: key bindings invalid")
	}

	// Display selection.
	var display DisplayInfo
	if headless {
		display = DisplayInfo{Name: "headless", Width: 1280, Height: 720}
		if cfg.Display.Width > 0 && cfg.Display.Height > 0 {
			display.Width = cfg.Display.Width
			display.Height = cfg.Display.Height
		}
	} else {
		displays := ListDisplays()
		if len(displays) == 0 {
			logrus.Fatal("startup: no displays attached")
		}
		display = displays[0]
		if displayID >= 0 {
			if displayID >= len(displays) {
				logrus.WithField("display", displayID).Fatal("startup: no such display")
			}
			display = displays[displayID]
		}
	}
	logrus.WithFields(logrus.Fields{
		"name":   display.Name,
		"width":  display.Width,
		"height": display.Height,
	}).Info("startup: output display selected")

	// Tempo sources: local estimator always, Link session when enabled.
	estimator := NewTempoEstimator(cfg.Engine.TempoWindowSize)
	tempoLoop := NewTempoLoop(estimator)

	var session SyncSession
	if cfg.Link.Enabled {
		session, err = NewLinkSession(cfg.Engine.DefaultBPM)
		if err != nil {
			logrus.WithError(err).Fatal("startup: Link session failed")
		}
	} else {
		session = NewLocalSession(estimator.StableBPM, cfg.Engine.DefaultBPM)
	}
	clock := NewBeatClock(session, cfg.Engine.PhraseLength)

	frames := NewFrameQueue()
	events := NewEventQueue()

	backend := VIDEO_BACKEND_EBITEN
	if headless {
		backend = VIDEO_BACKEND_HEADLESS
	}
	output, err := NewVideoOutput(backend, cfg, display, frames, events)
	if err != nil {
		logrus.WithError(err).Fatal("startup: video output failed")
	}
	width, height := output.Size()

	engine := NewEngine(cfg, clock, assets, bindings, events, frames, width, height)
	if eo, ok := output.(*EbitenOutput); ok {
		eo.SetStatusFunc(engine.StatusLine)
	}

	if monitor, err := NewAudioMonitor(clock); err != nil {
		logrus.WithError(err).Warn("startup: audio monitor unavailable")
	} else {
		engine.SetMonitor(monitor)
		defer monitor.Close()
	}

	midiIn, err := NewMIDIInput(events)
	if err != nil {
		logrus.WithError(err).Warn("startup: MIDI unavailable")
	} else {
		if ok, err := midiIn.Start(); err != nil {
			logrus.WithError(err).Warn("startup: MIDI listener failed")
		} else if !ok {
			logrus.Info("startup: no MIDI input ports, keyboard only")
		}
		defer midiIn.Close()
	}

	// Detection front end, when the platform build carries one. Readings
	// flow through the smoothing loop into the estimator; with Link active
	// the stable tempo is proposed to the session instead of driving a
	// local clock.
	if detector := newPlatformTempoDetector(); detector != nil {
		emit := func(r TempoReading) { tempoLoop.Offer(r) }
		if err := detector.Start(emit); err != nil {
			logrus.WithError(err).Warn("startup: tempo detector failed")
		} else {
			defer func() { _ = detector.Stop() }()
			go tempoLoop.Run()
			defer tempoLoop.Stop()
			if link, ok := session.(*LinkSession); ok {
				go proposeTempoUpdates(link, estimator, tempoLoop)
			}
		}
	}

	if err := engine.Start(); err != nil {
		logrus.WithError(err).Fatal("startup: engine failed")
	}
	go func() {
		engine.Run()
		// Engine exit (quit binding) brings the window down with it.
		output.Stop()
	}()

	// The display loop owns the main goroutine; ebiten requires it.
	runErr := output.Run()

	engine.Stop()
	if err := session.Close(); err != nil {
		logrus.WithError(err).Warn("shutdown: session close failed")
	}
	if runErr != nil {
		logrus.WithError(runErr).Fatal("video output terminated abnormally")
	}
	logrus.Info("shutdown: clean exit")
}

// proposeTempoUpdates forwards locally detected tempo changes to the Link
// session so the whole network follows the room. Exits with the loop.
func proposeTempoUpdates(link *LinkSession, estimator *TempoEstimator, loop *TempoLoop) {
	ticker := time.NewTicker(tempoCalcInterval)
	defer ticker.Stop()
	var last float64
	for loop.Running() {
		<-ticker.C
		if bpm := estimator.StableBPM(); bpm > 0 && bpm != last {
			link.ProposeTempo(bpm)
			last = bpm
		}
	}
}
