package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"chordscope/cmd"
	"chordscope/internal/audio"
	"chordscope/internal/config"
	applog "chordscope/internal/log"
	"chordscope/internal/queue"
	"chordscope/internal/transport"
	"chordscope/internal/transport/udp"
	"chordscope/internal/tui"
	"chordscope/internal/tuner"
	"chordscope/pkg/build"
)

// main is the entry point for the tuner application.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Initialize PortAudio
//   - Parse command line arguments and load configuration
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Start the capture/playback engine feeding the sample queue
//   - Begin recording if enabled
//   - Start the network publishers
//   - Run the terminal UI, which drives the analyzer
//
// 3. Shutdown Phase (Cold Path):
//   - Stop publishers, recording, and the engine
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Build information is populated via -ldflags; development builds
	// run with the "unknown" placeholders.
	if err := build.Initialize(); err != nil {
		applog.Debugf("build info unavailable: %v", err)
	}

	// Limit OS threads to optimize for real-time audio processing:
	// - One thread dedicated to the capture callback (time-critical)
	// - One thread for the UI, analysis, and I/O
	runtime.GOMAXPROCS(2)

	// Initialize PortAudio subsystem
	if err := audio.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}
	defer audio.Terminate()

	// Parse command line arguments and build configuration
	opts, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if opts.Config == nil {
		// Help or version output already handled.
		return
	}
	cfg := opts.Config

	configureLogging(cfg)

	// Handle one-off commands that don't require the engine
	if opts.Command == "list" {
		if err := audio.ListDevices(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	q, err := queue.New(cfg.Analysis.QueueCapacity)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	engine, err := audio.NewEngine(cfg, q)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	analyzer, err := tuner.New(q, tuner.Config{
		FFTSize:    cfg.Analysis.FFTSize,
		SampleRate: cfg.Audio.SampleRate,
		Window:     cfg.Analysis.Window,
		Scale:      cfg.Analysis.Scale,
	})
	if err != nil {
		applog.Fatalf("%v", err)
	}

	// CRITICAL: Start of real-time audio processing. PortAudio begins
	// invoking the capture callback here.
	if err := engine.Start(); err != nil {
		applog.Fatalf("%v", err)
	}

	if cfg.Recording.Enabled {
		if err := startRecording(engine, cfg); err != nil {
			applog.Fatalf("%v", err)
		}
	}

	snapshotPub := startSnapshotPublisher(cfg, analyzer, engine)
	udpPub, udpSender := startUDPPublisher(cfg, analyzer)

	program := tea.NewProgram(
		tui.NewModel(analyzer, engine.Level, cfg.Display, cfg.Analysis.RefreshInterval),
		tea.WithAltScreen(),
	)

	// SIGTERM shuts the UI down cleanly; SIGINT is handled by the UI itself.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	go func() {
		<-sigCh
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		applog.Errorf("TUI error: %v", err)
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if snapshotPub != nil {
		snapshotPub.Stop()
	}
	if udpPub != nil {
		udpPub.Stop()
	}
	if udpSender != nil {
		udpSender.Close()
	}

	if cfg.Recording.Enabled {
		if err := engine.StopRecording(); err != nil {
			applog.Errorf("Error stopping recording: %v", err)
		}
	}
	if err := engine.Close(); err != nil {
		applog.Errorf("Error closing audio engine: %v", err)
	}
	if dropped := engine.Dropped(); dropped > 0 {
		applog.Warnf("Queue refused %d captured samples during this session", dropped)
	}
}

// configureLogging applies the configured log level; --verbose wins.
func configureLogging(cfg *config.Config) {
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
		return
	}
	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}
}

// startRecording begins a timestamped WAV capture in the configured
// output directory.
func startRecording(engine *audio.Engine, cfg *config.Config) error {
	if err := os.MkdirAll(cfg.Recording.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create recording directory: %w", err)
	}
	filename := filepath.Join(cfg.Recording.OutputDir,
		"recording-"+time.Now().UTC().Format("02-01-2006-150405")+".wav")
	if err := engine.StartRecording(filename); err != nil {
		return err
	}
	applog.Infof("Recording to %s", filename)
	return nil
}

// startSnapshotPublisher wires the WebSocket (and debug logging)
// transports when enabled. Returns nil when nothing is configured.
func startSnapshotPublisher(cfg *config.Config, analyzer *tuner.Analyzer, engine *audio.Engine) *transport.Publisher {
	var transports []transport.Transport
	if cfg.Transport.WSEnabled {
		transports = append(transports, transport.NewWebSocketTransport(cfg.Transport.WSAddress))
	}
	if cfg.Debug {
		transports = append(transports, transport.NewLoggingTransport())
	}
	if len(transports) == 0 {
		return nil
	}

	pub, err := transport.NewPublisher(cfg.Transport.WSSendInterval, func() transport.Snapshot {
		snap := transport.Snapshot{Level: engine.Level()}
		if pitch, err := analyzer.DetectPitch(); err == nil && pitch.OK {
			snap.PitchOK = true
			snap.PitchFreq = pitch.Freq
			snap.PitchName = pitch.Name
			snap.PitchCents = pitch.Cents
		}
		if guess, err := analyzer.GuessChord(tuner.DefaultMaxChordNotes); err == nil {
			snap.ChordOK = guess.OK
			snap.ChordName = guess.Name
			snap.ChordNotes = guess.Notes
		}
		return snap
	}, transports...)
	if err != nil {
		applog.Errorf("Snapshot publisher disabled: %v", err)
		return nil
	}
	pub.Start()
	return pub
}

// startUDPPublisher wires the binary magnitude feed when enabled.
func startUDPPublisher(cfg *config.Config, analyzer *tuner.Analyzer) (*udp.UDPPublisher, *udp.UDPSender) {
	if !cfg.Transport.UDPEnabled {
		return nil, nil
	}

	sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
	if err != nil {
		applog.Errorf("UDP publisher disabled: %v", err)
		return nil, nil
	}
	pub, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, analyzer)
	if err != nil {
		applog.Errorf("UDP publisher disabled: %v", err)
		sender.Close()
		return nil, nil
	}
	pub.Start()
	return pub, sender
}
