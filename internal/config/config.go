// SPDX-License-Identifier: MIT

// Package config loads and validates the application configuration from
// YAML, with environment variable overrides applied on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	applog "chordscope/internal/log"
	"chordscope/pkg/bitint"
)

// Defaults and hard limits for the audio and analysis settings.
const (
	DefaultSampleRate      = 44100 // CD-quality audio
	DefaultFramesPerBuffer = 64    // Small buffers keep echo latency low
	DefaultFFTSize         = 65536
	DefaultQueueCapacity   = 10_000_000
	DefaultScale           = 0.005
	DefaultRefreshInterval = 10 * time.Millisecond
	DefaultEchoVolume      = 1.0

	MinDeviceID     = -1 // -1 selects the system default device
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxBufferFrames = 8192
	MaxEchoVolume   = 1.0 // The queue's volume scaling clips beyond unity gain.
)

// Config is the root application configuration, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Verbose logging and debug features.
	LogLevel  string          `yaml:"log_level"` // "debug", "info", "warn", "error".
	Audio     AudioConfig     `yaml:"audio"`     // Capture and playback settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`  // Spectrum and pitch detection settings.
	Recording RecordingConfig `yaml:"recording"` // Audio recording settings.
	Transport TransportConfig `yaml:"transport"` // Network publishing settings.
	Display   DisplayConfig   `yaml:"display"`   // Terminal visualizer settings.
}

// AudioConfig holds the capture and playback stream settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for capture (-1 for default).
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index for playback (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per callback; governs echo latency.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from the device.
	EchoVolume      float64 `yaml:"echo_volume"`       // Playback gain in [0, 1] applied when echoing captured audio, 0 disables echo.
}

// AnalysisConfig holds the spectrum pipeline settings.
type AnalysisConfig struct {
	FFTSize         int           `yaml:"fft_size"`         // Transform length, must be a power of two.
	Window          string        `yaml:"window"`           // Window function name, "none" keeps raw magnitudes for pitch detection.
	Scale           float64       `yaml:"scale"`            // Magnitude scaling factor before clipping.
	RefreshInterval time.Duration `yaml:"refresh_interval"` // How often the analyzer re-reads the queue.
	QueueCapacity   int           `yaml:"queue_capacity"`   // Sample queue size; must exceed fft_size.
}

// RecordingConfig holds the capture-to-file settings.
type RecordingConfig struct {
	Enabled     bool   `yaml:"enabled"`              // Record captured audio to file.
	OutputDir   string `yaml:"output_dir"`           // Directory for recorded files.
	Format      string `yaml:"format"`               // File format, "wav" only.
	BitDepth    int    `yaml:"bit_depth"`            // 16 or 24.
	MaxDuration int    `yaml:"max_duration_seconds"` // Per-file cap in seconds, 0 for unlimited.
}

// TransportConfig holds the network publishing settings.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Publish analysis snapshots over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address for UDP packets.
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
	WSEnabled        bool          `yaml:"ws_enabled"`         // Serve analysis snapshots over WebSocket.
	WSAddress        string        `yaml:"ws_address"`         // Listen address for the WebSocket server.
	WSSendInterval   time.Duration `yaml:"ws_send_interval"`   // Interval between snapshot publications.
}

// DisplayConfig holds the terminal visualizer settings.
type DisplayConfig struct {
	View       string  `yaml:"view"`        // Initial view: "semilog", "linear", "loglog", "octave", "tuner", "chords".
	Bars       int     `yaml:"bars"`        // Bar count for the spectrum views, 0 derives it from terminal width.
	MinFreq    float64 `yaml:"min_freq"`    // Lower display bound in Hz for the spectrum views.
	MaxFreq    float64 `yaml:"max_freq"`    // Upper display bound in Hz for the spectrum views.
	Adaptive   bool    `yaml:"adaptive"`    // Rescale bars so the tallest always fills the graph.
	GraphScale float64 `yaml:"graph_scale"` // Fixed bar scale used when adaptive is off.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     MinDeviceID,
			OutputDevice:    MinDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      false,
			EchoVolume:      DefaultEchoVolume,
		},
		Analysis: AnalysisConfig{
			FFTSize:         DefaultFFTSize,
			Window:          "none",
			Scale:           DefaultScale,
			RefreshInterval: DefaultRefreshInterval,
			QueueCapacity:   DefaultQueueCapacity,
		},
		Recording: RecordingConfig{
			Enabled:     false,
			OutputDir:   "./recordings",
			Format:      "wav",
			BitDepth:    16,
			MaxDuration: 0,
		},
		Transport: TransportConfig{
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond,
			WSEnabled:        false,
			WSAddress:        ":8080",
			WSSendInterval:   33 * time.Millisecond,
		},
		Display: DisplayConfig{
			View:       "semilog",
			Bars:       0,
			MinFreq:    55,
			MaxFreq:    10000,
			Adaptive:   false,
			GraphScale: 1.0 / 32768,
		},
	}
}

// LoadConfig loads configuration from the YAML file at path. An empty
// path searches the default locations; when no file is found the built-in
// defaults are used. Environment variable overrides are applied after
// loading, then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{"config.yaml", "chordscope.yaml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints that the YAML schema cannot
// express.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %g outside [%d, %d]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.FramesPerBuffer <= 0 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer %d outside (0, %d]", c.Audio.FramesPerBuffer, MaxBufferFrames)
	}
	if c.Audio.EchoVolume < 0 || c.Audio.EchoVolume > MaxEchoVolume {
		return fmt.Errorf("audio.echo_volume must be in [0, %g], got %g", float64(MaxEchoVolume), c.Audio.EchoVolume)
	}
	if !bitint.IsPowerOfTwo(c.Analysis.FFTSize) {
		return fmt.Errorf("analysis.fft_size must be a power of two, got %d", c.Analysis.FFTSize)
	}
	if c.Analysis.QueueCapacity <= c.Analysis.FFTSize {
		return fmt.Errorf("analysis.queue_capacity %d must exceed fft_size %d", c.Analysis.QueueCapacity, c.Analysis.FFTSize)
	}
	if c.Analysis.Scale <= 0 {
		return fmt.Errorf("analysis.scale must be positive, got %g", c.Analysis.Scale)
	}
	if c.Analysis.RefreshInterval <= 0 {
		return fmt.Errorf("analysis.refresh_interval must be positive, got %s", c.Analysis.RefreshInterval)
	}
	if c.Recording.Enabled {
		if strings.ToLower(c.Recording.Format) != "wav" {
			return fmt.Errorf("recording.format '%s' is not supported, only wav", c.Recording.Format)
		}
		if c.Recording.BitDepth != 16 && c.Recording.BitDepth != 24 {
			return fmt.Errorf("recording.bit_depth must be 16 or 24, got %d", c.Recording.BitDepth)
		}
	}
	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			return fmt.Errorf("transport.udp_target_address '%s' is missing a port", c.Transport.UDPTargetAddress)
		}
		if c.Transport.UDPSendInterval <= 0 {
			return fmt.Errorf("transport.udp_send_interval must be positive, got %s", c.Transport.UDPSendInterval)
		}
	}
	if c.Transport.WSEnabled {
		if c.Transport.WSAddress == "" {
			return fmt.Errorf("transport.ws_address must be set when the WebSocket server is enabled")
		}
		if c.Transport.WSSendInterval <= 0 {
			return fmt.Errorf("transport.ws_send_interval must be positive, got %s", c.Transport.WSSendInterval)
		}
	}
	if c.Display.MaxFreq <= c.Display.MinFreq {
		return fmt.Errorf("display.max_freq %g must exceed display.min_freq %g", c.Display.MaxFreq, c.Display.MinFreq)
	}
	if c.Display.Bars < 0 {
		return fmt.Errorf("display.bars must not be negative, got %d", c.Display.Bars)
	}
	return nil
}

// applyEnvOverrides layers CHORDSCOPE_* environment variables over the
// loaded values, for settings that tend to differ between hosts.
func (cfg *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("CHORDSCOPE_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			applog.Debugf("configuration: overriding debug from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("CHORDSCOPE_INPUT_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Audio.InputDevice = iVal
			applog.Debugf("configuration: overriding audio.input_device from env: %d", iVal)
		}
	}
	if val, ok := os.LookupEnv("CHORDSCOPE_OUTPUT_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Audio.OutputDevice = iVal
			applog.Debugf("configuration: overriding audio.output_device from env: %d", iVal)
		}
	}
	if val, ok := os.LookupEnv("CHORDSCOPE_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			applog.Debugf("configuration: overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("CHORDSCOPE_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		applog.Debugf("configuration: overriding transport.udp_target_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("CHORDSCOPE_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
			applog.Debugf("configuration: overriding transport.udp_send_interval from env: %s", dur)
		}
	}
}
