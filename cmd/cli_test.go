package cmd

import (
	"testing"

	"chordscope/internal/config"
)

func TestParseArgsDefaults(t *testing.T) {
	opts, err := parseArgs([]string{})
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	if opts.Command != "" {
		t.Errorf("command = %q, want empty", opts.Command)
	}
	if opts.Config == nil {
		t.Fatal("expected resolved config, got nil")
	}
	if opts.Config.Analysis.FFTSize != config.DefaultFFTSize {
		t.Errorf("fft_size = %d, want default %d", opts.Config.Analysis.FFTSize, config.DefaultFFTSize)
	}
}

func TestParseArgsFlagsWin(t *testing.T) {
	opts, err := parseArgs([]string{"--sample-rate", "48000", "--window", "hann", "-v"})
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	cfg := opts.Config
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("sample_rate = %g, want 48000", cfg.Audio.SampleRate)
	}
	if cfg.Analysis.Window != "hann" {
		t.Errorf("window = %q, want hann", cfg.Analysis.Window)
	}
	if !cfg.Debug {
		t.Error("verbose flag not applied")
	}
	// Untouched settings keep their defaults.
	if cfg.Audio.EchoVolume != config.DefaultEchoVolume {
		t.Errorf("echo_volume = %g, want default %g", cfg.Audio.EchoVolume, float64(config.DefaultEchoVolume))
	}
}

func TestParseArgsRoundsFFTSize(t *testing.T) {
	tests := []struct {
		arg  string
		want int
	}{
		{"5000", 8192},
		{"16384", 16384},
		{"1000", 1024},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			opts, err := parseArgs([]string{"--fft-size", tt.arg})
			if err != nil {
				t.Fatalf("parseArgs failed: %v", err)
			}
			if opts.Config.Analysis.FFTSize != tt.want {
				t.Errorf("fft_size = %d, want %d", opts.Config.Analysis.FFTSize, tt.want)
			}
		})
	}
}

func TestParseArgsRejectsInvalid(t *testing.T) {
	args := [][]string{
		{"--sample-rate", "100"},
		{"--echo-volume", "2"},
		{"--frames-per-buffer", "0"},
	}
	for _, a := range args {
		if _, err := parseArgs(a); err == nil {
			t.Errorf("parseArgs(%v): expected validation error, got nil", a)
		}
	}
}

func TestParseArgsListCommand(t *testing.T) {
	opts, err := parseArgs([]string{"list"})
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	if opts.Command != "list" {
		t.Errorf("command = %q, want list", opts.Command)
	}
	if opts.Config == nil {
		t.Error("list command should still resolve a config")
	}
}
