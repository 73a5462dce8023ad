package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"chordscope/internal/config"
	applog "chordscope/internal/log"
	"chordscope/pkg/bitint"
	"chordscope/pkg/build"
)

// Options is the fully resolved invocation: the validated configuration
// plus any one-off command that bypasses the engine.
type Options struct {
	Config  *config.Config
	Command string // "" runs the tuner, "list" prints devices and exits.
}

// ParseArgs builds the configuration from the config file layered under
// any command line flags the user set explicitly.
func ParseArgs() (*Options, error) {
	return parseArgs(os.Args[1:])
}

func parseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	opts := &Options{}

	var (
		configPath string
		flagCfg    = config.Default()
		record     bool
		outputDir  string
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Console guitar tuner and chord guesser",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolve(cmd, configPath, flagCfg, record, outputDir)
			if err != nil {
				return err
			}
			opts.Config = cfg
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = "list"
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			opts.Config = cfg
			return nil
		},
	}
	rootCmd.AddCommand(listCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to the YAML configuration file")

	// Audio Device Configuration
	rootCmd.PersistentFlags().IntVarP(&flagCfg.Audio.InputDevice, "device", "d", flagCfg.Audio.InputDevice,
		"Input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVar(&flagCfg.Audio.OutputDevice, "output-device", flagCfg.Audio.OutputDevice,
		"Output device ID used for echo playback")
	rootCmd.PersistentFlags().Float64VarP(&flagCfg.Audio.SampleRate, "sample-rate", "s", flagCfg.Audio.SampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&flagCfg.Audio.FramesPerBuffer, "frames-per-buffer", "b", flagCfg.Audio.FramesPerBuffer,
		"The number of frames per buffer (affects echo latency)")
	rootCmd.PersistentFlags().BoolVarP(&flagCfg.Audio.LowLatency, "low-latency", "l", flagCfg.Audio.LowLatency,
		"Use low latency mode for real-time processing")
	rootCmd.PersistentFlags().Float64VarP(&flagCfg.Audio.EchoVolume, "echo-volume", "e", flagCfg.Audio.EchoVolume,
		"Playback gain for echoing captured audio, 0 disables echo")

	// Analysis Configuration
	rootCmd.PersistentFlags().IntVar(&flagCfg.Analysis.FFTSize, "fft-size", flagCfg.Analysis.FFTSize,
		"Transform length, rounded up to a power of two")
	rootCmd.PersistentFlags().StringVar(&flagCfg.Analysis.Window, "window", flagCfg.Analysis.Window,
		"Window function (hann, hamming, blackman, nuttall, lanczos, none)")

	// Recording Configuration
	rootCmd.PersistentFlags().BoolVarP(&record, "record", "r", false,
		"Record captured audio to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "",
		"Directory for recorded files. Default is the configured recording.output_dir")

	// Display Configuration
	rootCmd.PersistentFlags().StringVar(&flagCfg.Display.View, "view", flagCfg.Display.View,
		"Initial view (semilog, linear, loglog, octave, tuner, chords)")
	rootCmd.PersistentFlags().BoolVar(&flagCfg.Display.Adaptive, "adaptive", flagCfg.Display.Adaptive,
		"Rescale the spectrum so the tallest bar fills the graph")

	// Debug Configuration
	rootCmd.PersistentFlags().BoolVarP(&flagCfg.Debug, "verbose", "v", flagCfg.Debug,
		"Show verbose output")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return opts, nil
}

// resolve loads the config file, then copies over every flag the user
// set explicitly so flags win over the file.
func resolve(cmd *cobra.Command, configPath string, flagCfg *config.Config, record bool, outputDir string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	type override struct {
		name  string
		apply func()
	}
	overrides := []override{
		{"device", func() { cfg.Audio.InputDevice = flagCfg.Audio.InputDevice }},
		{"output-device", func() { cfg.Audio.OutputDevice = flagCfg.Audio.OutputDevice }},
		{"sample-rate", func() { cfg.Audio.SampleRate = flagCfg.Audio.SampleRate }},
		{"frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = flagCfg.Audio.FramesPerBuffer }},
		{"low-latency", func() { cfg.Audio.LowLatency = flagCfg.Audio.LowLatency }},
		{"echo-volume", func() { cfg.Audio.EchoVolume = flagCfg.Audio.EchoVolume }},
		{"fft-size", func() { cfg.Analysis.FFTSize = flagCfg.Analysis.FFTSize }},
		{"window", func() { cfg.Analysis.Window = flagCfg.Analysis.Window }},
		{"record", func() { cfg.Recording.Enabled = record }},
		{"output", func() { cfg.Recording.OutputDir = outputDir }},
		{"view", func() { cfg.Display.View = flagCfg.Display.View }},
		{"adaptive", func() { cfg.Display.Adaptive = flagCfg.Display.Adaptive }},
		{"verbose", func() { cfg.Debug = flagCfg.Debug }},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.name) {
			o.apply()
		}
	}

	// A hand-typed transform length is rounded up rather than rejected;
	// values from the config file stay strict.
	if cmd.Flags().Changed("fft-size") && !bitint.IsPowerOfTwo(cfg.Analysis.FFTSize) {
		rounded := bitint.NextPowerOfTwo(cfg.Analysis.FFTSize)
		applog.Warnf("CLI: rounding fft-size %d up to %d", cfg.Analysis.FFTSize, rounded)
		cfg.Analysis.FFTSize = rounded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
