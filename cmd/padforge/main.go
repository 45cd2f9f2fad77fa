package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Danondso/padforge/internal/chord"
	"github.com/Danondso/padforge/internal/config"
	"github.com/Danondso/padforge/internal/recorder"
	"github.com/Danondso/padforge/internal/tui"
)

var version = "0.1.0"

var (
	configPath string
	debug      bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "padforge",
	Short: "Turn one sample into a playable drum-rack preset bundle",
	Long: `padforge renders a source sample into a kit of pitched chord stacks or
time slices and packs it as a preset bundle for a 16-pad drum rack.

Pads are numbered from MIDI note 36; pad 1 sits bottom left.`,
	Version:      version,
	SilenceUsage: true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the padforge config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Long: `Write the default config to --config, or to
~/.config/padforge/config.toml when no path is given.

Example:
  padforge config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configForce bool

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/padforge/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging to stderr")

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(chordCmd, sliceCmd, chordsCmd, recordCmd, auditionCmd, configCmd)
}

// newLogger returns the debug logger: stderr with timestamps under --debug,
// discarded otherwise.
func newLogger() *log.Logger {
	if debug {
		return log.New(os.Stderr, "[DEBUG] ", log.Ltime|log.Lmicroseconds)
	}
	return log.New(io.Discard, "", 0)
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

// loadConfig reads the config and registers its custom chords and themes.
func loadConfig(logger *log.Logger) (*config.Config, error) {
	path := resolvedConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	chord.RegisterCustomChords(cfg.CustomChords, logger)
	tui.RegisterCustomThemes(cfg.CustomThemes)
	logger.Printf("config: path=%s provider=%s format=%s workers=%d", path, cfg.Resampler.Provider, cfg.Render.Format, cfg.Render.Workers)
	return cfg, nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := resolvedConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config path; pass --config")
	}
	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Save(path, config.Default()); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

// micCheckerAdapter adapts the package-level recorder functions to the
// tui.MicChecker interface.
type micCheckerAdapter struct{}

func (micCheckerAdapter) MicAvailable() bool {
	return recorder.MicAvailable()
}

func (micCheckerAdapter) MicName() string {
	return recorder.MicName()
}
