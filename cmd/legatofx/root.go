package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/cbegin/legatofx"
	"github.com/cbegin/legatofx/internal/config"
)

var (
	settingsPath string
	sampleRate   int
	modeName     string
	tempo        float64
	useRetrigger bool
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "legatofx",
	Short: "Legato and glide articulation instrument",
	Long: `legatofx plays note input through a legato/glide transition engine:
overlapping notes crossfade with a pitch bend, or glide in tempo-synced steps.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&settingsPath, "settings", "", "JSON settings file")
	pf.IntVar(&sampleRate, "sample-rate", 48000, "output sample rate")
	pf.StringVar(&modeName, "mode", "", "articulation mode: sustain|legato|glide (overrides settings)")
	pf.Float64Var(&tempo, "tempo", 0, "tempo in bpm for glide rates (overrides settings and file tempo)")
	pf.BoolVar(&useRetrigger, "retrigger", false, "use the ghost retrigger engine")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log dropped events and polyphony exhaustion")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func loadSettings() (config.Settings, error) {
	s := config.Default()
	if settingsPath != "" {
		var err error
		if s, err = config.Load(settingsPath); err != nil {
			return config.Settings{}, err
		}
	}
	if modeName != "" {
		s.Mode = modeName
	}
	if err := s.Validate(); err != nil {
		return config.Settings{}, fmt.Errorf("invalid --mode: %w", err)
	}
	return s, nil
}

func instrumentOptions() ([]legatofx.Option, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}
	opts := []legatofx.Option{legatofx.WithSettings(s)}
	if tempo > 0 {
		opts = append(opts, legatofx.WithTempo(tempo))
	}
	if useRetrigger {
		opts = append(opts, legatofx.WithRetrigger())
	}
	if verbose {
		opts = append(opts, legatofx.WithLogger(log.New(os.Stderr, "", log.LstdFlags)))
	}
	return opts, nil
}
