package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbegin/legatofx"
)

var (
	outPath string
	tail    time.Duration
)

func init() {
	renderCmd.Flags().StringVarP(&outPath, "out", "o", "", "output WAV path (default: input name with .wav)")
	renderCmd.Flags().DurationVar(&tail, "tail", legatofx.DefaultTail, "time rendered after the last event")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render <file.mid>",
	Short: "Render a MIDI file to a float WAV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return render(args[0])
	},
}

func render(in string) error {
	opts, err := instrumentOptions()
	if err != nil {
		return err
	}
	f, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("open midi file: %w", err)
	}
	defer f.Close()

	samples, err := legatofx.RenderSMF(f, sampleRate, tail, opts...)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	out := outPath
	if out == "" {
		out = strings.TrimSuffix(in, filepath.Ext(in)) + ".wav"
	}
	w, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	if err := legatofx.WriteWAV(w, samples, sampleRate); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	seconds := float64(len(samples)/2) / float64(sampleRate)
	log.Printf("wrote %s (%.2fs)", out, seconds)
	return nil
}
