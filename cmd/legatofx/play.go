package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver
	"golang.org/x/sync/errgroup"

	"github.com/cbegin/legatofx"
	"github.com/cbegin/legatofx/internal/midiio"
)

var (
	portName  string
	listPorts bool
)

func init() {
	playCmd.Flags().StringVar(&portName, "port", "", "MIDI input port name (default: first port)")
	playCmd.Flags().BoolVar(&listPorts, "list", false, "list MIDI input ports and exit")
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play [file.mid]",
	Short: "Play a MIDI file, or live MIDI input when no file is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer midi.CloseDriver()
		if listPorts {
			for _, name := range midiio.InputNames() {
				fmt.Println(name)
			}
			return nil
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if len(args) == 1 {
			return playFile(ctx, args[0])
		}
		return playLive(ctx)
	},
}

func newInstrument() (*legatofx.Instrument, error) {
	opts, err := instrumentOptions()
	if err != nil {
		return nil, err
	}
	return legatofx.NewInstrument(sampleRate, opts...)
}

func playFile(ctx context.Context, path string) error {
	song, err := midiio.ReadFile(path)
	if err != nil {
		return err
	}
	inst, err := newInstrument()
	if err != nil {
		return err
	}
	if song.Tempo > 0 {
		inst.SetTempo(song.Tempo)
	}
	inst.Schedule(song.Events)
	if err := inst.Play(true); err != nil {
		return err
	}
	log.Printf("[%s] playing %s (%s)", inst.ID(), path, song.Length)

	g, ctx := errgroup.WithContext(ctx)
	finished := make(chan struct{})
	g.Go(func() error {
		inst.Wait()
		close(finished)
		return nil
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			log.Printf("[%s] interrupted", inst.ID())
		case <-finished:
		}
		return inst.Stop()
	})
	return g.Wait()
}

func playLive(ctx context.Context) error {
	inst, err := newInstrument()
	if err != nil {
		return err
	}
	in, err := midiio.OpenInput(portName)
	if err != nil {
		return err
	}
	if err := inst.Play(false); err != nil {
		return err
	}
	log.Printf("[%s] listening on %s, %s mode", inst.ID(), in, inst.Settings().Mode)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stopListening, err := midiio.Listen(in, inst.Now, inst.Send, func(err error) {
			log.Printf("[%s] midi input: %v", inst.ID(), err)
		})
		if err != nil {
			return err
		}
		<-ctx.Done()
		stopListening()
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Printf("[%s] shutting down", inst.ID())
		return inst.Stop()
	})
	return g.Wait()
}
