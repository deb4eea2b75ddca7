package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cbegin/legatofx/internal/bend"
	"github.com/cbegin/legatofx/internal/clock"
	"github.com/cbegin/legatofx/internal/timing"
)

var glideInterval int

func init() {
	tableCmd.Flags().IntVar(&glideInterval, "interval", 5, "glide interval in semitones for the rate table")
	rootCmd.AddCommand(tableCmd)
}

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the bend table and glide step periods for the current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		bpm := s.Tempo
		if tempo > 0 {
			bpm = tempo
		}
		clk := clock.New(sampleRate, bpm)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

		table := bend.Rebuild(s.MinBend, s.MaxBend)
		fmt.Fprintln(w, "interval\tbend (ct)")
		for i := 1; i <= bend.Steps; i++ {
			fmt.Fprintf(w, "%d\t%.2f\n", i, table.Lookup(i))
		}
		fmt.Fprintln(w)

		fmt.Fprintf(w, "rate\tnote\tstep (%d st @ %.0f bpm)\n", glideInterval, clk.Tempo())
		for r := 0; r <= clock.NumRates; r++ {
			period := timing.GlideRate(glideInterval, 100, r, clock.NumRates, clk)
			fmt.Fprintf(w, "%d\t%s\t%v\n", r, clock.RateName(r), period)
		}
		return w.Flush()
	},
}
