package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/fetchd/internal/output"
	"github.com/tanq16/fetchd/internal/parser"
	"github.com/tanq16/fetchd/internal/utils"
)

func newWatchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show a live view of all jobs until interrupted",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			memo := parser.NewMemo(nil, 0)
			board := output.NewBoard(os.Stdout, interval, func() ([]output.BoardRow, error) {
				sums, err := manager.SummariesMemo(memo)
				if err != nil {
					return nil, err
				}
				rows := make([]output.BoardRow, 0, len(sums))
				for _, s := range sums {
					title := utils.RedactURL(s.Snapshot.URL)
					if s.Snapshot.URL == "" {
						title = s.ID
					}
					rows = append(rows, output.BoardRow{
						ID:      s.ID,
						Title:   title,
						State:   s.State.String(),
						Percent: s.Snapshot.Percent,
						Detail:  s.Snapshot.Speed + " " + output.StyleSymbols["bullet"] + " eta " + s.Snapshot.ETA,
					})
				}
				return rows, nil
			})

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sig)

			board.StartDisplay()
			select {
			case <-sig:
			case <-cmd.Context().Done():
			}
			board.StopDisplay()
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Second, "Refresh interval")
	return cmd
}
