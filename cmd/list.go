package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanq16/fetchd/internal/jobs"
	"github.com/tanq16/fetchd/internal/output"
	"github.com/tanq16/fetchd/internal/parser"
	"github.com/tanq16/fetchd/internal/utils"
)

func newListCmd() *cobra.Command {
	var (
		asJSON   bool
		markdown bool
		idsOnly  bool
		outPath  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs with their state and progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if idsOnly {
				ids, err := manager.ListJobs()
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Println(id)
				}
				return nil
			}
			sums, err := manager.Summaries()
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(sums)
			}
			if len(sums) == 0 {
				output.PrintInfo("No jobs")
				return nil
			}
			table := output.NewTable("ID", "State", "Progress", "Speed", "ETA", "URL")
			for _, s := range sums {
				table.AddRow(
					s.ID,
					output.FState(s.State.String()),
					output.FormatPercent(s.Snapshot.Percent),
					s.Snapshot.Speed,
					s.Snapshot.ETA,
					utils.RedactURL(s.Snapshot.URL),
				)
			}
			if outPath != "" {
				if err := table.WriteMarkdownTableToFile(outPath); err != nil {
					return fmt.Errorf("write %s: %w", outPath, err)
				}
				output.PrintSuccess(fmt.Sprintf("%s Wrote %d jobs to %s", output.StyleSymbols["pass"], len(sums), outPath))
				return nil
			}
			table.PrintTable(markdown)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print a markdown table")
	cmd.Flags().BoolVarP(&idsOnly, "quiet", "q", false, "Print job ids only")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write a markdown table to this file")
	return cmd
}

func newDetailsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "details [JOB_ID]",
		Short: "Show the parsed status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			snap, err := manager.Details(id)
			if err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			state := manager.State(id)
			if asJSON {
				return printJSON(map[string]any{"id": id, "state": state, "snapshot": snap})
			}
			printDetails(id, state, snap)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func printDetails(id string, state jobs.State, snap parser.Snapshot) {
	output.PrintHeader(id)
	rows := [][2]string{
		{"State", output.FState(state.String())},
		{"URL", utils.RedactURL(snap.URL)},
		{"File", snap.SaveFile},
		{"Size", output.FormatSize(snap.SizeBytes)},
		{"Fetched", output.FormatSize(snap.FetchedBytes)},
		{"Progress", output.ProgressBar(snap.Percent, 30)},
		{"Speed", snap.Speed},
		{"ETA", snap.ETA},
	}
	if snap.StatusCode != 0 {
		rows = append(rows, [2]string{"Status", fmt.Sprint(snap.StatusCode)})
	}
	for _, r := range rows {
		fmt.Printf("  %s %s\n", output.FDetail(fmt.Sprintf("%-9s", r[0])), r[1])
	}
}

func newDiskCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "disk",
		Short: "Show usage of the download directory's filesystem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			du, err := manager.DiskUsage()
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(du)
			}
			table := output.NewTable("Path", "Total", "Used", "Free", "Used %")
			table.AddRow(manager.DownloadDir(), output.FormatBytes(du.Total), output.FormatBytes(du.Used), output.FormatBytes(du.Free), du.Percent+"%")
			table.PrintTable(false)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
