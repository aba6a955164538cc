package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanq16/fetchd/internal/jobs"
	"github.com/tanq16/fetchd/internal/output"
	"github.com/tanq16/fetchd/internal/utils"
)

func newAddCmd() *cobra.Command {
	var subdir string

	cmd := &cobra.Command{
		Use:   "add [URL] [--subdir DIR]",
		Short: "Start a background download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := manager.AddJob(cmd.Context(), args[0], subdir)
			if errors.Is(err, jobs.ErrAlreadyRunning) {
				output.PrintInfo(fmt.Sprintf("%s %s is already running", output.StyleSymbols["info"], id))
				return nil
			}
			if err != nil {
				if errors.Is(err, jobs.ErrInvalidURL) {
					return err
				}
				return fmt.Errorf("add %s: %w", utils.RedactURL(args[0]), err)
			}
			output.PrintSuccess(fmt.Sprintf("%s Started %s", output.StyleSymbols["pass"], id))
			return nil
		},
	}

	cmd.Flags().StringVarP(&subdir, "subdir", "s", "", "Subdirectory of the download dir to save into")
	return cmd
}

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause [JOB_ID]",
		Short: "Stop a running download, keeping the partial file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !manager.PauseJob(args[0]) {
				return fmt.Errorf("job %s is not running", args[0])
			}
			output.PrintSuccess(fmt.Sprintf("%s Paused %s", output.StyleSymbols["pass"], args[0]))
			return nil
		},
	}
}

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume [JOB_ID]",
		Short: "Continue a paused download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := manager.ResumeJob(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("resume %s: %w", args[0], err)
			}
			if !ok {
				return fmt.Errorf("job %s is running, finished or unknown", args[0])
			}
			output.PrintSuccess(fmt.Sprintf("%s Resumed %s", output.StyleSymbols["pass"], args[0]))
			return nil
		},
	}
}

func newRemoveCmd() *cobra.Command {
	var pause bool

	cmd := &cobra.Command{
		Use:   "remove [JOB_ID]...",
		Short: "Forget jobs (downloaded files are kept)",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			for _, id := range args {
				if pause {
					manager.PauseJob(id)
				}
				manager.RemoveJob(id)
				output.PrintSuccess(fmt.Sprintf("%s Removed %s", output.StyleSymbols["pass"], id))
			}
		},
	}

	cmd.Flags().BoolVar(&pause, "pause", false, "Stop the agent first if it is running")
	return cmd
}

func newRemoveFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-file [JOB_ID]",
		Short: "Delete a job's downloaded file (the job record is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := manager.RemoveDownloadedFile(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("job %s is still running, pause it first", args[0])
			}
			output.PrintSuccess(fmt.Sprintf("%s Removed file of %s", output.StyleSymbols["pass"], args[0]))
			return nil
		},
	}
}
