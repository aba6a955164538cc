package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/fetchd/internal/jobs"
	"github.com/tanq16/fetchd/internal/output"
	"github.com/tanq16/fetchd/internal/scheduler"
	"github.com/tanq16/fetchd/internal/utils"
	"gopkg.in/yaml.v3"
)

type BatchEntry struct {
	Link   string `yaml:"link"`
	Subdir string `yaml:"subdir,omitempty"`
}

// BatchFile groups entries by destination subdirectory; "." or "root" means
// the download dir itself.
type BatchFile map[string][]BatchEntry

type batchJob struct {
	url    string
	subdir string
}

func newBatchCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "batch [YAML_FILE]",
		Short: "Start downloads for every URL in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read batch file: %w", err)
			}
			var batchFile BatchFile
			if err := yaml.Unmarshal(data, &batchFile); err != nil {
				return fmt.Errorf("parse batch file: %w", err)
			}
			batch := buildJobsFromBatch(batchFile)
			if len(batch) == 0 {
				return fmt.Errorf("no valid entries in %s", args[0])
			}

			tasks := make([]scheduler.Task, 0, len(batch))
			for _, j := range batch {
				tasks = append(tasks, scheduler.Task{
					Name: utils.RedactURL(j.url),
					Run: func(ctx context.Context) (string, error) {
						id, err := manager.AddJob(ctx, j.url, j.subdir)
						if errors.Is(err, jobs.ErrAlreadyRunning) {
							return id + " (already running)", nil
						}
						return id, err
					},
				})
			}

			var failed int
			for _, r := range scheduler.Run(cmd.Context(), tasks, workers) {
				if r.Err != nil {
					failed++
					output.PrintError(fmt.Sprintf("%s %s: %v", output.StyleSymbols["fail"], r.Name, r.Err))
					continue
				}
				output.PrintSuccess(fmt.Sprintf("%s %s %s %s", output.StyleSymbols["pass"], r.Message, output.StyleSymbols["arrow"], r.Name))
			}
			fmt.Println()
			output.PrintInfo(fmt.Sprintf("Started %d of %d", len(batch)-failed, len(batch)))
			if failed > 0 {
				return fmt.Errorf("%d downloads failed to start", failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Number of downloads to start concurrently")
	return cmd
}

func buildJobsFromBatch(batchFile BatchFile) []batchJob {
	sections := make([]string, 0, len(batchFile))
	for s := range batchFile {
		sections = append(sections, s)
	}
	sort.Strings(sections)

	var out []batchJob
	for _, section := range sections {
		for _, entry := range batchFile[section] {
			link := strings.TrimSpace(entry.Link)
			if link == "" {
				log.Warn().Str("op", "cmd/batch").Msgf("empty link in %s section, skipping", section)
				continue
			}
			subdir := entry.Subdir
			if subdir == "" {
				subdir = normalizeSection(section)
			}
			out = append(out, batchJob{url: link, subdir: subdir})
		}
	}
	return out
}

func normalizeSection(section string) string {
	switch strings.ToLower(strings.TrimSpace(section)) {
	case "", ".", "root", "default":
		return ""
	default:
		return section
	}
}
