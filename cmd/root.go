package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tanq16/fetchd/internal/agent"
	"github.com/tanq16/fetchd/internal/config"
	"github.com/tanq16/fetchd/internal/jobs"
	"github.com/tanq16/fetchd/internal/output"
	"github.com/tanq16/fetchd/internal/probe"
	"github.com/tanq16/fetchd/internal/store"
	"github.com/tanq16/fetchd/internal/utils"
)

var (
	cfgFile string
	debug   bool
	logFile string

	// flagCfg only collects flag values; cfg is the resolved configuration.
	flagCfg = config.Default()
	cfg     *config.Config
	manager *jobs.Manager
)

var FetchdVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "fetchd",
	Short:   "fetchd runs resumable wget downloads in the background and tracks them",
	Version: FetchdVersion,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var logOut io.Writer
		if logFile != "" {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			logOut = f
		}
		utils.InitLogger(debug, logOut)
		return setup(cmd.Flags())
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// setup resolves configuration (defaults, .env, file, environment, then
// flags) and builds the job manager.
func setup(flags *pflag.FlagSet) error {
	if wd, err := os.Getwd(); err == nil {
		if err := config.LoadDotEnv(wd); err != nil {
			log.Warn().Str("op", "cmd/setup").Err(err).Msg("ignoring .env")
		}
	}
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	overrides := pflag.NewFlagSet("overrides", pflag.ContinueOnError)
	loaded.BindFlags(overrides)
	var setErr error
	flags.Visit(func(f *pflag.Flag) {
		if overrides.Lookup(f.Name) == nil || setErr != nil {
			return
		}
		if err := overrides.Set(f.Name, f.Value.String()); err != nil {
			setErr = fmt.Errorf("flag --%s: %w", f.Name, err)
		}
	})
	if setErr != nil {
		return setErr
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	if abs, err := filepath.Abs(loaded.DownloadDir); err == nil {
		loaded.DownloadDir = abs
	}
	loaded.EnsureDirs()
	cfg = loaded

	if path, err := agent.Locate(cfg.Agent.Path); err == nil {
		cfg.Agent.Path = path
	} else {
		log.Debug().Str("op", "cmd/setup").Err(err).Msg("agent not found, launches will fail")
	}
	st := store.New(cfg.WorkDir, cfg.AuditLogPath())
	manager = jobs.NewManager(st, probe.New(cfg.Agent.Path), agent.NewWget(cfg.Agent), cfg.DownloadDir)
	log.Debug().Str("op", "cmd/setup").Str("work_dir", cfg.WorkDir).Str("download_dir", cfg.DownloadDir).Msg("configured")
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		output.PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write JSON logs to this file instead of stderr")
	flagCfg.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newPauseCmd())
	rootCmd.AddCommand(newResumeCmd())
	rootCmd.AddCommand(newRemoveCmd())
	rootCmd.AddCommand(newRemoveFileCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newDetailsCmd())
	rootCmd.AddCommand(newDiskCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newServeCmd())
}
