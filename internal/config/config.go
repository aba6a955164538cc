package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/tanq16/fetchd/internal/utils"
	"gopkg.in/yaml.v3"
)

// Config holds fetchd configuration.
type Config struct {
	WorkDir     string       `yaml:"work_dir" toml:"work_dir"`
	DownloadDir string       `yaml:"download_dir" toml:"download_dir"`
	AuditLog    string       `yaml:"audit_log" toml:"audit_log"`
	Agent       AgentConfig  `yaml:"agent" toml:"agent"`
	Server      ServerConfig `yaml:"server" toml:"server"`
}

// AgentConfig describes how the external download agent is invoked.
type AgentConfig struct {
	Path       string        `yaml:"path" toml:"path"`
	UserAgent  string        `yaml:"user_agent" toml:"user_agent"`
	Tries      int           `yaml:"tries" toml:"tries"`
	WaitRetry  time.Duration `yaml:"wait_retry" toml:"wait_retry"`
	RandomWait bool          `yaml:"random_wait" toml:"random_wait"`
	LimitRate  string        `yaml:"limit_rate" toml:"limit_rate"`
	ExtraArgs  []string      `yaml:"extra_args" toml:"extra_args"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// DefaultWorkDir returns the artifact directory under XDG_STATE_HOME.
func DefaultWorkDir() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, _ := os.UserHomeDir()
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, utils.ToolName, "jobs")
}

// DefaultDownloadDir returns ~/Downloads.
func DefaultDownloadDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Downloads")
}

func Default() *Config {
	return &Config{
		WorkDir:     DefaultWorkDir(),
		DownloadDir: DefaultDownloadDir(),
		Agent: AgentConfig{
			Path:       utils.DefaultAgentPath,
			UserAgent:  utils.ToolUserAgent,
			Tries:      utils.DefaultTries,
			WaitRetry:  utils.DefaultWaitRetry,
			RandomWait: true,
		},
		Server: ServerConfig{Addr: utils.DefaultAddr},
	}
}

// Load builds a Config from defaults, the optional file at path and the
// environment. Flags are applied afterwards by the caller via BindFlags.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("parse TOML config %s: %w", path, err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse YAML config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (use .yaml, .yml or .toml)", filepath.Ext(path))
	}
	log.Debug().Str("op", "config/load").Msgf("loaded config from %s", path)
	return nil
}

// LoadDotEnv reads FETCHD_* variables from a .env file in dir. Variables
// already set in the environment win. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	log.Debug().Str("op", "config/dotenv").Msgf("loaded environment from %s", path)
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FETCHD_WORK_DIR"); v != "" {
		c.WorkDir = v
	}
	if v := os.Getenv("FETCHD_DOWNLOAD_DIR"); v != "" {
		c.DownloadDir = v
	}
	if v := os.Getenv("FETCHD_AGENT"); v != "" {
		c.Agent.Path = v
	}
	if v := os.Getenv("FETCHD_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

// BindFlags registers flags that override c when set on the command line.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.WorkDir, "work-dir", c.WorkDir, "Directory holding job records (.url, .pid, .stat)")
	fs.StringVar(&c.DownloadDir, "download-dir", c.DownloadDir, "Directory downloads are saved to")
	fs.StringVar(&c.AuditLog, "audit-log", c.AuditLog, "Append-only log of added URLs (default <work-dir>/download.log)")
	fs.StringVar(&c.Agent.Path, "agent", c.Agent.Path, "Path to the wget-compatible download agent")
	fs.StringVarP(&c.Agent.UserAgent, "user-agent", "a", c.Agent.UserAgent, "User agent sent by the agent ('randomize' picks one)")
	fs.IntVar(&c.Agent.Tries, "tries", c.Agent.Tries, "Agent retry count")
	fs.DurationVar(&c.Agent.WaitRetry, "wait-retry", c.Agent.WaitRetry, "Maximum wait between agent retries")
	fs.StringVar(&c.Agent.LimitRate, "limit-rate", c.Agent.LimitRate, "Agent bandwidth limit (eg. 25k, 2m)")
}

// AuditLogPath resolves the audit log location.
func (c *Config) AuditLogPath() string {
	if c.AuditLog != "" {
		return c.AuditLog
	}
	return filepath.Join(c.WorkDir, utils.AuditLogFile)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.WorkDir) == "" {
		return errors.New("work-dir cannot be empty")
	}
	if strings.TrimSpace(c.DownloadDir) == "" {
		return errors.New("download-dir cannot be empty")
	}
	if strings.TrimSpace(c.Agent.Path) == "" {
		return errors.New("agent path cannot be empty")
	}
	if c.Agent.Tries < 1 {
		return fmt.Errorf("tries must be at least 1: got %d", c.Agent.Tries)
	}
	if c.Agent.WaitRetry < 0 {
		return fmt.Errorf("wait-retry cannot be negative: got %s", c.Agent.WaitRetry)
	}
	return nil
}

// EnsureDirs creates the work and download directories. Failure is only
// logged; later writes surface the real error.
func (c *Config) EnsureDirs() {
	for _, dir := range []string{c.WorkDir, c.DownloadDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			log.Warn().Str("op", "config/dirs").Err(err).Msgf("could not create %s", dir)
		}
	}
}
