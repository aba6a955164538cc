// Package agent starts the external download agent (wget) for a job. The
// agent daemonizes itself and reports its pid on startup; everything after
// that happens through the files it writes.
package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/fetchd/internal/config"
	"github.com/tanq16/fetchd/internal/utils"
)

// ErrNoProcessID is returned when the agent did not report a usable pid.
var ErrNoProcessID = errors.New("agent reported no process id")

var rePID = regexp.MustCompile(`[0-9]+`)

// launchWaitDelay bounds how long Launch waits on output pipes a forked
// child might still hold.
const launchWaitDelay = 5 * time.Second

// Invocation is one launch of the agent for a job.
type Invocation struct {
	URL       string
	InputFile string
	DestDir   string
	LogFile   string
}

type Wget struct {
	cfg config.AgentConfig
}

func NewWget(cfg config.AgentConfig) *Wget {
	if cfg.Path == "" {
		cfg.Path = utils.DefaultAgentPath
	}
	return &Wget{cfg: cfg}
}

func (w *Wget) Path() string {
	return w.cfg.Path
}

// Args builds the argument vector for inv. The URL is passed as the referer
// and read from the input file, never through a shell.
func (w *Wget) Args(inv Invocation) []string {
	args := []string{
		"--continue",
		"--user-agent=" + utils.ResolveUserAgent(w.cfg.UserAgent),
		"--tries=" + strconv.Itoa(w.cfg.Tries),
	}
	if w.cfg.RandomWait {
		args = append(args, "--random-wait")
	}
	args = append(args, "--waitretry="+strconv.Itoa(int(w.cfg.WaitRetry/time.Second)))
	if w.cfg.LimitRate != "" {
		args = append(args, "--limit-rate="+w.cfg.LimitRate)
	}
	args = append(args,
		"--referer="+inv.URL,
		"--background",
		"--input-file="+inv.InputFile,
		"--progress=dot",
		"--directory-prefix="+inv.DestDir,
		"--output-file="+inv.LogFile,
	)
	return append(args, w.cfg.ExtraArgs...)
}

// Launch runs the agent and returns the pid of its background process. The
// agent forks and exits right away, so this does not wait for the download.
func (w *Wget) Launch(ctx context.Context, inv Invocation) (int, error) {
	cmd := exec.CommandContext(ctx, w.cfg.Path, w.Args(inv)...)
	cmd.WaitDelay = launchWaitDelay
	log.Debug().Str("op", "agent/launch").Str("agent", w.cfg.Path).Str("url", utils.RedactURL(inv.URL)).Msg("starting agent")

	out, runErr := cmd.CombinedOutput()
	pid, ok := ParsePID(string(out))
	if !ok {
		if runErr != nil {
			return -1, fmt.Errorf("%w: %s: %v", ErrNoProcessID, w.cfg.Path, runErr)
		}
		return -1, fmt.Errorf("%w: output %q", ErrNoProcessID, firstLine(string(out)))
	}
	if runErr != nil {
		log.Warn().Str("op", "agent/launch").Int("pid", pid).Err(runErr).Msg("agent exited with error after reporting pid")
	}
	log.Debug().Str("op", "agent/launch").Int("pid", pid).Msg("agent running in background")
	return pid, nil
}

// ParsePID returns the first integer in the agent's startup output, e.g.
// "Continuing in background, pid 12345.".
func ParsePID(out string) (int, bool) {
	m := rePID.FindString(out)
	if m == "" {
		return -1, false
	}
	pid, err := strconv.Atoi(m)
	if err != nil || pid <= 0 {
		return -1, false
	}
	return pid, true
}

// Locate resolves the agent binary from PATH, then next to the fetchd
// executable.
func Locate(name string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("agent %s: %w", name, err)
		}
		return name, nil
	}
	path, err := exec.LookPath(name)
	if err == nil {
		return path, nil
	}
	execPath, execErr := os.Executable()
	if execErr == nil {
		candidate := filepath.Join(filepath.Dir(execPath), name)
		if runtime.GOOS == "windows" && !strings.HasSuffix(candidate, ".exe") {
			candidate += ".exe"
		}
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("agent %s not found: %w", name, err)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
