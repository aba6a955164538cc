//go:build unix

package probe

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

func processExists(pid int) bool {
	err := unix.Kill(pid, 0)
	// EPERM means the process exists but belongs to someone else.
	return err == nil || errors.Is(err, unix.EPERM)
}

func terminate(pid int) bool {
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		log.Debug().Str("op", "probe/terminate").Int("pid", pid).Err(err).Msg("signal not delivered")
		return false
	}
	return true
}

// commandLine returns the argv of pid, or nil when it cannot be read
// (including zombies, whose cmdline is empty). Systems without /proc fall
// back to ps, which loses argument boundaries.
func commandLine(pid int) []string {
	raw, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/cmdline")
	if err == nil {
		raw = bytes.TrimRight(raw, "\x00")
		if len(raw) == 0 {
			return nil
		}
		return strings.Split(string(raw), "\x00")
	}
	out, err := exec.Command("ps", "-o", "command=", "-p", strconv.Itoa(pid)).Output()
	if err != nil {
		return nil
	}
	return strings.Fields(string(out))
}
