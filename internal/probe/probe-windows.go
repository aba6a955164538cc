//go:build windows

package probe

import (
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/windows"
)

const stillActive = 259

func processExists(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return errors.Is(err, windows.ERROR_ACCESS_DENIED)
	}
	defer windows.CloseHandle(h)
	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == stillActive
}

// terminate ends pid with TerminateProcess. A detached console process has
// no graceful stop on Windows; the agent's --continue picks up the partial
// file on resume.
func terminate(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		log.Debug().Str("op", "probe/terminate").Int("pid", pid).Err(err).Msg("process not opened")
		return false
	}
	defer windows.CloseHandle(h)
	if err := windows.TerminateProcess(h, 1); err != nil {
		log.Debug().Str("op", "probe/terminate").Int("pid", pid).Err(err).Msg("process not terminated")
		return false
	}
	return true
}

// commandLine returns the image path of pid as a one-element argv.
func commandLine(pid int) []string {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return nil
	}
	defer windows.CloseHandle(h)
	buf := make([]uint16, 1024)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return nil
	}
	return []string{windows.UTF16ToString(buf[:size])}
}
