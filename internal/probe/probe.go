// Package probe answers liveness questions about agent processes using only
// the OS process table.
package probe

import (
	"path/filepath"
	"strings"
)

// Probe checks processes against the name of the expected agent binary, so a
// recycled pid that now belongs to an unrelated program reads as not running.
type Probe struct {
	agent string
}

func New(agentPath string) *Probe {
	return &Probe{agent: filepath.Base(agentPath)}
}

func (p *Probe) Agent() string {
	return p.agent
}

// IsRunning reports whether pid is alive and its program is the agent.
// Invalid or stale ids are simply not running.
func (p *Probe) IsRunning(pid int) bool {
	if pid <= 0 || !processExists(pid) {
		return false
	}
	return matchesAgent(commandLine(pid), p.agent)
}

// Terminate sends SIGTERM to pid and reports whether the OS accepted it. It
// does not wait for the process to exit.
func (p *Probe) Terminate(pid int) bool {
	if pid <= 0 {
		return false
	}
	return terminate(pid)
}

// Launchers whose first argument is the program they run.
var wrappers = map[string]bool{
	"env":   true,
	"nice":  true,
	"nohup": true,
	"sh":    true,
	"bash":  true,
}

// matchesAgent checks the program in argv[0], or argv[1] when argv[0] is a
// wrapper such as env.
func matchesAgent(argv []string, agent string) bool {
	agent = programName(agent)
	if len(argv) == 0 || agent == "" {
		return false
	}
	prog := programName(argv[0])
	if prog == agent {
		return true
	}
	return wrappers[prog] && len(argv) > 1 && programName(argv[1]) == agent
}

func programName(path string) string {
	return strings.TrimSuffix(filepath.Base(strings.TrimSpace(path)), ".exe")
}
