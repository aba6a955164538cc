//go:build !unix && !windows

package probe

// No process table is available here; every pid reads as not running.

func processExists(int) bool {
	return false
}

func terminate(int) bool {
	return false
}

func commandLine(int) []string {
	return nil
}
