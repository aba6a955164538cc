//go:build !linux && !darwin && !windows

package jobs

import (
	"errors"
	"runtime"
)

func statFS(string) (uint64, uint64, error) {
	return 0, 0, errors.New("disk usage not supported on " + runtime.GOOS)
}
