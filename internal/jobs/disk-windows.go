//go:build windows

package jobs

import "golang.org/x/sys/windows"

func statFS(path string) (uint64, uint64, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, 0, err
	}
	var freeAvail, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(p, &freeAvail, &total, &totalFree); err != nil {
		return 0, 0, err
	}
	return total, freeAvail, nil
}
