//go:build linux || darwin

package jobs

import "golang.org/x/sys/unix"

// statFS returns total and caller-available bytes.
func statFS(path string) (uint64, uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, err
	}
	bsize := uint64(st.Bsize)
	return st.Blocks * bsize, st.Bavail * bsize, nil
}
