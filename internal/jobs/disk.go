package jobs

import "fmt"

// DiskUsage describes the filesystem holding the download directory.
type DiskUsage struct {
	Total   uint64 `json:"total"`
	Free    uint64 `json:"free"`
	Used    uint64 `json:"used"`
	Percent string `json:"percent"`
}

func computeUsage(total, free uint64) DiskUsage {
	if free > total {
		free = total
	}
	used := total - free
	pct := 0.0
	if total > 0 {
		pct = 100 * float64(used) / float64(total)
	}
	return DiskUsage{Total: total, Free: free, Used: used, Percent: fmt.Sprintf("%.2f", pct)}
}

// DiskUsage reports usage of the filesystem holding the download directory.
func (m *Manager) DiskUsage() (DiskUsage, error) {
	total, free, err := statFS(m.downloadDir)
	if err != nil {
		return DiskUsage{}, fmt.Errorf("disk usage of %s: %w", m.downloadDir, err)
	}
	return computeUsage(total, free), nil
}
