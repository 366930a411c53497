package server

import (
	"fmt"
	"math"
	"net/http"

	"golang.org/x/sys/unix"
)

// diskUsage is the filesystem view of the releases root.
type diskUsage struct {
	TotalGB     float64 `json:"totalGB"`
	UsedGB      float64 `json:"usedGB"`
	FreeGB      float64 `json:"freeGB"`
	UsedPercent float64 `json:"usedPercent"`
}

// handleStorageStatus reports free space on the volume holding the releases
// root, with a warning once it drops below the configured threshold.
// GET /storage/status.
func (cs *CatalogServer) handleStorageStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		cs.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	usage, err := cs.diskUsage()
	if err != nil {
		cs.respondError(w, r, http.StatusInternalServerError, "Failed to read storage status", err)
		return
	}

	payload := map[string]any{
		"success":      true,
		"disk":         usage,
		"releasesPath": cs.store.Root(),
	}
	if usage.FreeGB < float64(cs.config.Releases.LowSpaceGB) {
		payload["warning"] = fmt.Sprintf("Low disk space! Only %.1f GB free", usage.FreeGB)
	}

	cs.respondJSON(w, http.StatusOK, payload)
}

// diskUsage runs statfs on the releases root and converts the block counts
// to GB figures.
func (cs *CatalogServer) diskUsage() (diskUsage, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(cs.store.Root(), &stat); err != nil {
		return diskUsage{}, fmt.Errorf("statfs %s: %w", cs.store.Root(), err)
	}

	blockSize := uint64(stat.Bsize)
	total := float64(stat.Blocks*blockSize) / (1 << 30)
	free := float64(stat.Bavail*blockSize) / (1 << 30)
	used := total - free

	usedPercent := 0.0
	if total > 0 {
		usedPercent = used / total * 100
	}

	return diskUsage{
		TotalGB:     roundTo(total, 2),
		UsedGB:      roundTo(used, 2),
		FreeGB:      roundTo(free, 2),
		UsedPercent: roundTo(usedPercent, 1),
	}, nil
}

func roundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}
