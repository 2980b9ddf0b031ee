package store

import "golang.org/x/sys/unix"

// DiskPressure classifies free-space headroom on the filesystem backing
// path. "fatal" must be checked before any write attempt; "critical"
// only affects the archive queue's write-behind path, which degrades to
// a no-op rather than failing the caller.
type DiskPressure int

const (
	PressureOK DiskPressure = iota
	PressureCritical
	PressureFatal
)

// CheckDiskPressure reports the disk-pressure tier for the filesystem
// containing path, given the configured critical/fatal thresholds
// (fractions of total capacity in use).
func CheckDiskPressure(path string, criticalPercent, fatalPercent float64) (DiskPressure, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return PressureOK, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	if total == 0 {
		return PressureOK, nil
	}
	used := float64(total-free) / float64(total)

	switch {
	case used >= fatalPercent:
		return PressureFatal, nil
	case used >= criticalPercent:
		return PressureCritical, nil
	default:
		return PressureOK, nil
	}
}
