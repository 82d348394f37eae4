package models

// FileStatus is the lifecycle state of a file attempt (and, derived, of a job).
type FileStatus string

const (
	StatusPending    FileStatus = "pending"
	StatusProcessing FileStatus = "processing"
	StatusCompleted  FileStatus = "completed"
	StatusFailed     FileStatus = "failed"
)

// Terminal reports whether no further transitions are allowed out of s.
func (s FileStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ComputeOverallStatus derives a job's overall status from the current
// statuses of all of its file attempts. It must be called with the full
// attempt set each time; a single late failure or success can change the
// correct aggregate.
//
// Rules, in order:
//  1. all completed            -> completed
//  2. any failed, none in flight -> failed
//     any failed, some in flight -> processing
//  3. any processing or pending  -> processing
//  4. otherwise pending (defensive default for an inconsistent read;
//     unreachable once any attempt has started)
func ComputeOverallStatus(statuses []FileStatus) FileStatus {
	if len(statuses) == 0 {
		return StatusFailed
	}

	allCompleted := true
	anyFailed := false
	anyInFlight := false
	for _, s := range statuses {
		if s != StatusCompleted {
			allCompleted = false
		}
		if s == StatusFailed {
			anyFailed = true
		}
		if s == StatusPending || s == StatusProcessing {
			anyInFlight = true
		}
	}

	switch {
	case allCompleted:
		return StatusCompleted
	case anyFailed && !anyInFlight:
		return StatusFailed
	case anyFailed:
		return StatusProcessing
	case anyInFlight:
		return StatusProcessing
	default:
		return StatusPending
	}
}
