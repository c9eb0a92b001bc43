package pipeline

// Status is the aggregate outcome of a run. Every run ends in exactly one of
// these; nothing escapes the top-level entry points unconverted.
type Status int

const (
	// StatusSuccess means everything the run planned was applied.
	StatusSuccess Status = iota
	// StatusPartial means the run completed but some resolutions, queues, or
	// moves failed.
	StatusPartial
	// StatusDependencyFailed means an upstream service was unreachable after
	// retries and the run aborted.
	StatusDependencyFailed
	// StatusFailed means an internal error (state files, database) stopped
	// the run.
	StatusFailed
	// StatusInterrupted means the user cancelled mid-run.
	StatusInterrupted
)

// ExitCode maps a status to the process exit convention consumed by external
// monitoring.
func (s Status) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 10
	case StatusDependencyFailed:
		return 20
	case StatusInterrupted:
		return 130
	default:
		return 30
	}
}

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "succeeded"
	case StatusPartial:
		return "degraded"
	case StatusDependencyFailed:
		return "dependency-failed"
	case StatusInterrupted:
		return "interrupted"
	default:
		return "failed"
	}
}
