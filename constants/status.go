package constants

// JobStatus is the canonical status for rows in import_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusPending        JobStatus = "pending"
	JobStatusProcessing     JobStatus = "processing"
	JobStatusCompleted      JobStatus = "completed"
	JobStatusFailed         JobStatus = "failed"
	JobStatusPartialSuccess JobStatus = "partial_success"
)

// IsTerminal reports whether no worker will touch the job again.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusPartialSuccess:
		return true
	}
	return false
}

// ImportStatus is the overall outcome of one import run.
type ImportStatus string

const (
	ImportSuccess        ImportStatus = "success"
	ImportPartialSuccess ImportStatus = "partial_success"
	ImportFailed         ImportStatus = "failed"
)

// JobStatus maps a finished import outcome onto the job lifecycle.
func (s ImportStatus) JobStatus() JobStatus {
	switch s {
	case ImportSuccess:
		return JobStatusCompleted
	case ImportPartialSuccess:
		return JobStatusPartialSuccess
	default:
		return JobStatusFailed
	}
}

// ConflictStatus is the outcome of matching an incoming item against the catalog.
type ConflictStatus string

const (
	ConflictNone     ConflictStatus = "no_conflict"
	ConflictUpdate   ConflictStatus = "update_candidate"
	ConflictMultiple ConflictStatus = "multiple_candidates"
	ConflictSkipped  ConflictStatus = "skipped_by_user"
	ConflictError    ConflictStatus = "error_processing_conflict"
)

// NeedsUserAction is true when the caller has to pick a decision before import.
func (s ConflictStatus) NeedsUserAction() bool {
	return s == ConflictMultiple || s == ConflictError
}

type ImportDecision string

const (
	DecisionNew    ImportDecision = "new"
	DecisionUpdate ImportDecision = "update"
	DecisionSkip   ImportDecision = "skip"
)

type UserAction string

const (
	ActionKeep   UserAction = "keep"
	ActionIgnore UserAction = "ignore"
)
