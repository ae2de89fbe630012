package domain

// JobKind enumerates the two units of asynchronous work.
type JobKind string

const (
	JobKindCreate JobKind = "create"
	JobKindEdit   JobKind = "edit"
)

// JobStatus enumerates job lifecycle states. A job moves
// PENDING -> STARTED -> SUCCESS | FAILURE and never leaves a terminal state.
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusStarted JobStatus = "STARTED"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailure JobStatus = "FAILURE"
)
