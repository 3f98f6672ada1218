package models

import (
	"time"

	"github.com/uptrace/bun"
)

// SyncStamp is embedded in every row the reconciler touches. SyncRunID is the
// run that last wrote the row, LastSeenRunID the run that last observed it
// remotely. Pruning deletes rows whose LastSeenRunID isn't the current run.
type SyncStamp struct {
	SyncRunID     *string    `bun:"sync_run_id" json:"-"`
	LastSeenRunID *string    `bun:"last_seen_run_id" json:"-"`
	LastSeenAt    *time.Time `bun:"last_seen_at" json:"-"`
}

// Stamp marks the row as written and seen by run at the given time. A nil run
// (writes outside a reconciliation pass) leaves the stamp untouched.
func (s *SyncStamp) Stamp(run *SyncRun, at time.Time) {
	if run == nil {
		return
	}
	id := run.ID
	s.SyncRunID = &id
	s.LastSeenRunID = &id
	s.LastSeenAt = &at
}

const (
	RefreshReasonAppLaunch     = "app_launch"
	RefreshReasonUserInitiated = "user_initiated"
	RefreshReasonBackground    = "background"
	RefreshReasonReset         = "reset"
)

// SyncRun correlates every row written during one reconciliation pass.
type SyncRun struct {
	bun.BaseModel `bun:"table:sync_runs,alias:sr"`

	ID          string     `bun:"id,pk" json:"id"`
	Reason      string     `bun:"reason,notnull" json:"reason"`
	StartedAt   time.Time  `bun:"started_at,notnull" json:"started_at"`
	CompletedAt *time.Time `bun:"completed_at" json:"completed_at,omitempty"`
}

const (
	CheckpointLastRefreshedAt = "library.last_refreshed_at"
)

// SyncCheckpoint is a last-value-wins key/value row, optionally tied to the
// run that wrote it.
type SyncCheckpoint struct {
	bun.BaseModel `bun:"table:sync_checkpoints,alias:sc"`

	Key       string    `bun:"key,pk" json:"key"`
	Value     string    `bun:"value,notnull" json:"value"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
	SyncRunID *string   `bun:"sync_run_id" json:"sync_run_id,omitempty"`
}
