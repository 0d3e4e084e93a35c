package domain

import (
	"time"

	"github.com/google/uuid"
)

// RotationStatus is the state of the rotation orchestrator or of one recorded run.
type RotationStatus string

const (
	// RotationIdle means no sweep is running.
	RotationIdle RotationStatus = "idle"
	// RotationSweeping means records are being re-encrypted. The old key is still active.
	RotationSweeping RotationStatus = "sweeping"
	// RotationCompleted means every entity was swept and the new key was activated.
	RotationCompleted RotationStatus = "completed"
	// RotationAborted means the sweep stopped early and the old key stayed active.
	RotationAborted RotationStatus = "aborted"
)

// RotationSummary is returned to the operator after a rotation attempt.
//
// A completed run with Errors > 0 still swapped the key: the failed records keep
// their old-key envelopes and must be inspected by an operator.
type RotationSummary struct {
	RunID       uuid.UUID      `json:"run_id"`
	Reencrypted int            `json:"reencrypted"`
	Errors      int            `json:"errors"`
	Status      RotationStatus `json:"status"`
}

// RotationRun is the persisted audit row for one rotation attempt.
type RotationRun struct {
	ID             uuid.UUID      `json:"id"`
	Status         RotationStatus `json:"status"`
	OldFingerprint string         `json:"old_fingerprint"`
	NewFingerprint string         `json:"new_fingerprint"`
	Reencrypted    int            `json:"reencrypted"`
	Errors         int            `json:"errors"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
}

// MasterKeyRotation is the outcome of rotating the active master key.
type MasterKeyRotation struct {
	Summary *RotationSummary
	// NewKey is the key activated by a completed run.
	NewKey *MasterKey
	// Generated is true when NewKey was generated rather than supplied.
	Generated bool
}
