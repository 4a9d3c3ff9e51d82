package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusPaused    = "paused"
	EnrollmentStatusCompleted = "completed"
	EnrollmentStatusFailed    = "failed"
)

// SequenceEnrollment tracks one prospect's progress through one sequence.
// At most one row exists per (prospect, sequence) pair; re-enrolling resets
// the existing row to a fresh run.
type SequenceEnrollment struct {
	gorm.Model
	ProspectID uint `gorm:"not null;uniqueIndex:idx_enrollment_prospect_sequence" json:"prospect_id"`
	SequenceID uint `gorm:"not null;uniqueIndex:idx_enrollment_prospect_sequence" json:"sequence_id"`

	CurrentStep int    `gorm:"default:0" json:"current_step"`
	Status      string `gorm:"default:'active';index" json:"status"` // active, paused, completed, failed

	// When the current step should next be processed; nil once the
	// enrollment leaves the active state.
	NextActionAt *time.Time `gorm:"index" json:"next_action_at"`

	PausedAt    *time.Time `json:"paused_at"`
	CompletedAt *time.Time `json:"completed_at"`
	FailedAt    *time.Time `json:"failed_at"`
	LastError   string     `json:"last_error"`

	// Relations
	Prospect Prospect `json:"-"`
	Sequence Sequence `json:"-"`
}
