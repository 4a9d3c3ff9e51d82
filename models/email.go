package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	EmailDraftStatusDraft  = "draft"
	EmailDraftStatusSent   = "sent"
	EmailDraftStatusFailed = "failed"
)

// EmailDraft is a materialized email step waiting for a human to send it.
// The engine writes it once and never touches it again; sending is owned by
// the email subsystem.
type EmailDraft struct {
	gorm.Model
	UserID     uint `gorm:"not null;index" json:"user_id"`
	ProspectID uint `gorm:"not null;index" json:"prospect_id"`

	Subject string `gorm:"not null" json:"subject"`
	Body    string `gorm:"type:text" json:"body"`
	Status  string `gorm:"default:'draft'" json:"status"` // draft, sent, failed

	SentAt    *time.Time `json:"sent_at"`
	MessageID string     `json:"message_id"`
	LastError string     `json:"last_error"`

	// Trace tags back to the sequence engine
	SequenceID   *uint  `gorm:"index" json:"sequence_id,omitempty"`
	SequenceName string `json:"sequence_name"`
	StepID       *uint  `json:"step_id,omitempty"`
	StepName     string `json:"step_name"`
	EnrollmentID *uint  `gorm:"index" json:"enrollment_id,omitempty"`

	// Relations
	Prospect Prospect `json:"-"`
}
