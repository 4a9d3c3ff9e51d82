package models

import (
	"time"

	"gorm.io/gorm"
)

// Step types are a closed set; the materializer rejects anything else.
const (
	StepTypeEmail    = "email"
	StepTypeCall     = "call"
	StepTypeLinkedIn = "linkedin"
	StepTypeTask     = "task"
	StepTypeWait     = "wait"
)

const (
	SequenceStatusActive   = "active"
	SequenceStatusInactive = "inactive"
)

// Sequence represents a reusable multi-channel outreach template
type Sequence struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Status      string `gorm:"default:'active'" json:"status"` // active, inactive

	// Relations
	Steps       []SequenceStep       `gorm:"foreignKey:SequenceID" json:"steps,omitempty"`
	Enrollments []SequenceEnrollment `gorm:"foreignKey:SequenceID" json:"enrollments,omitempty"`
}

// SequenceStep is one rung of a sequence's ladder. StepOrder is dense and
// zero-based within a sequence; deleting a step re-packs the remainder.
type SequenceStep struct {
	gorm.Model
	SequenceID uint `gorm:"not null;index" json:"sequence_id"`

	Name      string `json:"name"`
	StepOrder int    `gorm:"not null" json:"step_order"`
	StepType  string `gorm:"not null" json:"step_type"` // email, call, linkedin, task, wait

	// Time to wait before this step becomes due, measured from the moment
	// the previous step was processed
	DelayDays  int `gorm:"default:0" json:"delay_days"`
	DelayHours int `gorm:"default:0" json:"delay_hours"`

	// Channel-specific content
	EmailSubject string `json:"email_subject"`
	EmailBody    string `gorm:"type:text" json:"email_body"`
	CallScript   string `gorm:"type:text" json:"call_script"`
	TaskNotes    string `gorm:"type:text" json:"task_notes"`
}

// Delay returns the step's due offset as a duration.
func (s *SequenceStep) Delay() time.Duration {
	return time.Duration(s.DelayDays)*24*time.Hour + time.Duration(s.DelayHours)*time.Hour
}
