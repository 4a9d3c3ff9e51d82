package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	TaskStatusToDo = "to_do"
	TaskStatusDone = "done"
)

const (
	TaskPriorityHigh   = "high"
	TaskPriorityMedium = "medium"
	TaskPriorityLow    = "low"
)

// OutreachTask is a materialized call/linkedin/to-do step. Tasks are always
// due immediately; the step's delay only governed when it became current.
type OutreachTask struct {
	gorm.Model
	UserID     uint `gorm:"not null;index" json:"user_id"`
	ProspectID uint `gorm:"not null;index" json:"prospect_id"`

	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	TaskType    string `gorm:"not null" json:"task_type"`     // call, linkedin, task
	Status      string `gorm:"default:'to_do'" json:"status"` // to_do, done
	Priority    string `gorm:"default:'medium'" json:"priority"`

	DueAt       *time.Time `json:"due_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CallOutcome string     `json:"call_outcome"` // connected, voicemail, no_answer, wrong_number

	// Trace tags back to the sequence engine
	SequenceID   *uint  `gorm:"index" json:"sequence_id,omitempty"`
	SequenceName string `json:"sequence_name"`
	StepID       *uint  `json:"step_id,omitempty"`
	StepName     string `json:"step_name"`
	EnrollmentID *uint  `gorm:"index" json:"enrollment_id,omitempty"`

	// Relations
	Prospect Prospect `json:"-"`
}
