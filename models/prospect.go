package models

import (
	"time"

	"gorm.io/gorm"
)

// Prospect represents a single contact being worked through outreach
type Prospect struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name        string `gorm:"not null" json:"name"`
	Email       string `gorm:"not null;index" json:"email"`
	Company     string `json:"company"`
	Title       string `json:"title"`
	Phone       string `json:"phone"`
	LinkedInURL string `json:"linkedin_url"`
	Status      string `gorm:"default:'new'" json:"status"` // new, contacted, replied, won, lost

	// Display cache maintained by the sequence engine. Rebuilt on every
	// enrollment transition (enroll, advance, complete, fail, remove);
	// the enrollment row is the source of truth.
	CurrentSequenceName string `json:"current_sequence_name"`
	CurrentStepName     string `json:"current_step_name"`

	LastContactedAt *time.Time `json:"last_contacted_at"`

	// Relations
	Enrollments []SequenceEnrollment `gorm:"foreignKey:ProspectID" json:"enrollments,omitempty"`
}
