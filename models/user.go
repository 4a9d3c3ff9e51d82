package models

import "gorm.io/gorm"

// User represents an account that owns prospects, sequences and their artifacts
type User struct {
	gorm.Model

	// Authentication fields
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Profile information
	Name     *string `json:"name,omitempty"`
	Company  *string `json:"company,omitempty"`
	Timezone string  `gorm:"default:'UTC'" json:"timezone"`

	// Account status
	IsActive bool `gorm:"default:true" json:"is_active"`

	// Relations
	Prospects []Prospect `gorm:"foreignKey:UserID" json:"prospects,omitempty"`
	Sequences []Sequence `gorm:"foreignKey:UserID" json:"sequences,omitempty"`
}
