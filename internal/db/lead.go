package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeadStatus is the review state of a consultation request.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusPending   LeadStatus = "pending"
	LeadStatusCompleted LeadStatus = "completed"
	LeadStatusRejected  LeadStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusPending, LeadStatusCompleted, LeadStatusRejected:
		return true
	}
	return false
}

// Reviewable reports whether an operator may move a lead into s.
func (s LeadStatus) Reviewable() bool {
	switch s {
	case LeadStatusPending, LeadStatusCompleted, LeadStatusRejected:
		return true
	}
	return false
}

// LeadRequest is a submitted consultation inquiry.
// Only Status changes after creation.
type LeadRequest struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Name         string     `gorm:"size:200;not null" json:"name"`
	Email        string     `gorm:"size:320;not null" json:"email"`
	Phone        string     `gorm:"size:50;not null" json:"phone"`
	BusinessName string     `gorm:"size:200;not null" json:"business_name"`
	Website      string     `gorm:"size:500" json:"website"`
	Industry     string     `gorm:"size:100;not null" json:"industry"`
	Message      string     `gorm:"type:text;not null" json:"message"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	Status       LeadStatus `gorm:"size:20;not null" json:"status"`
}

// TableName keeps the table name shared with the hosted store.
func (LeadRequest) TableName() string {
	return "consultations"
}

// BeforeCreate fills the id and the initial status.
func (l *LeadRequest) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = LeadStatusNew
	}
	return nil
}
