package models

import "time"

// Offer is an admissions decision that makes a user eligible to register.
type Offer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	EventID   uint      `gorm:"not null;index" json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the gorm default.
func (Offer) TableName() string { return "offer" }
