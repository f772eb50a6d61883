package models

import "time"

// EmailType for automation.
const (
	EmailTypeRegistrationConfirmation = "registration_confirmation"
)

// EmailLogStatus for delivery.
const (
	EmailLogStatusPending = "pending"
	EmailLogStatusSent    = "sent"
	EmailLogStatusFailed  = "failed"
)

// EmailLog records delivery attempts of automation emails.
type EmailLog struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	RegistrationID *uint      `gorm:"index" json:"registration_id,omitempty"`
	EmailType      string     `gorm:"not null" json:"email_type"`
	RecipientEmail string     `gorm:"not null" json:"recipient_email"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `gorm:"not null" json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// TableName overrides the gorm default.
func (EmailLog) TableName() string { return "email_logs" }
