package models

import (
	"time"

	"gorm.io/datatypes"
)

// Question types understood by the registration form.
const (
	QuestionTypeText        = "text"
	QuestionTypeMultiChoice = "multi-choice"
	QuestionTypeFile        = "file"
)

// Registration is an offer holder's submission against a registration form.
type Registration struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	OfferID            uint      `gorm:"not null;index" json:"offer_id"`
	RegistrationFormID uint      `gorm:"not null;index" json:"registration_form_id"`
	Confirmed          bool      `gorm:"not null;default:false" json:"confirmed"`
	CreatedAt          time.Time `json:"created_at"`

	// Stamped when the registration is created, before the confirmation send is attempted.
	// Actual deliveries are recorded in email_logs.
	ConfirmationEmailSentAt *time.Time `json:"confirmation_email_sent_at"`
}

// TableName overrides the gorm default.
func (Registration) TableName() string { return "registration" }

// RegistrationForm is the questionnaire template a registration answers.
type RegistrationForm struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	EventID uint `gorm:"not null;index" json:"event_id"`
}

// TableName overrides the gorm default.
func (RegistrationForm) TableName() string { return "registration_form" }

// QuestionOption is one selectable choice of a multi-choice question.
type QuestionOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// RegistrationQuestion is one question of a registration form.
type RegistrationQuestion struct {
	ID                 uint                                `gorm:"primaryKey" json:"id"`
	RegistrationFormID uint                                `gorm:"not null;index" json:"registration_form_id"`
	Headline           string                              `gorm:"not null" json:"headline"`
	Description        string                              `json:"description"`
	Type               string                              `gorm:"not null" json:"type"`
	Options            datatypes.JSONSlice[QuestionOption] `json:"options,omitempty"`
	SortOrder          int                                 `gorm:"not null;default:0" json:"order"`
	IsRequired         bool                                `gorm:"not null;default:false" json:"is_required"`
}

// TableName overrides the gorm default.
func (RegistrationQuestion) TableName() string { return "registration_question" }

// RegistrationAnswer is the stored value for one question of a registration.
// For multi-choice questions Value holds the option value; for file questions an object key.
type RegistrationAnswer struct {
	ID                     uint   `gorm:"primaryKey" json:"id"`
	RegistrationID         uint   `gorm:"not null;index" json:"registration_id"`
	RegistrationQuestionID uint   `gorm:"not null;index" json:"registration_question_id"`
	Value                  string `gorm:"type:text;not null" json:"value"`
}

// TableName overrides the gorm default.
func (RegistrationAnswer) TableName() string { return "registration_answer" }
