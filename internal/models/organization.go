package models

// Organisation runs events and owns the sender identity of their emails.
type Organisation struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	Name       string  `gorm:"not null" json:"name"`
	SystemName string  `json:"system_name"`
	EmailFrom  *string `gorm:"size:100" json:"email_from,omitempty"`
}

// TableName overrides the gorm default.
func (Organisation) TableName() string { return "organisation" }

// Event is a conference or school that registration forms belong to.
type Event struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Name           string `gorm:"not null" json:"name"`
	OrganisationID uint   `gorm:"not null;index" json:"organisation_id"`
}

// TableName overrides the gorm default.
func (Event) TableName() string { return "event" }
