package models

import "time"

// AppUser is a person who can hold offers and register.
type AppUser struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Firstname string    `gorm:"not null" json:"firstname"`
	Lastname  string    `gorm:"not null" json:"lastname"`
	UserTitle string    `json:"user_title"`
	Password  string    `json:"-"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the gorm default.
func (AppUser) TableName() string { return "app_user" }

// Role returns the JWT role claim for the user.
func (u *AppUser) Role() string {
	if u.IsAdmin {
		return "admin"
	}
	return "user"
}

// AppUserPublic is AppUser without sensitive fields for API responses.
type AppUserPublic struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Firstname string    `json:"firstname"`
	Lastname  string    `json:"lastname"`
	UserTitle string    `json:"user_title"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts AppUser to AppUserPublic.
func (u *AppUser) ToPublic() AppUserPublic {
	return AppUserPublic{
		ID:        u.ID,
		Email:     u.Email,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		UserTitle: u.UserTitle,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}
