package auth

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mphomathabathe/Baobab/internal/models"
)

// ErrUserNotFound is returned when no user matches a lookup.
var ErrUserNotFound = errors.New("user not found")

// Repository handles app user persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates an auth repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uint) (*models.AppUser, error) {
	return r.getWhere(ctx, "id = ?", id)
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.AppUser, error) {
	return r.getWhere(ctx, "email = ?", email)
}

func (r *Repository) getWhere(ctx context.Context, query string, args ...any) (*models.AppUser, error) {
	var u models.AppUser
	err := r.db.WithContext(ctx).Where(query, args...).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns all users ordered by name, for admins.
func (r *Repository) List(ctx context.Context) ([]models.AppUserPublic, error) {
	var users []models.AppUser
	if err := r.db.WithContext(ctx).Order("lastname, firstname, email").Find(&users).Error; err != nil {
		return nil, err
	}
	list := make([]models.AppUserPublic, 0, len(users))
	for i := range users {
		list = append(list, users[i].ToPublic())
	}
	return list, nil
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, u *models.AppUser) error {
	return r.db.WithContext(ctx).Create(u).Error
}
