package emaillogs

import (
	"context"

	"gorm.io/gorm"

	"github.com/mphomathabathe/Baobab/internal/models"
)

// Repository handles email_logs persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates an email logs repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a delivery attempt.
func (r *Repository) Create(ctx context.Context, el *models.EmailLog) error {
	return r.db.WithContext(ctx).Create(el).Error
}

// ListByRegistration returns email logs for a registration, newest first.
func (r *Repository) ListByRegistration(ctx context.Context, registrationID uint) ([]*models.EmailLog, error) {
	var list []*models.EmailLog
	err := r.db.WithContext(ctx).
		Where("registration_id = ?", registrationID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
