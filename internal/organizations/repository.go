package organizations

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mphomathabathe/Baobab/internal/models"
)

// ErrNotFound is returned when an organisation or event does not exist.
var ErrNotFound = errors.New("not found")

// Repository handles organisation and event persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates an organisations repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts an organisation.
func (r *Repository) Create(ctx context.Context, org *models.Organisation) error {
	return r.db.WithContext(ctx).Create(org).Error
}

// GetByID returns an organisation by ID.
func (r *Repository) GetByID(ctx context.Context, id uint) (*models.Organisation, error) {
	var org models.Organisation
	err := r.db.WithContext(ctx).First(&org, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// List returns every organisation ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Organisation, error) {
	list := []models.Organisation{}
	if err := r.db.WithContext(ctx).Order("name, id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// SetEmailFrom sets or clears (nil) the sender address used for the organisation's emails.
func (r *Repository) SetEmailFrom(ctx context.Context, id uint, emailFrom *string) error {
	res := r.db.WithContext(ctx).Model(&models.Organisation{}).Where("id = ?", id).Update("email_from", emailFrom)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateEvent inserts an event for an existing organisation.
func (r *Repository) CreateEvent(ctx context.Context, ev *models.Event) error {
	if _, err := r.GetByID(ctx, ev.OrganisationID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(ev).Error
}

// ListEvents returns the organisation's events.
func (r *Repository) ListEvents(ctx context.Context, orgID uint) ([]models.Event, error) {
	list := []models.Event{}
	err := r.db.WithContext(ctx).Where("organisation_id = ?", orgID).Order("id").Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
