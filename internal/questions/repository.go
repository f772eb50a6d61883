package questions

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mphomathabathe/Baobab/internal/models"
)

// ErrNotFound is returned when a form or question does not exist.
var ErrNotFound = errors.New("not found")

// Repository handles registration_form and registration_question persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a questions repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateForm inserts a registration form.
func (r *Repository) CreateForm(ctx context.Context, form *models.RegistrationForm) error {
	return r.db.WithContext(ctx).Create(form).Error
}

// FormExists reports whether the form exists.
func (r *Repository) FormExists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.RegistrationForm{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// ListByForm returns the form's questions in display order.
func (r *Repository) ListByForm(ctx context.Context, formID uint) ([]models.RegistrationQuestion, error) {
	list := []models.RegistrationQuestion{}
	err := r.db.WithContext(ctx).
		Where("registration_form_id = ?", formID).
		Order("sort_order, id").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Create inserts a question.
func (r *Repository) Create(ctx context.Context, q *models.RegistrationQuestion) error {
	return r.db.WithContext(ctx).Create(q).Error
}

// Delete removes a question that has no answers yet.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var answers int64
		if err := tx.Model(&models.RegistrationAnswer{}).Where("registration_question_id = ?", id).Count(&answers).Error; err != nil {
			return err
		}
		if answers > 0 {
			return ErrAnswered
		}
		res := tx.Delete(&models.RegistrationQuestion{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ErrAnswered is returned when deleting a question that already has answers.
var ErrAnswered = errors.New("question has answers")
