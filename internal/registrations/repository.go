package registrations

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mphomathabathe/Baobab/internal/models"
)

// ErrNotFound is returned by lookups that matched no row.
var ErrNotFound = errors.New("not found")

// Repository handles registration persistence. A Repository obtained from Transaction
// runs every call inside that transaction.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a registrations repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn in a single database transaction, committing when fn returns nil.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func first[T any](ctx context.Context, db *gorm.DB, query string, args ...any) (*T, error) {
	var out T
	err := db.WithContext(ctx).Where(query, args...).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOfferByUserID returns the offer held by a user.
func (r *Repository) GetOfferByUserID(ctx context.Context, userID uint) (*models.Offer, error) {
	return first[models.Offer](ctx, r.db, "user_id = ?", userID)
}

// GetOfferByID returns an offer by ID.
func (r *Repository) GetOfferByID(ctx context.Context, id uint) (*models.Offer, error) {
	return first[models.Offer](ctx, r.db, "id = ?", id)
}

// GetUserByID returns an app user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id uint) (*models.AppUser, error) {
	return first[models.AppUser](ctx, r.db, "id = ?", id)
}

// GetRegistrationByID returns a registration by ID.
func (r *Repository) GetRegistrationByID(ctx context.Context, id uint) (*models.Registration, error) {
	return first[models.Registration](ctx, r.db, "id = ?", id)
}

// GetRegistrationByOfferID returns the earliest registration for an offer.
func (r *Repository) GetRegistrationByOfferID(ctx context.Context, offerID uint) (*models.Registration, error) {
	return first[models.Registration](ctx, r.db, "offer_id = ?", offerID)
}

// GetForm returns a registration form by ID.
func (r *Repository) GetForm(ctx context.Context, id uint) (*models.RegistrationForm, error) {
	return first[models.RegistrationForm](ctx, r.db, "id = ?", id)
}

// EnsureForm returns the form with the given ID, creating it against eventID when missing.
// created reports whether a row was inserted.
func (r *Repository) EnsureForm(ctx context.Context, id, eventID uint) (form *models.RegistrationForm, created bool, err error) {
	form, err = r.GetForm(ctx, id)
	if err == nil {
		return form, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	form = &models.RegistrationForm{ID: id, EventID: eventID}
	if err := r.db.WithContext(ctx).Create(form).Error; err != nil {
		return nil, false, err
	}
	return form, true, nil
}

// CreateRegistration inserts a registration.
func (r *Repository) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	return r.db.WithContext(ctx).Create(reg).Error
}

// UpdateRegistrationForm points a registration at another form.
func (r *Repository) UpdateRegistrationForm(ctx context.Context, reg *models.Registration, formID uint) error {
	if err := r.db.WithContext(ctx).Model(reg).Update("registration_form_id", formID).Error; err != nil {
		return err
	}
	reg.RegistrationFormID = formID
	return nil
}

// GetAnswer returns the registration's answer to a question.
func (r *Repository) GetAnswer(ctx context.Context, registrationID, questionID uint) (*models.RegistrationAnswer, error) {
	return first[models.RegistrationAnswer](ctx, r.db,
		"registration_id = ? AND registration_question_id = ?", registrationID, questionID)
}

// CreateAnswer inserts an answer.
func (r *Repository) CreateAnswer(ctx context.Context, a *models.RegistrationAnswer) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// UpdateAnswerValue overwrites an existing answer's value.
func (r *Repository) UpdateAnswerValue(ctx context.Context, a *models.RegistrationAnswer, value string) error {
	if err := r.db.WithContext(ctx).Model(a).Update("value", value).Error; err != nil {
		return err
	}
	a.Value = value
	return nil
}

// ListAnswers returns every answer of a registration.
func (r *Repository) ListAnswers(ctx context.Context, registrationID uint) ([]models.RegistrationAnswer, error) {
	list := []models.RegistrationAnswer{}
	err := r.db.WithContext(ctx).Where("registration_id = ?", registrationID).Order("id").Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// ListQuestionsByForm returns the questions of a form in display order.
func (r *Repository) ListQuestionsByForm(ctx context.Context, formID uint) ([]models.RegistrationQuestion, error) {
	var list []models.RegistrationQuestion
	err := r.db.WithContext(ctx).Where("registration_form_id = ?", formID).Order("sort_order, id").Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// GetQuestion returns a registration question by ID.
func (r *Repository) GetQuestion(ctx context.Context, id uint) (*models.RegistrationQuestion, error) {
	return first[models.RegistrationQuestion](ctx, r.db, "id = ?", id)
}

// OrganisationForForm resolves the organisation running the form's event.
func (r *Repository) OrganisationForForm(ctx context.Context, formID uint) (*models.Organisation, error) {
	var org models.Organisation
	err := r.db.WithContext(ctx).
		Joins("JOIN event ON event.organisation_id = organisation.id").
		Joins("JOIN registration_form ON registration_form.event_id = event.id").
		Where("registration_form.id = ?", formID).
		First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}
