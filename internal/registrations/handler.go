package registrations

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mphomathabathe/Baobab/internal/middleware"
	"github.com/mphomathabathe/Baobab/internal/models"
	"github.com/mphomathabathe/Baobab/pkg/response"
	"github.com/mphomathabathe/Baobab/pkg/storage"
)

const msgDBUnavailable = "database not available"

// AnswerPayload is one submitted answer. Answers without a known question are dropped.
type AnswerPayload struct {
	RegistrationQuestionID uint   `json:"registration_question_id"`
	Value                  string `json:"value"`
}

// CreateRequest is the body for POST /registration.
type CreateRequest struct {
	OfferID            uint            `json:"offer_id" binding:"required"`
	RegistrationFormID uint            `json:"registration_form_id" binding:"required"`
	Answers            []AnswerPayload `json:"answers" binding:"dive"`
}

// UpdateRequest is the body for PUT /registration.
type UpdateRequest struct {
	RegistrationID     uint            `json:"registration_id" binding:"required"`
	RegistrationFormID uint            `json:"registration_form_id" binding:"required"`
	Answers            []AnswerPayload `json:"answers" binding:"dive"`
}

// UploadRequest is the body for POST /registration/uploads.
type UploadRequest struct {
	RegistrationQuestionID uint   `json:"registration_question_id"`
	Filename               string `json:"filename" binding:"required"`
}

// RegistrationView is the GET /registration payload.
type RegistrationView struct {
	RegistrationID     uint                        `json:"registration_id"`
	OfferID            uint                        `json:"offer_id"`
	RegistrationFormID uint                        `json:"registration_form_id"`
	Answers            []models.RegistrationAnswer `json:"answers"`
}

// FileStore issues presigned URLs for file answers.
type FileStore interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
	DeleteUpload(ctx context.Context, key string) error
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	repo           *Repository
	notifier       *Notifier
	files          FileStore
	defaultEventID uint
	logger         *zap.Logger
	now            func() time.Time
}

// NewHandler creates a registrations handler. defaultEventID is attached to forms that a
// create request references before they exist.
func NewHandler(repo *Repository, notifier *Notifier, defaultEventID uint, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, notifier: notifier, defaultEventID: defaultEventID, logger: logger, now: time.Now}
}

// SetFileStore enables file answer uploads.
func (h *Handler) SetFileStore(files FileStore) {
	h.files = files
}

// Get handles GET /registration. Returns the current user's registration and its answers.
func (h *Handler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.MustGet(middleware.ContextUserID).(uint)

	offer, err := h.repo.GetOfferByUserID(ctx, userID)
	if err != nil {
		h.lookupFailed(c, err, "no offer", zap.Uint("user_id", userID))
		return
	}
	reg, err := h.repo.GetRegistrationByOfferID(ctx, offer.ID)
	if err != nil {
		h.lookupFailed(c, err, "no registration", zap.Uint("offer_id", offer.ID))
		return
	}
	form, err := h.repo.GetForm(ctx, reg.RegistrationFormID)
	if err != nil {
		h.lookupFailed(c, err, "no registration form", zap.Uint("registration_id", reg.ID))
		return
	}
	answers, err := h.repo.ListAnswers(ctx, reg.ID)
	if err != nil {
		h.dbUnavailable(c, "list answers failed", err, zap.Uint("registration_id", reg.ID))
		return
	}

	response.OK(c, RegistrationView{
		RegistrationID:     reg.ID,
		OfferID:            offer.ID,
		RegistrationFormID: form.ID,
		Answers:            answers,
	})
}

// Create handles POST /registration. Stores the registration and its valid answers, then
// emails a confirmation. Answers to unknown questions are dropped.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	userID := c.MustGet(middleware.ContextUserID).(uint)

	offer, err := h.repo.GetOfferByID(ctx, req.OfferID)
	if err != nil {
		h.lookupFailed(c, err, "offer not found", zap.Uint("offer_id", req.OfferID))
		return
	}
	user, err := h.repo.GetUserByID(ctx, offer.UserID)
	if err != nil {
		h.lookupFailed(c, err, "user not found", zap.Uint("user_id", offer.UserID))
		return
	}

	var reg *models.Registration
	err = h.repo.Transaction(ctx, func(tx *Repository) error {
		_, created, err := tx.EnsureForm(ctx, req.RegistrationFormID, h.defaultEventID)
		if err != nil {
			return err
		}
		if created {
			h.logger.Info("registration form provisioned",
				zap.Uint("registration_form_id", req.RegistrationFormID),
				zap.Uint("event_id", h.defaultEventID))
		}

		stamp := h.now()
		reg = &models.Registration{
			OfferID:                 offer.ID,
			RegistrationFormID:      req.RegistrationFormID,
			Confirmed:               false,
			ConfirmationEmailSentAt: &stamp,
		}
		if err := tx.CreateRegistration(ctx, reg); err != nil {
			return err
		}

		for _, a := range req.Answers {
			ok, err := h.acceptAnswer(ctx, tx, userID, a)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := tx.CreateAnswer(ctx, &models.RegistrationAnswer{
				RegistrationID:         reg.ID,
				RegistrationQuestionID: a.RegistrationQuestionID,
				Value:                  a.Value,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		h.dbUnavailable(c, "create registration failed", err, zap.Uint("offer_id", offer.ID))
		return
	}

	h.sendConfirmation(ctx, user, reg)
	response.Created(c, reg)
}

// sendConfirmation reloads what was stored and hands it to the notifier. It never fails
// the request; problems are logged.
func (h *Handler) sendConfirmation(ctx context.Context, user *models.AppUser, reg *models.Registration) {
	answers, err := h.repo.ListAnswers(ctx, reg.ID)
	if err != nil {
		h.logger.Error("reload answers for confirmation failed", zap.Error(err), zap.Uint("registration_id", reg.ID))
		return
	}
	questions, err := h.repo.ListQuestionsByForm(ctx, reg.RegistrationFormID)
	if err != nil {
		h.logger.Error("load questions for confirmation failed", zap.Error(err), zap.Uint("registration_id", reg.ID))
		return
	}
	org, err := h.repo.OrganisationForForm(ctx, reg.RegistrationFormID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		h.logger.Warn("resolve sender organisation failed", zap.Error(err), zap.Uint("registration_form_id", reg.RegistrationFormID))
	}

	h.notifier.SendConfirmation(ctx, Confirmation{
		User:           user,
		Questions:      questions,
		Answers:        answers,
		Confirmed:      reg.Confirmed,
		RegistrationID: reg.ID,
		Organisation:   org,
	})
}

// Update handles PUT /registration. Moves the registration to the given form and upserts
// answers: existing answers are overwritten, new ones created when the question exists.
// Ownership of the registration is not checked here, but replaced files are only deleted when
// the caller holds the registration's offer.
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()

	reg, err := h.repo.GetRegistrationByID(ctx, req.RegistrationID)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "registration not found")
		return
	}
	if err != nil {
		h.updateFailed(c, err, req.RegistrationID)
		return
	}
	offer, err := h.repo.GetOfferByID(ctx, reg.OfferID)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "offer not found")
		return
	}
	if err != nil {
		h.updateFailed(c, err, reg.ID)
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uint)
	// Only the offer holder's own updates clean up the files they replace.
	ownUpdate := userID == offer.UserID

	var replaced []string
	err = h.repo.Transaction(ctx, func(tx *Repository) error {
		replaced = replaced[:0]
		if err := tx.UpdateRegistrationForm(ctx, reg, req.RegistrationFormID); err != nil {
			return err
		}
		for _, a := range req.Answers {
			ok, err := h.acceptAnswer(ctx, tx, userID, a)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			existing, err := tx.GetAnswer(ctx, reg.ID, a.RegistrationQuestionID)
			switch {
			case err == nil:
				if ownUpdate && existing.Value != a.Value {
					if old, ok := h.replacedUpload(ctx, tx, offer.UserID, existing); ok {
						replaced = append(replaced, old)
					}
				}
				if err := tx.UpdateAnswerValue(ctx, existing, a.Value); err != nil {
					return err
				}
			case errors.Is(err, ErrNotFound):
				if err := tx.CreateAnswer(ctx, &models.RegistrationAnswer{
					RegistrationID:         reg.ID,
					RegistrationQuestionID: a.RegistrationQuestionID,
					Value:                  a.Value,
				}); err != nil {
					return err
				}
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		h.updateFailed(c, err, reg.ID)
		return
	}

	h.deleteUploads(ctx, replaced)
	response.OK(c, gin.H{"status": "ok"})
}

// acceptAnswer reports whether a should be stored: its question must exist and a file answer
// must name an object key issued to userID.
func (h *Handler) acceptAnswer(ctx context.Context, tx *Repository, userID uint, a AnswerPayload) (bool, error) {
	q, err := tx.GetQuestion(ctx, a.RegistrationQuestionID)
	if errors.Is(err, ErrNotFound) {
		h.logger.Debug("dropping answer to unknown question", zap.Uint("registration_question_id", a.RegistrationQuestionID))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if q.Type == models.QuestionTypeFile && a.Value != "" && !storage.OwnsKey(userID, a.Value) {
		h.logger.Warn("dropping file answer with foreign object key",
			zap.Uint("user_id", userID), zap.Uint("registration_question_id", q.ID))
		return false, nil
	}
	return true, nil
}

// replacedUpload reports the object key held by a file answer that is about to be overwritten,
// provided the key belongs to ownerID.
func (h *Handler) replacedUpload(ctx context.Context, tx *Repository, ownerID uint, a *models.RegistrationAnswer) (string, bool) {
	if h.files == nil || a.Value == "" || !storage.OwnsKey(ownerID, a.Value) {
		return "", false
	}
	q, err := tx.GetQuestion(ctx, a.RegistrationQuestionID)
	if err != nil || q.Type != models.QuestionTypeFile {
		return "", false
	}
	return a.Value, true
}

func (h *Handler) deleteUploads(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := h.files.DeleteUpload(ctx, key); err != nil {
			h.logger.Warn("delete replaced upload failed", zap.Error(err), zap.String("key", key))
		}
	}
}

// CreateUpload handles POST /registration/uploads. Returns a presigned PUT URL and the object
// key to submit as the value of a file answer.
func (h *Handler) CreateUpload(c *gin.Context) {
	if h.files == nil {
		response.ServiceUnavailable(c, "file uploads not configured")
		return
	}
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	userID := c.MustGet(middleware.ContextUserID).(uint)

	q, err := h.repo.GetQuestion(ctx, req.RegistrationQuestionID)
	if err != nil {
		h.lookupFailed(c, err, "question not found", zap.Uint("registration_question_id", req.RegistrationQuestionID))
		return
	}
	if q.Type != models.QuestionTypeFile {
		response.BadRequest(c, "question does not accept files")
		return
	}
	contentType, ok := storage.ContentTypeForFilename(req.Filename)
	if !ok {
		response.BadRequest(c, "file type not allowed")
		return
	}

	key := storage.UploadKey(userID, req.Filename)
	url, err := h.files.PresignUpload(ctx, key, contentType)
	if err != nil {
		h.logger.Error("presign upload failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to generate upload url")
		return
	}
	response.OK(c, gin.H{
		"key":          key,
		"upload_url":   url,
		"content_type": contentType,
		"max_bytes":    storage.MaxUploadFileSize,
	})
}

// GetUpload handles GET /registration/uploads?key=... Returns a presigned download URL for a
// file the current user uploaded.
func (h *Handler) GetUpload(c *gin.Context) {
	if h.files == nil {
		response.ServiceUnavailable(c, "file uploads not configured")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uint)
	key := c.Query("key")
	if key == "" {
		response.BadRequest(c, "key required")
		return
	}
	if !storage.OwnsKey(userID, key) {
		response.Forbidden(c, "not your file")
		return
	}
	url, err := h.files.PresignDownload(c.Request.Context(), key)
	if err != nil {
		h.logger.Error("presign download failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to generate download url")
		return
	}
	response.OK(c, gin.H{"download_url": url})
}

// lookupFailed maps a repository lookup error: ErrNotFound becomes 404 with notFoundMsg,
// anything else 503.
func (h *Handler) lookupFailed(c *gin.Context, err error, notFoundMsg string, fields ...zap.Field) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, notFoundMsg)
		return
	}
	h.dbUnavailable(c, "registration lookup failed", err, fields...)
}

func (h *Handler) dbUnavailable(c *gin.Context, msg string, err error, fields ...zap.Field) {
	h.logger.Error(msg, append(fields, zap.Error(err))...)
	response.ServiceUnavailable(c, msgDBUnavailable)
}

func (h *Handler) updateFailed(c *gin.Context, err error, registrationID uint) {
	h.logger.Error("update registration failed", zap.Error(err), zap.Uint("registration_id", registrationID))
	response.BadRequest(c, "could not update registration")
}
