package questions

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mphomathabathe/Baobab/internal/models"
	"github.com/mphomathabathe/Baobab/pkg/response"
)

// CreateFormRequest is the body for POST /registration-forms.
type CreateFormRequest struct {
	EventID uint `json:"event_id" binding:"required"`
}

// CreateRequest is the body for POST /registration-forms/:id/questions.
type CreateRequest struct {
	Headline    string                  `json:"headline" binding:"required"`
	Description string                  `json:"description"`
	Type        string                  `json:"type" binding:"required"`
	Options     []models.QuestionOption `json:"options"`
	Order       int                     `json:"order"`
	IsRequired  bool                    `json:"is_required"`
}

// Handler handles registration form and question endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a questions handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// CreateForm handles POST /registration-forms (admin).
func (h *Handler) CreateForm(c *gin.Context) {
	var req CreateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "event_id required")
		return
	}
	form := &models.RegistrationForm{EventID: req.EventID}
	if err := h.repo.CreateForm(c.Request.Context(), form); err != nil {
		h.logger.Error("create registration form failed", zap.Error(err))
		response.Internal(c, "failed to create registration form")
		return
	}
	response.Created(c, form)
}

// ListByForm handles GET /registration-forms/:id/questions. Applicants use it to render the form.
func (h *Handler) ListByForm(c *gin.Context) {
	formID, ok := parseID(c, "invalid registration form id")
	if !ok {
		return
	}
	list, err := h.repo.ListByForm(c.Request.Context(), formID)
	if err != nil {
		h.logger.Error("list questions failed", zap.Error(err), zap.Uint("registration_form_id", formID))
		response.Internal(c, "failed to list questions")
		return
	}
	response.OK(c, gin.H{"questions": list})
}

// Create handles POST /registration-forms/:id/questions (admin).
func (h *Handler) Create(c *gin.Context) {
	formID, ok := parseID(c, "invalid registration form id")
	if !ok {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if msg := validate(&req); msg != "" {
		response.BadRequest(c, msg)
		return
	}

	ctx := c.Request.Context()
	exists, err := h.repo.FormExists(ctx, formID)
	if err != nil {
		h.logger.Error("form lookup failed", zap.Error(err), zap.Uint("registration_form_id", formID))
		response.Internal(c, "failed to create question")
		return
	}
	if !exists {
		response.NotFound(c, "registration form not found")
		return
	}

	q := &models.RegistrationQuestion{
		RegistrationFormID: formID,
		Headline:           req.Headline,
		Description:        req.Description,
		Type:               req.Type,
		Options:            req.Options,
		SortOrder:          req.Order,
		IsRequired:         req.IsRequired,
	}
	if err := h.repo.Create(ctx, q); err != nil {
		h.logger.Error("create question failed", zap.Error(err), zap.Uint("registration_form_id", formID))
		response.Internal(c, "failed to create question")
		return
	}
	response.Created(c, q)
}

// Delete handles DELETE /registration-questions/:id (admin). Answered questions are kept.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c, "invalid question id")
	if !ok {
		return
	}
	err := h.repo.Delete(c.Request.Context(), id)
	switch {
	case err == nil:
		response.OK(c, gin.H{"id": id, "deleted": true})
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "question not found")
	case errors.Is(err, ErrAnswered):
		response.Conflict(c, "question already has answers")
	default:
		h.logger.Error("delete question failed", zap.Error(err), zap.Uint("registration_question_id", id))
		response.Internal(c, "failed to delete question")
	}
}

// validate normalizes req in place and returns a client message when it is unusable.
func validate(req *CreateRequest) string {
	req.Headline = strings.TrimSpace(req.Headline)
	if req.Headline == "" || len(req.Headline) > 255 {
		return "headline must be 1-255 characters"
	}
	switch req.Type {
	case models.QuestionTypeText, models.QuestionTypeFile:
		req.Options = nil
	case models.QuestionTypeMultiChoice:
		if len(req.Options) == 0 {
			return "multi-choice questions need options"
		}
		seen := make(map[string]bool, len(req.Options))
		for _, o := range req.Options {
			if o.Value == "" || seen[o.Value] {
				return "option values must be non-empty and unique"
			}
			seen[o.Value] = true
		}
	default:
		return "type must be text, multi-choice or file"
	}
	return ""
}

func parseID(c *gin.Context, msg string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, msg)
		return 0, false
	}
	return uint(id), true
}
