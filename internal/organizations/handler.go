package organizations

import (
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mphomathabathe/Baobab/internal/models"
	"github.com/mphomathabathe/Baobab/pkg/response"
)

// Column limits of the organisation table.
const (
	maxNameLen      = 50
	maxEmailFromLen = 100
)

// Handler handles organisation HTTP endpoints. All routes are admin only.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an organisations handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// CreateRequest is the body for POST /organisations.
type CreateRequest struct {
	Name       string  `json:"name" binding:"required"`
	SystemName string  `json:"system_name"`
	EmailFrom  *string `json:"email_from"`
}

// EmailFromRequest is the body for PUT /organisations/:id/email-from. A null or empty
// email_from falls back to the configured sender.
type EmailFromRequest struct {
	EmailFrom *string `json:"email_from"`
}

// CreateEventRequest is the body for POST /organisations/:id/events.
type CreateEventRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create handles POST /organisations.
func (h *Handler) Create(c *gin.Context) {
	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	body.SystemName = strings.TrimSpace(body.SystemName)
	if body.Name == "" || len(body.Name) > maxNameLen || len(body.SystemName) > maxNameLen {
		response.BadRequest(c, "name and system_name must be at most 50 characters")
		return
	}
	emailFrom, ok := normalizeEmailFrom(body.EmailFrom)
	if !ok {
		response.BadRequest(c, "email_from must be a valid address of at most 100 characters")
		return
	}

	org := &models.Organisation{Name: body.Name, SystemName: body.SystemName, EmailFrom: emailFrom}
	if err := h.repo.Create(c.Request.Context(), org); err != nil {
		h.logger.Error("create organisation failed", zap.Error(err))
		response.Internal(c, "failed to create organisation")
		return
	}
	response.Created(c, org)
}

// List handles GET /organisations.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list organisations failed", zap.Error(err))
		response.Internal(c, "failed to list organisations")
		return
	}
	response.OK(c, list)
}

// SetEmailFrom handles PUT /organisations/:id/email-from.
func (h *Handler) SetEmailFrom(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body EmailFromRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid body")
		return
	}
	emailFrom, ok := normalizeEmailFrom(body.EmailFrom)
	if !ok {
		response.BadRequest(c, "email_from must be a valid address of at most 100 characters")
		return
	}
	err := h.repo.SetEmailFrom(c.Request.Context(), id, emailFrom)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "organisation not found")
		return
	}
	if err != nil {
		h.logger.Error("set email_from failed", zap.Error(err), zap.Uint("organisation_id", id))
		response.Internal(c, "failed to update organisation")
		return
	}
	response.OK(c, gin.H{"id": id, "email_from": emailFrom})
}

// CreateEvent handles POST /organisations/:id/events.
func (h *Handler) CreateEvent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body CreateEventRequest
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		response.BadRequest(c, "name required")
		return
	}
	ev := &models.Event{Name: strings.TrimSpace(body.Name), OrganisationID: id}
	err := h.repo.CreateEvent(c.Request.Context(), ev)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "organisation not found")
		return
	}
	if err != nil {
		h.logger.Error("create event failed", zap.Error(err), zap.Uint("organisation_id", id))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, ev)
}

// ListEvents handles GET /organisations/:id/events.
func (h *Handler) ListEvents(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	list, err := h.repo.ListEvents(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err), zap.Uint("organisation_id", id))
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid organisation id")
		return 0, false
	}
	return uint(id), true
}

// normalizeEmailFrom trims v and maps empty to nil. ok is false for malformed or
// over-long addresses.
func normalizeEmailFrom(v *string) (*string, bool) {
	if v == nil {
		return nil, true
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil, true
	}
	if len(s) > maxEmailFromLen {
		return nil, false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return nil, false
	}
	return &s, true
}
