package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"raffle-admin/internal/auth"
	"raffle-admin/internal/models"
	"raffle-admin/internal/raffle"
	"raffle-admin/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/google/uuid"
)

type EventHandler struct {
	eventService *services.EventService
}

func NewEventHandler(eventService *services.EventService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
	}
}

// CreateEvent creates a draft event owned by the caller
// POST /api/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	operatorID, exists := auth.GetOperatorID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.eventService.CreateEvent(c.Request.Context(), operatorID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// ListEvents lists the caller's events
// GET /api/events
func (h *EventHandler) ListEvents(c *gin.Context) {
	operatorID, exists := auth.GetOperatorID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	events, err := h.eventService.ListEvents(c.Request.Context(), operatorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "total": len(events)})
}

// GET /api/events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	id, ok := h.ownedEvent(c)
	if !ok {
		return
	}

	view, err := h.eventService.GetEvent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// DeleteEvent archives the event and removes it
// DELETE /api/events/:id
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	id, ok := h.ownedEvent(c)
	if !ok {
		return
	}

	if err := h.eventService.DeleteEvent(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// POST /api/events/:id/fields
func (h *EventHandler) AddField(c *gin.Context) {
	id, ok := h.ownedEvent(c)
	if !ok {
		return
	}

	var req models.AddFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	field, err := h.eventService.AddField(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, field)
}

// DELETE /api/events/:id/fields/:fieldId
func (h *EventHandler) RemoveField(c *gin.Context) {
	id, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	fieldID, err := strconv.Atoi(c.Param("fieldId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid field id"})
		return
	}

	if err := h.eventService.RemoveField(c.Request.Context(), id, fieldID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SetFieldRequired toggles whether a field must be filled in
// PUT /api/events/:id/fields/:fieldId
func (h *EventHandler) SetFieldRequired(c *gin.Context) {
	id, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	fieldID, err := strconv.Atoi(c.Param("fieldId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid field id"})
		return
	}

	var req models.SetFieldRequiredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.eventService.SetFieldRequired(c.Request.Context(), id, fieldID, req.Required); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// POST /api/events/:id/prizes
func (h *EventHandler) AddPrize(c *gin.Context) {
	id, ok := h.ownedEvent(c)
	if !ok {
		return
	}

	var req models.AddPrizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prize, err := h.eventService.AddPrize(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, prize)
}

// DELETE /api/events/:id/prizes/:rank
func (h *EventHandler) RemovePrize(c *gin.Context) {
	id, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	rank, err := strconv.Atoi(c.Param("rank"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid prize rank"})
		return
	}

	if err := h.eventService.RemovePrize(c.Request.Context(), id, rank); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SetCapacity sets the entry limit; a null capacity removes it
// PUT /api/events/:id/capacity
func (h *EventHandler) SetCapacity(c *gin.Context) {
	id, ok := h.ownedEvent(c)
	if !ok {
		return
	}

	var req models.SetCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.eventService.SetCapacity(c.Request.Context(), id, req.Capacity); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// PUT /api/events/:id/window
func (h *EventHandler) SetWindow(c *gin.Context) {
	id, ok := h.ownedEvent(c)
	if !ok {
		return
	}

	var req models.SetWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.eventService.SetWindow(c.Request.Context(), id, req.OpenAt, req.CloseAt); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// POST /api/events/:id/open
func (h *EventHandler) Open(c *gin.Context) {
	id, ok := h.ownedEvent(c)
	if !ok {
		return
	}

	if err := h.eventService.Open(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	h.respondEvent(c, id)
}

// Close ends the entry window now
// POST /api/events/:id/close
func (h *EventHandler) Close(c *gin.Context) {
	id, ok := h.ownedEvent(c)
	if !ok {
		return
	}

	changed, err := h.eventService.Close(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !changed {
		c.Header("X-Already-Closed", "true")
	}

	h.respondEvent(c, id)
}

// RunDraw draws the winners. The seed is a decimal uint64 string; without
// one the seed is derived from the close time and nonce.
// POST /api/events/:id/draw
func (h *EventHandler) RunDraw(c *gin.Context) {
	id, ok := h.ownedEvent(c)
	if !ok {
		return
	}

	var req models.RunDrawRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var seed *uint64
	if req.Seed != nil {
		v, err := strconv.ParseUint(*req.Seed, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "seed must be an unsigned 64-bit integer"})
			return
		}
		seed = &v
	}

	result, err := h.eventService.RunDraw(c.Request.Context(), id, seed, req.Nonce)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GET /api/events/:id/entries
func (h *EventHandler) GetEntries(c *gin.Context) {
	id, ok := h.ownedEvent(c)
	if !ok {
		return
	}

	entries, err := h.eventService.GetEntries(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": len(entries)})
}

// ImportEntries replays rows through the normal submit path
// POST /api/events/:id/import
func (h *EventHandler) ImportEntries(c *gin.Context) {
	id, ok := h.ownedEvent(c)
	if !ok {
		return
	}

	var req models.ImportEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.eventService.ImportEntries(c.Request.Context(), id, req.Rows)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// SubmitEntry records one public entry
// POST /api/public/events/:id/entries
func (h *EventHandler) SubmitEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	var req models.SubmitEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.eventService.Submit(c.Request.Context(), id, req.Values, req.DedupKey)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry_id": entry.ID, "submitted_at": entry.SubmittedAt})
}

// GET /api/public/events/:id/entries
func (h *EventHandler) GetPublicEntries(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	entries, err := h.eventService.GetMaskedEntries(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": len(entries)})
}

// GET /api/public/events/:id/result
func (h *EventHandler) GetResult(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	result, err := h.eventService.GetResult(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ownedEvent parses :id and checks the caller owns the event. Events of
// other operators are reported as not found.
func (h *EventHandler) ownedEvent(c *gin.Context) (uuid.UUID, bool) {
	operatorID, exists := auth.GetOperatorID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return uuid.Nil, false
	}
	if err := h.eventService.Authorize(c.Request.Context(), id, operatorID); err != nil {
		respondError(c, err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *EventHandler) respondEvent(c *gin.Context, id uuid.UUID) {
	view, err := h.eventService.GetEvent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// respondError maps domain errors to HTTP statuses
func respondError(c *gin.Context, err error) {
	var (
		validation   *raffle.ValidationError
		duplicate    *raffle.DuplicateEntryError
		full         *raffle.CapacityExceededError
		capacity     *raffle.CapacityError
		phase        *raffle.InvalidPhaseError
		locked       *raffle.LockedFieldError
		immutable    *raffle.ImmutableFieldError
		name         *raffle.DuplicateNameError
		insufficient *raffle.InsufficientEntriesError
		quota        *raffle.QuotaExceedsCapacityError
		config       *raffle.ConfigurationError
	)
	body := gin.H{"error": err.Error(), "code": raffle.Code(err)}

	switch {
	case errors.Is(err, services.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found", "code": "event_not_found"})
	case errors.Is(err, services.ErrNoResult):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "no_result"})
	case errors.Is(err, services.ErrEventBusy):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "code": "event_busy"})
	case errors.Is(err, raffle.ErrFieldNotFound), errors.Is(err, raffle.ErrPrizeNotFound):
		c.JSON(http.StatusNotFound, body)
	case errors.As(err, &validation):
		body["problems"] = validation.Problems
		c.JSON(http.StatusUnprocessableEntity, body)
	case errors.As(err, &duplicate):
		body["prior_entry_id"] = duplicate.PriorEntryID
		c.JSON(http.StatusConflict, body)
	case errors.As(err, &insufficient):
		body["required"] = insufficient.Required
		body["available"] = insufficient.Available
		c.JSON(http.StatusUnprocessableEntity, body)
	case errors.As(err, &config):
		body["reasons"] = config.Reasons
		c.JSON(http.StatusUnprocessableEntity, body)
	case errors.As(err, &quota):
		body["total_quota"] = quota.Quota
		body["capacity"] = quota.Capacity
		c.JSON(http.StatusUnprocessableEntity, body)
	case errors.As(err, &capacity), errors.Is(err, raffle.ErrMultipleDedupKeys):
		c.JSON(http.StatusUnprocessableEntity, body)
	case errors.As(err, &full), errors.As(err, &phase), errors.As(err, &locked),
		errors.As(err, &immutable), errors.As(err, &name),
		errors.Is(err, raffle.ErrNotYetOpen), errors.Is(err, raffle.ErrPrizesFrozen):
		c.JSON(http.StatusConflict, body)
	default:
		logger.Errorf("[EventHandler] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "internal"})
	}
}
