package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/repository"
	"github.com/mamadbah2/calftracker/internal/service/tracker"
)

// TrackerHandler serves the dashboard and feed list screens.
type TrackerHandler struct {
	tracker *tracker.Service
	logger  *zap.Logger
}

// NewTrackerHandler constructs the feeding screens handler.
func NewTrackerHandler(t *tracker.Service, logger *zap.Logger) *TrackerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackerHandler{tracker: t, logger: logger}
}

type feedingRequest struct {
	Consumption *int `json:"consumption" binding:"required"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func animalID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid animal id"})
		return 0, false
	}
	return id, true
}

// Dashboard returns protocol counts and the attention list.
func (h *TrackerHandler) Dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Dashboard())
}

// ListAnimals returns the feed list, filtered by ?filter=all|flagged|<protocol>.
func (h *TrackerHandler) ListAnimals(c *gin.Context) {
	filter := c.DefaultQuery("filter", tracker.FilterAll)
	c.JSON(http.StatusOK, gin.H{
		"filter":    filter,
		"protocols": h.tracker.Snapshot().Protocols,
		"animals":   h.tracker.ListAnimals(filter),
	})
}

// CreateAnimal registers a calf.
func (h *TrackerHandler) CreateAnimal(c *gin.Context) {
	var req tracker.NewAnimal
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	animal, err := h.tracker.AddAnimal(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, animal)
}

// UpdateAnimal renames or archives a calf.
func (h *TrackerHandler) UpdateAnimal(c *gin.Context) {
	id, ok := animalID(c)
	if !ok {
		return
	}

	var req models.AnimalUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.tracker.UpdateAnimal(c.Request.Context(), id, req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.respondCard(c, id)
}

// RecordFeeding stores the consumption for the current period.
func (h *TrackerHandler) RecordFeeding(c *gin.Context) {
	id, ok := animalID(c)
	if !ok {
		return
	}

	var req feedingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "consumption is required"})
		return
	}

	record, err := h.tracker.RecordFeeding(c.Request.Context(), id, *req.Consumption, CurrentOperator(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// UpdateNotes replaces the notes on the current period's feeding.
func (h *TrackerHandler) UpdateNotes(c *gin.Context) {
	id, ok := animalID(c)
	if !ok {
		return
	}

	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.tracker.UpdateNotes(c.Request.Context(), id, req.Notes); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.respondCard(c, id)
}

// ToggleTreatment flips the treatment marker on the current period's feeding.
func (h *TrackerHandler) ToggleTreatment(c *gin.Context) {
	id, ok := animalID(c)
	if !ok {
		return
	}

	treated, err := h.tracker.ToggleTreatment(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"treatment": treated})
}

func (h *TrackerHandler) respondCard(c *gin.Context, id int64) {
	card, ok := h.tracker.Card(id)
	if !ok {
		respondError(c, h.logger, repository.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, card)
}
