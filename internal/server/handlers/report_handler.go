package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/calftracker/internal/domain/models"
)

// SnapshotLister returns stored herd snapshots.
type SnapshotLister interface {
	RecentSnapshots(ctx context.Context, limit int64) ([]models.HerdSnapshot, error)
}

// ReportHandler serves the daily report history.
type ReportHandler struct {
	snapshots SnapshotLister
	logger    *zap.Logger
}

// NewReportHandler constructs the report history handler.
func NewReportHandler(snapshots SnapshotLister, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{snapshots: snapshots, logger: logger}
}

// ListSnapshots returns up to ?limit= snapshots, newest first.
func (h *ReportHandler) ListSnapshots(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "7"), 10, 64)
	if err != nil || limit < 1 || limit > 90 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 90"})
		return
	}

	snapshots, err := h.snapshots.RecentSnapshots(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots})
}
