package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/service/admin"
)

// DailyReportRunner produces the herd report on demand.
type DailyReportRunner interface {
	RunDailyReport(ctx context.Context) (string, error)
}

// AdminHandler serves the admin screens.
type AdminHandler struct {
	svc     *admin.Service
	reports DailyReportRunner
	logger  *zap.Logger
}

// NewAdminHandler constructs the admin handler.
func NewAdminHandler(svc *admin.Service, reports DailyReportRunner, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{svc: svc, reports: reports, logger: logger}
}

type protocolsRequest struct {
	Protocols []models.Protocol `json:"protocols" binding:"required,dive"`
}

// GetSettings returns the effective settings.
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.svc.Settings(CurrentOperator(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings edits the counter and flag thresholds.
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req admin.SettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	settings, err := h.svc.UpdateSettings(c.Request.Context(), CurrentOperator(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// GetProtocols returns the protocol list in order.
func (h *AdminHandler) GetProtocols(c *gin.Context) {
	protocols, err := h.svc.Protocols(CurrentOperator(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"protocols": protocols})
}

// ReplaceProtocols stores a new protocol list.
func (h *AdminHandler) ReplaceProtocols(c *gin.Context) {
	var req protocolsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	protocols, err := h.svc.ReplaceProtocols(c.Request.Context(), CurrentOperator(c), req.Protocols)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"protocols": protocols})
}

// ListOperators returns every operator including PINs.
func (h *AdminHandler) ListOperators(c *gin.Context) {
	ops, err := h.svc.Operators(CurrentOperator(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"operators": ops})
}

// CreateOperator adds an operator.
func (h *AdminHandler) CreateOperator(c *gin.Context) {
	var req admin.NewOperator
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	op, err := h.svc.CreateOperator(c.Request.Context(), CurrentOperator(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, op)
}

// UpdateOperator edits an operator.
func (h *AdminHandler) UpdateOperator(c *gin.Context) {
	id, ok := operatorID(c)
	if !ok {
		return
	}

	var req models.OperatorUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.svc.UpdateOperator(c.Request.Context(), CurrentOperator(c), id, req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteOperator removes an operator.
func (h *AdminHandler) DeleteOperator(c *gin.Context) {
	id, ok := operatorID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteOperator(c.Request.Context(), CurrentOperator(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RunDailyReport generates and sends the herd report now.
func (h *AdminHandler) RunDailyReport(c *gin.Context) {
	report, err := h.reports.RunDailyReport(c.Request.Context())
	if err != nil && report == "" {
		respondError(c, h.logger, err)
		return
	}

	resp := gin.H{"report": report}
	if err != nil {
		h.logger.Warn("daily report generated but not delivered", zap.Error(err))
		resp["warning"] = "report generated but could not be delivered"
	}
	c.JSON(http.StatusOK, resp)
}

func operatorID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid operator id"})
		return 0, false
	}
	return id, true
}
