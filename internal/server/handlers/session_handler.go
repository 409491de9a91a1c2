package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/service/session"
	"github.com/mamadbah2/calftracker/internal/service/tracker"
)

// SessionHeader carries the device token issued by POST /session.
const SessionHeader = "X-Session-Token"

// operatorKey is the gin context key holding the selected operator.
const operatorKey = "operator"

// SessionHandler serves operator selection.
type SessionHandler struct {
	tracker  *tracker.Service
	sessions *session.Manager
	logger   *zap.Logger
}

// NewSessionHandler constructs the operator selection handler.
func NewSessionHandler(t *tracker.Service, sessions *session.Manager, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{tracker: t, sessions: sessions, logger: logger}
}

type selectRequest struct {
	OperatorID int64  `json:"operator_id" binding:"required"`
	PIN        string `json:"pin"`
}

type operatorView struct {
	models.Operator
	NeedsPIN bool `json:"needs_pin"`
}

// ListOperators returns the operators shown on the selection screen, without PINs.
func (h *SessionHandler) ListOperators(c *gin.Context) {
	ops := lo.Map(h.tracker.Snapshot().Operators, func(o models.Operator, _ int) operatorView {
		return operatorView{Operator: o.Public(), NeedsPIN: o.HasPIN()}
	})
	c.JSON(http.StatusOK, gin.H{"operators": ops})
}

// Select picks the device's operator.
func (h *SessionHandler) Select(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	token, op, err := h.sessions.Select(c.GetHeader(SessionHeader), req.OperatorID, req.PIN)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "operator": op})
}

// Current returns the device's operator.
func (h *SessionHandler) Current(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"operator": CurrentOperator(c).Public()})
}

// Clear switches user by forgetting the device's operator.
func (h *SessionHandler) Clear(c *gin.Context) {
	h.sessions.Clear(c.GetHeader(SessionHeader))
	c.Status(http.StatusNoContent)
}

// RequireOperator rejects requests without a live session and stores the
// operator on the context.
func RequireOperator(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		op, ok := sessions.Current(c.GetHeader(SessionHeader))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "select an operator first"})
			return
		}
		c.Set(operatorKey, op)
		c.Next()
	}
}

// RequireAdmin rejects operators without the admin role. It must run after RequireOperator.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentOperator(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

// CurrentOperator returns the operator stored by RequireOperator.
func CurrentOperator(c *gin.Context) models.Operator {
	op, _ := c.MustGet(operatorKey).(models.Operator)
	return op
}
