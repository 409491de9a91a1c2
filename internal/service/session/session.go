// Package session remembers which operator is using each device.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/mamadbah2/calftracker/internal/domain/models"
)

var (
	// ErrUnknownOperator indicates the selected operator does not exist.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrInvalidPIN indicates the PIN entered does not match the operator's PIN.
	ErrInvalidPIN = errors.New("invalid PIN")
)

// OperatorLookup resolves operators from the current tracker state.
type OperatorLookup interface {
	Operator(id int64) (models.Operator, bool)
}

// Manager maps opaque device tokens to operator ids.
type Manager struct {
	operators OperatorLookup
	sessions  *cache.Cache
	logger    *zap.Logger
}

// NewManager creates a session manager whose entries expire after ttl of inactivity.
func NewManager(operators OperatorLookup, ttl time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		operators: operators,
		sessions:  cache.New(ttl, time.Hour),
		logger:    logger,
	}
}

// Select records operatorID as the device's operator. An operator with a PIN
// must be selected with the same PIN. When token already names a live session
// it is reused, so the last selection on a device wins.
func (m *Manager) Select(token string, operatorID int64, pin string) (string, models.Operator, error) {
	op, ok := m.operators.Operator(operatorID)
	if !ok {
		return "", models.Operator{}, ErrUnknownOperator
	}
	if op.HasPIN() && op.PIN != pin {
		m.logger.Info("operator selection rejected", zap.Int64("operator_id", operatorID))
		return "", models.Operator{}, ErrInvalidPIN
	}

	if token == "" {
		token = uuid.NewString()
	} else if _, found := m.sessions.Get(token); !found {
		token = uuid.NewString()
	}

	m.sessions.Set(token, op.ID, cache.DefaultExpiration)
	m.logger.Debug("operator selected", zap.Int64("operator_id", op.ID), zap.String("operator", op.Name))
	return token, op.Public(), nil
}

// Current returns the operator selected on the device, refreshing its expiry.
// Sessions of operators that no longer exist are dropped.
func (m *Manager) Current(token string) (models.Operator, bool) {
	if token == "" {
		return models.Operator{}, false
	}
	raw, found := m.sessions.Get(token)
	if !found {
		return models.Operator{}, false
	}
	id, _ := raw.(int64)

	op, ok := m.operators.Operator(id)
	if !ok {
		m.sessions.Delete(token)
		return models.Operator{}, false
	}

	m.sessions.Set(token, id, cache.DefaultExpiration)
	return op, true
}

// Clear forgets the device's operator.
func (m *Manager) Clear(token string) {
	m.sessions.Delete(token)
}
