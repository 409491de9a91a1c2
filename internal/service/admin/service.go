// Package admin implements the settings, protocol and operator screens that
// only admin operators may use.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/repository"
	"github.com/mamadbah2/calftracker/internal/service/tracker"
)

var (
	// ErrForbidden indicates the acting operator is not an admin.
	ErrForbidden = errors.New("admin role required")

	// ErrInvalidInput indicates a request failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLastAdmin indicates the change would leave no admin operator.
	ErrLastAdmin = errors.New("at least one admin operator is required")
)

// StateSource exposes the tracker state and lets admin writes refresh it.
type StateSource interface {
	Snapshot() tracker.State
	Reload(ctx context.Context) error
}

// NewOperator is the payload for creating an operator.
type NewOperator struct {
	Name  string      `json:"name" validate:"required,max=100"`
	Role  models.Role `json:"role" validate:"required,oneof=admin user"`
	PIN   string      `json:"pin,omitempty" validate:"omitempty,len=4,numeric"`
	Phone string      `json:"phone,omitempty" validate:"omitempty,numeric,max=20"`
}

// SettingsUpdate carries the editable settings. Nil fields keep their value.
type SettingsUpdate struct {
	NextAnimalNumber      *int `json:"next_animal_number,omitempty"`
	ConsecutiveCount      *int `json:"consecutive_count,omitempty"`
	LowConsumptionPercent *int `json:"low_consumption_percent,omitempty"`
	MissedFeedingHours    *int `json:"missed_feeding_hours,omitempty"`
}

// Service performs admin operations.
type Service struct {
	store    repository.Store
	state    StateSource
	validate *validator.Validate
	logger   *zap.Logger
}

// NewService constructs the admin service.
func NewService(store repository.Store, state StateSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		state:    state,
		validate: validator.New(),
		logger:   logger,
	}
}

func requireAdmin(actor models.Operator) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func (s *Service) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func (s *Service) reload(ctx context.Context) {
	if err := s.state.Reload(ctx); err != nil {
		s.logger.Warn("admin write succeeded but reload failed", zap.Error(err))
	}
}

// Operators lists every operator including PINs.
func (s *Service) Operators(actor models.Operator) ([]models.Operator, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.state.Snapshot().Operators, nil
}

// CreateOperator adds an operator account.
func (s *Service) CreateOperator(ctx context.Context, actor models.Operator, in NewOperator) (models.Operator, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Operator{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := s.check(in); err != nil {
		return models.Operator{}, err
	}

	created, err := s.store.CreateOperator(ctx, models.Operator{
		Name:  in.Name,
		Role:  in.Role,
		PIN:   in.PIN,
		Phone: in.Phone,
	})
	if err != nil {
		return models.Operator{}, fmt.Errorf("create operator: %w", err)
	}

	s.logger.Info("operator created", zap.Int64("id", created.ID), zap.String("by", actor.Name))
	s.reload(ctx)
	return created, nil
}

// UpdateOperator edits an operator account. An empty PIN removes it.
func (s *Service) UpdateOperator(ctx context.Context, actor models.Operator, id int64, update models.OperatorUpdate) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		if err := s.validate.Var(trimmed, "required,max=100"); err != nil {
			return fmt.Errorf("%w: name: %v", ErrInvalidInput, err)
		}
		update.Name = &trimmed
	}
	if update.Role != nil {
		if err := s.validate.Var(string(*update.Role), "oneof=admin user"); err != nil {
			return fmt.Errorf("%w: role: %v", ErrInvalidInput, err)
		}
		if *update.Role != models.RoleAdmin && s.isLastAdmin(id) {
			return ErrLastAdmin
		}
	}
	if update.PIN != nil {
		if err := s.validate.Var(*update.PIN, "omitempty,len=4,numeric"); err != nil {
			return fmt.Errorf("%w: pin: %v", ErrInvalidInput, err)
		}
	}
	if update.Phone != nil {
		if err := s.validate.Var(*update.Phone, "omitempty,numeric,max=20"); err != nil {
			return fmt.Errorf("%w: phone: %v", ErrInvalidInput, err)
		}
	}

	if err := s.store.UpdateOperator(ctx, id, update); err != nil {
		return fmt.Errorf("update operator %d: %w", id, err)
	}

	s.logger.Info("operator updated", zap.Int64("id", id), zap.String("by", actor.Name))
	s.reload(ctx)
	return nil
}

// DeleteOperator removes an operator permanently. Past feedings keep the
// operator's denormalized name.
func (s *Service) DeleteOperator(ctx context.Context, actor models.Operator, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if s.isLastAdmin(id) {
		return ErrLastAdmin
	}

	if err := s.store.DeleteOperator(ctx, id); err != nil {
		return fmt.Errorf("delete operator %d: %w", id, err)
	}

	s.logger.Info("operator deleted", zap.Int64("id", id), zap.String("by", actor.Name))
	s.reload(ctx)
	return nil
}

func (s *Service) isLastAdmin(id int64) bool {
	admins := lo.Filter(s.state.Snapshot().Operators, func(o models.Operator, _ int) bool { return o.IsAdmin() })
	return len(admins) == 1 && admins[0].ID == id
}

// Settings returns the effective settings.
func (s *Service) Settings(actor models.Operator) (models.Settings, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Settings{}, err
	}
	return s.state.Snapshot().Settings, nil
}

// UpdateSettings merges update into the current settings, bumps the version and
// persists every key.
func (s *Service) UpdateSettings(ctx context.Context, actor models.Operator, update SettingsUpdate) (models.Settings, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Settings{}, err
	}

	next := s.state.Snapshot().Settings
	if update.NextAnimalNumber != nil {
		next.NextAnimalNumber = *update.NextAnimalNumber
	}
	if update.ConsecutiveCount != nil {
		next.ConsecutiveCount = *update.ConsecutiveCount
	}
	if update.LowConsumptionPercent != nil {
		next.LowConsumptionPercent = *update.LowConsumptionPercent
	}
	if update.MissedFeedingHours != nil {
		next.MissedFeedingHours = *update.MissedFeedingHours
	}
	next.Version++

	if err := next.Validate(); err != nil {
		return models.Settings{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.store.PutSettings(ctx, next.Values()); err != nil {
		return models.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	s.logger.Info("settings updated", zap.Int("version", next.Version), zap.String("by", actor.Name))
	s.reload(ctx)
	return next, nil
}

// Protocols returns the configured protocols in order.
func (s *Service) Protocols(actor models.Operator) ([]models.Protocol, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.state.Snapshot().Protocols, nil
}

// ReplaceProtocols stores protocols as the new stage list. The list position
// becomes the protocol order.
func (s *Service) ReplaceProtocols(ctx context.Context, actor models.Operator, protocols []models.Protocol) ([]models.Protocol, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if len(protocols) == 0 {
		return nil, fmt.Errorf("%w: at least one protocol is required", ErrInvalidInput)
	}

	seen := make(map[string]struct{}, len(protocols))
	next := make([]models.Protocol, len(protocols))
	for i, p := range protocols {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("%w: protocol %d has no name", ErrInvalidInput, i+1)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate protocol %q", ErrInvalidInput, p.Name)
		}
		seen[p.Name] = struct{}{}
		if p.Type != models.ThresholdFeedings && p.Type != models.ThresholdDays {
			return nil, fmt.Errorf("%w: protocol %q has unknown type %q", ErrInvalidInput, p.Name, p.Type)
		}
		if p.Value < 0 {
			return nil, fmt.Errorf("%w: protocol %q has a negative threshold", ErrInvalidInput, p.Name)
		}
		p.ID = 0
		p.Order = i + 1
		next[i] = p
	}

	saved, err := s.store.ReplaceProtocols(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("replace protocols: %w", err)
	}

	s.logger.Info("protocols replaced", zap.Int("count", len(saved)), zap.String("by", actor.Name))
	s.reload(ctx)
	return saved, nil
}
