package tracker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/repository"
)

// NewAnimal is the payload for registering a calf. A nil Number asks for the
// next number from the settings counter.
type NewAnimal struct {
	Number     *int      `json:"number,omitempty"`
	Name       string    `json:"name,omitempty"`
	BirthDate  time.Time `json:"birth_date" binding:"required"`
	BirthNotes string    `json:"birth_notes,omitempty"`
}

// AddAnimal registers an active animal. Auto-numbering starts at the settings
// counter and skips numbers already in use. The counter moves past the assigned
// number whenever that number is at or above it.
func (s *Service) AddAnimal(ctx context.Context, in NewAnimal) (models.Animal, error) {
	if in.BirthDate.IsZero() {
		return models.Animal{}, fmt.Errorf("%w: birth date is required", ErrInvalidAnimal)
	}
	if in.BirthDate.After(s.now()) {
		return models.Animal{}, fmt.Errorf("%w: birth date is in the future", ErrInvalidAnimal)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	state := s.Snapshot()
	counter := state.Settings.NextAnimalNumber

	var number int
	if in.Number != nil {
		number = *in.Number
		if number < 1 {
			return models.Animal{}, fmt.Errorf("%w: number must be positive", ErrInvalidAnimal)
		}
		if _, taken := state.AnimalByNumber(number); taken {
			return models.Animal{}, repository.ErrDuplicateNumber
		}
	} else {
		number = counter
		for {
			if _, taken := state.AnimalByNumber(number); !taken {
				break
			}
			number++
		}
	}

	created, err := s.store.CreateAnimal(ctx, models.Animal{
		Number:     number,
		Name:       strings.TrimSpace(in.Name),
		BirthDate:  in.BirthDate,
		BirthNotes: strings.TrimSpace(in.BirthNotes),
		Status:     models.AnimalActive,
	})
	if err != nil {
		return models.Animal{}, fmt.Errorf("create animal %d: %w", number, err)
	}
	s.logger.Info("animal added", zap.Int64("id", created.ID), zap.Int("number", created.Number))

	if number >= counter {
		next := map[string]string{models.SettingNextAnimalNumber: strconv.Itoa(number + 1)}
		if err := s.store.PutSettings(ctx, next); err != nil {
			s.logger.Warn("failed to advance animal counter", zap.Int("next", number+1), zap.Error(err))
		}
	}

	s.reloadAfterWrite(ctx)
	return created, nil
}

// UpdateAnimal renames or archives/reactivates an animal.
func (s *Service) UpdateAnimal(ctx context.Context, id int64, update models.AnimalUpdate) error {
	if update.Status != nil && !update.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidAnimal, *update.Status)
	}
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		update.Name = &trimmed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.UpdateAnimal(ctx, id, update); err != nil {
		return fmt.Errorf("update animal %d: %w", id, err)
	}

	s.reloadAfterWrite(ctx)
	return nil
}
