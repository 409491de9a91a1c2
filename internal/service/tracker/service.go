// Package tracker holds the in-memory application state and the operations the
// feeding screens perform against it.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/repository"
)

var (
	// ErrInvalidConsumption indicates a consumption outside 0-100.
	ErrInvalidConsumption = errors.New("consumption must be between 0 and 100")

	// ErrNoFeedingThisPeriod indicates an edit targeted a period with no feeding recorded.
	ErrNoFeedingThisPeriod = errors.New("no feeding recorded for the current period")

	// ErrAnimalInactive indicates a feeding was attempted on an archived animal.
	ErrAnimalInactive = errors.New("animal is archived")

	// ErrInvalidAnimal indicates the new animal payload is incomplete.
	ErrInvalidAnimal = errors.New("invalid animal")
)

// Service owns the current State and performs every write through the store,
// reloading the full dataset afterwards.
type Service struct {
	store    repository.Store
	defaults models.Settings
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.RWMutex
	state  State
	loaded bool

	// writeMu serializes read-modify-write sequences such as the feeding upsert.
	writeMu sync.Mutex
}

// NewService constructs a tracker bound to store. loc is the farm's timezone used
// for calendar days and AM/PM periods.
func NewService(store repository.Store, defaults models.Settings, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:    store,
		defaults: defaults,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
		state:    newState(nil, nil, nil, nil, defaults, time.Time{}),
	}
}

// Location returns the farm timezone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Now returns the current time in the farm timezone.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// Snapshot returns the current state. The slices must be treated as read-only.
func (s *Service) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Loaded reports whether at least one reload succeeded.
func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Reload fetches every collection in parallel and swaps the state in one step.
// On failure the previous state stays in place and the error is returned.
func (s *Service) Reload(ctx context.Context) error {
	var (
		animals   []models.Animal
		feedings  []models.FeedingRecord
		operators []models.Operator
		protocols []models.Protocol
		raw       map[string]string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		animals, err = s.store.ListAnimals(gctx)
		return err
	})
	g.Go(func() (err error) {
		feedings, err = s.store.ListFeedings(gctx)
		return err
	})
	g.Go(func() (err error) {
		operators, err = s.store.ListOperators(gctx)
		return err
	})
	g.Go(func() (err error) {
		protocols, err = s.store.ListProtocols(gctx)
		return err
	})
	g.Go(func() (err error) {
		raw, err = s.store.ListSettings(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to reload tracker state, keeping previous snapshot", zap.Error(err))
		return fmt.Errorf("reload state: %w", err)
	}

	if len(protocols) == 0 {
		seeded, err := s.store.ReplaceProtocols(ctx, models.DefaultProtocols())
		if err != nil {
			s.logger.Warn("failed to seed default protocols", zap.Error(err))
			seeded = models.DefaultProtocols()
		} else {
			s.logger.Info("seeded default protocols", zap.Int("count", len(seeded)))
		}
		protocols = seeded
	}
	models.SortProtocols(protocols)

	settings, err := models.ParseSettings(raw, s.defaults)
	if err != nil {
		s.logger.Warn("settings contain invalid values, defaults applied", zap.Error(err))
	}

	next := newState(animals, feedings, operators, protocols, settings, s.now())

	s.mu.Lock()
	s.state = next
	s.loaded = true
	s.mu.Unlock()

	s.logger.Debug("tracker state reloaded",
		zap.Int("animals", len(animals)),
		zap.Int("feedings", len(feedings)),
		zap.Int("operators", len(operators)),
		zap.Int("protocols", len(protocols)),
	)
	return nil
}

// reloadAfterWrite refreshes the state once a write has been acknowledged. A
// failed reload leaves the write in place and is only logged.
func (s *Service) reloadAfterWrite(ctx context.Context) {
	if err := s.Reload(ctx); err != nil {
		s.logger.Warn("write succeeded but reload failed", zap.Error(err))
	}
}

// applyFeeding writes saved into the current state, replacing the record with
// the same id. The next upsert must see it even if the following reload fails.
func (s *Service) applyFeeding(saved models.FeedingRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state
	feedings := make([]models.FeedingRecord, 0, len(cur.Feedings)+1)
	feedings = append(feedings, saved)
	for _, f := range cur.Feedings {
		if f.ID != saved.ID {
			feedings = append(feedings, f)
		}
	}
	sort.SliceStable(feedings, func(i, j int) bool {
		return feedings[i].Timestamp.After(feedings[j].Timestamp)
	})

	s.state = newState(cur.Animals, feedings, cur.Operators, cur.Protocols, cur.Settings, cur.LoadedAt)
}

// CurrentRecord returns the animal's feeding for the current day and period.
func (s *Service) CurrentRecord(animalID int64) (models.FeedingRecord, bool) {
	key := models.FeedingKeyFor(animalID, s.now(), s.loc)
	return s.Snapshot().RecordFor(key, s.loc)
}

// RecordFeeding stores the consumption for the current period. An existing
// record for the same animal, day and period is updated in place; otherwise a
// new record is attributed to op.
func (s *Service) RecordFeeding(ctx context.Context, animalID int64, consumption int, op models.Operator) (models.FeedingRecord, error) {
	if !models.ValidConsumption(consumption) {
		return models.FeedingRecord{}, ErrInvalidConsumption
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	state := s.Snapshot()
	animal, ok := state.Animal(animalID)
	if !ok {
		return models.FeedingRecord{}, fmt.Errorf("animal %d: %w", animalID, repository.ErrNotFound)
	}
	if !animal.IsActive() {
		return models.FeedingRecord{}, ErrAnimalInactive
	}

	now := s.now()
	key := models.FeedingKeyFor(animalID, now, s.loc)

	var saved models.FeedingRecord
	if existing, found := state.RecordFor(key, s.loc); found {
		update := models.FeedingUpdate{Consumption: &consumption, Timestamp: &now}
		if err := s.store.UpdateFeeding(ctx, existing.ID, update); err != nil {
			return models.FeedingRecord{}, fmt.Errorf("update feeding %s: %w", key, err)
		}
		saved = existing
		saved.Consumption = consumption
		saved.Timestamp = now
		saved.Day = key.Day
		s.logger.Info("feeding updated", zap.String("key", key.String()), zap.Int("consumption", consumption))
	} else {
		record := models.FeedingRecord{
			AnimalID:     animal.ID,
			AnimalNumber: animal.Number,
			AnimalName:   animal.Name,
			Timestamp:    now,
			Day:          key.Day,
			Period:       key.Period,
			Consumption:  consumption,
			OperatorID:   op.ID,
			OperatorName: op.Name,
		}
		created, err := s.store.CreateFeeding(ctx, record)
		if err != nil {
			return models.FeedingRecord{}, fmt.Errorf("create feeding %s: %w", key, err)
		}
		saved = created
		s.logger.Info("feeding recorded", zap.String("key", key.String()), zap.Int("consumption", consumption), zap.String("operator", op.Name))
	}

	s.applyFeeding(saved)
	s.reloadAfterWrite(ctx)
	return saved, nil
}

// UpdateNotes replaces the notes of the current period's feeding.
func (s *Service) UpdateNotes(ctx context.Context, animalID int64, notes string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, ok := s.CurrentRecord(animalID)
	if !ok {
		return ErrNoFeedingThisPeriod
	}

	notes = strings.TrimSpace(notes)
	if err := s.store.UpdateFeeding(ctx, current.ID, models.FeedingUpdate{Notes: &notes}); err != nil {
		return fmt.Errorf("update notes on feeding %d: %w", current.ID, err)
	}
	current.Notes = notes

	s.applyFeeding(current)
	s.reloadAfterWrite(ctx)
	return nil
}

// ToggleTreatment flips the treatment marker of the current period's feeding and
// returns the new value.
func (s *Service) ToggleTreatment(ctx context.Context, animalID int64) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, ok := s.CurrentRecord(animalID)
	if !ok {
		return false, ErrNoFeedingThisPeriod
	}

	treated := !current.Treatment
	if err := s.store.UpdateFeeding(ctx, current.ID, models.FeedingUpdate{Treatment: &treated}); err != nil {
		return false, fmt.Errorf("toggle treatment on feeding %d: %w", current.ID, err)
	}
	current.Treatment = treated

	s.applyFeeding(current)
	s.reloadAfterWrite(ctx)
	return treated, nil
}

// Operator resolves an operator from the current state.
func (s *Service) Operator(id int64) (models.Operator, bool) {
	return s.Snapshot().Operator(id)
}
