// Package memory provides an in-process Store used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/repository"
)

// Store keeps every collection in maps guarded by a single mutex.
type Store struct {
	mu        sync.RWMutex
	seq       int64
	animals   map[int64]models.Animal
	feedings  map[int64]models.FeedingRecord
	operators map[int64]models.Operator
	protocols []models.Protocol
	settings  map[string]string
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		animals:   make(map[int64]models.Animal),
		feedings:  make(map[int64]models.FeedingRecord),
		operators: make(map[int64]models.Operator),
		settings:  make(map[string]string),
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// ListAnimals returns all animals ordered by id.
func (s *Store) ListAnimals(_ context.Context) ([]models.Animal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Animal, 0, len(s.animals))
	for _, a := range s.animals {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateAnimal stores a new animal and assigns its id.
func (s *Store) CreateAnimal(_ context.Context, animal models.Animal) (models.Animal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.animals {
		if existing.Number == animal.Number {
			return models.Animal{}, repository.ErrDuplicateNumber
		}
	}

	animal.ID = s.nextID()
	s.animals[animal.ID] = animal
	return animal, nil
}

// UpdateAnimal applies the non-nil fields of update.
func (s *Store) UpdateAnimal(_ context.Context, id int64, update models.AnimalUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	animal, ok := s.animals[id]
	if !ok {
		return repository.ErrNotFound
	}
	if update.Name != nil {
		animal.Name = *update.Name
	}
	if update.Status != nil {
		animal.Status = *update.Status
	}
	s.animals[id] = animal
	return nil
}

// ListFeedings returns all feeding records, newest first.
func (s *Store) ListFeedings(_ context.Context) ([]models.FeedingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.FeedingRecord, 0, len(s.feedings))
	for _, f := range s.feedings {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// CreateFeeding stores a new feeding record and assigns its id. A record with a
// Day that matches an existing slot updates that record's consumption and
// timestamp instead.
func (s *Store) CreateFeeding(_ context.Context, record models.FeedingRecord) (models.FeedingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.Day != "" {
		for id, existing := range s.feedings {
			if existing.AnimalID == record.AnimalID && existing.Day == record.Day && existing.Period == record.Period {
				existing.Consumption = record.Consumption
				existing.Timestamp = record.Timestamp
				s.feedings[id] = existing
				return existing, nil
			}
		}
	}

	record.ID = s.nextID()
	s.feedings[record.ID] = record
	return record, nil
}

// UpdateFeeding applies the non-nil fields of update.
func (s *Store) UpdateFeeding(_ context.Context, id int64, update models.FeedingUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.feedings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if update.Consumption != nil {
		record.Consumption = *update.Consumption
	}
	if update.Timestamp != nil {
		record.Timestamp = *update.Timestamp
	}
	if update.Notes != nil {
		record.Notes = *update.Notes
	}
	if update.Treatment != nil {
		record.Treatment = *update.Treatment
	}
	s.feedings[id] = record
	return nil
}

// ListOperators returns all operators ordered by name.
func (s *Store) ListOperators(_ context.Context) ([]models.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Operator, 0, len(s.operators))
	for _, op := range s.operators {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateOperator stores a new operator and assigns its id.
func (s *Store) CreateOperator(_ context.Context, op models.Operator) (models.Operator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op.ID = s.nextID()
	s.operators[op.ID] = op
	return op, nil
}

// UpdateOperator applies the non-nil fields of update.
func (s *Store) UpdateOperator(_ context.Context, id int64, update models.OperatorUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.operators[id]
	if !ok {
		return repository.ErrNotFound
	}
	if update.Name != nil {
		op.Name = *update.Name
	}
	if update.Role != nil {
		op.Role = *update.Role
	}
	if update.PIN != nil {
		op.PIN = *update.PIN
	}
	if update.Phone != nil {
		op.Phone = *update.Phone
	}
	s.operators[id] = op
	return nil
}

// DeleteOperator removes an operator permanently.
func (s *Store) DeleteOperator(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.operators[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.operators, id)
	return nil
}

// ListProtocols returns protocols ascending by Order.
func (s *Store) ListProtocols(_ context.Context) ([]models.Protocol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Protocol, len(s.protocols))
	copy(out, s.protocols)
	models.SortProtocols(out)
	return out, nil
}

// ReplaceProtocols swaps the whole protocol list, assigning ids to every entry.
func (s *Store) ReplaceProtocols(_ context.Context, protocols []models.Protocol) ([]models.Protocol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.Protocol, len(protocols))
	for i, p := range protocols {
		p.ID = s.nextID()
		next[i] = p
	}
	s.protocols = next

	out := make([]models.Protocol, len(next))
	copy(out, next)
	models.SortProtocols(out)
	return out, nil
}

// ListSettings returns a copy of the key/value settings.
func (s *Store) ListSettings(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out, nil
}

// PutSettings upserts the given keys.
func (s *Store) PutSettings(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		s.settings[k] = v
	}
	return nil
}
