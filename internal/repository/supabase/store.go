// Package supabase implements the record store on top of a hosted PostgREST API.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/repository"
	client "github.com/mamadbah2/calftracker/pkg/clients/supabase"
)

// Store implements repository.Store against the calves/feedings/users/protocols/settings tables.
type Store struct {
	client client.Client
	logger *zap.Logger
}

var _ repository.Store = (*Store)(nil)

// NewStore wires a store over the given PostgREST client.
func NewStore(c client.Client, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: c, logger: logger}
}

func ordered(column string) url.Values {
	return url.Values{"order": []string{column}}
}

func translate(err error) error {
	var apiErr *client.Error
	if errors.As(err, &apiErr) && apiErr.UniqueViolation() {
		return repository.ErrDuplicateNumber
	}
	return err
}

func requireAffected(n int, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListAnimals returns all animals ordered by birth date.
func (s *Store) ListAnimals(ctx context.Context) ([]models.Animal, error) {
	var rows []animalRow
	if err := s.client.Select(ctx, animalsTable, ordered("birth_date.asc"), &rows); err != nil {
		return nil, fmt.Errorf("list animals: %w", err)
	}
	return lo.Map(rows, func(r animalRow, _ int) models.Animal { return r.model() }), nil
}

// CreateAnimal inserts an animal and returns it with its assigned id.
func (s *Store) CreateAnimal(ctx context.Context, animal models.Animal) (models.Animal, error) {
	row := toAnimalRow(animal)
	row.ID = 0

	var created []animalRow
	if err := s.client.Insert(ctx, animalsTable, []animalRow{row}, &created); err != nil {
		return models.Animal{}, fmt.Errorf("create animal %d: %w", animal.Number, translate(err))
	}
	if len(created) == 0 {
		return models.Animal{}, fmt.Errorf("create animal %d: empty representation", animal.Number)
	}

	s.logger.Debug("animal created", zap.Int64("id", created[0].ID), zap.Int("number", created[0].Number))
	return created[0].model(), nil
}

// UpdateAnimal patches the name and/or status of an animal.
func (s *Store) UpdateAnimal(ctx context.Context, id int64, update models.AnimalUpdate) error {
	patch := map[string]any{}
	if update.Name != nil {
		patch["name"] = nullable(*update.Name)
	}
	if update.Status != nil {
		patch["status"] = string(*update.Status)
	}
	if len(patch) == 0 {
		return nil
	}

	err := requireAffected(s.client.Update(ctx, animalsTable, client.Eq("id", id), patch))
	if err != nil {
		return fmt.Errorf("update animal %d: %w", id, err)
	}
	return nil
}

// ListFeedings returns all feeding records, newest first.
func (s *Store) ListFeedings(ctx context.Context) ([]models.FeedingRecord, error) {
	var rows []feedingRow
	if err := s.client.Select(ctx, feedingsTable, ordered("timestamp.desc"), &rows); err != nil {
		return nil, fmt.Errorf("list feedings: %w", err)
	}
	return lo.Map(rows, func(r feedingRow, _ int) models.FeedingRecord { return r.model() }), nil
}

// CreateFeeding inserts a feeding record and returns it with its assigned id.
func (s *Store) CreateFeeding(ctx context.Context, record models.FeedingRecord) (models.FeedingRecord, error) {
	row := toFeedingRow(record)
	row.ID = 0

	var created []feedingRow
	if err := s.client.Insert(ctx, feedingsTable, []feedingRow{row}, &created); err != nil {
		return models.FeedingRecord{}, fmt.Errorf("create feeding for animal %d: %w", record.AnimalID, err)
	}
	if len(created) == 0 {
		return models.FeedingRecord{}, fmt.Errorf("create feeding for animal %d: empty representation", record.AnimalID)
	}
	return created[0].model(), nil
}

// UpdateFeeding patches consumption, timestamp, notes and/or treatment.
func (s *Store) UpdateFeeding(ctx context.Context, id int64, update models.FeedingUpdate) error {
	patch := map[string]any{}
	if update.Consumption != nil {
		patch["consumption"] = *update.Consumption
	}
	if update.Timestamp != nil {
		patch["timestamp"] = update.Timestamp.UTC()
	}
	if update.Notes != nil {
		patch["notes"] = nullable(*update.Notes)
	}
	if update.Treatment != nil {
		patch["treatment"] = *update.Treatment
	}
	if len(patch) == 0 {
		return nil
	}

	err := requireAffected(s.client.Update(ctx, feedingsTable, client.Eq("id", id), patch))
	if err != nil {
		return fmt.Errorf("update feeding %d: %w", id, err)
	}
	return nil
}

// ListOperators returns all operators ordered by name.
func (s *Store) ListOperators(ctx context.Context) ([]models.Operator, error) {
	var rows []operatorRow
	if err := s.client.Select(ctx, operatorsTable, ordered("name.asc"), &rows); err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	return lo.Map(rows, func(r operatorRow, _ int) models.Operator { return r.model() }), nil
}

// CreateOperator inserts an operator and returns it with its assigned id.
func (s *Store) CreateOperator(ctx context.Context, op models.Operator) (models.Operator, error) {
	row := toOperatorRow(op)
	row.ID = 0

	var created []operatorRow
	if err := s.client.Insert(ctx, operatorsTable, []operatorRow{row}, &created); err != nil {
		return models.Operator{}, fmt.Errorf("create operator %s: %w", op.Name, err)
	}
	if len(created) == 0 {
		return models.Operator{}, fmt.Errorf("create operator %s: empty representation", op.Name)
	}
	return created[0].model(), nil
}

// UpdateOperator patches the given operator fields.
func (s *Store) UpdateOperator(ctx context.Context, id int64, update models.OperatorUpdate) error {
	patch := map[string]any{}
	if update.Name != nil {
		patch["name"] = *update.Name
	}
	if update.Role != nil {
		patch["role"] = string(*update.Role)
	}
	if update.PIN != nil {
		patch["pin"] = nullable(*update.PIN)
	}
	if update.Phone != nil {
		patch["phone"] = nullable(*update.Phone)
	}
	if len(patch) == 0 {
		return nil
	}

	err := requireAffected(s.client.Update(ctx, operatorsTable, client.Eq("id", id), patch))
	if err != nil {
		return fmt.Errorf("update operator %d: %w", id, err)
	}
	return nil
}

// DeleteOperator removes an operator permanently.
func (s *Store) DeleteOperator(ctx context.Context, id int64) error {
	err := requireAffected(s.client.Delete(ctx, operatorsTable, client.Eq("id", id)))
	if err != nil {
		return fmt.Errorf("delete operator %d: %w", id, err)
	}
	return nil
}

// ListProtocols returns protocols ascending by sort order.
func (s *Store) ListProtocols(ctx context.Context) ([]models.Protocol, error) {
	var rows []protocolRow
	if err := s.client.Select(ctx, protocolsTable, ordered("sort_order.asc"), &rows); err != nil {
		return nil, fmt.Errorf("list protocols: %w", err)
	}
	return lo.Map(rows, func(r protocolRow, _ int) models.Protocol { return r.model() }), nil
}

// ReplaceProtocols deletes every protocol row and inserts the given list.
// PostgREST offers no transaction here; a failed insert leaves the table empty
// and the tracker falls back to the default protocols on its next load.
func (s *Store) ReplaceProtocols(ctx context.Context, protocols []models.Protocol) ([]models.Protocol, error) {
	if _, err := s.client.Delete(ctx, protocolsTable, url.Values{"id": []string{"gt.0"}}); err != nil {
		return nil, fmt.Errorf("clear protocols: %w", err)
	}
	if len(protocols) == 0 {
		return nil, nil
	}

	rows := lo.Map(protocols, func(p models.Protocol, _ int) protocolRow { return toProtocolRow(p) })
	var created []protocolRow
	if err := s.client.Insert(ctx, protocolsTable, rows, &created); err != nil {
		return nil, fmt.Errorf("insert protocols: %w", err)
	}

	out := lo.Map(created, func(r protocolRow, _ int) models.Protocol { return r.model() })
	models.SortProtocols(out)
	return out, nil
}

// ListSettings returns the raw key/value settings.
func (s *Store) ListSettings(ctx context.Context) (map[string]string, error) {
	var rows []settingRow
	if err := s.client.Select(ctx, settingsTable, nil, &rows); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return lo.SliceToMap(rows, func(r settingRow) (string, string) { return r.Key, r.Value }), nil
}

// PutSettings upserts the given keys.
func (s *Store) PutSettings(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	rows := lo.MapToSlice(values, func(k, v string) settingRow { return settingRow{Key: k, Value: v} })
	if err := s.client.Upsert(ctx, settingsTable, "setting_key", rows); err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}
