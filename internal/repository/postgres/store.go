// Package postgres implements the record store with a direct gorm connection
// to the same relational schema the hosted API exposes.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/repository"
)

// Store implements repository.Store with gorm.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ repository.Store = (*Store)(nil)

// Open connects to dsn and migrates the tracker tables.
func Open(dsn string, logger *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewStore(db, logger)
}

// NewStore wraps an existing connection and runs AutoMigrate.
func NewStore(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := db.AutoMigrate(&animalRow{}, &feedingRow{}, &operatorRow{}, &protocolRow{}, &settingRow{}); err != nil {
		return nil, fmt.Errorf("migrate tracker tables: %w", err)
	}

	logger.Info("postgres store ready")
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func affected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListAnimals returns all animals ordered by birth date.
func (s *Store) ListAnimals(ctx context.Context) ([]models.Animal, error) {
	var rows []animalRow
	if err := s.db.WithContext(ctx).Order("birth_date asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list animals: %w", err)
	}
	return lo.Map(rows, func(r animalRow, _ int) models.Animal { return r.model() }), nil
}

// CreateAnimal inserts an animal and returns it with its assigned id.
func (s *Store) CreateAnimal(ctx context.Context, animal models.Animal) (models.Animal, error) {
	row := toAnimalRow(animal)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.Animal{}, repository.ErrDuplicateNumber
		}
		return models.Animal{}, fmt.Errorf("create animal %d: %w", animal.Number, err)
	}
	return row.model(), nil
}

// UpdateAnimal patches the name and/or status of an animal.
func (s *Store) UpdateAnimal(ctx context.Context, id int64, update models.AnimalUpdate) error {
	patch := map[string]any{}
	if update.Name != nil {
		patch["name"] = *update.Name
	}
	if update.Status != nil {
		patch["status"] = string(*update.Status)
	}
	if len(patch) == 0 {
		return nil
	}

	res := s.db.WithContext(ctx).Model(&animalRow{}).Where("id = ?", id).Updates(patch)
	if err := affected(res); err != nil {
		return fmt.Errorf("update animal %d: %w", id, err)
	}
	return nil
}

// ListFeedings returns all feeding records, newest first.
func (s *Store) ListFeedings(ctx context.Context) ([]models.FeedingRecord, error) {
	var rows []feedingRow
	if err := s.db.WithContext(ctx).Order("timestamp desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list feedings: %w", err)
	}
	return lo.Map(rows, func(r feedingRow, _ int) models.FeedingRecord { return r.model() }), nil
}

// CreateFeeding inserts a feeding record and returns it with its assigned id.
// When the calf already has a row for the same day and period, that row's
// consumption and timestamp are updated and the stored row is returned.
func (s *Store) CreateFeeding(ctx context.Context, record models.FeedingRecord) (models.FeedingRecord, error) {
	row := toFeedingRow(record)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "calf_id"}, {Name: "day"}, {Name: "period"}},
			DoUpdates: clause.AssignmentColumns([]string{"consumption", "timestamp"}),
		}).Create(&row).Error
		if err != nil || row.Day == nil {
			return err
		}

		var stored feedingRow
		err = tx.Where("calf_id = ? AND day = ? AND period = ?", row.CalfID, *row.Day, row.Period).First(&stored).Error
		row = stored
		return err
	})
	if err != nil {
		return models.FeedingRecord{}, fmt.Errorf("create feeding for animal %d: %w", record.AnimalID, err)
	}
	return row.model(), nil
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
		patch["notes"] = *update.Notes
	}
	if update.Treatment != nil {
		patch["treatment"] = *update.Treatment
	}
	if len(patch) == 0 {
		return nil
	}

	res := s.db.WithContext(ctx).Model(&feedingRow{}).Where("id = ?", id).Updates(patch)
	if err := affected(res); err != nil {
		return fmt.Errorf("update feeding %d: %w", id, err)
	}
	return nil
}

// ListOperators returns all operators ordered by name.
func (s *Store) ListOperators(ctx context.Context) ([]models.Operator, error) {
	var rows []operatorRow
	if err := s.db.WithContext(ctx).Order("name asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	return lo.Map(rows, func(r operatorRow, _ int) models.Operator { return r.model() }), nil
}

// CreateOperator inserts an operator and returns it with its assigned id.
func (s *Store) CreateOperator(ctx context.Context, op models.Operator) (models.Operator, error) {
	row := toOperatorRow(op)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Operator{}, fmt.Errorf("create operator %s: %w", op.Name, err)
	}
	return row.model(), nil
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
		patch["pin"] = *update.PIN
	}
	if update.Phone != nil {
		patch["phone"] = *update.Phone
	}
	if len(patch) == 0 {
		return nil
	}

	res := s.db.WithContext(ctx).Model(&operatorRow{}).Where("id = ?", id).Updates(patch)
	if err := affected(res); err != nil {
		return fmt.Errorf("update operator %d: %w", id, err)
	}
	return nil
}

// DeleteOperator removes an operator permanently.
func (s *Store) DeleteOperator(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&operatorRow{}, id)
	if err := affected(res); err != nil {
		return fmt.Errorf("delete operator %d: %w", id, err)
	}
	return nil
}

// ListProtocols returns protocols ascending by sort order.
func (s *Store) ListProtocols(ctx context.Context) ([]models.Protocol, error) {
	var rows []protocolRow
	if err := s.db.WithContext(ctx).Order("sort_order asc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list protocols: %w", err)
	}
	return lo.Map(rows, func(r protocolRow, _ int) models.Protocol { return r.model() }), nil
}

// ReplaceProtocols swaps the protocol list inside one transaction.
func (s *Store) ReplaceProtocols(ctx context.Context, protocols []models.Protocol) ([]models.Protocol, error) {
	rows := lo.Map(protocols, func(p models.Protocol, _ int) protocolRow { return toProtocolRow(p) })

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&protocolRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("replace protocols: %w", err)
	}

	out := lo.Map(rows, func(r protocolRow, _ int) models.Protocol { return r.model() })
	models.SortProtocols(out)
	return out, nil
}

// ListSettings returns the raw key/value settings.
func (s *Store) ListSettings(ctx context.Context) (map[string]string, error) {
	var rows []settingRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
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

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"setting_value"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}
