// Package repository defines the record source the tracker reads and writes.
// Backends live in the subpackages.
package repository

import (
	"context"
	"errors"

	"github.com/mamadbah2/calftracker/internal/domain/models"
)

// ErrNotFound is returned when a record addressed by id does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateNumber is returned when an animal number is already taken.
var ErrDuplicateNumber = errors.New("animal number already in use")

// Store is the persistent record source for animals, feedings, operators,
// protocols and settings.
type Store interface {
	ListAnimals(ctx context.Context) ([]models.Animal, error)
	CreateAnimal(ctx context.Context, animal models.Animal) (models.Animal, error)
	UpdateAnimal(ctx context.Context, id int64, update models.AnimalUpdate) error

	ListFeedings(ctx context.Context) ([]models.FeedingRecord, error)
	CreateFeeding(ctx context.Context, record models.FeedingRecord) (models.FeedingRecord, error)
	UpdateFeeding(ctx context.Context, id int64, update models.FeedingUpdate) error

	ListOperators(ctx context.Context) ([]models.Operator, error)
	CreateOperator(ctx context.Context, op models.Operator) (models.Operator, error)
	UpdateOperator(ctx context.Context, id int64, update models.OperatorUpdate) error
	DeleteOperator(ctx context.Context, id int64) error

	// ListProtocols returns protocols ascending by their Order field.
	ListProtocols(ctx context.Context) ([]models.Protocol, error)
	ReplaceProtocols(ctx context.Context, protocols []models.Protocol) ([]models.Protocol, error)

	ListSettings(ctx context.Context) (map[string]string, error)
	PutSettings(ctx context.Context, values map[string]string) error
}
