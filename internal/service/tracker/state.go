package tracker

import (
	"time"

	"github.com/mamadbah2/calftracker/internal/domain/flagging"
	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/domain/protocol"
)

// State is one consistent snapshot of every collection the views read from.
// Feedings are ordered newest first.
type State struct {
	Animals   []models.Animal
	Feedings  []models.FeedingRecord
	Operators []models.Operator
	Protocols []models.Protocol
	Settings  models.Settings
	LoadedAt  time.Time

	history map[int64][]models.FeedingRecord
}

func newState(animals []models.Animal, feedings []models.FeedingRecord, operators []models.Operator, protocols []models.Protocol, settings models.Settings, loadedAt time.Time) State {
	history := make(map[int64][]models.FeedingRecord, len(animals))
	for _, f := range feedings {
		history[f.AnimalID] = append(history[f.AnimalID], f)
	}
	return State{
		Animals:   animals,
		Feedings:  feedings,
		Operators: operators,
		Protocols: protocols,
		Settings:  settings,
		LoadedAt:  loadedAt,
		history:   history,
	}
}

// History returns the feedings of one animal, newest first.
func (s State) History(animalID int64) []models.FeedingRecord {
	return s.history[animalID]
}

// Classify places the animal in its current protocol.
func (s State) Classify(a models.Animal, now time.Time) string {
	return protocol.Classify(a.BirthDate, len(s.history[a.ID]), s.Protocols, now)
}

// Flag evaluates the attention rules for the animal.
func (s State) Flag(a models.Animal, now time.Time) models.FlagReason {
	return flagging.Evaluate(s.history[a.ID], s.Settings.Thresholds, now)
}

// Animal looks an animal up by id.
func (s State) Animal(id int64) (models.Animal, bool) {
	for _, a := range s.Animals {
		if a.ID == id {
			return a, true
		}
	}
	return models.Animal{}, false
}

// AnimalByNumber looks an animal up by its display number.
func (s State) AnimalByNumber(number int) (models.Animal, bool) {
	for _, a := range s.Animals {
		if a.Number == number {
			return a, true
		}
	}
	return models.Animal{}, false
}

// Operator looks an operator up by id.
func (s State) Operator(id int64) (models.Operator, bool) {
	for _, o := range s.Operators {
		if o.ID == id {
			return o, true
		}
	}
	return models.Operator{}, false
}

// OperatorByPhone looks an operator up by WhatsApp id.
func (s State) OperatorByPhone(phone string) (models.Operator, bool) {
	if phone == "" {
		return models.Operator{}, false
	}
	for _, o := range s.Operators {
		if o.Phone == phone {
			return o, true
		}
	}
	return models.Operator{}, false
}

// RecordFor returns the feeding stored under key, if any.
func (s State) RecordFor(key models.FeedingKey, loc *time.Location) (models.FeedingRecord, bool) {
	for _, f := range s.history[key.AnimalID] {
		if f.Key(loc) == key {
			return f, true
		}
	}
	return models.FeedingRecord{}, false
}
