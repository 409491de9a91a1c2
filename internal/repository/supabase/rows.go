package supabase

import (
	"time"

	"github.com/mamadbah2/calftracker/internal/domain/models"
)

const (
	animalsTable   = "calves"
	feedingsTable  = "feedings"
	operatorsTable = "users"
	protocolsTable = "protocols"
	settingsTable  = "settings"
)

type animalRow struct {
	ID         int64     `json:"id,omitempty"`
	Number     int       `json:"number"`
	Name       *string   `json:"name"`
	BirthDate  time.Time `json:"birth_date"`
	BirthNotes *string   `json:"birth_notes"`
	Status     string    `json:"status"`
}

type feedingRow struct {
	ID          int64     `json:"id,omitempty"`
	CalfID      int64     `json:"calf_id"`
	CalfNumber  int       `json:"calf_number"`
	CalfName    *string   `json:"calf_name"`
	Timestamp   time.Time `json:"timestamp"`
	Period      string    `json:"period"`
	Consumption int       `json:"consumption"`
	Notes       *string   `json:"notes"`
	Treatment   bool      `json:"treatment"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"user_name"`
}

type operatorRow struct {
	ID    int64   `json:"id,omitempty"`
	Name  string  `json:"name"`
	Role  string  `json:"role"`
	PIN   *string `json:"pin"`
	Phone *string `json:"phone"`
}

type protocolRow struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Value     int    `json:"value"`
	SortOrder int    `json:"sort_order"`
}

type settingRow struct {
	Key   string `json:"setting_key"`
	Value string `json:"setting_value"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toAnimalRow(a models.Animal) animalRow {
	return animalRow{
		ID:         a.ID,
		Number:     a.Number,
		Name:       nullable(a.Name),
		BirthDate:  a.BirthDate.UTC(),
		BirthNotes: nullable(a.BirthNotes),
		Status:     string(a.Status),
	}
}

func (r animalRow) model() models.Animal {
	return models.Animal{
		ID:         r.ID,
		Number:     r.Number,
		Name:       deref(r.Name),
		BirthDate:  r.BirthDate,
		BirthNotes: deref(r.BirthNotes),
		Status:     models.AnimalStatus(r.Status),
	}
}

func toFeedingRow(f models.FeedingRecord) feedingRow {
	return feedingRow{
		ID:          f.ID,
		CalfID:      f.AnimalID,
		CalfNumber:  f.AnimalNumber,
		CalfName:    nullable(f.AnimalName),
		Timestamp:   f.Timestamp.UTC(),
		Period:      string(f.Period),
		Consumption: f.Consumption,
		Notes:       nullable(f.Notes),
		Treatment:   f.Treatment,
		UserID:      f.OperatorID,
		UserName:    f.OperatorName,
	}
}

func (r feedingRow) model() models.FeedingRecord {
	return models.FeedingRecord{
		ID:           r.ID,
		AnimalID:     r.CalfID,
		AnimalNumber: r.CalfNumber,
		AnimalName:   deref(r.CalfName),
		Timestamp:    r.Timestamp,
		Period:       models.Period(r.Period),
		Consumption:  r.Consumption,
		Notes:        deref(r.Notes),
		Treatment:    r.Treatment,
		OperatorID:   r.UserID,
		OperatorName: r.UserName,
	}
}

func toOperatorRow(o models.Operator) operatorRow {
	return operatorRow{
		ID:    o.ID,
		Name:  o.Name,
		Role:  string(o.Role),
		PIN:   nullable(o.PIN),
		Phone: nullable(o.Phone),
	}
}

func (r operatorRow) model() models.Operator {
	return models.Operator{
		ID:    r.ID,
		Name:  r.Name,
		Role:  models.Role(r.Role),
		PIN:   deref(r.PIN),
		Phone: deref(r.Phone),
	}
}

func toProtocolRow(p models.Protocol) protocolRow {
	return protocolRow{
		Name:      p.Name,
		Type:      string(p.Type),
		Value:     p.Value,
		SortOrder: p.Order,
	}
}

func (r protocolRow) model() models.Protocol {
	return models.Protocol{
		ID:    r.ID,
		Name:  r.Name,
		Type:  models.ThresholdType(r.Type),
		Value: r.Value,
		Order: r.SortOrder,
	}
}
