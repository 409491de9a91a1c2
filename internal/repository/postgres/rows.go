package postgres

import (
	"time"

	"github.com/samber/lo"

	"github.com/mamadbah2/calftracker/internal/domain/models"
)

type animalRow struct {
	ID         int64     `gorm:"primaryKey"`
	Number     int       `gorm:"uniqueIndex;not null"`
	Name       string    `gorm:"size:100"`
	BirthDate  time.Time `gorm:"index;not null"`
	BirthNotes string
	Status     string `gorm:"size:20;not null;default:active"`
}

func (animalRow) TableName() string { return "calves" }

// feedingRow keeps one row per calf, farm day and period. Rows written before
// the day column existed carry NULL there and stay outside the unique index.
type feedingRow struct {
	ID          int64     `gorm:"primaryKey"`
	CalfID      int64     `gorm:"index;not null;uniqueIndex:idx_feeding_slot,priority:1"`
	CalfNumber  int       `gorm:"not null"`
	CalfName    string    `gorm:"size:100"`
	Timestamp   time.Time `gorm:"index;not null"`
	Day         *string   `gorm:"size:10;uniqueIndex:idx_feeding_slot,priority:2"`
	Period      string    `gorm:"size:2;not null;uniqueIndex:idx_feeding_slot,priority:3"`
	Consumption int       `gorm:"not null"`
	Notes       string
	Treatment   bool   `gorm:"not null;default:false"`
	UserID      int64  `gorm:"index"`
	UserName    string `gorm:"size:100"`
}

func (feedingRow) TableName() string { return "feedings" }

type operatorRow struct {
	ID    int64  `gorm:"primaryKey"`
	Name  string `gorm:"size:100;not null"`
	Role  string `gorm:"size:20;not null"`
	PIN   string `gorm:"column:pin;size:4"`
	Phone string `gorm:"size:32;index"`
}

func (operatorRow) TableName() string { return "users" }

type protocolRow struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null"`
	Type      string `gorm:"size:20;not null"`
	Value     int    `gorm:"not null"`
	SortOrder int    `gorm:"not null"`
}

func (protocolRow) TableName() string { return "protocols" }

type settingRow struct {
	Key   string `gorm:"column:setting_key;primaryKey"`
	Value string `gorm:"column:setting_value;not null"`
}

func (settingRow) TableName() string { return "settings" }

func toAnimalRow(a models.Animal) animalRow {
	return animalRow{
		Number:     a.Number,
		Name:       a.Name,
		BirthDate:  a.BirthDate.UTC(),
		BirthNotes: a.BirthNotes,
		Status:     string(a.Status),
	}
}

func (r animalRow) model() models.Animal {
	return models.Animal{
		ID:         r.ID,
		Number:     r.Number,
		Name:       r.Name,
		BirthDate:  r.BirthDate,
		BirthNotes: r.BirthNotes,
		Status:     models.AnimalStatus(r.Status),
	}
}

func toFeedingRow(f models.FeedingRecord) feedingRow {
	return feedingRow{
		CalfID:      f.AnimalID,
		CalfNumber:  f.AnimalNumber,
		CalfName:    f.AnimalName,
		Timestamp:   f.Timestamp.UTC(),
		Day:         lo.EmptyableToPtr(f.Day),
		Period:      string(f.Period),
		Consumption: f.Consumption,
		Notes:       f.Notes,
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
		AnimalName:   r.CalfName,
		Timestamp:    r.Timestamp,
		Day:          lo.FromPtr(r.Day),
		Period:       models.Period(r.Period),
		Consumption:  r.Consumption,
		Notes:        r.Notes,
		Treatment:    r.Treatment,
		OperatorID:   r.UserID,
		OperatorName: r.UserName,
	}
}

func toOperatorRow(o models.Operator) operatorRow {
	return operatorRow{Name: o.Name, Role: string(o.Role), PIN: o.PIN, Phone: o.Phone}
}

func (r operatorRow) model() models.Operator {
	return models.Operator{
		ID:    r.ID,
		Name:  r.Name,
		Role:  models.Role(r.Role),
		PIN:   r.PIN,
		Phone: r.Phone,
	}
}

func toProtocolRow(p models.Protocol) protocolRow {
	return protocolRow{Name: p.Name, Type: string(p.Type), Value: p.Value, SortOrder: p.Order}
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
