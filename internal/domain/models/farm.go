package models

import "time"

// AnimalStatus is the lifecycle state of an animal record.
type AnimalStatus string

const (
	AnimalActive   AnimalStatus = "active"
	AnimalArchived AnimalStatus = "archived"
)

// Valid reports whether the status is one of the known values.
func (s AnimalStatus) Valid() bool {
	return s == AnimalActive || s == AnimalArchived
}

// Animal is a tracked calf. ID is the stable join key; Number is the
// operator-facing tag number.
type Animal struct {
	ID         int64        `json:"id"`
	Number     int          `json:"number"`
	Name       string       `json:"name,omitempty"`
	BirthDate  time.Time    `json:"birth_date"`
	BirthNotes string       `json:"birth_notes,omitempty"`
	Status     AnimalStatus `json:"status"`
}

// IsActive reports whether the animal is still on the feeding list.
func (a Animal) IsActive() bool {
	return a.Status == AnimalActive
}

// AnimalUpdate carries the mutable attributes of an animal. Nil fields are left untouched.
type AnimalUpdate struct {
	Name   *string       `json:"name,omitempty"`
	Status *AnimalStatus `json:"status,omitempty"`
}

// FeedingRecord captures one half-day feeding of an animal. Day is the farm
// calendar day of the slot ("2006-01-02"); stores that persist it enforce one
// record per AnimalID, Day and Period.
type FeedingRecord struct {
	ID           int64     `json:"id"`
	AnimalID     int64     `json:"animal_id"`
	AnimalNumber int       `json:"animal_number"`
	AnimalName   string    `json:"animal_name,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Day          string    `json:"day,omitempty"`
	Period       Period    `json:"period"`
	Consumption  int       `json:"consumption"`
	Notes        string    `json:"notes,omitempty"`
	Treatment    bool      `json:"treatment"`
	OperatorID   int64     `json:"operator_id"`
	OperatorName string    `json:"operator_name"`
}

// FeedingUpdate carries a partial feeding record update. Nil fields are left untouched.
type FeedingUpdate struct {
	Consumption *int       `json:"consumption,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	Treatment   *bool      `json:"treatment,omitempty"`
}

// ConsumptionLevels are the quick-entry percentages offered to operators.
var ConsumptionLevels = []int{0, 25, 50, 75, 100}

// ValidConsumption reports whether pct is a percentage in [0, 100].
func ValidConsumption(pct int) bool {
	return pct >= 0 && pct <= 100
}
