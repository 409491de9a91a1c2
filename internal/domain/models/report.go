package models

import "time"

// FlaggedAnimal is one entry of the attention list.
type FlaggedAnimal struct {
	AnimalID int64      `bson:"animal_id" json:"animal_id"`
	Number   int        `bson:"number" json:"number"`
	Name     string     `bson:"name,omitempty" json:"name,omitempty"`
	Protocol string     `bson:"protocol" json:"protocol"`
	Reason   FlagReason `bson:"reason" json:"reason"`
}

// ProtocolCount is the size of one protocol cohort.
type ProtocolCount struct {
	Protocol string `bson:"protocol" json:"protocol"`
	Count    int    `bson:"count" json:"count"`
}

// HerdSnapshot is the daily herd summary persisted to MongoDB. Day is the
// farm-local calendar date; Date is its midnight in UTC.
type HerdSnapshot struct {
	Day             string          `bson:"day" json:"day"`
	Date            time.Time       `bson:"date" json:"date"`
	ActiveAnimals   int             `bson:"active_animals" json:"active_animals"`
	Cohorts         []ProtocolCount `bson:"cohorts" json:"cohorts"`
	Flagged         []FlaggedAnimal `bson:"flagged" json:"flagged"`
	FeedingsAM      int             `bson:"feedings_am" json:"feedings_am"`
	FeedingsPM      int             `bson:"feedings_pm" json:"feedings_pm"`
	AvgConsumption  float64         `bson:"avg_consumption" json:"avg_consumption"`
	TreatmentsGiven int             `bson:"treatments_given" json:"treatments_given"`
	SettingsVersion int             `bson:"settings_version" json:"settings_version"`
	CreatedAt       time.Time       `bson:"created_at" json:"created_at"`
}
