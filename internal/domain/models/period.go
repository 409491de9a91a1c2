package models

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Period is the half of the calendar day a feeding belongs to.
type Period string

const (
	PeriodAM Period = "AM"
	PeriodPM Period = "PM"
)

// PeriodOf returns AM when the hour of t is before noon, PM otherwise.
// The hour is read in t's own location.
func PeriodOf(t time.Time) Period {
	if t.Hour() < 12 {
		return PeriodAM
	}
	return PeriodPM
}

// FeedingKey identifies the single feeding slot of an animal for one day and period.
type FeedingKey struct {
	AnimalID int64
	Day      string
	Period   Period
}

// String renders the key as "<animal>/<day>/<period>".
func (k FeedingKey) String() string {
	return fmt.Sprintf("%d/%s/%s", k.AnimalID, k.Day, k.Period)
}

// FeedingKeyFor derives the upsert key of a feeding taken at t, using the farm's
// local calendar. Every read and write path must go through this function.
func FeedingKeyFor(animalID int64, t time.Time, loc *time.Location) FeedingKey {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	return FeedingKey{
		AnimalID: animalID,
		Day:      local.Format(dayLayout),
		Period:   PeriodOf(local),
	}
}

// Key returns the upsert key of an already stored record.
func (f FeedingRecord) Key(loc *time.Location) FeedingKey {
	return FeedingKeyFor(f.AnimalID, f.Timestamp, loc)
}
