// Package flagging decides which animals need attention from their feeding history.
package flagging

import (
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/mamadbah2/calftracker/internal/domain/models"
)

// Recent returns up to n records of history, newest first. The input slice is not modified.
func Recent(history []models.FeedingRecord, n int) []models.FeedingRecord {
	if n <= 0 || len(history) == 0 {
		return nil
	}

	sorted := make([]models.FeedingRecord, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Evaluate returns the single reason the animal owning history should be
// surfaced, or models.FlagNone. Rules are checked in priority order and the
// first match wins: low consumption, then notes, then missed feeding.
func Evaluate(history []models.FeedingRecord, th models.Thresholds, now time.Time) models.FlagReason {
	n := th.ConsecutiveCount
	if n < 1 {
		n = 1
	}

	recent := Recent(history, n)
	if len(recent) < n {
		return models.FlagNone
	}

	allLow := lo.EveryBy(recent, func(f models.FeedingRecord) bool {
		return f.Consumption <= th.LowConsumptionPercent
	})
	if allLow {
		return models.FlagLowConsumption
	}

	latest := recent[0]
	if strings.TrimSpace(latest.Notes) != "" {
		return models.FlagHasNotes
	}

	if th.MissedFeedingEnabled() {
		window := time.Duration(th.MissedFeedingHours) * time.Hour
		if now.Sub(latest.Timestamp) > window {
			return models.FlagMissedFeeding
		}
	}

	return models.FlagNone
}
