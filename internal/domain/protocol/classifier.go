// Package protocol assigns animals to lifecycle stages.
package protocol

import (
	"math"
	"time"

	"github.com/mamadbah2/calftracker/internal/domain/models"
)

// Unknown is returned when no protocols are configured.
const Unknown = "unknown"

const day = 24 * time.Hour

// AgeInDays returns the number of whole days between birth and now.
func AgeInDays(birth, now time.Time) int {
	return int(math.Floor(float64(now.Sub(birth)) / float64(day)))
}

// Classify returns the name of the first protocol, in the order given, whose
// threshold the animal has not yet reached. An animal past every threshold is
// placed in the last protocol. Protocols must already be in configured order;
// they are not re-sorted here.
func Classify(birth time.Time, feedingCount int, protocols []models.Protocol, now time.Time) string {
	if len(protocols) == 0 {
		return Unknown
	}

	age := AgeInDays(birth, now)
	for _, p := range protocols {
		switch p.Type {
		case models.ThresholdFeedings:
			if feedingCount < p.Value {
				return p.Name
			}
		case models.ThresholdDays:
			if age < p.Value {
				return p.Name
			}
		}
	}

	return protocols[len(protocols)-1].Name
}

// Position returns the index of name in protocols, or -1.
func Position(name string, protocols []models.Protocol) int {
	for i, p := range protocols {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Counts returns the size of every configured protocol cohort, in protocol
// order. Names with no members are reported with a zero count.
func Counts(assigned []string, protocols []models.Protocol) []models.ProtocolCount {
	out := make([]models.ProtocolCount, len(protocols))
	for i, p := range protocols {
		out[i] = models.ProtocolCount{Protocol: p.Name}
	}
	for _, name := range assigned {
		if i := Position(name, protocols); i >= 0 {
			out[i].Count++
		}
	}
	return out
}
