package models

// FlagReason explains why an animal needs attention. The zero value means not flagged.
type FlagReason string

const (
	FlagNone           FlagReason = ""
	FlagLowConsumption FlagReason = "low-consumption"
	FlagHasNotes       FlagReason = "has-notes"
	FlagMissedFeeding  FlagReason = "missed-feeding"
)

// Flagged reports whether the reason marks the animal for attention.
func (r FlagReason) Flagged() bool {
	return r != FlagNone
}
