package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Keys of the settings collaborator. They match the columns already used by the
// hosted store so existing rows keep working.
const (
	SettingNextAnimalNumber   = "next_calf_number"
	SettingFlagFeedingCount   = "flag_feeding_count"
	SettingFlagPercentage     = "flag_percentage"
	SettingMissedFeedingHours = "missed_feeding_hours"
	SettingVersion            = "settings_version"
)

var validate = validator.New()

// settingRules are the validator tags applied to each raw setting value.
var settingRules = map[string]string{
	SettingNextAnimalNumber:   "min=1",
	SettingFlagFeedingCount:   "min=1,max=20",
	SettingFlagPercentage:     "min=0,max=100",
	SettingMissedFeedingHours: "min=0,max=168",
	SettingVersion:            "min=0",
}

// Thresholds drive the attention flagging engine.
type Thresholds struct {
	// ConsecutiveCount is how many of the latest feedings are inspected.
	ConsecutiveCount int `json:"consecutive_count" validate:"min=1,max=20"`

	// LowConsumptionPercent is the inclusive cutoff for a low feeding.
	LowConsumptionPercent int `json:"low_consumption_percent" validate:"min=0,max=100"`

	// MissedFeedingHours is the window after the latest feeding; 0 disables the rule.
	MissedFeedingHours int `json:"missed_feeding_hours" validate:"min=0,max=168"`
}

// MissedFeedingEnabled reports whether the missed-feeding rule is active.
func (t Thresholds) MissedFeedingEnabled() bool {
	return t.MissedFeedingHours > 0
}

// Settings is the typed view over the key/value settings store.
type Settings struct {
	Version          int `json:"version" validate:"min=0"`
	NextAnimalNumber int `json:"next_animal_number" validate:"min=1"`
	Thresholds
}

// DefaultSettings returns the values used when the store has no usable entry.
func DefaultSettings() Settings {
	return Settings{
		Version:          1,
		NextAnimalNumber: 1,
		Thresholds: Thresholds{
			ConsecutiveCount:      2,
			LowConsumptionPercent: 50,
			MissedFeedingHours:    12,
		},
	}
}

// Validate checks every field against its allowed range.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// Values serializes the settings back into store key/value pairs.
func (s Settings) Values() map[string]string {
	return map[string]string{
		SettingVersion:            strconv.Itoa(s.Version),
		SettingNextAnimalNumber:   strconv.Itoa(s.NextAnimalNumber),
		SettingFlagFeedingCount:   strconv.Itoa(s.ConsecutiveCount),
		SettingFlagPercentage:     strconv.Itoa(s.LowConsumptionPercent),
		SettingMissedFeedingHours: strconv.Itoa(s.MissedFeedingHours),
	}
}

// ParseSettings builds Settings from raw store values. Missing keys keep the
// value from defaults. Unparseable or out-of-range values also keep the default
// and are reported in the returned error, so callers always get usable settings.
func ParseSettings(raw map[string]string, defaults Settings) (Settings, error) {
	out := defaults
	targets := map[string]*int{
		SettingVersion:            &out.Version,
		SettingNextAnimalNumber:   &out.NextAnimalNumber,
		SettingFlagFeedingCount:   &out.ConsecutiveCount,
		SettingFlagPercentage:     &out.LowConsumptionPercent,
		SettingMissedFeedingHours: &out.MissedFeedingHours,
	}

	var errs []error
	for key, target := range targets {
		value, ok := raw[key]
		if !ok {
			continue
		}
		n, err := parseSetting(key, value)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*target = n
	}

	return out, errors.Join(errs...)
}

func parseSetting(key, value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("setting %s: empty value", key)
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("setting %s: %q is not an integer", key, value)
	}
	if rule, ok := settingRules[key]; ok {
		if err := validate.Var(n, rule); err != nil {
			return 0, fmt.Errorf("setting %s: %d out of range (%s)", key, n, rule)
		}
	}
	return n, nil
}
