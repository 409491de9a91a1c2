package models

import "sort"

// ThresholdType selects which metric gates a protocol.
type ThresholdType string

const (
	ThresholdFeedings ThresholdType = "feedings"
	ThresholdDays     ThresholdType = "days"
)

// Protocol is a named lifecycle stage. An animal stays in the stage while its
// metric is strictly below Value.
type Protocol struct {
	ID    int64         `json:"id"`
	Name  string        `json:"name" binding:"required"`
	Type  ThresholdType `json:"type" binding:"required,oneof=feedings days"`
	Value int           `json:"value" binding:"min=0"`
	Order int           `json:"order"`
}

// DefaultProtocols is the stage list used when the store has none configured.
func DefaultProtocols() []Protocol {
	return []Protocol{
		{Name: "Colostrum", Type: ThresholdFeedings, Value: 3, Order: 1},
		{Name: "Bottles", Type: ThresholdDays, Value: 5, Order: 2},
		{Name: "Regular", Type: ThresholdDays, Value: 35, Order: 3},
		{Name: "PM Only", Type: ThresholdDays, Value: 40, Order: 4},
		{Name: "Weaned", Type: ThresholdDays, Value: 41, Order: 5},
	}
}

// SortProtocols orders protocols ascending by their Order field. Ties keep
// their incoming order.
func SortProtocols(protocols []Protocol) {
	sort.SliceStable(protocols, func(i, j int) bool {
		return protocols[i].Order < protocols[j].Order
	})
}
