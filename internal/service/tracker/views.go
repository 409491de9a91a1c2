package tracker

import (
	"sort"

	"github.com/samber/lo"

	"github.com/mamadbah2/calftracker/internal/domain/flagging"
	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/domain/protocol"
)

// Feed list filters besides protocol names.
const (
	FilterAll     = "all"
	FilterFlagged = "flagged"
)

// recentOnCard is how many feedings each card shows.
const recentOnCard = 3

// AnimalCard is one row of the feed list.
type AnimalCard struct {
	models.Animal
	AgeDays  int                    `json:"age_days"`
	Protocol string                 `json:"protocol"`
	Flag     models.FlagReason      `json:"flag,omitempty"`
	Recent   []models.FeedingRecord `json:"recent"`
	Current  *models.FeedingRecord  `json:"current,omitempty"`
}

// Dashboard summarizes the active herd.
type Dashboard struct {
	ActiveAnimals int                    `json:"active_animals"`
	Cohorts       []models.ProtocolCount `json:"cohorts"`
	FlaggedCount  int                    `json:"flagged_count"`
	Flagged       []models.FlaggedAnimal `json:"flagged"`
}

// Card builds the feed list card of one animal.
func (s *Service) Card(animalID int64) (AnimalCard, bool) {
	state := s.Snapshot()
	animal, ok := state.Animal(animalID)
	if !ok {
		return AnimalCard{}, false
	}
	return s.card(state, animal), true
}

func (s *Service) card(state State, a models.Animal) AnimalCard {
	now := s.now()

	recent := flagging.Recent(state.History(a.ID), recentOnCard)
	recent = lo.Reverse(recent)

	card := AnimalCard{
		Animal:   a,
		AgeDays:  protocol.AgeInDays(a.BirthDate, now),
		Protocol: state.Classify(a, now),
		Flag:     state.Flag(a, now),
		Recent:   recent,
	}
	if current, ok := state.RecordFor(models.FeedingKeyFor(a.ID, now, s.loc), s.loc); ok {
		card.Current = &current
	}
	return card
}

// ListAnimals returns cards for active animals, oldest first. filter is "all"
// (or empty), "flagged", or a protocol name; an unknown name matches nothing.
func (s *Service) ListAnimals(filter string) []AnimalCard {
	state := s.Snapshot()

	active := lo.Filter(state.Animals, func(a models.Animal, _ int) bool { return a.IsActive() })
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].BirthDate.Before(active[j].BirthDate)
	})

	cards := lo.Map(active, func(a models.Animal, _ int) AnimalCard { return s.card(state, a) })

	switch filter {
	case "", FilterAll:
		return cards
	case FilterFlagged:
		return lo.Filter(cards, func(c AnimalCard, _ int) bool { return c.Flag.Flagged() })
	default:
		return lo.Filter(cards, func(c AnimalCard, _ int) bool { return c.Protocol == filter })
	}
}

// Dashboard returns protocol cohort counts and the attention list.
func (s *Service) Dashboard() Dashboard {
	state := s.Snapshot()
	now := s.now()

	active := lo.Filter(state.Animals, func(a models.Animal, _ int) bool { return a.IsActive() })
	assigned := lo.Map(active, func(a models.Animal, _ int) string { return state.Classify(a, now) })

	flagged := make([]models.FlaggedAnimal, 0)
	for i, a := range active {
		reason := state.Flag(a, now)
		if !reason.Flagged() {
			continue
		}
		flagged = append(flagged, models.FlaggedAnimal{
			AnimalID: a.ID,
			Number:   a.Number,
			Name:     a.Name,
			Protocol: assigned[i],
			Reason:   reason,
		})
	}

	return Dashboard{
		ActiveAnimals: len(active),
		Cohorts:       protocol.Counts(assigned, state.Protocols),
		FlaggedCount:  len(flagged),
		Flagged:       flagged,
	}
}
