package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/service/reporting"
	"github.com/mamadbah2/calftracker/internal/service/tracker"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// ErrUnsupportedCommand indicates we do not support the requested command.
var ErrUnsupportedCommand = errors.New("unsupported command")

// ErrUnknownSender indicates the message came from a phone not linked to an operator.
var ErrUnknownSender = errors.New("sender is not a registered operator")

// ErrUnknownAnimal indicates the command named an animal number that does not exist.
var ErrUnknownAnimal = errors.New("unknown calf number")

// HelpText lists the supported commands.
const HelpText = `Commands:
feed <calf> <percent>  record this period's feeding
note <calf> <text>     note on this period's feeding
treat <calf>           toggle treatment on this period's feeding
status <calf>          protocol, flag and recent feedings
flagged                calves needing attention
help                   this message`

// Tracker defines the tracker operations required by the dispatcher.
type Tracker interface {
	Snapshot() tracker.State
	Card(animalID int64) (tracker.AnimalCard, bool)
	Dashboard() tracker.Dashboard
	Location() *time.Location
	RecordFeeding(ctx context.Context, animalID int64, consumption int, op models.Operator) (models.FeedingRecord, error)
	UpdateNotes(ctx context.Context, animalID int64, notes string) error
	ToggleTreatment(ctx context.Context, animalID int64) (bool, error)
}

// Dispatcher executes parsed commands on behalf of an operator.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	tracker Tracker
	logger  *zap.Logger
}

// NewService constructs a command dispatcher.
func NewService(t Tracker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{tracker: t, logger: logger}
}

// HandleCommand resolves the sender to an operator and runs the command.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	if cmd.Type == models.CommandHelp {
		return HelpText, nil
	}

	state := s.tracker.Snapshot()
	op, ok := state.OperatorByPhone(sender)
	if !ok {
		return "", ErrUnknownSender
	}

	switch cmd.Type {
	case models.CommandFeed:
		if len(cmd.Args) != 2 {
			return "", ErrInvalidArguments
		}
		animal, err := s.animal(state, cmd.Args[0])
		if err != nil {
			return "", err
		}
		pct, err := strconv.Atoi(strings.TrimSuffix(cmd.Args[1], "%"))
		if err != nil {
			return "", ErrInvalidArguments
		}
		record, err := s.tracker.RecordFeeding(ctx, animal.ID, pct, op)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Calf #%d %s feeding saved: %d%%.", animal.Number, record.Period, record.Consumption), nil
	case models.CommandNote:
		if len(cmd.Args) < 2 {
			return "", ErrInvalidArguments
		}
		animal, err := s.animal(state, cmd.Args[0])
		if err != nil {
			return "", err
		}
		if err := s.tracker.UpdateNotes(ctx, animal.ID, strings.Join(cmd.Args[1:], " ")); err != nil {
			return "", err
		}
		return fmt.Sprintf("Note saved for calf #%d.", animal.Number), nil
	case models.CommandTreat:
		if len(cmd.Args) != 1 {
			return "", ErrInvalidArguments
		}
		animal, err := s.animal(state, cmd.Args[0])
		if err != nil {
			return "", err
		}
		treated, err := s.tracker.ToggleTreatment(ctx, animal.ID)
		if err != nil {
			return "", err
		}
		if treated {
			return fmt.Sprintf("Calf #%d marked as treated.", animal.Number), nil
		}
		return fmt.Sprintf("Treatment cleared for calf #%d.", animal.Number), nil
	case models.CommandStatus:
		if len(cmd.Args) != 1 {
			return "", ErrInvalidArguments
		}
		animal, err := s.animal(state, cmd.Args[0])
		if err != nil {
			return "", err
		}
		card, ok := s.tracker.Card(animal.ID)
		if !ok {
			return "", ErrUnknownAnimal
		}
		return formatCard(card, s.tracker.Location()), nil
	case models.CommandFlagged:
		return formatFlagged(s.tracker.Dashboard().Flagged), nil
	default:
		return "", ErrUnsupportedCommand
	}
}

func (s *Service) animal(state tracker.State, arg string) (models.Animal, error) {
	number, err := strconv.Atoi(strings.TrimPrefix(arg, "#"))
	if err != nil {
		return models.Animal{}, ErrInvalidArguments
	}
	animal, ok := state.AnimalByNumber(number)
	if !ok {
		return models.Animal{}, ErrUnknownAnimal
	}
	return animal, nil
}

func formatCard(card tracker.AnimalCard, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Calf #%d", card.Number)
	if card.Name != "" {
		fmt.Fprintf(&b, " %s", card.Name)
	}
	fmt.Fprintf(&b, ": %d days, %s", card.AgeDays, card.Protocol)
	if card.Status == models.AnimalArchived {
		b.WriteString(", archived")
	}
	if card.Flag.Flagged() {
		fmt.Fprintf(&b, "\nNeeds attention: %s", reporting.DescribeFlag(card.Flag))
	}
	if len(card.Recent) == 0 {
		b.WriteString("\nNo feedings yet.")
		return b.String()
	}
	b.WriteString("\nRecent:")
	for _, f := range card.Recent {
		fmt.Fprintf(&b, " %s %s %d%%;", f.Timestamp.In(loc).Format("Jan 2"), f.Period, f.Consumption)
	}
	return strings.TrimSuffix(b.String(), ";")
}

func formatFlagged(flagged []models.FlaggedAnimal) string {
	if len(flagged) == 0 {
		return "No calves need attention."
	}
	lines := make([]string, 0, len(flagged)+1)
	lines = append(lines, fmt.Sprintf("%d calves need attention:", len(flagged)))
	for _, f := range flagged {
		lines = append(lines, fmt.Sprintf("#%d %s (%s)", f.Number, reporting.DescribeFlag(f.Reason), f.Protocol))
	}
	return strings.Join(lines, "\n")
}
