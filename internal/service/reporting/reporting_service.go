package reporting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/repository/mongodb"
	"github.com/mamadbah2/calftracker/internal/service/tracker"
)

const dateLayout = "2006-01-02"

// ErrSnapshotsDisabled indicates no snapshot store is configured.
var ErrSnapshotsDisabled = errors.New("herd snapshot storage is not configured")

// Herd is the tracker surface the report reads from.
type Herd interface {
	Snapshot() tracker.State
	Dashboard() tracker.Dashboard
	Now() time.Time
	Location() *time.Location
}

// Service builds the daily herd summary and keeps its history.
type Service struct {
	herd      Herd
	snapshots mongodb.Repository
	logger    *zap.Logger
}

// NewService wires a new reporting service instance. snapshots may be nil, in
// which case reports are generated but not stored.
func NewService(herd Herd, snapshots mongodb.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{herd: herd, snapshots: snapshots, logger: logger}
}

// BuildSnapshot summarizes the herd as of now. Feeding totals cover the
// current farm calendar day.
func (s *Service) BuildSnapshot() models.HerdSnapshot {
	now := s.herd.Now()
	loc := s.herd.Location()
	state := s.herd.Snapshot()
	dash := s.herd.Dashboard()

	today := now.In(loc).Format(dateLayout)
	todays := lo.Filter(state.Feedings, func(f models.FeedingRecord, _ int) bool {
		return f.Key(loc).Day == today
	})

	snapshot := models.HerdSnapshot{
		Day:             today,
		Date:            startOfDay(now, loc),
		ActiveAnimals:   dash.ActiveAnimals,
		Cohorts:         dash.Cohorts,
		Flagged:         dash.Flagged,
		SettingsVersion: state.Settings.Version,
		CreatedAt:       now.UTC(),
	}

	var total int
	for _, f := range todays {
		switch f.Key(loc).Period {
		case models.PeriodAM:
			snapshot.FeedingsAM++
		case models.PeriodPM:
			snapshot.FeedingsPM++
		}
		if f.Treatment {
			snapshot.TreatmentsGiven++
		}
		total += f.Consumption
	}
	if len(todays) > 0 {
		avg := float64(total) / float64(len(todays))
		snapshot.AvgConsumption = math.Round(avg*10) / 10
	}

	return snapshot
}

// GenerateDailyReport builds today's snapshot, stores it when a snapshot store
// is configured, and returns the text summary.
func (s *Service) GenerateDailyReport(ctx context.Context) (string, error) {
	snapshot := s.BuildSnapshot()

	if s.snapshots != nil {
		if err := s.snapshots.SaveHerdSnapshot(ctx, snapshot); err != nil {
			return "", fmt.Errorf("save herd snapshot: %w", err)
		}
		s.logger.Info("herd snapshot saved", zap.String("day", snapshot.Day), zap.Int("flagged", len(snapshot.Flagged)))
	}

	return FormatSummary(snapshot), nil
}

// RecentSnapshots returns up to limit stored snapshots, newest first.
func (s *Service) RecentSnapshots(ctx context.Context, limit int64) ([]models.HerdSnapshot, error) {
	if s.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	if limit <= 0 {
		limit = 7
	}
	out, err := s.snapshots.RecentHerdSnapshots(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load herd snapshots: %w", err)
	}
	return out, nil
}

// FormatSummary renders a snapshot as a WhatsApp-friendly message.
func FormatSummary(snapshot models.HerdSnapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Herd report %s\n", snapshot.Day)
	fmt.Fprintf(&b, "Active calves: %d\n", snapshot.ActiveAnimals)
	for _, c := range snapshot.Cohorts {
		fmt.Fprintf(&b, "  %s: %d\n", c.Protocol, c.Count)
	}
	fmt.Fprintf(&b, "Feedings: %d AM, %d PM", snapshot.FeedingsAM, snapshot.FeedingsPM)
	if snapshot.FeedingsAM+snapshot.FeedingsPM > 0 {
		fmt.Fprintf(&b, " (avg %.1f%%)", snapshot.AvgConsumption)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Treatments: %d\n", snapshot.TreatmentsGiven)

	if len(snapshot.Flagged) == 0 {
		b.WriteString("No calves need attention.")
		return b.String()
	}

	fmt.Fprintf(&b, "Needs attention (%d):", len(snapshot.Flagged))
	for _, f := range snapshot.Flagged {
		fmt.Fprintf(&b, "\n  #%d %s", f.Number, DescribeFlag(f.Reason))
		if f.Name != "" {
			fmt.Fprintf(&b, " (%s)", f.Name)
		}
	}
	return b.String()
}

// DescribeFlag returns the human label of a flag reason.
func DescribeFlag(reason models.FlagReason) string {
	switch reason {
	case models.FlagLowConsumption:
		return "low consumption"
	case models.FlagHasNotes:
		return "has notes"
	case models.FlagMissedFeeding:
		return "missed feeding"
	default:
		return string(reason)
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).UTC()
}
