// Package export copies closed feeding periods to the farm spreadsheet.
package export

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/repository/sheets"
	"github.com/mamadbah2/calftracker/internal/service/tracker"
)

const (
	sheetTitle = "Feedings"
	keyRange   = sheetTitle + "!A:A"
	writeRange = sheetTitle + "!A:K"
)

var header = []interface{}{
	"key", "day", "period", "timestamp", "animal_id", "number", "name",
	"consumption", "notes", "treatment", "operator",
}

// Herd is the tracker surface the export reads from.
type Herd interface {
	Snapshot() tracker.State
	Now() time.Time
	Location() *time.Location
}

// Service appends feeding records to the spreadsheet. Rows are keyed by the
// feeding upsert key, so each slot is exported once. The current period is
// left out while it can still change.
type Service struct {
	herd   Herd
	sheet  sheets.Repository
	logger *zap.Logger

	// tabReady is set once the Feedings tab is known to exist.
	tabReady bool
}

// NewService constructs the export service.
func NewService(herd Herd, sheet sheets.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{herd: herd, sheet: sheet, logger: logger}
}

// Run exports every closed feeding not yet present in the sheet and returns the
// number of rows appended.
func (s *Service) Run(ctx context.Context) (int, error) {
	if !s.tabReady {
		if err := s.sheet.EnsureSheet(ctx, sheetTitle); err != nil {
			return 0, fmt.Errorf("prepare %s tab: %w", sheetTitle, err)
		}
		s.tabReady = true
	}

	existing, err := s.sheet.ReadColumn(ctx, keyRange)
	if err != nil {
		return 0, fmt.Errorf("read exported keys: %w", err)
	}
	exported := lo.SliceToMap(existing, func(k string) (string, struct{}) { return k, struct{}{} })

	loc := s.herd.Location()
	now := s.herd.Now()
	openDay := now.In(loc).Format("2006-01-02")
	openPeriod := models.PeriodOf(now.In(loc))

	pending := lo.Filter(s.herd.Snapshot().Feedings, func(f models.FeedingRecord, _ int) bool {
		key := f.Key(loc)
		if key.Day == openDay && key.Period == openPeriod {
			return false
		}
		_, done := exported[key.String()]
		return !done
	})
	if len(pending) == 0 {
		return 0, nil
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Timestamp.Before(pending[j].Timestamp)
	})

	rows := make([][]interface{}, 0, len(pending)+1)
	if len(existing) == 0 {
		rows = append(rows, header)
	}
	for _, f := range pending {
		rows = append(rows, row(f, loc))
	}

	if err := s.sheet.AppendRows(ctx, writeRange, rows); err != nil {
		return 0, fmt.Errorf("append feedings: %w", err)
	}

	s.logger.Info("feedings exported", zap.Int("rows", len(pending)))
	return len(pending), nil
}

func row(f models.FeedingRecord, loc *time.Location) []interface{} {
	key := f.Key(loc)
	return []interface{}{
		key.String(),
		key.Day,
		string(key.Period),
		f.Timestamp.In(loc).Format(time.RFC3339),
		f.AnimalID,
		f.AnimalNumber,
		f.AnimalName,
		f.Consumption,
		f.Notes,
		f.Treatment,
		f.OperatorName,
	}
}
