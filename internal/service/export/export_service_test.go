package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/service/tracker"
)

var farm = time.FixedZone("CST", -6*60*60)

type fakeHerd struct {
	now      time.Time
	feedings []models.FeedingRecord
}

func (f fakeHerd) Snapshot() tracker.State  { return tracker.State{Feedings: f.feedings} }
func (f fakeHerd) Now() time.Time           { return f.now }
func (f fakeHerd) Location() *time.Location { return farm }

type fakeSheet struct {
	keys      []string
	appended  [][]interface{}
	readErr   error
	ensured   []string
	ensureErr error
}

func (f *fakeSheet) EnsureSheet(_ context.Context, title string) error {
	f.ensured = append(f.ensured, title)
	return f.ensureErr
}

func (f *fakeSheet) ReadColumn(_ context.Context, sheetRange string) ([]string, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.keys, nil
}

func (f *fakeSheet) AppendRows(_ context.Context, sheetRange string, rows [][]interface{}) error {
	f.appended = append(f.appended, rows...)
	for _, r := range rows {
		f.keys = append(f.keys, r[0].(string))
	}
	return nil
}

func at(day, hour int) time.Time {
	return time.Date(2024, time.March, day, hour, 0, 0, 0, farm)
}

func herd() fakeHerd {
	return fakeHerd{
		now: at(10, 14),
		feedings: []models.FeedingRecord{
			{ID: 3, AnimalID: 7, AnimalNumber: 12, Timestamp: at(10, 13), Period: models.PeriodPM, Consumption: 80},
			{ID: 2, AnimalID: 7, AnimalNumber: 12, Timestamp: at(10, 8), Period: models.PeriodAM, Consumption: 50, Notes: "slow"},
			{ID: 1, AnimalID: 7, AnimalNumber: 12, Timestamp: at(9, 18), Period: models.PeriodPM, Consumption: 100, OperatorName: "Ana"},
		},
	}
}

func TestRunExportsClosedPeriodsOnce(t *testing.T) {
	sheet := &fakeSheet{}
	svc := NewService(herd(), sheet, nil)

	n, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, sheet.appended, 3)
	assert.Equal(t, "key", sheet.appended[0][0], "header written to an empty sheet")
	assert.Equal(t, []interface{}{
		"7/2024-03-09/PM", "2024-03-09", "PM", "2024-03-09T18:00:00-06:00",
		int64(7), 12, "", 100, "", false, "Ana",
	}, sheet.appended[1])
	assert.Equal(t, "7/2024-03-10/AM", sheet.appended[2][0])

	n, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, sheet.appended, 3)
	assert.Equal(t, []string{"Feedings"}, sheet.ensured, "tab checked once per process")
}

func TestRunSkipsHeaderWhenSheetHasRows(t *testing.T) {
	sheet := &fakeSheet{keys: []string{"key", "7/2024-03-09/PM"}}
	svc := NewService(herd(), sheet, nil)

	n, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, sheet.appended, 1)
	assert.Equal(t, "7/2024-03-10/AM", sheet.appended[0][0])
}

func TestRunReadFailure(t *testing.T) {
	svc := NewService(herd(), &fakeSheet{readErr: errors.New("quota")}, nil)

	_, err := svc.Run(context.Background())
	assert.Error(t, err)
}

func TestRunTabFailure(t *testing.T) {
	sheet := &fakeSheet{ensureErr: errors.New("permission denied")}
	svc := NewService(herd(), sheet, nil)

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, sheet.appended)

	sheet.ensureErr = nil
	_, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, sheet.ensured, 2)
}
