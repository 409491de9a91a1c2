package tracker

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/repository"
	"github.com/mamadbah2/calftracker/internal/repository/memory"
)

var farm = time.FixedZone("CST", -6*60*60)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) set(year int, month time.Month, day, hour, min int) {
	c.t = time.Date(year, month, day, hour, min, 0, 0, farm)
}

var worker = models.Operator{ID: 900, Name: "Ana", Role: models.RoleUser}

func newTestService(t *testing.T) (*Service, *memory.Store, *clock) {
	t.Helper()

	store := memory.NewStore()
	svc := NewService(store, models.DefaultSettings(), farm, nil)
	clk := &clock{}
	clk.set(2024, time.March, 10, 9, 30)
	svc.now = clk.now

	require.NoError(t, svc.Reload(context.Background()))
	return svc, store, clk
}

func addAnimal(t *testing.T, svc *Service, birth time.Time) models.Animal {
	t.Helper()
	a, err := svc.AddAnimal(context.Background(), NewAnimal{BirthDate: birth})
	require.NoError(t, err)
	return a
}

func TestReloadSeedsDefaultProtocols(t *testing.T) {
	svc, store, _ := newTestService(t)

	state := svc.Snapshot()
	require.Len(t, state.Protocols, len(models.DefaultProtocols()))
	assert.Equal(t, "Colostrum", state.Protocols[0].Name)
	assert.True(t, svc.Loaded())

	stored, err := store.ListProtocols(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, len(models.DefaultProtocols()))
}

func TestReloadAppliesDefaultsForInvalidSettings(t *testing.T) {
	svc, store, _ := newTestService(t)
	require.NoError(t, store.PutSettings(context.Background(), map[string]string{
		models.SettingFlagFeedingCount: "many",
		models.SettingFlagPercentage:   "40",
	}))

	require.NoError(t, svc.Reload(context.Background()))

	th := svc.Snapshot().Settings.Thresholds
	assert.Equal(t, 2, th.ConsecutiveCount)
	assert.Equal(t, 40, th.LowConsumptionPercent)
}

type failingStore struct {
	*memory.Store
	fail bool
}

func (f *failingStore) ListFeedings(ctx context.Context) ([]models.FeedingRecord, error) {
	if f.fail {
		return nil, errors.New("connection refused")
	}
	return f.Store.ListFeedings(ctx)
}

func TestReloadFailureKeepsPreviousState(t *testing.T) {
	store := &failingStore{Store: memory.NewStore()}
	svc := NewService(store, models.DefaultSettings(), farm, nil)

	_, err := store.CreateAnimal(context.Background(), models.Animal{Number: 7, BirthDate: time.Now(), Status: models.AnimalActive})
	require.NoError(t, err)
	require.NoError(t, svc.Reload(context.Background()))
	require.Len(t, svc.Snapshot().Animals, 1)

	_, err = store.CreateAnimal(context.Background(), models.Animal{Number: 8, BirthDate: time.Now(), Status: models.AnimalActive})
	require.NoError(t, err)
	store.fail = true

	err = svc.Reload(context.Background())
	require.Error(t, err)
	assert.Len(t, svc.Snapshot().Animals, 1)
}

func TestRecordFeedingUpsertsWithinPeriod(t *testing.T) {
	svc, store, clk := newTestService(t)
	ctx := context.Background()
	calf := addAnimal(t, svc, time.Date(2024, time.March, 1, 8, 0, 0, 0, farm))

	first, err := svc.RecordFeeding(ctx, calf.ID, 50, worker)
	require.NoError(t, err)
	assert.Equal(t, models.PeriodAM, first.Period)
	assert.Equal(t, worker.Name, first.OperatorName)

	clk.set(2024, time.March, 10, 11, 15)
	second, err := svc.RecordFeeding(ctx, calf.ID, 80, models.Operator{ID: 901, Name: "Ben"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	feedings, err := store.ListFeedings(ctx)
	require.NoError(t, err)
	require.Len(t, feedings, 1)
	assert.Equal(t, 80, feedings[0].Consumption)
	assert.Equal(t, clk.t, feedings[0].Timestamp)
	assert.Equal(t, worker.Name, feedings[0].OperatorName, "update keeps the original operator")

	clk.set(2024, time.March, 10, 13, 0)
	pm, err := svc.RecordFeeding(ctx, calf.ID, 100, worker)
	require.NoError(t, err)
	assert.Equal(t, models.PeriodPM, pm.Period)
	assert.NotEqual(t, first.ID, pm.ID)

	feedings, err = store.ListFeedings(ctx)
	require.NoError(t, err)
	assert.Len(t, feedings, 2)
	assert.Len(t, svc.Snapshot().History(calf.ID), 2)
}

func TestRecordFeedingUpsertsWhileReloadFails(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	store := &failingStore{Store: mem}
	svc := NewService(store, models.DefaultSettings(), farm, nil)
	clk := &clock{}
	svc.now = clk.now

	calf, err := mem.CreateAnimal(ctx, models.Animal{Number: 7, BirthDate: time.Date(2024, time.March, 1, 8, 0, 0, 0, farm), Status: models.AnimalActive})
	require.NoError(t, err)
	require.NoError(t, svc.Reload(ctx))
	store.fail = true

	clk.set(2024, time.March, 10, 9, 30)
	first, err := svc.RecordFeeding(ctx, calf.ID, 50, worker)
	require.NoError(t, err)

	current, ok := svc.CurrentRecord(calf.ID)
	require.True(t, ok, "saved feeding visible without a reload")
	assert.Equal(t, first.ID, current.ID)

	clk.set(2024, time.March, 10, 10, 0)
	second, err := svc.RecordFeeding(ctx, calf.ID, 80, worker)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	all, err := mem.ListFeedings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 80, all[0].Consumption)
	assert.Equal(t, "2024-03-10", all[0].Day)

	require.NoError(t, svc.UpdateNotes(ctx, calf.ID, "slow"))
	current, ok = svc.CurrentRecord(calf.ID)
	require.True(t, ok)
	assert.Equal(t, 80, current.Consumption)
	assert.Equal(t, "slow", current.Notes)
	assert.Len(t, svc.Snapshot().History(calf.ID), 1)
}

func TestRecordFeedingKeysOnFarmCalendar(t *testing.T) {
	svc, store, clk := newTestService(t)
	ctx := context.Background()
	calf := addAnimal(t, svc, time.Date(2024, time.March, 1, 8, 0, 0, 0, farm))

	// 13:00 and 23:30 local fall on different UTC dates and UTC periods.
	clk.set(2024, time.March, 10, 13, 0)
	_, err := svc.RecordFeeding(ctx, calf.ID, 25, worker)
	require.NoError(t, err)

	clk.set(2024, time.March, 10, 23, 30)
	_, err = svc.RecordFeeding(ctx, calf.ID, 75, worker)
	require.NoError(t, err)

	feedings, err := store.ListFeedings(ctx)
	require.NoError(t, err)
	require.Len(t, feedings, 1)
	assert.Equal(t, 75, feedings[0].Consumption)

	clk.set(2024, time.March, 11, 0, 30)
	_, err = svc.RecordFeeding(ctx, calf.ID, 100, worker)
	require.NoError(t, err)

	feedings, err = store.ListFeedings(ctx)
	require.NoError(t, err)
	assert.Len(t, feedings, 2)
}

func TestRecordFeedingRejections(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	calf := addAnimal(t, svc, time.Date(2024, time.March, 1, 8, 0, 0, 0, farm))

	_, err := svc.RecordFeeding(ctx, calf.ID, 101, worker)
	assert.ErrorIs(t, err, ErrInvalidConsumption)

	_, err = svc.RecordFeeding(ctx, calf.ID, -1, worker)
	assert.ErrorIs(t, err, ErrInvalidConsumption)

	_, err = svc.RecordFeeding(ctx, 4242, 50, worker)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	archived := models.AnimalArchived
	require.NoError(t, svc.UpdateAnimal(ctx, calf.ID, models.AnimalUpdate{Status: &archived}))
	_, err = svc.RecordFeeding(ctx, calf.ID, 50, worker)
	assert.ErrorIs(t, err, ErrAnimalInactive)
}

func TestNotesAndTreatmentTargetCurrentPeriod(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	calf := addAnimal(t, svc, time.Date(2024, time.March, 1, 8, 0, 0, 0, farm))

	assert.ErrorIs(t, svc.UpdateNotes(ctx, calf.ID, "coughing"), ErrNoFeedingThisPeriod)
	_, err := svc.ToggleTreatment(ctx, calf.ID)
	assert.ErrorIs(t, err, ErrNoFeedingThisPeriod)

	_, err = svc.RecordFeeding(ctx, calf.ID, 100, worker)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateNotes(ctx, calf.ID, "  coughing  "))
	treated, err := svc.ToggleTreatment(ctx, calf.ID)
	require.NoError(t, err)
	assert.True(t, treated)

	current, ok := svc.CurrentRecord(calf.ID)
	require.True(t, ok)
	assert.Equal(t, "coughing", current.Notes)
	assert.True(t, current.Treatment)

	treated, err = svc.ToggleTreatment(ctx, calf.ID)
	require.NoError(t, err)
	assert.False(t, treated)

	clk.set(2024, time.March, 10, 15, 0)
	assert.ErrorIs(t, svc.UpdateNotes(ctx, calf.ID, "later"), ErrNoFeedingThisPeriod)
}

func TestAddAnimalNumbering(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	birth := time.Date(2024, time.March, 1, 8, 0, 0, 0, farm)
	number := func(n int) *int { return &n }

	first, err := svc.AddAnimal(ctx, NewAnimal{BirthDate: birth, Name: " Daisy "})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "Daisy", first.Name)
	assert.Equal(t, 2, svc.Snapshot().Settings.NextAnimalNumber)

	custom, err := svc.AddAnimal(ctx, NewAnimal{BirthDate: birth, Number: number(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, custom.Number)
	assert.Equal(t, 3, svc.Snapshot().Settings.NextAnimalNumber)

	_, err = svc.AddAnimal(ctx, NewAnimal{BirthDate: birth, Number: number(4)})
	require.NoError(t, err)
	assert.Equal(t, 5, svc.Snapshot().Settings.NextAnimalNumber)

	_, err = svc.AddAnimal(ctx, NewAnimal{BirthDate: birth, Number: number(2)})
	assert.ErrorIs(t, err, repository.ErrDuplicateNumber)

	require.NoError(t, store.PutSettings(ctx, map[string]string{models.SettingNextAnimalNumber: "4"}))
	require.NoError(t, svc.Reload(ctx))
	skipped, err := svc.AddAnimal(ctx, NewAnimal{BirthDate: birth})
	require.NoError(t, err)
	assert.Equal(t, 5, skipped.Number)

	raw, err := store.ListSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(6), raw[models.SettingNextAnimalNumber])
}

func TestAddAnimalValidation(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddAnimal(ctx, NewAnimal{})
	assert.ErrorIs(t, err, ErrInvalidAnimal)

	_, err = svc.AddAnimal(ctx, NewAnimal{BirthDate: clk.t.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrInvalidAnimal)

	zero := 0
	_, err = svc.AddAnimal(ctx, NewAnimal{BirthDate: clk.t, Number: &zero})
	assert.ErrorIs(t, err, ErrInvalidAnimal)
}

func TestUpdateAnimal(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	calf := addAnimal(t, svc, time.Date(2024, time.March, 1, 8, 0, 0, 0, farm))

	name := " Clover "
	require.NoError(t, svc.UpdateAnimal(ctx, calf.ID, models.AnimalUpdate{Name: &name}))
	got, ok := svc.Snapshot().Animal(calf.ID)
	require.True(t, ok)
	assert.Equal(t, "Clover", got.Name)

	bogus := models.AnimalStatus("sold")
	assert.ErrorIs(t, svc.UpdateAnimal(ctx, calf.ID, models.AnimalUpdate{Status: &bogus}), ErrInvalidAnimal)
	assert.ErrorIs(t, svc.UpdateAnimal(ctx, 999, models.AnimalUpdate{Name: &name}), repository.ErrNotFound)
}

func TestUpdateAnimalWaitsForPendingWrite(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	calf := addAnimal(t, svc, time.Date(2024, time.March, 1, 8, 0, 0, 0, farm))

	svc.writeMu.Lock()
	done := make(chan error, 1)
	archived := models.AnimalArchived
	go func() {
		done <- svc.UpdateAnimal(ctx, calf.ID, models.AnimalUpdate{Status: &archived})
	}()

	select {
	case <-done:
		t.Fatal("archive ran while another write held the lock")
	case <-time.After(50 * time.Millisecond):
	}

	svc.writeMu.Unlock()
	require.NoError(t, <-done)

	_, err := svc.RecordFeeding(ctx, calf.ID, 50, worker)
	assert.ErrorIs(t, err, ErrAnimalInactive)
}
