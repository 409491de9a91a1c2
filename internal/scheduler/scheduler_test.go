package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/calftracker/internal/config"
	"github.com/mamadbah2/calftracker/internal/domain/models"
)

type countingReloader struct{ calls int }

func (r *countingReloader) Reload(context.Context) error {
	r.calls++
	return nil
}

type stubReporter struct {
	report string
	err    error
}

func (r stubReporter) GenerateDailyReport(context.Context) (string, error) {
	return r.report, r.err
}

type stubExporter struct {
	rows  int
	calls int
}

func (e *stubExporter) Run(context.Context) (int, error) {
	e.calls++
	return e.rows, nil
}

type recordingMessenger struct {
	sent []models.OutboundMessageRequest
	err  error
}

func (m *recordingMessenger) VerifyWebhookToken(string, string, string) (string, error) {
	return "", nil
}

func (m *recordingMessenger) HandleWebhook(context.Context, models.WebhookPayload) error {
	return nil
}

func (m *recordingMessenger) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	m.sent = append(m.sent, req)
	return m.err
}

func testConfig() config.Config {
	return config.Config{
		WhatsApp: config.WhatsAppConfig{ManagerID: "15550009999"},
		Reporting: config.ReportingConfig{
			CronSchedule:   "0 19 * * *",
			ExportSchedule: "30 * * * *",
			ReloadSchedule: "@every 1m",
			Timezone:       "UTC",
		},
	}
}

func TestRunDailyReportSendsToManager(t *testing.T) {
	messenger := &recordingMessenger{}
	s := NewScheduler(testConfig(), &countingReloader{}, stubReporter{report: "Herd report"}, nil, messenger, nil)

	report, err := s.RunDailyReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Herd report", report)
	assert.Equal(t, []models.OutboundMessageRequest{{To: "15550009999", Message: "Herd report"}}, messenger.sent)
}

func TestRunDailyReportWithoutMessaging(t *testing.T) {
	s := NewScheduler(testConfig(), &countingReloader{}, stubReporter{report: "Herd report"}, nil, nil, nil)

	report, err := s.RunDailyReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Herd report", report)
}

func TestRunDailyReportErrors(t *testing.T) {
	failing := NewScheduler(testConfig(), &countingReloader{}, stubReporter{err: errors.New("mongo down")}, nil, &recordingMessenger{}, nil)
	_, err := failing.RunDailyReport(context.Background())
	assert.ErrorContains(t, err, "generate daily report")

	messenger := &recordingMessenger{err: errors.New("rate limited")}
	s := NewScheduler(testConfig(), &countingReloader{}, stubReporter{report: "r"}, nil, messenger, nil)
	report, err := s.RunDailyReport(context.Background())
	assert.ErrorContains(t, err, "send daily report")
	assert.Equal(t, "r", report)
}

func TestJobs(t *testing.T) {
	reloader := &countingReloader{}
	exporter := &stubExporter{rows: 3}
	s := NewScheduler(testConfig(), reloader, stubReporter{}, exporter, nil, nil)

	s.reload()
	s.export()

	assert.Equal(t, 1, reloader.calls)
	assert.Equal(t, 1, exporter.calls)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.Reporting.CronSchedule = "every evening"
	s := NewScheduler(cfg, &countingReloader{}, stubReporter{}, nil, nil, nil)

	assert.Error(t, s.Start())
}

func TestStartAndStop(t *testing.T) {
	s := NewScheduler(testConfig(), &countingReloader{}, stubReporter{}, &stubExporter{}, nil, nil)

	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 3)
	s.Stop()
}
