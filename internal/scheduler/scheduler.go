package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/calftracker/internal/config"
	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/service/whatsapp"
)

const jobTimeout = 2 * time.Minute

// Reloader refreshes the tracker state from the store.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Reporter builds the daily herd report.
type Reporter interface {
	GenerateDailyReport(ctx context.Context) (string, error)
}

// Exporter copies feedings to the spreadsheet.
type Exporter interface {
	Run(ctx context.Context) (int, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron         *cron.Cron
	cfg          config.ReportingConfig
	managerID    string
	reloader     Reloader
	reportingSvc Reporter
	exporter     Exporter
	messagingSvc whatsapp.MessagingService
	logger       *zap.Logger
}

// NewScheduler creates a new scheduler instance. exporter and messagingSvc are
// optional; their jobs are skipped when nil.
func NewScheduler(cfg config.Config, reloader Reloader, reportingSvc Reporter, exporter Exporter, messagingSvc whatsapp.MessagingService, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:         cron.New(cron.WithLocation(cfg.Reporting.Location())),
		cfg:          cfg.Reporting,
		managerID:    cfg.WhatsApp.ManagerID,
		reloader:     reloader,
		reportingSvc: reportingSvc,
		exporter:     exporter,
		messagingSvc: messagingSvc,
		logger:       logger,
	}
}

type job struct {
	name string
	spec string
	run  func()
}

// Start registers every job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("timezone", s.cfg.Timezone))

	jobs := []job{
		{name: "reload", spec: s.cfg.ReloadSchedule, run: s.reload},
		{name: "daily report", spec: s.cfg.CronSchedule, run: s.sendDailyReport},
	}
	if s.exporter != nil {
		jobs = append(jobs, job{name: "export", spec: s.cfg.ExportSchedule, run: s.export})
	}

	for _, j := range jobs {
		if j.spec == "" {
			s.logger.Info("job disabled", zap.String("job", j.name))
			continue
		}
		if _, err := s.cron.AddFunc(j.spec, j.run); err != nil {
			return fmt.Errorf("schedule %s job %q: %w", j.name, j.spec, err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) reload() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	// Failures are logged by the tracker, which keeps serving the previous state.
	_ = s.reloader.Reload(ctx)
}

func (s *Scheduler) sendDailyReport() {
	s.logger.Info("generating daily report")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.RunDailyReport(ctx); err != nil {
		s.logger.Error("daily report failed", zap.Error(err))
	}
}

// RunDailyReport generates the report and sends it to the manager when messaging
// is configured. The report text is returned either way.
func (s *Scheduler) RunDailyReport(ctx context.Context) (string, error) {
	report, err := s.reportingSvc.GenerateDailyReport(ctx)
	if err != nil {
		return "", fmt.Errorf("generate daily report: %w", err)
	}

	if s.messagingSvc == nil || s.managerID == "" {
		s.logger.Info("daily report generated, no recipient configured")
		return report, nil
	}

	req := models.OutboundMessageRequest{
		To:      s.managerID,
		Message: report,
	}
	if err := s.messagingSvc.SendOutbound(ctx, req); err != nil {
		return report, fmt.Errorf("send daily report: %w", err)
	}

	s.logger.Info("daily report sent successfully")
	return report, nil
}

func (s *Scheduler) export() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.exporter.Run(ctx)
	if err != nil {
		s.logger.Error("feeding export failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("feeding export finished", zap.Int("rows", n))
	}
}
