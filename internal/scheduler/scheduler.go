package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/crucial707/meddevice/internal/metrics"
	"github.com/crucial707/meddevice/internal/models"
)

// ErrScheduleNotFound is returned by TestSend for an unknown id.
var ErrScheduleNotFound = errors.New("schedule not found")

// DeviceSource lists active devices with their latest inspection time.
type DeviceSource interface {
	ListActiveWithLastInspection(ctx context.Context) ([]models.Device, error)
}

// StatsSource counts devices and inspections for the summary report.
type StatsSource interface {
	DailyCounts(ctx context.Context, day time.Time) (models.ReportCounts, error)
}

// ScheduleStore reads schedules and records when they fired.
type ScheduleStore interface {
	ListActive(ctx context.Context) ([]models.ScheduledReport, error)
	GetByID(ctx context.Context, id int) (*models.ScheduledReport, error)
	MarkRun(ctx context.Context, id int, t time.Time) error
}

// Sender delivers one chat message.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Scheduler evaluates scheduled reports once a minute and dispatches the ones that are due.
type Scheduler struct {
	Devices   DeviceSource
	Stats     StatsSource
	Schedules ScheduleStore
	Sender    Sender
	Location  *time.Location
	Logger    *slog.Logger
	// Now is the clock; tests replace it.
	Now func() time.Time

	tickMu sync.Mutex
}

// New returns a Scheduler using the wall clock.
func New(devices DeviceSource, stats StatsSource, schedules ScheduleStore, sender Sender, loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		Devices:   devices,
		Stats:     stats,
		Schedules: schedules,
		Sender:    sender,
		Location:  loc,
		Logger:    logger,
		Now:       time.Now,
	}
}

func (s *Scheduler) clock() time.Time {
	return s.Now().In(s.Location)
}

// Start runs Tick at the top of every minute until ctx is done. A tick still running when
// the next one is due causes the next one to be skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	logger := cron.PrintfLogger(slog.NewLogLogger(s.Logger.Handler(), slog.LevelDebug))
	c := cron.New(
		cron.WithLocation(s.Location),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc("* * * * *", func() {
		if _, err := s.Tick(ctx); err != nil {
			s.Logger.Error("scheduler tick", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule tick: %w", err)
	}
	c.Start()
	s.Logger.Info("scheduler started", "timezone", s.Location.String())

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		s.Logger.Info("scheduler stopped")
	}()
	return nil
}

// Tick fires every active schedule that matches the current minute and returns how many fired.
// A read failure abandons the rest of the tick; the next tick starts over.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	if !s.tickMu.TryLock() {
		metrics.IncSchedulerTicks("skipped")
		s.Logger.Warn("scheduler tick skipped, previous tick still running")
		return 0, nil
	}
	defer s.tickMu.Unlock()

	at := s.clock()
	schedules, err := s.Schedules.ListActive(ctx)
	if err != nil {
		metrics.IncSchedulerTicks("error")
		return 0, fmt.Errorf("list schedules: %w", err)
	}

	reports := map[string]string{}
	fired := 0
	for _, sch := range schedules {
		if !ShouldRun(sch, at) {
			continue
		}
		text, ok := reports[sch.ReportType]
		if !ok {
			text, err = s.BuildReport(ctx, sch.ReportType, at)
			if err != nil {
				metrics.IncSchedulerTicks("error")
				return fired, fmt.Errorf("build %s report for schedule %d: %w", sch.ReportType, sch.ID, err)
			}
			reports[sch.ReportType] = text
		}

		sent, failed := s.dispatch(ctx, sch.ChatIDs, text)
		if err := s.Schedules.MarkRun(ctx, sch.ID, at); err != nil {
			s.Logger.Error("mark schedule run", "schedule_id", sch.ID, "error", err)
		}
		metrics.IncReportsDispatched(sch.ReportType)
		s.Logger.Info("scheduled report sent",
			"schedule_id", sch.ID, "name", sch.Name, "report_type", sch.ReportType,
			"sent", len(sent), "failed", len(failed))
		fired++
	}
	metrics.IncSchedulerTicks("ok")
	return fired, nil
}

// BuildReport renders the report text for reportType at the given time.
// Unknown types render the uninspected report.
func (s *Scheduler) BuildReport(ctx context.Context, reportType string, at time.Time) (string, error) {
	if reportType == models.ReportSummary {
		counts, err := s.Stats.DailyCounts(ctx, at)
		if err != nil {
			return "", err
		}
		return BuildSummaryReport(counts, at), nil
	}
	devices, err := s.Devices.ListActiveWithLastInspection(ctx)
	if err != nil {
		return "", err
	}
	return BuildUninspectedReport(devices, at), nil
}

// dispatch sends text to every recipient independently. Failures are logged, not retried.
func (s *Scheduler) dispatch(ctx context.Context, chatIDs []string, text string) (sent, failed []string) {
	sent, failed = []string{}, []string{}
	for _, id := range chatIDs {
		if err := s.Sender.SendMessage(ctx, id, text); err != nil {
			s.Logger.Warn("report send failed", "chat_id", id, "error", err)
			metrics.IncReportMessages(false)
			failed = append(failed, id)
			continue
		}
		metrics.IncReportMessages(true)
		sent = append(sent, id)
	}
	return sent, failed
}

// TestResult is returned by TestSend.
type TestResult struct {
	Report     string   `json:"report"`
	Recipients int      `json:"recipients"`
	SentTo     []string `json:"sent_to"`
	Failed     []string `json:"failed"`
}

// TestSend builds and sends the report for one schedule now, ignoring its cadence.
// last_run is not touched.
func (s *Scheduler) TestSend(ctx context.Context, id int) (*TestResult, error) {
	sch, err := s.Schedules.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	if sch == nil {
		return nil, ErrScheduleNotFound
	}
	text, err := s.BuildReport(ctx, sch.ReportType, s.clock())
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}
	sent, failed := s.dispatch(ctx, sch.ChatIDs, text)
	return &TestResult{Report: text, Recipients: len(sch.ChatIDs), SentTo: sent, Failed: failed}, nil
}
