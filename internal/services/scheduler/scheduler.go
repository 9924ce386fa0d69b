// Package scheduler запускает фоновые задачи витрины по расписанию cron:
// синхронизацию цен, закрытие истёкших окон доступа и напоминания о приёмах.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/telehealth-storefront/internal/config"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/services/pricesync"
)

const (
	jobTimeout    = 10 * time.Minute
	reminderBatch = 200
)

// PriceSyncer синхронизирует цены тарифов с провайдером.
type PriceSyncer interface {
	Sync(ctx context.Context) (*pricesync.Report, error)
}

// AccessSweeper закрывает истёкшие окна доступа.
type AccessSweeper interface {
	SweepAccess(ctx context.Context) (int64, error)
}

// Reminder отправляет напоминания о приёмах.
type Reminder interface {
	SendReminders(ctx context.Context, lookahead time.Duration, limit int) (int, error)
}

// SchedulerService регистрирует задачи в cron.
type SchedulerService struct {
	cron      *cron.Cron
	prices    PriceSyncer
	access    AccessSweeper
	reminders Reminder
	cfg       config.Scheduler
	log       *slog.Logger
}

// NewSchedulerService создает планировщик и регистрирует задачи. Пустое расписание
// отключает соответствующую задачу.
func NewSchedulerService(cfg config.Scheduler, prices PriceSyncer, access AccessSweeper, reminders Reminder, log *slog.Logger) (*SchedulerService, error) {
	const op = "services.scheduler.NewSchedulerService"

	cl := cronLogger{log: log}
	s := &SchedulerService{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		prices:    prices,
		access:    access,
		reminders: reminders,
		cfg:       cfg,
		log:       log,
	}

	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context)
	}{
		{name: "price_sync", spec: cfg.PriceSyncSpec, run: s.RunPriceSync},
		{name: "access_sweep", spec: cfg.AccessSweepSpec, run: s.RunAccessSweep},
		{name: "reminders", spec: cfg.ReminderSpec, run: s.RunReminders},
	}
	for _, j := range jobs {
		if j.spec == "" {
			log.Info("job disabled", slog.String("job", j.name))
			continue
		}
		run := j.run
		if _, err := s.cron.AddFunc(j.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			run(ctx)
		}); err != nil {
			return nil, fmt.Errorf("%s: job %s: %w", op, j.name, err)
		}
		log.Info("job scheduled", slog.String("job", j.name), slog.String("spec", j.spec))
	}
	return s, nil
}

// Run запускает cron и блокируется до отмены ctx, затем дожидается текущих задач.
func (s *SchedulerService) Run(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	s.log.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// Entries число зарегистрированных задач.
func (s *SchedulerService) Entries() int {
	return len(s.cron.Entries())
}

// RunPriceSync выполняет одну синхронизацию цен.
func (s *SchedulerService) RunPriceSync(ctx context.Context) {
	s.log.Info("starting price sync")
	report, err := s.prices.Sync(ctx)
	if err != nil {
		s.log.Error("price sync failed", sl.Err(err))
		return
	}
	s.log.Info("price sync finished",
		slog.Int("created", report.Created),
		slog.Int("updated", report.Updated),
		slog.Int("unchanged", report.Unchanged),
		slog.Int("failed", report.Failed))
}

// RunAccessSweep закрывает истёкшие окна доступа.
func (s *SchedulerService) RunAccessSweep(ctx context.Context) {
	n, err := s.access.SweepAccess(ctx)
	if err != nil {
		s.log.Error("access sweep failed", sl.Err(err))
		return
	}
	s.log.Info("access sweep finished", slog.Int64("expired", n))
}

// RunReminders отправляет напоминания о приёмах в окне ReminderLookahead.
func (s *SchedulerService) RunReminders(ctx context.Context) {
	n, err := s.reminders.SendReminders(ctx, s.cfg.ReminderLookahead, reminderBatch)
	if err != nil {
		s.log.Error("reminders failed", sl.Err(err))
		return
	}
	if n == 0 {
		s.log.Info("no appointments to remind")
	}
}

// cronLogger пишет события cron в slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, sl.Err(err))...)
}
