package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/trivium-ecommerce/fulfillment/internal/config"
	"github.com/trivium-ecommerce/fulfillment/internal/domain"
	"github.com/trivium-ecommerce/fulfillment/internal/messaging/kafka"
	"github.com/trivium-ecommerce/fulfillment/internal/metrics"
	"github.com/trivium-ecommerce/fulfillment/internal/schedule"
)

// defaultTickInterval — период безусловного тика монитора.
const defaultTickInterval = time.Minute

// EventPublisher публикует события цикла во внешнюю шину.
type EventPublisher interface {
	PublishCycleEvent(event *kafka.CycleEvent) error
}

// AccountProvider отдаёт список аккаунтов для цикла. Вызывается в начале
// каждого цикла, поэтому изменения конфигурации подхватываются без
// перезапуска.
type AccountProvider func() []Account

// ScheduleProvider отдаёт снимок расписания для очередного тика.
type ScheduleProvider func() config.ScheduleConfig

// Runner запускает циклы обработки: по требованию через RunCycle и
// непрерывно через Monitor. Одновременно выполняется не более одного
// цикла на процесс.
type Runner struct {
	processor *Processor
	accounts  AccountProvider
	gate      *schedule.Gate
	schedule  ScheduleProvider
	notifier  domain.Notifier
	events    EventPublisher
	metrics   *metrics.PipelineMetrics
	log       *log.Entry

	tickInterval time.Duration
	inFlight     atomic.Bool
}

// RunnerOption настраивает Runner.
type RunnerOption func(*Runner)

// WithTickInterval меняет период тика монитора.
func WithTickInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.tickInterval = d
		}
	}
}

// WithNotifier подключает отправку сводных писем.
func WithNotifier(n domain.Notifier) RunnerOption {
	return func(r *Runner) { r.notifier = n }
}

// WithEventPublisher подключает публикацию событий цикла.
func WithEventPublisher(p EventPublisher) RunnerOption {
	return func(r *Runner) { r.events = p }
}

// WithMetrics подключает метрики конвейера.
func WithMetrics(m *metrics.PipelineMetrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner собирает раннер циклов.
func NewRunner(
	processor *Processor,
	accounts AccountProvider,
	gate *schedule.Gate,
	scheduleFn ScheduleProvider,
	logger *log.Entry,
	opts ...RunnerOption,
) *Runner {
	if logger == nil {
		logger = log.WithField("component", "pipeline_runner")
	}
	r := &Runner{
		processor:    processor,
		accounts:     accounts,
		gate:         gate,
		schedule:     scheduleFn,
		log:          logger,
		tickInterval: defaultTickInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunCycle выполняет один цикл по всем аккаунтам последовательно.
// Повторный вызов во время работающего цикла возвращает ErrCycleInFlight.
func (r *Runner) RunCycle(ctx context.Context, trigger domain.TriggerKind) (domain.CycleReport, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		if r.metrics != nil {
			r.metrics.RecordCycleSkipped()
		}
		return domain.CycleReport{}, domain.ErrCycleInFlight
	}
	defer r.inFlight.Store(false)

	accounts := r.accounts()
	if len(accounts) == 0 {
		return domain.CycleReport{}, domain.ErrNoActiveAccounts
	}

	report := domain.CycleReport{
		CycleID:   uuid.NewString(),
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
	}

	logger := r.log.WithFields(log.Fields{"cycle_id": report.CycleID, "trigger": trigger})
	logger.WithField("accounts", len(accounts)).Info("cycle started")

	if r.metrics != nil {
		r.metrics.RecordCycleStarted()
	}
	r.publish(kafka.NewCycleStarted(report.CycleID, trigger))

	for _, acc := range accounts {
		if err := ctx.Err(); err != nil {
			logger.WithError(err).Warn("cycle interrupted")
			break
		}
		report.Accounts = append(report.Accounts, r.processor.ProcessAccount(ctx, acc))
	}

	report.FinishedAt = time.Now().UTC()

	if r.metrics != nil {
		r.metrics.RecordCycleFinished(report.FinishedAt.Sub(report.StartedAt), report.HasFailures())
	}
	r.publish(kafka.NewCycleCompleted(report))
	r.notify(ctx, report)

	logger.WithFields(log.Fields{
		"processed": report.TotalProcessed(),
		"files":     len(report.FilesCreated()),
		"failures":  report.HasFailures(),
	}).Info("cycle finished")

	return report, nil
}

// Monitor крутит непрерывный цикл: каждый тик сверяется с расписанием и
// при разрешении запускает обработку. Останавливается по отмене контекста.
func (r *Runner) Monitor(ctx context.Context) error {
	r.log.WithField("tick", r.tickInterval.String()).Info("monitor started")

	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	// Первый проход сразу, не дожидаясь тика.
	r.monitorPass(ctx)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("monitor stopped")
			return nil
		case <-ticker.C:
			r.monitorPass(ctx)
		}
	}
}

func (r *Runner) monitorPass(ctx context.Context) {
	decision := r.gate.Evaluate(r.schedule())
	if !decision.Run {
		r.log.WithField("reason", decision.Reason).Debug("cycle suppressed by schedule")
		return
	}

	trigger := domain.TriggerTick
	if decision.Slot != "" {
		trigger = domain.TriggerSlot
	}

	if _, err := r.RunCycle(ctx, trigger); err != nil {
		switch {
		case errors.Is(err, domain.ErrCycleInFlight):
			r.log.Debug("previous cycle still running, tick skipped")
		case errors.Is(err, domain.ErrNoActiveAccounts):
			r.log.Warn("no active accounts configured")
		default:
			r.log.WithError(err).Error("cycle failed")
		}
	}
}

func (r *Runner) publish(event *kafka.CycleEvent) {
	if r.events == nil {
		return
	}
	if err := r.events.PublishCycleEvent(event); err != nil {
		r.log.WithError(err).WithField("event_type", event.EventType).Warn("cycle event not published")
	}
}

func (r *Runner) notify(ctx context.Context, report domain.CycleReport) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Send(ctx, report); err != nil {
		r.log.WithError(err).Warn("summary mail not sent")
	}
}
