package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/trivium-ecommerce/fulfillment/internal/batch"
	"github.com/trivium-ecommerce/fulfillment/internal/bol"
	"github.com/trivium-ecommerce/fulfillment/internal/config"
	"github.com/trivium-ecommerce/fulfillment/internal/domain"
	"github.com/trivium-ecommerce/fulfillment/internal/messaging/kafka"
	"github.com/trivium-ecommerce/fulfillment/internal/metrics"
	"github.com/trivium-ecommerce/fulfillment/internal/notify"
	"github.com/trivium-ecommerce/fulfillment/internal/schedule"
	"github.com/trivium-ecommerce/fulfillment/internal/service/labels"
	"github.com/trivium-ecommerce/fulfillment/internal/service/pipeline"
	"github.com/trivium-ecommerce/fulfillment/internal/storage/memory"
	"github.com/trivium-ecommerce/fulfillment/internal/storage/postgres"
	"github.com/trivium-ecommerce/fulfillment/internal/storage/sqlite"
	"github.com/trivium-ecommerce/fulfillment/internal/transport/sftpsink"
)

// Dependencies — собранный граф зависимостей приложения.
type Dependencies struct {
	Ledger  domain.Ledger
	Runner  *pipeline.Runner
	Metrics *metrics.PipelineMetrics

	closers []func() error
}

// BuildDependencies поднимает все зависимости по конфигурации запуска.
func BuildDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	deps := &Dependencies{}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", cfg.DataDir, err)
	}

	ledger, err := buildLedger(ctx, cfg, logger, deps)
	if err != nil {
		return nil, err
	}
	deps.Ledger = ledger

	deps.Metrics = metrics.NewPipelineMetrics()

	seq := batch.NewSequencer(cfg.BatchDir(), logger.WithField("component", "batch_sequencer"))
	writer := batch.NewWriter(logger.WithField("component", "batch_writer"))

	// Расписание и аккаунты перечитываются на каждом цикле; SMTP и SFTP
	// берутся из снимка на старте процесса.
	loadSystem := func() config.SystemConfig {
		return config.Load(cfg.ConfigPath, logger.WithField("component", "config"))
	}

	accounts := func() []pipeline.Account {
		sys := loadSystem()
		out := make([]pipeline.Account, 0, len(sys.Accounts))
		for _, acc := range sys.ActiveAccounts() {
			client := bol.NewClient(acc.ClientID, acc.ClientSecret,
				logger.WithFields(log.Fields{"component": "bol_client", "account": acc.Name}))
			out = append(out, pipeline.Account{
				Name:   acc.Name,
				Shop:   acc.Name,
				Source: client,
				Labels: labels.NewAcquirer(client, cfg.LabelDir(),
					logger.WithFields(log.Fields{"component": "label_acquirer", "account": acc.Name})),
			})
		}
		return out
	}

	sysNow := loadSystem()
	processor := pipeline.NewProcessor(
		ledger,
		seq,
		writer,
		sftpsink.NewSink(sysNow.SFTP, logger.WithField("component", "sftp_sink")),
		deps.Metrics,
		logger.WithField("component", "pipeline_processor"),
	)

	gate := schedule.NewGate(logger.WithField("component", "schedule_gate"))
	scheduleFn := func() config.ScheduleConfig { return loadSystem().Schedule }

	opts := []pipeline.RunnerOption{
		pipeline.WithMetrics(deps.Metrics),
		pipeline.WithNotifier(notify.NewMailer(sysNow.Email, logger.WithField("component", "mailer"))),
		pipeline.WithTickInterval(cfg.TickInterval),
	}

	if cfg.KafkaBrokers != "" {
		brokers := strings.Split(cfg.KafkaBrokers, ",")
		producer, err := kafka.NewProducer(brokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			logger.WithField("brokers", brokers).Info("kafka producer initialized")
			deps.closers = append(deps.closers, producer.Close)
			opts = append(opts, pipeline.WithEventPublisher(producer))
		}
	}

	deps.Runner = pipeline.NewRunner(
		processor,
		accounts,
		gate,
		scheduleFn,
		logger.WithField("component", "pipeline_runner"),
		opts...,
	)

	return deps, nil
}

// buildLedger поднимает выбранный бэкенд реестра. Недоступный бэкенд —
// фатальная ошибка запуска: без реестра exactly-once не гарантируется.
func buildLedger(ctx context.Context, cfg Config, logger *log.Entry, deps *Dependencies) (domain.Ledger, error) {
	switch cfg.LedgerBackend {
	case LedgerMemory:
		logger.Warn("using in-memory ledger, duplicates are possible after restart")
		return memory.NewLedger(), nil

	case LedgerPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
		}
		deps.closers = append(deps.closers, store.Close)
		return postgres.NewLedger(store), nil

	case LedgerSQLite, "":
		store, err := sqlite.NewStore(cfg.LedgerPath(), logger.WithField("component", "sqlite_store"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
		}
		if err := store.EnsureSchema(); err != nil {
			store.Close()
			return nil, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
		}
		deps.closers = append(deps.closers, store.Close)
		return sqlite.NewLedger(store, logger.WithField("component", "sqlite_ledger")), nil

	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}
}

// Close освобождает ресурсы в обратном порядке создания.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			log.WithError(err).Warn("dependency close failed")
		}
	}
}
