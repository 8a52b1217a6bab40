package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/trivium-ecommerce/fulfillment/internal/domain"
	healthcheck "github.com/trivium-ecommerce/fulfillment/internal/health"
	"github.com/trivium-ecommerce/fulfillment/internal/monitor"
	"github.com/trivium-ecommerce/fulfillment/internal/version"
)

// Mode выбирает режим запуска процесса.
type Mode string

const (
	// ModeOnce — один цикл обработки и выход.
	ModeOnce Mode = "once"
	// ModeMonitor — непрерывный монитор с PID-файлом.
	ModeMonitor Mode = "monitor"
)

// Run поднимает зависимости и выполняет выбранный режим.
func Run(ctx context.Context, cfg Config, mode Mode) error {
	logger := log.WithField("component", "app")

	deps, err := BuildDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("ledger", healthcheck.NewLedgerChecker(deps.Ledger))

	logLedgerSummary(deps.Ledger, logger)

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	switch mode {
	case ModeOnce:
		report, err := deps.Runner.RunCycle(ctx, domain.TriggerManual)
		if err != nil {
			return err
		}
		return onceOutcome(report, logger)

	case ModeMonitor:
		ctl := monitor.NewController(cfg.PIDPath(), logger.WithField("component", "monitor_controller"))
		if err := ctl.Acquire(); err != nil {
			return err
		}
		defer func() {
			if err := ctl.Release(); err != nil {
				logger.WithError(err).Warn("pid file not removed")
			}
		}()
		if err := ctl.MarkRunning(); err != nil {
			logger.WithError(err).Warn("pid file state not updated")
		}
		return deps.Runner.Monitor(ctx)

	default:
		return errors.New("unknown run mode " + string(mode))
	}
}

// onceOutcome подводит итог разового цикла. Сбои отдельных аккаунтов уже
// ушли в логи и сводное письмо, поэтому частичный успех завершает процесс
// нулевым кодом; ненулевой остаётся за ошибками запуска.
func onceOutcome(report domain.CycleReport, logger *log.Entry) error {
	if report.HasFailures() {
		logger.WithField("processed", report.TotalProcessed()).Warn("cycle finished with account failures")
	}
	return nil
}

// logLedgerSummary пишет в лог размер реестра и распределение по
// категориям на момент старта.
func logLedgerSummary(ledger domain.Ledger, logger *log.Entry) {
	count, err := ledger.Count()
	if err != nil {
		logger.WithError(err).Warn("ledger summary unavailable")
		return
	}
	byCategory, err := ledger.CountByCategory()
	if err != nil {
		logger.WithError(err).Warn("ledger category summary unavailable")
		return
	}
	logger.WithFields(log.Fields{
		"processed_total": count,
		"by_category":     byCategory,
	}).Info("processed-order ledger loaded")
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez", addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
