package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/trivium-ecommerce/fulfillment/internal/app"
	"github.com/trivium-ecommerce/fulfillment/internal/version"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if v := os.Getenv("FULFILLMENT_LOG_LEVEL"); v != "" {
		if level, err := log.ParseLevel(v); err == nil {
			log.SetLevel(level)
		}
	}
}

func main() {
	var (
		once        = flag.Bool("once", false, "выполнить один цикл обработки и выйти")
		monitorMode = flag.Bool("monitor", false, "запустить непрерывный монитор")
		showVersion = flag.Bool("version", false, "показать версию и выйти")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	setupLogger()
	cfg := app.DefaultConfig().FromEnv()

	mode := app.ModeMonitor
	if *once {
		mode = app.ModeOnce
	}
	if *once && *monitorMode {
		log.Fatal("флаги -once и -monitor взаимоисключающие")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"mode":         mode,
		"config":       cfg.ConfigPath,
		"data_dir":     cfg.DataDir,
		"ledger":       cfg.LedgerBackend,
		"metrics_addr": cfg.MetricsAddr,
	}).Info("запускаем конвейер обработки заказов")

	if err := app.Run(ctx, cfg, mode); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("конвейер остановлен")
}
