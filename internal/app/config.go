package app

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LedgerBackend выбирает хранилище реестра обработанных заказов.
type LedgerBackend string

const (
	LedgerSQLite   LedgerBackend = "sqlite"
	LedgerPostgres LedgerBackend = "postgres"
	LedgerMemory   LedgerBackend = "memory"
)

// Config описывает настройки запуска приложения.
type Config struct {
	// ConfigPath — путь к system_config.json из админ-панели.
	ConfigPath string
	// DataDir — корень локальных данных: батчи, лейблы, база, PID-файл.
	DataDir string
	// MetricsAddr — адрес HTTP-сервера метрик и health-проверок.
	MetricsAddr string

	LedgerBackend LedgerBackend
	// PostgresDSN используется только при LedgerPostgres.
	PostgresDSN string

	// KafkaBrokers — список брокеров через запятую; пусто отключает события.
	KafkaBrokers string

	// TickInterval — период тика монитора.
	TickInterval time.Duration
}

// DefaultConfig возвращает настройки по умолчанию.
func DefaultConfig() Config {
	return Config{
		ConfigPath:    "system_config.json",
		DataDir:       "data",
		MetricsAddr:   ":9090",
		LedgerBackend: LedgerSQLite,
		TickInterval:  time.Minute,
	}
}

// FromEnv накладывает переменные окружения FULFILLMENT_* поверх конфигурации.
func (c Config) FromEnv() Config {
	if v := os.Getenv("FULFILLMENT_CONFIG"); v != "" {
		c.ConfigPath = v
	}
	if v := os.Getenv("FULFILLMENT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("FULFILLMENT_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("FULFILLMENT_LEDGER"); v != "" {
		c.LedgerBackend = LedgerBackend(strings.ToLower(v))
	}
	if v := os.Getenv("FULFILLMENT_POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("FULFILLMENT_KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = v
	}
	if v := os.Getenv("FULFILLMENT_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.TickInterval = d
		}
	}
	return c
}

// BatchDir возвращает базовый каталог batch-файлов.
func (c Config) BatchDir() string { return filepath.Join(c.DataDir, "batches") }

// LabelDir возвращает каталог PDF-лейблов.
func (c Config) LabelDir() string { return filepath.Join(c.DataDir, "label") }

// LedgerPath возвращает путь файла SQLite-реестра.
func (c Config) LedgerPath() string { return filepath.Join(c.DataDir, "ledger.db") }

// PIDPath возвращает путь PID-файла монитора.
func (c Config) PIDPath() string { return filepath.Join(c.DataDir, "monitor.pid") }
