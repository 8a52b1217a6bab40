package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
)

// schema — таблица реестра обработанных заказов и её индексы.
const schema = `
CREATE TABLE IF NOT EXISTS processed_orders (
    order_id      TEXT NOT NULL,
    order_item_id TEXT NOT NULL,
    batch_number  TEXT NOT NULL,
    batch_type    TEXT NOT NULL,
    processed_at  TIMESTAMP NOT NULL,
    PRIMARY KEY (order_id, order_item_id)
);
CREATE INDEX IF NOT EXISTS idx_order_id      ON processed_orders (order_id);
CREATE INDEX IF NOT EXISTS idx_order_item_id ON processed_orders (order_item_id);
`

// Store — соединение с файлом SQLite.
type Store struct {
	db  *sqlx.DB
	log *log.Entry
}

// NewStore открывает базу по указанному пути и проверяет доступность.
// Файл создаётся при первом обращении.
func NewStore(path string, logger *log.Entry) (*Store, error) {
	if logger == nil {
		logger = log.WithField("component", "sqlite_store")
	}

	db, err := sqlx.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database %s: %w", path, err)
	}

	// Одно соединение: файл SQLite не любит конкурентных писателей.
	db.SetMaxOpenConns(1)

	logger.WithField("path", path).Info("sqlite store opened")
	return &Store{db: db, log: logger}, nil
}

// EnsureSchema создаёт таблицу и индексы, если их ещё нет.
func (s *Store) EnsureSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("ensure sqlite schema: %w", err)
	}
	return nil
}

// DB возвращает нижележащее соединение для репозиториев.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close закрывает соединение.
func (s *Store) Close() error {
	return s.db.Close()
}
