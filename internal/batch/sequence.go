package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/trivium-ecommerce/fulfillment/internal/domain"
)

// dayDirLayout — формат каталога суток внутри базового каталога батчей.
const dayDirLayout = "20060102"

// Sequencer — единственный авторитет нумерации батчей. Номер выводится из
// уже существующих CSV-файлов каталога суток: максимум найденных номеров
// плюс один. Блокировка удерживается от сканирования до создания файлов,
// поэтому два цикла никогда не получат один номер.
type Sequencer struct {
	mu      sync.Mutex
	baseDir string
	log     *log.Entry
	now     func() time.Time
}

// NewSequencer создаёт нумератор над базовым каталогом батчей.
func NewSequencer(baseDir string, logger *log.Entry) *Sequencer {
	return NewSequencerWithClock(baseDir, logger, time.Now)
}

// NewSequencerWithClock создаёт нумератор с внешними часами.
func NewSequencerWithClock(baseDir string, logger *log.Entry, now func() time.Time) *Sequencer {
	if logger == nil {
		logger = log.WithField("component", "batch_sequencer")
	}
	return &Sequencer{
		baseDir: baseDir,
		log:     logger,
		now:     now,
	}
}

// DayDir возвращает путь каталога суток для текущего момента.
func (s *Sequencer) DayDir() string {
	return filepath.Join(s.baseDir, s.now().Format(dayDirLayout))
}

// Allocate определяет следующий номер батча для текущих суток и вызывает
// create, удерживая блокировку нумерации. create получает номер и каталог
// суток (уже созданный) и должен записать туда файлы этого батча.
func (s *Sequencer) Allocate(create func(number int, dayDir string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dayDir := s.DayDir()
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		return fmt.Errorf("create day dir %s: %w", dayDir, err)
	}

	number, err := s.nextNumber(dayDir)
	if err != nil {
		return err
	}

	s.log.WithFields(log.Fields{"day_dir": dayDir, "number": number}).Debug("batch number allocated")

	return create(number, dayDir)
}

// nextNumber сканирует каталог суток и возвращает max+1 по номерам всех
// CSV-файлов, либо 1 для пустого каталога.
func (s *Sequencer) nextNumber(dayDir string) (int, error) {
	entries, err := os.ReadDir(dayDir)
	if err != nil {
		return 0, fmt.Errorf("scan day dir %s: %w", dayDir, err)
	}

	max := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		n, ok := parseBatchFileName(entry.Name())
		if !ok {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

// parseBatchFileName извлекает номер из имени вида "S-001.csv".
// Файлы с чужим расширением или без номера после дефиса игнорируются.
func parseBatchFileName(name string) (int, bool) {
	if !strings.HasSuffix(name, ".csv") {
		return 0, false
	}
	stem := strings.TrimSuffix(name, ".csv")
	idx := strings.Index(stem, "-")
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(stem[idx+1:])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Stem возвращает основу имени файла батча, например "SL-007".
// Она же попадает в колонку Batch Number каждой строки.
func Stem(cat domain.Category, number int) string {
	return fmt.Sprintf("%s-%03d", cat.Code(), number)
}

// FileName возвращает имя CSV-файла батча, например "SL-007.csv".
func FileName(cat domain.Category, number int) string {
	return Stem(cat, number) + ".csv"
}
