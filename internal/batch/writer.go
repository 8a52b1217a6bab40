package batch

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/trivium-ecommerce/fulfillment/internal/domain"
)

// orderTimeLayout — формат колонки Order Time.
const orderTimeLayout = "2006-01-02 15:04:05"

// Headers — порядок и имена колонок batch-файла. Внешний контракт,
// согласованный со складом; менять нельзя.
var Headers = []string{
	"Order ID",
	"Shop",
	"MP EAN",
	"Quantity",
	"Shipping Label",
	"Order Time",
	"Batch Type",
	"Batch Number",
	"Order Status",
}

// Writer пишет batch-файлы. Запись атомарна: файл собирается во временном
// имени и попадает на место одним rename, частично записанный батч
// снаружи не виден.
type Writer struct {
	log *log.Entry
}

// NewWriter создаёт писатель batch-файлов.
func NewWriter(logger *log.Entry) *Writer {
	if logger == nil {
		logger = log.WithField("component", "batch_writer")
	}
	return &Writer{log: logger}
}

// WriteBatch записывает один batch-файл категории в каталог суток.
// labels отображает идентификатор позиции в ссылку лейбла; отсутствие
// записи означает пустую колонку Shipping Label. Возвращает полный путь
// созданного файла.
func (w *Writer) WriteBatch(dayDir string, cat domain.Category, number int, shop string, orders []domain.Order, labels map[string]string) (string, error) {
	path := filepath.Join(dayDir, FileName(cat, number))
	stem := Stem(cat, number)

	tmp, err := os.CreateTemp(dayDir, "."+stem+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp batch file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	cw := csv.NewWriter(tmp)
	if err := cw.Write(Headers); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write batch header: %w", err)
	}

	rows := 0
	for _, order := range orders {
		for _, item := range order.Items {
			record := []string{
				order.ID,
				shop,
				item.EAN,
				fmt.Sprintf("%d", item.Quantity),
				labels[item.ID],
				order.PlacedAt.Format(orderTimeLayout),
				string(cat),
				stem,
				string(domain.OrderStatusOpen),
			}
			if err := cw.Write(record); err != nil {
				tmp.Close()
				return "", fmt.Errorf("write batch row for order %s: %w", order.ID, err)
			}
			rows++
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("flush batch file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp batch file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("publish batch file %s: %w", path, err)
	}

	w.log.WithFields(log.Fields{
		"file":   path,
		"orders": len(orders),
		"rows":   rows,
	}).Info("batch file written")

	return path, nil
}
