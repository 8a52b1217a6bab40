package labels

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/trivium-ecommerce/fulfillment/internal/domain"
)

// labelIDPrefix иногда присутствует в идентификаторах лейблов API;
// в имени файла и колонке батча он не нужен.
const labelIDPrefix = "bol_shipping_label_"

// Acquirer получает лейблы отправки для FBR-позиций и сохраняет PDF в
// локальный каталог. Любая ошибка на пути лейбла не фатальна: позиция
// уходит в батч с пустой колонкой лейбла.
type Acquirer struct {
	api      domain.LabelAPI
	labelDir string
	log      *log.Entry
}

var _ domain.LabelAcquirer = (*Acquirer)(nil)

// NewAcquirer создаёт получатель лейблов. labelDir создаётся при первом
// сохранении.
func NewAcquirer(api domain.LabelAPI, labelDir string, logger *log.Entry) *Acquirer {
	if logger == nil {
		logger = log.WithField("component", "label_acquirer")
	}
	return &Acquirer{api: api, labelDir: labelDir, log: logger}
}

// Acquire получает лейбл для позиции. Не-FBR позиции пропускаются без
// обращения к API.
func (a *Acquirer) Acquire(ctx context.Context, order domain.Order, item domain.OrderItem) domain.LabelResult {
	if !item.Fulfilment.IsRetailer() {
		return domain.LabelResult{State: domain.LabelNotApplicable}
	}

	logger := a.log.WithFields(log.Fields{
		"order_id":      order.ID,
		"order_item_id": item.ID,
	})

	labelID, err := a.api.CreateShippingLabel(ctx, item.ID, item.Quantity)
	if err != nil {
		logger.WithError(err).Warn("shipping label creation failed")
		return domain.LabelResult{State: domain.LabelFailed, Reason: err.Error()}
	}

	pdf, err := a.api.GetShippingLabel(ctx, labelID)
	if err != nil {
		logger.WithError(err).WithField("label_id", labelID).Warn("shipping label download failed")
		return domain.LabelResult{State: domain.LabelFailed, Reason: err.Error()}
	}

	ref := strings.TrimPrefix(labelID, labelIDPrefix)
	path, err := a.save(ref, pdf)
	if err != nil {
		logger.WithError(err).WithField("label_ref", ref).Warn("shipping label save failed")
		return domain.LabelResult{State: domain.LabelFailed, Reason: err.Error()}
	}

	logger.WithFields(log.Fields{"label_ref": ref, "path": path}).Info("shipping label saved")
	return domain.LabelResult{State: domain.LabelAcquired, Ref: ref, Path: path}
}

// save записывает PDF под именем <ref>.pdf в каталог лейблов.
func (a *Acquirer) save(ref string, pdf []byte) (string, error) {
	if err := os.MkdirAll(a.labelDir, 0o755); err != nil {
		return "", fmt.Errorf("create label dir %s: %w", a.labelDir, err)
	}
	path := filepath.Join(a.labelDir, ref+".pdf")
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", fmt.Errorf("write label file %s: %w", path, err)
	}
	return path, nil
}
