package pipeline

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/trivium-ecommerce/fulfillment/internal/batch"
	"github.com/trivium-ecommerce/fulfillment/internal/domain"
	"github.com/trivium-ecommerce/fulfillment/internal/metrics"
)

// Account — готовая связка одного аккаунта продавца: источник заказов и
// получатель лейблов, поднятые на его учётных данных.
type Account struct {
	Name   string
	Shop   string
	Source domain.OrderSource
	Labels domain.LabelAcquirer
}

// Processor выполняет обработку одного аккаунта внутри цикла: выборка,
// дедупликация, классификация, лейблы, запись батчей, загрузка и фиксация
// в реестре. Реестр пополняется только после успешной загрузки: сбой до
// неё оставляет заказы необработанными, и следующий цикл заберёт их снова.
type Processor struct {
	ledger  domain.Ledger
	seq     *batch.Sequencer
	writer  *batch.Writer
	sink    domain.DeliverySink
	metrics *metrics.PipelineMetrics
	log     *log.Entry
}

// NewProcessor собирает обработчик аккаунтов.
func NewProcessor(
	ledger domain.Ledger,
	seq *batch.Sequencer,
	writer *batch.Writer,
	sink domain.DeliverySink,
	m *metrics.PipelineMetrics,
	logger *log.Entry,
) *Processor {
	if logger == nil {
		logger = log.WithField("component", "pipeline_processor")
	}
	return &Processor{
		ledger:  ledger,
		seq:     seq,
		writer:  writer,
		sink:    sink,
		metrics: m,
		log:     logger,
	}
}

// ProcessAccount обрабатывает один аккаунт и возвращает его отчёт.
// Ошибка не возвращается отдельно: любой сбой фиксируется в отчёте, чтобы
// вызывающий код мог продолжить со следующим аккаунтом.
func (p *Processor) ProcessAccount(ctx context.Context, acc Account) domain.AccountReport {
	logger := p.log.WithField("account", acc.Name)
	report := domain.AccountReport{Account: acc.Name, Shop: acc.Shop}

	orders, err := acc.Source.FetchOpenOrders(ctx)
	if err != nil {
		logger.WithError(err).Error("fetching open orders failed")
		report.Error = err.Error()
		return report
	}
	report.FetchedTotal = len(orders)

	fresh, err := p.dropProcessed(orders)
	if err != nil {
		logger.WithError(err).Error("ledger lookup failed, cycle is closed for this account")
		report.Error = err.Error()
		return report
	}

	if len(fresh) == 0 {
		logger.WithField("fetched", len(orders)).Debug("no new orders")
		report.Success = true
		return report
	}

	labelRefs, labelPaths := p.acquireLabels(ctx, acc, fresh, &report)

	files, pending, err := p.writeBatches(acc, fresh, labelRefs)
	if err != nil {
		logger.WithError(err).Error("writing batch files failed")
		report.Error = err.Error()
		return report
	}
	report.FilesCreated = files

	if err := p.sink.UploadBatches(ctx, files); err != nil {
		logger.WithError(err).Error("batch upload failed, orders stay unprocessed")
		report.Error = err.Error()
		return report
	}
	uploaded := len(files)
	if len(labelPaths) > 0 {
		if err := p.sink.UploadLabels(ctx, labelPaths); err != nil {
			// Лейблы уже в батче ссылками; их загрузку можно повторить руками.
			logger.WithError(err).Warn("label upload failed")
		} else {
			uploaded += len(labelPaths)
		}
	}
	if p.metrics != nil {
		p.metrics.RecordFilesUploaded(uploaded)
	}

	if err := p.recordProcessed(pending); err != nil {
		logger.WithError(err).Error("recording processed orders failed")
		report.Error = err.Error()
		return report
	}

	report.Processed = len(fresh)
	report.Success = true
	logger.WithFields(log.Fields{
		"fetched":   report.FetchedTotal,
		"processed": report.Processed,
		"files":     len(files),
	}).Info("account processed")
	return report
}

// dropProcessed убирает заказы, уже присутствующие в реестре, сохраняя
// порядок источника.
func (p *Processor) dropProcessed(orders []domain.Order) ([]domain.Order, error) {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	freshIDs, err := p.ledger.FilterUnprocessed(ids)
	if err != nil {
		return nil, err
	}

	keep := make(map[string]struct{}, len(freshIDs))
	for _, id := range freshIDs {
		keep[id] = struct{}{}
	}

	out := make([]domain.Order, 0, len(freshIDs))
	for _, o := range orders {
		if _, ok := keep[o.ID]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// acquireLabels получает лейблы для FBR-позиций. Возвращает ссылки для
// колонки батча и локальные пути PDF для загрузки.
func (p *Processor) acquireLabels(ctx context.Context, acc Account, orders []domain.Order, report *domain.AccountReport) (map[string]string, []string) {
	refs := make(map[string]string)
	var paths []string

	for _, order := range orders {
		for _, item := range order.Items {
			res := acc.Labels.Acquire(ctx, order, item)
			switch res.State {
			case domain.LabelAcquired:
				refs[item.ID] = res.Ref
				paths = append(paths, res.Path)
				report.LabelsSaved++
				if p.metrics != nil {
					p.metrics.RecordLabelAcquired()
				}
			case domain.LabelFailed:
				report.LabelsFailed++
				if p.metrics != nil {
					p.metrics.RecordLabelFailed()
				}
			}
		}
	}
	return refs, paths
}

// writeBatches раскладывает заказы по категориям и пишет файлы под одним
// номером батча. Возвращает пути файлов и записи реестра, которые надо
// зафиксировать после успешной загрузки.
func (p *Processor) writeBatches(acc Account, orders []domain.Order, labelRefs map[string]string) ([]string, []domain.ProcessedOrderRecord, error) {
	groups := domain.GroupByCategory(orders)

	var (
		files   []string
		pending []domain.ProcessedOrderRecord
	)

	err := p.seq.Allocate(func(number int, dayDir string) error {
		for _, cat := range domain.Categories() {
			catOrders := groups[cat]
			if len(catOrders) == 0 {
				continue
			}

			path, err := p.writer.WriteBatch(dayDir, cat, number, acc.Shop, catOrders, labelRefs)
			if err != nil {
				return err
			}
			files = append(files, path)

			stem := batch.Stem(cat, number)
			now := time.Now().UTC()
			for _, order := range catOrders {
				for _, item := range order.Items {
					pending = append(pending, domain.ProcessedOrderRecord{
						OrderID:     order.ID,
						OrderItemID: item.ID,
						BatchNumber: stem,
						BatchType:   cat,
						ProcessedAt: now,
					})
				}
			}

			if p.metrics != nil {
				p.metrics.RecordBatchWritten(string(cat))
				p.metrics.RecordOrdersProcessed(string(cat), len(catOrders))
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("allocate batch number: %w", err)
	}
	return files, pending, nil
}

// recordProcessed фиксирует обработанные позиции в реестре.
func (p *Processor) recordProcessed(pending []domain.ProcessedOrderRecord) error {
	for _, rec := range pending {
		if err := p.ledger.Record(rec); err != nil {
			return fmt.Errorf("record order %s item %s: %w", rec.OrderID, rec.OrderItemID, err)
		}
	}
	return nil
}
