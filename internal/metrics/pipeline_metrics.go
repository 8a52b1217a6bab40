package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics содержит метрики конвейера обработки заказов.
type PipelineMetrics struct {
	// Счётчики циклов
	cyclesStarted   prometheus.Counter
	cyclesCompleted prometheus.Counter
	cyclesFailed    prometheus.Counter
	cyclesSkipped   prometheus.Counter

	// Счётчики результатов
	ordersProcessed *prometheus.CounterVec
	batchesWritten  *prometheus.CounterVec
	labelsAcquired  prometheus.Counter
	labelsFailed    prometheus.Counter
	filesUploaded   prometheus.Counter

	// Гистограмма времени цикла
	cycleDuration prometheus.Histogram

	// Gauge активного цикла
	cycleInFlight prometheus.Gauge
}

// NewPipelineMetrics создаёт новый экземпляр метрик конвейера.
func NewPipelineMetrics() *PipelineMetrics {
	return newPipelineMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newPipelineMetricsWithRegisterer(registerer prometheus.Registerer) *PipelineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &PipelineMetrics{
		cyclesStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fulfillment_cycles_started_total",
			Help: "Total number of processing cycles started",
		}),
		cyclesCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fulfillment_cycles_completed_total",
			Help: "Total number of processing cycles completed successfully",
		}),
		cyclesFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fulfillment_cycles_failed_total",
			Help: "Total number of processing cycles with at least one failed account",
		}),
		cyclesSkipped: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fulfillment_cycles_skipped_total",
			Help: "Total number of cycle attempts rejected while another cycle was running",
		}),
		ordersProcessed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "fulfillment_orders_processed_total",
			Help: "Total number of orders written to batch files",
		}, []string{"category"}),
		batchesWritten: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "fulfillment_batches_written_total",
			Help: "Total number of batch files written",
		}, []string{"category"}),
		labelsAcquired: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fulfillment_labels_acquired_total",
			Help: "Total number of shipping labels acquired and saved",
		}),
		labelsFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fulfillment_labels_failed_total",
			Help: "Total number of shipping label attempts that failed",
		}),
		filesUploaded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fulfillment_files_uploaded_total",
			Help: "Total number of files uploaded to the delivery sink",
		}),
		cycleDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "fulfillment_cycle_duration_seconds",
			Help:    "Duration of processing cycles in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		cycleInFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "fulfillment_cycle_in_flight",
			Help: "Whether a processing cycle is currently running",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCycleStarted отмечает начало цикла.
func (m *PipelineMetrics) RecordCycleStarted() {
	m.cyclesStarted.Inc()
	m.cycleInFlight.Inc()
}

// RecordCycleFinished отмечает завершение цикла и его длительность.
func (m *PipelineMetrics) RecordCycleFinished(duration time.Duration, failed bool) {
	m.cycleInFlight.Dec()
	m.cycleDuration.Observe(duration.Seconds())
	if failed {
		m.cyclesFailed.Inc()
	} else {
		m.cyclesCompleted.Inc()
	}
}

// RecordCycleSkipped отмечает отклонённую попытку параллельного цикла.
func (m *PipelineMetrics) RecordCycleSkipped() {
	m.cyclesSkipped.Inc()
}

// RecordOrdersProcessed увеличивает счётчик обработанных заказов категории.
func (m *PipelineMetrics) RecordOrdersProcessed(category string, count int) {
	m.ordersProcessed.WithLabelValues(category).Add(float64(count))
}

// RecordBatchWritten увеличивает счётчик записанных batch-файлов.
func (m *PipelineMetrics) RecordBatchWritten(category string) {
	m.batchesWritten.WithLabelValues(category).Inc()
}

// RecordLabelAcquired увеличивает счётчик полученных лейблов.
func (m *PipelineMetrics) RecordLabelAcquired() {
	m.labelsAcquired.Inc()
}

// RecordLabelFailed увеличивает счётчик неудачных попыток лейблов.
func (m *PipelineMetrics) RecordLabelFailed() {
	m.labelsFailed.Inc()
}

// RecordFilesUploaded увеличивает счётчик загруженных файлов.
func (m *PipelineMetrics) RecordFilesUploaded(count int) {
	m.filesUploaded.Add(float64(count))
}
