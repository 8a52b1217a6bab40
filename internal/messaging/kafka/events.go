package kafka

import (
	"time"

	"github.com/trivium-ecommerce/fulfillment/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	// События цикла обработки
	EventTypeCycleStarted   EventType = "cycle.started"
	EventTypeCycleCompleted EventType = "cycle.completed"
	EventTypeCycleFailed    EventType = "cycle.failed"
)

// Topics для Kafka
const (
	TopicCycleEvents = "fulfillment.cycle.events"
)

// CycleEvent представляет событие одного цикла обработки заказов
type CycleEvent struct {
	EventType      EventType              `json:"event_type"`
	CycleID        string                 `json:"cycle_id"`
	Trigger        string                 `json:"trigger"`
	Timestamp      time.Time              `json:"timestamp"`
	TotalProcessed int                    `json:"total_processed"`
	FilesCreated   []string               `json:"files_created,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// NewCycleStarted создает событие начала цикла
func NewCycleStarted(cycleID string, trigger domain.TriggerKind) *CycleEvent {
	return &CycleEvent{
		EventType: EventTypeCycleStarted,
		CycleID:   cycleID,
		Trigger:   string(trigger),
		Timestamp: time.Now(),
	}
}

// NewCycleCompleted создает событие завершения цикла по его отчету
func NewCycleCompleted(report domain.CycleReport) *CycleEvent {
	eventType := EventTypeCycleCompleted
	if report.HasFailures() {
		eventType = EventTypeCycleFailed
	}

	return &CycleEvent{
		EventType:      eventType,
		CycleID:        report.CycleID,
		Trigger:        string(report.Trigger),
		Timestamp:      time.Now(),
		TotalProcessed: report.TotalProcessed(),
		FilesCreated:   report.FilesCreated(),
	}
}
