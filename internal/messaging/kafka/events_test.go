package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trivium-ecommerce/fulfillment/internal/domain"
)

func TestNewCycleCompleted(t *testing.T) {
	report := domain.CycleReport{
		CycleID: "c-42",
		Trigger: domain.TriggerTick,
		Accounts: []domain.AccountReport{
			{Account: "Trivium", Processed: 3, FilesCreated: []string{"S-001.csv"}, Success: true},
		},
	}

	event := NewCycleCompleted(report)

	assert.Equal(t, EventTypeCycleCompleted, event.EventType)
	assert.Equal(t, "c-42", event.CycleID)
	assert.Equal(t, "tick", event.Trigger)
	assert.Equal(t, 3, event.TotalProcessed)
	assert.Equal(t, []string{"S-001.csv"}, event.FilesCreated)
}

func TestNewCycleCompleted_FailureBecomesFailedEvent(t *testing.T) {
	report := domain.CycleReport{
		CycleID:  "c-43",
		Trigger:  domain.TriggerSlot,
		Accounts: []domain.AccountReport{{Account: "Trivium", Success: false, Error: "boom"}},
	}

	assert.Equal(t, EventTypeCycleFailed, NewCycleCompleted(report).EventType)
}
