package notify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trivium-ecommerce/fulfillment/internal/config"
	"github.com/trivium-ecommerce/fulfillment/internal/domain"
	"github.com/trivium-ecommerce/fulfillment/internal/notify"
)

func sampleReport() domain.CycleReport {
	return domain.CycleReport{
		CycleID: "c-1",
		Trigger: domain.TriggerSlot,
		Accounts: []domain.AccountReport{
			{
				Account:      "Trivium",
				Processed:    12,
				FilesCreated: []string{"/data/batches/20251103/S-001.csv", "/data/batches/20251103/M-001.csv"},
				Success:      true,
			},
			{
				Account: "Secondary",
				Success: false,
				Error:   "token endpoint returned 401",
			},
		},
	}
}

func TestRenderSubject(t *testing.T) {
	got := notify.RenderSubject("Bol.com orders summary: [total_orders] orders need to be processed", sampleReport())
	assert.Equal(t, "Bol.com orders summary: 12 orders need to be processed", got)
}

func TestRenderBody(t *testing.T) {
	body := notify.RenderBody("Today, [total_orders] orders need to be processed.", sampleReport())

	assert.Contains(t, body, "Today, 12 orders need to be processed.")
	assert.Contains(t, body, "S-001.csv")
	assert.Contains(t, body, "M-001.csv")
	// В списке файлов только имена, без локальных путей.
	assert.NotContains(t, body, "/data/batches")
	assert.Contains(t, body, "Account Secondary failed: token endpoint returned 401")
}

func TestSend_DisabledIsNoop(t *testing.T) {
	m := notify.NewMailer(config.EmailConfig{Enabled: false}, nil)
	assert.NoError(t, m.Send(context.Background(), sampleReport()))
}

func TestSend_NoRecipientsIsNoop(t *testing.T) {
	m := notify.NewMailer(config.EmailConfig{Enabled: true}, nil)
	assert.NoError(t, m.Send(context.Background(), sampleReport()))
}
