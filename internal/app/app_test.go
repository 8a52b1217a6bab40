package app

import (
	"testing"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivium-ecommerce/fulfillment/internal/domain"
)

func TestOnceOutcome_PartialFailureIsNotFatal(t *testing.T) {
	logger, hook := logtest.NewNullLogger()

	report := domain.CycleReport{Accounts: []domain.AccountReport{
		{Account: "Trivium", Success: true, Processed: 2},
		{Account: "Second", Success: false, Error: "order source unavailable"},
	}}

	// Частичный успех не должен превращаться в ненулевой код выхода.
	assert.NoError(t, onceOutcome(report, logger.WithField("component", "app")))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.WarnLevel, entry.Level)
	assert.Equal(t, "cycle finished with account failures", entry.Message)
	assert.Equal(t, 2, entry.Data["processed"])
}

func TestOnceOutcome_CleanCycleIsSilent(t *testing.T) {
	logger, hook := logtest.NewNullLogger()

	report := domain.CycleReport{Accounts: []domain.AccountReport{
		{Account: "Trivium", Success: true, Processed: 1},
	}}

	assert.NoError(t, onceOutcome(report, logger.WithField("component", "app")))
	assert.Nil(t, hook.LastEntry())
}
