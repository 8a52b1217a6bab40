package sftpsink_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivium-ecommerce/fulfillment/internal/config"
	"github.com/trivium-ecommerce/fulfillment/internal/domain"
	"github.com/trivium-ecommerce/fulfillment/internal/transport/sftpsink"
)

func TestUpload_EmptyListIsNoop(t *testing.T) {
	// Хост не задан: любая попытка соединения провалилась бы.
	s := sftpsink.NewSink(config.SFTPConfig{}, nil)

	assert.NoError(t, s.UploadBatches(context.Background(), nil))
	assert.NoError(t, s.UploadLabels(context.Background(), nil))
}

func TestUpload_ConnectFailureIsDeliveryError(t *testing.T) {
	s := sftpsink.NewSink(config.SFTPConfig{
		Host:     "127.0.0.1",
		Port:     1, // закрытый порт
		Username: "u",
		Password: "p",
	}, nil)

	local := filepath.Join(t.TempDir(), "S-001.csv")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0o644))

	err := s.UploadBatches(context.Background(), []string{local})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDeliveryFailed)
}
