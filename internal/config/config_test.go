package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivium-ecommerce/fulfillment/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "system_config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func testLogger() *log.Entry {
	l := log.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(log.ErrorLevel)
	return log.NewEntry(l)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg := config.Load(filepath.Join(t.TempDir(), "nope.json"), testLogger())

	assert.Equal(t, []string{"08:00", "15:01", "", ""}, cfg.Schedule.ProcessingTimes)
	assert.True(t, cfg.Schedule.Weekly.Monday)
	assert.False(t, cfg.Schedule.Weekly.Sunday)
	assert.False(t, cfg.Email.Enabled)
	assert.Empty(t, cfg.Accounts)
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `{
		"processing_times": ["09:30", "18:00"],
		"weekly_schedule": {
			"monday": true, "tuesday": true, "wednesday": true,
			"thursday": true, "friday": true, "saturday": true, "sunday": false
		},
		"last_updated": "2025-11-03T10:15:00Z",
		"email": {
			"enabled": true,
			"smtp_host": "smtp.example.com",
			"smtp_port": 587,
			"use_tls": true,
			"username": "mailer",
			"password": "secret",
			"from": "noreply@example.com",
			"recipients": ["ops@example.com"]
		},
		"ftp": {
			"host": "sftp.example.com",
			"port": 2222,
			"username": "uploader",
			"password": "secret",
			"remote_batch_dir": "/home/uploader/FTP/Batches",
			"remote_label_dir": "/home/uploader/FTP/Label"
		},
		"bol_accounts": [
			{"name": "Trivium", "client_id": "id-1", "client_secret": "sec-1", "active": true},
			{"name": "Secondary", "client_id": "id-2", "client_secret": "sec-2", "active": false}
		]
	}`)

	cfg := config.Load(path, testLogger())

	assert.Equal(t, []string{"09:30", "18:00", "", ""}, cfg.Schedule.ProcessingTimes)
	assert.Equal(t, []string{"09:30", "18:00"}, cfg.Schedule.Slots())
	assert.True(t, cfg.Schedule.Weekly.Saturday)
	assert.Equal(t, time.Date(2025, 11, 3, 10, 15, 0, 0, time.UTC), cfg.Schedule.LastUpdated)

	assert.True(t, cfg.Email.Enabled)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
	assert.Equal(t, []string{"ops@example.com"}, cfg.Email.Recipients)

	assert.Equal(t, "sftp.example.com", cfg.SFTP.Host)
	assert.Equal(t, 2222, cfg.SFTP.Port)
	assert.Equal(t, "/home/uploader/FTP/Batches", cfg.SFTP.RemoteBatchDir)

	require.Len(t, cfg.Accounts, 2)
	active := cfg.ActiveAccounts()
	require.Len(t, active, 1)
	assert.Equal(t, "Trivium", active[0].Name)
}

func TestLoad_BadFieldFallsBackToDefault(t *testing.T) {
	path := writeConfig(t, `{
		"processing_times": ["25:99", "08:00", "not-a-time", "12:30", "16:00"],
		"email": {"smtp_port": -1}
	}`)

	cfg := config.Load(path, testLogger())

	// Невалидные слоты гасятся, лишний пятый отбрасывается.
	assert.Equal(t, []string{"", "08:00", "", "12:30"}, cfg.Schedule.ProcessingTimes)
	assert.Equal(t, 465, cfg.Email.SMTPPort)
	// Недельное расписание не задано, действует дефолт.
	assert.True(t, cfg.Schedule.Weekly.Friday)
	assert.False(t, cfg.Schedule.Weekly.Saturday)
}

func TestLoad_AccountWithoutCredentialsSkipped(t *testing.T) {
	path := writeConfig(t, `{
		"bol_accounts": [
			{"name": "NoSecret", "client_id": "id-1", "active": true},
			{"name": "Good", "client_id": "id-2", "client_secret": "sec", "active": true}
		]
	}`)

	cfg := config.Load(path, testLogger())

	require.Len(t, cfg.Accounts, 1)
	assert.Equal(t, "Good", cfg.Accounts[0].Name)
}

func TestNormalizeTime(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"08:00", "08:00"},
		{" 8:05 ", "08:05"},
		{"23:59", "23:59"},
		{"24:00", ""},
		{"12:60", ""},
		{"abc", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, config.NormalizeTime(tc.in), "input %q", tc.in)
	}
}

func TestWeeklyScheduleEnabledOn(t *testing.T) {
	w := config.WeeklySchedule{Monday: true, Saturday: true}
	assert.True(t, w.EnabledOn(time.Monday))
	assert.True(t, w.EnabledOn(time.Saturday))
	assert.False(t, w.EnabledOn(time.Sunday))
	assert.False(t, w.EnabledOn(time.Wednesday))
}
