package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aa-tracker/aa-tracker/internal/config"
	"github.com/aa-tracker/aa-tracker/internal/initdata"
)

func TestHealthURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"0.0.0.0:8080", "http://127.0.0.1:8080/health"},
		{":8080", "http://127.0.0.1:8080/health"},
		{"[::]:8080", "http://127.0.0.1:8080/health"},
		{"10.0.0.5:9000", "http://10.0.0.5:9000/health"},
		{"localhost", "http://localhost/health"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, healthURL(tt.addr, "/health"), tt.addr)
	}
}

func TestSignedInitData_Verifies(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	raw, err := signedInitData("123:abc", 42, "alice", "Alice", 0, now)
	require.NoError(t, err)

	v, err := initdata.NewVerifier("123:abc", initdata.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	fields, err := initdata.Parse(raw)
	require.NoError(t, err)
	fields, err = v.Verify(fields)
	require.NoError(t, err)

	id, err := initdata.ExtractIdentity(fields)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id.ID)
	assert.Equal(t, "alice", *id.Username)
	assert.Equal(t, "Alice", *id.FirstName)
	assert.Equal(t, "1700000000", fields[initdata.FieldAuthDate])
}

func TestSignedInitData_Validation(t *testing.T) {
	_, err := signedInitData("", 42, "", "", 0, time.Now())
	assert.Error(t, err)

	_, err = signedInitData("123:abc", 0, "", "", 0, time.Now())
	assert.Error(t, err)
}

func TestRedactTarget(t *testing.T) {
	assert.Equal(t, "./data/aa-tracker.db", redactTarget("./data/aa-tracker.db"))
	assert.Equal(t, "postgres://user:xxxxx@db/tasks", redactTarget("postgres://user:secret@db/tasks"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Debug("hidden")
	logger.With("component", "test").Info("shown", "n", 1)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "test", line["component"])
}

func TestColorHandler(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "warn"}, &buf)

	logger.Info("dropped")
	logger.With("component", "store").WithGroup("req").Warn("slow query", "ms", 12)

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "WRN slow query")
	assert.Contains(t, out, "component=store")
	assert.Contains(t, out, "req.ms=12")
}
