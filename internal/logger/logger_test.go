package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(level slog.Level) *bytes.Buffer {
	var buf bytes.Buffer
	log = New(NewJSONHandler(&buf, &slog.HandlerOptions{Level: level}))
	return &buf
}

func TestInit(t *testing.T) {
	Init()
	assert.NotNil(t, log)
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name string
		emit func()
		want string
	}{
		{"info", func() { Info("slot claimed", "slot_id", 42) }, "slot claimed"},
		{"warn", func() { Warn("directory miss", "code", "t-1") }, "directory miss"},
		{"error", func() { Error("claim failed") }, "claim failed"},
		{"debug", func() { Debug("cache hit") }, "cache hit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(slog.LevelDebug)
			tt.emit()
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestKeyValuePairsAppearInOutput(t *testing.T) {
	buf := capture(slog.LevelInfo)

	Info("booking created", "booking_id", 7, "user_id", "u-1")

	out := buf.String()
	assert.Contains(t, out, "booking_id")
	assert.Contains(t, out, "u-1")
}

func TestFormattedVariants(t *testing.T) {
	buf := capture(slog.LevelDebug)

	Infof("booking %d", 12)
	Errorf("slot %d gone", 99)
	Debugf("tz %s", "Asia/Shanghai")

	out := buf.String()
	assert.Contains(t, out, "booking 12")
	assert.Contains(t, out, "slot 99 gone")
	assert.Contains(t, out, "tz Asia/Shanghai")
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	buf := capture(slog.LevelInfo)

	Debug("should not appear")

	assert.Empty(t, buf.String())
}

func TestWithError(t *testing.T) {
	buf := capture(slog.LevelInfo)

	WithError(assert.AnError).Info("reschedule aborted")

	out := buf.String()
	assert.Contains(t, out, "reschedule aborted")
	assert.Contains(t, out, "error")
}

func TestWithFields(t *testing.T) {
	buf := capture(slog.LevelInfo)

	WithFields(map[string]interface{}{
		"therapist_code": "t-rivera",
		"slot_id":        123,
	}).Info("slot released")

	out := buf.String()
	assert.Contains(t, out, "slot released")
	assert.Contains(t, out, "therapist_code")
	assert.Contains(t, out, "t-rivera")
}
