package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTextLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logrusLogger := logrus.New()
	logrusLogger.SetOutput(&buf)
	logrusLogger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    true,
	})
	logrusLogger.SetLevel(logrus.DebugLevel)
	return logrusLogger, &buf
}

func TestLogrusAdapter_Creation(t *testing.T) {
	entry := logrus.NewEntry(logrus.New())

	adapter := NewLogrusAdapter(entry)
	require.NotNil(t, adapter)

	logrusAdapter, ok := adapter.(*LogrusAdapter)
	require.True(t, ok)
	assert.Equal(t, entry, logrusAdapter.entry)
}

func TestLogrusAdapter_Fields(t *testing.T) {
	logrusLogger, buf := newBufferedLogger()
	adapter := NewLogrusAdapter(logrus.NewEntry(logrusLogger))

	adapter.WithField("request_id", "req-123").
		WithFields(map[string]interface{}{
			"stream_id":       uint64(0),
			"target_sequence": uint32(86280),
		}).
		WithError(errors.New("no fragment header")).
		Info("chained logging test")

	output := buf.String()
	assert.Contains(t, output, `"request_id":"req-123"`)
	assert.Contains(t, output, `"stream_id":0`)
	assert.Contains(t, output, `"target_sequence":86280`)
	assert.Contains(t, output, "no fragment header")
	assert.Contains(t, output, "chained logging test")
}

func TestLogrusAdapter_LogLevels(t *testing.T) {
	logrusLogger, buf := newTextLogger()
	adapter := NewLogrusAdapter(logrus.NewEntry(logrusLogger))

	tests := []struct {
		name     string
		log      func()
		expected string
	}{
		{"Debug", func() { adapter.Debug("debug message") }, "level=debug"},
		{"Info", func() { adapter.Info("info message") }, "level=info"},
		{"Warn", func() { adapter.Warn("warn message") }, "level=warning"},
		{"Error", func() { adapter.Error("error message") }, "level=error"},
		{"Log", func() { adapter.Log(logrus.WarnLevel, "log message") }, "level=warning"},
		{"Debugf", func() { adapter.Debugf("chunk %d", 20) }, `msg="chunk 20"`},
		{"Infof", func() { adapter.Infof("stream %d", 2) }, `msg="stream 2"`},
		{"Warnf", func() { adapter.Warnf("retry %s", "origin") }, `msg="retry origin"`},
		{"Errorf", func() { adapter.Errorf("status %d", 502) }, `msg="status 502"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.log()
			assert.Contains(t, buf.String(), tt.expected)
		})
	}
}

func TestLogrusAdapter_Fatal(t *testing.T) {
	logrusLogger, buf := newTextLogger()

	exitCode := -1
	logrusLogger.ExitFunc = func(code int) { exitCode = code }

	NewLogrusAdapter(logrus.NewEntry(logrusLogger)).Fatal("fatal error occurred")

	output := buf.String()
	assert.Contains(t, output, "level=fatal")
	assert.Contains(t, output, "fatal error occurred")
	assert.Equal(t, 1, exitCode)
}

func TestLogrusAdapter_ImmutableChaining(t *testing.T) {
	logrusLogger, buf := newBufferedLogger()
	adapter := NewLogrusAdapter(logrus.NewEntry(logrusLogger))

	first := adapter.WithField("step", 1)
	second := adapter.WithField("step", 2)

	buf.Reset()
	first.Info("first step")
	assert.Contains(t, buf.String(), `"step":1`)

	buf.Reset()
	second.Info("second step")
	assert.Contains(t, buf.String(), `"step":2`)

	buf.Reset()
	adapter.Info("original")
	assert.NotContains(t, buf.String(), "step")
}

func TestNullLogger(t *testing.T) {
	log := NewNullLogger()
	assert.Same(t, log, log.WithField("k", "v"))
	assert.Same(t, log, log.WithFields(map[string]interface{}{"k": "v"}))
	assert.Same(t, log, log.WithError(errors.New("x")))

	assert.NotPanics(t, func() {
		log.Info("discarded")
		log.Fatal("does not exit")
	})
}
