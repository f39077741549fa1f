package logging

import (
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *Logger {
	return &Logger{
		level:   DEBUG,
		logger:  log.New(io.Discard, "", 0),
		maxSize: maxLogSize,
	}
}

func TestWriterPreservesFormatVerbs(t *testing.T) {
	l := newTestLogger()
	var lines []string
	l.SetSink(func(_ int, line string) { lines = append(lines, line) })

	w := &logWriter{logger: l}
	payload := "minified bundle.js: 50%d smaller than %s baseline"
	n, err := w.Write([]byte(payload))

	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	require.Len(t, lines, 1)
	assert.Equal(t, payload, lines[0])
}

func TestCurrentSinkRoundTrip(t *testing.T) {
	l := newTestLogger()
	var lines []string
	l.SetSink(func(_ int, line string) { lines = append(lines, line) })

	prev := l.CurrentSink()
	l.SetSink(func(int, string) {})
	l.SetSink(prev)

	l.Info("run %s started", "abc123")
	require.Len(t, lines, 1)
	assert.Equal(t, "run abc123 started", lines[0])
}
