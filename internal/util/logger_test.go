package util

import (
	"bytes"
	stdlog "log"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLevelFromVerbosity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		verbose int
		want    LogLevel
	}{
		{-3, ErrorLevel},
		{0, ErrorLevel},
		{1, ErrorLevel},
		{2, WarnLevel},
		{3, InfoLevel},
		{4, DebugLevel},
		{5, TraceLevel},
		{42, TraceLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFromVerbosity(tt.verbose), "verbose %d", tt.verbose)
	}
}

func TestToZerolog(t *testing.T) {
	t.Parallel()

	assert.Equal(t, zerolog.TraceLevel, toZerolog(TraceLevel))
	assert.Equal(t, zerolog.WarnLevel, toZerolog(WarnLevel))
	assert.Equal(t, zerolog.InfoLevel, toZerolog(LogLevel(99)), "unknown levels fall back to info")
}

func TestZerologWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := zerologWriter{logger: zerolog.New(&buf), level: zerolog.WarnLevel}
	stdlog.New(w, "", 0).Println("http: TLS handshake error  ")

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"message":"http: TLS handshake error"`)
}
