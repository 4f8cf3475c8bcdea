package logger

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestHandler_Simple(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewHandler(&buf, slog.LevelDebug, FormatSimple, false))

	l.With("agent", "weather").Info("Calling remote agent", "request_id", "r1")
	l.Debug("details")

	assert.Equal(t, "INFO Calling remote agent agent=weather request_id=r1\nDEBUG details\n", buf.String())
}

func TestHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewHandler(&buf, slog.LevelInfo, FormatSimple, false))

	l.WithGroup("call").Warn("slow", "ms", 1200)

	assert.Equal(t, "WARN slow call.ms=1200\n", buf.String())
}

func TestHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewHandler(&buf, slog.LevelWarn, FormatSimple, false))

	l.Info("hidden")
	l.Error("shown")

	assert.Equal(t, "ERROR shown\n", buf.String())
}

func TestHandler_VerboseAndColor(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewHandler(&buf, slog.LevelInfo, FormatVerbose, true))

	l.Info("hello")

	out := buf.String()
	assert.Contains(t, out, "\033[36mINFO\033[0m hello")
	assert.Regexp(t, `^\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2} `, out)
}

func TestHandler_CustomFormat(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewHandler(&buf, slog.LevelInfo, "text", false))

	l.Info("hello", "k", "v")

	assert.Contains(t, buf.String(), "msg=hello k=v")
}

func TestOpenLogFile(t *testing.T) {
	f, cleanup, err := OpenLogFile(filepath.Join(t.TempDir(), "a.log"))
	require.NoError(t, err)
	defer cleanup()

	_, err = f.WriteString("line\n")
	assert.NoError(t, err)

	_, _, err = OpenLogFile(filepath.Join(t.TempDir(), "missing", "a.log"))
	assert.Error(t, err)
}

func TestFromModule(t *testing.T) {
	pcs := make([]uintptr, 1)
	require.Equal(t, 1, runtime.Callers(1, pcs))
	assert.True(t, fromModule(pcs[0]))

	var outside uintptr
	strings.Map(func(r rune) rune {
		callers := make([]uintptr, 1)
		if runtime.Callers(2, callers) == 1 {
			outside = callers[0]
		}
		return r
	}, "x")
	require.NotZero(t, outside)
	assert.False(t, fromModule(outside))

	assert.False(t, fromModule(0))
}

func TestHandler_DropsForeignRecordsAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, slog.LevelInfo, FormatSimple, false)

	foreign := slog.NewRecord(time.Now(), slog.LevelInfo, "from a dependency", 0)
	require.NoError(t, h.Handle(context.Background(), foreign))
	assert.Empty(t, buf.String())

	slog.New(h).Info("from the module")
	assert.Equal(t, "INFO from the module\n", buf.String())
}
