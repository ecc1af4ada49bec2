package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture routes log output to a buffer until the test ends.
func capture(t *testing.T, lvl, format string) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.RLock()
	prev := cur
	mu.RUnlock()
	prevLevel := level.Level()

	InitWithWriter(buf, lvl, format, false)
	t.Cleanup(func() {
		mu.Lock()
		cur = prev
		rebuild()
		mu.Unlock()
		level.Set(prevLevel)
	})
	return buf
}

func lines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"DEBUG", []string{"debug", "info", "warn", "error"}},
		{"INFO", []string{"info", "warn", "error"}},
		{"warn", []string{"warn", "error"}},
		{"ERROR", []string{"error"}},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := capture(t, tt.level, FormatText)

			Debug("debug")
			Info("info")
			Warn("warn")
			Error("error")

			got := lines(buf)
			require.Len(t, got, len(tt.want))
			for i, msg := range tt.want {
				assert.True(t, strings.HasSuffix(got[i], " "+msg), got[i])
			}
		})
	}
}

func TestSetLevelIgnoresUnknown(t *testing.T) {
	buf := capture(t, "INFO", FormatText)

	SetLevel("verbose")
	assert.Equal(t, slog.LevelInfo, Level())
	Debug("hidden")
	Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("Warning")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelWarn, l)

	_, ok = ParseLevel("trace")
	assert.False(t, ok)
}

func TestTextFormat(t *testing.T) {
	buf := capture(t, "INFO", FormatText)

	Info("folder created",
		KeyFolderID, "abc",
		KeyName, "Work Documents",
		KeySize, int64(42),
		KeyDurationMs, 1.5,
		"ok", true)

	line := lines(buf)[0]
	stamp, rest, found := strings.Cut(line, " ")
	require.True(t, found)
	_, err := time.Parse(time.RFC3339Nano, stamp)
	require.NoError(t, err, "line must start with an RFC3339 timestamp")

	assert.Equal(t, `INFO  folder created folder_id=abc name="Work Documents" size=42 duration_ms=1.500 ok=true`, rest)
}

func TestTextFormatQuoting(t *testing.T) {
	buf := capture(t, "INFO", FormatText)

	Info("m", "a", "value=with=equals", "b", "", "c", "line\nbreak", "d", errors.New("disk full"))

	out := buf.String()
	assert.Contains(t, out, "a=value=with=equals")
	assert.Contains(t, out, `b=""`)
	assert.Contains(t, out, `c="line\nbreak"`)
	assert.Contains(t, out, `d="disk full"`)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestTextFormatGroupsAndBoundAttrs(t *testing.T) {
	buf := capture(t, "INFO", FormatText)

	With(KeyStoreType, "badger").WithGroup("tx").Info("commit", "retries", 2, slog.Group("stats", "keys", 3))

	assert.Contains(t, buf.String(), "commit store_type=badger tx.retries=2 tx.stats.keys=3")
}

func TestTextFormatColor(t *testing.T) {
	buf := new(bytes.Buffer)
	h := NewColorTextHandler(buf, nil, true)
	slog.New(h).Warn("careful", "k", "v")

	out := buf.String()
	assert.Contains(t, out, ansiYellow+"WARN "+ansiReset)
	assert.Contains(t, out, ansiCyan+"k"+ansiReset+"=v")
}

func TestErrAttr(t *testing.T) {
	buf := capture(t, "INFO", FormatText)

	Info("no error", Err(nil))
	Info("failed", Err(errors.New("boom")))

	got := lines(buf)
	assert.NotContains(t, got[0], KeyError+"=")
	assert.True(t, strings.HasSuffix(got[1], "failed error=boom"), got[1])
}

func TestJSONFormat(t *testing.T) {
	buf := capture(t, "DEBUG", FormatJSON)

	Debug("listing", KeyFolders, 2, KeyFiles, 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "listing", rec["msg"])
	assert.Equal(t, float64(2), rec[KeyFolders])
	assert.Contains(t, rec, "time")
}

func TestSetFormat(t *testing.T) {
	buf := capture(t, "INFO", FormatText)

	SetFormat("JSON")
	Info("as json")
	SetFormat("xml")
	Info("still json")
	SetFormat(FormatText)
	Info("as text")

	got := lines(buf)
	require.Len(t, got, 3)
	assert.True(t, json.Valid([]byte(got[0])))
	assert.True(t, json.Valid([]byte(got[1])))
	assert.False(t, json.Valid([]byte(got[2])))
}

func TestContextFields(t *testing.T) {
	buf := capture(t, "DEBUG", FormatJSON)

	lc := NewLogContext("req-1", "10.0.0.1").
		WithTrace("trace-1", "span-1").
		WithUser("user-1").
		WithOperation("createFolder")
	ctx := WithContext(context.Background(), lc)

	InfoCtx(ctx, "done", KeyFolderID, "f1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "trace-1", rec[KeyTraceID])
	assert.Equal(t, "span-1", rec[KeySpanID])
	assert.Equal(t, "req-1", rec[KeyRequestID])
	assert.Equal(t, "10.0.0.1", rec[KeyClientIP])
	assert.Equal(t, "user-1", rec[KeyUserID])
	assert.Equal(t, "createFolder", rec[KeyOperation])
	assert.Equal(t, "f1", rec[KeyFolderID])
}

func TestContextFieldsOrderInText(t *testing.T) {
	buf := capture(t, "INFO", FormatText)

	ctx := WithContext(context.Background(), &LogContext{RequestID: "req-9"})
	WarnCtx(ctx, "slow", KeyDurationMs, 2.0)

	assert.Contains(t, buf.String(), "slow request_id=req-9 duration_ms=2.000")
}

func TestCtxVariantsWithoutLogContext(t *testing.T) {
	buf := capture(t, "DEBUG", FormatText)

	//nolint:staticcheck // nil context is tolerated
	DebugCtx(nil, "nil ctx")
	ErrorCtx(context.Background(), "plain ctx")

	out := buf.String()
	assert.Contains(t, out, "nil ctx")
	assert.Contains(t, out, "plain ctx")
	assert.NotContains(t, out, KeyRequestID)
}

func TestLogContext(t *testing.T) {
	base := NewLogContext("req-1", "192.168.1.100")
	assert.False(t, base.StartTime.IsZero())

	withOp := base.WithOperation("moveFolder")
	assert.Equal(t, "moveFolder", withOp.Operation)
	assert.Empty(t, base.Operation, "derived copies must not mutate the original")

	var missing *LogContext
	assert.Nil(t, missing.Clone())
	assert.Nil(t, missing.WithUser("u"))
	assert.Zero(t, missing.DurationMs())
	assert.GreaterOrEqual(t, base.DurationMs(), 0.0)

	assert.Nil(t, FromContext(context.Background()))
	//nolint:staticcheck // nil context is tolerated
	assert.Nil(t, FromContext(nil))
}

func TestConcurrentLogging(t *testing.T) {
	buf := new(bytes.Buffer)
	var bufMu sync.Mutex
	capture(t, "INFO", FormatText)
	InitWithWriter(writerFunc(func(p []byte) (int, error) {
		bufMu.Lock()
		defer bufMu.Unlock()
		return buf.Write(p)
	}), "INFO", FormatText, false)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Info("tick", "worker", i, "n", j)
				if j%10 == 0 {
					SetLevel("DEBUG")
					SetLevel("INFO")
				}
			}
		}(i)
	}
	wg.Wait()

	bufMu.Lock()
	defer bufMu.Unlock()
	assert.Len(t, lines(buf), 400)
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func TestInitWithFile(t *testing.T) {
	capture(t, "INFO", FormatText)
	path := filepath.Join(t.TempDir(), "dittodrive.log")

	require.NoError(t, Init(Config{Level: "INFO", Format: FormatJSON, Output: path}))
	Info("written to file")
	require.NoError(t, Init(Config{Output: "stderr"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(bytes.TrimSpace(data)))
	assert.Contains(t, string(data), "written to file")
}

func TestInitBadPath(t *testing.T) {
	capture(t, "INFO", FormatText)
	err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open log file")
}

func TestInitEmptyConfig(t *testing.T) {
	capture(t, "WARN", FormatText)
	require.NoError(t, Init(Config{}))
	assert.Equal(t, slog.LevelWarn, Level())
}

func BenchmarkLogDisabled(b *testing.B) {
	InitWithWriter(new(bytes.Buffer), "ERROR", FormatText, false)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Debug("test message", "key", "value")
	}
}

func BenchmarkLogCtx(b *testing.B) {
	InitWithWriter(new(bytes.Buffer), "DEBUG", FormatJSON, false)
	ctx := WithContext(context.Background(), &LogContext{
		TraceID:   "abc123",
		RequestID: "req-1",
		Operation: "listFolderContents",
	})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		InfoCtx(ctx, "test message", "count", i)
	}
}
