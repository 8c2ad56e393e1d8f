package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatusError struct {
	status int
	body   string
}

func (e fakeStatusError) Error() string        { return fmt.Sprintf("status %d", e.status) }
func (e fakeStatusError) StatusCode() int      { return e.status }
func (e fakeStatusError) ResponseBody() string { return e.body }

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestNewLogger_AddsRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "json", slog.LevelInfo)

	ctx := WithRunID(context.Background(), "run-123")
	logger.InfoContext(ctx, "hello")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "run-123", recs[0]["run_id"])
	assert.Equal(t, "hello", recs[0]["msg"])
}

func TestSeedLogger_LogFailureIncludesStatusAndBody(t *testing.T) {
	var buf bytes.Buffer
	l := NewSeedLogger("users", NewLogger(&buf, "json", slog.LevelInfo))

	err := fmt.Errorf("create user: %w", fakeStatusError{status: 409, body: `{"error":"duplicate"}`})
	l.LogFailure(context.Background(), err, map[string]any{"email": "jeon.jungkook@demo.com"})

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "ERROR", recs[0]["level"])
	assert.Equal(t, "users", recs[0]["resource"])
	assert.Equal(t, float64(409), recs[0]["status"])
	assert.Equal(t, `{"error":"duplicate"}`, recs[0]["body"])
	assert.Equal(t, "jeon.jungkook@demo.com", recs[0]["email"])
}

func TestSeedLogger_LogFailureWithoutStatus(t *testing.T) {
	var buf bytes.Buffer
	l := NewSeedLogger("products", NewLogger(&buf, "json", slog.LevelInfo))

	l.LogFailure(context.Background(), errors.New("connection refused"), nil)

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.NotContains(t, recs[0], "status")
	assert.Equal(t, "connection refused", recs[0]["error"])
}

func TestSeedLogger_DebugCreatesHiddenAtInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewSeedLogger("products", NewLogger(&buf, "json", slog.LevelInfo))

	l.LogCreateDebug(context.Background(), map[string]any{"id": "1"})
	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestObserveRequest_CountsOutcomes(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("categories", OutcomeFailure))

	ObserveRequest("categories", errors.New("boom"), time.Now())
	ObserveRequest("categories", nil, time.Now())

	after := testutil.ToFloat64(RequestsTotal.WithLabelValues("categories", OutcomeFailure))
	assert.Equal(t, before+1, after)
}

func TestWriteMetricsFile(t *testing.T) {
	ObserveRequest("users", nil, time.Now())

	path := filepath.Join(t.TempDir(), "storeseed.prom")
	require.NoError(t, WriteMetricsFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "storeseed_requests_total")
	assert.Contains(t, string(data), "storeseed_last_run_timestamp_seconds")
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "storeseed-test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	span, ctx := StartStage(context.Background(), "users")
	defer span.End()
	assert.NotNil(t, ctx)
}
