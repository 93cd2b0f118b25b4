package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func up(ctx context.Context) error { return nil }

func TestChecker_AggregatesWorstStatus(t *testing.T) {
	c := NewChecker()
	c.RegisterPing("index", true, up)
	assert.Equal(t, StatusUp, c.Run(context.Background()).Status)

	c.RegisterPing("redis", false, func(ctx context.Context) error { return errors.New("conn refused") })
	report := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, "conn refused", report.Components["redis"].Message)

	c.RegisterPing("postgres", true, func(ctx context.Context) error { return errors.New("timeout") })
	assert.Equal(t, StatusDown, c.Run(context.Background()).Status)
	assert.Equal(t, []string{"index", "postgres", "redis"}, c.Names())
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.RegisterPing("redis", false, func(ctx context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusDegraded, report.Status)

	c.RegisterPing("index", true, func(ctx context.Context) error { return errors.New("no snapshot") })
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}
