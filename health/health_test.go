package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(name string, status Status) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) CheckResult {
		return CheckResult{Name: name, Status: status, Timestamp: time.Now()}
	})
}

func TestRegistry_Check(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"empty registry is healthy", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy wins over degraded", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry()
			for i, s := range tt.statuses {
				registry.Register(fixed(string(rune('a'+i)), s))
			}

			health := registry.Check(context.Background())
			assert.Equal(t, tt.want, health.Status)
			assert.Len(t, health.Checks, len(tt.statuses))
		})
	}
}

func TestRegistry_RegisterReplacesByName(t *testing.T) {
	registry := NewRegistry()
	registry.Register(fixed("broker", StatusUnhealthy))
	registry.Register(fixed("broker", StatusHealthy))

	health := registry.Check(context.Background())
	require.Len(t, health.Checks, 1)
	assert.Equal(t, StatusHealthy, health.Status)
}

func TestRegistry_CheckTimesOut(t *testing.T) {
	registry := NewRegistry()
	registry.Register(fixed("fast", StatusHealthy))
	registry.Register(NewCheckerFunc("stuck", func(ctx context.Context) CheckResult {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return CheckResult{Name: "stuck", Status: StatusHealthy}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	health := registry.Check(ctx)
	assert.Equal(t, StatusUnhealthy, health.Status)
	assert.Equal(t, "Check timed out", health.Checks["stuck"].Message)
}

func TestRegistry_Metadata(t *testing.T) {
	registry := NewRegistry()
	registry.SetMetadata("service", "paperless")

	health := registry.Check(context.Background())
	assert.Equal(t, "paperless", health.Metadata["service"])
}

func TestHandler(t *testing.T) {
	t.Run("healthy returns 200 with report", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(fixed("broker", StatusHealthy))
		rec := httptest.NewRecorder()

		NewHandler(registry, time.Second).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var body OverallHealth
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, StatusHealthy, body.Status)
		assert.Contains(t, body.Checks, "broker")
	})

	t.Run("degraded still returns 200", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(fixed("stream", StatusDegraded))
		rec := httptest.NewRecorder()

		NewHandler(registry, time.Second).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unhealthy returns 503", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(fixed("broker", StatusUnhealthy))
		rec := httptest.NewRecorder()

		NewHandler(registry, time.Second).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestReadinessHandler(t *testing.T) {
	registry := NewRegistry()
	registry.Register(fixed("stream", StatusDegraded))

	rec := httptest.NewRecorder()
	ReadinessHandler(registry)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())

	registry.Register(fixed("broker", StatusUnhealthy))
	rec = httptest.NewRecorder()
	ReadinessHandler(registry)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", rec.Body.String())
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", rec.Body.String())
}
