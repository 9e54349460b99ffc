package health_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engage/internal/gateway"
	"engage/internal/platform/health"
	"engage/pkg/testutil"
)

func ok(context.Context) error { return nil }

func down(context.Context) error { return errors.New("connection refused") }

func TestReadyTriState(t *testing.T) {
	t.Run("skipped probes do not fail readiness", func(t *testing.T) {
		c := health.NewChecker(time.Second,
			health.Probe{Name: "redis"},
			health.Probe{Name: "postgres", Check: ok},
		)
		report := c.Ready(context.Background())
		assert.Equal(t, health.StatusOK, report.Status)
		assert.Equal(t, health.StatusSkipped, report.Checks["redis"].Status)
		assert.Equal(t, health.StatusOK, report.Checks["postgres"].Status)
	})

	t.Run("one failing probe makes the report unavailable", func(t *testing.T) {
		c := health.NewChecker(time.Second,
			health.Probe{Name: "redis", Check: down},
			health.Probe{Name: "postgres", Check: ok},
		)
		report := c.Ready(context.Background())
		assert.Equal(t, health.StatusUnavailable, report.Status)
		assert.Equal(t, "connection refused", report.Checks["redis"].Error)
		assert.Equal(t, []string{"redis"}, report.Failing())
	})

	t.Run("slow probes time out", func(t *testing.T) {
		c := health.NewChecker(20*time.Millisecond, health.Probe{Name: "slow", Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}})
		report := c.Ready(context.Background())
		assert.Equal(t, health.StatusUnavailable, report.Checks["slow"].Status)
	})
}

func TestRoutes(t *testing.T) {
	router := chi.NewRouter()
	gw := gateway.New(router)
	gw.RegisterRoutes(health.NewChecker(time.Second, health.Probe{Name: "redis", Check: down}).Routes()...)

	live := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/health/live"))
	testutil.AssertStatusOK(t, live)

	ready := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/health/ready"))
	testutil.AssertStatusAndError(t, ready, http.StatusServiceUnavailable, "service_unavailable")
	env := testutil.UnmarshalEnvelope(t, ready)
	require.NotNil(t, env.Error)
	assert.Equal(t, "unavailable: redis", env.Message)
}
