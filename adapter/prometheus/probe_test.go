package prometheus

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trickstertwo/xhermes"
)

func TestProbe_CountsPasses(t *testing.T) {
	reg := prometheus.NewRegistry()
	probe := NewProbe(reg)

	bus, closeFn, err := xhermes.New(func(b *xhermes.BusBuilder) { b.WithProbe(probe) })
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, bus.Subscribe("orders", xhermes.Subscription{
		xhermes.On("placeEvent", func(context.Context, ...any) error { return nil }),
		xhermes.After("placeEvent", func(context.Context, ...any) error { return errors.New("boom") }),
	}))
	orders, _ := bus.Busline("orders")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for range 2 {
		require.Error(t, orders.Trigger(ctx, "placeEvent").Wait(ctx))
	}
	require.NoError(t, orders.Trigger(ctx, "missingEvent").Wait(ctx))
	require.NoError(t, orders.Disable("placeEvent"))
	require.NoError(t, orders.Trigger(ctx, "placeEvent").Wait(ctx))
	require.NoError(t, orders.Destroy())
	bus.HardReset()

	// trigger_done is delivered just after the completion resolves
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(probe.TriggersCounter("orders", "placeEvent", xhermes.StatusCompleted)) == 2
	}, time.Second, 5*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(probe.FaultsCounter("orders", "placeEvent", xhermes.RoleAfter)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(probe.TriggersCounter("orders", "missingEvent", xhermes.StatusUnknownEvent)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(probe.TriggersCounter("orders", "placeEvent", xhermes.StatusInactive)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(probe.created), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(probe.destroyed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(probe.resets.WithLabelValues("hard_reset")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(probe.resets.WithLabelValues("reset")), 0)
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	probe := NewProbe(reg)
	probe.OnSignal(xhermes.Signal{Type: xhermes.SignalObserverFault, Busline: "main", Event: "fooEvent", Role: xhermes.RoleOn})

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "xhermes_observer_faults_total"), body)
}

func TestNewProbe_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewProbe(reg)
	assert.Panics(t, func() { NewProbe(reg) })
}
