package xhermes

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T, init ...func(*BusBuilder)) *Bus {
	t.Helper()
	bb := NewBusBuilder()
	for _, f := range init {
		f(bb)
	}
	b, err := bb.Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

// wait fails the test if the pass does not finish in time and returns its faults.
func wait(t *testing.T, c *Completion) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := c.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "trigger pass did not complete")
	return err
}

// recorder is an append-only shared log.
type recorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.entries = append(r.entries, s)
	r.mu.Unlock()
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *recorder) handler(tag string) HandlerFunc {
	return func(context.Context, ...any) error {
		r.add(tag)
		return nil
	}
}

type counter struct{ n atomic.Int64 }

func (c *counter) handler() HandlerFunc {
	return func(context.Context, ...any) error {
		c.n.Add(1)
		return nil
	}
}

func TestSubscribe_ReservedNamesRejected(t *testing.T) {
	b := newTestBus(t, func(bb *BusBuilder) { bb.WithReservedNames("internal") })
	var c counter

	for _, name := range append(append([]string{}, reservedNames...), "internal") {
		err := b.Subscribe(name, Subscription{On("fooEvent", c.handler())})
		require.Error(t, err, name)
		assert.ErrorIs(t, err, ErrInvalidBuslineName)

		var ibe *InvalidBuslineNameError
		require.ErrorAs(t, err, &ibe)
		assert.Equal(t, name, ibe.Name)
	}

	assert.Equal(t, []string{DefaultBusline}, b.Buslines())
	assert.False(t, b.HasEvent("fooEvent"))
	_, ok := b.Busline("subscribe")
	assert.False(t, ok)
}

func TestSubscribe_ReservedNamesAreCaseSensitive(t *testing.T) {
	b := newTestBus(t)
	var c counter

	require.NoError(t, b.Subscribe("Reset", Subscription{On("fooEvent", c.handler())}))
	_, ok := b.Busline("Reset")
	assert.True(t, ok)
}

func TestSubscribe_InvalidListenerRegistersNothing(t *testing.T) {
	b := newTestBus(t)
	var c counter

	err := b.Subscribe("red", Subscription{
		On("fooEvent", c.handler()),
		{Event: "barEvent", Role: RoleOn},
	})
	require.ErrorIs(t, err, ErrInvalidListener)

	_, ok := b.Busline("red")
	assert.False(t, ok)

	both := &Listener{
		Event:       "x",
		Handler:     c.handler(),
		SyncHandler: func(context.Context, Resolve, ...any) error { return nil },
	}
	assert.ErrorIs(t, b.Subscribe("", Subscription{both}), ErrInvalidListener)
	assert.ErrorIs(t, b.Subscribe("", Subscription{nil}), ErrInvalidListener)
}

func TestSubscribe_TriggerEntriesAreIdempotent(t *testing.T) {
	b := newTestBus(t)
	var c counter

	require.NoError(t, b.Subscribe("red", Subscription{On("fooEvent", c.handler())}))
	red, ok := b.Busline("red")
	require.True(t, ok)

	first, ok := red.Binding("triggerFooEvent")
	require.True(t, ok)

	require.NoError(t, b.Subscribe("red", Subscription{On("fooEvent", c.handler()), After("fooEvent", c.handler())}))
	assert.Equal(t, []string{"fooEvent"}, red.Events())
	assert.Equal(t, 3, red.Observers())

	// the binding published first keeps driving the same entry
	require.NoError(t, wait(t, first(context.Background())))
	assert.EqualValues(t, 3, c.n.Load())
}

func TestUnsubscribe_RemovesExactlyThoseObservers(t *testing.T) {
	b := newTestBus(t)
	var keep1, gone, keep2 counter

	l1 := On("fooEvent", keep1.handler())
	l2 := On("fooEvent", gone.handler())
	l3 := After("fooEvent", keep2.handler())
	require.NoError(t, b.Subscribe("", Subscription{l1, l2, l3}))

	require.NoError(t, wait(t, b.Trigger(context.Background(), "fooEvent")))
	b.Unsubscribe("", Subscription{l2})
	require.NoError(t, wait(t, b.Trigger(context.Background(), "fooEvent")))

	assert.EqualValues(t, 2, keep1.n.Load())
	assert.EqualValues(t, 1, gone.n.Load())
	assert.EqualValues(t, 2, keep2.n.Load())
	assert.True(t, b.HasEvent("fooEvent"), "trigger entry survives unsubscribe")
}

func TestUnsubscribe_LastObserverKeepsTrigger(t *testing.T) {
	b := newTestBus(t)
	var c counter
	sub := Subscription{On("fooEvent", c.handler())}
	require.NoError(t, b.Subscribe("red", sub))

	b.Unsubscribe("red", sub)
	red, _ := b.Busline("red")
	assert.True(t, red.HasEvent("fooEvent"))
	assert.Equal(t, 0, red.Observers())

	comp := red.Trigger(context.Background(), "fooEvent")
	require.NoError(t, wait(t, comp))
	assert.Equal(t, StatusCompleted, comp.Status())
	assert.Zero(t, c.n.Load())
}

func TestUnsubscribe_AbsentIsNoop(t *testing.T) {
	b := newTestBus(t)
	var c counter
	l := On("fooEvent", c.handler())

	assert.NotPanics(t, func() {
		b.Unsubscribe("nowhere", Subscription{l})
		b.Unsubscribe("", Subscription{l})
		b.Unsubscribe("", nil)
	})
}

func TestReset_ClearsOnlyDefaultBusline(t *testing.T) {
	b := newTestBus(t)
	var mainC, redC counter

	require.NoError(t, b.Subscribe("", Subscription{On("firstEvent", mainC.handler()), On("secondEvent", mainC.handler())}))
	require.NoError(t, b.Subscribe("red", Subscription{On("firstEvent", redC.handler())}))
	red, _ := b.Busline("red")
	oldBinding, ok := b.Main().Binding("triggerFirstEvent")
	require.True(t, ok)

	b.Reset()

	assert.False(t, b.HasEvent("firstEvent"))
	assert.False(t, b.HasEvent("secondEvent"))
	_, ok = b.Main().Binding("triggerFirstEvent")
	assert.False(t, ok)
	_, ok = b.Main().Binding("resolveSecondEvent")
	assert.False(t, ok)
	assert.Equal(t, 0, b.Main().Observers())

	comp := b.Trigger(context.Background(), "firstEvent")
	require.NoError(t, wait(t, comp))
	assert.Equal(t, StatusUnknownEvent, comp.Status())

	// a binding captured before the reset no longer reaches any observer
	comp = oldBinding(context.Background())
	require.NoError(t, wait(t, comp))
	assert.Equal(t, StatusUnknownEvent, comp.Status())
	assert.Zero(t, mainC.n.Load())

	// the red handle is untouched
	require.NoError(t, wait(t, red.Trigger(context.Background(), "firstEvent")))
	assert.EqualValues(t, 1, redC.n.Load())
	again, ok := b.Busline("red")
	require.True(t, ok)
	assert.Equal(t, red.ID(), again.ID())
}

func TestHardReset_DestroysEveryBusline(t *testing.T) {
	b := newTestBus(t)
	var c counter

	require.NoError(t, b.Subscribe("", Subscription{On("fooEvent", c.handler())}))
	require.NoError(t, b.Subscribe("green", Subscription{On("dummyEvent", c.handler())}))
	require.NoError(t, b.Subscribe("black", Subscription{On("dummyEvent", c.handler())}))
	green, _ := b.Busline("green")
	main := b.Main()

	b.HardReset()

	assert.Equal(t, []string{DefaultBusline}, b.Buslines())
	_, ok := b.Busline("green")
	assert.False(t, ok)
	_, ok = b.Busline("black")
	assert.False(t, ok)
	assert.True(t, green.Destroyed())

	comp := green.Trigger(context.Background(), "dummyEvent")
	require.NoError(t, wait(t, comp))
	assert.Equal(t, StatusUnknownBusline, comp.Status())

	assert.Same(t, main, b.Main())
	assert.False(t, b.Main().Destroyed())
	assert.Empty(t, b.Main().Events())
	assert.Zero(t, c.n.Load())
}

func TestHardReset_RenewsDefaultBuslineID(t *testing.T) {
	b := newTestBus(t)
	main := b.Main()
	id := main.ID()
	require.NotEmpty(t, id)

	b.Reset()
	assert.Equal(t, id, main.ID(), "soft reset keeps the identity")

	var c counter
	require.NoError(t, b.Subscribe("", Subscription{On("fooEvent", c.handler())}))
	b.HardReset()

	assert.NotEqual(t, id, main.ID())
	assert.Same(t, main, b.Main())
	assert.Equal(t, main.ID(), b.Main().ID())
	assert.False(t, main.Destroyed())
	assert.False(t, main.HasEvent("fooEvent"))
}

func TestDestroy(t *testing.T) {
	b := newTestBus(t)
	var c counter
	require.NoError(t, b.Subscribe("red", Subscription{On("fooEvent", c.handler())}))
	red, _ := b.Busline("red")

	require.NoError(t, red.Destroy())
	assert.ErrorIs(t, red.Destroy(), ErrUnknownBusline)
	assert.ErrorIs(t, b.Main().Destroy(), ErrDefaultBusline)

	_, ok := b.Busline("red")
	assert.False(t, ok)
	assert.False(t, red.HasEvent("fooEvent"))
	assert.Nil(t, red.Events())
	assert.ErrorIs(t, red.Enable("fooEvent"), ErrUnknownBusline)
	assert.ErrorIs(t, red.Disable("fooEvent"), ErrUnknownBusline)
	_, ok = red.Binding("triggerFooEvent")
	assert.False(t, ok)

	comp := red.Trigger(context.Background(), "fooEvent")
	require.NoError(t, wait(t, comp))
	assert.Equal(t, StatusUnknownBusline, comp.Status())
	assert.Zero(t, c.n.Load())
}

func TestDestroy_ResubscribeCreatesFreshBusline(t *testing.T) {
	b := newTestBus(t)
	var oldC, newC counter
	require.NoError(t, b.Subscribe("green", Subscription{On("dummyEvent", oldC.handler())}))
	old, _ := b.Busline("green")
	require.NoError(t, old.Disable("dummyEvent"))
	require.NoError(t, old.Destroy())

	require.NoError(t, b.Subscribe("green", Subscription{On("dummyEvent", newC.handler())}))
	fresh, ok := b.Busline("green")
	require.True(t, ok)
	assert.NotEqual(t, old.ID(), fresh.ID())
	assert.Equal(t, 1, fresh.Observers())

	// activation state is not inherited
	comp := fresh.Trigger(context.Background(), "dummyEvent")
	require.NoError(t, wait(t, comp))
	assert.Equal(t, StatusCompleted, comp.Status())
	assert.EqualValues(t, 1, newC.n.Load())
	assert.Zero(t, oldC.n.Load())

	assert.True(t, old.Destroyed())
	assert.ErrorIs(t, old.Enable("dummyEvent"), ErrUnknownBusline)
}

func TestEnableDisable_UnknownEvent(t *testing.T) {
	b := newTestBus(t)
	assert.ErrorIs(t, b.Enable("nope"), ErrUnknownEvent)
	assert.ErrorIs(t, b.Disable("nope"), ErrUnknownEvent)
}

func TestBuses_AreIndependent(t *testing.T) {
	b1 := newTestBus(t)
	b2 := newTestBus(t)
	var c counter
	require.NoError(t, b1.Subscribe("red", Subscription{On("fooEvent", c.handler())}))

	_, ok := b2.Busline("red")
	assert.False(t, ok)
	comp := b2.Trigger(context.Background(), "fooEvent")
	require.NoError(t, wait(t, comp))
	assert.Equal(t, StatusUnknownEvent, comp.Status())

	b2.HardReset()
	_, ok = b1.Busline("red")
	assert.True(t, ok)
}

func TestClose(t *testing.T) {
	b := newTestBus(t, func(bb *BusBuilder) { bb.WithProbePool(2, 16) })
	var c counter
	require.NoError(t, b.Subscribe("", Subscription{On("fooEvent", c.handler())}))

	require.NoError(t, b.Close(context.Background()))
	require.NoError(t, b.Close(context.Background()))

	assert.ErrorIs(t, b.Subscribe("", Subscription{On("fooEvent", c.handler())}), ErrBusClosed)

	comp := b.Trigger(context.Background(), "fooEvent")
	err := wait(t, comp)
	assert.ErrorIs(t, err, ErrBusClosed)
	assert.Equal(t, StatusClosed, comp.Status())
	assert.Zero(t, c.n.Load())

	assert.Equal(t, "unhealthy", b.Health(context.Background()).Status)
}

func TestMetricsAndHealth(t *testing.T) {
	b := newTestBus(t)
	var c counter
	require.NoError(t, b.Subscribe("", Subscription{
		On("okEvent", c.handler()),
		On("badEvent", func(context.Context, ...any) error { return errors.New("boom") }),
	}))

	require.NoError(t, wait(t, b.Trigger(context.Background(), "okEvent")))
	require.Error(t, wait(t, b.Trigger(context.Background(), "badEvent")))
	require.NoError(t, wait(t, b.Trigger(context.Background(), "missingEvent")))
	require.NoError(t, b.Disable("okEvent"))
	require.NoError(t, wait(t, b.Trigger(context.Background(), "okEvent")))

	m := b.GetMetrics()
	assert.EqualValues(t, 2, m.Triggered)
	assert.EqualValues(t, 2, m.Completed)
	assert.EqualValues(t, 1, m.UnknownEvents)
	assert.EqualValues(t, 1, m.InactiveEvents)
	assert.EqualValues(t, 2, m.ObserversInvoked)
	assert.EqualValues(t, 1, m.Faults)
	assert.Equal(t, 1, m.Buslines)

	// one fault out of two invocations
	assert.Equal(t, "degraded", b.Health(context.Background()).Status)
}
