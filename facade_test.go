package xhermes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacade_UsesDefaultBus(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	b := newTestBus(t)
	SetDefault(b)
	assert.Same(t, b, Default())

	var c counter
	sub := Subscription{On("fooEvent", c.handler())}
	require.NoError(t, Subscribe("", sub))
	require.NoError(t, Subscribe("red", Subscription{On("fooEvent", c.handler())}))

	require.NoError(t, wait(t, Trigger(context.Background(), "fooEvent")))
	assert.EqualValues(t, 1, c.n.Load())

	Unsubscribe("", sub)
	require.NoError(t, wait(t, Trigger(context.Background(), "fooEvent")))
	assert.EqualValues(t, 1, c.n.Load())

	_, ok := GetBusline("red")
	assert.True(t, ok)
	Reset()
	_, ok = GetBusline("red")
	assert.True(t, ok)
	HardReset()
	_, ok = GetBusline("red")
	assert.False(t, ok)

	assert.Error(t, LoadSubscribers("facadetest/missing"))
	assert.Panics(t, func() { SetDefault(nil) })
}
