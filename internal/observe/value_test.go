package observe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSubscribeReceivesCurrentThenUpdates(t *testing.T) {
	v := NewValue("a")

	var got []string
	unsubscribe := v.Subscribe(func(s string) { got = append(got, s) })

	v.Set("b")
	v.Set("c")
	unsubscribe()
	v.Set("d")

	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, "d", v.Get())
}

func TestValueUnsubscribeTwice(t *testing.T) {
	v := NewValue(0)
	unsubscribe := v.Subscribe(func(int) {})
	unsubscribe()
	assert.NotPanics(t, unsubscribe)
}

func TestValueUpdate(t *testing.T) {
	v := NewValue(uint64(1))
	var last uint64
	v.Subscribe(func(n uint64) { last = n })

	got := v.Update(func(n uint64) uint64 { return n + 1 })

	assert.Equal(t, uint64(2), got)
	assert.Equal(t, uint64(2), last)
}

func TestChanKeepsNewest(t *testing.T) {
	v := NewValue(1)
	ch, stop := Chan(v)

	v.Set(2)
	v.Set(3)

	got, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, 3, got)

	stop()
	_, ok = <-ch
	assert.False(t, ok)

	// Updates after stop are ignored
	assert.NotPanics(t, func() { v.Set(4) })
}
