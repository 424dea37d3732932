package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := New[string]()
	a := b.Subscribe()
	c := b.Subscribe()
	require.Equal(t, 2, b.Subscribers())

	b.Publish("run")
	assert.Equal(t, "run", <-a)
	assert.Equal(t, "run", <-c)

	b.Unsubscribe(a)
	_, ok := <-a
	assert.False(t, ok)
	assert.Equal(t, 1, b.Subscribers())
}

func TestBus_DropsWhenFull(t *testing.T) {
	b := New[int]()
	ch := b.Subscribe()
	for i := 0; i < DefaultBuffer+5; i++ {
		b.Publish(i)
	}
	assert.Len(t, ch, DefaultBuffer)
	assert.Equal(t, 0, <-ch)
}

func TestBus_Close(t *testing.T) {
	b := New[int]()
	ch := b.Subscribe()
	b.Close()
	_, ok := <-ch
	assert.False(t, ok)

	b.Publish(1)
	b.Close()
	late := b.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
	assert.Equal(t, 0, b.Subscribers())
}
