package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPublishReachesEverySubscriber(t *testing.T) {
	b := NewBus()
	b.Now = func() time.Time { return time.UnixMilli(42) }
	a, stopA := b.Subscribe(1)
	c, stopC := b.Subscribe(1)
	defer stopA()
	defer stopC()

	b.Publish("tasks", "t1", "status")
	for _, ch := range []<-chan Change{a, c} {
		got := <-ch
		assert.Equal(t, Change{Type: "refresh", Entity: "tasks", ID: "t1", Action: "status", TS: 42}, got)
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBus()
	ch, stop := b.Subscribe(1)
	defer stop()
	b.Publish("leads", "l1", "create")
	b.Publish("leads", "l1", "advance")
	got := <-ch
	assert.Equal(t, "create", got.Action)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected buffered change %+v", extra)
	default:
	}
}

func TestUnsubscribeAndClose(t *testing.T) {
	b := NewBus()
	ch, stop := b.Subscribe(0)
	require.Equal(t, 1, b.Subscribers())
	stop()
	stop()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.Subscribers())

	other, _ := b.Subscribe(0)
	b.Close()
	_, ok = <-other
	assert.False(t, ok)

	late, _ := b.Subscribe(0)
	_, ok = <-late
	assert.False(t, ok)
}

func TestConcurrentPublish(t *testing.T) {
	b := NewBus()
	ch, stop := b.Subscribe(64)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Publish("tasks", "", "create")
		}()
	}
	wg.Wait()
	stop()
	n := 0
	for range ch {
		n++
	}
	assert.Equal(t, 8, n)
}

func TestNilBusPublish(t *testing.T) {
	var b *Bus
	b.Publish("users", "u1", "delete")
}
