package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubscriberTrySendDelivers(t *testing.T) {
	sub := newSubscriber("s1")
	sub.trySend([]byte("hello"))
	select {
	case frame := <-sub.send:
		require.Equal(t, "hello", string(frame))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestSubscriberDropsOldestWhenFull(t *testing.T) {
	sub := newSubscriber("s1")
	for i := 0; i < 64; i++ {
		sub.trySend([]byte{byte(i)})
	}
	// Queue is now full; one more send must drop the oldest rather than
	// block.
	sub.trySend([]byte{99})

	first := <-sub.send
	require.NotEqual(t, byte(0), first[0], "oldest frame should have been evicted")
}

func TestSubscriberClosesAfterThreeConsecutiveDrops(t *testing.T) {
	sub := newSubscriber("s1")
	for i := 0; i < 64; i++ {
		sub.trySend([]byte{byte(i)})
	}
	// Three more sends each drop-then-append without anyone draining the
	// queue, which trips the consecutive-drop counter.
	sub.trySend([]byte{1})
	sub.trySend([]byte{2})
	sub.trySend([]byte{3})

	sub.mu.Lock()
	closed := sub.closed
	sub.mu.Unlock()
	require.True(t, closed)

	// Sending to a closed subscriber must not panic or reopen the channel.
	require.NotPanics(t, func() { sub.trySend([]byte{4}) })
}

func TestSubscriberCloseIsIdempotent(t *testing.T) {
	sub := newSubscriber("s1")
	sub.close()
	require.NotPanics(t, sub.close)
}
