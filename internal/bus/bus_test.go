package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danmuck/devlink/internal/testutil/testlog"
)

// Channel names derive from the test name: the registry is process-wide
// and parallel tests must not collide.

func TestFanoutDeliversToEverySubscriber(t *testing.T) {
	testlog.Start(t)
	name := t.Name()

	pub, err := NewPublisher[int](name)
	require.NoError(t, err)
	defer pub.Reset()

	a, err := NewSubscriber[int](name, 0)
	require.NoError(t, err)
	defer a.Reset()
	b, err := NewSubscriber[int](name, 0)
	require.NoError(t, err)
	defer b.Reset()

	for v := 1; v <= 3; v++ {
		require.NoError(t, pub.Push(v))
	}
	for _, sub := range []*Subscriber[int]{a, b} {
		for want := 1; want <= 3; want++ {
			got, err := sub.Pop()
			require.NoError(t, err)
			require.Equal(t, want, got)
		}
	}
}

func TestPopStoppedWithoutPublisher(t *testing.T) {
	testlog.Start(t)
	sub, err := NewSubscriber[string](t.Name(), 0)
	require.NoError(t, err)
	defer sub.Reset()

	_, err = sub.Pop()
	require.ErrorIs(t, err, ErrChannelStopped)
}

func TestPopBlocksUntilPush(t *testing.T) {
	testlog.Start(t)
	name := t.Name()

	pub, err := NewPublisher[int](name)
	require.NoError(t, err)
	defer pub.Reset()
	sub, err := NewSubscriber[int](name, 0)
	require.NoError(t, err)
	defer sub.Reset()

	go func() {
		time.Sleep(20 * time.Millisecond)
		pub.Push(99)
	}()
	got, err := sub.Pop()
	require.NoError(t, err)
	require.Equal(t, 99, got)
}

func TestLastPublisherResetWakesBlockedPop(t *testing.T) {
	testlog.Start(t)
	name := t.Name()

	pub, err := NewPublisher[int](name)
	require.NoError(t, err)
	sub, err := NewSubscriber[int](name, 0)
	require.NoError(t, err)
	defer sub.Reset()

	done := make(chan error, 1)
	go func() {
		_, err := sub.Pop()
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	pub.Reset()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrChannelStopped)
	case <-time.After(time.Second):
		t.Fatal("pop did not observe the stop broadcast")
	}
}

func TestQueuedDataWinsOverStop(t *testing.T) {
	testlog.Start(t)
	name := t.Name()

	pub, err := NewPublisher[int](name)
	require.NoError(t, err)
	sub, err := NewSubscriber[int](name, 0)
	require.NoError(t, err)
	defer sub.Reset()

	require.NoError(t, pub.Push(7))
	pub.Reset()

	got, err := sub.Pop()
	require.NoError(t, err)
	require.Equal(t, 7, got)

	_, err = sub.Pop()
	require.ErrorIs(t, err, ErrChannelStopped)
}

func TestPopForTimesOutAndDelivers(t *testing.T) {
	testlog.Start(t)
	name := t.Name()

	pub, err := NewPublisher[int](name)
	require.NoError(t, err)
	defer pub.Reset()
	sub, err := NewSubscriber[int](name, 0)
	require.NoError(t, err)
	defer sub.Reset()

	start := time.Now()
	_, err = sub.PopFor(30 * time.Millisecond)
	require.ErrorIs(t, err, ErrChannelTimeout)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	go func() {
		time.Sleep(10 * time.Millisecond)
		pub.Push(5)
	}()
	got, err := sub.PopFor(time.Second)
	require.NoError(t, err)
	require.Equal(t, 5, got)
}

func TestPopUntilPastDeadline(t *testing.T) {
	testlog.Start(t)
	name := t.Name()

	pub, err := NewPublisher[int](name)
	require.NoError(t, err)
	defer pub.Reset()
	sub, err := NewSubscriber[int](name, 0)
	require.NoError(t, err)
	defer sub.Reset()

	_, err = sub.PopUntil(time.Now().Add(-time.Second))
	require.ErrorIs(t, err, ErrChannelTimeout)

	// Data already queued beats an expired deadline.
	require.NoError(t, pub.Push(1))
	got, err := sub.PopUntil(time.Now().Add(-time.Second))
	require.NoError(t, err)
	require.Equal(t, 1, got)
}

func TestBoundedQueueDropsOldest(t *testing.T) {
	testlog.Start(t)
	name := t.Name()

	pub, err := NewPublisher[int](name)
	require.NoError(t, err)
	defer pub.Reset()
	sub, err := NewSubscriber[int](name, 3)
	require.NoError(t, err)
	defer sub.Reset()

	for v := 1; v <= 5; v++ {
		require.NoError(t, pub.Push(v))
	}
	for _, want := range []int{3, 4, 5} {
		got, err := sub.Pop()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err = sub.PopFor(10 * time.Millisecond)
	require.ErrorIs(t, err, ErrChannelTimeout)
}

func TestQueueSizeOneKeepsNewest(t *testing.T) {
	testlog.Start(t)
	name := t.Name()

	pub, err := NewPublisher[int](name)
	require.NoError(t, err)
	defer pub.Reset()
	sub, err := NewSubscriber[int](name, 1)
	require.NoError(t, err)
	defer sub.Reset()

	for v := 1; v <= 4; v++ {
		require.NoError(t, pub.Push(v))
	}
	got, err := sub.Pop()
	require.NoError(t, err)
	require.Equal(t, 4, got)
}

func TestUnboundEndpointErrors(t *testing.T) {
	testlog.Start(t)

	var pub Publisher[int]
	require.ErrorIs(t, pub.Push(1), ErrEmptyEndpoint)
	require.False(t, pub.Bound())
	_, err := pub.Clone()
	require.ErrorIs(t, err, ErrEmptyEndpoint)

	var sub Subscriber[int]
	_, err = sub.Pop()
	require.ErrorIs(t, err, ErrEmptyEndpoint)
	_, err = sub.PopFor(time.Millisecond)
	require.ErrorIs(t, err, ErrEmptyEndpoint)
	require.False(t, sub.Bound())
	_, err = sub.Clone()
	require.ErrorIs(t, err, ErrEmptyEndpoint)
}

func TestTypeConflictRejectedAtBind(t *testing.T) {
	testlog.Start(t)
	name := t.Name()

	pub, err := NewPublisher[int](name)
	require.NoError(t, err)
	defer pub.Reset()

	_, err = NewSubscriber[string](name, 0)
	require.ErrorIs(t, err, ErrTypeConflict)
	_, err = NewPublisher[float64](name)
	require.ErrorIs(t, err, ErrTypeConflict)
}

func TestRegistryRefcountTeardown(t *testing.T) {
	testlog.Start(t)
	name := t.Name()

	pub, err := NewPublisher[int](name)
	require.NoError(t, err)
	sub, err := NewSubscriber[int](name, 0)
	require.NoError(t, err)
	require.Contains(t, Channels(), name)

	pub.Reset()
	require.Contains(t, Channels(), name)
	sub.Reset()
	require.NotContains(t, Channels(), name)

	// Name is reusable with a fresh type once fully released.
	pub2, err := NewPublisher[string](name)
	require.NoError(t, err)
	pub2.Reset()
}

func TestPublisherCloneIsIndependentMembership(t *testing.T) {
	testlog.Start(t)
	name := t.Name()

	pub, err := NewPublisher[int](name)
	require.NoError(t, err)
	clone, err := pub.Clone()
	require.NoError(t, err)
	defer clone.Reset()
	sub, err := NewSubscriber[int](name, 0)
	require.NoError(t, err)
	defer sub.Reset()

	// One membership remains, so the channel is not stopped.
	pub.Reset()
	require.NoError(t, clone.Push(11))
	got, err := sub.Pop()
	require.NoError(t, err)
	require.Equal(t, 11, got)
}

func TestSubscriberCloneStartsEmpty(t *testing.T) {
	testlog.Start(t)
	name := t.Name()

	pub, err := NewPublisher[int](name)
	require.NoError(t, err)
	defer pub.Reset()
	sub, err := NewSubscriber[int](name, 2)
	require.NoError(t, err)
	defer sub.Reset()

	require.NoError(t, pub.Push(1))
	clone, err := sub.Clone()
	require.NoError(t, err)
	defer clone.Reset()
	require.Equal(t, 2, clone.FIFOSize())

	_, err = clone.PopFor(10 * time.Millisecond)
	require.ErrorIs(t, err, ErrChannelTimeout)

	require.NoError(t, pub.Push(2))
	got, err := clone.Pop()
	require.NoError(t, err)
	require.Equal(t, 2, got)
}

func TestBindReleasesPriorChannel(t *testing.T) {
	testlog.Start(t)
	first := t.Name() + ".a"
	second := t.Name() + ".b"

	sub, err := NewSubscriber[int](first, 0)
	require.NoError(t, err)
	require.Contains(t, Channels(), first)

	require.NoError(t, sub.Bind(second))
	defer sub.Reset()
	require.NotContains(t, Channels(), first)
	require.Contains(t, Channels(), second)
}

func TestClearDropsBacklog(t *testing.T) {
	testlog.Start(t)
	name := t.Name()

	pub, err := NewPublisher[int](name)
	require.NoError(t, err)
	defer pub.Reset()
	sub, err := NewSubscriber[int](name, 0)
	require.NoError(t, err)
	defer sub.Reset()

	require.NoError(t, pub.Push(1))
	require.NoError(t, pub.Push(2))
	sub.Clear()

	_, err = sub.PopFor(10 * time.Millisecond)
	require.ErrorIs(t, err, ErrChannelTimeout)
}
