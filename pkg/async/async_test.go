package async_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/attribution/pkg/async"
)

func TestGo(t *testing.T) {
	t.Parallel()

	t.Run("returns result", func(t *testing.T) {
		t.Parallel()
		f := async.Go(context.Background(), func(context.Context) (string, error) {
			return "abc", nil
		})
		v, err := f.Await()
		require.NoError(t, err)
		assert.Equal(t, "abc", v)
		assert.True(t, f.IsComplete())
	})

	t.Run("returns error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		f := async.Go(context.Background(), func(context.Context) (int, error) {
			return 0, boom
		})
		_, err := f.Await()
		assert.ErrorIs(t, err, boom)
	})

	t.Run("cancelled context skips fn", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		called := false
		f := async.Go(ctx, func(context.Context) (int, error) {
			called = true
			return 1, nil
		})
		_, err := f.Await()
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("await with timeout", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		f := async.Go(context.Background(), func(context.Context) (int, error) {
			<-release
			return 1, nil
		})
		_, err := f.AwaitWithTimeout(10 * time.Millisecond)
		assert.ErrorIs(t, err, async.ErrTimeout)
		assert.False(t, f.IsComplete())

		close(release)
		v, err := f.AwaitContext(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	})
}

func TestResolved(t *testing.T) {
	t.Parallel()

	f := async.Resolved("x", nil)
	assert.True(t, f.IsComplete())
	v, err := f.AwaitWithTimeout(time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestDeferred(t *testing.T) {
	t.Parallel()

	t.Run("drains in submission order exactly once", func(t *testing.T) {
		t.Parallel()
		q := async.NewDeferred("a")
		q.Submit("b")
		q.Submit("c")
		assert.Equal(t, 3, q.Len())
		assert.False(t, q.Drained())

		var got []string
		require.NoError(t, q.Drain(func(s string) { got = append(got, s) }))
		assert.Equal(t, []string{"a", "b", "c"}, got)
		assert.True(t, q.Drained())
		assert.Equal(t, 0, q.Len())

		assert.ErrorIs(t, q.Drain(func(string) {}), async.ErrAlreadyDrained)

		q.Submit("d")
		assert.Equal(t, []string{"a", "b", "c", "d"}, got)
	})

	t.Run("tasks submitted by the handler keep order", func(t *testing.T) {
		t.Parallel()
		q := async.NewDeferred(1, 2)
		var got []int
		require.NoError(t, q.Drain(func(n int) {
			got = append(got, n)
			if n == 1 {
				q.Submit(3)
			}
		}))
		assert.Equal(t, []int{1, 2, 3}, got)
	})

	t.Run("start does not wait for the handler", func(t *testing.T) {
		t.Parallel()
		q := async.NewDeferred("a", "b")
		release := make(chan struct{})
		got := make(chan string, 3)
		require.NoError(t, q.Start(func(s string) {
			<-release
			got <- s
		}))
		q.Submit("c")
		assert.ErrorIs(t, q.Start(func(string) {}), async.ErrAlreadyDrained)

		close(release)
		for _, want := range []string{"a", "b", "c"} {
			select {
			case s := <-got:
				assert.Equal(t, want, s)
			case <-time.After(time.Second):
				t.Fatalf("task %q not handled", want)
			}
		}
	})

	t.Run("concurrent submits are all handled", func(t *testing.T) {
		t.Parallel()
		q := async.NewDeferred[int]()
		var mu sync.Mutex
		seen := 0
		require.NoError(t, q.Drain(func(int) {
			mu.Lock()
			seen++
			mu.Unlock()
		}))

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				q.Submit(i)
			}()
		}
		wg.Wait()

		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return seen == 50
		}, time.Second, 5*time.Millisecond)
	})
}
