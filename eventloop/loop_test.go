package eventloop_test

import (
	"context"
	"testing"
	"time"

	"github.com/delaneyj/observerparty/eventloop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// should drain microtasks before each macrotask
func TestLoopOrdering(t *testing.T) {
	l := eventloop.New()

	var order []string
	l.QueueMacrotask(func() {
		order = append(order, "macro 1")
		l.QueueMicrotask(func() { order = append(order, "micro from macro 1") })
	})
	l.QueueMacrotask(func() { order = append(order, "macro 2") })
	l.QueueMicrotask(func() {
		order = append(order, "micro 1")
		l.QueueMicrotask(func() { order = append(order, "micro 2") })
	})

	assert.Equal(t, 3, l.Pending())
	assert.Equal(t, 5, l.Drain())
	assert.Equal(t, []string{
		"micro 1",
		"micro 2",
		"macro 1",
		"micro from macro 1",
		"macro 2",
	}, order)
	assert.Equal(t, 0, l.Pending())
	assert.Equal(t, uint64(5), l.TasksRun())
}

// should report remaining work after a single tick
func TestLoopTick(t *testing.T) {
	l := eventloop.New()
	l.QueueMacrotask(func() {})
	l.QueueMacrotask(func() {})
	assert.True(t, l.Tick())
	assert.False(t, l.Tick())
	assert.False(t, l.Tick())
}

// should recover panicking tasks and keep going
func TestLoopPanic(t *testing.T) {
	var recovered []any
	l := eventloop.New(eventloop.WithPanicHandler(func(v any) {
		recovered = append(recovered, v)
	}))

	ran := false
	l.QueueMicrotask(func() { panic("boom") })
	l.QueueMicrotask(func() { ran = true })
	l.Drain()

	assert.True(t, ran)
	assert.Equal(t, []any{"boom"}, recovered)
}

// should run posted tasks on the loop goroutine until closed
func TestLoopRunPost(t *testing.T) {
	l := eventloop.New(eventloop.WithIngressSize(1))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- l.Run(ctx)
	}()

	done := make(chan int, 1)
	require.NoError(t, l.Post(ctx, func() {
		n := 0
		l.QueueMicrotask(func() { n++ })
		l.QueueMacrotask(func() {
			n++
			done <- n
		})
	}))

	select {
	case n := <-done:
		assert.Equal(t, 2, n)
	case <-ctx.Done():
		t.Fatal("posted task never ran")
	}

	l.Close()
	require.NoError(t, <-errCh)
	assert.ErrorIs(t, l.Post(ctx, func() {}), eventloop.ErrLoopTerminated)
}

// should refuse to run twice
func TestLoopRunTwice(t *testing.T) {
	l := eventloop.New()
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	require.NoError(t, l.Post(ctx, func() { close(started) }))
	errCh := make(chan error, 1)
	go func() {
		errCh <- l.Run(ctx)
	}()
	<-started

	assert.ErrorIs(t, l.Run(ctx), eventloop.ErrLoopRunning)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}
