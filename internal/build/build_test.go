package build

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunEmptyCommandShortCircuits(t *testing.T) {
	r := New(Config{}, nil)
	result := r.Run(context.Background())
	assert.True(t, result.Success)
	assert.False(t, result.Canceled)
}

func TestRunSuccess(t *testing.T) {
	r := New(Config{Command: "sh", Args: []string{"-c", "echo built"}}, nil)
	result := r.Run(context.Background())
	assert.True(t, result.Success)
	assert.Contains(t, result.Output, "built")
}

func TestRunFailureCapturesOutput(t *testing.T) {
	r := New(Config{Command: "sh", Args: []string{"-c", "echo boom 1>&2; exit 1"}}, nil)
	result := r.Run(context.Background())
	assert.False(t, result.Success)
	assert.False(t, result.Canceled)
	assert.Contains(t, result.Output, "boom")
	assert.Error(t, result.Err)
}

func TestRunCanceledViaContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(Config{Command: "sh", Args: []string{"-c", "sleep 5"}}, nil)

	done := make(chan Result, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case result := <-done:
		assert.True(t, result.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestCancelKillsInFlightBuild(t *testing.T) {
	r := New(Config{Command: "sh", Args: []string{"-c", "sleep 5"}}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	var result Result
	go func() {
		defer wg.Done()
		result = r.Run(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	r.Cancel()
	wg.Wait()

	assert.False(t, result.Success)
}

func TestCancelBeforeRunIsNoop(t *testing.T) {
	r := New(Config{}, nil)
	r.Cancel() // must not panic with no in-flight command
}
