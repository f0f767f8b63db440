// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

package ratelimit_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adscope/authcore/internal/ratelimit"
)

func TestMemoryFixedWindow(t *testing.T) {
	l := ratelimit.NewMemory()
	defer l.Close()
	ctx := context.Background()

	for i := range 3 {
		res, err := l.Check(ctx, "k", 3, time.Second)
		require.NoError(t, err)
		assert.False(t, res.Limited, "call %d", i+1)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := l.Check(ctx, "k", 3, time.Second)
	require.NoError(t, err)
	assert.True(t, res.Limited)
	assert.Zero(t, res.Remaining)
	assert.Positive(t, res.ResetIn)
}

func TestMemoryWindowReset(t *testing.T) {
	l := ratelimit.NewMemory()
	defer l.Close()
	ctx := context.Background()

	window := 50 * time.Millisecond
	for range 2 {
		_, err := l.Check(ctx, "k", 2, window)
		require.NoError(t, err)
	}
	res, err := l.Check(ctx, "k", 2, window)
	require.NoError(t, err)
	require.True(t, res.Limited)

	time.Sleep(window + 20*time.Millisecond)

	// The expired bucket is replaced wholesale, not decayed.
	res, err = l.Check(ctx, "k", 2, window)
	require.NoError(t, err)
	assert.False(t, res.Limited)
	assert.Equal(t, 1, res.Remaining)
}

func TestMemoryKeysAreIndependent(t *testing.T) {
	l := ratelimit.NewMemory()
	defer l.Close()
	ctx := context.Background()

	_, err := l.Check(ctx, "a", 1, time.Second)
	require.NoError(t, err)

	res, err := l.Check(ctx, "b", 1, time.Second)
	require.NoError(t, err)
	assert.False(t, res.Limited)
}

func TestMemoryConcurrentCheck(t *testing.T) {
	l := ratelimit.NewMemory()
	defer l.Close()
	ctx := context.Background()

	const limit = 50
	var allowed atomic.Int64
	var wg sync.WaitGroup

	for range 2 * limit {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Check(ctx, "shared", limit, time.Minute)
			require.NoError(t, err)
			if !res.Limited {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	// Exactly limit callers may pass; a lost update would admit more.
	assert.Equal(t, int64(limit), allowed.Load())
}
