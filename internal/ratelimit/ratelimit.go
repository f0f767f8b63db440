// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

// Package ratelimit provides fixed-window request counters keyed by arbitrary
// strings. Limiters are constructed and injected; nothing here is a package
// singleton.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result describes the outcome of a limiter check.
type Result struct {
	Limited   bool
	Remaining int
	ResetIn   time.Duration
}

// Limiter counts events per key in fixed windows. Counts reset wholesale when
// the window boundary passes; there is no sliding decay.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

type bucket struct {
	count   int
	resetAt time.Time
}

// Memory is a process-local limiter guarded by a mutex. Correctness is
// per-instance; multi-instance deployments should use the Redis limiter.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	stopCh  chan struct{}
}

// NewMemory creates a memory limiter and starts its sweep goroutine.
func NewMemory() *Memory {
	l := &Memory{
		buckets: make(map[string]*bucket),
		stopCh:  make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Check applies the read-check-increment sequence atomically per key.
func (l *Memory) Check(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[key]
	if b == nil || !now.Before(b.resetAt) {
		// Fresh window: an expired bucket is replaced, not decayed.
		b = &bucket{count: 1, resetAt: now.Add(window)}
		l.buckets[key] = b
		return Result{Remaining: limit - 1, ResetIn: window}, nil
	}

	if b.count >= limit {
		return Result{Limited: true, ResetIn: time.Until(b.resetAt)}, nil
	}

	b.count++
	return Result{Remaining: limit - b.count, ResetIn: time.Until(b.resetAt)}, nil
}

func (l *Memory) sweepLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stopCh:
			return
		}
	}
}

// sweep drops expired buckets so key growth stays bounded.
func (l *Memory) sweep() {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, key)
		}
	}
}

// Close stops the sweep goroutine.
func (l *Memory) Close() {
	close(l.stopCh)
}
