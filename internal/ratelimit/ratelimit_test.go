package ratelimit

import (
	"context"
	"testing"
)

func TestNew_BurstSizing(t *testing.T) {
	// A tenth of the budget, so 600/min opens with 60 immediate requests.
	l := New(600)
	for i := 0; i < 60; i++ {
		if !l.Allow() {
			t.Fatalf("request %d denied inside the burst window", i)
		}
	}
	if l.Allow() {
		t.Error("expected denial once the burst is spent")
	}

	// Small budgets still admit one request.
	small := New(5)
	if !small.Allow() {
		t.Error("burst must floor at one request")
	}
	if small.Allow() {
		t.Error("a 5/min budget must not admit a second immediate request")
	}
}

func TestWait_CanceledContext(t *testing.T) {
	l := NewWithBurst(0.001, 1)
	if !l.Allow() {
		t.Fatal("the single burst token must be available")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); err == nil {
		t.Error("Wait must fail once the context is canceled")
	}
}
