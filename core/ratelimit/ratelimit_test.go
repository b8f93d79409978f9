package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterAllow(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	l := New(time.Second)
	l.now = func() time.Time { return clock }

	steps := []struct {
		advance time.Duration
		key     string
		want    bool
	}{
		{0, "alice", true},
		{100 * time.Millisecond, "alice", false},
		{0, "bob", true},
		{500 * time.Millisecond, "alice", false},
		{400 * time.Millisecond, "alice", true},
		{0, "", true},
	}
	for i, s := range steps {
		clock = clock.Add(s.advance)
		if got := l.Allow(s.key); got != s.want {
			t.Fatalf("step %d: Allow(%q) = %v, want %v", i, s.key, got, s.want)
		}
	}
}

func TestLimiterSweepsIdleKeys(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	l := New(time.Second)
	l.now = func() time.Time { return clock }
	for _, k := range []string{"a", "b", "c"} {
		l.Allow(k)
	}
	if l.Len() != 3 {
		t.Fatalf("len = %d, want 3", l.Len())
	}
	clock = clock.Add(2 * time.Second)
	l.Allow("d")
	if l.Len() != 1 {
		t.Fatalf("len after sweep = %d, want 1", l.Len())
	}
}

func TestLimiterDisabled(t *testing.T) {
	var nilLimiter *Limiter
	if !nilLimiter.Allow("x") {
		t.Fatal("nil limiter must allow")
	}
	l := New(0)
	for i := 0; i < 3; i++ {
		if !l.Allow("x") {
			t.Fatal("zero interval must allow")
		}
	}
}
