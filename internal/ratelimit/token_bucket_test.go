package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesBurst(t *testing.T) {
	tb := NewTokenBucket()

	for i := 0; i < 3; i++ {
		res, err := tb.Allow("k", 1, 3)
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	res, err := tb.Allow("k", 1, 3)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if res.Allowed {
		t.Fatal("burst exhausted, request should be rejected")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("RetryAfter = %v", res.RetryAfter)
	}
}

func TestAllowRefills(t *testing.T) {
	tb := NewTokenBucket()
	now := time.Unix(1000, 0)
	tb.now = func() time.Time { return now }

	if res, _ := tb.Allow("k", 1, 1); !res.Allowed {
		t.Fatal("first request should be allowed")
	}
	if res, _ := tb.Allow("k", 1, 1); res.Allowed {
		t.Fatal("second immediate request should be rejected")
	}

	now = now.Add(1100 * time.Millisecond)
	if res, _ := tb.Allow("k", 1, 1); !res.Allowed {
		t.Fatal("bucket should have refilled")
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	tb := NewTokenBucket()

	if res, _ := tb.Allow("a", 1, 1); !res.Allowed {
		t.Fatal("key a should be allowed")
	}
	if res, _ := tb.Allow("b", 1, 1); !res.Allowed {
		t.Fatal("key b should not share key a's bucket")
	}
}

func TestAllowRejectsBadArguments(t *testing.T) {
	tb := NewTokenBucket()
	if _, err := tb.Allow("", 1, 1); err == nil {
		t.Fatal("empty key must error")
	}
	if _, err := tb.Allow("k", 0, 1); err == nil {
		t.Fatal("zero rate must error")
	}
	if _, err := tb.Allow("k", 1, 0); err == nil {
		t.Fatal("zero burst must error")
	}
}
