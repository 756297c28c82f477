package debounce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestTriggerCoalescesSameKey(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := New(30 * time.Millisecond)
	var mu sync.Mutex
	var got []string

	for _, v := range []string{"a", "ab", "abc"} {
		v := v
		d.Trigger("tpl-name", func() {
			mu.Lock()
			got = append(got, v)
			mu.Unlock()
		})
	}

	waitFor(t, func() bool { return d.Pending() == 0 })
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "abc" {
		t.Errorf("Expected a single call with the final value, got %v", got)
	}
}

func TestTriggerKeysAreIndependent(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := New(20 * time.Millisecond)
	var calls int32
	d.Trigger("a", func() { atomic.AddInt32(&calls, 1) })
	d.Trigger("b", func() { atomic.AddInt32(&calls, 1) })

	if d.Pending() != 2 {
		t.Errorf("Expected 2 pending keys, got %d", d.Pending())
	}
	waitFor(t, func() bool { return atomic.LoadInt32(&calls) == 2 })
}

func TestFlushRunsPendingNow(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := New(time.Hour)
	var calls int32
	d.Trigger("a", func() { atomic.AddInt32(&calls, 1) })
	d.Trigger("a", func() { atomic.AddInt32(&calls, 10) })

	d.Flush()
	if got := atomic.LoadInt32(&calls); got != 10 {
		t.Errorf("Expected only the latest call to run, got total %d", got)
	}
	if d.Pending() != 0 {
		t.Errorf("Expected nothing pending after flush, got %d", d.Pending())
	}
}

func TestStopRunsLaterTriggersImmediately(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := New(time.Hour)
	var calls int32
	d.Trigger("a", func() { atomic.AddInt32(&calls, 1) })
	d.Stop()
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected stop to flush the pending call, got %d calls", got)
	}

	d.Trigger("b", func() { atomic.AddInt32(&calls, 1) })
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected trigger after stop to run synchronously, got %d calls", got)
	}
}
