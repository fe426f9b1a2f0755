package probe

import (
	"net"
	"testing"
	"time"
)

// startListener opens a loopback listener and returns its address.
func startListener(t *testing.T) (net.Listener, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	return ln, ln.Addr().String()
}

// closedAddr returns a loopback address with nothing listening: the port is
// taken from a listener that is closed before returning.
func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

// newTestProber returns a prober with recorded, non-blocking sleeps.
func newTestProber(addr string) (*Prober, *[]time.Duration) {
	p := New(addr)
	p.ConnectTimeout = 500 * time.Millisecond
	p.Unit = time.Millisecond
	var slept []time.Duration
	p.sleep = func(d time.Duration) { slept = append(slept, d) }
	return p, &slept
}

func TestIsReachable_Listening(t *testing.T) {
	_, addr := startListener(t)
	if !New(addr).IsReachable() {
		t.Error("IsReachable = false against a live listener")
	}
}

func TestIsReachable_NothingListening(t *testing.T) {
	p := New(closedAddr(t))
	p.ConnectTimeout = 500 * time.Millisecond
	if p.IsReachable() {
		t.Error("IsReachable = true against a closed port")
	}
}

func TestWaitUntilReady_ImmediateSuccessSleepsNever(t *testing.T) {
	_, addr := startListener(t)
	p, slept := newTestProber(addr)

	if !p.WaitUntilReady(10) {
		t.Fatal("WaitUntilReady = false against a live listener")
	}
	if len(*slept) != 0 {
		t.Errorf("slept %v before a first-attempt success", *slept)
	}
}

// TestWaitUntilReady_BackoffSchedule: the delays double from one unit and
// cap at eight, one sleep per failed attempt.
func TestWaitUntilReady_BackoffSchedule(t *testing.T) {
	p, slept := newTestProber(closedAddr(t))

	if p.WaitUntilReady(6) {
		t.Fatal("WaitUntilReady = true against a closed port")
	}

	want := []time.Duration{1, 2, 4, 8, 8, 8}
	if len(*slept) != len(want) {
		t.Fatalf("slept %d times, want %d (%v)", len(*slept), len(want), *slept)
	}
	for i, w := range want {
		if (*slept)[i] != w*p.Unit {
			t.Errorf("sleep[%d] = %v, want %v", i, (*slept)[i], w*p.Unit)
		}
	}
}

func TestWaitUntilReady_ZeroAttempts(t *testing.T) {
	p, slept := newTestProber(closedAddr(t))
	if p.WaitUntilReady(0) {
		t.Error("WaitUntilReady(0) = true")
	}
	if len(*slept) != 0 {
		t.Errorf("WaitUntilReady(0) slept %v", *slept)
	}
}

// TestWaitUntilReady_SucceedsOnceServerComesUp: the listener appears during
// the backoff window; the wait returns true without exhausting the budget.
func TestWaitUntilReady_SucceedsOnceServerComesUp(t *testing.T) {
	addr := closedAddr(t)
	p, _ := newTestProber(addr)

	var ln net.Listener
	attempts := 0
	p.sleep = func(time.Duration) {
		attempts++
		if attempts == 2 {
			var err error
			ln, err = net.Listen("tcp", addr)
			if err != nil {
				t.Errorf("re-listen on %s: %v", addr, err)
			}
		}
	}
	defer func() {
		if ln != nil {
			ln.Close()
		}
	}()

	if !p.WaitUntilReady(10) {
		t.Fatal("WaitUntilReady = false after listener came up")
	}
	if attempts >= 10 {
		t.Errorf("budget exhausted (%d sleeps) despite listener", attempts)
	}
}
