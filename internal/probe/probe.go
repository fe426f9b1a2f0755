// Package probe answers one question: is the server accepting TCP
// connections on its loopback endpoint yet?
package probe

import (
	"log/slog"
	"net"
	"time"
)

const (
	defaultConnectTimeout = 3 * time.Second

	// backoffCapShift caps the doubling delay at 2^3 = 8 units, bounding
	// the total wait while still easing off during the server's
	// cold-start window.
	backoffCapShift = 3
)

// Prober checks reachability of a fixed loopback endpoint. The zero value is
// not usable; construct with New.
type Prober struct {
	Addr string

	// ConnectTimeout bounds each individual connect attempt.
	ConnectTimeout time.Duration

	// Unit is the backoff time unit (1s in production; tests shrink it).
	Unit time.Duration

	sleep func(time.Duration)
}

// New returns a Prober for addr with production timings.
func New(addr string) *Prober {
	return &Prober{
		Addr:           addr,
		ConnectTimeout: defaultConnectTimeout,
		Unit:           time.Second,
		sleep:          time.Sleep,
	}
}

// IsReachable attempts one TCP connect. True iff the connection succeeds;
// refused, timeout, and unreachable are all just "not ready".
func (p *Prober) IsReachable() bool {
	conn, err := net.DialTimeout("tcp", p.Addr, p.ConnectTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// WaitUntilReady polls IsReachable up to maxAttempts times, sleeping
// 1, 2, 4, 8, 8, ... units between attempts. Returns true on the first
// successful check, false after exhausting the budget.
func (p *Prober) WaitUntilReady(maxAttempts int) bool {
	for i := 0; i < maxAttempts; i++ {
		if p.IsReachable() {
			return true
		}
		delay := p.Unit << min(i, backoffCapShift)
		slog.Debug("server not reachable yet",
			slog.String("addr", p.Addr),
			slog.Int("attempt", i+1),
			slog.Duration("backoff", delay))
		p.sleep(delay)
	}
	return false
}
