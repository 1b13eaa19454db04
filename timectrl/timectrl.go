package timectrl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SimClock gives read access to simulation time.
type SimClock interface {
	Now() time.Time
}

// Mode describes how the TimeController advances simulation time.
type Mode int

const (
	// RealTime paces ticks against the wall clock.
	RealTime Mode = iota
	// Accelerated advances as quickly as the loop can run while still stepping by Tick.
	Accelerated
)

func (m Mode) String() string {
	if m == RealTime {
		return "realtime"
	}
	return "accelerated"
}

// ParseMode accepts "realtime" or "accelerated" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "realtime", "real-time", "real_time":
		return RealTime, nil
	case "accelerated", "":
		return Accelerated, nil
	default:
		return Accelerated, fmt.Errorf("unknown time mode %q", s)
	}
}

// TimeController drives simulation time in fixed steps and notifies
// registered listeners on every tick. It implements SimClock.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	currentTime time.Time

	listeners []func(time.Time)
}

// NewTimeController constructs a controller.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
	}
}

// Now returns the current simulation time.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime moves the simulation clock without notifying listeners.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentTime = t
}

// AddListener registers a callback invoked on every tick.
func (tc *TimeController) AddListener(fn func(time.Time)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Ticks returns how many ticks fit in duration.
func (tc *TimeController) Ticks(duration time.Duration) int {
	if tc.Tick <= 0 || duration <= 0 {
		return 0
	}
	return int(duration / tc.Tick)
}

// Run advances simulation time from the current time by Tick until duration
// has elapsed, calling listeners after each step. It blocks until done and
// checks ctx between ticks only. Listener errors are not possible; use the
// tick callback for phases that can fail.
func (tc *TimeController) Run(ctx context.Context, duration time.Duration) (int, error) {
	return tc.RunFunc(ctx, duration, nil)
}

// RunFunc is Run with an extra per-tick callback that may stop the loop by
// returning an error.
func (tc *TimeController) RunFunc(ctx context.Context, duration time.Duration, fn func(time.Time) error) (int, error) {
	if tc.Tick <= 0 {
		return 0, fmt.Errorf("tick interval must be positive, got %s", tc.Tick)
	}

	var limiter *rate.Limiter
	if tc.Mode == RealTime {
		limiter = rate.NewLimiter(rate.Every(tc.Tick), 1)
		// Drain the initial token so the first tick also waits one interval.
		limiter.Allow()
	}

	tc.mu.RLock()
	listeners := append([]func(time.Time){}, tc.listeners...)
	simTime := tc.currentTime
	tc.mu.RUnlock()

	total := tc.Ticks(duration)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return i, err
			}
		}

		simTime = simTime.Add(tc.Tick)
		tc.mu.Lock()
		tc.currentTime = simTime
		tc.mu.Unlock()

		for _, l := range listeners {
			l(simTime)
		}
		if fn != nil {
			if err := fn(simTime); err != nil {
				return i + 1, err
			}
		}
	}
	return total, nil
}
