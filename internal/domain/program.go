package domain

import "time"

// ProgramLifecycle is derived from the clock and the program window; it is
// never stored.
type ProgramLifecycle string

const (
	LifecycleUpcoming ProgramLifecycle = "upcoming"
	LifecycleActive   ProgramLifecycle = "active"
	LifecycleEnded    ProgramLifecycle = "ended"
)

// Program represents a scheduled flash-sale event with a fixed time window.
type Program struct {
	ID          string
	Name        string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	// IsActive is the administrative kill-switch, independent of the window.
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Lifecycle computes the program state at the given instant. The
// administrative flag wins: a deactivated program reports ended even inside
// its window.
func (p Program) Lifecycle(now time.Time) ProgramLifecycle {
	if !p.IsActive {
		return LifecycleEnded
	}
	if now.Before(p.StartTime) {
		return LifecycleUpcoming
	}
	if now.After(p.EndTime) {
		return LifecycleEnded
	}
	return LifecycleActive
}

// TimeRemaining returns the seconds left until the window closes, zero once
// ended.
func (p Program) TimeRemaining(now time.Time) time.Duration {
	if p.Lifecycle(now) == LifecycleEnded {
		return 0
	}
	remaining := p.EndTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
