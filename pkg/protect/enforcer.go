package protect

import (
	"sync"
	"time"
)

// LicenseState is the enforcer's current view of the license.
type LicenseState string

const (
	// StateUnknown means no validation outcome has been recorded yet.
	StateUnknown LicenseState = "unknown"
	// StateValid means the most recent outcome confirmed the license.
	StateValid LicenseState = "valid"
	// StateInvalid means validation is failing; the grace clock is running.
	StateInvalid LicenseState = "invalid"
	// StateRestricted means the grace period lapsed. Terminal for the
	// lifetime of the process.
	StateRestricted LicenseState = "restricted"
)

// Enforcer turns validation outcomes into a local allow/deny decision.
// Failures start a grace clock rather than blocking immediately; the
// cause of a failure (denied key or unreachable server) is deliberately
// not distinguished. The restriction callback fires at most once.
type Enforcer struct {
	mu           sync.Mutex
	state        LicenseState
	failureSince time.Time
	gracePeriod  time.Duration
	fired        bool
	onRestricted func(reason string)
	now          func() time.Time
}

// NewEnforcer builds an Enforcer in StateUnknown. onRestricted may be nil.
func NewEnforcer(gracePeriod time.Duration, onRestricted func(reason string)) *Enforcer {
	if gracePeriod <= 0 {
		gracePeriod = defaultGracePeriod
	}
	return &Enforcer{
		state:        StateUnknown,
		gracePeriod:  gracePeriod,
		onRestricted: onRestricted,
		now:          time.Now,
	}
}

// RecordSuccess marks the license as confirmed and clears any running
// failure clock. A restricted enforcer stays restricted.
func (e *Enforcer) RecordSuccess() {
	e.mu.Lock()
	if e.state != StateRestricted {
		e.state = StateValid
		e.failureSince = time.Time{}
	}
	e.mu.Unlock()
}

// RecordFailure notes a failed validation, starting the grace clock on
// the first failure. Once the clock exceeds the grace period the
// enforcer restricts and the callback fires.
func (e *Enforcer) RecordFailure() {
	e.mu.Lock()
	cb := e.recordFailureLocked()
	e.mu.Unlock()

	if cb != nil {
		cb("license validation failing beyond the grace period")
	}
}

// CheckGracePeriod re-evaluates the grace clock without recording a new
// failure. Safe to call from a scheduler tick.
func (e *Enforcer) CheckGracePeriod() {
	e.mu.Lock()
	cb := e.expireLocked()
	e.mu.Unlock()

	if cb != nil {
		cb("license validation failing beyond the grace period")
	}
}

// RequireValid returns nil while the license is confirmed or inside an
// active grace window, and ErrLicenseInvalid when restricted, past
// grace, or never validated.
func (e *Enforcer) RequireValid() error {
	e.mu.Lock()
	cb := e.expireLocked()
	state := e.state
	e.mu.Unlock()

	if cb != nil {
		cb("license validation failing beyond the grace period")
	}

	switch state {
	case StateValid, StateInvalid:
		// Invalid here means the grace window is still open.
		return nil
	default:
		return ErrLicenseInvalid
	}
}

// State returns the current license state after re-evaluating grace.
func (e *Enforcer) State() LicenseState {
	e.mu.Lock()
	cb := e.expireLocked()
	state := e.state
	e.mu.Unlock()

	if cb != nil {
		cb("license validation failing beyond the grace period")
	}
	return state
}

// recordFailureLocked starts the failure clock if needed and returns the
// callback to invoke outside the lock, or nil.
func (e *Enforcer) recordFailureLocked() func(string) {
	if e.state == StateRestricted {
		return nil
	}
	if e.failureSince.IsZero() {
		e.failureSince = e.now()
	}
	e.state = StateInvalid
	return e.expireLocked()
}

// expireLocked transitions to restricted when the grace window has
// lapsed, returning the at-most-once callback to run outside the lock.
func (e *Enforcer) expireLocked() func(string) {
	if e.state != StateInvalid || e.failureSince.IsZero() {
		return nil
	}
	if e.now().Sub(e.failureSince) < e.gracePeriod {
		return nil
	}
	e.state = StateRestricted
	if e.fired {
		return nil
	}
	e.fired = true
	return e.onRestricted
}
