package protect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestEnforcer(grace time.Duration) (*Enforcer, *time.Time, *[]string) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var reasons []string
	e := NewEnforcer(grace, func(reason string) {
		reasons = append(reasons, reason)
	})
	e.now = func() time.Time { return now }
	return e, &now, &reasons
}

func TestEnforcerStartsUnknownAndBlocked(t *testing.T) {
	e, _, _ := newTestEnforcer(48 * time.Hour)

	assert.Equal(t, StateUnknown, e.State())
	assert.ErrorIs(t, e.RequireValid(), ErrLicenseInvalid)
}

func TestEnforcerSuccess(t *testing.T) {
	e, _, reasons := newTestEnforcer(48 * time.Hour)

	e.RecordSuccess()

	assert.Equal(t, StateValid, e.State())
	assert.NoError(t, e.RequireValid())
	assert.Empty(t, *reasons)
}

func TestEnforcerFailureOpensGraceWindow(t *testing.T) {
	e, now, reasons := newTestEnforcer(48 * time.Hour)
	e.RecordSuccess()

	// A failure does not block; the grace window absorbs it.
	e.RecordFailure()
	assert.Equal(t, StateInvalid, e.State())
	assert.NoError(t, e.RequireValid())
	assert.Empty(t, *reasons)

	// Repeated failures do not restart the clock.
	*now = now.Add(47 * time.Hour)
	e.RecordFailure()
	assert.NoError(t, e.RequireValid())

	*now = now.Add(2 * time.Hour)
	assert.ErrorIs(t, e.RequireValid(), ErrLicenseInvalid)
	assert.Equal(t, StateRestricted, e.State())
	assert.Len(t, *reasons, 1)
}

func TestEnforcerSuccessClearsFailureClock(t *testing.T) {
	e, now, reasons := newTestEnforcer(48 * time.Hour)

	e.RecordFailure()
	*now = now.Add(47 * time.Hour)
	e.RecordSuccess()

	// A fresh failure starts a new window instead of inheriting the old.
	e.RecordFailure()
	*now = now.Add(47 * time.Hour)
	assert.NoError(t, e.RequireValid())
	assert.Empty(t, *reasons)
}

func TestEnforcerCheckGracePeriod(t *testing.T) {
	e, now, reasons := newTestEnforcer(time.Hour)
	e.RecordFailure()

	// A scheduler poll with no new failure still trips enforcement.
	*now = now.Add(2 * time.Hour)
	e.CheckGracePeriod()

	assert.Equal(t, StateRestricted, e.State())
	assert.Len(t, *reasons, 1)
}

func TestEnforcerCallbackFiresAtMostOnce(t *testing.T) {
	e, now, reasons := newTestEnforcer(time.Hour)
	e.RecordFailure()
	*now = now.Add(2 * time.Hour)

	e.CheckGracePeriod()
	e.CheckGracePeriod()
	e.RecordFailure()
	_ = e.RequireValid()

	assert.Len(t, *reasons, 1)
}

func TestEnforcerRestrictedIsTerminal(t *testing.T) {
	e, now, _ := newTestEnforcer(time.Hour)
	e.RecordFailure()
	*now = now.Add(2 * time.Hour)
	e.CheckGracePeriod()

	// A late success cannot lift the restriction within this process.
	e.RecordSuccess()
	assert.Equal(t, StateRestricted, e.State())
	assert.ErrorIs(t, e.RequireValid(), ErrLicenseInvalid)
}

func TestEnforcerNeverValidatedHasNoGrace(t *testing.T) {
	e, _, reasons := newTestEnforcer(48 * time.Hour)

	// Unknown blocks but does not fire the restriction callback.
	assert.ErrorIs(t, e.RequireValid(), ErrLicenseInvalid)
	assert.Equal(t, StateUnknown, e.State())
	assert.Empty(t, *reasons)
}
