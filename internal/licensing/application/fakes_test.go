package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/keygate/keygate/internal/licensing/domain"
	"github.com/keygate/keygate/internal/shared/infrastructure/eventbus"
)

// fakeLicenseRepo is an in-memory domain.Repository for service tests.
type fakeLicenseRepo struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*domain.License
	byHash  map[string]*domain.License
	findErr error
}

func newFakeLicenseRepo() *fakeLicenseRepo {
	return &fakeLicenseRepo{
		byID:   make(map[uuid.UUID]*domain.License),
		byHash: make(map[string]*domain.License),
	}
}

func (r *fakeLicenseRepo) Create(_ context.Context, l *domain.License) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byHash[l.KeyHash]; exists {
		return domain.ErrDuplicateKeyHash
	}
	cp := *l
	r.byID[l.ID] = &cp
	r.byHash[l.KeyHash] = &cp
	return nil
}

func (r *fakeLicenseRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lic, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrLicenseNotFound
	}
	cp := *lic
	return &cp, nil
}

func (r *fakeLicenseRepo) FindByKeyHash(_ context.Context, keyHash string) (*domain.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	lic, ok := r.byHash[keyHash]
	if !ok {
		return nil, domain.ErrLicenseNotFound
	}
	cp := *lic
	return &cp, nil
}

func (r *fakeLicenseRepo) List(_ context.Context, f domain.ListFilter) ([]*domain.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.License
	for _, lic := range r.byID {
		if f.Status != "" && lic.Status != f.Status {
			continue
		}
		if f.ClientName != "" && !strings.Contains(strings.ToLower(lic.ClientName), strings.ToLower(f.ClientName)) {
			continue
		}
		cp := *lic
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeLicenseRepo) Update(_ context.Context, l *domain.License) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[l.ID]; !ok {
		return domain.ErrLicenseNotFound
	}
	cp := *l
	r.byID[l.ID] = &cp
	r.byHash[l.KeyHash] = &cp
	return nil
}

func (r *fakeLicenseRepo) CountByStatus(_ context.Context, s domain.Status) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, lic := range r.byID {
		if lic.Status == s {
			n++
		}
	}
	return n, nil
}

func (r *fakeLicenseRepo) ExpiringWithin(_ context.Context, d time.Duration) ([]*domain.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var out []*domain.License
	for _, lic := range r.byID {
		if lic.ExpiryDate.After(now.Add(-24*time.Hour)) && lic.ExpiryDate.Before(now.Add(d)) {
			cp := *lic
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeAttemptRepo collects appended attempts for assertions.
type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []*domain.ValidationAttempt
}

func (r *fakeAttemptRepo) Append(_ context.Context, a *domain.ValidationAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.attempts = append(r.attempts, &cp)
	return nil
}

func (r *fakeAttemptRepo) ListByLicense(_ context.Context, licenseID uuid.UUID, limit int) ([]*domain.ValidationAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ValidationAttempt
	for i := len(r.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		a := r.attempts[i]
		if a.LicenseID.Valid && a.LicenseID.UUID == licenseID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) RecentFailures(_ context.Context, limit int) ([]*domain.ValidationAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ValidationAttempt
	for i := len(r.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		if r.attempts[i].Result == domain.ResultFail {
			cp := *r.attempts[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) all() []*domain.ValidationAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.ValidationAttempt, len(r.attempts))
	copy(out, r.attempts)
	return out
}

// fakeLimiter returns a scripted answer.
type fakeLimiter struct {
	allow bool
	err   error
	calls int
}

func (l *fakeLimiter) Allow(_ context.Context, _ string) (bool, error) {
	l.calls++
	return l.allow, l.err
}

// capturingPublisher records published event names.
type capturingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *capturingPublisher) Publish(_ context.Context, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, event.Name)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}
