package protect

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Guard ties a Client and an Enforcer together into the one object an
// application embeds: validate on startup, revalidate in the background,
// and ask before doing licensed work.
type Guard struct {
	client   *Client
	enforcer *Enforcer
	logger   *slog.Logger
	interval time.Duration
}

// NewGuard builds a Guard from cfg. The server is not contacted until
// ValidateNow or Run is called. With a Keystore configured, an explicit
// LicenseKey is persisted for later runs and an empty one is loaded from
// the store.
func NewGuard(cfg Config, logger *slog.Logger) (*Guard, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Keystore != nil {
		if cfg.LicenseKey == "" {
			key, err := cfg.Keystore.Load(cfg.AppID)
			if err != nil {
				return nil, fmt.Errorf("protect: no license key configured or stored: %w", err)
			}
			cfg.LicenseKey = key
		} else if err := cfg.Keystore.Save(cfg.AppID, cfg.LicenseKey); err != nil {
			// The key is still usable this run; only persistence failed.
			logger.Warn("failed to store license key", "error", err)
		}
	}

	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Guard{
		client:   client,
		enforcer: NewEnforcer(cfg.GracePeriod, cfg.OnRestricted),
		logger:   logger,
		interval: cfg.RevalidateInterval,
	}, nil
}

// ValidateNow performs one validation round trip, with retries, and
// feeds the outcome into the enforcer. Transport failures are returned
// so foreground callers can surface them; the enforcer treats them the
// same as a denial and lets the grace window absorb both.
func (g *Guard) ValidateNow(ctx context.Context) error {
	verdict, err := g.client.ValidateWithRetry(ctx)
	if err != nil {
		g.enforcer.RecordFailure()
		g.logger.Warn("license validation unreachable", "error", err)
		return err
	}
	if verdict.Valid {
		g.enforcer.RecordSuccess()
		g.logger.Info("license validated", "status", verdict.Status)
		return nil
	}
	g.enforcer.RecordFailure()
	g.logger.Warn("license denied", "status", verdict.Status, "message", verdict.Message)
	return nil
}

// RequireValid returns nil while the license is confirmed or inside an
// active grace window, and ErrLicenseInvalid otherwise.
func (g *Guard) RequireValid() error {
	return g.enforcer.RequireValid()
}

// Allowed reports whether licensed work may proceed right now.
func (g *Guard) Allowed() bool {
	return g.enforcer.RequireValid() == nil
}

// State exposes the enforcer's current view, for status surfaces.
func (g *Guard) State() LicenseState {
	return g.enforcer.State()
}

// Run validates immediately, then revalidates every RevalidateInterval
// until ctx is cancelled. It blocks; run it in its own goroutine.
func (g *Guard) Run(ctx context.Context) {
	if err := g.ValidateNow(ctx); err != nil && ctx.Err() != nil {
		return
	}

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	rv := &Revalidator{Guard: g, Ticks: ticker.C}
	rv.Run(ctx)
}
