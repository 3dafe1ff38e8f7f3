// Package poller keeps a periodically refreshed view of a controller's rules
// and turns them on or off.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-unifi-rules/api/controller"
	"github.com/lexfrei/go-unifi-rules/observability"
)

// DefaultInterval is the refresh cadence when none is configured.
const DefaultInterval = 300 * time.Second

// Config configures a Poller.
type Config struct {
	// Interval between refreshes in Run (defaults to 300s)
	Interval time.Duration

	// Logger for observability (optional, uses noop logger if nil)
	Logger observability.Logger

	// Metrics recorder for observability (optional, uses noop recorder if nil)
	Metrics observability.MetricsRecorder

	// OnUpdate is called with the previous and the new snapshot after every
	// successful refresh. The previous snapshot is nil on the first call.
	OnUpdate func(prev, next *Snapshot)
}

// Poller fetches traffic and firewall rules together and keeps the last good result.
type Poller struct {
	api      controller.ControllerAPI
	interval time.Duration
	logger   observability.Logger
	metrics  observability.MetricsRecorder
	onUpdate func(prev, next *Snapshot)
	now      func() time.Time

	mu       sync.RWMutex
	snapshot *Snapshot
}

// New creates a Poller over api.
func New(api controller.ControllerAPI, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NoopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetricsRecorder()
	}

	return &Poller{
		api:      api,
		interval: cfg.Interval,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		onUpdate: cfg.OnUpdate,
		now:      time.Now,
	}
}

// Snapshot returns the last successful poll, or nil before the first one.
func (p *Poller) Snapshot() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Refresh fetches traffic rules, then firewall rules. If either fetch fails the
// whole cycle fails and the previous snapshot is kept.
func (p *Poller) Refresh(ctx context.Context) (*Snapshot, error) {
	start := p.now()

	traffic, err := p.api.ListTrafficRules(ctx)
	if err != nil {
		p.metrics.RecordPoll(false, time.Since(start))
		return nil, errors.Wrap(err, "failed to poll traffic rules")
	}

	firewall, err := p.api.ListFirewallRules(ctx)
	if err != nil {
		p.metrics.RecordPoll(false, time.Since(start))
		return nil, errors.Wrap(err, "failed to poll firewall rules")
	}

	snap := &Snapshot{
		Traffic:   traffic,
		Firewall:  firewall,
		FetchedAt: p.now(),
	}

	p.mu.Lock()
	prev := p.snapshot
	p.snapshot = snap
	p.mu.Unlock()

	p.metrics.RecordPoll(true, time.Since(start))
	for _, kind := range []controller.Kind{controller.KindTraffic, controller.KindFirewall} {
		on, off := snap.counts(kind)
		p.metrics.RecordRuleStates(string(kind), on, off)
	}

	p.logger.Debug("poll completed",
		observability.Field{Key: "traffic_rules", Value: len(traffic)},
		observability.Field{Key: "firewall_rules", Value: len(firewall)},
	)

	if p.onUpdate != nil {
		p.onUpdate(prev, snap)
	}

	return snap, nil
}

// Run refreshes immediately and then every interval until ctx is done.
// Failed cycles are logged and do not stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("poll failed",
				observability.Err(err),
			)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Toggle turns the rule behind sw on or off and refreshes the snapshot.
// A failed refresh after a successful write is logged, not returned.
func (p *Poller) Toggle(ctx context.Context, sw Switch, on bool) error {
	var err error
	switch sw.Kind {
	case controller.KindTraffic:
		err = p.api.SetTrafficRule(ctx, sw.Key, on)
	case controller.KindFirewall:
		err = p.api.SetFirewallRule(ctx, sw.Key, on)
	default:
		return errors.Newf("unknown rule kind %q", sw.Kind)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to switch %s", sw.Name())
	}

	p.logger.Info("rule switched",
		observability.Field{Key: "switch", Value: sw.UniqueID()},
		observability.Field{Key: "on", Value: on},
	)

	if _, err := p.Refresh(ctx); err != nil {
		p.logger.Warn("refresh after switch failed",
			observability.Err(err),
		)
	}

	return nil
}
