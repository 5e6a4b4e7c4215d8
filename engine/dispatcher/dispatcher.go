// Package dispatcher implements the Event Dispatcher: a per-tenant
// serialized event queue that applies graph mutations, re-enumerates
// cycles over the reported dirty set, scores and caches the result, and
// fans admitted cycles out to webhook delivery (spec.md §4.5),
// generalized from infrastructure/middleware/ratelimit.go's per-key
// serialization idiom (there: one limiter per rate-limit key; here: one
// worker goroutine per tenant).
package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/nftbarter/discovery-engine/domain/cycle"
	"github.com/nftbarter/discovery-engine/domain/graph"
	"github.com/nftbarter/discovery-engine/domain/identity"
	"github.com/nftbarter/discovery-engine/domain/registry"
	"github.com/nftbarter/discovery-engine/engine/cycleengine"
	"github.com/nftbarter/discovery-engine/engine/pricefeed"
	"github.com/nftbarter/discovery-engine/engine/scorer"
	"github.com/nftbarter/discovery-engine/engine/webhook"
	svcerrors "github.com/nftbarter/discovery-engine/infrastructure/errors"
	"github.com/nftbarter/discovery-engine/infrastructure/logging"
	"github.com/nftbarter/discovery-engine/infrastructure/metrics"
)

// Config tunes dispatcher behavior shared across every tenant.
type Config struct {
	QueueDepthThreshold int
	DiscoveryTimeout    time.Duration
	CycleEngine         cycleengine.Config
	Scoring             scorer.ScoringConfig

	// OnAdmitted, if set, is invoked synchronously for every newly
	// admitted cycle alongside the webhook enqueue, so a live consumer
	// (the websocket feed in applications/httpapi) observes exactly the
	// same cycles a tenant's webhook would receive.
	OnAdmitted func(identity.TenantID, webhook.Payload)
}

func DefaultConfig() Config {
	return Config{
		QueueDepthThreshold: 100,
		DiscoveryTimeout:    5 * time.Second,
		CycleEngine:         cycleengine.DefaultConfig(),
		Scoring:             scorer.DefaultScoringConfig(),
	}
}

// kind distinguishes the two mutation event shapes submit/submit accepts.
type kind int

const (
	kindInventory kind = iota
	kindWants
)

type event struct {
	kind      kind
	walletID  identity.WalletID
	inventory []graph.InventoryItem
	wants     []graph.WantItem
}

type job struct {
	ctx   context.Context
	event event
	reply chan outcome
}

// outcome is what Submit returns to its caller, mirroring the
// `{success, newLoopsDiscovered, changedWallets}` response shape of
// spec.md §6.
type outcome struct {
	NewLoopsDiscovered int
	ChangedWallets     []identity.WalletID
	Skipped            int
	Err                error
}

type tenantWorker struct {
	jobs chan job
}

// Dispatcher routes submit events to per-tenant serialized workers and
// coordinates the mutate -> discover -> score -> cache -> notify
// pipeline for each one.
type Dispatcher struct {
	cfg      Config
	registry *registry.Registry
	prices   pricefeed.FloorPriceSource
	history  scorer.HistorySource
	webhooks *webhook.Dispatcher
	log      *logging.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	workers map[identity.TenantID]*tenantWorker
}

func New(cfg Config, reg *registry.Registry, prices pricefeed.FloorPriceSource, history scorer.HistorySource, webhooks *webhook.Dispatcher, log *logging.Logger, m *metrics.Metrics) *Dispatcher {
	if cfg.QueueDepthThreshold <= 0 {
		cfg.QueueDepthThreshold = 100
	}
	if cfg.DiscoveryTimeout <= 0 {
		cfg.DiscoveryTimeout = 5 * time.Second
	}
	if prices == nil {
		prices = pricefeed.NeutralSource{}
	}
	if history == nil {
		history = scorer.NeutralHistory{}
	}
	return &Dispatcher{
		cfg:      cfg,
		registry: reg,
		prices:   prices,
		history:  history,
		webhooks: webhooks,
		log:      log,
		metrics:  m,
		workers:  make(map[identity.TenantID]*tenantWorker),
	}
}

func (d *Dispatcher) workerFor(tenant identity.TenantID) *tenantWorker {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, ok := d.workers[tenant]
	if ok {
		return w
	}

	w = &tenantWorker{jobs: make(chan job, d.cfg.QueueDepthThreshold)}
	d.workers[tenant] = w
	go d.run(tenant, w)
	return w
}

func (d *Dispatcher) run(tenant identity.TenantID, w *tenantWorker) {
	for j := range w.jobs {
		j.reply <- d.process(j.ctx, tenant, j.event)
	}
}

// SubmitInventory applies an inventory mutation for walletID and returns
// the number of newly admitted cycles it produced.
func (d *Dispatcher) SubmitInventory(ctx context.Context, tenant identity.TenantID, walletID identity.WalletID, items []graph.InventoryItem) (int, []identity.WalletID, error) {
	out, err := d.submit(ctx, tenant, event{kind: kindInventory, walletID: walletID, inventory: items})
	if err != nil {
		return 0, nil, err
	}
	return out.NewLoopsDiscovered, out.ChangedWallets, out.Err
}

// SubmitWants applies a wants mutation for walletID and returns the
// number of newly admitted cycles it produced, plus how many entries
// were skipped as already-owned (spec.md §4.1).
func (d *Dispatcher) SubmitWants(ctx context.Context, tenant identity.TenantID, walletID identity.WalletID, items []graph.WantItem) (int, int, error) {
	out, err := d.submit(ctx, tenant, event{kind: kindWants, walletID: walletID, wants: items})
	if err != nil {
		return 0, 0, err
	}
	return out.NewLoopsDiscovered, out.Skipped, out.Err
}

func (d *Dispatcher) submit(ctx context.Context, tenant identity.TenantID, ev event) (outcome, error) {
	if _, ok := d.registry.Get(tenant); !ok {
		return outcome{}, svcerrors.NotFound("tenant", string(tenant))
	}

	w := d.workerFor(tenant)
	if len(w.jobs) >= d.cfg.QueueDepthThreshold {
		return outcome{}, svcerrors.Busy(1)
	}

	reply := make(chan outcome, 1)
	select {
	case w.jobs <- job{ctx: ctx, event: ev, reply: reply}:
	default:
		return outcome{}, svcerrors.Busy(1)
	}

	select {
	case out := <-reply:
		return out, out.Err
	case <-ctx.Done():
		return outcome{}, svcerrors.Timeout("submit")
	}
}

// process runs under this tenant's single worker goroutine, so
// mutations for one tenant are never interleaved (spec.md §4.5 ordering
// guarantee).
func (d *Dispatcher) process(ctx context.Context, tenant identity.TenantID, ev event) outcome {
	handle, ok := d.registry.Get(tenant)
	if !ok {
		return outcome{Err: svcerrors.NotFound("tenant", string(tenant))}
	}

	var dirty graph.DirtySet
	var skipped int
	var err error
	var mutatedAssets []identity.AssetID

	switch ev.kind {
	case kindInventory:
		dirty, err = handle.Graph.SubmitInventory(ev.walletID, ev.inventory)
		for _, item := range ev.inventory {
			mutatedAssets = append(mutatedAssets, item.ID)
		}
	case kindWants:
		dirty, skipped, err = handle.Graph.SubmitWants(ev.walletID, ev.wants)
	}

	if d.log != nil {
		d.log.LogGraphMutation(ctx, operationName(ev.kind), len(dirty), err)
	}
	if d.metrics != nil {
		d.metrics.RecordGraphMutation(string(tenant), operationName(ev.kind))
	}
	if err != nil {
		return outcome{Err: err, Skipped: skipped}
	}

	scope := make(graph.DirtySet, len(dirty))
	for w := range dirty {
		scope[w] = struct{}{}
	}
	for _, assetID := range mutatedAssets {
		for _, id := range handle.Cache.InvalidateAsset(assetID) {
			if cy, ok := handle.Cache.Get(id); ok {
				for _, w := range cy.Wallets() {
					scope[w] = struct{}{}
				}
			}
		}
	}
	for w := range dirty {
		handle.Cache.InvalidateWallet(w)
	}

	discoverCtx, cancel := context.WithTimeout(ctx, d.cfg.DiscoveryTimeout)
	defer cancel()

	start := time.Now()
	view := handle.Graph.Snapshot()
	engineCfg := d.cfg.CycleEngine
	engineCfg.MaxCycleLength = handle.Tenant.Config.MaxCycleLength
	engineCfg.BundleDetection = handle.Tenant.Config.BundleDetection
	result := cycleengine.Discover(discoverCtx, view, scope, engineCfg)

	newLoops := 0
	for _, c := range result.Cycles {
		_, existed := handle.Cache.Get(c.ID)

		score := scorer.Score(ctx, c, view.Assets, d.cfg.Scoring, d.prices, d.history)
		c.Score = score
		if score.Efficiency >= handle.Tenant.Config.MinEfficiency {
			c.State = cycle.Admitted
		}
		handle.Cache.Upsert(c)

		if !existed && c.State == cycle.Admitted {
			newLoops++
			payload := webhook.NewPayload(tenant, c, time.Now())
			if d.webhooks != nil {
				d.webhooks.Enqueue(handle.Tenant, payload)
			}
			if d.cfg.OnAdmitted != nil {
				d.cfg.OnAdmitted(tenant, payload)
			}
		}
	}

	if d.log != nil {
		d.log.LogCycleDiscovered(ctx, newLoops, time.Since(start), result.TimedOut)
	}
	if d.metrics != nil {
		d.metrics.RecordCycleDiscovery(string(tenant), newLoops, time.Since(start))
	}

	changed := make([]identity.WalletID, 0, len(dirty))
	for w := range dirty {
		changed = append(changed, w)
	}

	return outcome{NewLoopsDiscovered: newLoops, ChangedWallets: changed, Skipped: skipped}
}

func operationName(k kind) string {
	if k == kindInventory {
		return "inventory_submit"
	}
	return "wants_submit"
}
