// Package webhook delivers newly admitted cycle notifications to a
// tenant's registered HTTP endpoint (spec.md §4.6), signed the way
// infrastructure/crypto signs outbound payloads, retried and
// circuit-broken the way infrastructure/resilience protects calls to
// flaky dependencies, and dead-lettered when delivery is exhausted.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/nftbarter/discovery-engine/domain/cycle"
	"github.com/nftbarter/discovery-engine/domain/identity"
	"github.com/nftbarter/discovery-engine/infrastructure/crypto"
	"github.com/nftbarter/discovery-engine/infrastructure/logging"
	"github.com/nftbarter/discovery-engine/infrastructure/resilience"
)

// Config tunes delivery behavior.
type Config struct {
	RequestTimeout time.Duration
	MaxAttempts    int
	QueueDepth     int
	WorkerCount    int
	CircuitBreaker resilience.Config
	DeadLetterSink DeadLetterSink
}

func DefaultConfig() Config {
	return Config{
		RequestTimeout: 5 * time.Second,
		MaxAttempts:    5,
		QueueDepth:     1000,
		WorkerCount:    4,
		CircuitBreaker: resilience.DefaultConfig(),
	}
}

// eventTradeDiscovered is the only event type Payload currently carries;
// kept as a named constant so a future second event type doesn't mean
// hunting down a string literal.
const eventTradeDiscovered = "trade_discovered"

// Payload is the JSON body POSTed to a tenant's webhook endpoint for one
// newly admitted cycle (spec.md §6 webhook payload shape): event
// discriminator, the full cycle (every step's wallets and witnessing
// NFTs, so a receiver knows exactly what to trade), the full 18-metric
// score, and the emission timestamp. The HMAC signature over this body
// travels in the X-Signature header, not as a body field, since a
// signature can't cover a body that includes itself.
type Payload struct {
	Event     string            `json:"event"`
	TenantID  identity.TenantID `json:"tenantId"`
	CycleID   cycle.CanonicalID `json:"cycleId"`
	Cycle     cycle.Cycle       `json:"cycle"`
	Score     cycle.Score       `json:"score"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewPayload builds the webhook body for a newly admitted cycle.
func NewPayload(tenant identity.TenantID, c cycle.Cycle, emittedAt time.Time) Payload {
	return Payload{
		Event:     eventTradeDiscovered,
		TenantID:  tenant,
		CycleID:   c.ID,
		Cycle:     c,
		Score:     c.Score,
		Timestamp: emittedAt,
	}
}

// DeadLetterSink persists deliveries that exhausted every retry attempt
// (spec.md §6 "DATA_DIR/<tenant>/deadletter.jsonl").
type DeadLetterSink interface {
	Append(tenant identity.TenantID, payload Payload, lastErr error) error
}

type job struct {
	tenant  identity.Tenant
	payload Payload
}

// Dispatcher owns one bounded worker pool and one bounded queue shared by
// every tenant. Each tenant has its own circuit breaker, so a dead
// endpoint trips only that tenant's breaker. When the shared queue is
// full, Enqueue drops the notification and logs it rather than blocking
// the caller (spec.md §5 "slow webhook targets never block graph
// mutation").
type Dispatcher struct {
	cfg    Config
	client *http.Client
	log    *logging.Logger

	queue chan job

	mu       sync.Mutex
	breakers map[identity.TenantID]*resilience.CircuitBreaker

	wg     sync.WaitGroup
	stopCh chan struct{}
}

func NewDispatcher(cfg Config, log *logging.Logger) *Dispatcher {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 1000
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}

	d := &Dispatcher{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.RequestTimeout},
		log:      log,
		queue:    make(chan job, cfg.QueueDepth),
		breakers: make(map[identity.TenantID]*resilience.CircuitBreaker),
		stopCh:   make(chan struct{}),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	return d
}

// Enqueue submits a notification for asynchronous delivery. It never
// blocks the caller's graph mutation: if the shared queue is full the
// notification is dropped and logged, matching the spec's "never
// surfaced to the submitter" treatment of webhook failures.
func (d *Dispatcher) Enqueue(tenant identity.Tenant, payload Payload) {
	if !tenant.HasWebhook() {
		return
	}
	select {
	case d.queue <- job{tenant: tenant, payload: payload}:
	default:
		if d.log != nil {
			d.log.LogWebhookDelivery(context.Background(), tenant.WebhookURL, 0, 0, errQueueFull)
		}
	}
}

// Stop drains in-flight deliveries and shuts down the worker pool.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	close(d.queue)
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		d.deliver(j)
	}
}

func (d *Dispatcher) breakerFor(tenant identity.TenantID) *resilience.CircuitBreaker {
	d.mu.Lock()
	defer d.mu.Unlock()
	cb, ok := d.breakers[tenant]
	if !ok {
		cb = resilience.New(d.cfg.CircuitBreaker)
		d.breakers[tenant] = cb
	}
	return cb
}

func (d *Dispatcher) deliver(j job) {
	body, err := json.Marshal(j.payload)
	if err != nil {
		return
	}

	cb := d.breakerFor(j.tenant.ID)
	retryCfg := resilience.RetryConfig{
		MaxAttempts:  d.cfg.MaxAttempts,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.RequestTimeout*time.Duration(d.cfg.MaxAttempts))
	defer cancel()

	attempt := 0
	lastErr := resilience.Retry(ctx, retryCfg, func() error {
		attempt++
		err := cb.Execute(ctx, func() error {
			return d.post(ctx, j.tenant, body)
		})
		if d.log != nil {
			status := 0
			if err == nil {
				status = http.StatusOK
			}
			d.log.LogWebhookDelivery(ctx, j.tenant.WebhookURL, attempt, status, err)
		}
		return err
	})

	if lastErr != nil && d.cfg.DeadLetterSink != nil {
		_ = d.cfg.DeadLetterSink.Append(j.tenant.ID, j.payload, lastErr)
	}
}

func (d *Dispatcher) post(ctx context.Context, tenant identity.Tenant, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tenant.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if tenant.WebhookSecret != "" {
		req.Header.Set("X-Signature", crypto.SignWebhookPayload([]byte(tenant.WebhookSecret), body))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errNonSuccessStatus(resp.StatusCode)
	}
	return nil
}
