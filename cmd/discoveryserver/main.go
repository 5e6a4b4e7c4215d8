// Command discoveryserver runs the multi-tenant trade-discovery engine:
// an HTTP API for tenant provisioning, inventory/want submission, and
// discovery queries, backed by a per-tenant cycle cache and an optional
// periodic snapshot sweep to disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"

	"github.com/nftbarter/discovery-engine/applications/httpapi"
	"github.com/nftbarter/discovery-engine/domain/identity"
	"github.com/nftbarter/discovery-engine/domain/registry"
	"github.com/nftbarter/discovery-engine/engine/cyclecache"
	"github.com/nftbarter/discovery-engine/engine/dispatcher"
	"github.com/nftbarter/discovery-engine/engine/pricefeed"
	"github.com/nftbarter/discovery-engine/engine/scorer"
	"github.com/nftbarter/discovery-engine/engine/webhook"
	"github.com/nftbarter/discovery-engine/infrastructure/logging"
	"github.com/nftbarter/discovery-engine/infrastructure/metrics"
	"github.com/nftbarter/discovery-engine/infrastructure/quota"
	"github.com/nftbarter/discovery-engine/infrastructure/snapshot"
	"github.com/nftbarter/discovery-engine/pkg/config"
)

func main() {
	os.Exit(run())
}

// run returns a process exit code rather than calling os.Exit directly
// so deferred cleanup always fires: 0 clean shutdown, 1 configuration
// error, 2 when the HTTP server fails to bind or to shut down cleanly.
func run() int {
	configPath := flag.String("config", "", "path to a YAML configuration file (CONFIG_FILE env var also honored)")
	flag.Parse()

	if *configPath != "" {
		os.Setenv("CONFIG_FILE", *configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	log := logging.New("discovery-engine", cfg.Logging.Level, cfg.Logging.Format)
	m := metrics.New("discovery-engine")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cacheFactory := func() (*cyclecache.Cache, error) {
		return cyclecache.New(cyclecache.DefaultConfig())
	}
	reg := registry.New(cacheFactory)

	webhookCfg := webhook.DefaultConfig()
	webhookCfg.RequestTimeout = time.Duration(cfg.Webhook.TimeoutMS) * time.Millisecond
	webhookCfg.MaxAttempts = cfg.Webhook.MaxAttempts
	webhookCfg.QueueDepth = cfg.Webhook.QueueDepth
	webhookCfg.WorkerCount = cfg.Webhook.WorkerCount
	if cfg.Persistence.Enabled {
		webhookCfg.DeadLetterSink = snapshot.NewDeadLetterLog(cfg.Persistence.DataDir)
	}
	webhooks := webhook.NewDispatcher(webhookCfg, log)
	defer webhooks.Stop()

	feed := httpapi.NewCycleFeed(log)

	dispatcherCfg := dispatcher.DefaultConfig()
	dispatcherCfg.CycleEngine.MaxCycleLength = cfg.Algorithm.MaxCycleDepth
	dispatcherCfg.OnAdmitted = feed.OnAdmitted

	disp := dispatcher.New(dispatcherCfg, reg, pricefeed.NeutralSource{}, scorer.NeutralHistory{}, webhooks, log, m)

	limiter, err := buildLimiter(cfg.RateLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configure rate limiter: %v\n", err)
		return 1
	}

	tenantDefaults := identity.DefaultTenantConfig()
	tenantDefaults.MaxCycleLength = cfg.Algorithm.MaxCycleDepth
	tenantDefaults.MinEfficiency = cfg.Algorithm.MinEfficiency
	tenantDefaults.RateLimits = identity.RateLimitConfig{
		DiscoveryPerMinute:     cfg.RateLimit.DiscoveryPerMinute,
		AssetSubmissionsPerDay: cfg.RateLimit.AssetSubmissionsPerDay,
		WebhookCallsPerMinute:  cfg.RateLimit.WebhookCallsPerMinute,
	}

	handler := httpapi.NewHandler(httpapi.Deps{
		Registry:            reg,
		Dispatcher:          disp,
		Quota:               limiter,
		Log:                 log,
		Metrics:             m,
		AdminAPIKey:         cfg.Security.AdminAPIKey,
		Feed:                feed,
		DefaultTenantConfig: tenantDefaults,
	})
	router := httpapi.NewRouter(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	if cfg.Server.Host == "" {
		addr = fmt.Sprintf(":%d", cfg.Server.Port)
	}
	svc := httpapi.NewService(addr, router, log)
	if err := svc.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "start http server: %v\n", err)
		return 2
	}
	log.Info(ctx, "discovery engine listening", map[string]interface{}{"addr": svc.Addr()})

	var sweeper *cron.Cron
	if cfg.Persistence.Enabled {
		sweeper = startSnapshotSweep(ctx, reg, cfg.Persistence, log)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if sweeper != nil {
		<-sweeper.Stop().Done()
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		return 2
	}
	return 0
}

// buildLimiter picks the configured quota backend: Redis when an address
// is set (spec.md §4.7's production path, grounded on the teacher's
// already-declared go-redis dependency), otherwise a process-local
// fallback suitable for a single-instance deployment or tests.
func buildLimiter(cfg config.RateLimitConfig) (quota.Limiter, error) {
	if cfg.Backend != "redis" || cfg.RedisAddr == "" {
		return quota.NewMemoryLimiter(), nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect redis at %s: %w", cfg.RedisAddr, err)
	}
	return quota.NewRedisLimiter(client), nil
}

// startSnapshotSweep schedules a periodic whole-state snapshot of every
// registered tenant to cfg.DataDir, grounded on the teacher's
// robfig/cron-scheduled background jobs (services/automation).
func startSnapshotSweep(ctx context.Context, reg *registry.Registry, cfg config.PersistenceConfig, log *logging.Logger) *cron.Cron {
	interval := cfg.IntervalSeconds
	if interval <= 0 {
		interval = 60
	}
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %ds", interval), func() {
		for _, id := range reg.List() {
			handle, ok := reg.Get(id)
			if !ok {
				continue
			}
			view := handle.Graph.Snapshot()
			cycles := handle.Cache.All()
			if err := snapshot.Write(cfg.DataDir, handle.Tenant, view, cycles); err != nil {
				log.Error(ctx, "snapshot sweep failed", err, map[string]interface{}{"tenant": string(id)})
			}
		}
	})
	if err != nil {
		log.Error(ctx, "schedule snapshot sweep", err, nil)
		return nil
	}
	c.Start()
	return c
}
