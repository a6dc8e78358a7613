package main

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/tradeflow-africa/matching-core/internal/api"
	"github.com/tradeflow-africa/matching-core/internal/config"
	"github.com/tradeflow-africa/matching-core/internal/db"
	"github.com/tradeflow-africa/matching-core/internal/expiry"
	"github.com/tradeflow-africa/matching-core/internal/ingestion"
	"github.com/tradeflow-africa/matching-core/internal/matcher"
	"github.com/tradeflow-africa/matching-core/internal/matching"
	"github.com/tradeflow-africa/matching-core/internal/notify"
	"github.com/tradeflow-africa/matching-core/internal/pool"
	"github.com/tradeflow-africa/matching-core/internal/rates"
	"github.com/tradeflow-africa/matching-core/internal/scheduler"
	"github.com/tradeflow-africa/matching-core/internal/security"
)

// expirySweepInterval is how often the stale-INITIATED sweep runs; it is
// independent of PaymentExpiry, the staleness window the sweep checks
// against.
const expirySweepInterval = 15 * time.Minute

func main() {
	log.Println("Starting TradeFlow Africa Matching Core (NGN<->CNY B2B corridor)...")

	cfg := config.Load()

	// MATCHING_TOLERANCE_PERCENT overrides the partial-match overlap floor;
	// the exact/multi thresholds remain fixed internal constants per spec.
	matcher.PartialMinOverlapPercent = decimal.NewFromFloat(cfg.MatchingToleranceBase)

	store, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: failed to connect to PostgreSQL: %v", err)
	}
	defer store.Close()

	if err := store.InitSchema(); err != nil {
		log.Fatalf("FATAL: schema init failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("FATAL: failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	// security.Box seals/opens supplier_account_enc and encrypted_bvn.
	// Trader and transaction provisioning happen in a separate onboarding
	// service, so this engine mostly reads already-sealed columns, but the
	// same Box decrypts them back to plaintext wherever an in-process
	// consumer (settlement handoff, trader lookups) needs the real value.
	box, err := security.NewBox(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("FATAL: failed to initialize field encryption: %v", err)
	}
	store.WithBox(box)

	wsHub := api.NewHub()
	go wsHub.Run()
	notifier := notify.New(wsHub)

	var fxProvider rates.Provider
	switch cfg.FXProvider {
	case "http":
		fxProvider = rates.NewHTTPProvider(cfg.FXProviderURL)
	default:
		log.Println("FX_PROVIDER=mock: using fixed NGN/CNY cross rates")
		fxProvider = rates.NewMockProvider()
	}
	ratesEngine := rates.NewEngine(rdb, fxProvider, rates.Config{
		CacheTTL: cfg.FXCacheTTL,
		QuoteTTL: cfg.FXQuoteTTL,
	})

	poolStore := pool.NewStore(rdb)
	poolLocker := pool.NewLocker(rdb)

	ingestionHandler := ingestion.New(store, poolStore, ratesEngine, notifier).WithPoolTTL(cfg.MatchingPoolTimeout)

	orchestrator := matching.New(
		matching.NewPostgresStore(store),
		poolStore,
		poolStore,
		poolLocker,
		matching.NewRateSource(ratesEngine),
		notifier,
		matching.Config{},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cycleScheduler := scheduler.New(func(ctx context.Context) error {
		_, err := orchestrator.RunCycle(ctx)
		return err
	}, cfg.MatchingCycleInterval)
	go cycleScheduler.Run(ctx)

	expiryWorker := expiry.New(store, notifier, cfg.PaymentExpiry)
	go expiryWorker.Run(ctx, expirySweepInterval)

	apiHandler := api.NewAPIHandler(ingestionHandler, ratesEngine, wsHub)
	router := api.SetupRouter(apiHandler, cfg.AuthToken)

	log.Printf("Matching core listening on :%s\n", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("FATAL: server exited: %v", err)
	}
}
