package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/solshop/solshop-backend/api/routes"
	"github.com/solshop/solshop-backend/internal/checkout"
	"github.com/solshop/solshop-backend/internal/fees"
	"github.com/solshop/solshop-backend/internal/ledger"
	"github.com/solshop/solshop-backend/internal/notifications"
	"github.com/solshop/solshop-backend/internal/poller"
	"github.com/solshop/solshop-backend/internal/storefronts"
	"github.com/solshop/solshop-backend/internal/txbuilder"
	heliuswebhook "github.com/solshop/solshop-backend/internal/webhooks/helius"
	"github.com/solshop/solshop-backend/pkg/config"
	"github.com/solshop/solshop-backend/pkg/logger"
	"github.com/solshop/solshop-backend/pkg/metrics"
	solanaclient "github.com/solshop/solshop-backend/pkg/solana"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	chainClient := solanaclient.New(cfg.Solana.RPCURL)
	calc := fees.NewCalculator(cfg.Fees.TreasuryAddress, cfg.Fees.PlatformFeeBps)

	builder, err := txbuilder.NewBuilder(chainClient, calc, cfg.Solana.USDCMint)
	if err != nil {
		logg.Error(context.Background(), "failed to create transaction builder", err)
		os.Exit(1)
	}

	storefrontService := storefronts.NewMemoryService()
	if seed := cfg.Storefronts.SeedFile; seed != "" {
		if err := storefrontService.LoadSeedFile(seed); err != nil {
			logg.Error(context.Background(), "failed to load storefront seed file", err)
			os.Exit(1)
		}
	}

	led := ledger.New()
	notificationService := notifications.NewService()

	watcher, err := poller.New(chainClient, led, logg, paymentMetrics, cfg.Poller.Interval, cfg.Poller.MaxAttempts)
	if err != nil {
		logg.Error(context.Background(), "failed to create confirmation poller", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(storefrontService, builder, led, watcher, logg, paymentMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	heliusService, err := heliuswebhook.NewService(led, storefrontService, notificationService, cfg.Solana.USDCMint, logg, paymentMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"cluster": cfg.Solana.Cluster,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			chainClient,
			calc,
			checkoutService,
			led,
			storefrontService,
			notificationService,
			heliusService,
			paymentMetrics,
			registry,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
