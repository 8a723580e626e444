package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sevatrust/seva-donations/internal/api"
	"github.com/sevatrust/seva-donations/internal/auth"
	"github.com/sevatrust/seva-donations/internal/cache"
	"github.com/sevatrust/seva-donations/internal/config"
	"github.com/sevatrust/seva-donations/internal/db"
	"github.com/sevatrust/seva-donations/internal/logger"
	"github.com/sevatrust/seva-donations/internal/metrics"
	"github.com/sevatrust/seva-donations/internal/payment"
	"github.com/sevatrust/seva-donations/internal/repository/postgres"
	"github.com/sevatrust/seva-donations/internal/services"
	"github.com/sevatrust/seva-donations/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("redis connect", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
	} else {
		log.Warn("REDIS_URL not set, public reads are not cached")
	}
	views := cache.New(rdb, cfg.CacheTTL)

	repos := postgres.NewRepositories(pool)
	wp := worker.NewPool(cfg.WorkerCount)
	defer wp.Stop()
	metrics.Init()

	tm := auth.NewTokenManager(cfg.SessionSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	checkout := payment.Checkout{
		MerchantKey:  cfg.MerchantKey,
		Secret:       cfg.MerchantSalt,
		Mode:         cfg.PaymentMode,
		ActionURL:    cfg.GatewayURL,
		SuccessURL:   cfg.PublicBaseURL + "/payments/success",
		FailureURL:   cfg.PublicBaseURL + "/payments/failure",
		ConfirmURL:   cfg.PublicBaseURL + "/payments/simulate/confirm",
		ConfirmDelay: cfg.SimulatedConfirmDelay,
	}

	audit := services.NewAuditor(repos.AuditLogs)
	receipts := services.NewReceiptDispatcher(repos.Donations, wp, audit)
	userSvc := services.NewUserService(repos.Users, tm, audit)
	donationSvc := services.NewDonationService(repos.Donations, repos.Categories, repos.Events, audit, receipts, checkout)
	catalogSvc := services.NewCatalogService(repos.Categories, repos.Events, repos.Cards, views, audit)
	contentSvc := services.NewContentService(repos.Content, views, audit)
	contactSvc := services.NewContactService(repos.ContactMessages, audit)

	if cfg.AdminEmail != "" {
		if err := userSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Error("bootstrap admin", "err", err)
			os.Exit(1)
		}
	}

	r := api.NewRouter(api.RouterDeps{
		Cfg:      cfg,
		Tokens:   tm,
		Users:    userSvc,
		Donation: donationSvc,
		Catalog:  catalogSvc,
		Content:  contentSvc,
		Contact:  contactSvc,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "payment_mode", cfg.PaymentMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
