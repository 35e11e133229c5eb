package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"huntbooking/internal/config"
	"huntbooking/internal/database"
	"huntbooking/internal/middleware"
	"huntbooking/internal/modules/admin"
	"huntbooking/internal/modules/audit"
	"huntbooking/internal/modules/codegen"
	"huntbooking/internal/modules/coupon"
	"huntbooking/internal/modules/fulfillment"
	"huntbooking/internal/modules/inventory"
	"huntbooking/internal/modules/notification"
	"huntbooking/internal/modules/payment"
	jwtsvc "huntbooking/internal/pkg/jwt"
	"huntbooking/internal/pkg/logger"
	"huntbooking/internal/repository"
)

const (
	sweepInterval   = 10 * time.Minute
	shutdownTimeout = 15 * time.Second
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	if err := run(); err != nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Fatal().Err(err).Msg("api stopped with error")
	}
}

// run returns instead of exiting so deferred closes always happen.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.LogLevel, cfg.AppEnv)
	loggerf := logger.Printf(log)
	if config.IsProdLike(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL, loggerf)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate db: %w", err)
	}

	// availability cache is optional; without redis every read hits the database
	var seatCache inventory.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, availability cache disabled")
			_ = rdb.Close()
		} else {
			defer rdb.Close()
			seatCache = inventory.NewRedisCache(rdb, cfg.AvailabilityTTL)
			log.Info().Str("addr", cfg.RedisAddr).Msg("availability cache enabled")
		}
	}

	tx := repository.NewTransactor(db)
	bookingRepo := repository.NewBookingRepository(db)
	eventRepo := repository.NewEventRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	intentRepo := repository.NewPaymentIntentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTAccessTTL)

	feed := audit.NewFeed()
	defer feed.Close()
	auditService := audit.NewService(auditRepo, feed)
	inventoryService := inventory.NewService(eventRepo, tx, seatCache, loggerf)
	couponService := coupon.NewService(couponRepo)
	notificationService := notification.NewService(notificationRepo, cfg.Currency, loggerf)
	gateway := payment.NewGateway(intentRepo, cfg.Gateway, loggerf)

	fulfillmentService := fulfillment.NewService(fulfillment.Deps{
		Bookings:  bookingRepo,
		Events:    eventRepo,
		Tx:        tx,
		Codes:     codegen.NewGenerator(bookingRepo),
		Coupons:   couponService,
		Inventory: inventoryService,
		Audit:     auditService,
		Gateway:   gateway,
		Notifier:  notificationService,
		Currency:  cfg.Currency,
		Loggerf:   loggerf,
	})
	gateway.SetEventHandler(fulfillmentService)

	adminService := admin.NewService(adminRepo, j)

	r := gin.New()
	if err := middleware.TrustProxies(r, cfg.TrustedProxies); err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(middleware.ErrorLogger(log), middleware.CORS(cfg.CORSAllowedOrigins))
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	adminHandler := admin.NewHandler(adminService, fulfillmentService)

	v1 := r.Group("/api/v1")
	{
		fulfillment.NewHandler(fulfillmentService).RegisterRoutes(v1)
		inventory.NewHandler(inventoryService).RegisterRoutes(v1)
		coupon.NewHandler(couponService, eventRepo).RegisterRoutes(v1)

		webhooks := v1.Group("")
		webhooks.Use(middleware.WebhookIPAllowlist(cfg.WebhookAllowedIPs, log))
		payment.NewHandler(gateway, loggerf).RegisterWebhookRoutes(webhooks)

		adminPublic := v1.Group("/admin")
		adminHandler.RegisterPublicRoutes(adminPublic)

		adminGroup := v1.Group("/admin")
		adminGroup.Use(middleware.JWTAuth(j), middleware.AdminOnly())
		{
			adminHandler.RegisterRoutes(adminGroup)
			audit.NewHandler(auditService, feed, cfg.CORSAllowedOrigins).RegisterRoutes(adminGroup)
			notification.NewHandler(notificationService).RegisterRoutes(adminGroup)
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				n, err := fulfillmentService.AbandonStalePending(gctx, cfg.PendingAbandonAfter, "system:pending-sweep")
				if err != nil {
					log.Error().Err(err).Msg("pending sweep failed")
					continue
				}
				if n > 0 {
					log.Info().Int("abandoned", n).Msg("pending sweep completed")
				}
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
