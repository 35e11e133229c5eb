// Command pending_sweep fails pending bookings that never received a payment intent.
// Run it from cron when the api's built-in sweeper is not enough.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"huntbooking/internal/config"
	"huntbooking/internal/database"
	"huntbooking/internal/modules/audit"
	"huntbooking/internal/modules/codegen"
	"huntbooking/internal/modules/coupon"
	"huntbooking/internal/modules/fulfillment"
	"huntbooking/internal/modules/inventory"
	"huntbooking/internal/modules/payment"
	"huntbooking/internal/pkg/logger"
	"huntbooking/internal/repository"
)

func main() {
	_ = godotenv.Load()

	// config decides the real logger; until then errors go to stderr as JSON
	bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("config load failed")
	}
	olderThan := flag.Duration("older-than", cfg.PendingAbandonAfter, "abandon pending bookings created before now minus this duration")
	flag.Parse()

	log := logger.New(cfg.LogLevel, cfg.AppEnv)
	loggerf := logger.Printf(log)

	db, err := database.Connect(cfg.DatabaseURL, loggerf)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}

	tx := repository.NewTransactor(db)
	bookingRepo := repository.NewBookingRepository(db)
	eventRepo := repository.NewEventRepository(db)

	svc := fulfillment.NewService(fulfillment.Deps{
		Bookings:  bookingRepo,
		Events:    eventRepo,
		Tx:        tx,
		Codes:     codegen.NewGenerator(bookingRepo),
		Coupons:   coupon.NewService(repository.NewCouponRepository(db)),
		Inventory: inventory.NewService(eventRepo, tx, nil, loggerf),
		Audit:     audit.NewService(repository.NewAuditRepository(db), nil),
		Gateway:   payment.NewGateway(repository.NewPaymentIntentRepository(db), cfg.Gateway, loggerf),
		Currency:  cfg.Currency,
		Loggerf:   loggerf,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := svc.AbandonStalePending(ctx, *olderThan, "system:pending-sweep")
	if err != nil {
		log.Fatal().Err(err).Int("abandoned", n).Msg("pending sweep failed")
	}
	log.Info().Int("abandoned", n).Dur("older_than", *olderThan).Msg("pending sweep completed")
}
