package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"huntbooking/internal/config"
	"huntbooking/internal/database"
	"huntbooking/internal/domain"
	"huntbooking/internal/modules/admin"
	jwtsvc "huntbooking/internal/pkg/jwt"
	"huntbooking/internal/pkg/logger"
	"huntbooking/internal/repository"
)

type seedEvent struct {
	huntCode  string
	title     string
	seats     int
	unitPrice int64
}

type seedCoupon struct {
	code    string
	percent float64
	maxUses int
	ttl     time.Duration
}

var events = []seedEvent{
	{huntCode: "ELK", title: "Autumn Elk Hunt", seats: 12, unitPrice: 45000},
	{huntCode: "DUCK", title: "Dawn Duck Blind", seats: 8, unitPrice: 12500},
	{huntCode: "BOAR", title: "Night Boar Drive", seats: 5, unitPrice: 30000},
	{huntCode: "", title: "Open Range Day", seats: 40, unitPrice: 0},
}

var coupons = []seedCoupon{
	{code: "HALFOFF", percent: 50, maxUses: 10},
	{code: "FREEALL", percent: 100, maxUses: 0},
	{code: "EARLYBIRD", percent: 15, maxUses: 100, ttl: 30 * 24 * time.Hour},
}

func main() {
	_ = godotenv.Load()

	adminEmail := flag.String("admin-email", "admin@huntbooking.local", "admin login email")
	adminPassword := flag.String("admin-password", "", "admin password (defaults to $SEED_ADMIN_PASSWORD)")
	flag.Parse()

	// config decides the real logger; until then errors go to stderr as JSON
	bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("config load failed")
	}
	log := logger.New(cfg.LogLevel, cfg.AppEnv)

	password := *adminPassword
	if password == "" {
		password = os.Getenv("SEED_ADMIN_PASSWORD")
	}
	if password == "" {
		log.Fatal().Msg("admin password is required: pass -admin-password or set SEED_ADMIN_PASSWORD")
	}

	db, err := database.Connect(cfg.DatabaseURL, logger.Printf(log))
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	log.Info().Msg("running migrations")
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	ctx := context.Background()
	eventRepo := repository.NewEventRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	adminService := admin.NewService(repository.NewAdminRepository(db), jwtsvc.New(cfg.JWTSecret, cfg.JWTAccessTTL))

	if _, err := adminService.CreateAdmin(ctx, *adminEmail, "Administrator", password); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			log.Fatal().Err(err).Msg("create admin failed")
		}
		log.Info().Str("email", *adminEmail).Msg("admin already exists")
	} else {
		log.Info().Str("email", *adminEmail).Msg("admin created")
	}

	for _, se := range events {
		ev, err := domain.NewEvent(se.huntCode, se.title, se.seats, se.unitPrice)
		if err != nil {
			log.Fatal().Err(err).Str("title", se.title).Msg("invalid seed event")
		}
		if err := eventRepo.Create(ctx, ev); err != nil {
			log.Fatal().Err(err).Str("title", se.title).Msg("create event failed")
		}
		log.Info().Int64("id", ev.ID).Str("hunt_code", ev.HuntCode).Int("seats", ev.SeatsAvailable).Msg("event created")
	}

	for _, sc := range coupons {
		var expiresAt *time.Time
		if sc.ttl > 0 {
			t := time.Now().UTC().Add(sc.ttl)
			expiresAt = &t
		}
		c, err := domain.NewCoupon(sc.code, sc.percent, sc.maxUses, expiresAt)
		if err != nil {
			log.Fatal().Err(err).Str("code", sc.code).Msg("invalid seed coupon")
		}
		if err := couponRepo.Create(ctx, c); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				log.Info().Str("code", c.Code).Msg("coupon already exists")
				continue
			}
			log.Fatal().Err(err).Str("code", sc.code).Msg("create coupon failed")
		}
		log.Info().Str("code", c.Code).Float64("percent", c.DiscountPercent).Msg("coupon created")
	}

	log.Info().Msg("seed completed")
}
