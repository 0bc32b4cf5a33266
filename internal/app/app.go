package app

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/cradoe/quizash/internal/cache"
	"github.com/cradoe/quizash/internal/config"
	"github.com/cradoe/quizash/internal/env"
	"github.com/cradoe/quizash/internal/errHandler"
	"github.com/cradoe/quizash/internal/helper"
	"github.com/cradoe/quizash/internal/money"
	"github.com/cradoe/quizash/internal/paystack"
	"github.com/cradoe/quizash/internal/repository"
	"github.com/cradoe/quizash/internal/smtp"
	"github.com/cradoe/quizash/internal/stream"
)

// Essential services and resources are exposed to the application
// this makes it possible for methods to have access to these items as and when they need them
type Application struct {
	Config       config.Config
	DB           repository.Database
	Logger       *slog.Logger
	Mailer       *smtp.Mailer
	Cache        *cache.Cache
	Kafka        *stream.KafkaStream
	Paystack     *paystack.Client
	WG           sync.WaitGroup
	errorHandler *errHandler.ErrorHandler
	Helper       *helper.HelperRepository
}

func NewApplication(logger *slog.Logger) (*Application, error) {
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", "error", err)
	}

	var cfg config.Config

	// config values are loaded from the .env file
	// Default values are provided for these items and these should strictly be values for development mode only
	// make sure no production-level value is exposed as default value here
	cfg.BaseURL = env.GetString("BASE_URL", "http://localhost:4444")
	cfg.HttpPort = env.GetInt("HTTP_PORT", 4444)

	cfg.Db.Dsn = env.GetString("DB_DSN", "user:pass@localhost:5432/db")
	cfg.Db.Automigrate = env.GetBool("DB_AUTOMIGRATE", true)

	cfg.Jwt.SecretKey = env.GetString("JWT_SECRET_KEY", "ajf5nx3qmp6zquevllxocxqvyz42ypuo")

	// server errors won't be sent via email if the NOTIFICATIONS_EMAIL wasn't set in the .env file
	cfg.Notifications.Email = env.GetString("NOTIFICATIONS_EMAIL", "")

	cfg.Smtp.Host = env.GetString("SMTP_HOST", "example.smtp.host")
	cfg.Smtp.Port = env.GetInt("SMTP_PORT", 25)
	cfg.Smtp.Username = env.GetString("SMTP_USERNAME", "example_username")
	cfg.Smtp.Password = env.GetString("SMTP_PASSWORD", "pa55word")
	cfg.Smtp.From = env.GetString("SMTP_FROM", "Quizash <no_reply@quizash.app>")

	cfg.Paystack.SecretKey = env.GetString("PAYSTACK_SECRET_KEY", "")
	cfg.Paystack.PublicKey = env.GetString("PAYSTACK_PUBLIC_KEY", "")

	cfg.RedisServer = env.GetString("REDIS_SERVER", "localhost:6379")
	cfg.KafkaServers = env.GetString("KAFKA_SERVERS", "localhost:9092")

	if err := loadWalletConfig(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load wallet config: %w", err)
	}

	db, err := repository.New(cfg.Db.Dsn, cfg.Db.Automigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	mailer, err := smtp.NewMailer(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.From)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	errorHandler := errHandler.New(cfg.Notifications.Email, cfg.BaseURL, mailer, logger)

	app := &Application{
		Config:       cfg,
		DB:           db,
		Logger:       logger,
		Mailer:       mailer,
		Cache:        cache.New(cfg.RedisServer, 0),
		Kafka:        stream.New(cfg.KafkaServers),
		Paystack:     paystack.New(cfg.Paystack.SecretKey),
		errorHandler: errorHandler,
	}
	app.Helper = helper.New(&cfg.BaseURL, &app.WG, errorHandler)

	return app, nil
}

// loadWalletConfig parses every monetary knob up front so a bad value fails
// the boot instead of a withdrawal.
func loadWalletConfig(cfg *config.Config) error {
	feePercent, err := money.ParseRate(env.GetString("WITHDRAWAL_FEE_PERCENT", "10"))
	if err != nil {
		return err
	}
	cfg.Wallet.FeeSchedule.Rate = feePercent.Div(decimal.NewFromInt(100))

	cfg.Wallet.FeeSchedule.Min, err = money.Parse(env.GetString("WITHDRAWAL_FEE_MIN", "50"))
	if err != nil {
		return err
	}

	// an empty WITHDRAWAL_FEE_MAX means the fee is uncapped
	if maxFee := env.GetString("WITHDRAWAL_FEE_MAX", "2000"); maxFee != "" {
		parsed, err := money.Parse(maxFee)
		if err != nil {
			return err
		}
		cfg.Wallet.FeeSchedule.Max = &parsed
	}

	cfg.Wallet.MinWithdrawal, err = money.Parse(env.GetString("WITHDRAWAL_MIN_AMOUNT", "1000"))
	if err != nil {
		return err
	}

	referralPercent, err := money.ParseRate(env.GetString("REFERRAL_BONUS_PERCENT", "5"))
	if err != nil {
		return err
	}
	cfg.Wallet.ReferralRate = referralPercent.Div(decimal.NewFromInt(100))

	cfg.Wallet.SubscriptionAmountKobo = int64(env.GetInt("SUBSCRIPTION_AMOUNT_KOBO", 500000))
	cfg.Wallet.SubscriptionValidityDays = env.GetInt("SUBSCRIPTION_VALIDITY_DAYS", 366)

	return nil
}
