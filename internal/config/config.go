package config

import (
	"github.com/cradoe/quizash/internal/money"
	"github.com/shopspring/decimal"
)

type Config struct {
	BaseURL  string
	HttpPort int
	Db       struct {
		Dsn         string
		Automigrate bool
	}
	Jwt struct {
		SecretKey string
	}
	Notifications struct {
		Email string
	}
	Smtp struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
	Paystack struct {
		SecretKey string
		PublicKey string
	}
	// Wallet carries every monetary knob as parsed values, so handlers never
	// read ambient config strings and tests can supply deterministic numbers.
	Wallet struct {
		FeeSchedule              money.FeeSchedule
		MinWithdrawal            money.Money
		ReferralRate             decimal.Decimal
		SubscriptionAmountKobo   int64
		SubscriptionValidityDays int
	}
	RedisServer  string
	KafkaServers string
}
