package app

import (
	"net/http"

	"github.com/cradoe/quizash/internal/handler"
	"github.com/cradoe/quizash/internal/middleware"
)

func (app *Application) routes() http.Handler {
	mux := http.NewServeMux()

	middlewareRepo := middleware.New(app.errorHandler, app.Logger, app.DB.User(), &app.Config)

	healthHandler := handler.NewHealthCheckHandler(app.errorHandler)
	authHandler := handler.NewAuthHandler(app.DB.User(), app.DB.Activity(), app.errorHandler, app.Helper, &app.Config)
	bankHandler := handler.NewBankHandler(app.Paystack, app.Cache, app.errorHandler)
	walletHandler := handler.NewWalletHandler(app.DB.Wallet(), app.errorHandler)
	withdrawalHandler := handler.NewWithdrawalHandler(app.DB.Wallet(), app.DB.Withdrawal(), app.DB.Activity(), app.errorHandler, app.Helper, app.Kafka, app.Paystack, app.Cache, &app.Config)
	subscriptionHandler := handler.NewSubscriptionHandler(app.DB.Subscription(), app.DB.ReferralEarning(), app.DB.Activity(), app.errorHandler, app.Helper, app.Paystack, &app.Config)
	referralHandler := handler.NewReferralHandler(app.DB.ReferralEarning(), app.errorHandler)
	webhookHandler := handler.NewWebhookHandler(app.DB.Subscription(), app.DB.Withdrawal(), app.DB.ReferralEarning(), app.DB.Activity(), app.errorHandler, app.Helper, app.Kafka, &app.Config)

	mux.HandleFunc("GET /status", healthHandler.HandleHealthCheck)

	mux.HandleFunc("POST /auth/register", authHandler.HandleAuthRegister)
	mux.HandleFunc("POST /auth/login", authHandler.HandleAuthLogin)

	// the gateway authenticates itself with a signature, not a bearer token
	mux.HandleFunc("POST /webhooks/paystack", webhookHandler.HandlePaystackWebhook)

	authenticated := middlewareRepo.RequireAuthenticatedUser

	mux.Handle("GET /banks", authenticated(http.HandlerFunc(bankHandler.HandleListBanks)))
	mux.Handle("GET /wallet", authenticated(http.HandlerFunc(walletHandler.HandleWalletDetails)))

	mux.Handle("POST /withdrawals", authenticated(http.HandlerFunc(withdrawalHandler.HandleRequestWithdrawal)))
	mux.Handle("GET /withdrawals", authenticated(http.HandlerFunc(withdrawalHandler.HandleUserWithdrawals)))

	mux.Handle("POST /subscriptions", authenticated(http.HandlerFunc(subscriptionHandler.HandleStartSubscription)))
	mux.Handle("GET /subscriptions/verify", authenticated(http.HandlerFunc(subscriptionHandler.HandleVerifySubscription)))

	mux.Handle("GET /referrals/stats", authenticated(http.HandlerFunc(referralHandler.HandleReferralStats)))

	mux.Handle("PATCH /admin/withdrawals/{id}/status", middlewareRepo.RequireAdminUser(http.HandlerFunc(withdrawalHandler.HandleUpdateWithdrawalStatus)))

	return middlewareRepo.LogAccess(middlewareRepo.RecoverPanic(middlewareRepo.Authenticate(mux)))
}
