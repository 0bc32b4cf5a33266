package handler

import (
	dctx "context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cradoe/quizash/internal/config"
	"github.com/cradoe/quizash/internal/context"
	"github.com/cradoe/quizash/internal/errHandler"
	"github.com/cradoe/quizash/internal/helper"
	"github.com/cradoe/quizash/internal/models"
	"github.com/cradoe/quizash/internal/money"
	"github.com/cradoe/quizash/internal/paystack"
	"github.com/cradoe/quizash/internal/repository"
	"github.com/cradoe/quizash/internal/response"
	"github.com/cradoe/quizash/internal/validator"
)

const (
	SubscriptionActivityLogStartedDescription   = "Started subscription payment"
	SubscriptionActivityLogConfirmedDescription = "Confirmed subscription payment"
)

type subscriptionHandler struct {
	subscriptionRepo repository.SubscriptionRepository
	referralRepo     repository.ReferralEarningRepository
	activityRepo     repository.ActivityRepository
	errHandler       *errHandler.ErrorHandler
	helper           *helper.HelperRepository
	paystack         *paystack.Client
	config           *config.Config
}

func NewSubscriptionHandler(subscriptionRepo repository.SubscriptionRepository, referralRepo repository.ReferralEarningRepository, activityRepo repository.ActivityRepository, errHandler *errHandler.ErrorHandler, helper *helper.HelperRepository, paystack *paystack.Client, config *config.Config) *subscriptionHandler {
	return &subscriptionHandler{
		subscriptionRepo: subscriptionRepo,
		referralRepo:     referralRepo,
		activityRepo:     activityRepo,
		errHandler:       errHandler,
		helper:           helper,
		paystack:         paystack,
		config:           config,
	}
}

type SubscriptionResponseData struct {
	Reference        string      `json:"reference"`
	Amount           money.Money `json:"amount"`
	Currency         string      `json:"currency"`
	IsConfirmed      bool        `json:"is_confirmed"`
	ExpiresAt        string      `json:"expires_at,omitempty"`
	AuthorizationURL string      `json:"authorization_url,omitempty"`
}

// HandleStartSubscription creates an unconfirmed subscription record and a
// matching gateway checkout. Confirmation comes later, either from the
// charge webhook or from the verify endpoint, never from this call.
func (h *subscriptionHandler) HandleStartSubscription(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	active, found, err := h.subscriptionRepo.FindActiveByUserID(user.ID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if found {
		data := &SubscriptionResponseData{
			Reference:   active.Reference,
			Amount:      active.Amount,
			Currency:    active.Currency,
			IsConfirmed: true,
			ExpiresAt:   active.ExpiresAt.Time.Format(time.RFC3339),
		}
		message := "You already have an active subscription"
		err = response.JSONOkResponse(w, data, message, nil)
		if err != nil {
			h.errHandler.ServerError(w, r, err)
		}
		return
	}

	reference := "SUB_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	amountKobo := h.config.Wallet.SubscriptionAmountKobo

	subscription := &models.Subscription{
		UserID:    user.ID,
		Amount:    money.FromKobo(amountKobo),
		Currency:  "NGN",
		Reference: reference,
	}

	subscriptionID, err := h.subscriptionRepo.Insert(subscription)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	callbackURL := h.config.BaseURL + "/subscriptions/verify?reference=" + reference
	authorization, err := h.paystack.InitializeTransaction(r.Context(), user.Email, amountKobo, reference, callbackURL)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	h.helper.BackgroundTask(r, func() error {
		_, err := h.activityRepo.Insert(&repository.ActivityLog{
			UserID:      repository.NullString(user.ID),
			Entity:      repository.ActivityLogSubscriptionEntity,
			EntityId:    subscriptionID,
			Description: SubscriptionActivityLogStartedDescription,
		})
		if err != nil {
			log.Printf("Error logging subscription start action: %v", err)
			return err
		}
		return nil
	})

	data := &SubscriptionResponseData{
		Reference:        reference,
		Amount:           subscription.Amount,
		Currency:         subscription.Currency,
		AuthorizationURL: authorization.AuthorizationURL,
	}

	message := "Subscription payment initialized"
	err = response.JSONCreatedResponse(w, data, message)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

// HandleVerifySubscription is the user-driven fallback for when the charge
// webhook is delayed. It asks the gateway for the transaction status and
// runs the same confirmation path the webhook uses, so replays are safe.
func (h *subscriptionHandler) HandleVerifySubscription(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)
	reference := r.URL.Query().Get("reference")

	var v validator.Validator
	v.Check(validator.NotBlank(reference), "Reference is required")
	if v.HasErrors() {
		h.errHandler.FailedValidation(w, r, v.Errors)
		return
	}

	subscription, found, err := h.subscriptionRepo.FindByReference(reference)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !found || subscription.UserID != user.ID {
		h.errHandler.NotFound(w, r)
		return
	}

	if !subscription.IsConfirmed {
		transaction, err := h.paystack.VerifyTransaction(r.Context(), reference)
		if err != nil {
			h.errHandler.ServerError(w, r, err)
			return
		}

		if transaction.Status != "success" {
			message := "Payment has not been confirmed yet"
			err = response.JSONOkResponse(w, &SubscriptionResponseData{
				Reference: reference,
				Amount:    subscription.Amount,
				Currency:  subscription.Currency,
			}, message, nil)
			if err != nil {
				h.errHandler.ServerError(w, r, err)
			}
			return
		}

		paidAt := parseGatewayTime(transaction.PaidAt)
		confirmed, confirmedNow, err := h.subscriptionRepo.Confirm(r.Context(), reference, paidAt, h.config.Wallet.SubscriptionValidityDays)
		if err != nil {
			h.errHandler.ServerError(w, r, err)
			return
		}
		subscription = confirmed

		if confirmedNow {
			h.creditReferralBonus(r, subscription)
		}
	}

	data := &SubscriptionResponseData{
		Reference:   subscription.Reference,
		Amount:      subscription.Amount,
		Currency:    subscription.Currency,
		IsConfirmed: subscription.IsConfirmed,
	}
	if subscription.ExpiresAt.Valid {
		data.ExpiresAt = subscription.ExpiresAt.Time.Format(time.RFC3339)
	}

	message := "Subscription retrieved"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

// creditReferralBonus pays the referrer their cut of a newly confirmed
// subscription. The repository no-ops when the payer was not referred or
// the subscription has already earned a bonus, so calling it from both the
// webhook and the verify endpoint cannot double credit.
func (h *subscriptionHandler) creditReferralBonus(r *http.Request, subscription *models.Subscription) {
	h.helper.BackgroundTask(r, func() error {
		ctx, cancel := dctx.WithTimeout(dctx.Background(), 10*time.Second)
		defer cancel()

		earning, err := h.referralRepo.CreditSubscriptionBonus(ctx, subscription, h.config.Wallet.ReferralRate)
		if err != nil {
			log.Printf("Error crediting referral bonus for subscription %s: %v", subscription.ID, err)
			return err
		}
		if earning != nil {
			_, err = h.activityRepo.Insert(&repository.ActivityLog{
				UserID:      repository.NullString(earning.ReferrerID),
				Entity:      repository.ActivityLogSubscriptionEntity,
				EntityId:    subscription.ID,
				Description: SubscriptionActivityLogConfirmedDescription,
			})
			if err != nil {
				log.Printf("Error logging referral bonus action: %v", err)
			}
		}
		return nil
	})
}

// parseGatewayTime tolerates the gateway's timestamp format drifting; a
// missing or unparseable value falls back to the current time.
func parseGatewayTime(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000Z"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed
		}
	}
	return time.Now()
}
