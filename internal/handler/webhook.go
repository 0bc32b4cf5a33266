package handler

import (
	dctx "context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/cradoe/quizash/internal/config"
	"github.com/cradoe/quizash/internal/errHandler"
	"github.com/cradoe/quizash/internal/helper"
	"github.com/cradoe/quizash/internal/models"
	"github.com/cradoe/quizash/internal/paystack"
	"github.com/cradoe/quizash/internal/repository"
	"github.com/cradoe/quizash/internal/response"
	"github.com/cradoe/quizash/internal/stream"
)

const (
	WebhookActivityLogRejectedSignatureDescription = "Rejected webhook with invalid signature"

	// the gateway retries on timeouts, so processing is bounded well below
	// its cutoff and anything slower is finished by a later delivery
	webhookProcessingTimeout = 15 * time.Second

	maxWebhookBodySize = 1_048_576

	// matches the note column size on withdrawal_requests
	maxNoteLength = 255
)

// truncateNote cuts a gateway-supplied reason down to limit bytes without
// splitting a multi-byte rune, since the database rejects invalid UTF-8.
func truncateNote(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

type webhookHandler struct {
	subscriptionRepo repository.SubscriptionRepository
	withdrawalRepo   repository.WithdrawalRepository
	referralRepo     repository.ReferralEarningRepository
	activityRepo     repository.ActivityRepository
	errHandler       *errHandler.ErrorHandler
	helper           *helper.HelperRepository
	kafka            *stream.KafkaStream
	config           *config.Config
}

func NewWebhookHandler(subscriptionRepo repository.SubscriptionRepository, withdrawalRepo repository.WithdrawalRepository, referralRepo repository.ReferralEarningRepository, activityRepo repository.ActivityRepository, errHandler *errHandler.ErrorHandler, helper *helper.HelperRepository, kafka *stream.KafkaStream, config *config.Config) *webhookHandler {
	return &webhookHandler{
		subscriptionRepo: subscriptionRepo,
		withdrawalRepo:   withdrawalRepo,
		referralRepo:     referralRepo,
		activityRepo:     activityRepo,
		errHandler:       errHandler,
		helper:           helper,
		kafka:            kafka,
		config:           config,
	}
}

type webhookEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type chargeEventData struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	PaidAt    string `json:"paid_at"`
}

type transferEventData struct {
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
	Status    string `json:"status"`
}

// HandlePaystackWebhook receives gateway events. The signature check over
// the raw body is the only authentication, so it runs before anything else
// and a mismatch is the only case that returns 400. Every recognized event
// is handled idempotently; unknown events are acknowledged and ignored so
// the gateway doesn't keep retrying them.
func (h *webhookHandler) HandlePaystackWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	signature := r.Header.Get("x-paystack-signature")
	if !paystack.ValidSignature(body, signature, h.config.Paystack.SecretKey) {
		h.helper.BackgroundTask(r, func() error {
			_, err := h.activityRepo.Insert(&repository.ActivityLog{
				Entity:      repository.ActivityLogWebhookEntity,
				EntityId:    "paystack",
				Description: WebhookActivityLogRejectedSignatureDescription,
			})
			if err != nil {
				log.Printf("Error logging rejected webhook signature: %v", err)
				return err
			}
			return nil
		})

		response.JSONErrorResponse(w, nil, "Invalid signature", http.StatusBadRequest, nil)
		return
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		// authenticated but malformed; acknowledge so the gateway stops
		// retrying a payload that will never parse
		h.acknowledge(w, r, "Event ignored")
		return
	}

	ctx, cancel := dctx.WithTimeout(r.Context(), webhookProcessingTimeout)
	defer cancel()

	switch envelope.Event {
	case "charge.success":
		h.handleChargeSuccess(ctx, w, r, envelope.Data)
	case "transfer.success":
		h.handleTransferOutcome(ctx, w, r, envelope.Data, models.WithdrawalStatusPaid)
	case "transfer.failed", "transfer.reversed":
		h.handleTransferOutcome(ctx, w, r, envelope.Data, models.WithdrawalStatusFailed)
	default:
		h.acknowledge(w, r, "Event ignored")
	}
}

// handleChargeSuccess confirms the referenced subscription and credits the
// referral bonus. The bonus engine no-ops once the bonus has been earned, so
// it runs on replays too and a credit that failed transiently on the first
// delivery is recovered by a later one.
func (h *webhookHandler) handleChargeSuccess(ctx dctx.Context, w http.ResponseWriter, r *http.Request, data json.RawMessage) {
	var charge chargeEventData
	if err := json.Unmarshal(data, &charge); err != nil || charge.Reference == "" {
		h.acknowledge(w, r, "Event ignored")
		return
	}

	paidAt := parseGatewayTime(charge.PaidAt)
	subscription, confirmedNow, err := h.subscriptionRepo.Confirm(ctx, charge.Reference, paidAt, h.config.Wallet.SubscriptionValidityDays)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.acknowledge(w, r, "Event ignored")
			return
		}
		h.errHandler.ServerError(w, r, err)
		return
	}

	// the payment is already confirmed at this point; crediting on every
	// delivery is safe because the bonus engine no-ops once earned, and it
	// lets a later delivery pick up a credit this one failed to make
	earning, err := h.referralRepo.CreditSubscriptionBonus(ctx, subscription, h.config.Wallet.ReferralRate)
	if err != nil {
		log.Printf("Error crediting referral bonus for subscription %s: %v", subscription.ID, err)
	} else if earning != nil {
		h.produceWalletCreditedEvent(r, earning)
	}

	if confirmedNow {
		h.helper.BackgroundTask(r, func() error {
			_, err := h.activityRepo.Insert(&repository.ActivityLog{
				UserID:      repository.NullString(subscription.UserID),
				Entity:      repository.ActivityLogSubscriptionEntity,
				EntityId:    subscription.ID,
				Description: SubscriptionActivityLogConfirmedDescription,
			})
			if err != nil {
				log.Printf("Error logging subscription confirmation: %v", err)
				return err
			}
			return nil
		})
	}

	h.acknowledge(w, r, "Event processed")
}

// handleTransferOutcome resolves a withdrawal by the transfer reference we
// stored when initiating the payout. Unknown references and requests that
// have already reached a terminal status are acknowledged without change.
func (h *webhookHandler) handleTransferOutcome(ctx dctx.Context, w http.ResponseWriter, r *http.Request, data json.RawMessage, targetStatus string) {
	var transfer transferEventData
	if err := json.Unmarshal(data, &transfer); err != nil || transfer.Reference == "" {
		h.acknowledge(w, r, "Event ignored")
		return
	}

	withdrawal, found, err := h.withdrawalRepo.FindByTransferReference(transfer.Reference)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.acknowledge(w, r, "Event ignored")
		return
	}

	note := truncateNote(transfer.Reason, maxNoteLength)

	updated, err := h.withdrawalRepo.UpdateStatus(ctx, withdrawal.ID, targetStatus, note)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTerminalState), errors.Is(err, repository.ErrInvalidTransition), errors.Is(err, repository.ErrNotFound):
			// a replayed or out-of-order delivery; the first one won
			h.acknowledge(w, r, "Event ignored")
		default:
			h.errHandler.ServerError(w, r, err)
		}
		return
	}

	h.helper.BackgroundTask(r, func() error {
		event := &stream.WithdrawalEvent{
			WithdrawalID: updated.ID,
			UserID:       updated.UserID,
			Amount:       updated.Amount.String(),
			NetAmount:    updated.NetAmount.String(),
			Status:       updated.Status,
			Note:         updated.Note.String,
		}

		message, err := json.Marshal(event)
		if err != nil {
			return err
		}

		err = h.kafka.ProduceMessage(stream.WithdrawalUpdatedTopic, string(message))
		if err != nil {
			log.Printf("Error producing withdrawal event: %v", err)
			return err
		}
		return nil
	})

	h.acknowledge(w, r, "Event processed")
}

func (h *webhookHandler) produceWalletCreditedEvent(r *http.Request, earning *models.ReferralEarning) {
	h.helper.BackgroundTask(r, func() error {
		event := &stream.WalletCreditedEvent{
			UserID:   earning.ReferrerID,
			Amount:   earning.Amount.String(),
			Reason:   "referral_bonus",
			SourceID: earning.SubscriptionID,
		}

		message, err := json.Marshal(event)
		if err != nil {
			return err
		}

		err = h.kafka.ProduceMessage(stream.WalletCreditedTopic, string(message))
		if err != nil {
			log.Printf("Error producing wallet credited event: %v", err)
			return err
		}
		return nil
	})
}

func (h *webhookHandler) acknowledge(w http.ResponseWriter, r *http.Request, message string) {
	err := response.JSONOkResponse(w, nil, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
