package handler

import (
	dctx "context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cradoe/quizash/internal/cache"
	"github.com/cradoe/quizash/internal/config"
	"github.com/cradoe/quizash/internal/context"
	"github.com/cradoe/quizash/internal/errHandler"
	"github.com/cradoe/quizash/internal/helper"
	"github.com/cradoe/quizash/internal/models"
	"github.com/cradoe/quizash/internal/money"
	"github.com/cradoe/quizash/internal/paystack"
	"github.com/cradoe/quizash/internal/repository"
	"github.com/cradoe/quizash/internal/request"
	"github.com/cradoe/quizash/internal/response"
	"github.com/cradoe/quizash/internal/stream"
	"github.com/cradoe/quizash/internal/validator"
)

var (
	ErrInvalidAmount          = errors.New("amount must be a valid number")
	ErrNonPositiveAmount      = errors.New("amount must be greater than zero")
	ErrBelowMinimumWithdrawal = errors.New("amount is below the minimum withdrawal")
	ErrNothingLeftAfterFee    = errors.New("amount is too small to cover the processing fee")
	ErrInsufficientBalance    = errors.New("insufficient withdrawable balance")
)

const WithdrawalActivityLogRequestedDescription = "Requested withdrawal"

type withdrawalHandler struct {
	walletRepo     repository.WalletRepository
	withdrawalRepo repository.WithdrawalRepository
	activityRepo   repository.ActivityRepository
	errHandler     *errHandler.ErrorHandler
	helper         *helper.HelperRepository
	kafka          *stream.KafkaStream
	paystack       *paystack.Client
	cache          *cache.Cache
	config         *config.Config
}

func NewWithdrawalHandler(walletRepo repository.WalletRepository, withdrawalRepo repository.WithdrawalRepository, activityRepo repository.ActivityRepository, errHandler *errHandler.ErrorHandler, helper *helper.HelperRepository, kafka *stream.KafkaStream, paystack *paystack.Client, cache *cache.Cache, config *config.Config) *withdrawalHandler {
	return &withdrawalHandler{
		walletRepo:     walletRepo,
		withdrawalRepo: withdrawalRepo,
		activityRepo:   activityRepo,
		errHandler:     errHandler,
		helper:         helper,
		kafka:          kafka,
		paystack:       paystack,
		cache:          cache,
		config:         config,
	}
}

type WithdrawalResponseData struct {
	ID            string      `json:"id"`
	Amount        money.Money `json:"amount"`
	Fee           money.Money `json:"fee"`
	NetAmount     money.Money `json:"net_amount"`
	BankName      string      `json:"bank_name"`
	AccountName   string      `json:"account_name"`
	AccountNumber string      `json:"account_number"`
	Status        string      `json:"status"`
	Note          string      `json:"note,omitempty"`
	CreatedAt     string      `json:"created_at"`
}

func newWithdrawalResponseData(wr *models.WithdrawalRequest) *WithdrawalResponseData {
	return &WithdrawalResponseData{
		ID:            wr.ID,
		Amount:        wr.Amount,
		Fee:           wr.Fee,
		NetAmount:     wr.NetAmount,
		BankName:      wr.BankName,
		AccountName:   wr.AccountName,
		AccountNumber: wr.AccountNumber,
		Status:        wr.Status,
		Note:          wr.Note.String,
		CreatedAt:     wr.CreatedAt.Format(time.RFC3339),
	}
}

// To request a withdrawal we:
// Step 1: Validate input and bank details
// Step 2: Compute the fee and make sure something is left to pay out
// Step 3: Reserve the gross amount against the wallet, which re-checks the
// withdrawable balance under a row lock and creates the pending request in
// the same transaction
// Step 4: Log the activity and notify the user in the background
func (h *withdrawalHandler) HandleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	var input struct {
		Amount        string              `json:"amount"`
		BankName      string              `json:"bank_name"`
		AccountName   string              `json:"account_name"`
		AccountNumber string              `json:"account_number"`
		BankCode      string              `json:"bank_code"`
		Validator     validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.BankName), "Bank name is required")
	input.Validator.Check(validator.NotBlank(input.AccountName), "Account name is required")
	input.Validator.Check(validator.Matches(input.AccountNumber, validator.RgxAccountNumber), "Account number must be 10 digits")
	input.Validator.Check(validator.Matches(input.BankCode, validator.RgxBankCode), "Bank code is invalid")
	input.Validator.Check(h.knownBankCode(input.BankCode), "Bank code is not recognized")

	amount, err := money.Parse(input.Amount)
	if err != nil {
		input.Validator.AddError(ErrInvalidAmount.Error())
	} else {
		input.Validator.Check(amount.IsPositive(), ErrNonPositiveAmount.Error())
		input.Validator.Check(!amount.LessThan(h.config.Wallet.MinWithdrawal), ErrBelowMinimumWithdrawal.Error())
	}

	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	fee, netAmount := h.config.Wallet.FeeSchedule.Apply(amount)
	if !netAmount.IsPositive() {
		h.errHandler.FailedValidation(w, r, []string{ErrNothingLeftAfterFee.Error()})
		return
	}

	withdrawal := &models.WithdrawalRequest{
		UserID:        user.ID,
		Amount:        amount,
		Fee:           fee,
		NetAmount:     netAmount,
		BankName:      input.BankName,
		AccountName:   input.AccountName,
		AccountNumber: input.AccountNumber,
		BankCode:      input.BankCode,
	}

	created, err := h.walletRepo.ReserveWithdrawal(r.Context(), withdrawal)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			h.errHandler.FailedValidation(w, r, []string{ErrInsufficientBalance.Error()})
			return
		}
		h.errHandler.ServerError(w, r, err)
		return
	}

	h.helper.BackgroundTask(r, func() error {
		_, err := h.activityRepo.Insert(&repository.ActivityLog{
			UserID:      repository.NullString(user.ID),
			Entity:      repository.ActivityLogWithdrawalEntity,
			EntityId:    created.ID,
			Description: WithdrawalActivityLogRequestedDescription,
		})
		if err != nil {
			log.Printf("Error logging withdrawal request action: %v", err)
			return err
		}
		return nil
	})

	h.produceWithdrawalEvent(r, created, user.Email)

	message := "Withdrawal request submitted"
	err = response.JSONCreatedResponse(w, newWithdrawalResponseData(created), message)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *withdrawalHandler) HandleUserWithdrawals(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	withdrawals, err := h.withdrawalRepo.GetAllByUserID(user.ID, 50)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := make([]*WithdrawalResponseData, 0, len(withdrawals))
	for i := range withdrawals {
		data = append(data, newWithdrawalResponseData(&withdrawals[i]))
	}

	message := "Withdrawals retrieved"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

// HandleUpdateWithdrawalStatus moves a request through the review pipeline.
// Only legal transitions are applied; a request in a terminal status cannot
// be changed again. Moving a request into processing also initiates the
// bank transfer with the gateway.
func (h *withdrawalHandler) HandleUpdateWithdrawalStatus(w http.ResponseWriter, r *http.Request) {
	operator := context.ContextGetAuthenticatedUser(r)
	withdrawalID := r.PathValue("id")

	var input struct {
		Status    string              `json:"status"`
		Note      string              `json:"note"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(withdrawalID), "Withdrawal id is required")
	input.Validator.Check(models.IsValidWithdrawalStatus(input.Status), "Unknown withdrawal status")
	input.Validator.Check(len(input.Note) <= 255, "Note is too long")

	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	updated, err := h.withdrawalRepo.UpdateStatus(r.Context(), withdrawalID, input.Status, input.Note)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			h.errHandler.NotFound(w, r)
		case errors.Is(err, repository.ErrTerminalState):
			h.errHandler.FailedValidation(w, r, []string{"Withdrawal request has already been finalized"})
		case errors.Is(err, repository.ErrInvalidTransition):
			h.errHandler.FailedValidation(w, r, []string{fmt.Sprintf("Withdrawal request cannot move to %s from its current status", input.Status)})
		default:
			h.errHandler.ServerError(w, r, err)
		}
		return
	}

	h.helper.BackgroundTask(r, func() error {
		_, err := h.activityRepo.Insert(&repository.ActivityLog{
			UserID:      repository.NullString(operator.ID),
			Entity:      repository.ActivityLogWithdrawalEntity,
			EntityId:    updated.ID,
			Description: fmt.Sprintf("Changed withdrawal status to %s", updated.Status),
		})
		if err != nil {
			log.Printf("Error logging withdrawal status change: %v", err)
			return err
		}
		return nil
	})

	if updated.Status == models.WithdrawalStatusProcessing {
		h.helper.BackgroundTask(r, func() error {
			return h.initiateTransfer(updated)
		})
	}

	h.produceWithdrawalEvent(r, updated, "")

	message := "Withdrawal status updated"
	err = response.JSONOkResponse(w, newWithdrawalResponseData(updated), message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

// knownBankCode checks the submitted code against the cached gateway bank
// list. When the list isn't cached the code passes on its format alone; the
// gateway rejects an unknown code at transfer time anyway.
func (h *withdrawalHandler) knownBankCode(code string) bool {
	var banks []paystack.Bank

	found, err := h.cache.GetJSON(bankListCacheKey, &banks)
	if err != nil || !found {
		return true
	}

	for _, bank := range banks {
		if bank.Code == code {
			return true
		}
	}
	return false
}

// initiateTransfer pays out the net amount through the gateway and stores
// the transfer reference so the confirming webhook can find the request.
// The reservation already happened; a failure here leaves the request in
// processing for the gateway's transfer webhook or a support retry.
func (h *withdrawalHandler) initiateTransfer(wr *models.WithdrawalRequest) error {
	ctx, cancel := dctx.WithTimeout(dctx.Background(), 30*time.Second)
	defer cancel()

	recipientCode := wr.RecipientCode.String
	if recipientCode == "" {
		recipient, err := h.paystack.CreateTransferRecipient(ctx, wr.AccountName, wr.AccountNumber, wr.BankCode)
		if err != nil {
			log.Printf("Error creating transfer recipient for withdrawal %s: %v", wr.ID, err)
			return err
		}
		recipientCode = recipient.RecipientCode
	}

	reference := "WD_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	transfer, err := h.paystack.InitiateTransfer(ctx, recipientCode, wr.NetAmount.Kobo(), reference, "Wallet withdrawal")
	if err != nil {
		log.Printf("Error initiating transfer for withdrawal %s: %v", wr.ID, err)
		return err
	}

	err = h.withdrawalRepo.SetTransferDetails(wr.ID, recipientCode, transfer.TransferCode, reference)
	if err != nil {
		log.Printf("Error saving transfer details for withdrawal %s: %v", wr.ID, err)
		return err
	}

	return nil
}

// produceWithdrawalEvent pushes the latest snapshot of a request onto the
// stream so the notification worker can email the owner. Delivery is best
// effort; a broker outage must not fail the request.
func (h *withdrawalHandler) produceWithdrawalEvent(r *http.Request, wr *models.WithdrawalRequest, email string) {
	h.helper.BackgroundTask(r, func() error {
		event := &stream.WithdrawalEvent{
			WithdrawalID: wr.ID,
			UserID:       wr.UserID,
			Email:        email,
			Amount:       wr.Amount.String(),
			NetAmount:    wr.NetAmount.String(),
			Status:       wr.Status,
			Note:         wr.Note.String,
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
}
