package handler

import (
	"net/http"

	"github.com/cradoe/quizash/internal/context"
	"github.com/cradoe/quizash/internal/errHandler"
	"github.com/cradoe/quizash/internal/money"
	"github.com/cradoe/quizash/internal/repository"
	"github.com/cradoe/quizash/internal/response"
)

type walletHandler struct {
	walletRepo repository.WalletRepository
	errHandler *errHandler.ErrorHandler
}

func NewWalletHandler(walletRepo repository.WalletRepository, errHandler *errHandler.ErrorHandler) *walletHandler {
	return &walletHandler{
		walletRepo: walletRepo,
		errHandler: errHandler,
	}
}

type WalletResponseData struct {
	Balance      money.Money `json:"balance"`
	Withdrawable money.Money `json:"withdrawable"`
	Currency     string      `json:"currency"`
}

// HandleWalletDetails returns the raw balance alongside the withdrawable
// figure, which nets out funds already reserved by in-flight withdrawals.
// The withdrawable figure shown here is advisory; the reservation step
// recomputes it under a row lock before any money moves.
func (h *walletHandler) HandleWalletDetails(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	balance, found, err := h.walletRepo.Balance(user.ID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.errHandler.NotFound(w, r)
		return
	}

	withdrawable, err := h.walletRepo.WithdrawableBalance(user.ID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := &WalletResponseData{
		Balance:      balance,
		Withdrawable: withdrawable,
		Currency:     "NGN",
	}

	message := "Wallet details retrieved"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
