package handler

import (
	"net/http"
	"time"

	"github.com/cradoe/quizash/internal/context"
	"github.com/cradoe/quizash/internal/errHandler"
	"github.com/cradoe/quizash/internal/money"
	"github.com/cradoe/quizash/internal/repository"
	"github.com/cradoe/quizash/internal/response"
)

type referralHandler struct {
	referralRepo repository.ReferralEarningRepository
	errHandler   *errHandler.ErrorHandler
}

func NewReferralHandler(referralRepo repository.ReferralEarningRepository, errHandler *errHandler.ErrorHandler) *referralHandler {
	return &referralHandler{
		referralRepo: referralRepo,
		errHandler:   errHandler,
	}
}

type ReferralEarningResponseData struct {
	Amount    money.Money `json:"amount"`
	CreatedAt string      `json:"created_at"`
}

type ReferralStatsResponseData struct {
	ReferralCode   string                        `json:"referral_code"`
	TotalReferrals int                           `json:"total_referrals"`
	TotalEarnings  money.Money                   `json:"total_earnings"`
	RecentEarnings []ReferralEarningResponseData `json:"recent_earnings"`
}

func (h *referralHandler) HandleReferralStats(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	stats, err := h.referralRepo.StatsForUser(user.ID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	recent, err := h.referralRepo.RecentForUser(user.ID, 10)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	recentData := make([]ReferralEarningResponseData, 0, len(recent))
	for _, earning := range recent {
		recentData = append(recentData, ReferralEarningResponseData{
			Amount:    earning.Amount,
			CreatedAt: earning.CreatedAt.Format(time.RFC3339),
		})
	}

	data := &ReferralStatsResponseData{
		ReferralCode:   user.ReferralCode,
		TotalReferrals: stats.TotalReferrals,
		TotalEarnings:  stats.TotalEarnings,
		RecentEarnings: recentData,
	}

	message := "Referral stats retrieved"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
