package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/cradoe/quizash/internal/cache"
	"github.com/cradoe/quizash/internal/errHandler"
	"github.com/cradoe/quizash/internal/paystack"
	"github.com/cradoe/quizash/internal/response"
)

const (
	bankListCacheKey = "paystack:banks"
	bankListCacheTTL = 24 * time.Hour
)

type bankHandler struct {
	paystack   *paystack.Client
	cache      *cache.Cache
	errHandler *errHandler.ErrorHandler
}

func NewBankHandler(paystack *paystack.Client, cache *cache.Cache, errHandler *errHandler.ErrorHandler) *bankHandler {
	return &bankHandler{
		paystack:   paystack,
		cache:      cache,
		errHandler: errHandler,
	}
}

// HandleListBanks serves the gateway's bank catalogue from cache. The list
// changes rarely, so a stale read is acceptable and saves an upstream call
// on nearly every request.
func (h *bankHandler) HandleListBanks(w http.ResponseWriter, r *http.Request) {
	var banks []paystack.Bank

	found, err := h.cache.GetJSON(bankListCacheKey, &banks)
	if err != nil {
		log.Printf("Error reading bank list cache: %v", err)
	}

	if !found {
		banks, err = h.paystack.ListBanks(r.Context())
		if err != nil {
			h.errHandler.ServerError(w, r, err)
			return
		}

		if err := h.cache.SetJSON(bankListCacheKey, banks, bankListCacheTTL); err != nil {
			log.Printf("Error caching bank list: %v", err)
		}
	}

	message := "Banks retrieved"
	err = response.JSONOkResponse(w, banks, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
