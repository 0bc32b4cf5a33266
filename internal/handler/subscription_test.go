package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cradoe/quizash/internal/helper"
	"github.com/cradoe/quizash/internal/models"
	"github.com/cradoe/quizash/internal/paystack"
	"github.com/cradoe/quizash/internal/repository"
)

func newSubscriptionTestEnv(gatewayURL string) (*subscriptionHandler, *MockSubscriptionRepo, *MockReferralRepo, *sync.WaitGroup) {
	mockSubscriptionRepo := new(MockSubscriptionRepo)
	mockReferralRepo := new(MockReferralRepo)
	mockActivityRepo := new(MockActivityRepo)
	mockActivityRepo.On("Insert", mock.Anything).Return(&repository.ActivityLog{}, nil).Maybe()

	var baseURL string = "http://localhost"
	var wg sync.WaitGroup
	mockHelper := helper.New(&baseURL, &wg, &MockErrorReporter{})

	h := NewSubscriptionHandler(
		mockSubscriptionRepo,
		mockReferralRepo,
		mockActivityRepo,
		newTestErrorHandler(),
		mockHelper,
		paystack.New("sk_test", paystack.WithBaseURL(gatewayURL)),
		newTestConfig(),
	)

	return h, mockSubscriptionRepo, mockReferralRepo, &wg
}

func TestHandleVerifySubscription_ConfirmsAndCreditsBonus(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction/verify/SUB_abc", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":true,"message":"Verification successful","data":{"reference":"SUB_abc","status":"success","amount":500000,"paid_at":"2026-08-01T10:00:00Z","currency":"NGN"}}`)
	}))
	defer gateway.Close()

	h, mockSubscriptionRepo, mockReferralRepo, wg := newSubscriptionTestEnv(gateway.URL)

	pending := &models.Subscription{
		ID:        "sub-1",
		UserID:    "user-1",
		Amount:    mustMoney("5000"),
		Currency:  "NGN",
		Reference: "SUB_abc",
	}
	confirmed := &models.Subscription{
		ID:          "sub-1",
		UserID:      "user-1",
		Amount:      mustMoney("5000"),
		Currency:    "NGN",
		Reference:   "SUB_abc",
		IsConfirmed: true,
	}

	mockSubscriptionRepo.On("FindByReference", "SUB_abc").Return(pending, true, nil)
	mockSubscriptionRepo.On("Confirm", "SUB_abc").Return(confirmed, true, nil)
	mockReferralRepo.On("CreditSubscriptionBonus", "sub-1").Return(&models.ReferralEarning{
		ID:         "earning-1",
		ReferrerID: "referrer-1",
		Amount:     mustMoney("250"),
	}, nil)

	req := authenticatedRequest(t, "GET", "/subscriptions/verify?reference=SUB_abc", nil, testUser())
	rr := httptest.NewRecorder()

	h.HandleVerifySubscription(rr, req)
	wg.Wait()

	require.Equal(t, http.StatusOK, rr.Code)

	var response map[string]interface{}
	err := json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)

	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "Expected response['data'] to be a map")
	require.Equal(t, true, data["is_confirmed"])

	mockSubscriptionRepo.AssertExpectations(t)
	mockReferralRepo.AssertExpectations(t)
}

func TestHandleVerifySubscription_PendingPaymentDoesNotConfirm(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":true,"message":"Verification successful","data":{"reference":"SUB_abc","status":"abandoned","amount":500000,"currency":"NGN"}}`)
	}))
	defer gateway.Close()

	h, mockSubscriptionRepo, mockReferralRepo, wg := newSubscriptionTestEnv(gateway.URL)

	pending := &models.Subscription{
		ID:        "sub-1",
		UserID:    "user-1",
		Amount:    mustMoney("5000"),
		Currency:  "NGN",
		Reference: "SUB_abc",
	}

	mockSubscriptionRepo.On("FindByReference", "SUB_abc").Return(pending, true, nil)

	req := authenticatedRequest(t, "GET", "/subscriptions/verify?reference=SUB_abc", nil, testUser())
	rr := httptest.NewRecorder()

	h.HandleVerifySubscription(rr, req)
	wg.Wait()

	require.Equal(t, http.StatusOK, rr.Code)
	mockSubscriptionRepo.AssertNotCalled(t, "Confirm", mock.Anything)
	mockReferralRepo.AssertNotCalled(t, "CreditSubscriptionBonus", mock.Anything)
}

func TestHandleVerifySubscription_OtherUsersReferenceIsHidden(t *testing.T) {
	h, mockSubscriptionRepo, _, _ := newSubscriptionTestEnv("http://localhost:0")

	other := &models.Subscription{
		ID:        "sub-2",
		UserID:    "someone-else",
		Reference: "SUB_abc",
	}

	mockSubscriptionRepo.On("FindByReference", "SUB_abc").Return(other, true, nil)

	req := authenticatedRequest(t, "GET", "/subscriptions/verify?reference=SUB_abc", nil, testUser())
	rr := httptest.NewRecorder()

	h.HandleVerifySubscription(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}
