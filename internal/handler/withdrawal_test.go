package handler

import (
	"bytes"
	dctx "context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cradoe/quizash/internal/cache"
	"github.com/cradoe/quizash/internal/context"
	"github.com/cradoe/quizash/internal/helper"
	"github.com/cradoe/quizash/internal/models"
	"github.com/cradoe/quizash/internal/money"
	"github.com/cradoe/quizash/internal/paystack"
	"github.com/cradoe/quizash/internal/repository"
	"github.com/cradoe/quizash/internal/stream"
)

// MockWalletRepo implements WalletRepository but only mocks the needed methods.
type MockWalletRepo struct {
	mock.Mock
}

func (m *MockWalletRepo) Balance(userID string) (money.Money, bool, error) {
	args := m.Called(userID)
	return args.Get(0).(money.Money), args.Bool(1), args.Error(2)
}

func (m *MockWalletRepo) WithdrawableBalance(userID string) (money.Money, error) {
	args := m.Called(userID)
	return args.Get(0).(money.Money), args.Error(1)
}

func (m *MockWalletRepo) ReserveWithdrawal(ctx dctx.Context, request *models.WithdrawalRequest) (*models.WithdrawalRequest, error) {
	args := m.Called(request)
	return args.Get(0).(*models.WithdrawalRequest), args.Error(1)
}

func (m *MockWalletRepo) Credit(ctx dctx.Context, userID string, amount money.Money, transactionType string) error {
	return nil
}

type withdrawalTestEnv struct {
	handler    *withdrawalHandler
	wallet     *MockWalletRepo
	withdrawal *MockWithdrawalRepo
	activity   *MockActivityRepo
	wg         *sync.WaitGroup
}

func newWithdrawalTestEnv() *withdrawalTestEnv {
	mockWalletRepo := new(MockWalletRepo)
	mockWithdrawalRepo := new(MockWithdrawalRepo)
	mockActivityRepo := new(MockActivityRepo)

	var baseURL string = "http://localhost"
	var wg sync.WaitGroup
	mockHelper := helper.New(&baseURL, &wg, &MockErrorReporter{})

	h := NewWithdrawalHandler(
		mockWalletRepo,
		mockWithdrawalRepo,
		mockActivityRepo,
		newTestErrorHandler(),
		mockHelper,
		stream.New("localhost:9092"),
		paystack.New("sk_test"),
		cache.New("localhost:6379", 0),
		newTestConfig(),
	)

	return &withdrawalTestEnv{
		handler:    h,
		wallet:     mockWalletRepo,
		withdrawal: mockWithdrawalRepo,
		activity:   mockActivityRepo,
		wg:         &wg,
	}
}

func authenticatedRequest(t *testing.T, method, target string, body any, user *models.User) *http.Request {
	t.Helper()

	requestBody, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(method, target, bytes.NewBuffer(requestBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	return context.ContextSetAuthenticatedUser(req, user)
}

func testUser() *models.User {
	return &models.User{
		ID:           "user-1",
		FirstName:    "Ada",
		LastName:     "Obi",
		Email:        "ada@example.com",
		ReferralCode: "QZX42ABC",
		Status:       repository.UserAccountActiveStatus,
	}
}

func validWithdrawalInput() map[string]string {
	return map[string]string{
		"amount":         "5000",
		"bank_name":      "Access Bank",
		"account_name":   "Ada Obi",
		"account_number": "0123456789",
		"bank_code":      "044",
	}
}

func TestHandleRequestWithdrawal_Success(t *testing.T) {
	env := newWithdrawalTestEnv()

	created := &models.WithdrawalRequest{
		ID:            "wd-1",
		UserID:        "user-1",
		Amount:        mustMoney("5000"),
		Fee:           mustMoney("500"),
		NetAmount:     mustMoney("4500"),
		BankName:      "Access Bank",
		AccountName:   "Ada Obi",
		AccountNumber: "0123456789",
		BankCode:      "044",
		Status:        models.WithdrawalStatusPending,
		CreatedAt:     time.Now(),
	}

	env.wallet.On("ReserveWithdrawal", mock.MatchedBy(func(wr *models.WithdrawalRequest) bool {
		// a 10% fee on 5000, within the floor and the ceiling
		return wr.Amount.Equal(mustMoney("5000")) &&
			wr.Fee.Equal(mustMoney("500")) &&
			wr.NetAmount.Equal(mustMoney("4500"))
	})).Return(created, nil)
	env.activity.On("Insert", mock.Anything).Return(&repository.ActivityLog{}, nil).Maybe()

	req := authenticatedRequest(t, "POST", "/withdrawals", validWithdrawalInput(), testUser())
	rr := httptest.NewRecorder()

	env.handler.HandleRequestWithdrawal(rr, req)
	env.wg.Wait()

	require.Equal(t, http.StatusCreated, rr.Code)

	var response map[string]interface{}
	err := json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)

	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "Expected response['data'] to be a map")

	require.Equal(t, "pending", data["status"])
	require.Equal(t, "5000.00", data["amount"])
	require.Equal(t, "500.00", data["fee"])
	require.Equal(t, "4500.00", data["net_amount"])

	env.wallet.AssertExpectations(t)
}

func TestHandleRequestWithdrawal_FeeFloorApplies(t *testing.T) {
	env := newWithdrawalTestEnv()

	created := &models.WithdrawalRequest{
		ID:        "wd-1",
		UserID:    "user-1",
		Status:    models.WithdrawalStatusPending,
		CreatedAt: time.Now(),
	}

	// 10% of 400 is 40, below the 50 floor
	input := validWithdrawalInput()
	input["amount"] = "400"

	cfg := env.handler.config
	cfg.Wallet.MinWithdrawal = mustMoney("100")

	env.wallet.On("ReserveWithdrawal", mock.MatchedBy(func(wr *models.WithdrawalRequest) bool {
		return wr.Fee.Equal(mustMoney("50")) && wr.NetAmount.Equal(mustMoney("350"))
	})).Return(created, nil)
	env.activity.On("Insert", mock.Anything).Return(&repository.ActivityLog{}, nil).Maybe()

	req := authenticatedRequest(t, "POST", "/withdrawals", input, testUser())
	rr := httptest.NewRecorder()

	env.handler.HandleRequestWithdrawal(rr, req)
	env.wg.Wait()

	require.Equal(t, http.StatusCreated, rr.Code)
	env.wallet.AssertExpectations(t)
}

func TestHandleRequestWithdrawal_BelowMinimumFails(t *testing.T) {
	env := newWithdrawalTestEnv()

	input := validWithdrawalInput()
	input["amount"] = "500"

	req := authenticatedRequest(t, "POST", "/withdrawals", input, testUser())
	rr := httptest.NewRecorder()

	env.handler.HandleRequestWithdrawal(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	env.wallet.AssertNotCalled(t, "ReserveWithdrawal", mock.Anything)
}

func TestHandleRequestWithdrawal_InvalidAmountFails(t *testing.T) {
	env := newWithdrawalTestEnv()

	for _, amount := range []string{"", "abc", "0", "-100"} {
		input := validWithdrawalInput()
		input["amount"] = amount

		req := authenticatedRequest(t, "POST", "/withdrawals", input, testUser())
		rr := httptest.NewRecorder()

		env.handler.HandleRequestWithdrawal(rr, req)

		require.Equal(t, http.StatusUnprocessableEntity, rr.Code, "amount %q should be rejected", amount)
	}

	env.wallet.AssertNotCalled(t, "ReserveWithdrawal", mock.Anything)
}

func TestHandleRequestWithdrawal_InvalidBankDetailsFail(t *testing.T) {
	env := newWithdrawalTestEnv()

	input := validWithdrawalInput()
	input["account_number"] = "12345"

	req := authenticatedRequest(t, "POST", "/withdrawals", input, testUser())
	rr := httptest.NewRecorder()

	env.handler.HandleRequestWithdrawal(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	env.wallet.AssertNotCalled(t, "ReserveWithdrawal", mock.Anything)
}

func TestHandleRequestWithdrawal_InsufficientBalanceFails(t *testing.T) {
	env := newWithdrawalTestEnv()

	env.wallet.On("ReserveWithdrawal", mock.Anything).Return((*models.WithdrawalRequest)(nil), repository.ErrInsufficientFunds)

	req := authenticatedRequest(t, "POST", "/withdrawals", validWithdrawalInput(), testUser())
	rr := httptest.NewRecorder()

	env.handler.HandleRequestWithdrawal(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	env.wallet.AssertExpectations(t)
}

func TestHandleUpdateWithdrawalStatus_Approve(t *testing.T) {
	env := newWithdrawalTestEnv()

	approved := &models.WithdrawalRequest{
		ID:        "wd-1",
		UserID:    "user-1",
		Status:    models.WithdrawalStatusApproved,
		CreatedAt: time.Now(),
	}

	env.withdrawal.On("UpdateStatus", "wd-1", models.WithdrawalStatusApproved, "").Return(approved, nil)
	env.activity.On("Insert", mock.Anything).Return(&repository.ActivityLog{}, nil).Maybe()

	req := authenticatedRequest(t, "PATCH", "/admin/withdrawals/wd-1/status", map[string]string{"status": "approved"}, testUser())
	req.SetPathValue("id", "wd-1")
	rr := httptest.NewRecorder()

	env.handler.HandleUpdateWithdrawalStatus(rr, req)
	env.wg.Wait()

	require.Equal(t, http.StatusOK, rr.Code)
	env.withdrawal.AssertExpectations(t)
}

func TestHandleUpdateWithdrawalStatus_UnknownStatusFails(t *testing.T) {
	env := newWithdrawalTestEnv()

	req := authenticatedRequest(t, "PATCH", "/admin/withdrawals/wd-1/status", map[string]string{"status": "archived"}, testUser())
	req.SetPathValue("id", "wd-1")
	rr := httptest.NewRecorder()

	env.handler.HandleUpdateWithdrawalStatus(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	env.withdrawal.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleUpdateWithdrawalStatus_TerminalRequestFails(t *testing.T) {
	env := newWithdrawalTestEnv()

	env.withdrawal.On("UpdateStatus", "wd-1", models.WithdrawalStatusRejected, "").Return((*models.WithdrawalRequest)(nil), repository.ErrTerminalState)

	req := authenticatedRequest(t, "PATCH", "/admin/withdrawals/wd-1/status", map[string]string{"status": "rejected"}, testUser())
	req.SetPathValue("id", "wd-1")
	rr := httptest.NewRecorder()

	env.handler.HandleUpdateWithdrawalStatus(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	env.withdrawal.AssertExpectations(t)
}

func TestHandleUpdateWithdrawalStatus_InvalidTransitionFails(t *testing.T) {
	env := newWithdrawalTestEnv()

	env.withdrawal.On("UpdateStatus", "wd-1", models.WithdrawalStatusPaid, "").Return((*models.WithdrawalRequest)(nil), repository.ErrInvalidTransition)

	req := authenticatedRequest(t, "PATCH", "/admin/withdrawals/wd-1/status", map[string]string{"status": "paid"}, testUser())
	req.SetPathValue("id", "wd-1")
	rr := httptest.NewRecorder()

	env.handler.HandleUpdateWithdrawalStatus(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	env.withdrawal.AssertExpectations(t)
}

func TestHandleUpdateWithdrawalStatus_NotFound(t *testing.T) {
	env := newWithdrawalTestEnv()

	env.withdrawal.On("UpdateStatus", "wd-missing", models.WithdrawalStatusApproved, "").Return((*models.WithdrawalRequest)(nil), repository.ErrNotFound)

	req := authenticatedRequest(t, "PATCH", "/admin/withdrawals/wd-missing/status", map[string]string{"status": "approved"}, testUser())
	req.SetPathValue("id", "wd-missing")
	rr := httptest.NewRecorder()

	env.handler.HandleUpdateWithdrawalStatus(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	env.withdrawal.AssertExpectations(t)
}

func TestHandleUserWithdrawals(t *testing.T) {
	env := newWithdrawalTestEnv()

	withdrawals := []models.WithdrawalRequest{
		{ID: "wd-1", UserID: "user-1", Status: models.WithdrawalStatusPending, CreatedAt: time.Now()},
		{ID: "wd-2", UserID: "user-1", Status: models.WithdrawalStatusPaid, CreatedAt: time.Now()},
	}

	env.withdrawal.On("GetAllByUserID", "user-1").Return(withdrawals, nil)

	req := authenticatedRequest(t, "GET", "/withdrawals", nil, testUser())
	rr := httptest.NewRecorder()

	env.handler.HandleUserWithdrawals(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var response map[string]interface{}
	err := json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)

	data, ok := response["data"].([]interface{})
	require.True(t, ok, "Expected response['data'] to be a list")
	require.Len(t, data, 2)
}
