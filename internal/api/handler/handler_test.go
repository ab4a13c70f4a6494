// internal/api/handler/handler_test.go
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"paynow-wallet/internal/api/types"
	"paynow-wallet/internal/domain"
	"paynow-wallet/internal/util"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// MockWalletService is a mock implementation of service.WalletService.
type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) txResult(args mock.Arguments) (*domain.Transaction, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockWalletService) Transfer(ctx context.Context, fromUserID, toUserEmail string, amount decimal.Decimal, description, otpCode string) (*domain.Transaction, error) {
	return m.txResult(m.Called(ctx, fromUserID, toUserEmail, amount, description, otpCode))
}

func (m *MockWalletService) Deposit(ctx context.Context, userID string, amount decimal.Decimal, description, otpCode string) (*domain.Transaction, error) {
	return m.txResult(m.Called(ctx, userID, amount, description, otpCode))
}

func (m *MockWalletService) Withdraw(ctx context.Context, userID string, amount decimal.Decimal, description, otpCode string) (*domain.Transaction, error) {
	return m.txResult(m.Called(ctx, userID, amount, description, otpCode))
}

func (m *MockWalletService) TransferUnverified(ctx context.Context, fromUserID, toUserEmail string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	return m.txResult(m.Called(ctx, fromUserID, toUserEmail, amount, description))
}

func (m *MockWalletService) DepositUnverified(ctx context.Context, userID string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	return m.txResult(m.Called(ctx, userID, amount, description))
}

func (m *MockWalletService) GetBalance(ctx context.Context, userID string) (*domain.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletService) GetTransactionHistory(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockWalletService) RequestTransactionOTP(ctx context.Context, userID string, purpose domain.OTPPurpose) error {
	return m.Called(ctx, userID, purpose).Error(0)
}

func newTestRouter(svc *MockWalletService) http.Handler {
	h := NewWalletHandler(svc, discardLogger)
	r := chi.NewRouter()
	r.Get("/wallet/balance/{userID}", h.GetBalance)
	r.Get("/wallet/transactions/{userID}", h.GetTransactionHistory)
	r.Post("/wallet/send-transaction-otp", h.SendTransactionOTP)
	r.Post("/wallet/send-with-otp", h.SendWithOTP)
	r.Post("/wallet/add-money-with-otp", h.AddMoneyWithOTP)
	return r
}

func do(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, types.Response) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp types.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestSendWithOTP(t *testing.T) {
	body := `{"fromUserId":"alice","toUserEmail":"bob@example.com","amount":"150.25","description":"Dinner","otpCode":"123456"}`
	amount := decimal.RequireFromString("150.25")

	t.Run("Success", func(t *testing.T) {
		svc := new(MockWalletService)
		tx := &domain.Transaction{ID: "t1", ReferenceNumber: "REF01", Status: domain.TransactionStatusCompleted}
		svc.On("Transfer", mock.Anything, "alice", "bob@example.com", mock.MatchedBy(amount.Equal), "Dinner", "123456").Return(tx, nil).Once()

		rec, resp := do(t, newTestRouter(svc), http.MethodPost, "/wallet/send-with-otp", body)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.Success)
		assert.Equal(t, "Money sent successfully", resp.Message)
		assert.Nil(t, resp.Error)
		svc.AssertExpectations(t)
	})

	errorCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"OTPInvalid", util.ErrOTPInvalid, http.StatusUnauthorized, "OTP_INVALID"},
		{"ReceiverNotFound", util.ErrReceiverNotFound, http.StatusNotFound, "RECEIVER_NOT_FOUND"},
		{"InvalidAmount", util.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
		{"InsufficientBalance", util.ErrInsufficientBalance, http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE"},
		{"SameWallet", util.ErrSameWalletTransfer, http.StatusBadRequest, "SAME_WALLET"},
		{"TransferFailedWinsOverCause", fmt.Errorf("%w: %w", util.ErrTransferFailed, util.ErrWalletNotFound), http.StatusInternalServerError, "TRANSFER_FAILED"},
		{"Reconciliation", fmt.Errorf("%w: reference REF1: %w", util.ErrReconciliationRequired, errors.New("conn reset")), http.StatusInternalServerError, "RECONCILIATION_REQUIRED"},
		{"Unmapped", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockWalletService)
			svc.On("Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, tc.err).Once()

			rec, resp := do(t, newTestRouter(svc), http.MethodPost, "/wallet/send-with-otp", body)

			assert.Equal(t, tc.status, rec.Code)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.code, resp.Error.Code)
		})
	}

	t.Run("ValidationFailure", func(t *testing.T) {
		svc := new(MockWalletService)

		rec, resp := do(t, newTestRouter(svc), http.MethodPost, "/wallet/send-with-otp", `{"fromUserId":"alice","amount":"1","otpCode":"12"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
		assert.Contains(t, resp.Error.Details, "toUserEmail is required")
		assert.Contains(t, resp.Error.Details, "otpCode must be exactly 6 characters")
		svc.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		rec, resp := do(t, newTestRouter(new(MockWalletService)), http.MethodPost, "/wallet/send-with-otp", `{"amount":`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_BODY", resp.Error.Code)
	})
}

func TestSendTransactionOTP(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(MockWalletService)
		svc.On("RequestTransactionOTP", mock.Anything, "alice", domain.OTPPurposeAddMoney).Return(nil).Once()

		rec, resp := do(t, newTestRouter(svc), http.MethodPost, "/wallet/send-transaction-otp", `{"userId":"alice","purpose":"ADD_MONEY"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.Success)
		svc.AssertExpectations(t)
	})

	t.Run("LoginPurposeRejected", func(t *testing.T) {
		rec, resp := do(t, newTestRouter(new(MockWalletService)), http.MethodPost, "/wallet/send-transaction-otp", `{"userId":"alice","purpose":"LOGIN"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
	})
}

func TestGetBalance(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(MockWalletService)
		svc.On("GetBalance", mock.Anything, "alice").Return(&domain.Wallet{ID: "w1", UserID: "alice", Balance: decimal.NewFromInt(70), Currency: "INR"}, nil).Once()

		rec, resp := do(t, newTestRouter(svc), http.MethodGet, "/wallet/balance/alice", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "70", data["balance"])
		assert.Equal(t, "INR", data["currency"])
	})

	t.Run("UnknownUser", func(t *testing.T) {
		svc := new(MockWalletService)
		svc.On("GetBalance", mock.Anything, "ghost").Return(nil, fmt.Errorf("get balance: %w", util.ErrUserNotFound)).Once()

		rec, resp := do(t, newTestRouter(svc), http.MethodGet, "/wallet/balance/ghost", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "USER_NOT_FOUND", resp.Error.Code)
	})
}

func TestGetTransactionHistory(t *testing.T) {
	t.Run("ClampsPagination", func(t *testing.T) {
		svc := new(MockWalletService)
		svc.On("GetTransactionHistory", mock.Anything, "alice", maxHistoryLimit, 0).Return([]domain.Transaction{}, int64(0), nil).Once()

		rec, resp := do(t, newTestRouter(svc), http.MethodGet, "/wallet/transactions/alice?limit=5000&offset=-3", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, float64(maxHistoryLimit), data["limit"])
		assert.Equal(t, []interface{}{}, data["data"])
		svc.AssertExpectations(t)
	})

	t.Run("Defaults", func(t *testing.T) {
		svc := new(MockWalletService)
		svc.On("GetTransactionHistory", mock.Anything, "alice", defaultHistoryLimit, 0).Return(nil, int64(0), nil).Once()

		rec, _ := do(t, newTestRouter(svc), http.MethodGet, "/wallet/transactions/alice", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})
}

func TestAddMoneyWithOTP(t *testing.T) {
	svc := new(MockWalletService)
	tx := &domain.Transaction{ID: "t2", Type: domain.TransactionTypeDeposit, Status: domain.TransactionStatusCompleted}
	svc.On("Deposit", mock.Anything, "bob", mock.MatchedBy(decimal.NewFromInt(1000).Equal), "", "654321").Return(tx, nil).Once()

	rec, resp := do(t, newTestRouter(svc), http.MethodPost, "/wallet/add-money-with-otp", `{"userId":"bob","amount":1000,"otpCode":"654321"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Money added successfully", resp.Message)
	svc.AssertExpectations(t)
}

func TestFormatValidationError(t *testing.T) {
	err := validate.Struct(&RegisterRequest{Email: "not-an-email", Mobile: "12", Password: "short"})

	msgs := FormatValidationError(err)

	assert.Contains(t, msgs, "firstName is required")
	assert.Contains(t, msgs, "email must be a valid email")
	assert.Contains(t, msgs, "mobile must have minimum length 10")
	assert.Contains(t, msgs, "password must have minimum length 8")
}
