// internal/api/handler/wallet.go
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"paynow-wallet/internal/api/types"
	"paynow-wallet/internal/domain"
	"paynow-wallet/internal/service"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// WalletHandler handles HTTP requests related to wallet operations.
type WalletHandler struct {
	responder
	service service.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(svc service.WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		responder: responder{logger: logger},
		service:   svc,
	}
}

// SendOTPRequest asks for a code guarding one kind of money movement.
type SendOTPRequest struct {
	UserID  string `json:"userId" validate:"required"`
	Purpose string `json:"purpose" validate:"required,oneof=TRANSACTION ADD_MONEY WITHDRAW"`
}

// TransferRequest represents the request body for a transfer. Amount is checked by the service.
type TransferRequest struct {
	FromUserID  string          `json:"fromUserId" validate:"required"`
	ToUserEmail string          `json:"toUserEmail" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
	OTPCode     string          `json:"otpCode" validate:"required,len=6,numeric"`
}

// LegacyTransferRequest is TransferRequest without the OTP.
type LegacyTransferRequest struct {
	FromUserID  string          `json:"fromUserId" validate:"required"`
	ToUserEmail string          `json:"toUserEmail" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
}

// MoneyRequest represents the request body for deposits and withdrawals.
type MoneyRequest struct {
	UserID      string          `json:"userId" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
	OTPCode     string          `json:"otpCode" validate:"required,len=6,numeric"`
}

// LegacyMoneyRequest is MoneyRequest without the OTP.
type LegacyMoneyRequest struct {
	UserID      string          `json:"userId" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
}

// BalanceResponse is the payload of a balance query.
type BalanceResponse struct {
	UserID   string          `json:"user_id"`
	WalletID string          `json:"wallet_id"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

// GetBalance handles the get wallet balance request.
// GET /wallet/balance/{userID}
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	wallet, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondOK(w, http.StatusOK, "Balance retrieved successfully", BalanceResponse{
		UserID:   wallet.UserID,
		WalletID: wallet.ID,
		Balance:  wallet.Balance,
		Currency: wallet.Currency,
	})
}

// GetTransactionHistory handles the get transaction history request.
// GET /wallet/transactions/{userID}?limit=&offset=
func (h *WalletHandler) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	// Parse query parameters for pagination
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	transactions, total, err := h.service.GetTransactionHistory(r.Context(), userID, limit, offset)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	if transactions == nil {
		transactions = []domain.Transaction{}
	}

	h.respondOK(w, http.StatusOK, "Transactions retrieved successfully", types.PaginatedResponse[domain.Transaction]{
		Data:       transactions,
		Limit:      limit,
		Offset:     offset,
		TotalCount: total,
	})
}

// SendTransactionOTP issues a code for a money movement.
// POST /wallet/send-transaction-otp
func (h *WalletHandler) SendTransactionOTP(w http.ResponseWriter, r *http.Request) {
	var req SendOTPRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.RequestTransactionOTP(r.Context(), req.UserID, domain.OTPPurpose(req.Purpose)); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "OTP sent successfully", nil)
}

// SendWithOTP handles an OTP-guarded transfer.
// POST /wallet/send-with-otp
func (h *WalletHandler) SendWithOTP(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	tx, err := h.service.Transfer(r.Context(), req.FromUserID, req.ToUserEmail, req.Amount, req.Description, req.OTPCode)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "Money sent successfully", tx)
}

// AddMoneyWithOTP handles an OTP-guarded deposit.
// POST /wallet/add-money-with-otp
func (h *WalletHandler) AddMoneyWithOTP(w http.ResponseWriter, r *http.Request) {
	var req MoneyRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	tx, err := h.service.Deposit(r.Context(), req.UserID, req.Amount, req.Description, req.OTPCode)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "Money added successfully", tx)
}

// WithdrawWithOTP handles an OTP-guarded withdrawal.
// POST /wallet/withdraw-with-otp
func (h *WalletHandler) WithdrawWithOTP(w http.ResponseWriter, r *http.Request) {
	var req MoneyRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	tx, err := h.service.Withdraw(r.Context(), req.UserID, req.Amount, req.Description, req.OTPCode)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "Money withdrawn successfully", tx)
}

// Send handles a transfer without OTP.
// POST /wallet/send
func (h *WalletHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req LegacyTransferRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	//nolint:staticcheck // legacy route, disabled unless explicitly enabled
	tx, err := h.service.TransferUnverified(r.Context(), req.FromUserID, req.ToUserEmail, req.Amount, req.Description)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "Money sent successfully", tx)
}

// AddMoney handles a deposit without OTP.
// POST /wallet/add-money
func (h *WalletHandler) AddMoney(w http.ResponseWriter, r *http.Request) {
	var req LegacyMoneyRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	//nolint:staticcheck // legacy route, disabled unless explicitly enabled
	tx, err := h.service.DepositUnverified(r.Context(), req.UserID, req.Amount, req.Description)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "Money added successfully", tx)
}

// CreateWallet makes sure the user has a wallet.
// POST /wallet/create/{userID}
func (h *WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	wallet, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, http.StatusCreated, "Wallet created successfully", wallet)
}
