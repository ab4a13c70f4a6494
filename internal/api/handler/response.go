// internal/api/handler/response.go
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"paynow-wallet/internal/api/types"
	"paynow-wallet/internal/util"
)

// DefaultTimeout bounds the time spent on a single request.
const DefaultTimeout = 30 * time.Second

// errorMapping ties a sentinel error to its HTTP status and error code.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string // empty means err.Error()
}

// errorMappings is ordered: a transfer failure wraps its cause, so the outcome sentinels
// are matched before the cause sentinels.
var errorMappings = []errorMapping{
	{util.ErrReconciliationRequired, http.StatusInternalServerError, "RECONCILIATION_REQUIRED", "Transaction requires manual reconciliation"},
	{util.ErrTransferFailed, http.StatusInternalServerError, "TRANSFER_FAILED", "Transaction failed and was rolled back"},
	{util.ErrOTPInvalid, http.StatusUnauthorized, "OTP_INVALID", "Invalid or expired OTP"},
	{util.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials"},
	{util.ErrUserInactive, http.StatusForbidden, "USER_INACTIVE", "User account is inactive"},
	{util.ErrWalletInactive, http.StatusForbidden, "WALLET_INACTIVE", "Wallet is not active"},
	{util.ErrReceiverNotFound, http.StatusNotFound, "RECEIVER_NOT_FOUND", "Receiver not found"},
	{util.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND", "User not found"},
	{util.ErrWalletNotFound, http.StatusNotFound, "WALLET_NOT_FOUND", "Wallet not found"},
	{util.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "Resource not found"},
	{util.ErrInsufficientBalance, http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE", "Insufficient balance"},
	{util.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero with at most two decimal places"},
	{util.ErrSameWalletTransfer, http.StatusBadRequest, "SAME_WALLET", "Cannot transfer to your own wallet"},
	{util.ErrInvalidPurpose, http.StatusBadRequest, "INVALID_PURPOSE", "Invalid OTP purpose"},
	{util.ErrDuplicateEntry, http.StatusConflict, "DUPLICATE_ENTRY", "Email or mobile already registered"},
	{util.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT", ""},
}

// responder holds the JSON helpers shared by all handlers.
type responder struct {
	logger *slog.Logger
}

func (h responder) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func (h responder) respondOK(w http.ResponseWriter, code int, message string, data interface{}) {
	h.respondWithJSON(w, code, types.Ok(message, data))
}

// respondWithError maps err to a status code and error envelope. Unmapped errors are
// logged and reported as a generic 500.
func (h responder) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		message := m.message
		if message == "" {
			message = err.Error()
		}
		if m.status >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		}
		h.respondWithJSON(w, m.status, types.Err(m.code, message))
		return
	}

	h.logger.ErrorContext(r.Context(), "Unhandled service error", "path", r.URL.Path, "error", err)
	h.respondWithJSON(w, http.StatusInternalServerError, types.Err("INTERNAL", "Internal server error"))
}

// respondWithValidation reports request validation failures field by field.
func (h responder) respondWithValidation(w http.ResponseWriter, err error) {
	h.respondWithJSON(w, http.StatusBadRequest, types.Err("VALIDATION_FAILED", "Validation error", FormatValidationError(err)...))
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes the error response itself and reports whether the caller may continue.
func (h responder) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, types.Err("INVALID_BODY", "Invalid request body"))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		h.respondWithValidation(w, err)
		return false
	}
	return true
}
