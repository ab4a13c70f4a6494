// internal/api/handler/user.go
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paynow-wallet/internal/domain"
	"paynow-wallet/internal/service"
)

// UserHandler handles registration and login.
type UserHandler struct {
	responder
	service service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		responder: responder{logger: logger},
		service:   svc,
	}
}

type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
	Email     string `json:"email" validate:"required,email"`
	Mobile    string `json:"mobile" validate:"required,min=10,max=15,numeric"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type IdentifierRequest struct {
	Identifier string `json:"identifier" validate:"required"`
}

type OTPLoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	OTPCode    string `json:"otpCode" validate:"required,len=6,numeric"`
}

type ResetPasswordRequest struct {
	Identifier  string `json:"identifier" validate:"required"`
	OTPCode     string `json:"otpCode" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

// RegisterResponse carries the new user and their empty wallet.
type RegisterResponse struct {
	User   *domain.User   `json:"user"`
	Wallet *domain.Wallet `json:"wallet"`
}

// Register handles account creation.
// POST /users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, wallet, err := h.service.Register(r.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Mobile:    req.Mobile,
		Password:  req.Password,
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, http.StatusCreated, "User registered successfully", RegisterResponse{User: user, Wallet: wallet})
}

// Login handles password login.
// POST /users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.LoginWithPassword(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "Login successful", user)
}

// RequestLoginOTP sends a login code.
// POST /users/login/otp/request
func (h *UserHandler) RequestLoginOTP(w http.ResponseWriter, r *http.Request) {
	var req IdentifierRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.RequestLoginOTP(r.Context(), req.Identifier); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "OTP sent successfully", nil)
}

// LoginWithOTP handles code login.
// POST /users/login/otp/verify
func (h *UserHandler) LoginWithOTP(w http.ResponseWriter, r *http.Request) {
	var req OTPLoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.LoginWithOTP(r.Context(), req.Identifier, req.OTPCode)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "Login successful", user)
}

// RequestPasswordReset sends a password reset code.
// POST /users/password/reset/request
func (h *UserHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req IdentifierRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Identifier); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "OTP sent successfully", nil)
}

// ResetPassword replaces the password.
// POST /users/password/reset
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Identifier, req.OTPCode, req.NewPassword); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "Password updated successfully", nil)
}

// GetUser returns a user profile.
// GET /users/{userID}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "User retrieved successfully", user)
}
