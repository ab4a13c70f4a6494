// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"paynow-wallet/internal/api/handler"
)

// RouterOptions switches optional parts of the HTTP surface.
type RouterOptions struct {
	AllowedOrigins []string
	// LegacyEndpoints mounts the transfer and deposit routes that skip OTP verification.
	LegacyEndpoints bool
}

// NewRouter sets up and returns a new HTTP router.
func NewRouter(walletHandler *handler.WalletHandler, userHandler *handler.UserHandler, opts RouterOptions, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(handler.DefaultTimeout))

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Deprecation"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/users", func(r chi.Router) {
		r.Post("/register", userHandler.Register)
		r.Post("/login", userHandler.Login)
		r.Post("/login/otp/request", userHandler.RequestLoginOTP)
		r.Post("/login/otp/verify", userHandler.LoginWithOTP)
		r.Post("/password/reset/request", userHandler.RequestPasswordReset)
		r.Post("/password/reset", userHandler.ResetPassword)
		r.Get("/{userID}", userHandler.GetUser)
	})

	r.Route("/wallet", func(r chi.Router) {
		r.Get("/balance/{userID}", walletHandler.GetBalance)
		r.Get("/transactions/{userID}", walletHandler.GetTransactionHistory)
		r.Post("/create/{userID}", walletHandler.CreateWallet)
		r.Post("/send-transaction-otp", walletHandler.SendTransactionOTP)
		r.Post("/send-with-otp", walletHandler.SendWithOTP)
		r.Post("/add-money-with-otp", walletHandler.AddMoneyWithOTP)
		r.Post("/withdraw-with-otp", walletHandler.WithdrawWithOTP)

		if opts.LegacyEndpoints {
			logger.Warn("legacy wallet endpoints without OTP verification are enabled")
			r.Group(func(r chi.Router) {
				r.Use(deprecated)
				r.Post("/send", walletHandler.Send)
				r.Post("/add-money", walletHandler.AddMoney)
			})
		}
	})

	return r
}

// deprecated marks responses of routes scheduled for removal.
func deprecated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Deprecation", "true")
		next.ServeHTTP(w, r)
	})
}
