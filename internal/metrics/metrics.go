// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transactions counts ledger records by type and final status.
	Transactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_transactions_total",
			Help: "Total number of wallet transactions by type and final status",
		},
		[]string{"type", "status"},
	)

	// TransactionDuration tracks money movement latency from OTP check to commit.
	TransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallet_transaction_duration_seconds",
			Help:    "Duration of wallet money movements",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"type"},
	)

	// OTPVerifications counts OTP checks by purpose and result.
	OTPVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_verifications_total",
			Help: "Total number of OTP verifications by purpose and result",
		},
		[]string{"purpose", "result"},
	)

	// OTPsIssued counts issued codes by purpose.
	OTPsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_issued_total",
			Help: "Total number of OTPs issued by purpose",
		},
		[]string{"purpose"},
	)

	// NotificationDeliveries counts notification attempts by channel and result.
	NotificationDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "Total number of notification deliveries by channel and result",
		},
		[]string{"channel", "result"},
	)
)

// Result renders a boolean outcome as a label value.
func Result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
