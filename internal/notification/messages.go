// internal/notification/messages.go
package notification

import (
	"fmt"
	"strings"
	"time"

	"paynow-wallet/internal/domain"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const timeLayout = "02 Jan 2006 15:04:05 MST"

var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

func formatAmount(tx domain.Transaction) string {
	if symbol, ok := currencySymbols[tx.Currency]; ok {
		return symbol + tx.Amount.StringFixed(2)
	}
	return tx.Currency + " " + tx.Amount.StringFixed(2)
}

// TransactionMessage renders the notification a party receives for a completed transaction.
func TransactionMessage(name string, tx domain.Transaction, action string) string {
	detail := tx.Description
	if detail == "" {
		detail = "Reference " + tx.ReferenceNumber
	}
	at := tx.CreatedAt
	if tx.CompletedAt != nil {
		at = *tx.CompletedAt
	}
	return fmt.Sprintf("Dear %s, %s has been %s. %s. Transaction time: %s",
		name, formatAmount(tx), action, detail, at.Format(timeLayout))
}

// FormatPurpose turns ADD_MONEY into "Add Money".
func FormatPurpose(purpose domain.OTPPurpose) string {
	p := strings.ToLower(strings.ReplaceAll(string(purpose), "_", " "))
	return cases.Title(language.English).String(p)
}

// OTPMessage renders the text that carries a one-time code.
func OTPMessage(purpose domain.OTPPurpose, code string, ttl time.Duration) string {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Your %s OTP is %s. It is valid for %d minutes. Do not share it with anyone.",
		FormatPurpose(purpose), code, minutes)
}
