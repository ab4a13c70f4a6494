// internal/notification/notifier.go
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"paynow-wallet/internal/domain"
	"paynow-wallet/internal/metrics"

	"golang.org/x/sync/errgroup"
)

// UserFinder resolves the contact details of a notification recipient.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Notifier fans messages out to the email and SMS sinks. It never reports failures
// to its callers; they are logged and counted.
type Notifier struct {
	email   Sink
	sms     Sink
	users   UserFinder
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewNotifier creates a Notifier. timeout bounds each OTP delivery and each transaction notification.
func NewNotifier(email, sms Sink, users UserFinder, timeout time.Duration, logger *slog.Logger) *Notifier {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Notifier{
		email:   email,
		sms:     sms,
		users:   users,
		timeout: timeout,
		logger:  logger,
	}
}

// TransactionCompleted notifies the parties of tx in the background.
func (n *Notifier) TransactionCompleted(tx domain.Transaction) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		n.notifyTransaction(ctx, tx)
	}()
}

// DeliverOTP sends code to the user's email and mobile, giving up after the notifier timeout.
func (n *Notifier) DeliverOTP(ctx context.Context, user *domain.User, purpose domain.OTPPurpose, code string, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.fanOut(ctx, user, OTPMessage(purpose, code, ttl)); err != nil {
		n.logger.WarnContext(ctx, "otp delivery incomplete", "user_id", user.ID, "purpose", purpose, "error", err)
	}
}

// Wait blocks until every background notification has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) notifyTransaction(ctx context.Context, tx domain.Transaction) {
	switch tx.Type {
	case domain.TransactionTypeTransfer:
		n.notifyParty(ctx, tx.FromUserID, tx, "sent")
		if tx.ToUserID != tx.FromUserID {
			n.notifyParty(ctx, tx.ToUserID, tx, "received")
		}
	case domain.TransactionTypeDeposit:
		n.notifyParty(ctx, tx.ToUserID, tx, "added to your wallet")
	case domain.TransactionTypeWithdraw:
		n.notifyParty(ctx, tx.FromUserID, tx, "withdrawn from your wallet")
	}
}

func (n *Notifier) notifyParty(ctx context.Context, userID string, tx domain.Transaction, action string) {
	user, err := n.users.FindByID(ctx, userID)
	if err != nil {
		n.logger.WarnContext(ctx, "skipping notification, recipient lookup failed",
			"user_id", userID, "reference", tx.ReferenceNumber, "error", err)
		return
	}
	if err := n.fanOut(ctx, user, TransactionMessage(user.DisplayName(), tx, action)); err != nil {
		n.logger.WarnContext(ctx, "transaction notification incomplete",
			"user_id", userID, "reference", tx.ReferenceNumber, "error", err)
	}
}

func (n *Notifier) fanOut(ctx context.Context, user *domain.User, message string) error {
	var g errgroup.Group
	g.Go(func() error { return n.deliver(ctx, "email", n.email, user.Email, message) })
	g.Go(func() error { return n.deliver(ctx, "sms", n.sms, user.Mobile, message) })
	return g.Wait()
}

func (n *Notifier) deliver(ctx context.Context, channel string, sink Sink, address, message string) error {
	if sink == nil || address == "" {
		return nil
	}
	ok := sink.Send(ctx, address, message)
	metrics.NotificationDeliveries.WithLabelValues(channel, metrics.Result(ok)).Inc()
	if !ok {
		return fmt.Errorf("%s delivery to %s failed", channel, address)
	}
	return nil
}
