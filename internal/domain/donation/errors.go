package donation

import "errors"

var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrDuplicateTransaction = errors.New("transaction already exists")
	ErrStoreUnavailable     = errors.New("transaction store unavailable")

	ErrOrphanedNotification = errors.New("orphaned notification")
	ErrUnknownPaymentStatus = errors.New("unknown payment status")
	ErrStatusConflict       = errors.New("status conflict")
	ErrAmountMismatch       = errors.New("amount mismatch")

	ErrCouldNotStartPayment = errors.New("could not start payment")
	ErrInvalidFilter        = errors.New("invalid filter")
	ErrInvalidReference     = errors.New("invalid church, project or donor id")
)

// Retryable reports whether the gateway should redeliver the notification.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
