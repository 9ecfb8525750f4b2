package donation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionStore interface {
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByMerchantPaymentID(ctx context.Context, mPaymentID string) (*Transaction, error)
	ListPendingByCorrelationKey(ctx context.Context, key string) ([]Transaction, error)
	// Transition moves a pending transaction to status. It reports false when
	// the row was no longer pending.
	Transition(ctx context.Context, id uuid.UUID, status TransactionStatus, s Settlement) (bool, error)
	ListByChurch(ctx context.Context, churchID string, status TransactionStatus, limit, offset int) ([]Transaction, int64, error)
}

type NotificationLog interface {
	Record(ctx context.Context, n *PaymentNotification) error
	List(ctx context.Context, outcome NotificationOutcome, limit, offset int) ([]PaymentNotification, int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Receipt is handed to the receipt collaborator exactly once per completed donation.
type Receipt struct {
	TransactionID     uuid.UUID
	ChurchID          string
	MerchantPaymentID string
	GatewayPaymentID  string
	ItemName          string
	Amount            decimal.Decimal
	DonorName         string
	DonorEmail        string
	CompletedAt       time.Time
}

type ReceiptSender interface {
	SendReceipt(ctx context.Context, r Receipt) error
}
