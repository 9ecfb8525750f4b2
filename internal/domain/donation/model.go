package donation

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusRefunded  TransactionStatus = "refunded"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// Terminal statuses are never overwritten by a notification.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRefunded
}

// Transaction is one donation attempt. It is created pending when the donor is
// redirected to the gateway and settled by the gateway's notification.
type Transaction struct {
	ID                uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey"`
	ChurchID          string              `json:"church_id" gorm:"type:varchar(64);not null;index"`
	ProjectID         string              `json:"project_id,omitempty" gorm:"type:varchar(64)"`
	DonorID           string              `json:"donor_id,omitempty" gorm:"type:varchar(64)"`
	MerchantPaymentID string              `json:"m_payment_id" gorm:"type:varchar(64);not null;uniqueIndex"`
	CorrelationKey    string              `json:"-" gorm:"type:varchar(200);not null;index"`
	ItemName          string              `json:"item_name" gorm:"type:varchar(100);not null"`
	Amount            decimal.Decimal     `json:"amount" gorm:"type:numeric(12,2);not null"`
	PlatformFee       decimal.Decimal     `json:"platform_fee" gorm:"type:numeric(12,2);not null"`
	ProcessingFee     decimal.NullDecimal `json:"processing_fee" gorm:"type:numeric(12,2)"`
	NetAmount         decimal.NullDecimal `json:"net_amount" gorm:"type:numeric(12,2)"`
	Status            TransactionStatus   `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	GatewayPaymentID  string              `json:"pf_payment_id,omitempty" gorm:"type:varchar(64);index"`
	FailureReason     string              `json:"failure_reason,omitempty" gorm:"type:text"`
	SettledAt         *time.Time          `json:"settled_at,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func (Transaction) TableName() string {
	return "donation_transactions"
}

func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// CorrelationKey joins the custom_str1..3 values round-tripped through the gateway.
const correlationSeparator = "|"

func CorrelationKey(churchID, projectID, donorID string) string {
	return strings.Join([]string{churchID, projectID, donorID}, correlationSeparator)
}

// Settlement is what a notification writes onto a pending transaction.
type Settlement struct {
	GatewayPaymentID string
	ProcessingFee    decimal.Decimal
	NetAmount        decimal.Decimal
	FailureReason    string
	SettledAt        time.Time
}

type NotificationOutcome string

const (
	OutcomeCompleted      NotificationOutcome = "completed"
	OutcomeFailed         NotificationOutcome = "failed"
	OutcomePending        NotificationOutcome = "pending"
	OutcomeDuplicate      NotificationOutcome = "duplicate"
	OutcomeRejected       NotificationOutcome = "rejected"
	OutcomeOrphaned       NotificationOutcome = "orphaned"
	OutcomeUnknownStatus  NotificationOutcome = "unknown_status"
	OutcomeConflict       NotificationOutcome = "conflict"
	OutcomeAmountMismatch NotificationOutcome = "amount_mismatch"
	OutcomeStoreError     NotificationOutcome = "store_error"
)

// NeedsReview reports outcomes an operator has to look at.
func (o NotificationOutcome) NeedsReview() bool {
	switch o {
	case OutcomeOrphaned, OutcomeUnknownStatus, OutcomeConflict, OutcomeAmountMismatch, OutcomeStoreError:
		return true
	}
	return false
}

// PaymentNotification is the audit row kept for every callback received.
// Payload holds the redacted projection only.
type PaymentNotification struct {
	ID                uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey"`
	MerchantPaymentID string              `json:"m_payment_id,omitempty" gorm:"type:varchar(64);index"`
	GatewayPaymentID  string              `json:"pf_payment_id,omitempty" gorm:"type:varchar(64);index"`
	TransactionID     *uuid.UUID          `json:"transaction_id,omitempty" gorm:"type:uuid;index"`
	PaymentStatus     string              `json:"payment_status,omitempty" gorm:"type:varchar(32)"`
	Outcome           NotificationOutcome `json:"outcome" gorm:"type:varchar(32);not null;index"`
	Reason            string              `json:"reason,omitempty" gorm:"type:text"`
	Payload           datatypes.JSON      `json:"payload"`
	ReceivedAt        time.Time           `json:"received_at" gorm:"not null;index"`
	ProcessedAt       time.Time           `json:"processed_at" gorm:"not null"`
}

func (PaymentNotification) TableName() string {
	return "payment_notifications"
}

func (n *PaymentNotification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// Models lists the tables owned by this package, in migration order.
func Models() []any {
	return []any{&Transaction{}, &PaymentNotification{}}
}
