package receipt

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// OutboxEntry is a receipt waiting for the email service. One row per
// transaction; the unique index makes enqueueing idempotent.
type OutboxEntry struct {
	ID            uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	TransactionID uuid.UUID      `json:"transaction_id" gorm:"type:uuid;not null;uniqueIndex"`
	ChurchID      string         `json:"church_id" gorm:"type:varchar(64);not null;index"`
	Email         string         `json:"email" gorm:"type:varchar(255)"`
	Payload       datatypes.JSON `json:"payload"`
	Status        Status         `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Attempts      int            `json:"attempts" gorm:"not null;default:0"`
	LastError     string         `json:"last_error,omitempty" gorm:"type:text"`
	SentAt        *time.Time     `json:"sent_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (OutboxEntry) TableName() string {
	return "receipt_outbox"
}

func (e *OutboxEntry) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func Models() []any {
	return []any{&OutboxEntry{}}
}

// payload is the document the email service renders.
type payload struct {
	MerchantPaymentID string    `json:"m_payment_id"`
	GatewayPaymentID  string    `json:"pf_payment_id"`
	ItemName          string    `json:"item_name"`
	Amount            string    `json:"amount"`
	DonorName         string    `json:"donor_name,omitempty"`
	CompletedAt       time.Time `json:"completed_at"`
}
