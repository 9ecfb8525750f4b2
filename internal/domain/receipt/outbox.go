package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"churchpay/internal/domain/donation"
	"churchpay/internal/pkg/logger"
	"churchpay/internal/pkg/payfast"
)

var ErrEntryNotFound = errors.New("receipt not found")

// Outbox implements donation.ReceiptSender by queueing receipts in the database.
type Outbox struct {
	db  *gorm.DB
	log logger.Logger
}

func NewOutbox(db *gorm.DB, log logger.Logger) *Outbox {
	if log == nil {
		log = logger.Noop()
	}
	return &Outbox{db: db, log: log.With(zap.String("component", "receipt_outbox"))}
}

func (o *Outbox) SendReceipt(ctx context.Context, r donation.Receipt) error {
	body, err := json.Marshal(payload{
		MerchantPaymentID: r.MerchantPaymentID,
		GatewayPaymentID:  r.GatewayPaymentID,
		ItemName:          r.ItemName,
		Amount:            payfast.FormatAmount(r.Amount),
		DonorName:         r.DonorName,
		CompletedAt:       r.CompletedAt,
	})
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	entry := &OutboxEntry{
		TransactionID: r.TransactionID,
		ChurchID:      r.ChurchID,
		Email:         r.DonorEmail,
		Payload:       datatypes.JSON(body),
		Status:        StatusPending,
	}
	res := o.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "transaction_id"}}, DoNothing: true}).
		Create(entry)
	if res.Error != nil {
		return fmt.Errorf("enqueue receipt: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		o.log.Info("receipt already queued", zap.String("transaction_id", r.TransactionID.String()))
		return nil
	}
	o.log.Info("receipt queued", zap.String("transaction_id", r.TransactionID.String()), zap.Bool("has_email", r.DonorEmail != ""))
	return nil
}

func (o *Outbox) List(ctx context.Context, status Status, limit int) ([]OutboxEntry, error) {
	q := o.db.WithContext(ctx).Model(&OutboxEntry{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []OutboxEntry
	if err := q.Order("created_at ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkSent records successful delivery. Already-sent entries are left alone.
func (o *Outbox) MarkSent(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	res := o.db.WithContext(ctx).Model(&OutboxEntry{}).
		Where("id = ? AND status <> ?", id, StatusSent).
		Updates(map[string]interface{}{
			"status":   StatusSent,
			"sent_at":  now,
			"attempts": gorm.Expr("attempts + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return o.exists(ctx, id)
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	res := o.db.WithContext(ctx).Model(&OutboxEntry{}).
		Where("id = ? AND status <> ?", id, StatusSent).
		Updates(map[string]interface{}{
			"status":     StatusFailed,
			"last_error": reason,
			"attempts":   gorm.Expr("attempts + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return o.exists(ctx, id)
	}
	return nil
}

func (o *Outbox) exists(ctx context.Context, id uuid.UUID) error {
	var n int64
	if err := o.db.WithContext(ctx).Model(&OutboxEntry{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}
