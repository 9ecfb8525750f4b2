package donation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, t *Transaction) error {
	return classify(r.db.WithContext(ctx).Create(t).Error)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var t Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, classify(err)
	}
	return &t, nil
}

func (r *Repository) GetByMerchantPaymentID(ctx context.Context, mPaymentID string) (*Transaction, error) {
	var t Transaction
	if err := r.db.WithContext(ctx).Where("merchant_payment_id = ?", mPaymentID).First(&t).Error; err != nil {
		return nil, classify(err)
	}
	return &t, nil
}

func (r *Repository) ListPendingByCorrelationKey(ctx context.Context, key string) ([]Transaction, error) {
	var out []Transaction
	err := r.db.WithContext(ctx).
		Where("correlation_key = ? AND status = ?", key, StatusPending).
		Order("created_at DESC").
		Limit(10).
		Find(&out).Error
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// Transition is a single conditional UPDATE; concurrent deliveries of the same
// notification race on the WHERE clause and exactly one wins.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, status TransactionStatus, s Settlement) (bool, error) {
	updates := map[string]interface{}{
		"status":         status,
		"failure_reason": s.FailureReason,
		"settled_at":     s.SettledAt,
		"updated_at":     s.SettledAt,
	}
	if s.GatewayPaymentID != "" {
		updates["gateway_payment_id"] = s.GatewayPaymentID
	}
	if status == StatusCompleted {
		updates["processing_fee"] = s.ProcessingFee
		updates["net_amount"] = s.NetAmount
	}

	res := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, classify(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) ListByChurch(ctx context.Context, churchID string, status TransactionStatus, limit, offset int) ([]Transaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&Transaction{}).Where("church_id = ?", churchID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, classify(err)
	}

	var out []Transaction
	if err := q.Order("created_at DESC, id").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, classify(err)
	}
	return out, total, nil
}

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Record(ctx context.Context, n *PaymentNotification) error {
	return classify(r.db.WithContext(ctx).Create(n).Error)
}

func (r *NotificationRepository) List(ctx context.Context, outcome NotificationOutcome, limit, offset int) ([]PaymentNotification, int64, error) {
	q := r.db.WithContext(ctx).Model(&PaymentNotification{})
	if outcome != "" {
		q = q.Where("outcome = ?", outcome)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, classify(err)
	}

	var out []PaymentNotification
	if err := q.Order("received_at DESC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, classify(err)
	}
	return out, total, nil
}

func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("received_at < ?", cutoff).Delete(&PaymentNotification{})
	if res.Error != nil {
		return 0, classify(res.Error)
	}
	return res.RowsAffected, nil
}

// classify maps driver errors onto package sentinels. Anything that is not a
// miss or a duplicate is treated as transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTransactionNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", ErrDuplicateTransaction, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateTransaction, pgErr.ConstraintName)
	}
	// modernc.org/sqlite does not go through gorm's error translator.
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %w", ErrDuplicateTransaction, err)
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
