package donation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"churchpay/internal/database"
	"churchpay/internal/pkg/logger"
	"churchpay/internal/pkg/payfast"
)

const (
	testMerchantID = "10000100"
	testPassphrase = "jt7NOE43FZPn"
)

type MockReceiptSender struct {
	mock.Mock
}

func (m *MockReceiptSender) SendReceipt(ctx context.Context, r Receipt) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func testOptions() Options {
	return Options{
		Gateway: payfast.Config{
			MerchantID:  testMerchantID,
			MerchantKey: "46f0cd694581a",
			Passphrase:  testPassphrase,
			Sandbox:     true,
		},
		ReturnURL:      "https://give.example.org/return",
		CancelURL:      "https://give.example.org/cancel",
		NotifyURL:      "https://api.example.org/api/v1" + NotifyPath,
		PlatformFeeBPS: 250,
	}
}

type fixture struct {
	db       *gorm.DB
	repo     *Repository
	audit    *NotificationRepository
	receipts *MockReceiptSender
	logs     *observer.ObservedLogs
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Connect("file:donation_"+uuid.NewString()+"?mode=memory&cache=shared", logger.Noop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, Models()...))
	t.Cleanup(func() { _ = database.Close(db) })

	core, logs := observer.New(zapcore.DebugLevel)
	receipts := &MockReceiptSender{}
	receipts.On("SendReceipt", mock.Anything, mock.Anything).Return(nil)

	f := &fixture{
		db:       db,
		repo:     NewRepository(db),
		audit:    NewNotificationRepository(db),
		receipts: receipts,
		logs:     logs,
	}
	f.svc = NewService(f.repo, f.audit, receipts, testOptions(), logger.FromZap(zap.New(core)))
	return f
}

// startDonation creates a pending transaction the way a donor would.
func (f *fixture) startDonation(t *testing.T, amount string) *Transaction {
	t.Helper()
	resp, err := f.svc.StartDonation(context.Background(), StartDonationRequest{
		ChurchID: "church-42",
		Amount:   amount,
		ItemName: "Tithe",
	})
	require.NoError(t, err)

	tx, err := f.repo.GetByID(context.Background(), resp.TransactionID)
	require.NoError(t, err)
	return tx
}

func notificationFor(tx *Transaction, status, gross, passphrase string) map[string]string {
	fields := map[string]string{
		"m_payment_id":   tx.MerchantPaymentID,
		"pf_payment_id":  "1089250",
		"payment_status": status,
		"item_name":      tx.ItemName,
		"amount_gross":   gross,
		"amount_fee":     "-2.30",
		"amount_net":     "97.69",
		"merchant_id":    testMerchantID,
		"custom_str1":    tx.ChurchID,
		"name_first":     "Thandi",
		"name_last":      "Mokoena",
		"email_address":  "thandi@example.org",
	}
	fields[payfast.FieldSignature] = payfast.Sign(fields, passphrase)
	return fields
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *Transaction {
	t.Helper()
	tx, err := f.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return tx
}

func (f *fixture) countTransactions(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&Transaction{}).Count(&n).Error)
	return n
}
