package donation

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churchpay/internal/pkg/payfast"
)

func TestStartDonation(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.StartDonation(context.Background(), StartDonationRequest{
		ChurchID:     "church-42",
		ProjectID:    "roof",
		DonorID:      "donor-7",
		Amount:       "150",
		ItemName:     "Building fund",
		EmailAddress: "donor@example.org",
	})
	require.NoError(t, err)

	_, err = uuid.Parse(resp.MerchantPaymentID)
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.RedirectURL, payfast.SandboxProcessURL+"?"))
	assert.Contains(t, resp.RedirectURL, "amount=150.00")
	assert.Contains(t, resp.RedirectURL, "m_payment_id="+resp.MerchantPaymentID)
	assert.Contains(t, resp.RedirectURL, "custom_str2=roof")

	tx := f.reload(t, resp.TransactionID)
	assert.Equal(t, StatusPending, tx.Status)
	assert.Equal(t, "church-42|roof|donor-7", tx.CorrelationKey)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(150)))
	assert.True(t, tx.PlatformFee.Equal(decimal.RequireFromString("3.75")))
	assert.Equal(t, "Building fund", tx.ItemName)
}

func TestStartDonation_TrimsReferencesForCorrelation(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.StartDonation(context.Background(), StartDonationRequest{
		ChurchID: " church-42 ",
		DonorID:  "donor-7\t",
		Amount:   "99.99",
	})
	require.NoError(t, err)

	tx := f.reload(t, resp.TransactionID)
	assert.Equal(t, "church-42", tx.ChurchID)
	assert.Equal(t, "church-42||donor-7", tx.CorrelationKey)

	fields := notificationFor(tx, "COMPLETE", "99.99", testPassphrase)
	fields["m_payment_id"] = uuid.NewString()
	fields["custom_str1"] = "church-42"
	fields["custom_str3"] = "donor-7"
	fields[payfast.FieldSignature] = payfast.Sign(fields, testPassphrase)

	res, err := f.svc.HandleNotification(context.Background(), fields)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, res.TransactionID)
	assert.Equal(t, StatusCompleted, f.reload(t, tx.ID).Status)
}

func TestStartDonation_RejectsAmbiguousReferences(t *testing.T) {
	f := newFixture(t)

	for _, req := range []StartDonationRequest{
		{ChurchID: "church|42", Amount: "10"},
		{ChurchID: "church-42", ProjectID: "roof|fund", Amount: "10"},
		{ChurchID: "church-42", DonorID: "|", Amount: "10"},
		{ChurchID: "   ", Amount: "10"},
	} {
		_, err := f.svc.StartDonation(context.Background(), req)
		assert.ErrorIs(t, err, ErrCouldNotStartPayment)
		assert.ErrorIs(t, err, ErrInvalidReference)
	}
	assert.Zero(t, f.countTransactions(t))
}

func TestStartDonation_DefaultItemName(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.StartDonation(context.Background(), StartDonationRequest{ChurchID: "church-42", Amount: "10.00"})
	require.NoError(t, err)
	assert.Equal(t, defaultItemName, f.reload(t, resp.TransactionID).ItemName)
}

func TestStartDonation_RejectsBadAmount(t *testing.T) {
	f := newFixture(t)

	for _, amount := range []string{"0", "-5", "10.005", "ten"} {
		_, err := f.svc.StartDonation(context.Background(), StartDonationRequest{ChurchID: "church-42", Amount: amount})
		assert.ErrorIs(t, err, ErrCouldNotStartPayment, amount)
		assert.False(t, isStoreError(err), amount)
	}
	assert.Zero(t, f.countTransactions(t))
}

func TestStartDonation_MisconfiguredGateway(t *testing.T) {
	f := newFixture(t)
	opts := testOptions()
	opts.Gateway.MerchantKey = ""
	svc := NewService(f.repo, f.audit, f.receipts, opts, nil)

	_, err := svc.StartDonation(context.Background(), StartDonationRequest{ChurchID: "church-42", Amount: "10"})
	assert.ErrorIs(t, err, ErrCouldNotStartPayment)
	assert.ErrorIs(t, err, payfast.ErrMissingConfig)
	assert.Zero(t, f.countTransactions(t))
}

func TestPlatformFee(t *testing.T) {
	assert.True(t, PlatformFee(decimal.NewFromInt(100), 0).IsZero())
	assert.True(t, PlatformFee(decimal.NewFromInt(100), 250).Equal(decimal.RequireFromString("2.50")))
	assert.True(t, PlatformFee(decimal.RequireFromString("99.99"), 250).Equal(decimal.RequireFromString("2.50")))
	assert.True(t, PlatformFee(decimal.RequireFromString("0.10"), 100).IsZero())
}

func TestListAndGetTransactions(t *testing.T) {
	f := newFixture(t)
	first := f.startDonation(t, "10.00")
	second := f.startDonation(t, "20.00")
	_, err := f.svc.HandleNotification(context.Background(), notificationFor(second, "COMPLETE", "20.00", testPassphrase))
	require.NoError(t, err)

	items, total, err := f.svc.ListTransactions(context.Background(), "church-42", "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 2)

	items, total, err = f.svc.ListTransactions(context.Background(), "church-42", StatusCompleted, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, second.ID, items[0].ID)

	_, _, err = f.svc.ListTransactions(context.Background(), "church-42", "bogus", 1, 20)
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, total, err = f.svc.ListTransactions(context.Background(), "church-7", "", 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)

	got, err := f.svc.GetTransaction(context.Background(), "church-42", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.MerchantPaymentID, got.MerchantPaymentID)

	_, err = f.svc.GetTransaction(context.Background(), "church-7", first.ID)
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	_, err = f.svc.GetTransaction(context.Background(), "church-42", uuid.New())
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestRepository_DuplicateMerchantPaymentID(t *testing.T) {
	f := newFixture(t)
	tx := f.startDonation(t, "10.00")

	dup := &Transaction{
		ChurchID:          "church-42",
		MerchantPaymentID: tx.MerchantPaymentID,
		CorrelationKey:    tx.CorrelationKey,
		ItemName:          "Tithe",
		Amount:            decimal.NewFromInt(10),
		PlatformFee:       decimal.Zero,
		Status:            StatusPending,
	}
	err := f.repo.Create(context.Background(), dup)
	assert.ErrorIs(t, err, ErrDuplicateTransaction)
	assert.False(t, isStoreError(err))
}

func TestRepository_TransitionOnlyFromPending(t *testing.T) {
	f := newFixture(t)
	tx := f.startDonation(t, "10.00")
	s := Settlement{GatewayPaymentID: "1", ProcessingFee: decimal.Zero, NetAmount: decimal.NewFromInt(10)}

	changed, err := f.repo.Transition(context.Background(), tx.ID, StatusCompleted, s)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = f.repo.Transition(context.Background(), tx.ID, StatusFailed, s)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, StatusCompleted, f.reload(t, tx.ID).Status)
}

func TestTransactionStatus(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.False(t, TransactionStatus("bogus").Valid())
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusRefunded.Terminal())
}

func TestListTransactions_Paging(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.startDonation(t, "10.00")
	}

	first, total, err := f.svc.ListTransactions(context.Background(), "church-42", "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, first, 2)

	second, _, err := f.svc.ListTransactions(context.Background(), "church-42", "", 2, 2)
	require.NoError(t, err)
	require.Len(t, second, 1)
	for _, tx := range first {
		assert.NotEqual(t, tx.ID, second[0].ID)
	}
}
