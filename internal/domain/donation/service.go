package donation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"churchpay/internal/pkg/logger"
	"churchpay/internal/pkg/payfast"
	"churchpay/internal/pkg/utils"
)

const defaultItemName = "Donation"

var bpsDivisor = decimal.NewFromInt(10000)

// Options is the gateway configuration the service needs. Fixed at start-up.
type Options struct {
	Gateway        payfast.Config
	ReturnURL      string
	CancelURL      string
	NotifyURL      string
	PlatformFeeBPS int
}

type Service struct {
	store     TransactionStore
	audit     NotificationLog
	receipts  ReceiptSender
	validator *payfast.Validator
	opts      Options
	log       logger.Logger
	now       func() time.Time
}

func NewService(store TransactionStore, audit NotificationLog, receipts ReceiptSender, opts Options, log logger.Logger) *Service {
	if log == nil {
		log = logger.Noop()
	}
	return &Service{
		store:     store,
		audit:     audit,
		receipts:  receipts,
		validator: payfast.NewValidator(opts.Gateway),
		opts:      opts,
		log:       log.With(zap.String("component", "donation")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// StartDonation persists a pending transaction and returns the gateway redirect.
// Any failure is reported to the donor as ErrCouldNotStartPayment.
func (s *Service) StartDonation(ctx context.Context, req StartDonationRequest) (*StartDonationResponse, error) {
	// The gateway echoes ids trimmed, so store them the same way.
	req.ChurchID = strings.TrimSpace(req.ChurchID)
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	req.DonorID = strings.TrimSpace(req.DonorID)
	if err := validReference(req.ChurchID, req.ProjectID, req.DonorID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCouldNotStartPayment, err)
	}

	amount, err := payfast.ParseAmount(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCouldNotStartPayment, err)
	}

	itemName := strings.TrimSpace(req.ItemName)
	if itemName == "" {
		itemName = defaultItemName
	}

	t := &Transaction{
		ID:                uuid.New(),
		ChurchID:          req.ChurchID,
		ProjectID:         req.ProjectID,
		DonorID:           req.DonorID,
		MerchantPaymentID: uuid.NewString(),
		CorrelationKey:    CorrelationKey(req.ChurchID, req.ProjectID, req.DonorID),
		ItemName:          itemName,
		Amount:            amount,
		PlatformFee:       PlatformFee(amount, s.opts.PlatformFeeBPS),
		Status:            StatusPending,
	}

	intent, err := payfast.BuildIntent(s.opts.Gateway, payfast.IntentRequest{
		MerchantPaymentID: t.MerchantPaymentID,
		Amount:            amount,
		ItemName:          itemName,
		ItemDescription:   req.ItemDescription,
		ReturnURL:         s.opts.ReturnURL,
		CancelURL:         s.opts.CancelURL,
		NotifyURL:         s.opts.NotifyURL,
		NameFirst:         req.NameFirst,
		NameLast:          req.NameLast,
		EmailAddress:      req.EmailAddress,
		CustomStr:         [payfast.CustomSlots]string{req.ChurchID, req.ProjectID, req.DonorID},
	})
	if err != nil {
		s.log.Warn("payment intent rejected", zap.String("church_id", req.ChurchID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCouldNotStartPayment, err)
	}
	t.ItemName = intent.Params["item_name"]

	if err := s.store.Create(ctx, t); err != nil {
		s.log.Error("failed to persist pending transaction", zap.String("church_id", req.ChurchID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCouldNotStartPayment, err)
	}

	s.log.Info("donation started",
		zap.String("transaction_id", t.ID.String()),
		zap.String("m_payment_id", t.MerchantPaymentID),
		zap.String("church_id", t.ChurchID),
		zap.String("amount", payfast.FormatAmount(amount)),
	)
	return &StartDonationResponse{
		TransactionID:     t.ID,
		MerchantPaymentID: t.MerchantPaymentID,
		RedirectURL:       intent.URL,
	}, nil
}

// validReference keeps correlation keys unambiguous: no empty church and no
// separator inside a part.
func validReference(churchID, projectID, donorID string) error {
	if churchID == "" {
		return fmt.Errorf("%w: church id is required", ErrInvalidReference)
	}
	for _, id := range []string{churchID, projectID, donorID} {
		if strings.Contains(id, correlationSeparator) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidReference, id, correlationSeparator)
		}
	}
	return nil
}

// PlatformFee is amount * bps / 10000 rounded to cents.
func PlatformFee(amount decimal.Decimal, bps int) decimal.Decimal {
	if bps <= 0 {
		return decimal.Zero
	}
	return amount.Mul(decimal.NewFromInt(int64(bps))).Div(bpsDivisor).Round(2)
}

func (s *Service) ListTransactions(ctx context.Context, churchID string, status TransactionStatus, page, limit int) ([]Transaction, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, fmt.Errorf("%w: status %q", ErrInvalidFilter, status)
	}
	return s.store.ListByChurch(ctx, churchID, status, limit, utils.Offset(page, limit))
}

// GetTransaction hides transactions of other churches behind ErrTransactionNotFound.
func (s *Service) GetTransaction(ctx context.Context, churchID string, id uuid.UUID) (*Transaction, error) {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.ChurchID != churchID {
		return nil, ErrTransactionNotFound
	}
	return t, nil
}

func (s *Service) ListNotifications(ctx context.Context, outcome NotificationOutcome, page, limit int) ([]PaymentNotification, int64, error) {
	return s.audit.List(ctx, outcome, limit, utils.Offset(page, limit))
}

func isStoreError(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
