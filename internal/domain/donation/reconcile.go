package donation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"churchpay/internal/pkg/logger"
	"churchpay/internal/pkg/payfast"
)

// HandleCallback parses a raw callback body (form or JSON) and processes it.
func (s *Service) HandleCallback(ctx context.Context, contentType string, body []byte) (*Result, error) {
	received := s.now()

	var (
		fields map[string]string
		err    error
	)
	if isJSON(contentType) {
		fields, err = payfast.ParseJSONBody(body)
	} else {
		fields, err = payfast.ParseFormBody(body)
	}
	if err != nil {
		s.reject(ctx, received, nil, err)
		return nil, err
	}
	return s.handle(ctx, received, fields)
}

// HandleNotification validates the flattened fields and reconciles them when
// authentic. Unverified input never reaches the transaction store.
func (s *Service) HandleNotification(ctx context.Context, fields map[string]string) (*Result, error) {
	return s.handle(ctx, s.now(), fields)
}

func (s *Service) handle(ctx context.Context, received time.Time, fields map[string]string) (*Result, error) {
	verified, err := s.validator.Validate(fields)
	if err != nil {
		s.reject(ctx, received, fields, err)
		return nil, err
	}

	s.log.Debug("notification verified", zap.Object("payload", payfast.RedactPII(fields)))

	res, err := s.Reconcile(ctx, verified)
	s.recordOutcome(ctx, received, verified, res, err)
	return res, err
}

// Reconcile applies an authenticated notification to its pending transaction.
// Only the first delivery changes state and triggers the receipt.
func (s *Service) Reconcile(ctx context.Context, v *payfast.Verified) (*Result, error) {
	if v == nil {
		return nil, errors.New("reconcile: nil notification")
	}
	n := v.Notification()
	log := s.log.With(
		zap.String("m_payment_id", n.MerchantPaymentID),
		zap.String("pf_payment_id", n.PaymentID),
		zap.String("payment_status", string(n.PaymentStatus)),
	)

	target, ok := targetStatus(n.PaymentStatus)
	if !ok {
		log.Error("unmapped payment status", zap.Bool("manual_review", true))
		return nil, fmt.Errorf("%w: %q", ErrUnknownPaymentStatus, n.PaymentStatus)
	}

	t, err := s.lookup(ctx, n)
	if err != nil {
		if errors.Is(err, ErrOrphanedNotification) {
			log.Error("orphaned notification", zap.Error(err), zap.Bool("manual_review", true))
		} else {
			log.Error("transaction lookup failed", zap.Error(err))
		}
		return nil, err
	}

	log = log.With(zap.String("transaction_id", t.ID.String()))
	res := &Result{TransactionID: t.ID, Status: t.Status}

	if t.Status != StatusPending {
		return s.alreadySettled(ctx, log, t, n, target, res)
	}

	if target == StatusPending {
		res.Outcome = OutcomePending
		log.Info("gateway reports payment still pending")
		return res, nil
	}

	if target == StatusCompleted && !n.AmountGross.Equal(t.Amount) {
		res.Outcome = OutcomeAmountMismatch
		log.Error("amount mismatch",
			zap.String("amount_gross", payfast.FormatAmount(n.AmountGross)),
			zap.String("expected", payfast.FormatAmount(t.Amount)),
			zap.Bool("manual_review", true),
		)
		return res, fmt.Errorf("%w: notified %s expected %s", ErrAmountMismatch,
			payfast.FormatAmount(n.AmountGross), payfast.FormatAmount(t.Amount))
	}

	settlement := Settlement{GatewayPaymentID: n.PaymentID, SettledAt: s.now()}
	if target == StatusCompleted {
		settlement.ProcessingFee = n.AmountFee.Abs()
		settlement.NetAmount = n.AmountNet
	} else {
		settlement.FailureReason = "gateway reported " + string(n.PaymentStatus)
	}

	changed, err := s.store.Transition(ctx, t.ID, target, settlement)
	if err != nil {
		log.Error("failed to settle transaction", zap.Error(err))
		return nil, err
	}
	if !changed {
		// A concurrent delivery settled it first.
		current, err := s.store.GetByID(ctx, t.ID)
		if err != nil {
			log.Error("failed to reload transaction", zap.Error(err))
			return nil, err
		}
		res.Status = current.Status
		return s.alreadySettled(ctx, log, current, n, target, res)
	}

	res.Status = target
	if target == StatusFailed {
		res.Outcome = OutcomeFailed
		log.Info("donation failed at gateway")
		return res, nil
	}

	res.Outcome = OutcomeCompleted
	log.Info("donation completed",
		zap.String("amount_gross", payfast.FormatAmount(n.AmountGross)),
		zap.String("net_amount", payfast.FormatAmount(settlement.NetAmount)),
	)
	if err := s.sendReceipt(ctx, log, t, n, settlement.SettledAt); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Service) alreadySettled(ctx context.Context, log logger.Logger, t *Transaction, n payfast.Notification, target TransactionStatus, res *Result) (*Result, error) {
	if t.Status == target && (t.GatewayPaymentID == "" || t.GatewayPaymentID == n.PaymentID) {
		res.Outcome = OutcomeDuplicate
		log.Info("duplicate notification ignored", zap.String("status", string(t.Status)))
		if t.Status != StatusCompleted {
			return res, nil
		}
		// Re-enqueue in case the first delivery failed after settling.
		// The receipt sender ignores transactions it already holds.
		settledAt := s.now()
		if t.SettledAt != nil {
			settledAt = *t.SettledAt
		}
		if err := s.sendReceipt(ctx, log, t, n, settledAt); err != nil {
			return res, err
		}
		return res, nil
	}

	res.Outcome = OutcomeConflict
	log.Error("notification conflicts with settled transaction",
		zap.String("current_status", string(t.Status)),
		zap.String("notified_status", string(target)),
		zap.Bool("manual_review", true),
	)
	return res, fmt.Errorf("%w: transaction is %s, notification says %s", ErrStatusConflict, t.Status, target)
}

// lookup resolves by m_payment_id, then by correlation key restricted to a
// single pending transaction of the same gross amount.
func (s *Service) lookup(ctx context.Context, n payfast.Notification) (*Transaction, error) {
	t, err := s.store.GetByMerchantPaymentID(ctx, n.MerchantPaymentID)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrTransactionNotFound) {
		return nil, err
	}

	if n.CustomStr[0] == "" {
		return nil, ErrOrphanedNotification
	}
	candidates, err := s.store.ListPendingByCorrelationKey(ctx, CorrelationKey(n.CustomStr[0], n.CustomStr[1], n.CustomStr[2]))
	if err != nil {
		return nil, err
	}

	var match *Transaction
	for i := range candidates {
		if !candidates[i].Amount.Equal(n.AmountGross) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("%w: ambiguous correlation key", ErrOrphanedNotification)
		}
		match = &candidates[i]
	}
	if match == nil {
		return nil, ErrOrphanedNotification
	}
	return match, nil
}

// sendReceipt reports a failed enqueue as ErrStoreUnavailable so the gateway
// redelivers and the duplicate path retries it.
func (s *Service) sendReceipt(ctx context.Context, log logger.Logger, t *Transaction, n payfast.Notification, at time.Time) error {
	if s.receipts == nil {
		return nil
	}
	err := s.receipts.SendReceipt(ctx, Receipt{
		TransactionID:     t.ID,
		ChurchID:          t.ChurchID,
		MerchantPaymentID: t.MerchantPaymentID,
		GatewayPaymentID:  n.PaymentID,
		ItemName:          t.ItemName,
		Amount:            t.Amount,
		DonorName:         joinName(n.NameFirst, n.NameLast),
		DonorEmail:        n.EmailAddress,
		CompletedAt:       at,
	})
	if err != nil {
		log.Error("receipt dispatch failed", zap.Error(err))
		return fmt.Errorf("%w: receipt: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Service) reject(ctx context.Context, received time.Time, fields map[string]string, err error) {
	reason := payfast.ReasonMalformed
	if rej, ok := payfast.AsRejection(err); ok {
		reason = rej.Reason
	}

	payload := payfast.RedactPII(fields)
	switch reason {
	case payfast.ReasonSignatureMismatch, payfast.ReasonMerchantMismatch:
		s.log.Error("notification rejected: potential attack or misconfiguration",
			zap.String("reason", string(reason)), zap.Error(err), zap.Object("payload", payload))
	default:
		s.log.Warn("notification rejected",
			zap.String("reason", string(reason)), zap.Error(err), zap.Object("payload", payload))
	}

	s.record(ctx, &PaymentNotification{
		MerchantPaymentID: clip(fields[payfast.FieldMerchantPaymentID], 64),
		GatewayPaymentID:  clip(fields[payfast.FieldPaymentID], 64),
		PaymentStatus:     clip(fields[payfast.FieldPaymentStatus], 32),
		Outcome:           OutcomeRejected,
		Reason:            err.Error(),
		Payload:           encodePayload(payload),
		ReceivedAt:        received,
		ProcessedAt:       s.now(),
	})
}

func (s *Service) recordOutcome(ctx context.Context, received time.Time, v *payfast.Verified, res *Result, err error) {
	n := v.Notification()
	entry := &PaymentNotification{
		MerchantPaymentID: clip(n.MerchantPaymentID, 64),
		GatewayPaymentID:  clip(n.PaymentID, 64),
		PaymentStatus:     clip(string(n.PaymentStatus), 32),
		Payload:           encodePayload(payfast.RedactPII(v.Fields())),
		ReceivedAt:        received,
		ProcessedAt:       s.now(),
	}
	if res != nil {
		entry.Outcome = res.Outcome
		if res.TransactionID != uuid.Nil {
			id := res.TransactionID
			entry.TransactionID = &id
		}
	}
	if err != nil {
		entry.Outcome = outcomeFor(err)
		entry.Reason = err.Error()
	}
	s.record(ctx, entry)
}

func (s *Service) record(ctx context.Context, entry *PaymentNotification) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.Error("failed to write notification audit row", zap.Error(err))
	}
}

func targetStatus(status payfast.PaymentStatus) (TransactionStatus, bool) {
	switch status {
	case payfast.StatusComplete:
		return StatusCompleted, true
	case payfast.StatusFailed:
		return StatusFailed, true
	case payfast.StatusPending:
		return StatusPending, true
	}
	return "", false
}

func outcomeFor(err error) NotificationOutcome {
	switch {
	case errors.Is(err, ErrOrphanedNotification):
		return OutcomeOrphaned
	case errors.Is(err, ErrUnknownPaymentStatus):
		return OutcomeUnknownStatus
	case errors.Is(err, ErrStatusConflict):
		return OutcomeConflict
	case errors.Is(err, ErrAmountMismatch):
		return OutcomeAmountMismatch
	case isStoreError(err):
		return OutcomeStoreError
	}
	return OutcomeRejected
}

func encodePayload(f payfast.Fields) datatypes.JSON {
	if f == nil {
		f = payfast.Fields{}
	}
	b, err := json.Marshal(f)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(b)
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}
