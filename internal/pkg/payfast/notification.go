package payfast

import (
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	StatusComplete PaymentStatus = "COMPLETE"
	StatusFailed   PaymentStatus = "FAILED"
	StatusPending  PaymentStatus = "PENDING"
)

const (
	FieldMerchantPaymentID = "m_payment_id"
	FieldPaymentID         = "pf_payment_id"
	FieldPaymentStatus     = "payment_status"
	FieldItemName          = "item_name"
	FieldAmountGross       = "amount_gross"
	FieldAmountFee         = "amount_fee"
	FieldAmountNet         = "amount_net"
	FieldMerchantID        = "merchant_id"
)

// RequiredFields must all be present and non-empty before any hashing happens.
var RequiredFields = []string{
	FieldMerchantPaymentID,
	FieldPaymentID,
	FieldPaymentStatus,
	FieldItemName,
	FieldAmountGross,
	FieldAmountFee,
	FieldAmountNet,
	FieldMerchantID,
	FieldSignature,
}

// Notification is the typed view of a gateway callback.
type Notification struct {
	MerchantPaymentID string
	PaymentID         string
	PaymentStatus     PaymentStatus
	ItemName          string
	ItemDescription   string
	AmountGross       decimal.Decimal
	AmountFee         decimal.Decimal
	AmountNet         decimal.Decimal
	MerchantID        string
	NameFirst         string
	NameLast          string
	EmailAddress      string
	CustomStr         [CustomSlots]string
	CustomInt         [CustomSlots]*int64
}

// Verified can only be produced by Validator.Validate, so holding one proves
// the signature and merchant checks passed.
type Verified struct {
	n      Notification
	fields map[string]string
}

func (v *Verified) Notification() Notification { return v.n }

// Fields returns a copy of the authenticated raw fields.
func (v *Verified) Fields() map[string]string {
	out := make(map[string]string, len(v.fields))
	for k, val := range v.fields {
		out[k] = val
	}
	return out
}

type Validator struct {
	merchantID string
	passphrase string
}

func NewValidator(cfg Config) *Validator {
	return &Validator{
		merchantID: strings.TrimSpace(cfg.MerchantID),
		passphrase: cfg.Passphrase,
	}
}

// Validate turns untrusted fields into a Verified notification or a
// *Rejection. It never panics on hostile input.
func (v *Validator) Validate(fields map[string]string) (*Verified, error) {
	for k := range fields {
		if !validFieldName(k) {
			return nil, &Rejection{Reason: ReasonUnknownField, Field: truncate(k, 40), Detail: "invalid field name"}
		}
	}
	for _, name := range RequiredFields {
		if strings.TrimSpace(fields[name]) == "" {
			return nil, missingField(name)
		}
	}
	n, rej := decode(fields)
	if rej != nil {
		return nil, rej
	}

	if !VerifySignature(fields, v.passphrase) {
		return nil, &Rejection{Reason: ReasonSignatureMismatch}
	}

	if v.merchantID != "" && subtle.ConstantTimeCompare([]byte(n.MerchantID), []byte(v.merchantID)) != 1 {
		return nil, &Rejection{Reason: ReasonMerchantMismatch, Field: FieldMerchantID}
	}

	copied := make(map[string]string, len(fields))
	for k, val := range fields {
		copied[k] = val
	}
	return &Verified{n: n, fields: copied}, nil
}

func decode(fields map[string]string) (Notification, *Rejection) {
	get := func(k string) string { return strings.TrimSpace(fields[k]) }

	n := Notification{
		MerchantPaymentID: get(FieldMerchantPaymentID),
		PaymentID:         get(FieldPaymentID),
		PaymentStatus:     PaymentStatus(get(FieldPaymentStatus)),
		ItemName:          get(FieldItemName),
		ItemDescription:   get("item_description"),
		MerchantID:        get(FieldMerchantID),
		NameFirst:         get("name_first"),
		NameLast:          get("name_last"),
		EmailAddress:      get("email_address"),
	}

	amounts := []struct {
		field string
		dst   *decimal.Decimal
	}{
		{FieldAmountGross, &n.AmountGross},
		{FieldAmountFee, &n.AmountFee},
		{FieldAmountNet, &n.AmountNet},
	}
	for _, a := range amounts {
		d, err := decimal.NewFromString(get(a.field))
		if err != nil {
			return Notification{}, invalidField(a.field)
		}
		*a.dst = d
	}

	for i := 0; i < CustomSlots; i++ {
		n.CustomStr[i] = get(fmt.Sprintf("custom_str%d", i+1))
		name := fmt.Sprintf("custom_int%d", i+1)
		if raw := get(name); raw != "" {
			val, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return Notification{}, invalidField(name)
			}
			n.CustomInt[i] = &val
		}
	}
	return n, nil
}

func validFieldName(k string) bool {
	if k == "" || len(k) > 64 {
		return false
	}
	for i := 0; i < len(k); i++ {
		c := k[i]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return true
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
