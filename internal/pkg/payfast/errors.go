package payfast

import (
	"errors"
	"fmt"
)

var (
	ErrMissingConfig      = errors.New("payfast merchant configuration is incomplete")
	ErrInvalidAmount      = errors.New("amount must be a positive value with at most 2 decimal places")
	ErrInvalidItem        = errors.New("item name is required")
	ErrInvalidURL         = errors.New("url must be an absolute http(s) url")
	ErrInvalidCustomField = errors.New("invalid custom field")

	ErrMalformed         = errors.New("malformed notification")
	ErrUnknownField      = errors.New("unknown field set")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrMerchantMismatch  = errors.New("unknown merchant id")
)

type RejectReason string

const (
	ReasonMalformed         RejectReason = "malformed"
	ReasonUnknownField      RejectReason = "unknown_field"
	ReasonSignatureMismatch RejectReason = "signature_mismatch"
	ReasonMerchantMismatch  RejectReason = "merchant_mismatch"
)

// Rejection is returned for every notification that must not be trusted.
type Rejection struct {
	Reason RejectReason
	Field  string
	Detail string
}

func (r *Rejection) Error() string {
	switch {
	case r.Field != "" && r.Detail != "":
		return fmt.Sprintf("%s: %s %s", r.Reason, r.Detail, r.Field)
	case r.Field != "":
		return fmt.Sprintf("%s: field %s", r.Reason, r.Field)
	case r.Detail != "":
		return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
	default:
		return string(r.Reason)
	}
}

func (r *Rejection) Unwrap() error {
	switch r.Reason {
	case ReasonMalformed:
		return ErrMalformed
	case ReasonUnknownField:
		return ErrUnknownField
	case ReasonSignatureMismatch:
		return ErrSignatureMismatch
	case ReasonMerchantMismatch:
		return ErrMerchantMismatch
	}
	return nil
}

func missingField(name string) *Rejection {
	return &Rejection{Reason: ReasonMalformed, Field: name, Detail: "missing field"}
}

func invalidField(name string) *Rejection {
	return &Rejection{Reason: ReasonMalformed, Field: name, Detail: "invalid field"}
}

// AsRejection extracts the rejection from err, if any.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
