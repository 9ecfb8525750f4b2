package payfast

import (
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"
)

const (
	RedactedMarker = "[REDACTED]"
	maskSuffix     = "***"
	merchantPrefix = 4
)

var credentialFields = map[string]bool{
	FieldSignature:  true,
	FieldPassphrase: true,
	"merchant_key":  true,
}

var piiFields = map[string]bool{
	"name_first": true,
	"name_last":  true,
}

// Fields is a log-safe projection of a parameter map.
type Fields map[string]string

// Redact replaces credentials with RedactedMarker and truncates merchant_id.
// Everything else is copied unchanged.
func Redact(params map[string]string) Fields {
	out := make(Fields, len(params))
	for k, v := range params {
		switch {
		case credentialFields[k]:
			out[k] = RedactedMarker
		case k == FieldMerchantID:
			out[k] = MaskMerchantID(v)
		default:
			out[k] = v
		}
	}
	return out
}

// RedactPII is Redact plus masking of donor names and email address.
func RedactPII(params map[string]string) Fields {
	out := Redact(params)
	for k, v := range out {
		switch {
		case piiFields[k]:
			if v != "" {
				out[k] = RedactedMarker
			}
		case k == "email_address":
			out[k] = maskEmail(v)
		}
	}
	return out
}

func MaskMerchantID(id string) string {
	r := []rune(id)
	if len(r) <= merchantPrefix {
		return maskSuffix
	}
	return string(r[:merchantPrefix]) + maskSuffix
}

func maskEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return RedactedMarker
	}
	r := []rune(email[:at])
	return string(r[:1]) + maskSuffix + email[at:]
}

// MarshalLogObject writes the fields in key order.
func (f Fields) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		enc.AddString(k, f[k])
	}
	return nil
}
