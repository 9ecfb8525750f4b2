package payfast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedNotification(passphrase string) map[string]string {
	fields := map[string]string{
		"m_payment_id":     "7d9f6c1e-4b7a-4a53-9a53-3c1c0b8b7c11",
		"pf_payment_id":    "1089250",
		"payment_status":   "COMPLETE",
		"item_name":        "Tithe",
		"item_description": "Monthly tithe",
		"amount_gross":     "99.99",
		"amount_fee":       "-2.30",
		"amount_net":       "97.69",
		"custom_str1":      "church-42",
		"custom_int1":      "42",
		"name_first":       "Thandi",
		"name_last":        "Mokoena",
		"email_address":    "thandi@example.org",
		"merchant_id":      "10000100",
	}
	fields[FieldSignature] = Sign(fields, passphrase)
	return fields
}

func TestValidate_Authentic(t *testing.T) {
	v := NewValidator(testConfig())

	verified, err := v.Validate(signedNotification(testPassphrase))
	require.NoError(t, err)
	require.NotNil(t, verified)

	n := verified.Notification()
	assert.Equal(t, StatusComplete, n.PaymentStatus)
	assert.Equal(t, "1089250", n.PaymentID)
	assert.Equal(t, "99.99", FormatAmount(n.AmountGross))
	assert.Equal(t, "-2.30", FormatAmount(n.AmountFee))
	assert.Equal(t, "97.69", FormatAmount(n.AmountNet))
	assert.Equal(t, "church-42", n.CustomStr[0])
	require.NotNil(t, n.CustomInt[0])
	assert.Equal(t, int64(42), *n.CustomInt[0])
	assert.Nil(t, n.CustomInt[1])
	assert.Equal(t, "thandi@example.org", n.EmailAddress)
}

func TestValidate_FieldsAreCopied(t *testing.T) {
	fields := signedNotification(testPassphrase)
	verified, err := NewValidator(testConfig()).Validate(fields)
	require.NoError(t, err)

	fields["payment_status"] = "FAILED"
	assert.Equal(t, "COMPLETE", verified.Fields()["payment_status"])

	out := verified.Fields()
	out["payment_status"] = "FAILED"
	assert.Equal(t, "COMPLETE", verified.Fields()["payment_status"])
}

func TestValidate_WrongSecret(t *testing.T) {
	fields := signedNotification("not-the-passphrase")

	verified, err := NewValidator(testConfig()).Validate(fields)
	assert.Nil(t, verified)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	rej, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ReasonSignatureMismatch, rej.Reason)
}

func TestValidate_MissingFieldBeforeSignature(t *testing.T) {
	fields := signedNotification(testPassphrase)
	delete(fields, FieldAmountNet)
	fields[FieldSignature] = "0000"

	_, err := NewValidator(testConfig()).Validate(fields)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.False(t, errors.Is(err, ErrSignatureMismatch))

	rej, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, FieldAmountNet, rej.Field)
	assert.Equal(t, "malformed: missing field amount_net", err.Error())
}

func TestValidate_EveryRequiredField(t *testing.T) {
	for _, name := range RequiredFields {
		fields := signedNotification(testPassphrase)
		fields[name] = ""

		_, err := NewValidator(testConfig()).Validate(fields)
		rej, ok := AsRejection(err)
		require.True(t, ok, name)
		assert.Equal(t, ReasonMalformed, rej.Reason, name)
		assert.Equal(t, name, rej.Field)
	}
}

func TestValidate_MalformedAmount(t *testing.T) {
	fields := signedNotification(testPassphrase)
	fields[FieldAmountGross] = "99,99"
	fields[FieldSignature] = Sign(fields, testPassphrase)

	_, err := NewValidator(testConfig()).Validate(fields)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestValidate_MalformedCustomInt(t *testing.T) {
	fields := signedNotification(testPassphrase)
	fields["custom_int2"] = "12abc"
	fields[FieldSignature] = Sign(fields, testPassphrase)

	_, err := NewValidator(testConfig()).Validate(fields)
	rej, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, "custom_int2", rej.Field)
}

func TestValidate_UnknownFieldName(t *testing.T) {
	for _, key := range []string{"Amount", "item-name", "a b", ""} {
		fields := signedNotification(testPassphrase)
		fields[key] = "1"

		_, err := NewValidator(testConfig()).Validate(fields)
		assert.ErrorIs(t, err, ErrUnknownField, "key %q", key)
	}
}

func TestValidate_MerchantMismatch(t *testing.T) {
	fields := signedNotification(testPassphrase)
	fields[FieldMerchantID] = "10009999"
	fields[FieldSignature] = Sign(fields, testPassphrase)

	_, err := NewValidator(testConfig()).Validate(fields)
	assert.ErrorIs(t, err, ErrMerchantMismatch)
}

func TestValidate_TamperDetection(t *testing.T) {
	v := NewValidator(testConfig())
	original := signedNotification(testPassphrase)

	for key, value := range original {
		for i := 0; i < len(value); i++ {
			fields := signedNotification(testPassphrase)
			b := []byte(value)
			if b[i] == 'z' {
				b[i] = 'y'
			} else {
				b[i] = 'z'
			}
			fields[key] = string(b)

			verified, err := v.Validate(fields)
			assert.Nil(t, verified, "field %s position %d", key, i)
			assert.Error(t, err, "field %s position %d", key, i)
		}
	}
}

func TestValidate_RoundTripFromIntent(t *testing.T) {
	cfg := testConfig()
	intent, err := BuildIntent(cfg, testIntentRequest())
	require.NoError(t, err)

	fields := map[string]string{}
	for k, v := range intent.Params {
		fields[k] = v
	}
	delete(fields, "merchant_key")
	delete(fields, "amount")
	fields[FieldPaymentID] = "1089250"
	fields[FieldPaymentStatus] = string(StatusComplete)
	fields[FieldAmountGross] = intent.Params["amount"]
	fields[FieldAmountFee] = "-2.30"
	fields[FieldAmountNet] = "97.69"
	fields[FieldSignature] = Sign(fields, cfg.Passphrase)

	verified, err := NewValidator(cfg).Validate(fields)
	require.NoError(t, err)
	assert.Equal(t, intent.Params["m_payment_id"], verified.Notification().MerchantPaymentID)
}

func TestValidate_NilAndEmptyInput(t *testing.T) {
	v := NewValidator(testConfig())

	_, err := v.Validate(nil)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = v.Validate(map[string]string{})
	assert.ErrorIs(t, err, ErrMalformed)
}
