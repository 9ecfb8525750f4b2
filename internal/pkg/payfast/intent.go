package payfast

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	LiveProcessURL    = "https://www.payfast.co.za/eng/process"
	SandboxProcessURL = "https://sandbox.payfast.co.za/eng/process"

	CustomSlots = 5

	maxItemName        = 100
	maxItemDescription = 255
	maxCustomStr       = 255
	maxPayerField      = 100
)

// Config holds the merchant credentials for one deployment.
type Config struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	Sandbox     bool
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.MerchantID) == "" || strings.TrimSpace(c.MerchantKey) == "" {
		return ErrMissingConfig
	}
	return nil
}

func (c Config) ProcessURL() string {
	if c.Sandbox {
		return SandboxProcessURL
	}
	return LiveProcessURL
}

// IntentRequest describes one donation attempt. CustomStr and CustomInt
// carry correlation identifiers that the gateway echoes back.
type IntentRequest struct {
	MerchantPaymentID string
	Amount            decimal.Decimal
	ItemName          string
	ItemDescription   string
	ReturnURL         string
	CancelURL         string
	NotifyURL         string
	NameFirst         string
	NameLast          string
	EmailAddress      string
	CustomStr         [CustomSlots]string
	CustomInt         [CustomSlots]*int64
}

// Intent is a signed redirect to the gateway. Params is exactly the set the
// signature was computed over.
type Intent struct {
	URL       string
	Params    map[string]string
	Signature string
}

// ParseAmount parses a donor supplied amount string.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// FormatAmount renders an amount the way the gateway signs it.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func validAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(2))
}

// BuildIntent validates req and produces the signed redirect URL.
func BuildIntent(cfg Config, req IntentRequest) (*Intent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !validAmount(req.Amount) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, req.Amount.String())
	}
	if strings.TrimSpace(req.MerchantPaymentID) == "" {
		return nil, fmt.Errorf("%w: m_payment_id is required", ErrInvalidCustomField)
	}

	itemName := sanitize(req.ItemName, maxItemName)
	if itemName == "" {
		return nil, ErrInvalidItem
	}

	if strings.TrimSpace(req.NotifyURL) == "" {
		return nil, fmt.Errorf("%w: notify_url is required", ErrInvalidURL)
	}
	urls := map[string]string{
		"return_url": req.ReturnURL,
		"cancel_url": req.CancelURL,
		"notify_url": req.NotifyURL,
	}
	for name, raw := range urls {
		if raw == "" {
			continue
		}
		if !isAbsoluteURL(raw) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidURL, name)
		}
	}

	params := map[string]string{
		"merchant_id":      strings.TrimSpace(cfg.MerchantID),
		"merchant_key":     strings.TrimSpace(cfg.MerchantKey),
		"m_payment_id":     strings.TrimSpace(req.MerchantPaymentID),
		"amount":           FormatAmount(req.Amount),
		"item_name":        itemName,
		"item_description": sanitize(req.ItemDescription, maxItemDescription),
		"return_url":       strings.TrimSpace(req.ReturnURL),
		"cancel_url":       strings.TrimSpace(req.CancelURL),
		"notify_url":       strings.TrimSpace(req.NotifyURL),
		"name_first":       sanitize(req.NameFirst, maxPayerField),
		"name_last":        sanitize(req.NameLast, maxPayerField),
		"email_address":    sanitize(req.EmailAddress, maxPayerField),
	}

	for i := 0; i < CustomSlots; i++ {
		if s := req.CustomStr[i]; s != "" {
			if utf8.RuneCountInString(s) > maxCustomStr || strings.ContainsFunc(s, unicode.IsControl) {
				return nil, fmt.Errorf("%w: custom_str%d", ErrInvalidCustomField, i+1)
			}
			params[fmt.Sprintf("custom_str%d", i+1)] = s
		}
		if n := req.CustomInt[i]; n != nil {
			params[fmt.Sprintf("custom_int%d", i+1)] = strconv.FormatInt(*n, 10)
		}
	}

	for k, v := range params {
		if strings.TrimSpace(v) == "" {
			delete(params, k)
		}
	}

	signature := Sign(params, cfg.Passphrase)
	query := strings.Join(canonicalPairs(params), "&") + "&" + FieldSignature + "=" + signature

	return &Intent{
		URL:       cfg.ProcessURL() + "?" + query,
		Params:    params,
		Signature: signature,
	}, nil
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// sanitize drops control characters, trims and caps the rune length.
func sanitize(s string, max int) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > max {
		s = strings.TrimSpace(string([]rune(s)[:max]))
	}
	return s
}
