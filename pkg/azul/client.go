package azul

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"unicode/utf16"

	"github.com/shopspring/decimal"

	"github.com/construplaza/construplaza-backend/pkg/config"
	pkgerrors "github.com/construplaza/construplaza-backend/pkg/errors"
)

// callbackHashFields is the order Azul concatenates callback values in before
// hashing. Any field absent from the callback contributes an empty string.
var callbackHashFields = []string{
	"OrderNumber",
	"Amount",
	"AuthorizationCode",
	"DateTime",
	"ResponseCode",
	"IsoCode",
	"ResponseMessage",
	"ErrorDescription",
	"RRN",
}

var (
	errMerchantIDRequired = errors.New("azul merchant id is required")
	errAuthKeyRequired    = errors.New("azul auth key is required")
)

// Client builds signed Azul payment-page requests and verifies callbacks.
type Client struct {
	cfg config.AzulConfig
}

// NewClient validates the merchant credentials and returns an Azul client.
func NewClient(cfg config.AzulConfig) (*Client, error) {
	if strings.TrimSpace(cfg.MerchantID) == "" {
		return nil, errMerchantIDRequired
	}
	if strings.TrimSpace(cfg.AuthKey) == "" {
		return nil, errAuthKeyRequired
	}
	return &Client{cfg: cfg}, nil
}

// PaymentRequest describes a charge to collect through the payment page.
type PaymentRequest struct {
	OrderNumber string
	Amount      decimal.Decimal
	ITBIS       decimal.Decimal
}

// Field is a single name/value pair for the outbound form post. Order matters:
// the AuthHash covers the values in the order they are posted.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PaymentForm is everything the frontend needs to post the buyer to Azul.
type PaymentForm struct {
	URL    string  `json:"url"`
	Fields []Field `json:"fields"`
}

// BuildPaymentForm assembles the signed form-post payload for the request.
func (c *Client) BuildPaymentForm(req PaymentRequest) (*PaymentForm, error) {
	orderNumber := strings.TrimSpace(req.OrderNumber)
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if req.ITBIS.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "itbis must not be negative")
	}

	fields := []Field{
		{Name: "MerchantId", Value: c.cfg.MerchantID},
		{Name: "MerchantName", Value: c.cfg.MerchantName},
		{Name: "MerchantType", Value: c.cfg.MerchantType},
		{Name: "CurrencyCode", Value: c.cfg.CurrencyCode},
		{Name: "OrderNumber", Value: orderNumber},
		{Name: "Amount", Value: toCents(req.Amount)},
		{Name: "ITBIS", Value: toCents(req.ITBIS)},
		{Name: "ApprovedUrl", Value: c.cfg.ApprovedURL},
		{Name: "DeclinedUrl", Value: c.cfg.DeclinedURL},
		{Name: "CancelUrl", Value: c.cfg.CancelURL},
	}

	values := make([]string, 0, len(fields))
	for _, f := range fields {
		values = append(values, f.Value)
	}
	fields = append(fields, Field{Name: "AuthHash", Value: c.authHash(values)})

	return &PaymentForm{URL: c.cfg.BaseURL, Fields: fields}, nil
}

// Callback carries the parameters Azul posts back after a payment attempt.
type Callback struct {
	Params map[string]string
}

// Get returns the named callback parameter or an empty string.
func (cb Callback) Get(name string) string {
	if cb.Params == nil {
		return ""
	}
	return cb.Params[name]
}

// Approved reports whether the callback carries the approval ISO code.
func (cb Callback) Approved() bool {
	return cb.Get("IsoCode") == "00"
}

// VerifyCallback recomputes the AuthHash over the returned fields and fails
// closed on any mismatch. The payload must never be trusted before this passes.
func (c *Client) VerifyCallback(cb Callback) error {
	provided := strings.TrimSpace(cb.Get("AuthHash"))
	if provided == "" {
		return pkgerrors.New(pkgerrors.CodeSignatureInvalid, "callback auth hash missing")
	}

	values := make([]string, 0, len(callbackHashFields))
	for _, name := range callbackHashFields {
		values = append(values, cb.Get(name))
	}
	expected := c.authHash(values)

	if subtle.ConstantTimeCompare([]byte(strings.ToLower(provided)), []byte(expected)) != 1 {
		return pkgerrors.New(pkgerrors.CodeSignatureInvalid, "callback auth hash mismatch")
	}
	return nil
}

// SignCallback computes the AuthHash Azul would attach to the callback
// fields. Used to simulate gateway callbacks in sandbox flows and tests.
func (c *Client) SignCallback(cb Callback) string {
	values := make([]string, 0, len(callbackHashFields))
	for _, name := range callbackHashFields {
		values = append(values, cb.Get(name))
	}
	return c.authHash(values)
}

// authHash is hex(SHA-512(UTF-16LE(concat(values) + authKey))). Azul's payment
// page computes the digest over the UTF-16LE bytes of the concatenated string,
// not UTF-8.
func (c *Client) authHash(values []string) string {
	var builder strings.Builder
	for _, v := range values {
		builder.WriteString(v)
	}
	builder.WriteString(c.cfg.AuthKey)

	sum := sha512.Sum512(utf16leBytes(builder.String()))
	return hex.EncodeToString(sum[:])
}

func utf16leBytes(s string) []byte {
	encoded := utf16.Encode([]rune(s))
	buf := make([]byte, len(encoded)*2)
	for i, r := range encoded {
		buf[i*2] = byte(r)
		buf[i*2+1] = byte(r >> 8)
	}
	return buf
}

func toCents(amount decimal.Decimal) string {
	return amount.Shift(2).Round(0).String()
}
