package payment

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	ModeGateway   = "gateway"
	ModeSimulated = "simulated"
)

// SimulatedMethods are offered to the payer when no real gateway is configured.
var SimulatedMethods = []string{"upi", "card", "netbanking", "wallet"}

// Session tells the client how to pay for a pending donation.
type Session struct {
	Mode   string            `json:"mode"`
	Action string            `json:"action,omitempty"`
	Method string            `json:"method,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`

	Methods        []string `json:"methods,omitempty"`
	ConfirmURL     string   `json:"confirm_url,omitempty"`
	ConfirmDelayMS int64    `json:"confirm_delay_ms,omitempty"`
}

// Payer is the donor data placed in the outbound request.
type Payer struct {
	Name  string
	Email string
	Phone string
}

// Checkout builds sessions and parses callbacks for one merchant account.
type Checkout struct {
	MerchantKey  string
	Secret       string
	Mode         string
	ActionURL    string
	SuccessURL   string
	FailureURL   string
	ConfirmURL   string
	ConfirmDelay time.Duration
}

// Start builds the session for a pending donation. ref is the opaque donation
// reference echoed back in udf1.
func (c Checkout) Start(txnID string, amount int64, description string, p Payer, ref string) Session {
	if c.Mode == ModeSimulated {
		return Session{
			Mode:           ModeSimulated,
			Methods:        SimulatedMethods,
			ConfirmURL:     c.ConfirmURL,
			ConfirmDelayMS: c.ConfirmDelay.Milliseconds(),
		}
	}

	req := RequestFields{
		TxnID:       txnID,
		Amount:      FormatAmount(amount),
		ProductInfo: description,
		FirstName:   p.Name,
		Email:       p.Email,
	}
	req.UDF[0] = ref

	return Session{
		Mode:   ModeGateway,
		Action: c.ActionURL,
		Method: "POST",
		Fields: map[string]string{
			"key":         c.MerchantKey,
			"txnid":       req.TxnID,
			"amount":      req.Amount,
			"productinfo": req.ProductInfo,
			"firstname":   req.FirstName,
			"email":       req.Email,
			"phone":       p.Phone,
			"surl":        c.SuccessURL,
			"furl":        c.FailureURL,
			"udf1":        ref,
			"hash":        ComputeRequestHash(c.MerchantKey, c.Secret, req),
		},
	}
}

// Callback is a parsed gateway post-back.
type Callback struct {
	ResponseFields
	PaymentID    string
	ErrorMessage string
}

// DonationRef returns the opaque reference set at session start.
func (cb Callback) DonationRef() string { return cb.UDF[0] }

// ParseCallback reads the gateway form. Unknown fields are ignored.
func ParseCallback(form url.Values) Callback {
	cb := Callback{
		ResponseFields: ResponseFields{
			Status:            strings.TrimSpace(form.Get("status")),
			TxnID:             form.Get("txnid"),
			Amount:            form.Get("amount"),
			ProductInfo:       form.Get("productinfo"),
			FirstName:         form.Get("firstname"),
			Email:             form.Get("email"),
			AdditionalCharges: form.Get("additionalCharges"),
			Hash:              form.Get("hash"),
		},
		PaymentID:    form.Get("mihpayid"),
		ErrorMessage: form.Get("error_Message"),
	}
	for i := range cb.UDF {
		cb.UDF[i] = form.Get("udf" + strconv.Itoa(i+1))
	}
	if cb.ErrorMessage == "" {
		cb.ErrorMessage = form.Get("field9")
	}
	return cb
}

// AcceptsCallbacks reports whether gateway post-backs can be verified at all.
// Simulated checkouts and empty credentials never accept one.
func (c Checkout) AcceptsCallbacks() bool {
	return c.Mode != ModeSimulated && c.MerchantKey != "" && c.Secret != ""
}

// Verify checks the callback hash against this merchant's credentials.
func (c Checkout) Verify(cb Callback) bool {
	return c.AcceptsCallbacks() && VerifyResponseHash(c.MerchantKey, c.Secret, cb.ResponseFields)
}
