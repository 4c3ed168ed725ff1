package payfast

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"
)

const (
	liveHost    = "www.payfast.co.za"
	sandboxHost = "sandbox.payfast.co.za"
)

// Signing modes for checkout requests
const (
	SignSorted   = "sorted"
	SignDocument = "documented"
)

var ErrInvalidCheckout = errors.New("invalid checkout")

type Client struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	Sandbox     bool
	NotifyURL   string
	SignMode    string
	HTTPClient  *http.Client
	// Endpoint overrides the PayFast base URL
	Endpoint string
}

func NewClient(merchantID, merchantKey, passphrase string, sandbox bool, notifyURL string) *Client {
	return &Client{
		MerchantID:  merchantID,
		MerchantKey: merchantKey,
		Passphrase:  passphrase,
		Sandbox:     sandbox,
		NotifyURL:   notifyURL,
		SignMode:    SignSorted,
		HTTPClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Host() string {
	if c.Sandbox {
		return sandboxHost
	}
	return liveHost
}

func (c *Client) BaseURL() string {
	if c.Endpoint != "" {
		return strings.TrimRight(c.Endpoint, "/")
	}
	return "https://" + c.Host()
}

func (c *Client) ProcessURL() string {
	return c.BaseURL() + "/eng/process"
}

// Checkout describes one payment the buyer is sent to PayFast for
type Checkout struct {
	ReturnURL       string
	CancelURL       string
	NameFirst       string
	NameLast        string
	Email           string
	MPaymentID      string
	Amount          float64
	ItemName        string
	ItemDescription string
	CustomStr1      string
	CustomStr2      string
}

// PaymentRequest is the signed form the browser posts to PayFast
type PaymentRequest struct {
	URL    string
	Fields Fields
}

// Data is the JSON friendly form of the request fields
func (r PaymentRequest) Data() map[string]string {
	return r.Fields.Map()
}

// Checkout builds and signs a payment request
func (c *Client) Checkout(co Checkout) (PaymentRequest, error) {
	if co.Amount <= 0 {
		return PaymentRequest{}, errors.Join(ErrInvalidCheckout, errors.New("amount must be positive"))
	}
	if strings.TrimSpace(co.ItemName) == "" {
		return PaymentRequest{}, errors.Join(ErrInvalidCheckout, errors.New("item name is required"))
	}

	// Field order follows the PayFast form reference
	candidates := Fields{
		{"merchant_id", c.MerchantID},
		{"merchant_key", c.MerchantKey},
		{"return_url", co.ReturnURL},
		{"cancel_url", co.CancelURL},
		{"notify_url", c.NotifyURL},
		{"name_first", co.NameFirst},
		{"name_last", co.NameLast},
		{"email_address", co.Email},
		{"m_payment_id", co.MPaymentID},
		{"amount", FormatAmount(co.Amount)},
		{"item_name", truncate(co.ItemName, 100)},
		{"item_description", truncate(co.ItemDescription, 255)},
		{"custom_str1", co.CustomStr1},
		{"custom_str2", co.CustomStr2},
	}

	fields := make(Fields, 0, len(candidates)+1)
	for _, f := range candidates {
		if v := strings.TrimSpace(f.Value); v != "" {
			fields = append(fields, Field{f.Key, v})
		}
	}

	var signature string
	if c.SignMode == SignDocument {
		signature = DocumentOrderSignature(fields, c.Passphrase)
	} else {
		signature = Signature(fields.Map(), c.Passphrase)
	}
	fields = append(fields, Field{"signature", signature})

	return PaymentRequest{URL: c.ProcessURL(), Fields: fields}, nil
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}

var redirectTemplate = template.Must(template.New("payfast").Parse(`<html>
<head><title>Redirecting to PayFast...</title></head>
<body onload="document.forms[0].submit()">
<form action="{{.URL}}" method="POST">
{{range .Fields}}<input type="hidden" name="{{.Key}}" value="{{.Value}}"/>
{{end}}<noscript><button type="submit">Continue to PayFast</button></noscript>
</form>
</body>
</html>
`))

// HTML renders an auto-submitting form posting the request to PayFast
func (r PaymentRequest) HTML() (string, error) {
	var buf bytes.Buffer
	if err := redirectTemplate.Execute(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}
