package payfast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Payment statuses posted in an ITN
const (
	StatusComplete  = "COMPLETE"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
	StatusPending   = "PENDING"
)

var (
	ErrEmptyNotification = errors.New("empty notification")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrInvalidMerchant   = errors.New("notification for another merchant")
	ErrInvalidSource     = errors.New("notification from unknown host")
	ErrNotConfirmed      = errors.New("notification not confirmed by payfast")
	ErrAmountMismatch    = errors.New("amount mismatch")
)

// Hosts PayFast posts notifications from
var validHosts = []string{
	"www.payfast.co.za",
	"sandbox.payfast.co.za",
	"w1w.payfast.co.za",
	"w2w.payfast.co.za",
}

// Notification is a parsed ITN post
type Notification struct {
	Fields Fields
}

// ParseNotification decodes a form body keeping the posted field order
func ParseNotification(body []byte) (*Notification, error) {
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return nil, ErrEmptyNotification
	}

	var fields Fields
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			return nil, fmt.Errorf("decode field %q: %w", key, err)
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("decode value of %q: %w", k, err)
		}
		fields = append(fields, Field{Key: k, Value: v})
	}
	if len(fields) == 0 {
		return nil, ErrEmptyNotification
	}
	return &Notification{Fields: fields}, nil
}

func (n *Notification) MPaymentID() string    { return n.Fields.Get("m_payment_id") }
func (n *Notification) PFPaymentID() string   { return n.Fields.Get("pf_payment_id") }
func (n *Notification) PaymentStatus() string { return strings.ToUpper(n.Fields.Get("payment_status")) }
func (n *Notification) CustomStr1() string    { return n.Fields.Get("custom_str1") }
func (n *Notification) CustomStr2() string    { return n.Fields.Get("custom_str2") }
func (n *Notification) EmailAddress() string  { return n.Fields.Get("email_address") }
func (n *Notification) Signature() string     { return n.Fields.Get("signature") }

func (n *Notification) AmountGross() (float64, error) {
	return ParseAmount(n.Fields.Get("amount_gross"))
}

func (n *Notification) AmountFee() (float64, error) {
	return ParseAmount(n.Fields.Get("amount_fee"))
}

func (n *Notification) AmountNet() (float64, error) {
	return ParseAmount(n.Fields.Get("amount_net"))
}

// Verifier runs the ITN security checks
type Verifier struct {
	Client         *Client
	ValidateServer bool
	ValidateIP     bool
	// LookupHost resolves PayFast host names, net.DefaultResolver when nil
	LookupHost func(ctx context.Context, host string) ([]string, error)
}

// Verify checks the signature and the merchant, then optionally the source
// address and a confirmation round trip to PayFast.
func (v *Verifier) Verify(ctx context.Context, n *Notification, remoteIP string) error {
	if !v.SignatureValid(n) {
		return ErrInvalidSignature
	}
	// sandbox credentials are shared, a valid signature alone proves little
	if v.Client.MerchantID != "" && n.Fields.Get("merchant_id") != v.Client.MerchantID {
		return ErrInvalidMerchant
	}
	if v.ValidateIP {
		if err := v.checkSource(ctx, remoteIP); err != nil {
			return err
		}
	}
	if v.ValidateServer {
		if err := v.Client.Confirm(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// SignatureValid accepts the posted order first and the sorted form as a fallback
func (v *Verifier) SignatureValid(n *Notification) bool {
	got := strings.ToLower(strings.TrimSpace(n.Signature()))
	if got == "" {
		return false
	}
	if SignatureOrdered(n.Fields, v.Client.Passphrase) == got {
		return true
	}
	return Signature(n.Fields.Map(), v.Client.Passphrase) == got
}

func (v *Verifier) checkSource(ctx context.Context, remoteIP string) error {
	ip := net.ParseIP(remoteIP)
	if ip == nil {
		return ErrInvalidSource
	}

	lookup := v.LookupHost
	if lookup == nil {
		lookup = net.DefaultResolver.LookupHost
	}
	for _, host := range validHosts {
		addrs, err := lookup(ctx, host)
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if candidate := net.ParseIP(addr); candidate != nil && candidate.Equal(ip) {
				return nil
			}
		}
	}
	return ErrInvalidSource
}

// Confirm posts the notification back to PayFast, which answers VALID or INVALID
func (c *Client) Confirm(ctx context.Context, n *Notification) error {
	body := strings.Join(encodeOrdered(n.Fields), "&")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL()+"/eng/query/validate", strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("build validate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("validate with payfast: %w", err)
	}
	defer resp.Body.Close()

	answer, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return fmt.Errorf("read validate response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(answer)) != "VALID" {
		return ErrNotConfirmed
	}
	return nil
}
