package telecom

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
)

var ErrNotConfigured = errors.New("twilio is not configured")

// Call is the result of an outbound call request
type Call struct {
	SID    string `json:"call_sid"`
	Status string `json:"status"`
}

// Caller places outbound voice calls
type Caller interface {
	Call(ctx context.Context, to, callbackURL string) (Call, error)
}

// Verifier sends and checks one time phone codes
type Verifier interface {
	SendCode(ctx context.Context, phone string) error
	CheckCode(ctx context.Context, phone, code string) (bool, error)
}

// Twilio implements Caller and Verifier on top of the Twilio REST API
type Twilio struct {
	client          *twilio.RestClient
	from            string
	verifyServiceID string
}

func NewTwilio(accountSID, authToken, from, verifyServiceID string) *Twilio {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Twilio{client: client, from: from, verifyServiceID: verifyServiceID}
}

func (t *Twilio) Call(_ context.Context, to, callbackURL string) (Call, error) {
	if t.from == "" {
		return Call{}, ErrNotConfigured
	}

	params := &openapi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetUrl(callbackURL)

	resp, err := t.client.Api.CreateCall(params)
	if err != nil {
		return Call{}, fmt.Errorf("create call: %w", err)
	}

	var call Call
	if resp.Sid != nil {
		call.SID = *resp.Sid
	}
	if resp.Status != nil {
		call.Status = *resp.Status
	}
	return call, nil
}

func (t *Twilio) SendCode(_ context.Context, phone string) error {
	if t.verifyServiceID == "" {
		return ErrNotConfigured
	}

	params := &verify.CreateVerificationParams{}
	params.SetTo(phone)
	params.SetChannel("sms")

	if _, err := t.client.VerifyV2.CreateVerification(t.verifyServiceID, params); err != nil {
		return fmt.Errorf("send verification: %w", err)
	}
	return nil
}

func (t *Twilio) CheckCode(_ context.Context, phone, code string) (bool, error) {
	if t.verifyServiceID == "" {
		return false, ErrNotConfigured
	}

	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(phone)
	params.SetCode(code)

	resp, err := t.client.VerifyV2.CreateVerificationCheck(t.verifyServiceID, params)
	if err != nil {
		return false, fmt.Errorf("check verification: %w", err)
	}
	return resp.Status != nil && *resp.Status == "approved", nil
}
