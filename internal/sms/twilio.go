package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

const (
	TwilioName    = "twilio"
	TwilioBaseURL = "https://api.twilio.com"
)

// Twilio sends messages through the Twilio Programmable Messaging API.
type Twilio struct {
	client *twilio.RestClient
	from   string
}

// NewTwilio creates a Twilio sender. A non-empty baseURL redirects API
// calls to another host (a proxy or a test server).
func NewTwilio(accountSID, authToken, from, baseURL string) *Twilio {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	if baseURL != "" && strings.TrimRight(baseURL, "/") != TwilioBaseURL {
		if target, err := url.Parse(strings.TrimRight(baseURL, "/")); err == nil {
			httpClient.Transport = &rewriteTransport{target: target, next: http.DefaultTransport}
		}
	}

	c := &twilioclient.Client{
		Credentials: twilioclient.NewCredentials(accountSID, authToken),
		HTTPClient:  httpClient,
	}
	c.SetAccountSid(accountSID)

	return &Twilio{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{Client: c}),
		from:   from,
	}
}

func (t *Twilio) Name() string {
	return TwilioName
}

// Send creates one message and returns its SID.
func (t *Twilio) Send(ctx context.Context, to, body string) (string, error) {
	if strings.TrimSpace(to) == "" {
		return "", ErrMissingNumber
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)

	msg, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return "", classifyTwilioError(err)
	}
	if msg == nil || msg.Sid == nil || *msg.Sid == "" {
		return "", fmt.Errorf("%w: missing sid", ErrInvalidResponse)
	}

	return *msg.Sid, nil
}

func classifyTwilioError(err error) error {
	var restErr *twilioclient.TwilioRestError
	if errors.As(err, &restErr) {
		return fmt.Errorf("%w: status %d: code %d: %s", ErrDeliveryFailed, restErr.Status, restErr.Code, restErr.Message)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
}

// rewriteTransport sends every request to target, keeping path and query.
type rewriteTransport struct {
	target *url.URL
	next   http.RoundTripper
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	out.URL.Path = t.target.Path + req.URL.Path
	out.Host = t.target.Host
	return t.next.RoundTrip(out)
}
