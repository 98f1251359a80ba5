package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carebridge/reminder-service/internal/campaign"
)

const twilioBaseURL = "https://api.twilio.com"

// TwilioSender delivers SMS through the Twilio Messages REST endpoint.
type TwilioSender struct {
	client     *http.Client
	baseURL    string
	accountSID string
	authToken  string
	fromNumber string
}

func NewTwilioSender(accountSID, authToken, fromNumber string, timeout time.Duration) *TwilioSender {
	return &TwilioSender{
		client:     &http.Client{Timeout: timeout},
		baseURL:    twilioBaseURL,
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
	}
}

// WithBaseURL points the sender at a different API host. Used by tests.
func (s *TwilioSender) WithBaseURL(base string) *TwilioSender {
	s.baseURL = base
	return s
}

func (s *TwilioSender) Kind() campaign.Channel {
	return campaign.ChannelSMS
}

func (s *TwilioSender) Send(ctx context.Context, address string, msg Message) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)

	form := url.Values{}
	form.Set("To", address)
	form.Set("From", s.fromNumber)
	form.Set("Body", msg.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return PermanentError("build twilio request: %v", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return TransientError("twilio request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return classifyStatus(resp.StatusCode, strings.TrimSpace(string(body)))
}
