package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/carebridge/reminder-service/internal/campaign"
)

const sendgridBaseURL = "https://api.sendgrid.com"

// SendGridSender delivers HTML email through the SendGrid v3 mail API.
type SendGridSender struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	fromEmail string
}

func NewSendGridSender(apiKey, fromEmail string, timeout time.Duration) *SendGridSender {
	return &SendGridSender{
		client:    &http.Client{Timeout: timeout},
		baseURL:   sendgridBaseURL,
		apiKey:    apiKey,
		fromEmail: fromEmail,
	}
}

// WithBaseURL points the sender at a different API host. Used by tests.
func (s *SendGridSender) WithBaseURL(base string) *SendGridSender {
	s.baseURL = base
	return s
}

func (s *SendGridSender) Kind() campaign.Channel {
	return campaign.ChannelEmail
}

type sendgridPayload struct {
	Personalizations []sendgridPersonalization `json:"personalizations"`
	From             sendgridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendgridContent         `json:"content"`
}

type sendgridPersonalization struct {
	To []sendgridAddress `json:"to"`
}

type sendgridAddress struct {
	Email string `json:"email"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (s *SendGridSender) Send(ctx context.Context, address string, msg Message) error {
	payload := sendgridPayload{
		Personalizations: []sendgridPersonalization{{To: []sendgridAddress{{Email: address}}}},
		From:             sendgridAddress{Email: s.fromEmail},
		Subject:          msg.Subject,
		Content:          []sendgridContent{{Type: "text/html", Value: msg.Body}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return PermanentError("encode sendgrid payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return PermanentError("build sendgrid request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return TransientError("sendgrid request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return classifyStatus(resp.StatusCode, strings.TrimSpace(string(respBody)))
}
