package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Message is a rendered email ready to send.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Receipt reports the outcome of a send. A failed send is still a receipt.
type Receipt struct {
	Delivered  bool   `json:"delivered"`
	To         string `json:"to,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) (*Receipt, error)
}

var ErrMissingAPIKey = errors.New("sendgrid api key not configured")

// SendGridSender sends through the SendGrid v3 mail API.
type SendGridSender struct {
	apiKey string
	host   string
}

// NewSendGridSender creates a sender. An empty host uses api.sendgrid.com.
func NewSendGridSender(apiKey, host string) *SendGridSender {
	return &SendGridSender{apiKey: apiKey, host: host}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if s.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	m := mail.NewSingleEmail(
		mail.NewEmail("", msg.From),
		msg.Subject,
		mail.NewEmail("", msg.To),
		"",
		msg.HTML,
	)

	request := sendgrid.GetRequest(s.apiKey, "/v3/mail/send", s.host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(m)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("sendgrid request failed: %w", err)
	}

	receipt := &Receipt{To: msg.To, StatusCode: response.StatusCode, Body: response.Body}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return receipt, fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}
	receipt.Delivered = true
	return receipt, nil
}
