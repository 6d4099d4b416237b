package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"waypoint/internal/hook"
	"waypoint/internal/logger"
)

var ErrMissingRecipient = errors.New("email recipient is required")

// Request addresses one send. Empty From and Subject fall back to the service defaults.
type Request struct {
	From    string `json:"from" validate:"omitempty,email"`
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject"`
}

var validate = validator.New()

// Service runs the email step: format, confirm, send.
type Service struct {
	formatter *Formatter
	sender    Sender
	hooks     *hook.Manager

	defaultFrom    string
	defaultSubject string
}

func NewService(formatter *Formatter, sender Sender, defaultFrom, defaultSubject string) *Service {
	return &Service{
		formatter:      formatter,
		sender:         sender,
		defaultFrom:    defaultFrom,
		defaultSubject: defaultSubject,
	}
}

// SetHookManager sets the hooks fired before a send.
func (s *Service) SetHookManager(m *hook.Manager) {
	s.hooks = m
}

// Resolve fills defaults into req and validates the addresses.
func (s *Service) Resolve(req Request) (Request, error) {
	req.From = strings.TrimSpace(req.From)
	req.To = strings.TrimSpace(req.To)
	if req.From == "" {
		req.From = s.defaultFrom
	}
	if req.Subject == "" {
		req.Subject = s.defaultSubject
	}
	if req.To == "" {
		return req, ErrMissingRecipient
	}
	if req.From == "" {
		return req, errors.New("email sender is required")
	}
	if err := validate.Struct(req); err != nil {
		return req, fmt.Errorf("invalid email request: %w", err)
	}
	return req, nil
}

// Deliver formats text and sends it. Addressing and model errors are
// returned; a failed or declined send is reported in the receipt only.
func (s *Service) Deliver(ctx context.Context, sessionID, text string, req Request) (*Receipt, error) {
	log := logger.FromContext(ctx)

	req, err := s.Resolve(req)
	if err != nil {
		return nil, err
	}

	log.Info("Sending email")
	html, err := s.formatter.Format(ctx, text)
	if err != nil {
		return nil, err
	}
	log.Debug("Email content: %s", html)

	data := hook.NewHookData(hook.BeforeEmailSend, "").
		ForSession(sessionID).
		Set("from", req.From).
		Set("to", req.To).
		Set("subject", req.Subject).
		Set("html", html)
	feedback, err := s.hooks.Trigger(ctx, data)
	if err != nil {
		return nil, err
	}
	if !feedback.Allow {
		log.Warn("Email not sent: %s", feedback.Message)
		return &Receipt{To: req.To, Error: "email cancelled: " + feedback.Message}, nil
	}

	receipt, err := s.sender.Send(ctx, Message{From: req.From, To: req.To, Subject: req.Subject, HTML: html})
	if err != nil {
		if receipt == nil {
			receipt = &Receipt{To: req.To}
		}
		receipt.Delivered = false
		receipt.Error = err.Error()
		log.EmailResult(req.To, receipt.StatusCode, err)
		return receipt, nil
	}

	log.EmailResult(req.To, receipt.StatusCode, nil)
	return receipt, nil
}
