package notification

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/email"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/model"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/metrics"
)

const anonymousSender = "Someone"

var shareHTML = htmltemplate.Must(htmltemplate.New("share").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #2563eb;">Medical Document Shared</h2>
  <p style="font-size: 16px; color: #4b5563;">{{.Sender}} has shared a {{.Type}} with you.</p>
  <div style="text-align: center; margin: 30px 0;">
    <a href="{{.Link}}" style="background-color: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; font-weight: bold;">View Document</a>
  </div>
  <p style="font-size: 14px; color: #6b7280;">Note: This link will expire in 24 hours for security purposes.</p>
  <hr style="border: 1px solid #e5e7eb; margin: 20px 0;">
  <p style="font-size: 12px; color: #9ca3af;">This is an automated message, please do not reply to this email.</p>
</div>`))

var shareText = texttemplate.Must(texttemplate.New("share").Parse(
	`{{.Sender}} has shared a {{.Type}} with you.

View it here: {{.Link}}

This link will expire in 24 hours.
`))

type shareData struct {
	Sender string
	Type   string
	Link   string
}

type Service struct {
	sender  email.Sender
	metrics *metrics.Metrics
}

func NewService(sender email.Sender, m *metrics.Metrics) *Service {
	return &Service{sender: sender, metrics: m}
}

// SendShareLink emails a share link. It does not retry.
func (s *Service) SendShareLink(ctx context.Context, to, senderName string, kind model.RecordKind, link string) error {
	msg, err := ShareMessage(to, senderName, kind, link)
	if err != nil {
		return err
	}

	err = s.sender.Send(ctx, msg)
	s.metrics.EmailsSent.WithLabelValues(metrics.Status(err)).Inc()
	return err
}

// ShareMessage composes the share email.
func ShareMessage(to, senderName string, kind model.RecordKind, link string) (email.Message, error) {
	if senderName == "" {
		senderName = anonymousSender
	}
	data := shareData{Sender: senderName, Type: string(kind), Link: link}

	var html, text bytes.Buffer
	if err := shareHTML.Execute(&html, data); err != nil {
		return email.Message{}, fmt.Errorf("failed to render share email: %w", err)
	}
	if err := shareText.Execute(&text, data); err != nil {
		return email.Message{}, fmt.Errorf("failed to render share email: %w", err)
	}

	return email.Message{
		To:      to,
		Subject: "Shared " + kind.Title(),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
