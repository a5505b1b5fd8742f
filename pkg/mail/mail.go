// Package mail delivers transactional email through SendGrid, or to the log
// when no API key is configured.
package mail

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/noah-isme/intern-tracker-api/pkg/config"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Message is a single outgoing email.
type Message struct {
	To       mail.Address
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer sends messages synchronously.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New picks the SendGrid mailer when an API key is configured.
func New(cfg config.MailConfig, logger *zap.Logger) Mailer {
	if cfg.SendgridAPIKey == "" {
		return NewLogMailer(cfg, logger)
	}
	return NewSendgridMailer(cfg, logger)
}

// SendgridMailer posts messages to the SendGrid v3 API.
type SendgridMailer struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	logger     *zap.Logger
	do         func(rest.Request) (*rest.Response, error)
}

// NewSendgridMailer builds a SendGrid backed mailer.
func NewSendgridMailer(cfg config.MailConfig, logger *zap.Logger) *SendgridMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendgridMailer{
		key:        cfg.SendgridAPIKey,
		from:       sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
		subjPrefix: "[" + cfg.FromName + "] ",
		logger:     logger,
		do:         sendgrid.API,
	}
}

// Send delivers msg and reports non-2xx API answers as errors.
func (m *SendgridMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := m.do(req)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		m.logger.Error("sendgrid rejected email",
			zap.Int("status", res.StatusCode),
			zap.String("body", res.Body),
		)
		return fmt.Errorf("sending email: sendgrid status %d", res.StatusCode)
	}
	m.logger.Info("email sent", zap.String("to", msg.To.Address), zap.String("subject", msg.Subject))
	return nil
}

func (m *SendgridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.To.Name, msg.To.Address))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	v3.AddContent(sgmail.NewContent("text/plain", msg.TextBody))
	if msg.HTMLBody != "" {
		v3.AddContent(sgmail.NewContent("text/html", msg.HTMLBody))
	}
	return v3
}

// LogMailer writes messages to the logger instead of sending them.
type LogMailer struct {
	from   mail.Address
	logger *zap.Logger
}

// NewLogMailer builds the development mailer.
func NewLogMailer(cfg config.MailConfig, logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{from: mail.Address{Name: cfg.FromName, Address: cfg.FromAddress}, logger: logger}
}

// Send logs msg at info level.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email (not sent, no SENDGRID_API_KEY)",
		zap.String("from", m.from.String()),
		zap.String("to", msg.To.String()),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.TextBody),
	)
	return nil
}
