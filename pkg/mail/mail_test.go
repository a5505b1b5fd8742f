package mail

import (
	"context"
	"errors"
	"net/mail"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/intern-tracker-api/pkg/config"
)

var testCfg = config.MailConfig{FromName: "Intern Tracker", FromAddress: "no-reply@test.local", SendgridAPIKey: "SG.key"}

func TestNewPicksImplementation(t *testing.T) {
	assert.IsType(t, &SendgridMailer{}, New(testCfg, nil))
	noKey := testCfg
	noKey.SendgridAPIKey = ""
	assert.IsType(t, &LogMailer{}, New(noKey, nil))
}

func TestSendgridMailerSend(t *testing.T) {
	m := NewSendgridMailer(testCfg, nil)
	var captured rest.Request
	m.do = func(req rest.Request) (*rest.Response, error) {
		captured = req
		return &rest.Response{StatusCode: 202}, nil
	}

	err := m.Send(context.Background(), Message{
		To:       mail.Address{Name: "HR", Address: "hr@test.local"},
		Subject:  "Reset Password",
		TextBody: "link",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer SG.key", captured.Headers["Authorization"])
	assert.Contains(t, string(captured.Body), "hr@test.local")
	assert.Contains(t, string(captured.Body), "[Intern Tracker] Reset Password")
}

func TestSendgridMailerReportsFailures(t *testing.T) {
	m := NewSendgridMailer(testCfg, nil)
	m.do = func(rest.Request) (*rest.Response, error) {
		return &rest.Response{StatusCode: 401, Body: "unauthorized"}, nil
	}
	assert.Error(t, m.Send(context.Background(), Message{To: mail.Address{Address: "a@b.c"}}))

	m.do = func(rest.Request) (*rest.Response, error) { return nil, errors.New("dial") }
	assert.Error(t, m.Send(context.Background(), Message{To: mail.Address{Address: "a@b.c"}}))
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := NewLogMailer(testCfg, zap.New(core))
	require.NoError(t, m.Send(context.Background(), Message{To: mail.Address{Address: "hr@test.local"}, Subject: "Hi"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Hi", logs.All()[0].ContextMap()["subject"])
}
