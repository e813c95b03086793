package emailsvc

import (
	"context"
	"net/mail"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"

	"github.com/trezcool/campus/core"
)

type recordingLogger struct {
	errors []string
}

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Warn(string, ...interface{})  {}
func (l *recordingLogger) Error(msg string, _ ...interface{}) {
	l.errors = append(l.errors, msg)
}
func (l *recordingLogger) Fatal(string, ...interface{}) {}

func otpMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Ada", Address: "ada@test.io"}},
		Subject:      "Your verification code",
		TemplateName: "otp",
		TemplateData: struct {
			Name, Code, ExpiresIn string
		}{"Ada", "042137", "5m0s"},
	}
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := core.NewTestConfig()
	logger := new(recordingLogger)
	svc := NewConsoleServiceMock(conf, logger)

	svc.SendMessages(otpMessage(), &core.EmailMessage{Subject: "nobody", BodyStr: "lost"})

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "042137")
	assert.Contains(t, sent[0].HTMLContent, "042137")
	assert.Equal(t, []string{"sending email"}, logger.errors, "the message without recipients is not sent")

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}

func TestConsoleService_format(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewConsoleService(conf, new(recordingLogger)).(*consoleService)

	msg := otpMessage()
	require.NoError(t, msg.Render(conf))
	body, err := svc.format(*msg)
	require.NoError(t, err)

	assert.Contains(t, body, "Subject: ["+conf.AppName+"] Your verification code\r\n")
	assert.Contains(t, body, `To: "Ada" <ada@test.io>`)
	assert.Contains(t, body, "text/plain; charset=utf-8")
	assert.Contains(t, body, "text/html; charset=utf-8")
	assert.NotContains(t, body, "CC:")
}

func TestSendgridService_prepare(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewSendgridService(conf, new(recordingLogger)).(*sendgridService)

	msg := otpMessage()
	msg.Cc = []mail.Address{{Address: "cc@test.io"}}
	require.NoError(t, msg.Render(conf))

	m := svc.prepare(*msg)
	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "["+conf.AppName+"] Your verification code", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "ada@test.io", p.To[0].Address)
	require.Len(t, p.CC, 1)
	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "text/html", m.Content[1].Type)
}

func TestNewService(t *testing.T) {
	conf := core.NewTestConfig()

	conf.Email.Backend = BackendSendgrid
	svc, err := NewService(conf, new(recordingLogger))
	require.NoError(t, err)
	assert.IsType(t, &sendgridService{}, svc)

	conf.Email.Backend = BackendSMTP
	svc, err = NewService(conf, new(recordingLogger))
	require.NoError(t, err)
	assert.IsType(t, &smtpService{}, svc)

	conf.Email.Backend = "pigeon"
	_, err = NewService(conf, new(recordingLogger))
	assert.Error(t, err)
}

type overlapSender struct {
	active, maxActive, sent int32
}

func (s *overlapSender) DialAndSendWithContext(_ context.Context, msgs ...*gomail.Msg) error {
	n := atomic.AddInt32(&s.active, 1)
	for {
		max := atomic.LoadInt32(&s.maxActive)
		if n <= max || atomic.CompareAndSwapInt32(&s.maxActive, max, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&s.active, -1)
	atomic.AddInt32(&s.sent, int32(len(msgs)))
	return nil
}

func TestSMTPService_SendMessages(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Email.Backend = BackendSMTP
	es, err := NewService(conf, new(recordingLogger))
	require.NoError(t, err)
	svc := es.(*smtpService)
	sender := new(overlapSender)
	svc.client = sender

	msgs := make([]*core.EmailMessage, 8)
	for i := range msgs {
		msgs[i] = &core.EmailMessage{
			To:      []mail.Address{{Name: "Ada", Address: "ada@test.io"}},
			Subject: "hello",
			BodyStr: "hi",
		}
	}
	svc.SendMessages(msgs...)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&sender.sent) == int32(len(msgs))
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&sender.maxActive), "sends over the shared client never overlap")
}
