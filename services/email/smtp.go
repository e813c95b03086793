package emailsvc

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	gomail "github.com/wneessen/go-mail"

	"github.com/trezcool/campus/core"
)

const smtpTimeout = 30 * time.Second

// smtpSender is satisfied by *gomail.Client.
type smtpSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

type smtpService struct {
	conf       *core.Config
	subjPrefix string
	logger     core.Logger

	// a go-mail client holds a single connection's state: one send at a time
	mu     sync.Mutex
	client smtpSender
}

var _ core.EmailService = (*smtpService)(nil)

func NewSMTPService(conf *core.Config, logger core.Logger) (core.EmailService, error) {
	opts := []gomail.Option{
		gomail.WithPort(conf.Email.SMTP.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(smtpTimeout),
	}
	if conf.Email.SMTP.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(conf.Email.SMTP.Username),
			gomail.WithPassword(conf.Email.SMTP.Password),
		)
	}
	client, err := gomail.NewClient(conf.Email.SMTP.Host, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating smtp client")
	}
	return &smtpService{
		conf:       conf,
		client:     client,
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}, nil
}

func (svc *smtpService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go func(msg *core.EmailMessage) {
			if err := msg.Render(svc.conf); err != nil {
				svc.logger.Error("rendering email", errors.Wrap(err, "rendering email"))
				return
			}
			if !msg.HasRecipients() || !msg.HasContent() {
				return
			}
			m, err := svc.prepare(*msg)
			if err == nil {
				err = svc.send(m)
			}
			if err != nil {
				svc.logger.Error("sending email", errors.Wrap(err, "sending email"))
			}
		}(msg)
	}
}

func (svc *smtpService) send(m *gomail.Msg) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), smtpTimeout)
	defer cancel()
	return svc.client.DialAndSendWithContext(ctx, m)
}

func (svc *smtpService) prepare(msg core.EmailMessage) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	from := svc.conf.FromEmail()
	if err := m.FromFormat(from.Name, from.Address); err != nil {
		return nil, errors.Wrap(err, "setting sender")
	}
	for _, to := range msg.To {
		if err := m.AddToFormat(to.Name, to.Address); err != nil {
			return nil, errors.Wrap(err, "adding recipient")
		}
	}
	for _, cc := range msg.Cc {
		if err := m.AddCcFormat(cc.Name, cc.Address); err != nil {
			return nil, errors.Wrap(err, "adding cc")
		}
	}
	for _, bcc := range msg.Bcc {
		if err := m.AddBccFormat(bcc.Name, bcc.Address); err != nil {
			return nil, errors.Wrap(err, "adding bcc")
		}
	}
	m.Subject(svc.subjPrefix + msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.TextContent)
	if msg.HTMLContent != "" {
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTMLContent)
	}
	return m, nil
}
