// Package emailsvc implements core.EmailService backends.
package emailsvc

import (
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

// Email backends
const (
	BackendConsole  = "console"
	BackendSMTP     = "smtp"
	BackendSendgrid = "sendgrid"
)

var errNothingToSend = errors.New("email has no recipients or no content")

// NewService returns the email backend selected by the configuration.
func NewService(conf *core.Config, logger core.Logger) (core.EmailService, error) {
	switch conf.Email.Backend {
	case BackendConsole, "":
		return NewConsoleService(conf, logger), nil
	case BackendSMTP:
		return NewSMTPService(conf, logger)
	case BackendSendgrid:
		return NewSendgridService(conf, logger), nil
	}
	return nil, errors.Errorf("unknown email backend %q", conf.Email.Backend)
}
