package core

import (
	"io/fs"
	"net/mail"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/assets"
)

func TestEmbeddedBaseTemplates(t *testing.T) {
	for _, name := range []string{"_base.gohtml", "_base.txt"} {
		_, err := fs.Stat(assets.FS, path.Join(emailTemplatesDir, name))
		assert.NoError(t, err, name)
	}
}

func TestEmailMessage_Render(t *testing.T) {
	conf := NewTestConfig()
	require.NoError(t, ParseEmailTemplates(conf))

	to := []mail.Address{{Name: "Ada", Address: "ada@test.io"}}

	t.Run("otp", func(t *testing.T) {
		msg := &EmailMessage{
			To:           to,
			Subject:      "Your verification code",
			TemplateName: "otp",
			TemplateData: struct {
				Name      string
				Code      string
				ExpiresIn string
			}{Name: "Ada", Code: "123456", ExpiresIn: "5m0s"},
		}
		require.NoError(t, msg.Render(conf))
		assert.True(t, msg.HasContent())
		assert.Contains(t, msg.TextContent, "123456")
		assert.Contains(t, msg.TextContent, "The "+conf.AppName+" team")
		assert.Contains(t, msg.HTMLContent, "123456")
	})

	t.Run("password reset", func(t *testing.T) {
		msg := &EmailMessage{
			To:           to,
			Subject:      "Password reset",
			TemplateName: "password_reset",
			TemplateData: struct {
				Name  string
				UID   string
				Token string
			}{Name: "Ada", UID: "Nw", Token: "abc-123"},
		}
		require.NoError(t, msg.Render(conf))
		assert.Contains(t, msg.TextContent, conf.FrontendBaseURL+"/password-reset/Nw/abc-123")
		assert.Contains(t, msg.HTMLContent, "abc-123")
	})

	t.Run("unknown template", func(t *testing.T) {
		msg := &EmailMessage{To: to, TemplateName: "nope"}
		assert.Error(t, msg.Render(conf))
	})
}
