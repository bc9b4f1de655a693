package mail

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"
)

const resetPasswordText = `Hello {{.Username}},

We received a request to reset the password for your account.

Open the link below to choose a new password. It expires in {{.Validity}}.

{{.Link}}

If you did not request a password reset, you can ignore this email; your
password will stay the same.
`

const passwordChangedText = `Hello {{.Username}},

The password for your account was changed on {{.When}}.

If you did not make this change, request a new password reset right away.
`

var (
	resetPasswordTmpl   = template.Must(template.New("reset_password").Parse(resetPasswordText))
	passwordChangedTmpl = template.Must(template.New("password_changed").Parse(passwordChangedText))
)

const (
	ResetPasswordSubject   = "Reset your password"
	PasswordChangedSubject = "Your password was changed"
)

func templateString(t *template.Template, data any) (string, error) {
	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// ResetLink returns <frontendBase>/reset-password?token=<token> with the
// token query-escaped. Query parameters already on frontendBase are kept.
func ResetLink(frontendBase, token string) (string, error) {
	u, err := url.Parse(frontendBase)
	if err != nil {
		return "", fmt.Errorf("parse frontend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("frontend url %q is not absolute", frontendBase)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/reset-password"
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	u.Fragment = ""

	return u.String(), nil
}

// ResetPasswordMessage renders the email carrying a reset link.
func ResetPasswordMessage(to, username, link string, validity time.Duration) (Message, error) {
	body, err := templateString(resetPasswordTmpl, struct {
		Username string
		Link     string
		Validity string
	}{username, link, humanDuration(validity)})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: ResetPasswordSubject, Body: body}, nil
}

// PasswordChangedMessage renders the notice sent after a successful reset.
func PasswordChangedMessage(to, username string, when time.Time) (Message, error) {
	body, err := templateString(passwordChangedTmpl, struct {
		Username string
		When     string
	}{username, when.UTC().Format(time.RFC1123)})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: PasswordChangedSubject, Body: body}, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d >= time.Minute && d%time.Minute == 0:
		if d == time.Minute {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
