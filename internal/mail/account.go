// AngelaMos | 2026
// account.go

package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SubjectVerifyEmail   = "Verify your email - NZ Market"
	SubjectResetPassword = "Reset your password - NZ Market"
)

var accountTemplate = template.Must(template.New("account").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<p>Kia ora {{.Name}},</p>
<p>{{.Lead}}</p>
<p><a href="{{.Link}}">{{.Action}}</a></p>
<p>This link expires in {{.Expiry}}. If you did not request it you can ignore this email.</p>
</body></html>`))

type accountView struct {
	Name   string
	Lead   string
	Link   string
	Action string
	Expiry string
}

// AccountMailer renders the verification and password reset emails.
type AccountMailer struct {
	sender      Sender
	frontendURL string
	sent        *prometheus.CounterVec
}

func NewAccountMailer(
	sender Sender,
	frontendURL string,
	sent *prometheus.CounterVec,
) *AccountMailer {
	return &AccountMailer{
		sender:      sender,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		sent:        sent,
	}
}

func (m *AccountMailer) SendVerification(
	ctx context.Context,
	to, name, token string,
) error {
	return m.send(ctx, "verify_email", to, SubjectVerifyEmail, accountView{
		Name:   name,
		Lead:   "Thanks for joining NZ Market. Confirm your email address to start trading.",
		Link:   m.link("/verify-email", token),
		Action: "Verify email",
		Expiry: "24 hours",
	})
}

func (m *AccountMailer) SendPasswordReset(
	ctx context.Context,
	to, name, token string,
) error {
	return m.send(ctx, "reset_password", to, SubjectResetPassword, accountView{
		Name:   name,
		Lead:   "We received a request to reset your NZ Market password.",
		Link:   m.link("/reset-password", token),
		Action: "Choose a new password",
		Expiry: "1 hour",
	})
}

func (m *AccountMailer) link(path, token string) string {
	return m.frontendURL + path + "?token=" + url.QueryEscape(token)
}

func (m *AccountMailer) send(
	ctx context.Context,
	name, to, subject string,
	view accountView,
) error {
	var html bytes.Buffer
	if err := accountTemplate.Execute(&html, view); err != nil {
		return fmt.Errorf("render %s email: %w", name, err)
	}

	text := fmt.Sprintf("Kia ora %s,\n\n%s\n\n%s: %s\n\nThis link expires in %s.\n",
		view.Name, view.Lead, view.Action, view.Link, view.Expiry)

	err := m.sender.Send(ctx, Message{
		To:       to,
		Subject:  subject,
		HTMLBody: html.String(),
		TextBody: text,
	})

	if m.sent != nil {
		outcome := "sent"
		if err != nil {
			outcome = "failed"
		}
		m.sent.WithLabelValues(name, outcome).Inc()
	}

	return err
}
