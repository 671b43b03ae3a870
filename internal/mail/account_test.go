// AngelaMos | 2026
// account_test.go

package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/nz-market/internal/config"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "emails_total"},
		[]string{"template", "outcome"},
	)
}

func TestSendVerificationBuildsLink(t *testing.T) {
	sender := new(mockSender)
	var got Message
	sender.On("Send", mock.Anything, mock.AnythingOfType("mail.Message")).
		Run(func(args mock.Arguments) { got = args.Get(1).(Message) }).
		Return(nil).Once()

	counter := newCounter()
	m := NewAccountMailer(sender, "https://nzmarket.test/", counter)

	err := m.SendVerification(context.Background(), "kiri@example.com", "Kiri", "abc+/=")
	require.NoError(t, err)

	assert.Equal(t, "kiri@example.com", got.To)
	assert.Equal(t, SubjectVerifyEmail, got.Subject)
	assert.Contains(t, got.TextBody, "https://nzmarket.test/verify-email?token=abc%2B%2F%3D")
	assert.Contains(t, got.HTMLBody, "Kia ora Kiri")
	assert.Equal(t, float64(1), testutil.ToFloat64(counter.WithLabelValues("verify_email", "sent")))
}

func TestSendPasswordResetCountsFailure(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.Anything).
		Return(errors.New("smtp down")).Once()

	counter := newCounter()
	m := NewAccountMailer(sender, "http://localhost:3000", counter)

	err := m.SendPasswordReset(context.Background(), "a@b.nz", "Aroha", "tok")
	require.Error(t, err)

	sent := sender.Calls[0].Arguments.Get(1).(Message)
	assert.Equal(t, SubjectResetPassword, sent.Subject)
	assert.Contains(t, sent.TextBody, "http://localhost:3000/reset-password?token=tok")
	assert.Equal(t, float64(1), testutil.ToFloat64(counter.WithLabelValues("reset_password", "failed")))
}

func TestNewSMTPSenderRequiresHost(t *testing.T) {
	_, err := NewSMTPSender(smtpConfig("", 587), nil)
	assert.Error(t, err)

	s, err := NewSMTPSender(smtpConfig("smtp.example.com", 465), nil)
	require.NoError(t, err)
	assert.NotNil(t, s.dialer.TLSConfig)
}

func smtpConfig(host string, port int) config.SMTPConfig {
	return config.SMTPConfig{
		Enabled:    true,
		Host:       host,
		Port:       port,
		From:       "NZ Market <no-reply@nzmarket.test>",
		Encryption: "ssl",
	}
}
