package sender

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPSender_RequiresHost(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{})
	assert.Error(t, err)
}

func TestSendEmail_BuildsHTMLMessage(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "mail.local", Username: "pharmacy@local"})
	require.NoError(t, err)

	var gotAddr string
	var gotMsg []byte
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		return nil
	}

	res, err := s.SendEmail(context.Background(), "a@b.co", "Invoice", "<p>hi</p>")
	require.NoError(t, err)
	assert.NotEmpty(t, res.MessageID)
	assert.Equal(t, "mail.local:587", gotAddr)
	assert.Contains(t, string(gotMsg), "Content-Type: text/html")
	assert.Contains(t, string(gotMsg), "To: a@b.co")
}

func TestSendEmail_HonorsContextDeadline(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "mail.local", From: "pharmacy@local"})
	require.NoError(t, err)

	release := make(chan struct{})
	defer close(release)
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		<-release
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = s.SendEmail(ctx, "a@b.co", "Invoice", "body")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
