package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailSender_Send(t *testing.T) {
	s := NewEmailSender(SMTPConfig{Host: "smtp.example.com", User: "alerts@example.com", Password: "secret"})
	s.now = func() time.Time { return time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC) }

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		assert.NotNil(t, a)
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, s.Send(context.Background(), "user@example.com", "Price Alert Triggered", "line one\nline two"))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "alerts@example.com", gotFrom)
	assert.Equal(t, []string{"user@example.com"}, gotTo)

	msg := string(gotMsg)
	assert.True(t, strings.HasPrefix(msg, "From: alerts@example.com\r\nTo: user@example.com\r\nSubject: Price Alert Triggered\r\n"))
	assert.Contains(t, msg, "\r\n\r\nline one\r\nline two")
}

func TestEmailSender_Failure(t *testing.T) {
	s := NewEmailSender(SMTPConfig{Host: "smtp.example.com", Port: 2525, From: "alerts@example.com"})
	s.sendMail = func(addr string, a smtp.Auth, _ string, _ []string, _ []byte) error {
		assert.Equal(t, "smtp.example.com:2525", addr)
		assert.Nil(t, a)
		return errors.New("421 service not available")
	}

	err := s.Send(context.Background(), "user@example.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "421")
}

func TestEmailSender_NotConfigured(t *testing.T) {
	s := NewEmailSender(SMTPConfig{})
	assert.False(t, s.Configured())
	assert.ErrorIs(t, s.Send(context.Background(), "user@example.com", "s", "b"), ErrNotConfigured)
}
