package mailer

import (
	"bytes"
	"errors"
	"testing"

	"codepilot-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func render(t *testing.T, m *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestSendWelcome(t *testing.T) {
	sender := &fakeSender{}
	svc := NewEmailServiceWithSender(sender, "bot@codepilot.dev", "CodePilot", "http://localhost:5173", logger.NewNopLogger())

	require.NoError(t, svc.SendWelcome("ada@example.com", "Ada"))
	require.Len(t, sender.sent, 1)

	m := sender.sent[0]
	assert.Equal(t, []string{"ada@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Welcome to CodePilot"}, m.GetHeader("Subject"))
	assert.Contains(t, render(t, m), "Ada")
}

func TestSendPasswordChangedError(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	svc := NewEmailServiceWithSender(sender, "bot@codepilot.dev", "CodePilot", "", logger.NewNopLogger())

	assert.EqualError(t, svc.SendPasswordChanged("ada@example.com", "Ada"), "smtp down")
}
