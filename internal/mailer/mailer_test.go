package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type recordingSender struct {
	sent []*mail.Msg
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg *mail.Msg) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func TestBuildSuspensionMessage(t *testing.T) {
	m := NewWithSender("noreply@autoswap.test", &recordingSender{})

	msg, err := m.BuildSuspensionMessage("user@x.com", "spam")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "user@x.com")
	assert.Contains(t, buf.String(), "spam")
	assert.Equal(t, []string{"Your AutoSwap account has been suspended"}, msg.GetGenHeader(mail.HeaderSubject))
}

func TestBuildSuspensionMessageRejectsBadAddress(t *testing.T) {
	m := NewWithSender("noreply@autoswap.test", &recordingSender{})
	_, err := m.BuildSuspensionMessage("not an address", "spam")
	assert.Error(t, err)
}

func TestSendSuspensionEmailSwallowsErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	m := NewWithSender("noreply@autoswap.test", sender)

	m.SendSuspensionEmail(context.Background(), "user@x.com", "spam")
	assert.Len(t, sender.sent, 1)

	m.SendSuspensionEmail(context.Background(), "", "spam")
	assert.Len(t, sender.sent, 1)
}
