package email

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	calls int
	err   error
}

func (r *recordingSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	r.calls++
	return r.err
}

func TestCompositeEmailSender(t *testing.T) {
	ok := &recordingSender{}
	failing := &recordingSender{err: errors.New("smtp down")}
	cs := NewCompositeEmailSender(failing, nil, ok)

	err := cs.Send(context.Background(), []string{"a@example.com"}, "Hi", []byte("body"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.Equal(t, 1, ok.calls, "a failing sender does not stop the others")
	assert.Equal(t, 1, failing.calls)

	empty := NewCompositeEmailSender()
	assert.Error(t, empty.Send(context.Background(), nil, "", nil))
}

func TestFileEmailSender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mail", "outbox.log")
	s, err := NewFileEmailSender(path)
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), []string{"a@example.com"}, "First", []byte("one\r\n")))
	require.NoError(t, s.Send(context.Background(), []string{"b@example.com"}, "Second", []byte("X-Template-ID: password_reset\r\n\r\ntwo\r\n")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Subject: First")
	assert.Contains(t, string(content), "two")
	assert.Contains(t, string(content), "to=b@example.com template=password_reset")
	assert.Contains(t, string(content), "to=a@example.com template=-")

	_, err = NewFileEmailSender("  ")
	assert.Error(t, err)
}

func TestMockEmailKey(t *testing.T) {
	assert.Equal(t, "mockemail:user@example.com:verify_email", MockEmailKey("User@Example.com", "verify_email"))
}
