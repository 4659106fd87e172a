package smtp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	m := NewMailer("mail.local", 25, "robot@lbs.local")

	raw, err := m.compose([]string{"acct@lbs.local"}, "Claims failure", "stage failed", nil)
	require.NoError(t, err)

	msg := string(raw)
	assert.Contains(t, msg, "From: robot@lbs.local\r\n")
	assert.Contains(t, msg, "To: acct@lbs.local\r\n")
	assert.Contains(t, msg, "Subject: Claims failure\r\n")
	assert.Contains(t, msg, "Message-ID: <")
	assert.Contains(t, msg, "@lbs.local>\r\n")
	assert.Contains(t, msg, "Content-Type: multipart/mixed")
	assert.Contains(t, msg, "stage failed")
}

func TestComposeWithAttachment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "claim.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf-bytes"), 0o644))

	m := NewMailer("mail.local", 25, "robot@lbs.local")
	raw, err := m.compose([]string{"acct@lbs.local"}, "s", "b", []string{path})
	require.NoError(t, err)

	msg := string(raw)
	assert.Contains(t, msg, `attachment; filename="claim.pdf"`)
	assert.Contains(t, msg, "Content-Transfer-Encoding: base64")
	assert.Contains(t, msg, "cGRmLWJ5dGVz") // base64 of the payload
}

func TestComposeMissingAttachment(t *testing.T) {
	m := NewMailer("mail.local", 25, "robot@lbs.local")
	_, err := m.compose([]string{"acct@lbs.local"}, "s", "b", []string{"/nope/claim.pdf"})
	assert.Error(t, err)
}

func TestSendRequiresRecipients(t *testing.T) {
	m := NewMailer("mail.local", 25, "robot@lbs.local")
	assert.Error(t, m.Send(nil, "s", "b"))
}

func TestUndeliveredError(t *testing.T) {
	err := &UndeliveredError{Recipients: []string{"a@x", "b@x"}}
	assert.Equal(t, "mail undelivered to: a@x, b@x", err.Error())
}
