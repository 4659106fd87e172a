// Package smtp sends notification mails with attachments.
package smtp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UndeliveredError lists the recipients the server rejected.
type UndeliveredError struct {
	Recipients []string
}

func (e *UndeliveredError) Error() string {
	return fmt.Sprintf("mail undelivered to: %s", strings.Join(e.Recipients, ", "))
}

// Mailer composes and sends multipart MIME messages.
type Mailer struct {
	host   string
	port   int
	sender string
}

// NewMailer creates a mailer sending through host:port as sender.
func NewMailer(host string, port int, sender string) *Mailer {
	return &Mailer{host: host, port: port, sender: sender}
}

// Send delivers a plain-text mail with the given attachments. A partial
// delivery failure surfaces as UndeliveredError naming every recipient, as
// the server reports rejection for the whole send.
func (m *Mailer) Send(to []string, subject, body string, attachments ...string) error {
	if len(to) == 0 {
		return fmt.Errorf("smtp: no recipients")
	}

	msg, err := m.compose(to, subject, body, attachments)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	if err := smtp.SendMail(addr, nil, m.sender, to, msg); err != nil {
		return &UndeliveredError{Recipients: to}
	}

	return nil
}

func (m *Mailer) compose(to []string, subject, body string, attachments []string) ([]byte, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", m.sender)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	domain := m.sender
	if _, after, ok := strings.Cut(m.sender, "@"); ok {
		domain = after
	}
	fmt.Fprintf(&buf, "Message-ID: <%s@%s>\r\n", uuid.NewString(), domain)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", form.Boundary())

	text, err := form.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := text.Write([]byte(body)); err != nil {
		return nil, err
	}

	for _, path := range attachments {
		if err := attach(form, path); err != nil {
			return nil, err
		}
	}

	if err := form.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func attach(form *multipart.Writer, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("attach %s: %w", path, err)
	}

	name := filepath.Base(path)
	part, err := form.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"application/octet-stream"},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", name)},
	})
	if err != nil {
		return err
	}

	encoded := base64.StdEncoding.EncodeToString(raw)
	// fold the base64 payload at the conventional 76 columns
	for len(encoded) > 0 {
		n := 76
		if len(encoded) < n {
			n = len(encoded)
		}
		if _, err := part.Write([]byte(encoded[:n] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[n:]
	}

	return nil
}
