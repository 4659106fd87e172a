// Package mailbox reads the shared claims mailbox. Messages live in
// per-customer folders; the pipeline downloads their attachments, annotates
// their bodies and files them into result subfolders.
package mailbox

import (
	"fmt"
	"regexp"
	"strings"
)

//go:generate mockgen -source=mailbox.go -destination=account_mock.go -package=mailbox

// Message is one email in the shared mailbox. Attachments lists file names
// only; SaveAttachments materializes their content.
type Message struct {
	ID          string
	Folder      string
	Subject     string
	Body        string
	Categories  []string
	Attachments []string
}

// IdenticalFolderError reports a move whose source and destination folders
// are the same.
type IdenticalFolderError struct {
	Folder string
}

func (e *IdenticalFolderError) Error() string {
	return fmt.Sprintf("the message already resides in folder %q", e.Folder)
}

// InvalidAttachmentsError reports a message whose attachments violate the
// customer's attachment count policy.
type InvalidAttachmentsError struct {
	Expected string
	Got      int
}

func (e *InvalidAttachmentsError) Error() string {
	return fmt.Sprintf("expected %s PDF attachment(s), the message carries %d", e.Expected, e.Got)
}

// Account is the mailbox connection shared by all stages of one run.
type Account interface {
	// Messages lists the messages of a customer folder under the inbox.
	Messages(folder string) ([]*Message, error)
	// MessagesByID returns every message carrying the given message id.
	MessagesByID(id string) ([]*Message, error)
	// Move files the message into the folder path and returns the new
	// location. Moving to the current folder fails with
	// IdenticalFolderError.
	Move(msg *Message, folders ...string) (string, error)
	// AppendText appends one annotation line to the message body.
	AppendText(msg *Message, text string) error
	// SaveAttachments writes the message attachments with the extension to
	// dir and returns their paths.
	SaveAttachments(msg *Message, dir, ext string) ([]string, error)
	// SaveBody renders the message body to the file at path. Used for
	// customers that send the debit note as mail text instead of a PDF.
	SaveBody(msg *Message, path string) error
	// AttachFile adds the file at path to the message under name.
	AttachFile(msg *Message, path, name string) error
	// RemoveAttachments deletes the message attachments with the extension.
	RemoveAttachments(msg *Message, ext string) error
	// Delete removes the message permanently.
	Delete(msg *Message) error

	Close() error
}

// Annotation severities written to user emails.
const (
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

// Annotate formats the single tagged line the robot appends to user emails.
func Annotate(severity, text string) string {
	return fmt.Sprintf("G.ROBOT_RFC (%s): %s", severity, text)
}

var hashPattern = regexp.MustCompile(`hash = (\S+)`)

// FindHash returns the document hash a previous run annotated on the
// message, or "" when the body carries none.
func FindHash(msg *Message) string {
	m := hashPattern.FindStringSubmatch(msg.Body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// HashAnnotation renders the annotation that records a document hash on the
// originating message so later runs skip recalculating it.
func HashAnnotation(hash string) string {
	return Annotate(SeverityInfo, "hash = "+hash)
}
