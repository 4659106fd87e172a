package mailbox

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Maildir is a filesystem-backed Account used for local runs and tests. A
// message is a directory named after its id holding a metadata file, a body
// file and an attachments subdirectory:
//
//	<root>/<folder>/<message id>/
//	    message.json
//	    body.txt
//	    attachments/<name>
type Maildir struct {
	root string
}

const (
	metaFile = "message.json"
	bodyFile = "body.txt"
	attDir   = "attachments"
)

type maildirMeta struct {
	ID         string   `json:"id"`
	Subject    string   `json:"subject"`
	Categories []string `json:"categories,omitempty"`
}

// OpenMaildir opens the mailbox rooted at dir.
func OpenMaildir(dir string) (*Maildir, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open mailbox: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open mailbox: %s is not a directory", dir)
	}
	return &Maildir{root: dir}, nil
}

func (m *Maildir) Close() error { return nil }

func (m *Maildir) msgDir(msg *Message) string {
	return filepath.Join(m.root, filepath.FromSlash(msg.Folder), msg.ID)
}

// Messages lists the messages of one folder.
func (m *Maildir) Messages(folder string) ([]*Message, error) {
	entries, err := os.ReadDir(filepath.Join(m.root, filepath.FromSlash(folder)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list folder %s: %w", folder, err)
	}

	var msgs []*Message
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		msg, err := m.read(folder, entry.Name())
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// MessagesByID walks the whole tree for messages with the given id.
func (m *Maildir) MessagesByID(id string) ([]*Message, error) {
	var msgs []*Message

	err := filepath.WalkDir(m.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() || d.Name() != id {
			return err
		}

		rel, err := filepath.Rel(m.root, filepath.Dir(path))
		if err != nil {
			return err
		}
		msg, err := m.read(filepath.ToSlash(rel), id)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
		return filepath.SkipDir
	})
	if err != nil {
		return nil, err
	}

	return msgs, nil
}

func (m *Maildir) read(folder, id string) (*Message, error) {
	dir := filepath.Join(m.root, filepath.FromSlash(folder), id)

	meta := maildirMeta{ID: id}
	if raw, err := os.ReadFile(filepath.Join(dir, metaFile)); err == nil {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("message %s: %w", id, err)
		}
	}

	body, _ := os.ReadFile(filepath.Join(dir, bodyFile))

	var atts []string
	if entries, err := os.ReadDir(filepath.Join(dir, attDir)); err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				atts = append(atts, e.Name())
			}
		}
	}

	return &Message{
		ID:          meta.ID,
		Folder:      folder,
		Subject:     meta.Subject,
		Body:        string(body),
		Categories:  meta.Categories,
		Attachments: atts,
	}, nil
}

// Move relocates the message directory into the target folder path.
func (m *Maildir) Move(msg *Message, folders ...string) (string, error) {
	target := strings.Join(folders, "/")
	if target == msg.Folder {
		return "", &IdenticalFolderError{Folder: target}
	}

	dstDir := filepath.Join(m.root, filepath.FromSlash(target))
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", err
	}

	dst := filepath.Join(dstDir, msg.ID)
	if err := os.RemoveAll(dst); err != nil {
		return "", err
	}
	if err := os.Rename(m.msgDir(msg), dst); err != nil {
		return "", fmt.Errorf("move message %s: %w", msg.ID, err)
	}

	msg.Folder = target
	return "Inbox/" + target, nil
}

// AppendText separates the annotation from the existing body with a dashed
// line, mirroring how the robot annotates user emails.
func (m *Maildir) AppendText(msg *Message, text string) error {
	msg.Body = msg.Body + "\n" + strings.Repeat("-", 100) + "\n" + text + "\n"
	return os.WriteFile(filepath.Join(m.msgDir(msg), bodyFile), []byte(msg.Body), 0o644)
}

// SaveAttachments copies attachments with the extension into dir.
func (m *Maildir) SaveAttachments(msg *Message, dir, ext string) ([]string, error) {
	var saved []string
	for _, name := range msg.Attachments {
		if ext != "" && !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}

		src := filepath.Join(m.msgDir(msg), attDir, name)
		dst := filepath.Join(dir, name)
		if err := copyFile(src, dst); err != nil {
			return nil, fmt.Errorf("save attachment %s: %w", name, err)
		}
		saved = append(saved, dst)
	}
	return saved, nil
}

// SaveBody writes the message body to path.
func (m *Maildir) SaveBody(msg *Message, path string) error {
	return os.WriteFile(path, []byte(msg.Body), 0o644)
}

// AttachFile copies the file into the message's attachment directory.
func (m *Maildir) AttachFile(msg *Message, path, name string) error {
	dir := filepath.Join(m.msgDir(msg), attDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := copyFile(path, filepath.Join(dir, name)); err != nil {
		return err
	}

	for _, existing := range msg.Attachments {
		if existing == name {
			return nil
		}
	}
	msg.Attachments = append(msg.Attachments, name)
	return nil
}

// RemoveAttachments deletes attachments with the extension.
func (m *Maildir) RemoveAttachments(msg *Message, ext string) error {
	var kept []string
	for _, name := range msg.Attachments {
		if ext != "" && !strings.EqualFold(filepath.Ext(name), ext) {
			kept = append(kept, name)
			continue
		}
		if err := os.Remove(filepath.Join(m.msgDir(msg), attDir, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	msg.Attachments = kept
	return nil
}

// Delete removes the message directory.
func (m *Maildir) Delete(msg *Message) error {
	return os.RemoveAll(m.msgDir(msg))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
