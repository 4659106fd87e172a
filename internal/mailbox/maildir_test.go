package mailbox

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMessage(t *testing.T, root, folder, id, body string, categories []string, atts map[string]string) {
	t.Helper()

	dir := filepath.Join(root, filepath.FromSlash(folder), id)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, attDir), 0o755))

	meta, err := json.Marshal(maildirMeta{ID: id, Subject: "Belastung", Categories: categories})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, metaFile), meta, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, bodyFile), []byte(body), 0o644))

	for name, content := range atts {
		require.NoError(t, os.WriteFile(filepath.Join(dir, attDir, name), []byte(content), 0o644))
	}
}

func TestMaildirMessages(t *testing.T) {
	root := t.TempDir()
	seedMessage(t, root, "OBI_DE", "msg-1", "Sehr geehrte Damen und Herren", []string{"QUALITY"},
		map[string]string{"note.pdf": "%PDF"})
	seedMessage(t, root, "OBI_DE", "msg-2", "", nil, nil)
	seedMessage(t, root, "HAGEBAU_DE", "msg-3", "", nil, nil)

	acc, err := OpenMaildir(root)
	require.NoError(t, err)
	defer acc.Close()

	msgs, err := acc.Messages("OBI_DE")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "msg-1", msgs[0].ID)
	assert.Equal(t, []string{"QUALITY"}, msgs[0].Categories)
	assert.Equal(t, []string{"note.pdf"}, msgs[0].Attachments)

	empty, err := acc.Messages("MARKANT_DE")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMaildirMove(t *testing.T) {
	root := t.TempDir()
	seedMessage(t, root, "OBI_DE", "msg-1", "", nil, nil)

	acc, err := OpenMaildir(root)
	require.NoError(t, err)

	msgs, err := acc.Messages("OBI_DE")
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	location, err := acc.Move(msgs[0], "OBI_DE", "Done")
	require.NoError(t, err)
	assert.Equal(t, "Inbox/OBI_DE/Done", location)
	assert.Equal(t, "OBI_DE/Done", msgs[0].Folder)

	moved, err := acc.MessagesByID("msg-1")
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, "OBI_DE/Done", moved[0].Folder)

	_, err = acc.Move(msgs[0], "OBI_DE", "Done")
	var identical *IdenticalFolderError
	assert.ErrorAs(t, err, &identical)
}

func TestMaildirAnnotations(t *testing.T) {
	root := t.TempDir()
	seedMessage(t, root, "OBI_DE", "msg-1", "original body", nil, nil)

	acc, err := OpenMaildir(root)
	require.NoError(t, err)

	msgs, err := acc.Messages("OBI_DE")
	require.NoError(t, err)
	msg := msgs[0]

	require.NoError(t, acc.AppendText(msg, HashAnnotation("abc123")))
	assert.Equal(t, "abc123", FindHash(msg))

	// the annotation is persisted, a reread still carries the hash
	reread, err := acc.Messages("OBI_DE")
	require.NoError(t, err)
	assert.Equal(t, "abc123", FindHash(reread[0]))
	assert.Contains(t, reread[0].Body, "original body")
	assert.Contains(t, reread[0].Body, "G.ROBOT_RFC (INFO): hash = abc123")
}

func TestMaildirAttachments(t *testing.T) {
	root := t.TempDir()
	seedMessage(t, root, "OBI_DE", "msg-1", "", nil,
		map[string]string{"b.pdf": "%PDF-b", "a.pdf": "%PDF-a", "sheet.xlsx": "bin"})

	acc, err := OpenMaildir(root)
	require.NoError(t, err)

	msgs, err := acc.Messages("OBI_DE")
	require.NoError(t, err)
	msg := msgs[0]

	dst := t.TempDir()
	saved, err := acc.SaveAttachments(msg, dst, ".pdf")
	require.NoError(t, err)
	require.Len(t, saved, 2)
	for _, p := range saved {
		assert.FileExists(t, p)
	}

	require.NoError(t, acc.RemoveAttachments(msg, ".pdf"))
	assert.Equal(t, []string{"sheet.xlsx"}, msg.Attachments)

	merged := filepath.Join(dst, "document.pdf")
	require.NoError(t, os.WriteFile(merged, []byte("%PDF-merged"), 0o644))
	require.NoError(t, acc.AttachFile(msg, merged, "document.pdf"))
	assert.Contains(t, msg.Attachments, "document.pdf")
}

func TestMaildirDelete(t *testing.T) {
	root := t.TempDir()
	seedMessage(t, root, "OBI_DE", "msg-1", "", nil, nil)

	acc, err := OpenMaildir(root)
	require.NoError(t, err)

	msgs, err := acc.Messages("OBI_DE")
	require.NoError(t, err)
	require.NoError(t, acc.Delete(msgs[0]))

	left, err := acc.Messages("OBI_DE")
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestAnnotate(t *testing.T) {
	assert.Equal(t, "G.ROBOT_RFC (ERROR): Invalid message attachment!",
		Annotate(SeverityError, "Invalid message attachment!"))
}
