package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRecordID(t *testing.T) {
	id, err := RecordID("/in/obi_de_document_id=4711.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(4711), id)

	_, err = RecordID("/in/document.pdf")
	var nameErr *NameFormatError
	assert.ErrorAs(t, err, &nameErr)
}

func TestTaggedName(t *testing.T) {
	assert.Equal(t, "obi_de_retoure_id=125478.json",
		TaggedName("obi_de_retoure", 125478, ".json"))
}

func TestRenameTagged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "document.pdf")
	writeFile(t, path, "pdf")

	renamed, err := RenameTagged(path, "OBI_DE_document", 42)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "obi_de_document_id=42.pdf"), renamed)
	assert.NoFileExists(t, path)
	assert.FileExists(t, renamed)

	// renaming to the current name is a no-op
	again, err := RenameTagged(renamed, "obi_de_document", 42)
	require.NoError(t, err)
	assert.Equal(t, renamed, again)
}

func TestRenameTaggedReplacesTarget(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "retoure_id=7.pdf")
	writeFile(t, stale, "old")
	path := filepath.Join(dir, "document.pdf")
	writeFile(t, path, "new")

	renamed, err := RenameTagged(path, "retoure", 7)
	require.NoError(t, err)

	content, err := os.ReadFile(renamed)
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
}

func TestMoveFiles(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writeFile(t, filepath.Join(src, "retoure_id=9.pdf"), "pdf")
	writeFile(t, filepath.Join(src, "retoure_id=9.json"), "json")
	writeFile(t, filepath.Join(src, "retoure_id=9.log"), "log")
	writeFile(t, filepath.Join(src, "other_id=10.pdf"), "keep")

	moved, err := MoveFiles(src, dst, 9)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dst, "retoure_id=9.pdf"), moved["pdf"])
	assert.Equal(t, filepath.Join(dst, "retoure_id=9.json"), moved["json"])
	assert.Equal(t, filepath.Join(dst, "retoure_id=9.log"), moved["log"])
	assert.NotContains(t, moved, "txt")

	assert.NoFileExists(t, filepath.Join(src, "retoure_id=9.pdf"))
	assert.FileExists(t, filepath.Join(src, "other_id=10.pdf"))
}

func TestMoveFilesFiltersExtensions(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writeFile(t, filepath.Join(src, "retoure_id=9.pdf"), "pdf")
	writeFile(t, filepath.Join(src, "retoure_id=9.json"), "json")

	moved, err := MoveFiles(src, dst, 9, ".pdf")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dst, "retoure_id=9.pdf"), moved["pdf"])
	assert.NotContains(t, moved, "json")
	assert.FileExists(t, filepath.Join(src, "retoure_id=9.json"))
}

func TestRemoveFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "retoure_id=9.json"), "json")
	writeFile(t, filepath.Join(dir, "retoure_id=9.txt"), "txt")
	writeFile(t, filepath.Join(dir, "other_id=10.pdf"), "keep")

	require.NoError(t, RemoveFiles(dir, 9))

	assert.NoFileExists(t, filepath.Join(dir, "retoure_id=9.json"))
	assert.NoFileExists(t, filepath.Join(dir, "retoure_id=9.txt"))
	assert.FileExists(t, filepath.Join(dir, "other_id=10.pdf"))
}

func TestFileHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "document.pdf")
	writeFile(t, path, "hello")

	hash, err := FileHash(path)
	require.NoError(t, err)
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", hash)
}

func TestLock(t *testing.T) {
	dir := t.TempDir()
	lock := NewLock(dir, StageCreator)

	assert.False(t, lock.Exists())
	require.NoError(t, lock.Activate())
	assert.True(t, lock.Exists())
	assert.FileExists(t, filepath.Join(dir, "cancel_creator.txt"))

	// repeated activation keeps the marker
	require.NoError(t, lock.Activate())
	assert.True(t, lock.Exists())

	require.NoError(t, lock.Release())
	assert.False(t, lock.Exists())

	// releasing a released lock is fine
	require.NoError(t, lock.Release())
}
