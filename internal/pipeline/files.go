// Package pipeline drives documents through the download, extract, create,
// dispatch and archive stages, sharing state through the document store, the
// mailbox and the per-claim files on disk.
package pipeline

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// docFileTypes are the per-claim file types sharing one record id.
var docFileTypes = []string{".pdf", ".log", ".txt", ".json"}

// NameFormatError reports a per-claim file whose name carries no record id.
type NameFormatError struct {
	Path string
}

func (e *NameFormatError) Error() string {
	return fmt.Sprintf("file name %q carries no record id", filepath.Base(e.Path))
}

var recordIDPattern = regexp.MustCompile(`_id=(\d+)`)

// RecordID extracts the database record id from a per-claim file name.
func RecordID(path string) (int64, error) {
	m := recordIDPattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, &NameFormatError{Path: path}
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, &NameFormatError{Path: path}
	}
	return id, nil
}

// TaggedName builds the canonical per-claim file name <base>_id=<rec>.<ext>.
func TaggedName(base string, recID int64, ext string) string {
	return fmt.Sprintf("%s_id=%d%s", base, recID, ext)
}

// RenameTagged renames the file to <base>_id=<rec><ext> in place and returns
// the new path. An existing target is unlinked first.
func RenameTagged(path, base string, recID int64) (string, error) {
	dir := filepath.Dir(path)
	target := filepath.Join(dir, TaggedName(strings.ToLower(base), recID, filepath.Ext(path)))
	if target == path {
		return path, nil
	}

	if err := os.RemoveAll(target); err != nil {
		return "", err
	}
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}

	return target, nil
}

// MoveFiles moves the per-claim files of the record from src to dst and
// returns the new location per extension. Without exts every per-claim file
// type moves. Existing destination files are unlinked first so repeated
// moves stay idempotent.
func MoveFiles(src, dst string, recID int64, exts ...string) (map[string]string, error) {
	if len(exts) == 0 {
		exts = docFileTypes
	}
	moved := make(map[string]string)

	for _, ext := range exts {
		matches, err := filepath.Glob(filepath.Join(src, fmt.Sprintf("*_id=%d%s", recID, ext)))
		if err != nil {
			return nil, err
		}

		for _, path := range matches {
			target := filepath.Join(dst, filepath.Base(path))
			if err := os.RemoveAll(target); err != nil {
				return nil, err
			}
			if err := os.Rename(path, target); err != nil {
				return nil, fmt.Errorf("move %s: %w", filepath.Base(path), err)
			}
			moved[strings.TrimPrefix(ext, ".")] = target
		}
	}

	return moved, nil
}

// RemoveFiles deletes every per-claim file of the record under dir.
func RemoveFiles(dir string, recID int64) error {
	matches, err := filepath.Glob(filepath.Join(dir, fmt.Sprintf("*_id=%d.*", recID)))
	if err != nil {
		return err
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return nil
}

// FileHash returns the SHA-256 of the file content, the identity of a
// document across re-downloads.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
