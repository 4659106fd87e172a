// Package blob stores pipeline artifacts in a cloud bucket. Documents routed
// through the AI recognizer are staged here between the downloader and the
// extractor.
package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// DuplicatePolicy decides what Download does when the local target exists.
type DuplicatePolicy string

const (
	// Raise fails the download.
	Raise DuplicatePolicy = "raise"
	// Copy writes the blob next to the existing file under a numbered name.
	Copy DuplicatePolicy = "copy"
	// Overwrite replaces the existing file.
	Overwrite DuplicatePolicy = "overwrite"
)

// ErrBlobExists is returned by Upload when the target blob already exists
// and overwriting was not requested.
var ErrBlobExists = errors.New("blob: target already exists")

// ErrFileExists is returned by Download under the Raise duplicate policy.
var ErrFileExists = errors.New("blob: local file already exists")

// Store wraps one bucket and a virtual directory inside it.
type Store struct {
	client     *storage.Client
	bucket     *storage.BucketHandle
	virtualDir string
}

// New connects to the bucket. credentialsFile may be empty when ambient
// credentials are available.
func New(ctx context.Context, bucket, virtualDir, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect blob store: %w", err)
	}

	return &Store{
		client:     client,
		bucket:     client.Bucket(bucket),
		virtualDir: strings.Trim(virtualDir, "/"),
	}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) objectName(name string) string {
	if s.virtualDir == "" {
		return name
	}
	return path.Join(s.virtualDir, name)
}

// Upload copies the local file to the virtual path. Without overwrite, an
// existing blob fails with ErrBlobExists.
func (s *Store) Upload(ctx context.Context, localPath, name string, overwrite bool) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer src.Close()

	obj := s.bucket.Object(s.objectName(name))
	if !overwrite {
		if _, err := obj.Attrs(ctx); err == nil {
			return fmt.Errorf("%w: %s", ErrBlobExists, name)
		} else if !errors.Is(err, storage.ErrObjectNotExist) {
			return err
		}
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}

	w := obj.NewWriter(ctx)
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return w.Close()
}

// List returns blob names under dir, optionally filtered by extension and a
// base-name pattern.
func (s *Store) List(ctx context.Context, dir, ext string, namePattern *regexp.Regexp) ([]string, error) {
	prefix := s.objectName(dir)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var names []string
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list blobs: %w", err)
		}

		base := path.Base(attrs.Name)
		if ext != "" && !strings.EqualFold(path.Ext(base), ext) {
			continue
		}
		if namePattern != nil && !namePattern.MatchString(base) {
			continue
		}
		names = append(names, strings.TrimPrefix(attrs.Name, s.virtualDir+"/"))
	}

	return names, nil
}

// Download writes the blob to localPath, applying the duplicate policy when
// the target file already exists.
func (s *Store) Download(ctx context.Context, name, localPath string, policy DuplicatePolicy) (string, error) {
	if _, err := os.Stat(localPath); err == nil {
		switch policy {
		case Raise:
			return "", fmt.Errorf("%w: %s", ErrFileExists, localPath)
		case Copy:
			localPath = numberedCopy(localPath)
		case Overwrite:
		default:
			return "", fmt.Errorf("blob: unrecognized duplicate policy %q", policy)
		}
	}

	r, err := s.bucket.Object(s.objectName(name)).NewReader(ctx)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", name, err)
	}
	defer r.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("download %s: %w", name, err)
	}

	return localPath, nil
}

// Delete removes the blob.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.bucket.Object(s.objectName(name)).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Fetch reads the blob content. JSON blobs are decoded into out when out is
// non-nil; otherwise the raw bytes are returned.
func (s *Store) Fetch(ctx context.Context, name string, out any) ([]byte, error) {
	r, err := s.bucket.Object(s.objectName(name)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
	}

	return raw, nil
}

// numberedCopy derives a free file name by appending a counter before the
// extension.
func numberedCopy(p string) string {
	ext := path.Ext(p)
	base := strings.TrimSuffix(p, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
