// Package ocr converts PDF documents to raw text through the OCR service.
package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Routes used to scan a specific type of PDF document.
const (
	RouteTextual = "v2/pdf_file"
	RouteScanned = "v2/scanned_pdf_file"
)

// ServerError reports a failed exchange with the OCR server.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("ocr server error: %s", e.Message)
	}
	return fmt.Sprintf("ocr server error %d: %s", e.StatusCode, e.Message)
}

// Options tune the conversion behavior.
type Options struct {
	// Clean removes redundant form feed characters from the result.
	Clean bool
	// Header prepends a line naming the OCR route used, for better clarity
	// when the raw text is stored next to the document.
	Header bool
}

// Converter sends PDF files to the OCR service and returns their text.
type Converter struct {
	url         string
	accessToken string
	attempts    int
	wait        time.Duration
	http        *http.Client
	log         *zap.Logger
}

// NewConverter creates an OCR client. attempts and wait bound the retry loop
// applied when the server answers 502 while its worker restarts.
func NewConverter(url, accessToken string, attempts int, wait, timeout time.Duration, log *zap.Logger) *Converter {
	if attempts <= 0 {
		attempts = 10
	}
	if wait <= 0 {
		wait = 2 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Converter{
		url:         strings.TrimRight(url, "/"),
		accessToken: accessToken,
		attempts:    attempts,
		wait:        wait,
		http:        &http.Client{Timeout: timeout},
		log:         log,
	}
}

// Convert uploads the PDF at path to the given route and returns the
// extracted text.
func (c *Converter) Convert(route, path string, opts Options) (string, error) {
	var text string

	op := func() error {
		result, err := c.post(route, path)
		if err != nil {
			var srv *ServerError
			if errors.As(err, &srv) && srv.StatusCode == http.StatusBadGateway {
				c.log.Warn("OCR server answered 502, retrying", zap.String("route", route))
				return err
			}
			return backoff.Permanent(err)
		}
		text = result
		return nil
	}

	policy := backoff.WithMaxRetries(
		backoff.NewConstantBackOff(c.wait), uint64(c.attempts-1))
	if err := backoff.Retry(op, policy); err != nil {
		return "", err
	}

	if opts.Clean {
		text = strings.ReplaceAll(text, "\x0c", "")
	}
	if opts.Header {
		header := fmt.Sprintf("-------------- OCR route: %s --------------", route)
		text = header + "\n\n" + text
	}

	return text, nil
}

func (c *Converter) post(route, path string) (string, error) {
	pdf, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer pdf.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("pdf", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, pdf); err != nil {
		return "", err
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, c.url+"/"+route, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("access_token", c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &ServerError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ServerError{Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ServerError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	return string(raw), nil
}
