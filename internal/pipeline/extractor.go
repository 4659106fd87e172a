package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/castlemilk/claimflow/internal/categorize"
	"github.com/castlemilk/claimflow/internal/config"
	"github.com/castlemilk/claimflow/internal/extract"
	"github.com/castlemilk/claimflow/internal/logging"
	"github.com/castlemilk/claimflow/internal/mailbox"
	"github.com/castlemilk/claimflow/internal/ocr"
	"github.com/castlemilk/claimflow/internal/pdftext"
	"github.com/castlemilk/claimflow/internal/store"
	"github.com/castlemilk/claimflow/internal/template"
)

// InvalidCategoryAppliedError reports a user-applied message category that is
// not allowed for the matched template.
type InvalidCategoryAppliedError struct {
	Category string
	Allowed  []string
}

func (e *InvalidCategoryAppliedError) Error() string {
	return fmt.Sprintf("the message category %q is not applicable for the document, allowed: %v",
		e.Category, e.Allowed)
}

// Extractor converts input PDFs to text and extracts their typed records.
type Extractor struct {
	cfg    *config.Config
	store  store.Store
	mail   mailbox.Account
	engine *extract.Engine
	ocr    *ocr.Converter
	log    *zap.Logger
}

// NewExtractor creates the extraction stage over loaded templates.
func NewExtractor(cfg *config.Config, st store.Store, mail mailbox.Account, registry *template.Registry, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	converter := ocr.NewConverter(
		cfg.OCR.URL, cfg.OCR.Secret, cfg.OCR.Attempts,
		time.Duration(cfg.OCR.WaitSeconds)*time.Second,
		time.Duration(cfg.OCR.TimeoutSeconds)*time.Second, log)

	return &Extractor{
		cfg:    cfg,
		store:  st,
		mail:   mail,
		engine: extract.NewEngine(registry, nil, log),
		ocr:    converter,
		log:    log,
	}
}

// Run processes every PDF in the input directory. Files whose names carry no
// record id, or whose record vanished, stay in place for investigation.
func (e *Extractor) Run(ctx context.Context) error {
	lock := NewLock(e.cfg.Dirs.Control, StageExtractor)
	if err := lock.Release(); err != nil {
		return err
	}

	paths, err := filepath.Glob(filepath.Join(e.cfg.Dirs.Input, "*.pdf"))
	if err != nil {
		return err
	}
	e.log.Info("documents found", zap.Int("count", len(paths)))

	for nth, path := range paths {
		if lock.Exists() {
			e.log.Info("cancellation requested, stopping")
			return nil
		}

		log := e.log.With(
			zap.String("file", filepath.Base(path)),
			zap.String("progress", fmt.Sprintf("%d/%d", nth+1, len(paths))))

		if err := e.processDocument(ctx, path, log); err != nil {
			return err
		}
	}

	return nil
}

func (e *Extractor) processDocument(ctx context.Context, pdfPath string, log *zap.Logger) error {
	recID, err := RecordID(pdfPath)
	if err != nil {
		log.Error("unprocessable file left in the input directory", zap.Error(err))
		return nil
	}
	log = log.With(zap.Int64("record_id", recID))

	rec, err := e.store.GetDocument(ctx, recID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			log.Error("no record matches the file, left in the input directory")
			return nil
		}
		return err
	}

	customer := rec.Subfolder
	cust, ok := e.cfg.Customers[customer]
	if !ok {
		log.Error("no configuration exists for the customer", zap.String("customer", customer))
		return nil
	}
	log = log.With(zap.String("customer", customer))

	if strings.EqualFold(cust.Extractor, "AI") {
		log.Warn("file skipped, extraction is delegated to the document recognizer")
		return nil
	}

	text, err := e.documentText(rec, cust, pdfPath, log)
	if err != nil {
		var srv *ocr.ServerError
		if errors.As(err, &srv) && e.cfg.OCR.IgnoreServerErrors {
			log.Error("OCR server error ignored", zap.Error(err))
			return nil
		}
		return err
	}

	docLog := logging.ForDocument(log)

	result, extractErr := e.engine.Extract(customer, text)

	var data []byte
	var status store.Status
	var dstDir, userMsg string

	if extractErr == nil {
		category, catErr := e.identifyCategory(rec.MessageCategory.String, result.Record, docLog.Logger)
		if catErr != nil {
			extractErr = catErr
		} else {
			result.Record.Category = category
		}
	}

	if extractErr == nil {
		if err := os.WriteFile(textPath(pdfPath), []byte(result.NormalizedText), 0o644); err != nil {
			return err
		}

		data, err = result.Record.Marshal()
		if err != nil {
			return err
		}
		if err := os.WriteFile(jsonPath(pdfPath), data, 0o644); err != nil {
			return err
		}

		status = store.StatusExtracted
		dstDir = e.cfg.Dirs.Upload
		userMsg = mailbox.Annotate(mailbox.SeverityInfo, "Document data extraction OK.")
	} else {
		docLog.Error("extraction failed", zap.Error(extractErr))
		if err := os.WriteFile(textPath(pdfPath), []byte(text), 0o644); err != nil {
			return err
		}

		status = store.StatusExtractionError
		dstDir = e.cfg.Dirs.TemplateErr
		userMsg = e.failureMessage(extractErr, customer)
	}

	logText := docLog.Text()
	if err := os.WriteFile(logPath(pdfPath), []byte(logText), 0o644); err != nil {
		return err
	}

	if extractErr == nil {
		if err := renameSiblings(pdfPath, result.Record.Name, recID); err != nil {
			return err
		}
	}

	moved, err := MoveFiles(filepath.Dir(pdfPath), dstDir, recID)
	if err != nil {
		return err
	}

	fields := store.Fields{
		"doc_status":     string(status),
		"link":           moved["pdf"],
		"extracted_text": text,
		"log_file":       logText,
	}
	if data != nil {
		fields["output_file"] = data
	}
	if err := e.store.UpdateDocument(ctx, recID, fields); err != nil {
		return err
	}

	annotateByID(e.mail, rec.MessageID, userMsg, log)
	return nil
}

// documentText reuses the stored text of a previous run unless forced,
// otherwise converts the PDF through the configured route.
func (e *Extractor) documentText(rec *store.Document, cust config.Customer, pdfPath string, log *zap.Logger) (string, error) {
	if !e.cfg.OCR.Force && rec.ExtractedText.Valid && rec.ExtractedText.String != "" {
		log.Info("reusing the text of a previous run")
		return rec.ExtractedText.String, nil
	}

	if strings.EqualFold(cust.Extractor, "LOCAL") {
		log.Info("extracting text locally")
		return pdftext.Extract(pdfPath)
	}

	route, ok := e.cfg.OCR.Routes[cust.PDFType]
	if !ok {
		return "", fmt.Errorf("no OCR route configured for pdf type %q", cust.PDFType)
	}

	log.Info("converting pdf to text", zap.String("route", route))
	return e.ocr.Convert(route, pdfPath, ocr.Options{Clean: true, Header: true})
}

// identifyCategory resolves the single business category of a debit note.
// Credit notes carry none.
func (e *Extractor) identifyCategory(msgCateg string, rec *extract.Record, log *zap.Logger) (string, error) {
	if rec.Kind == "credit" {
		if msgCateg != "" {
			log.Warn("categorization does not apply to credit notes, the message category is dropped",
				zap.String("message_category", msgCateg))
		}
		return "", nil
	}
	if rec.Kind != "debit" {
		return "", fmt.Errorf("unrecognized document kind %q", rec.Kind)
	}

	switch msgCateg {
	case "REBUILD_WITHOUT_RETURN":
		msgCateg = "rebuild"
	case "PENALTY":
		msgCateg = "penalty_general"
	}

	if msgCateg == "" {
		if len(rec.Categories) == 1 {
			return rec.Categories[0], nil
		}
		return categorize.Resolve(rec)
	}

	msgCateg = strings.ToLower(msgCateg)
	for _, c := range rec.Categories {
		if c == msgCateg {
			log.Info("document category overridden by the message category",
				zap.String("category", msgCateg))
			return msgCateg, nil
		}
	}

	return "", &InvalidCategoryAppliedError{Category: msgCateg, Allowed: rec.Categories}
}

// failureMessage maps an extraction failure to the annotation written back to
// the user email.
func (e *Extractor) failureMessage(err error, customer string) string {
	var invalid *InvalidCategoryAppliedError
	if errors.As(err, &invalid) {
		return mailbox.Annotate(mailbox.SeverityError,
			"The message category you've applied is not applicable for the document!")
	}

	var notFound *categorize.NotFoundError
	var unsupported *categorize.UnsupportedError
	if errors.As(err, &notFound) || errors.As(err, &unsupported) {
		return mailbox.Annotate(mailbox.SeverityError,
			"Could not categorize the document!\n"+
				"Apply the category manually, and move the message again to the "+
				"customer folder: '"+customer+"'.")
	}

	return mailbox.Annotate(mailbox.SeverityError, "Could not extract document data!")
}

// annotateByID appends the annotation to the originating message. A vanished
// message is logged and tolerated.
func annotateByID(mail mailbox.Account, messageID, text string, log *zap.Logger) {
	msgs, err := mail.MessagesByID(messageID)
	if err != nil || len(msgs) == 0 {
		log.Error("message not found, the annotation cannot be written",
			zap.String("message_id", messageID))
		return
	}
	if err := mail.AppendText(msgs[0], text); err != nil {
		log.Error("could not annotate the message", zap.Error(err))
	}
}

// renameSiblings renames every per-claim file next to the PDF to the
// extracted document name, keeping the id tag.
func renameSiblings(pdfPath, name string, recID int64) error {
	dir := filepath.Dir(pdfPath)
	base := strings.TrimSuffix(filepath.Base(pdfPath), ".pdf")

	for _, ext := range docFileTypes {
		path := filepath.Join(dir, base+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if _, err := RenameTagged(path, name, recID); err != nil {
			return err
		}
	}
	return nil
}

func textPath(pdfPath string) string { return strings.TrimSuffix(pdfPath, ".pdf") + ".txt" }
func jsonPath(pdfPath string) string { return strings.TrimSuffix(pdfPath, ".pdf") + ".json" }
func logPath(pdfPath string) string  { return strings.TrimSuffix(pdfPath, ".pdf") + ".log" }
