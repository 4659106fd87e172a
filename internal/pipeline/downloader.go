package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/castlemilk/claimflow/internal/blob"
	"github.com/castlemilk/claimflow/internal/config"
	"github.com/castlemilk/claimflow/internal/mailbox"
	"github.com/castlemilk/claimflow/internal/store"
)

// ControlIgnoreExisting is the user-applied control category that requests a
// new claim despite an existing duplicate.
const ControlIgnoreExisting = "IGNORE_ALREADY_EXISTING"

// Downloader saves documents received from customers. It walks every
// customer folder of the shared mailbox, stores each PDF under the input
// directory and registers it in the document store.
type Downloader struct {
	cfg   *config.Config
	store store.Store
	mail  mailbox.Account
	blob  *blob.Store // optional, staging for AI-extracted customers
	log   *zap.Logger
}

// NewDownloader creates the downloading stage. blobStore may be nil when no
// customer routes through the AI recognizer.
func NewDownloader(cfg *config.Config, st store.Store, mail mailbox.Account, blobStore *blob.Store, log *zap.Logger) *Downloader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Downloader{cfg: cfg, store: st, mail: mail, blob: blobStore, log: log}
}

// Run processes every customer folder. Folder-level failures are logged and
// the next folder is tried.
func (d *Downloader) Run(ctx context.Context) error {
	lock := NewLock(d.cfg.Dirs.Control, StageDownloader)
	if err := lock.Release(); err != nil {
		return err
	}

	for _, customer := range sortedCustomers(d.cfg.Customers) {
		if lock.Exists() {
			d.log.Info("cancellation requested, stopping")
			return nil
		}

		log := d.log.With(zap.String("customer", customer))
		log.Info("processing email folder")

		msgs, err := d.mail.Messages(customer)
		if err != nil {
			log.Error("could not list the customer folder", zap.Error(err))
			continue
		}
		log.Info("emails collected", zap.Int("count", len(msgs)))

		for _, msg := range msgs {
			if err := d.processMessage(ctx, customer, msg, log); err != nil {
				log.Error("message processing failed", zap.Error(err))
			}
		}
	}

	return nil
}

func (d *Downloader) processMessage(ctx context.Context, customer string, msg *mailbox.Message, log *zap.Logger) error {
	cust := d.cfg.Customers[customer]
	subfolders := d.cfg.Mailbox.Subfolders

	pdfPath, err := d.savePDF(customer, msg, cust)
	if err != nil {
		var invalid *mailbox.InvalidAttachmentsError
		if errors.As(err, &invalid) {
			log.Error("invalid attachments", zap.Error(err))
			d.move(msg, customer, subfolders.Failed, log)
			d.annotate(msg, mailbox.Annotate(mailbox.SeverityError, "Invalid message attachment!"), log)
			return nil
		}
		d.annotate(msg, mailbox.Annotate(mailbox.SeverityError, err.Error()), log)
		return nil
	}

	category, control, err := messageCategory(msg,
		d.cfg.Mailbox.Categories.Documents, d.cfg.Mailbox.Categories.Control)
	if err != nil {
		log.Error("invalid message categories", zap.Error(err))
		os.Remove(pdfPath)
		d.move(msg, customer, subfolders.Failed, log)
		d.annotate(msg, mailbox.Annotate(mailbox.SeverityError, err.Error()), log)
		return nil
	}

	hash := mailbox.FindHash(msg)
	if hash == "" {
		hash, err = FileHash(pdfPath)
		if err != nil {
			return err
		}
		d.annotate(msg, mailbox.HashAnnotation(hash), log)
	} else {
		log.Info("hash value found on the message")
	}

	docs, err := d.store.GetDocumentsBy(ctx, "doc_hash", hash)
	if err != nil {
		return err
	}

	if len(docs) > 1 {
		os.Remove(pdfPath)
		log.Error("duplicate records share the document hash", zap.String("hash", hash))
		d.annotate(msg, mailbox.Annotate(mailbox.SeverityError,
			"More than one copy of the file found in database!\n"+
				"Contact the LBS automation team for support."), log)
		return nil
	}

	var recID int64
	if len(docs) == 0 {
		recID, err = d.store.CreateDocument(ctx, &store.Document{
			DocHash:         hash,
			Subfolder:       customer,
			MessageID:       msg.ID,
			MessageCategory: nullable(category),
			ControlCategory: nullable(control),
			Status:          store.StatusRegistered,
		})
		if err != nil {
			return err
		}
		log.Info("document registered", zap.Int64("record_id", recID))
	} else {
		proceed, err := d.refreshRecord(ctx, docs[0], customer, category, control, msg, log)
		if err != nil {
			return err
		}
		if !proceed {
			os.Remove(pdfPath)
			return nil
		}
		recID = docs[0].ID
	}

	pdfPath, err = RenameTagged(pdfPath, customer+"_document", recID)
	if err != nil {
		d.annotate(msg, mailbox.Annotate(mailbox.SeverityError, err.Error()), log)
		return nil
	}

	if err := d.store.UpdateDocument(ctx, recID, store.Fields{"link": pdfPath}); err != nil {
		return err
	}

	d.move(msg, customer, subfolders.Ready, log)
	d.annotate(msg, mailbox.Annotate(mailbox.SeverityInfo, "Message attachment downloaded."), log)

	if strings.EqualFold(cust.Extractor, "AI") && d.blob != nil {
		virtDir := strings.ReplaceAll(d.cfg.Blob.VirtualDir, "$customer$", customer)
		name := virtDir + "/" + filepath.Base(pdfPath)
		if err := d.blob.Upload(ctx, pdfPath, name, true); err != nil {
			log.Error("blob upload failed", zap.Error(err))
		} else {
			log.Info("document staged for the AI recognizer", zap.String("blob", name))
		}
	}

	return nil
}

// refreshRecord updates an already known document. It reports whether the
// document should be processed again.
func (d *Downloader) refreshRecord(ctx context.Context, doc *store.Document, customer, category, control string, msg *mailbox.Message, log *zap.Logger) (bool, error) {
	log.Warn("the file is already recorded",
		zap.Int64("record_id", doc.ID), zap.String("status", string(doc.Status)))

	// the user may have moved the message to another customer folder
	if err := d.store.UpdateDocument(ctx, doc.ID, store.Fields{"subfolder": customer}); err != nil {
		return false, err
	}

	if control == ControlIgnoreExisting {
		log.Warn("the document will be processed regardless of its status")
		if err := d.store.UpdateDocument(ctx, doc.ID, store.Fields{"control_category": control}); err != nil {
			return false, err
		}
	} else if doc.Status.Settled() {
		location, err := d.mail.Move(msg, customer, d.cfg.Mailbox.Subfolders.Completed)
		if err == nil {
			log.Info("message filed", zap.String("location", location))
		}
		return false, nil
	}

	fields := store.Fields{}
	if doc.MessageCategory.String != category {
		log.Warn("overwriting the message category",
			zap.String("previous", doc.MessageCategory.String), zap.String("current", category))
		fields["message_category"] = nullable(category)
	}
	if doc.Status != store.StatusRegistered {
		fields["doc_status"] = string(store.StatusRegistered)
	}

	if doc.MessageID != msg.ID {
		fields["message_id"] = msg.ID
		if old, err := d.mail.MessagesByID(doc.MessageID); err == nil {
			for _, stale := range old {
				log.Warn("removing the original message", zap.String("message_id", stale.ID))
				if err := d.mail.Delete(stale); err != nil {
					log.Error("could not remove the original message", zap.Error(err))
				}
			}
		}
	}

	if len(fields) > 0 {
		if err := d.store.UpdateDocument(ctx, doc.ID, fields); err != nil {
			return false, err
		}
	}

	return true, nil
}

// savePDF materializes the document PDF per the customer's attachment count
// policy.
func (d *Downloader) savePDF(customer string, msg *mailbox.Message, cust config.Customer) (string, error) {
	dir := d.cfg.Dirs.Input

	pdfs := 0
	for _, att := range msg.Attachments {
		if strings.EqualFold(filepath.Ext(att), ".pdf") {
			pdfs++
		}
	}

	switch cust.PDFCount {
	case "zero_or_one":
		if pdfs == 0 {
			path := filepath.Join(dir, "document.pdf")
			return path, d.mail.SaveBody(msg, path)
		}
		if pdfs > 1 {
			return "", &mailbox.InvalidAttachmentsError{Expected: "zero or one", Got: pdfs}
		}
		return d.saveSingle(msg, dir)

	case "one":
		if pdfs != 1 {
			return "", &mailbox.InvalidAttachmentsError{Expected: "one", Got: pdfs}
		}
		return d.saveSingle(msg, dir)

	case "one_or_two":
		if pdfs < 1 || pdfs > 2 {
			return "", &mailbox.InvalidAttachmentsError{Expected: "one or two", Got: pdfs}
		}
		if pdfs == 1 {
			return d.saveSingle(msg, dir)
		}
		return d.saveMerged(msg, dir, cust)
	}

	return "", fmt.Errorf("unrecognized pdf count policy %q for customer %s", cust.PDFCount, customer)
}

func (d *Downloader) saveSingle(msg *mailbox.Message, dir string) (string, error) {
	paths, err := d.mail.SaveAttachments(msg, dir, ".pdf")
	if err != nil {
		return "", err
	}
	return paths[0], nil
}

// saveMerged saves both PDF attachments, merges them alphabetically so the
// pages keep their sending order, and optionally replaces the message
// attachments with the merged file.
func (d *Downloader) saveMerged(msg *mailbox.Message, dir string, cust config.Customer) (string, error) {
	temp := d.cfg.Dirs.Temp
	parts, err := d.mail.SaveAttachments(msg, temp, ".pdf")
	if err != nil {
		return "", err
	}
	sort.Strings(parts)

	merged := filepath.Join(dir, "document.pdf")
	if err := d.mergePDF(parts, merged); err != nil {
		return "", err
	}

	if cust.AttachMerged {
		name := "document.pdf"
		if cust.AttachmentName == "base" {
			name = filepath.Base(parts[0])
		}
		if err := d.mail.RemoveAttachments(msg, ".pdf"); err != nil {
			return "", err
		}
		if err := d.mail.AttachFile(msg, merged, name); err != nil {
			return "", err
		}
	}

	for _, part := range parts {
		os.Remove(part)
	}

	return merged, nil
}

func (d *Downloader) mergePDF(parts []string, dst string) error {
	merger := d.cfg.PDFMerger
	if merger == "" {
		merger = "pdfunite"
	}

	args := append(append([]string(nil), parts...), dst)
	out, err := exec.Command(merger, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("merge pdf: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// messageCategory splits the user-applied categories into one document
// category and one control category.
func messageCategory(msg *mailbox.Message, docCategories, ctrlCategories []string) (category, control string, err error) {
	isDoc := make(map[string]bool, len(docCategories))
	for _, c := range docCategories {
		isDoc[c] = true
	}
	isCtrl := make(map[string]bool, len(ctrlCategories))
	for _, c := range ctrlCategories {
		isCtrl[c] = true
	}

	var valid []string
	for _, c := range msg.Categories {
		if isDoc[c] || isCtrl[c] {
			valid = append(valid, c)
		}
	}

	for _, c := range valid {
		switch {
		case isCtrl[c] && control == "":
			control = c
		case isDoc[c] && category == "":
			category = c
		default:
			return "", "", fmt.Errorf("invalid message category combination: %v", valid)
		}
	}

	return category, control, nil
}

// move files the message and logs the outcome. Moving to the current folder
// is not an error.
func (d *Downloader) move(msg *mailbox.Message, customer, subfolder string, log *zap.Logger) {
	location, err := d.mail.Move(msg, customer, subfolder)
	if err != nil {
		var identical *mailbox.IdenticalFolderError
		if errors.As(err, &identical) {
			return
		}
		log.Error("could not move the message", zap.Error(err))
		return
	}
	log.Info("message filed", zap.String("location", location))
}

func (d *Downloader) annotate(msg *mailbox.Message, text string, log *zap.Logger) {
	if err := d.mail.AppendText(msg, text); err != nil {
		log.Error("could not annotate the message", zap.Error(err))
	}
}

func sortedCustomers(customers map[string]config.Customer) []string {
	names := make([]string, 0, len(customers))
	for name := range customers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
