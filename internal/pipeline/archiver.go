package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/castlemilk/claimflow/internal/config"
	"github.com/castlemilk/claimflow/internal/extract"
	"github.com/castlemilk/claimflow/internal/mailbox"
	"github.com/castlemilk/claimflow/internal/store"
)

// Archiver clears out documents that finished or stalled their processing.
// Debit notes are never archived; credit notes wait out the retention time
// during which the creator keeps trying to match them with a case.
type Archiver struct {
	cfg   *config.Config
	store store.Store
	mail  mailbox.Account
	now   func() time.Time
	log   *zap.Logger
}

// NewArchiver creates the archiving stage.
func NewArchiver(cfg *config.Config, st store.Store, mail mailbox.Account, log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archiver{cfg: cfg, store: st, mail: mail, now: time.Now, log: log}
}

// Run scans the working directories and moves expired documents to the
// archive directory.
func (a *Archiver) Run(ctx context.Context) error {
	lock := NewLock(a.cfg.Dirs.Control, StageArchiver)
	if err := lock.Release(); err != nil {
		return err
	}

	retention := a.cfg.Processing.CreditRetentionDays
	if retention < 0 {
		retention = 0
	}

	for _, srcDir := range []string{a.cfg.Dirs.Upload, a.cfg.Dirs.Failed, a.cfg.Dirs.Archive} {
		paths, err := filepath.Glob(filepath.Join(srcDir, "*.pdf"))
		if err != nil {
			return err
		}
		a.log.Info("scanning folder",
			zap.String("dir", srcDir), zap.Int("count", len(paths)))

		for _, path := range paths {
			if lock.Exists() {
				a.log.Info("cancellation requested, stopping")
				return nil
			}

			if err := a.processFile(ctx, srcDir, path, retention); err != nil {
				return err
			}
		}
	}

	return nil
}

func (a *Archiver) processFile(ctx context.Context, srcDir, pdfPath string, retention int) error {
	log := a.log.With(zap.String("file", filepath.Base(pdfPath)))

	recID, err := RecordID(pdfPath)
	if err != nil {
		log.Error("file skipped", zap.Error(err))
		return nil
	}
	log = log.With(zap.Int64("record_id", recID))

	rec, err := a.store.GetDocument(ctx, recID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			log.Error("no record matches the file, skipped")
			return nil
		}
		return err
	}

	if a.shouldSkip(rec, retention, log) {
		return nil
	}

	if srcDir == a.cfg.Dirs.Archive {
		// the file already lives in the archive, the creator keeps failing
		// to match it with a case
		annotateByID(a.mail, rec.MessageID, mailbox.Annotate(mailbox.SeverityWarning,
			"Repeated attempts to match the document with a dispute case failed."), log)
		return nil
	}

	moved, err := MoveFiles(srcDir, a.cfg.Dirs.Archive, recID, ".pdf")
	if err != nil {
		return err
	}
	if err := RemoveFiles(srcDir, recID); err != nil {
		return err
	}

	log.Info("document archived", zap.String("link", moved["pdf"]))

	return a.store.UpdateDocument(ctx, recID, store.Fields{
		"doc_status": string(store.StatusCaseUnmatched),
		"link":       moved["pdf"],
	})
}

func (a *Archiver) shouldSkip(rec *store.Document, retention int, log *zap.Logger) bool {
	data, err := extract.Unmarshal(rec.OutputData)
	if err != nil {
		log.Error("stored record data unreadable, skipped", zap.Error(err))
		return true
	}

	if data.Kind == "debit" {
		log.Info("debit notes wait for processing and are excluded from archiving")
		return true
	}

	age := int(a.now().Sub(rec.CreatedAt).Hours() / 24)
	if data.Kind == "credit" && age < retention {
		log.Info("file skipped, the retention time is not yet exceeded",
			zap.Int("retention_days", retention), zap.Int("age_days", age))
		return true
	}

	return false
}
