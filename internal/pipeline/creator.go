package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/castlemilk/claimflow/internal/claim"
	"github.com/castlemilk/claimflow/internal/config"
	"github.com/castlemilk/claimflow/internal/erp"
	"github.com/castlemilk/claimflow/internal/extract"
	"github.com/castlemilk/claimflow/internal/mailbox"
	"github.com/castlemilk/claimflow/internal/rules"
	"github.com/castlemilk/claimflow/internal/store"
)

// CaseProcessor reconciles one compiled claim against the ERP.
type CaseProcessor interface {
	Process(c *claim.Context, pdfPath string, ignoreExisting bool) (erp.Result, error)
}

// Creator compiles extracted records into claims and books them in the ERP.
type Creator struct {
	cfg      *config.Config
	store    store.Store
	mail     mailbox.Account
	rules    *rules.Registry
	compiler *claim.Compiler
	recon    CaseProcessor
	log      *zap.Logger
}

// NewCreator creates the claim creation stage.
func NewCreator(cfg *config.Config, st store.Store, mail mailbox.Account, ruleSet *rules.Registry, compiler *claim.Compiler, recon CaseProcessor, log *zap.Logger) *Creator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Creator{
		cfg:      cfg,
		store:    st,
		mail:     mail,
		rules:    ruleSet,
		compiler: compiler,
		recon:    recon,
		log:      log,
	}
}

// Run books every extracted document waiting in the upload directory.
// ERP failures are per-document: the files move to the failed directory and
// the next document is tried.
func (c *Creator) Run(ctx context.Context) error {
	lock := NewLock(c.cfg.Dirs.Control, StageCreator)
	if err := lock.Release(); err != nil {
		return err
	}

	paths, err := filepath.Glob(filepath.Join(c.cfg.Dirs.Upload, "*.json"))
	if err != nil {
		return err
	}
	c.log.Info("documents found", zap.Int("count", len(paths)))

	for nth, path := range paths {
		if lock.Exists() {
			c.log.Info("cancellation requested, stopping")
			return nil
		}

		log := c.log.With(
			zap.String("file", filepath.Base(path)),
			zap.String("progress", fmt.Sprintf("%d/%d", nth+1, len(paths))))

		if err := c.processDocument(ctx, path, log); err != nil {
			return err
		}
	}

	return nil
}

func (c *Creator) processDocument(ctx context.Context, jsonPath string, log *zap.Logger) error {
	recID, err := RecordID(jsonPath)
	if err != nil {
		log.Error("unprocessable file left in the upload directory", zap.Error(err))
		return nil
	}
	log = log.With(zap.Int64("record_id", recID))

	rec, err := c.store.GetDocument(ctx, recID)
	if err != nil {
		return err
	}

	data, err := extract.Unmarshal(rec.OutputData)
	if err != nil {
		log.Error("stored record data unreadable", zap.Error(err))
		return c.fail(ctx, recID, rec.MessageID, log)
	}

	compiled, err := c.compile(data)
	if err != nil {
		log.Error("claim compilation failed", zap.Error(err))
		return c.fail(ctx, recID, rec.MessageID, log)
	}

	ignoreExisting := rec.ControlCategory.String == ControlIgnoreExisting
	if ignoreExisting {
		log.Warn("the user requested to ignore existing duplicates")
	}

	pdfPath := strings.TrimSuffix(jsonPath, ".json") + ".pdf"

	result, err := c.recon.Process(compiled, pdfPath, ignoreExisting)
	if err != nil {
		log.Error("document processing failed", zap.Error(err))
		return c.fail(ctx, recID, rec.MessageID, log)
	}

	switch result.Outcome {
	case erp.OutcomeCreated:
		if err := c.settle(ctx, recID, c.cfg.Dirs.Done, store.StatusCompleted, result.CaseID); err != nil {
			return err
		}
		log.Info("claim booked", zap.Int64("case_id", result.CaseID))
		annotateByID(c.mail, rec.MessageID,
			mailbox.Annotate(mailbox.SeverityInfo, "Document successfully processed in SAP."), log)

	case erp.OutcomeDuplicated:
		if err := c.settle(ctx, recID, c.cfg.Dirs.Duplicate, store.StatusDuplicate, 0); err != nil {
			return err
		}
		log.Warn("the document duplicates an existing case")
		annotateByID(c.mail, rec.MessageID,
			mailbox.Annotate(mailbox.SeverityInfo, "Document successfully processed in SAP."), log)

	case erp.OutcomeNotApplicable:
		// the files stay in place for a later run
		log.Warn(result.Message)
		annotateByID(c.mail, rec.MessageID,
			mailbox.Annotate(mailbox.SeverityWarning, result.Message), log)

	default:
		return c.fail(ctx, recID, rec.MessageID, log)
	}

	return nil
}

// compile binds the record to its booking rule and compiles the claim.
func (c *Creator) compile(data *extract.Record) (*claim.Context, error) {
	rule := c.rules.Get(data.Issuer, data.TemplateID, data.Category)
	if rule == nil {
		return nil, fmt.Errorf("no booking rule exists for issuer %s, template %s, category %q",
			data.Issuer, data.TemplateID, data.Category)
	}
	return c.compiler.Compile(data, rule)
}

func (c *Creator) fail(ctx context.Context, recID int64, messageID string, log *zap.Logger) error {
	if err := c.settle(ctx, recID, c.cfg.Dirs.Failed, store.StatusProcessingError, 0); err != nil {
		return err
	}
	annotateByID(c.mail, messageID,
		mailbox.Annotate(mailbox.SeverityError, "Document processing in SAP failed!"), log)
	return nil
}

// settle moves the per-claim files and records the resulting status.
func (c *Creator) settle(ctx context.Context, recID int64, dstDir string, status store.Status, caseID int64) error {
	moved, err := MoveFiles(c.cfg.Dirs.Upload, dstDir, recID)
	if err != nil {
		return err
	}

	fields := store.Fields{
		"doc_status": string(status),
		"link":       moved["pdf"],
	}
	if caseID != 0 {
		fields["case_id"] = caseID
	}

	return c.store.UpdateDocument(ctx, recID, fields)
}
