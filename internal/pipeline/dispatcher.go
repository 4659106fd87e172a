package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/castlemilk/claimflow/internal/config"
	"github.com/castlemilk/claimflow/internal/mailbox"
	"github.com/castlemilk/claimflow/internal/store"
)

// dispatchRule routes documents with a processed status to their final
// mailbox subfolder and advances the status once the message is filed.
type dispatchRule struct {
	subfolder string
	status    store.Status
}

// Dispatcher files processed messages into their result subfolders.
type Dispatcher struct {
	cfg   *config.Config
	store store.Store
	mail  mailbox.Account
	log   *zap.Logger
}

// NewDispatcher creates the dispatching stage.
func NewDispatcher(cfg *config.Config, st store.Store, mail mailbox.Account, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{cfg: cfg, store: st, mail: mail, log: log}
}

func (d *Dispatcher) rules() map[store.Status]dispatchRule {
	sub := d.cfg.Mailbox.Subfolders
	return map[store.Status]dispatchRule{
		store.StatusExtractionError: {sub.Failed, store.StatusMailExtractErrMoved},
		store.StatusCompleted:       {sub.Completed, store.StatusMailCompletedMoved},
		store.StatusProcessingError: {sub.Failed, store.StatusMailFailedMoved},
		store.StatusDuplicate:       {sub.Completed, store.StatusMailDuplicateMoved},
		// credit notes that ran out of retention time without a matching case
		store.StatusCaseUnmatched: {sub.Unmatched, store.StatusMailUnmatchedMoved},
	}
}

// Run moves every message whose document reached a final processing status.
// Vanished messages still advance the record status so they are not
// revisited.
func (d *Dispatcher) Run(ctx context.Context) error {
	lock := NewLock(d.cfg.Dirs.Control, StageDispatcher)
	if err := lock.Release(); err != nil {
		return err
	}

	rules := d.rules()
	statuses := make([]any, 0, len(rules))
	for status := range rules {
		statuses = append(statuses, string(status))
	}

	docs, err := d.store.GetDocumentsBy(ctx, "doc_status", statuses...)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		d.log.Warn("no documents to dispatch found")
		return nil
	}
	d.log.Info("documents found", zap.Int("count", len(docs)))

	for _, doc := range docs {
		if lock.Exists() {
			d.log.Info("cancellation requested, stopping")
			return nil
		}

		rule, ok := rules[doc.Status]
		if !ok {
			continue
		}

		log := d.log.With(
			zap.Int64("record_id", doc.ID), zap.String("status", string(doc.Status)))

		msgs, err := d.mail.MessagesByID(doc.MessageID)
		if err != nil || len(msgs) == 0 {
			// the message is either deleted or its id has changed
			log.Error("no message carries the recorded message id",
				zap.String("message_id", doc.MessageID))
		}

		for _, msg := range msgs {
			d.dispatch(msg, doc.Subfolder, rule.subfolder, log)
		}

		if err := d.store.UpdateDocument(ctx, doc.ID,
			store.Fields{"doc_status": string(rule.status)}); err != nil {
			return err
		}
	}

	return nil
}

func (d *Dispatcher) dispatch(msg *mailbox.Message, customer, subfolder string, log *zap.Logger) {
	location, err := d.mail.Move(msg, customer, subfolder)
	if err != nil {
		var identical *mailbox.IdenticalFolderError
		if errors.As(err, &identical) {
			log.Warn(err.Error())
			return
		}
		log.Error("could not move the message", zap.Error(err))
		return
	}
	log.Info("message filed", zap.String("location", location))

	if err := d.mail.AppendText(msg,
		mailbox.Annotate(mailbox.SeverityInfo, "Message moved to: "+location+".")); err != nil {
		log.Error("could not annotate the message", zap.Error(err))
	}
}
