package erp

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/castlemilk/claimflow/internal/claim"
	"github.com/castlemilk/claimflow/internal/extract"
)

// Outcome classifies the result of reconciling one document.
type Outcome int

const (
	// OutcomeFailed marks an ERP or protocol failure.
	OutcomeFailed Outcome = iota
	// OutcomeCreated marks a created claim or recorded credit note.
	OutcomeCreated
	// OutcomeDuplicated marks a document whose case already exists.
	OutcomeDuplicated
	// OutcomeNotApplicable marks a document the ERP cannot act on yet, for
	// example a credit note whose case has not been registered.
	OutcomeNotApplicable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeDuplicated:
		return "duplicated"
	case OutcomeNotApplicable:
		return "not_applicable"
	}
	return "failed"
}

// Result reports the reconciliation of one document. CaseID is set when a
// case was created or updated.
type Result struct {
	Outcome Outcome
	CaseID  int64
	Message string
}

// Reconciler performs the right ERP operations for compiled claims. It
// processes documents sequentially and resets the client whenever the
// company code changes between documents.
type Reconciler struct {
	client          Client
	duplicates      string
	log             *zap.Logger
	prevCompanyCode string
}

// NewReconciler creates a reconciler. duplicates selects the policy applied
// when several notifications match a document: first, last or error.
func NewReconciler(client Client, duplicates string, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{client: client, duplicates: duplicates, log: log}
}

// Process reconciles one compiled claim against the ERP. pdfPath points at
// the document to attach; ignoreExisting applies the user's request to
// create a claim even when duplicates exist (debit notes only).
func (r *Reconciler) Process(c *claim.Context, pdfPath string, ignoreExisting bool) (Result, error) {
	if r.prevCompanyCode != "" && r.prevCompanyCode != c.Header.CompanyCode {
		r.log.Info("company code changed, resetting the ERP connection",
			zap.String("previous", r.prevCompanyCode),
			zap.String("current", c.Header.CompanyCode))
		if err := r.client.Reset(); err != nil {
			return Result{}, err
		}
	}
	r.prevCompanyCode = c.Header.CompanyCode

	if ignoreExisting && c.Header.Kind != "debit" {
		r.log.Warn("the control category applied by the user is not " +
			"applicable for credit notes and will be ignored")
		ignoreExisting = false
	}

	switch c.Header.Transaction {
	case claim.TransactionZQM:
		return r.processCustom(c, pdfPath, ignoreExisting)
	case claim.TransactionQM:
		return r.processStandard(c, pdfPath, ignoreExisting)
	case claim.TransactionDMS:
		return r.processCredit(c, pdfPath)
	}

	return Result{}, fmt.Errorf("unrecognized transaction %q", c.Header.Transaction)
}

func (r *Reconciler) processCustom(c *claim.Context, pdfPath string, ignoreExisting bool) (Result, error) {
	exists, err := r.casesExist(c)
	if err != nil {
		return Result{}, err
	}
	if exists && !ignoreExisting {
		return r.duplicate(c)
	}

	account := c.Create.AccountNumber
	if c.Create.ReferenceBy == "head_office_number" {
		account = c.Create.HeadOfficeNumber
	}

	r.log.Info("creating a customized service notification",
		zap.Int64("account", account))

	created, err := r.client.CreateCustomNotification(CustomCreateParams{
		Account:     account,
		ReferenceNo: c.Create.ReferenceNo,
		Description: c.Create.Description,
		Category:    c.Header.Category,
		CompanyCode: c.Header.CompanyCode,
		Amount:      c.Create.Amount,
	})
	if err != nil {
		return Result{}, err
	}

	if err := r.finishNewCase(c, created, pdfPath); err != nil {
		return Result{}, err
	}

	return Result{Outcome: OutcomeCreated, CaseID: created.CaseID}, nil
}

func (r *Reconciler) processStandard(c *claim.Context, pdfPath string, ignoreExisting bool) (Result, error) {
	if refersToAccount(c) {
		exists, err := r.casesExist(c)
		if err != nil {
			return Result{}, err
		}
		if exists && !ignoreExisting {
			return r.duplicate(c)
		}
		return r.createStandard(c, pdfPath)
	}

	notifications, err := r.findNotifications(c)
	if err != nil {
		return Result{}, err
	}

	exists, err := r.casesExist(c)
	if err != nil {
		return Result{}, err
	}

	switch {
	case len(notifications) == 0 && !exists:
		return r.createStandard(c, pdfPath)

	case len(notifications) == 0:
		if ignoreExisting {
			return r.createStandard(c, pdfPath)
		}
		// the existing case may have been registered against another
		// document by mistake, manual review decides
		r.log.Warn("no notification was found using the specified references, " +
			"but a DMS case exists, the document is considered a duplicate")
		return r.duplicate(c)

	case !exists:
		return r.extendNotification(c, notifications, pdfPath)

	default:
		return r.duplicate(c)
	}
}

func (r *Reconciler) createStandard(c *claim.Context, pdfPath string) (Result, error) {
	if c.Create.ReferenceBy == "" {
		return Result{
			Outcome: OutcomeNotApplicable,
			Message: "unable to create a service notification without a reference",
		}, nil
	}

	var reference Reference
	switch c.Create.ReferenceBy {
	case "account_number":
		reference = Reference{Kind: RefAccount, Value: c.Create.AccountNumber}
	case "head_office_number":
		reference = Reference{Kind: RefAccount, Value: c.Create.HeadOfficeNumber}
	case "delivery_number":
		if len(c.Create.DeliveryNumbers) > 1 {
			r.log.Warn("more than one delivery note is associated with the document, " +
				"the first value will be used to create the claim")
		}
		reference = Reference{Kind: RefDelivery, Value: c.Create.DeliveryNumbers[0]}
	case "invoice_number":
		if len(c.Create.InvoiceNumbers) > 1 {
			r.log.Warn("more than one invoice is associated with the document, " +
				"the first value will be used to create the claim")
		}
		reference = Reference{Kind: RefInvoice, Value: c.Create.InvoiceNumbers[0]}
	default:
		return Result{}, fmt.Errorf("unrecognized reference field %q", c.Create.ReferenceBy)
	}

	shippingPoint := ShippingPointUndefined
	if reference.Kind != RefAccount && len(c.Create.DeliveryNumbers) > 0 {
		point, err := r.client.ShippingPoint(c.Create.DeliveryNumbers[0])
		if err != nil {
			return Result{}, err
		}
		shippingPoint = point
		r.log.Info("shipping point resolved", zap.String("shipping_point", shippingPoint))
	}

	r.log.Info("creating a service notification",
		zap.String("reference_by", c.Create.ReferenceBy))

	created, err := r.client.CreateNotification(CreateParams{
		Reference:     reference,
		ReferenceNo:   c.Create.ReferenceNo,
		Description:   c.Create.Description,
		Category:      c.Header.Category,
		CompanyCode:   c.Header.CompanyCode,
		Amount:        c.Create.Amount,
		Threshold:     c.Header.Threshold,
		Coordinator:   c.Create.User,
		ShippingPoint: shippingPoint,
	})
	if err != nil {
		return Result{}, err
	}

	if err := r.finishNewCase(c, created, pdfPath); err != nil {
		return Result{}, err
	}

	return Result{Outcome: OutcomeCreated, CaseID: created.CaseID}, nil
}

// finishNewCase updates the attributes of a freshly created case and
// attaches the document. Attaching comes last so that a failed upload never
// leaves the attributes half written.
func (r *Reconciler) finishNewCase(c *claim.Context, created Created, pdfPath string) error {
	changes := CaseChanges{
		Coordinator: optional(c.Create.Coordinator),
		Processor:   optional(c.Create.Processor),
		Responsible: optional(c.Create.Responsible),
	}

	underThreshold := c.Create.Amount < c.Header.Threshold
	if underThreshold {
		rootCause := RootCauseUnderThreshold
		changes.RootCause = &rootCause
	}

	if text, changed := claim.ApplyStatusAC("", c.Create.StatusAC); changed || c.Create.StatusAC != nil {
		changes.StatusAC = &text
	}

	if err := r.modify(created.CaseGUID, changes); err != nil {
		return err
	}

	if underThreshold {
		if err := r.stepStatus(created.CaseGUID, StatusOpen, StatusClosed); err != nil {
			return err
		}
	}

	return r.attach(c, created, pdfPath, c.Create.AttachmentName)
}

func (r *Reconciler) extendNotification(c *claim.Context, notifications []int64, pdfPath string) (Result, error) {
	if c.Extend == nil {
		return Result{}, fmt.Errorf(
			"a notification exists for the document but the rule declares no case_add ruleset")
	}

	notifID, err := r.pickNotification(notifications)
	if err != nil {
		return Result{}, err
	}

	params := AddCaseParams{
		Category:    c.Header.Category,
		CompanyCode: c.Header.CompanyCode,
		Threshold:   c.Header.Threshold,
		Amount:      c.Extend.Amount,
		ReferenceNo: c.Extend.ReferenceNo,
		Title:       c.Extend.Description,
	}

	var created Created
	remaining := append([]int64(nil), notifications...)
	for {
		r.log.Info("adding a new case to the service notification",
			zap.Int64("notification", notifID))

		created, err = r.client.AddCase(notifID, params)
		if err == nil {
			break
		}

		// a notification marked for deletion cannot carry further cases,
		// drop it and retry with the next oldest candidate
		var deleted *NotificationDeletedError
		if !errors.As(err, &deleted) {
			return Result{}, err
		}
		r.log.Error("notification is marked for deletion", zap.Error(err))

		remaining = remove(remaining, notifID)
		if len(remaining) == 0 {
			return Result{}, fmt.Errorf(
				"every notification matching the document is marked for deletion")
		}
		notifID = minOf(remaining)
		r.log.Info("attempting to use the oldest available notification",
			zap.Int64("notification", notifID))
	}

	attrs, err := r.client.CaseAttributes(created.CaseGUID)
	if err != nil {
		return Result{}, err
	}

	changes := CaseChanges{
		Coordinator: optional(c.Extend.Coordinator),
		Processor:   optional(c.Extend.Processor),
		Responsible: optional(c.Extend.Responsible),
	}

	underThreshold := c.Extend.Amount < c.Header.Threshold
	if underThreshold {
		rootCause := RootCauseUnderThreshold
		changes.RootCause = &rootCause
	}

	if text, changed := claim.ApplyStatusAC(attrs.StatusAC, c.Extend.StatusAC); changed {
		changes.StatusAC = &text
	}

	if err := r.modify(created.CaseGUID, changes); err != nil {
		return Result{}, err
	}

	if underThreshold {
		if err := r.stepStatus(created.CaseGUID, StatusOpen, StatusClosed); err != nil {
			return Result{}, err
		}
	}

	if err := r.attach(c, created, pdfPath, c.Extend.AttachmentName); err != nil {
		return Result{}, err
	}

	return Result{Outcome: OutcomeCreated, CaseID: created.CaseID}, nil
}

func (r *Reconciler) processCredit(c *claim.Context, pdfPath string) (Result, error) {
	refs, err := r.client.FindCases(CaseQuery{
		Title:       c.Search.Title,
		CompanyCode: c.Header.CompanyCode,
		States:      []int{StatusOpen, StatusSolved, StatusClosed},
	})
	if err != nil {
		return Result{}, err
	}

	if len(refs) == 0 {
		return Result{
			Outcome: OutcomeNotApplicable,
			Message: "no corresponding case exists for the credit note",
		}, nil
	}
	if len(refs) > 1 {
		return Result{
			Outcome: OutcomeNotApplicable,
			Message: "multiple disputes found, recording a credit note requires a single case",
		}, nil
	}

	attrs, err := r.client.CaseAttributes(refs[0].GUID)
	if err != nil {
		return Result{}, err
	}

	caseAmount, perr := extract.ParseNumber(attrs.DisputedAmount)
	if perr != nil {
		r.log.Warn("could not parse the disputed amount of the case",
			zap.String("value", attrs.DisputedAmount))
	}

	if caseAmount > c.Update.Amount {
		r.log.Warn("the case amount is greater than the document amount, "+
			"the case is not considered a full match",
			zap.Float64("case_amount", caseAmount),
			zap.Float64("document_amount", c.Update.Amount))
	}

	if r.creditRecorded(attrs, c.Update.Amount, c.Header.Tolerance) {
		r.log.Info("found the credit note already recorded",
			zap.Int64("case_id", attrs.CaseID))
		return r.duplicate(c)
	}

	return r.recordCredit(c, attrs, caseAmount, pdfPath)
}

// creditRecorded reports whether the case already records this credit
// amount with a matching settlement root cause.
func (r *Reconciler) creditRecorded(attrs CaseAttributes, amount, tolerance float64) bool {
	settled := attrs.RootCause == RootCausePaymentAgreed ||
		attrs.RootCause == RootCauseCreditIssued ||
		attrs.RootCause == RootCauseUnderThreshold

	if !settled {
		return false
	}

	for _, found := range extract.FindNumbers(attrs.StatusSales) {
		if math.Abs(found-amount) <= tolerance {
			return true
		}
	}

	return false
}

func (r *Reconciler) recordCredit(c *claim.Context, attrs CaseAttributes, caseAmount float64, pdfPath string) (Result, error) {
	r.log.Info("recording the credit note", zap.Int64("case_id", attrs.CaseID))

	statusSales, err := claim.FormatStatusSales(attrs.StatusSales, c.Update.StatusSales, c.Update.Amount)
	if err != nil {
		return Result{}, err
	}

	reason := ReasonAutomated
	changes := CaseChanges{
		Coordinator: optional(c.Update.Coordinator),
		Processor:   optional(c.Update.Processor),
		Responsible: optional(c.Update.Responsible),
		StatusSales: &statusSales,
		Reason:      &reason,
	}

	if caseAmount > c.Header.Threshold &&
		attrs.RootCause != RootCausePaymentAgreed &&
		attrs.RootCause != RootCauseCreditIssued {
		rootCause := RootCausePaymentAgreed
		changes.RootCause = &rootCause
	}

	if err := r.modify(attrs.GUID, changes); err != nil {
		return Result{}, err
	}

	if caseAmount-c.Update.Amount < c.Header.Threshold && attrs.Status == StatusOpen {
		if err := r.stepStatus(attrs.GUID, StatusOpen, StatusSolved); err != nil {
			return Result{}, err
		}
	}

	created := Created{CaseID: attrs.CaseID, CaseGUID: attrs.GUID}
	if err := r.attach(c, created, pdfPath, c.Update.AttachmentName); err != nil {
		return Result{}, err
	}

	return Result{Outcome: OutcomeCreated, CaseID: attrs.CaseID}, nil
}

func (r *Reconciler) casesExist(c *claim.Context) (bool, error) {
	r.log.Info("searching for existing DMS cases", zap.String("title", c.Search.Title))

	refs, err := r.client.FindCases(CaseQuery{
		Title:       c.Search.Title,
		CompanyCode: c.Header.CompanyCode,
		Amount:      c.Search.CustDisputed,
		Tolerance:   c.Header.Tolerance,
		States:      []int{StatusOpen, StatusSolved, StatusClosed},
	})
	if err != nil {
		return false, err
	}

	if len(refs) > 0 {
		ids := make([]int64, len(refs))
		for i, ref := range refs {
			ids[i] = ref.CaseID
		}
		r.log.Warn("document already exists in DMS", zap.Int64s("case_ids", ids))
	}

	return len(refs) > 0, nil
}

func (r *Reconciler) findNotifications(c *claim.Context) ([]int64, error) {
	if len(c.Create.InvoiceNumbers)+len(c.Create.DeliveryNumbers) == 0 {
		r.log.Info("no invoice or delivery note number is available to verify " +
			"that a corresponding service notification exists")
		return nil, nil
	}

	seen := make(map[int64]bool)
	var notifications []int64

	lookup := func(kind RefKind, numbers []int64) error {
		for _, number := range numbers {
			found, err := r.client.FindNotifications(Reference{Kind: kind, Value: number})
			if err != nil {
				return err
			}
			for _, id := range found {
				if !seen[id] {
					seen[id] = true
					notifications = append(notifications, id)
				}
			}
		}
		return nil
	}

	if err := lookup(RefInvoice, c.Create.InvoiceNumbers); err != nil {
		return nil, err
	}
	if err := lookup(RefDelivery, c.Create.DeliveryNumbers); err != nil {
		return nil, err
	}

	r.log.Info("notification lookup finished", zap.Int64s("notifications", notifications))

	return notifications, nil
}

// pickNotification applies the duplicate policy when several notifications
// match the document.
func (r *Reconciler) pickNotification(notifications []int64) (int64, error) {
	if len(notifications) == 1 {
		return notifications[0], nil
	}

	switch r.duplicates {
	case "first":
		r.log.Warn("more than one notification found, " +
			"the oldest one will be used to create the claim")
		return minOf(notifications), nil
	case "last":
		r.log.Warn("more than one notification found, " +
			"the latest one will be used to create the claim")
		return maxOf(notifications), nil
	}

	return 0, fmt.Errorf(
		"more than one notification found, creating a case requires "+
			"the existence of a single notification, got %d", len(notifications))
}

func (r *Reconciler) duplicate(c *claim.Context) (Result, error) {
	if strings.Contains(c.Header.Issuer, "BAHAG") {
		return Result{}, fmt.Errorf(
			"duplicated documents issued by BAHAG are to be processed manually by accountants")
	}
	return Result{Outcome: OutcomeDuplicated}, nil
}

func (r *Reconciler) modify(caseGUID string, changes CaseChanges) error {
	return withLockRetry(r.log, func() error {
		return r.client.ModifyCase(caseGUID, changes)
	})
}

// stepStatus advances the case status one step at a time; each step may
// race with a user editing the case and is retried on its own.
func (r *Reconciler) stepStatus(caseGUID string, current, target int) error {
	for status := current + 1; status <= target; status++ {
		status := status
		if err := r.modify(caseGUID, CaseChanges{Status: &status}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) attach(c *claim.Context, created Created, pdfPath, nameRule string) error {
	name, err := claim.AttachmentName(nameRule, created.CaseID)
	if err != nil {
		return err
	}

	r.log.Info("attaching the document to the DMS case", zap.String("name", name))

	return withLockRetry(r.log, func() error {
		return r.client.Attach(created.CaseGUID, pdfPath, name)
	})
}

func refersToAccount(c *claim.Context) bool {
	return c.Create.ReferenceBy == "account_number" ||
		c.Create.ReferenceBy == "head_office_number"
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func remove(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func minOf(ids []int64) int64 {
	m := ids[0]
	for _, v := range ids[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(ids []int64) int64 {
	m := ids[0]
	for _, v := range ids[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
