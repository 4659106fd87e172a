// Package claim compiles extracted document data and processing rules into
// an immutable claim context consumed by the reconciler.
package claim

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/castlemilk/claimflow/internal/accmap"
	"github.com/castlemilk/claimflow/internal/extract"
	"github.com/castlemilk/claimflow/internal/rules"
)

// Processing transactions.
const (
	TransactionQM  = "QM"
	TransactionZQM = "ZQM"
	TransactionDMS = "DMS"
)

var qmCategories = map[string]bool{
	"delivery":        true,
	"finance":         true,
	"invoice":         true,
	"penalty_delay":   true,
	"penalty_general": true,
	"penalty_quote":   true,
	"price":           true,
	"rebuild":         true,
	"return":          true,
}

var zqmCategories = map[string]bool{
	"bonus":   true,
	"promo":   true,
	"quality": true,
}

// Header carries the general claim parameters.
type Header struct {
	Issuer      string
	Kind        string
	Category    string
	TemplateID  string
	Transaction string
	CompanyCode string
	Threshold   float64
	Tolerance   float64
}

// Search drives the DMS lookup for existing cases. Account is zero when the
// rule declares no account filter, CustDisputed is zero when the rule does
// not bind a disputed amount.
type Search struct {
	Title        string
	Account      int64
	CustDisputed float64
}

// Create holds the parameters for creating a new service notification with
// its paired DMS case. ReferenceBy is empty when no reference value could be
// resolved; the claim can then only proceed against an existing notification.
type Create struct {
	Amount           float64
	ReferenceBy      string
	ReferenceNo      string
	Description      string
	Processor        string
	Coordinator      string
	Responsible      string
	User             string
	AttachmentName   string
	StatusAC         *string
	InvoiceNumbers   []int64
	DeliveryNumbers  []int64
	AccountNumber    int64
	HeadOfficeNumber int64
}

// Extend holds the parameters for adding a case to an existing notification.
type Extend struct {
	Amount         float64
	ReferenceNo    string
	Description    string
	Processor      string
	Coordinator    string
	Responsible    string
	User           string
	AttachmentName string
	StatusAC       *string
}

// Update holds the parameters for recording a credit note against a case.
// StatusSales keeps the rule's formatting template; it is rendered against
// the current DMS text once the case is identified.
type Update struct {
	Amount         float64
	StatusSales    string
	AttachmentName string
	Processor      string
	Coordinator    string
	Responsible    string
}

// Context is the compiled claim. Create and Extend are set for debit notes,
// Update for credit notes. The DMS path carries no notification sections.
type Context struct {
	Header Header
	Search Search
	Create *Create
	Extend *Extend
	Update *Update
}

// AccountingDoc pairs an invoice with its delivery note.
type AccountingDoc struct {
	Invoice  int64
	Delivery int64
}

// DocumentFinder resolves missing accounting documents from the ERP. An
// empty result with a nil error means no documents were found.
type DocumentFinder interface {
	ByPurchaseOrder(po, account int64) ([]AccountingDoc, error)
	ByInvoice(invoice int64) ([]AccountingDoc, error)
	ByDelivery(delivery int64) ([]AccountingDoc, error)
}

// Compiler assembles claim contexts.
type Compiler struct {
	maps map[string]*accmap.Map
	docs DocumentFinder
	log  *zap.Logger
}

// NewCompiler creates a compiler. docs may be nil, in which case missing
// accounting documents are not resolved from the ERP.
func NewCompiler(maps map[string]*accmap.Map, docs DocumentFinder, log *zap.Logger) *Compiler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Compiler{maps: maps, docs: docs, log: log}
}

// Compile applies the processing rule to the extracted data.
func (c *Compiler) Compile(rec *extract.Record, rule *rules.Rule) (*Context, error) {
	transaction, err := transactionFor(rec)
	if err != nil {
		return nil, err
	}

	issuer := strings.ReplaceAll(rec.Issuer, " ", "_")
	name, country, ok := strings.Cut(issuer, "_")
	if !ok || name == "" || len(country) != 2 {
		return nil, fmt.Errorf("invalid issuer name %q, want NAME_CC", rec.Issuer)
	}

	ctx := &Context{
		Header: Header{
			Issuer:      issuer,
			Kind:        rec.Kind,
			Category:    rec.Category,
			TemplateID:  rec.TemplateID,
			Transaction: transaction,
			CompanyCode: rule.CompanyCode,
			Threshold:   rule.Threshold,
			Tolerance:   rule.Tolerance,
		},
	}

	account, headOffice := c.lookupAccounts(issuer, rec)

	ctx.Search, err = c.compileSearch(rule.CaseSearch, rec, account, headOffice)
	if err != nil {
		return nil, err
	}

	switch rec.Kind {
	case "debit":
		ctx.Create, err = c.compileCreate(rec, rule, transaction, account, headOffice)
		if err != nil {
			return nil, err
		}
		if rule.CaseAdd != nil {
			ctx.Extend, err = c.compileExtend(rec, rule)
			if err != nil {
				return nil, err
			}
		}
	case "credit":
		ctx.Update, err = compileUpdate(rec, rule.CaseUpdate)
		if err != nil {
			return nil, err
		}
	}

	if err := ctx.validate(); err != nil {
		return nil, err
	}

	c.log.Info("claim context compiled",
		zap.String("transaction", transaction),
		zap.String("issuer", issuer),
		zap.String("template_id", rec.TemplateID))

	return ctx, nil
}

func transactionFor(rec *extract.Record) (string, error) {
	switch rec.Kind {
	case "debit":
		switch {
		case qmCategories[rec.Category]:
			return TransactionQM, nil
		case zqmCategories[rec.Category]:
			return TransactionZQM, nil
		}
		return "", fmt.Errorf("unrecognized document category %q", rec.Category)
	case "credit":
		return TransactionDMS, nil
	}
	return "", fmt.Errorf("unrecognized document kind %q", rec.Kind)
}

func (c *Compiler) compileSearch(cs *rules.CaseSearch, rec *extract.Record, account, headOffice int64) (Search, error) {
	title, err := searchTitle(cs.Title, rec)
	if err != nil {
		return Search{}, err
	}

	search := Search{Title: title}

	switch cs.Account {
	case "head_office":
		search.Account = headOffice
	case "customer_account":
		search.Account = account
	}

	if cs.CustDisputed != "" {
		amount, ok := floatValue(rec, cs.CustDisputed)
		if !ok {
			return Search{}, fmt.Errorf("field %q bound to the disputed amount is missing from the data", cs.CustDisputed)
		}
		if amount <= 0 {
			return Search{}, fmt.Errorf("invalid disputed amount: %v", amount)
		}
		search.CustDisputed = amount
	}

	return search, nil
}

func (c *Compiler) compileCreate(rec *extract.Record, rule *rules.Rule, transaction string, account, headOffice int64) (*Create, error) {
	rs := rule.ClaimCreate

	description, err := GenerateDescription(rs.Description, rec.Value)
	if err != nil {
		return nil, err
	}

	create := &Create{
		Amount:           rec.Amount,
		ReferenceNo:      rs.ReferenceNo,
		Description:      description,
		Processor:        rs.Processor,
		Coordinator:      rs.Coordinator,
		Responsible:      rs.Responsible,
		User:             rs.User,
		AttachmentName:   rs.AttachmentName,
		AccountNumber:    account,
		HeadOfficeNumber: headOffice,
	}

	create.InvoiceNumbers, create.DeliveryNumbers, err = c.resolveAccountingDocs(rec, account)
	if err != nil {
		return nil, err
	}

	if rs.StatusAC != "" {
		create.StatusAC, err = PrepareStatusAC(rs.StatusAC, rule.CompanyCode, taxRates(rec), c.log)
		if err != nil {
			return nil, err
		}
	}

	create.ReferenceBy, err = selectReference(rs.ReferenceBy, transaction, create)
	if err != nil {
		var noRef *NoReferenceError
		if !errors.As(err, &noRef) {
			return nil, err
		}
		c.log.Warn("no valid reference value found for notification creation, " +
			"the claim can only proceed against an existing notification")
	}

	return create, nil
}

func (c *Compiler) compileExtend(rec *extract.Record, rule *rules.Rule) (*Extend, error) {
	rs := rule.CaseAdd

	description, err := GenerateDescription(rs.Description, rec.Value)
	if err != nil {
		return nil, err
	}

	extend := &Extend{
		Amount:         rec.Amount,
		ReferenceNo:    rs.ReferenceNo,
		Description:    description,
		Processor:      rs.Processor,
		Coordinator:    rs.Coordinator,
		Responsible:    rs.Responsible,
		User:           rs.User,
		AttachmentName: rs.AttachmentName,
	}

	if rs.StatusAC != "" {
		extend.StatusAC, err = PrepareStatusAC(rs.StatusAC, rule.CompanyCode, taxRates(rec), c.log)
		if err != nil {
			return nil, err
		}
	}

	return extend, nil
}

func compileUpdate(rec *extract.Record, rs *rules.CaseUpdate) (*Update, error) {
	update := &Update{
		Amount:         rec.Amount,
		StatusSales:    rs.StatusSales,
		AttachmentName: rs.AttachmentName,
		Processor:      rs.Processor,
		Coordinator:    rs.Coordinator,
		Responsible:    rs.Responsible,
	}

	if rs.Amount != "" {
		amount, ok := floatValue(rec, rs.Amount)
		if !ok {
			return nil, fmt.Errorf("field %q bound to the credited amount is missing from the data", rs.Amount)
		}
		update.Amount = amount
	}

	return update, nil
}

func (ctx *Context) validate() error {
	h := ctx.Header

	if !rules.CompanyCodes[h.CompanyCode] {
		return fmt.Errorf("unrecognized company code %q", h.CompanyCode)
	}
	switch h.Transaction {
	case TransactionQM, TransactionZQM, TransactionDMS:
	default:
		return fmt.Errorf("invalid transaction %q", h.Transaction)
	}
	if h.Threshold < 0 {
		return fmt.Errorf("invalid threshold: %v", h.Threshold)
	}
	if h.Tolerance < 0 {
		return fmt.Errorf("invalid tolerance: %v", h.Tolerance)
	}
	if ctx.Search.Title == "" {
		return fmt.Errorf("the case search title must not be empty")
	}

	if ctx.Create != nil {
		if ctx.Create.Description == "" {
			return fmt.Errorf("the claim description must not be empty")
		}
		if ctx.Create.Processor == "" || ctx.Create.Coordinator == "" {
			return fmt.Errorf("processor and coordinator are required to create a notification")
		}
		if ctx.Create.AttachmentName == "" {
			return fmt.Errorf("an attachment name is required to create a notification")
		}
	}
	if ctx.Extend != nil && ctx.Extend.Description == "" {
		return fmt.Errorf("the claim description must not be empty")
	}
	if h.Transaction == TransactionDMS && ctx.Update == nil {
		return fmt.Errorf("credit notes require a case_update ruleset")
	}

	return nil
}

// taxRates returns the distinct tax rates extracted from the document.
func taxRates(rec *extract.Record) []float64 {
	v, ok := rec.Value("tax")
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case float64:
		return []float64{t}
	case int64:
		return []float64{float64(t)}
	case []float64:
		return t
	}
	return nil
}
