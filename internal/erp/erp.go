// Package erp mediates claim operations performed in the ERP: service
// notifications, disputed cases and accounting document lookups.
package erp

//go:generate mockgen -source=erp.go -destination=client_mock.go -package=erp

// RefKind names the document kind a reference value points to.
type RefKind string

const (
	RefInvoice       RefKind = "invoice"
	RefDelivery      RefKind = "delivery"
	RefAccount       RefKind = "account"
	RefPurchaseOrder RefKind = "purchase_order"
)

// Reference points a claim at an accounting document or customer account.
type Reference struct {
	Kind  RefKind
	Value int64
}

// CaseRef identifies one disputed case found by a search.
type CaseRef struct {
	CaseID int64
	GUID   string
}

// CaseQuery selects disputed cases. Amount zero disables the amount filter,
// an empty States list matches all states. Title wildcards use the '%' form.
type CaseQuery struct {
	Title       string
	CompanyCode string
	Amount      float64
	Tolerance   float64
	States      []int
}

// CaseAttributes is the attribute set of a disputed case. DisputedAmount
// keeps the raw table value; it is parsed on demand since the ERP renders
// amounts in the local number format.
type CaseAttributes struct {
	CaseID         int64
	GUID           string
	Status         int
	StatusSales    string
	StatusAC       string
	RootCause      string
	Reason         string
	DisputedAmount string
	Processor      string
	Coordinator    string
}

// CaseChanges describes an attribute update. Nil fields stay untouched; a
// pointer to the empty string erases the attribute. Status moves exactly one
// step at a time.
type CaseChanges struct {
	Processor      *string
	Coordinator    *string
	Responsible    *string
	RootCause      *string
	Status         *int
	StatusSales    *string
	StatusAC       *string
	Reason         *string
	DisputedAmount *float64
}

// CreateParams describe a new service notification with its paired disputed
// case. Coordinator carries the QM processing user, not the DMS coordinator.
type CreateParams struct {
	Reference     Reference
	ReferenceNo   string
	Description   string
	Category      string
	CompanyCode   string
	Amount        float64
	Threshold     float64
	Coordinator   string
	ShippingPoint string
	Branch        string
}

// CustomCreateParams describe a customized notification for the bonus,
// promo and quality categories.
type CustomCreateParams struct {
	Account     int64
	ReferenceNo string
	Description string
	Category    string
	CompanyCode string
	Amount      float64
}

// AddCaseParams describe an additional case on an existing notification.
type AddCaseParams struct {
	Category    string
	CompanyCode string
	Threshold   float64
	Amount      float64
	ReferenceNo string
	Title       string
}

// Created reports the ids resulting from a notification or case creation.
type Created struct {
	NotificationID int64
	CaseID         int64
	CaseGUID       string
}

// Client is the ERP operation surface used by the reconciler. Implementations
// are synchronous; every write commits before the call returns.
type Client interface {
	// SystemID returns the ERP system id the client is connected to.
	SystemID() string

	// Reset drops and re-establishes the connection. The case id sequence
	// is per connection and company code, so the reconciler resets the
	// client whenever the company code changes between documents.
	Reset() error

	FindCases(q CaseQuery) ([]CaseRef, error)
	CaseAttributes(caseGUID string) (CaseAttributes, error)
	ModifyCase(caseGUID string, changes CaseChanges) error
	Attach(caseGUID, path, attachmentName string) error

	// FindNotifications looks up service notifications referring to an
	// invoice or delivery note.
	FindNotifications(ref Reference) ([]int64, error)

	// ShippingPoint resolves the shipping warehouse of a delivery note.
	ShippingPoint(delivery int64) (string, error)

	CreateNotification(p CreateParams) (Created, error)
	CreateCustomNotification(p CustomCreateParams) (Created, error)
	AddCase(notificationID int64, p AddCaseParams) (Created, error)

	// FindAccountingDocuments resolves invoice and delivery numbers from
	// a reference document. A zero account disables the account filter.
	FindAccountingDocuments(ref Reference, account int64) ([]AccountingDoc, error)

	Close() error
}

// AccountingDoc pairs an invoice with its delivery note.
type AccountingDoc struct {
	Invoice  int64
	Delivery int64
}
