package erp

import "github.com/castlemilk/claimflow/internal/claim"

// docFinder adapts a Client to the compiler's accounting document lookup.
type docFinder struct {
	client Client
}

// NewDocumentFinder exposes the client's accounting document search to the
// claim compiler.
func NewDocumentFinder(client Client) claim.DocumentFinder {
	return docFinder{client: client}
}

func (f docFinder) ByPurchaseOrder(po, account int64) ([]claim.AccountingDoc, error) {
	return f.find(Reference{Kind: RefPurchaseOrder, Value: po}, account)
}

func (f docFinder) ByInvoice(invoice int64) ([]claim.AccountingDoc, error) {
	return f.find(Reference{Kind: RefInvoice, Value: invoice}, 0)
}

func (f docFinder) ByDelivery(delivery int64) ([]claim.AccountingDoc, error) {
	return f.find(Reference{Kind: RefDelivery, Value: delivery}, 0)
}

func (f docFinder) find(ref Reference, account int64) ([]claim.AccountingDoc, error) {
	docs, err := f.client.FindAccountingDocuments(ref, account)
	if err != nil {
		return nil, err
	}

	out := make([]claim.AccountingDoc, len(docs))
	for i, doc := range docs {
		out[i] = claim.AccountingDoc{Invoice: doc.Invoice, Delivery: doc.Delivery}
	}
	return out, nil
}
