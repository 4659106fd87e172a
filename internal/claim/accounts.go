package claim

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/castlemilk/claimflow/internal/accmap"
	"github.com/castlemilk/claimflow/internal/extract"
)

// lookupAccounts identifies the customer and head office account numbers
// from the account maps. Both are zero when no map is configured for the
// issuer or no row matches.
func (c *Compiler) lookupAccounts(issuer string, rec *extract.Record) (account, headOffice int64) {
	m := c.maps[strings.ToUpper(issuer)]
	if m == nil {
		c.log.Info("a customer account map is not available", zap.String("issuer", issuer))
		return 0, 0
	}

	supplier, _ := stringValue(rec, "supplier")
	branch, _ := stringValue(rec, "branch")

	var customerQuery, headOfficeQuery *accmap.Query

	switch {
	case strings.Contains(issuer, "BAHAG"), strings.Contains(issuer, "OBI"):
		customerQuery = &accmap.Query{Supplier: supplier, BusinessUnit: branch}
		headOfficeQuery = &accmap.Query{Supplier: supplier, BusinessUnit: accmap.HeadOffice}
	case strings.Contains(issuer, "HAGEBAU"), strings.Contains(issuer, "METRO"):
		customerQuery = &accmap.Query{BusinessUnit: branch}
		headOfficeQuery = &accmap.Query{BusinessUnit: accmap.HeadOffice}
	case strings.Contains(issuer, "MARKANT"):
		customerQuery = &accmap.Query{Supplier: supplier}
	}

	if customerQuery != nil {
		if acc, ok, err := m.Account(*customerQuery); err != nil {
			c.log.Warn("customer account lookup failed", zap.Error(err))
		} else if ok {
			account = acc
		}
	}
	if headOfficeQuery != nil {
		if acc, ok, err := m.Account(*headOfficeQuery); err != nil {
			c.log.Warn("head office account lookup failed", zap.Error(err))
		} else if ok {
			headOffice = acc
		}
	}

	c.log.Info("account map queried",
		zap.Int64("account", account),
		zap.Int64("head_office", headOffice))

	return account, headOffice
}

// resolveAccountingDocs identifies the invoice and delivery note numbers,
// looking up the missing ones from the ERP where possible. Lookup misses are
// tolerated; resolving via a purchase order without an account filter fails
// when multiple sales documents match.
func (c *Compiler) resolveAccountingDocs(rec *extract.Record, account int64) (invoices, deliveries []int64, err error) {
	invoices = intValues(rec, "invoice_number")
	deliveries = intValues(rec, "delivery_number")

	switch {
	case len(invoices) > 0 && len(deliveries) > 0:
		return invoices, deliveries, nil

	case len(invoices) == 0 && len(deliveries) == 0:
		orders := intValues(rec, "purchase_order_number")
		if len(orders) == 0 || c.docs == nil {
			c.log.Warn("the data contains no parameter that could be used " +
				"to retrieve the accounting documents")
			return nil, nil, nil
		}
		if len(orders) > 1 {
			c.log.Warn("multiple purchase order numbers found, " +
				"only the first one will be used to obtain the accounting documents")
		}

		docs, ferr := c.docs.ByPurchaseOrder(orders[0], account)
		if ferr != nil {
			c.log.Warn("accounting document lookup failed", zap.Error(ferr))
			return nil, nil, nil
		}
		if account == 0 && len(docs) > 1 {
			return nil, nil, fmt.Errorf(
				"multiple sales documents match purchase order %d without "+
					"a customer account filter", orders[0])
		}
		return splitDocs(docs)

	case len(invoices) == 0:
		if c.docs == nil {
			return nil, deliveries, nil
		}
		docs, ferr := c.docs.ByDelivery(deliveries[0])
		if ferr != nil {
			c.log.Warn("invoice number lookup failed", zap.Error(ferr))
			return nil, deliveries, nil
		}
		invoices, _, _ = splitDocs(docs)
		return invoices, deliveries, nil

	default:
		if c.docs == nil {
			return invoices, nil, nil
		}
		docs, ferr := c.docs.ByInvoice(invoices[0])
		if ferr != nil {
			c.log.Warn("delivery note number lookup failed", zap.Error(ferr))
			return invoices, nil, nil
		}
		_, deliveries, _ = splitDocs(docs)
		return invoices, deliveries, nil
	}
}

func splitDocs(docs []AccountingDoc) (invoices, deliveries []int64, err error) {
	seenInv := make(map[int64]bool)
	seenDel := make(map[int64]bool)
	for _, doc := range docs {
		if doc.Invoice != 0 && !seenInv[doc.Invoice] {
			seenInv[doc.Invoice] = true
			invoices = append(invoices, doc.Invoice)
		}
		if doc.Delivery != 0 && !seenDel[doc.Delivery] {
			seenDel[doc.Delivery] = true
			deliveries = append(deliveries, doc.Delivery)
		}
	}
	return invoices, deliveries, nil
}

// intValues reads a field as a list of integers, tolerating scalar and
// string representations.
func intValues(rec *extract.Record, name string) []int64 {
	v, ok := rec.Value(name)
	if !ok || v == nil {
		return nil
	}

	var out []int64
	appendVal := func(item any) {
		switch t := item.(type) {
		case int64:
			out = append(out, t)
		case int:
			out = append(out, int64(t))
		case float64:
			if t == float64(int64(t)) {
				out = append(out, int64(t))
			}
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
				out = append(out, n)
			}
		}
	}

	switch t := v.(type) {
	case []int64:
		out = append(out, t...)
	case []string:
		for _, item := range t {
			appendVal(item)
		}
	case []any:
		for _, item := range t {
			appendVal(item)
		}
	default:
		appendVal(v)
	}

	return out
}

func stringValue(rec *extract.Record, name string) (string, bool) {
	v, ok := rec.Value(name)
	if !ok || v == nil {
		return "", false
	}
	return renderToken(v, 0), true
}

func floatValue(rec *extract.Record, name string) (float64, bool) {
	v, ok := rec.Value(name)
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
