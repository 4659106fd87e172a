package claim

import (
	"fmt"
	"strings"
)

// referenceOrder lists the reference fields by priority. The earliest field
// with a valid value wins within the rule's reference_by selection.
var referenceOrder = []string{
	"invoice_number",
	"delivery_number",
	"purchase_order_number",
	"account_number",
	"head_office_number",
}

// MisconfiguredRuleError reports that none of the reference fields listed in
// the rule's reference_by option has a valid value although other reference
// fields do.
type MisconfiguredRuleError struct {
	Used      []string
	Available []string
}

func (e *MisconfiguredRuleError) Error() string {
	return fmt.Sprintf(
		"none of the references listed in 'reference_by' (%s) has a valid value, "+
			"but other references do (%s), check the processing rules",
		strings.Join(e.Used, ", "), strings.Join(e.Available, ", "))
}

// NoReferenceError reports that the data carries no referenceable value at
// all.
type NoReferenceError struct{}

func (e *NoReferenceError) Error() string {
	return "no reference with a valid value is available in the document data"
}

// selectReference picks the reference field used to create the notification.
func selectReference(used []string, transaction string, create *Create) (string, error) {
	if len(used) == 0 {
		return "", fmt.Errorf("the rule declares no 'reference_by' fields")
	}

	valid := make(map[string]bool, len(referenceOrder))
	for _, name := range referenceOrder {
		valid[name] = true
	}
	usedSet := make(map[string]bool, len(used))
	for _, name := range used {
		if !valid[name] {
			return "", fmt.Errorf("unrecognized 'reference_by' value %q", name)
		}
		if transaction == TransactionZQM && name != "account_number" && name != "head_office_number" {
			return "", fmt.Errorf(
				"invalid 'reference_by' value %q, customized notifications can be "+
					"referenced by an account or head office number only", name)
		}
		usedSet[name] = true
	}

	bound := func(name string) bool {
		switch name {
		case "invoice_number":
			return len(create.InvoiceNumbers) > 0
		case "delivery_number":
			return len(create.DeliveryNumbers) > 0
		case "account_number":
			return create.AccountNumber != 0
		case "head_office_number":
			return create.HeadOfficeNumber != 0
		}
		return false
	}

	var usedValid, otherValid []string
	for _, name := range referenceOrder {
		if !bound(name) {
			continue
		}
		if usedSet[name] {
			usedValid = append(usedValid, name)
		} else {
			otherValid = append(otherValid, name)
		}
	}

	if len(usedValid) > 0 {
		return usedValid[0], nil
	}
	if len(otherValid) > 0 {
		return "", &MisconfiguredRuleError{Used: used, Available: otherValid}
	}
	return "", &NoReferenceError{}
}
