package erp

import "fmt"

// Shipping warehouses.
const (
	ShippingPointUndefined = ""
	ShippingPointMolsheim  = "D401"
	ShippingPointWroclaw   = "E901"
)

// Claim processing priorities. Only the subset the robot assigns is named;
// the full ERP catalog holds many more per-warehouse values.
const (
	PriorityUnused            = ""
	PriorityMolBelowThreshold = "3"
	PriorityRetailDE          = "8"
	PriorityRetailAT          = "9"
	PriorityEueBelowThreshold = "U"
)

// Case states.
const (
	StatusOpen       = 1
	StatusSolved     = 2
	StatusClosed     = 3
	StatusDevaluated = 4
)

// Root cause codes written to disputed cases.
const (
	RootCauseUnjustified    = "L00"
	RootCausePaymentAgreed  = "L01"
	RootCauseCreditIssued   = "L06"
	RootCauseChargeOff      = "L08"
	RootCauseUnderThreshold = "L14"
)

// ReasonAutomated marks attributes written by the robot.
const ReasonAutomated = "XXX"

type claimType struct {
	code   string
	coding map[bool][2]string // keyed by over-threshold
}

var claimTypes = map[string]claimType{
	"price": {
		code: "001",
		coding: map[bool][2]string{
			false: {"YZCT0020", "YZ60"},
			true:  {"", ""},
		},
	},
	"invoice": {
		code: "003",
		coding: map[bool][2]string{
			false: {"YZCT0020", "YZ50"},
			true:  {"", ""},
		},
	},
	"delivery": {
		code: "004",
		coding: map[bool][2]string{
			false: {"YZCT0020", "YZ40"},
			true:  {"", ""},
		},
	},
	"finance": {
		code: "008",
		coding: map[bool][2]string{
			false: {"", ""},
			true:  {"", ""},
		},
	},
	"penalty_general": {
		code: "010",
		coding: map[bool][2]string{
			false: {"YZCT0020", "YZ20"},
			true:  {"YZCT0030", "YZ10"},
		},
	},
	"penalty_quote": {
		code: "011",
		coding: map[bool][2]string{
			false: {"YZCT0020", "YZ20"},
			true:  {"YZCT0030", "YZ20"},
		},
	},
	"penalty_delay": {
		code: "012",
		coding: map[bool][2]string{
			false: {"YZCT0020", "YZ20"},
			true:  {"YZCT0030", "YZ30"},
		},
	},
	"return": {
		code: "014",
		coding: map[bool][2]string{
			false: {"YZCT0020", "YZ80"},
			true:  {"", ""},
		},
	},
	"rebuild": {
		code: "014",
		coding: map[bool][2]string{
			false: {"", ""},
			true:  {"YZCT0040", "YZ20"},
		},
	},
}

// priorities is keyed by company code, shipping point and the over-threshold
// flag. Unknown shipping points fall back to Molsheim.
var priorities = map[string]map[string]map[bool]string{
	"1001": {
		ShippingPointMolsheim: {false: PriorityMolBelowThreshold, true: PriorityRetailDE},
		ShippingPointWroclaw:  {false: PriorityEueBelowThreshold, true: PriorityRetailDE},
	},
	"1072": {
		ShippingPointMolsheim: {false: PriorityMolBelowThreshold, true: PriorityRetailAT},
		ShippingPointWroclaw:  {false: PriorityEueBelowThreshold, true: PriorityRetailAT},
	},
	"0074": {
		ShippingPointMolsheim: {false: PriorityMolBelowThreshold, true: PriorityRetailAT},
		ShippingPointWroclaw:  {false: PriorityEueBelowThreshold, true: PriorityRetailAT},
	},
}

// taskResponsible addresses the CS task of an over-threshold claim, keyed by
// ERP system id and priority.
var taskResponsible = map[string]map[string]string{
	"Q25": {
		PriorityRetailDE: "50019602",
		PriorityRetailAT: "50019608",
	},
	"P25": {
		PriorityRetailDE: "50019628",
		PriorityRetailAT: "50019632",
	},
}

var currencies = map[string]string{
	"1001": "EUR",
	"1072": "EUR",
	"0074": "CHF",
}

// customCodes maps the categories posted through the customized transaction
// to their category and reason codes.
var customCodes = map[string][2]string{
	"quality": {"006", "6Q"},
	"bonus":   {"013", "XXX"},
	"promo":   {"008", "8Y3"},
}

// ClaimTypeCode returns the 3-digit claim type code of a category.
func ClaimTypeCode(category string) (string, error) {
	ct, ok := claimTypes[category]
	if !ok {
		return "", fmt.Errorf("unrecognized document category %q", category)
	}
	return ct.code, nil
}

// Coding returns the two claim type coding fields of a category, depending
// on whether the amount reached the threshold.
func Coding(category string, overThreshold bool) (group, subgroup string, err error) {
	ct, ok := claimTypes[category]
	if !ok {
		return "", "", fmt.Errorf("unrecognized document category %q", category)
	}
	c := ct.coding[overThreshold]
	return c[0], c[1], nil
}

// Priority returns the claim priority for a company code and shipping point.
// An amount equal to the threshold counts as over threshold.
func Priority(companyCode, shippingPoint string, overThreshold bool) (string, error) {
	byPoint, ok := priorities[companyCode]
	if !ok {
		return "", fmt.Errorf("unrecognized company code %q", companyCode)
	}
	byThreshold, ok := byPoint[shippingPoint]
	if !ok {
		byThreshold = byPoint[ShippingPointMolsheim]
	}
	return byThreshold[overThreshold], nil
}

// Responsible returns the CS task addressee for a system id and priority.
func Responsible(systemID, priority string) (string, error) {
	byPriority, ok := taskResponsible[systemID]
	if !ok {
		return "", fmt.Errorf("unrecognized system id %q", systemID)
	}
	responsible, ok := byPriority[priority]
	if !ok {
		return "", fmt.Errorf("no task responsible exists for priority %q", priority)
	}
	return responsible, nil
}

// Currency returns the company currency.
func Currency(companyCode string) string {
	if currency, ok := currencies[companyCode]; ok {
		return currency
	}
	return "EUR"
}

// CustomCodes returns the category and reason codes of a customized
// notification category.
func CustomCodes(category string) (categoryCode, reasonCode string, err error) {
	codes, ok := customCodes[category]
	if !ok {
		return "", "", fmt.Errorf("category %q cannot be posted through the customized transaction", category)
	}
	return codes[0], codes[1], nil
}
