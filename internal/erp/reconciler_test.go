package erp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/castlemilk/claimflow/internal/claim"
)

func customContext() *claim.Context {
	return &claim.Context{
		Header: claim.Header{
			Issuer:      "OBI_DE",
			Kind:        "debit",
			Category:    "quality",
			TemplateID:  "OBI_DE_D009",
			Transaction: claim.TransactionZQM,
			CompanyCode: "1001",
			Threshold:   500,
			Tolerance:   0.01,
		},
		Search: claim.Search{Title: "%123456789%", CustDisputed: 100},
		Create: &claim.Create{
			Amount:         100,
			ReferenceBy:    "account_number",
			ReferenceNo:    "RE 01",
			Description:    "quality OBI_DE",
			Processor:      "ROBOT1",
			Coordinator:    "COORD1",
			AttachmentName: "claim_<case_id>",
			AccountNumber:  10004711,
		},
	}
}

func standardContext() *claim.Context {
	return &claim.Context{
		Header: claim.Header{
			Issuer:      "OBI_DE",
			Kind:        "debit",
			Category:    "return",
			TemplateID:  "OBI_DE_D001",
			Transaction: claim.TransactionQM,
			CompanyCode: "1001",
			Threshold:   500,
			Tolerance:   0.01,
		},
		Search: claim.Search{Title: "%123456789%", CustDisputed: 500},
		Create: &claim.Create{
			Amount:          500,
			ReferenceBy:     "invoice_number",
			ReferenceNo:     "RE 01",
			Description:     "return OBI_DE 123456789",
			Processor:       "ROBOT1",
			Coordinator:     "COORD1",
			User:            "QMUSER",
			AttachmentName:  "claim_<case_id>",
			InvoiceNumbers:  []int64{900000001},
			DeliveryNumbers: []int64{310000001},
			AccountNumber:   10004711,
		},
		Extend: &claim.Extend{
			Amount:         500,
			ReferenceNo:    "RE 01",
			Description:    "return OBI_DE 123456789",
			Processor:      "ROBOT1",
			Coordinator:    "COORD1",
			AttachmentName: "claim_<case_id>",
		},
	}
}

func creditContext() *claim.Context {
	return &claim.Context{
		Header: claim.Header{
			Issuer:      "OBI_DE",
			Kind:        "credit",
			Transaction: claim.TransactionDMS,
			CompanyCode: "1001",
			Threshold:   500,
			Tolerance:   0.01,
		},
		Search: claim.Search{Title: "%123456789%", CustDisputed: 1500},
		Update: &claim.Update{
			Amount:         1500,
			StatusSales:    "+= <amount> EUR erhalten",
			AttachmentName: "credit_<case_id>",
		},
	}
}

func TestProcessCreatesCustomNotification(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)

	created := Created{NotificationID: 7001, CaseID: 4711, CaseGUID: "GUID-1"}

	client.EXPECT().FindCases(gomock.Any()).Return(nil, nil)
	client.EXPECT().CreateCustomNotification(gomock.Any()).
		DoAndReturn(func(p CustomCreateParams) (Created, error) {
			assert.Equal(t, int64(10004711), p.Account)
			assert.Equal(t, "quality", p.Category)
			return created, nil
		})
	// attribute update plus the two status steps of an under-threshold case
	client.EXPECT().ModifyCase("GUID-1", gomock.Any()).Return(nil).Times(3)
	client.EXPECT().Attach("GUID-1", "doc.pdf", "claim_4711").Return(nil)

	r := NewReconciler(client, "first", zap.NewNop())
	result, err := r.Process(customContext(), "doc.pdf", false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
	assert.Equal(t, int64(4711), result.CaseID)
}

func TestProcessMarksCustomDuplicate(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)

	client.EXPECT().FindCases(gomock.Any()).Return([]CaseRef{{CaseID: 1, GUID: "G"}}, nil)

	r := NewReconciler(client, "first", zap.NewNop())
	result, err := r.Process(customContext(), "doc.pdf", false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicated, result.Outcome)
}

func TestProcessFailsOnBahagDuplicates(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)

	client.EXPECT().FindCases(gomock.Any()).Return([]CaseRef{{CaseID: 1, GUID: "G"}}, nil)

	c := customContext()
	c.Header.Issuer = "BAHAG_DE"

	r := NewReconciler(client, "first", zap.NewNop())
	_, err := r.Process(c, "doc.pdf", false)
	assert.Error(t, err)
}

func TestProcessCreatesStandardNotification(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)

	created := Created{NotificationID: 7002, CaseID: 4712, CaseGUID: "GUID-2"}

	client.EXPECT().FindNotifications(Reference{Kind: RefInvoice, Value: 900000001}).Return(nil, nil)
	client.EXPECT().FindNotifications(Reference{Kind: RefDelivery, Value: 310000001}).Return(nil, nil)
	client.EXPECT().FindCases(gomock.Any()).Return(nil, nil)
	client.EXPECT().ShippingPoint(int64(310000001)).Return(ShippingPointMolsheim, nil)
	client.EXPECT().CreateNotification(gomock.Any()).
		DoAndReturn(func(p CreateParams) (Created, error) {
			assert.Equal(t, RefInvoice, p.Reference.Kind)
			assert.Equal(t, int64(900000001), p.Reference.Value)
			assert.Equal(t, "QMUSER", p.Coordinator)
			assert.Equal(t, ShippingPointMolsheim, p.ShippingPoint)
			return created, nil
		})
	// the amount equals the threshold so the case stays open, one update
	client.EXPECT().ModifyCase("GUID-2", gomock.Any()).Return(nil)
	client.EXPECT().Attach("GUID-2", "doc.pdf", "claim_4712").Return(nil)

	r := NewReconciler(client, "first", zap.NewNop())
	result, err := r.Process(standardContext(), "doc.pdf", false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
}

func TestProcessExtendsExistingNotification(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)

	created := Created{NotificationID: 300, CaseID: 4713, CaseGUID: "GUID-3"}

	client.EXPECT().FindNotifications(Reference{Kind: RefInvoice, Value: 900000001}).
		Return([]int64{301, 300}, nil)
	client.EXPECT().FindNotifications(Reference{Kind: RefDelivery, Value: 310000001}).
		Return([]int64{300}, nil)
	client.EXPECT().FindCases(gomock.Any()).Return(nil, nil)
	// the oldest notification wins under the first policy
	client.EXPECT().AddCase(int64(300), gomock.Any()).Return(created, nil)
	client.EXPECT().CaseAttributes("GUID-3").Return(CaseAttributes{CaseID: 4713, GUID: "GUID-3"}, nil)
	client.EXPECT().ModifyCase("GUID-3", gomock.Any()).Return(nil)
	client.EXPECT().Attach("GUID-3", "doc.pdf", "claim_4713").Return(nil)

	r := NewReconciler(client, "first", zap.NewNop())
	result, err := r.Process(standardContext(), "doc.pdf", false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
}

func TestProcessRetriesDeletedNotification(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)

	created := Created{NotificationID: 301, CaseID: 4714, CaseGUID: "GUID-4"}

	client.EXPECT().FindNotifications(gomock.Any()).Return([]int64{300, 301}, nil).Times(2)
	client.EXPECT().FindCases(gomock.Any()).Return(nil, nil)
	gomock.InOrder(
		client.EXPECT().AddCase(int64(300), gomock.Any()).
			Return(Created{}, &NotificationDeletedError{NotificationID: 300}),
		client.EXPECT().AddCase(int64(301), gomock.Any()).Return(created, nil),
	)
	client.EXPECT().CaseAttributes("GUID-4").Return(CaseAttributes{CaseID: 4714, GUID: "GUID-4"}, nil)
	client.EXPECT().ModifyCase("GUID-4", gomock.Any()).Return(nil)
	client.EXPECT().Attach("GUID-4", "doc.pdf", "claim_4714").Return(nil)

	r := NewReconciler(client, "first", zap.NewNop())
	result, err := r.Process(standardContext(), "doc.pdf", false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
}

func TestProcessMarksStandardDuplicate(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)

	client.EXPECT().FindNotifications(gomock.Any()).Return([]int64{300}, nil).Times(2)
	client.EXPECT().FindCases(gomock.Any()).Return([]CaseRef{{CaseID: 1, GUID: "G"}}, nil)

	r := NewReconciler(client, "first", zap.NewNop())
	result, err := r.Process(standardContext(), "doc.pdf", false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicated, result.Outcome)
}

func TestProcessIgnoreExistingCreatesDespiteCase(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)

	created := Created{NotificationID: 7003, CaseID: 4715, CaseGUID: "GUID-5"}

	client.EXPECT().FindNotifications(gomock.Any()).Return(nil, nil).Times(2)
	client.EXPECT().FindCases(gomock.Any()).Return([]CaseRef{{CaseID: 1, GUID: "G"}}, nil)
	client.EXPECT().ShippingPoint(gomock.Any()).Return(ShippingPointMolsheim, nil)
	client.EXPECT().CreateNotification(gomock.Any()).Return(created, nil)
	client.EXPECT().ModifyCase("GUID-5", gomock.Any()).Return(nil)
	client.EXPECT().Attach("GUID-5", "doc.pdf", "claim_4715").Return(nil)

	r := NewReconciler(client, "first", zap.NewNop())
	result, err := r.Process(standardContext(), "doc.pdf", true)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
}

func TestProcessRecordsCreditNote(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)

	attrs := CaseAttributes{
		CaseID:         4716,
		GUID:           "GUID-6",
		Status:         StatusOpen,
		StatusSales:    "Belastung offen",
		DisputedAmount: "1.500,00",
	}

	client.EXPECT().FindCases(gomock.Any()).Return([]CaseRef{{CaseID: 4716, GUID: "GUID-6"}}, nil)
	client.EXPECT().CaseAttributes("GUID-6").Return(attrs, nil)
	client.EXPECT().ModifyCase("GUID-6", gomock.Any()).
		DoAndReturn(func(guid string, changes CaseChanges) error {
			require.NotNil(t, changes.StatusSales)
			assert.Equal(t, "Belastung offen 1.500,00 EUR erhalten", *changes.StatusSales)
			require.NotNil(t, changes.RootCause)
			assert.Equal(t, RootCausePaymentAgreed, *changes.RootCause)
			require.NotNil(t, changes.Reason)
			assert.Equal(t, ReasonAutomated, *changes.Reason)
			return nil
		})
	// the credited amount settles the case, status moves 1 -> 2
	client.EXPECT().ModifyCase("GUID-6", gomock.Any()).
		DoAndReturn(func(guid string, changes CaseChanges) error {
			require.NotNil(t, changes.Status)
			assert.Equal(t, StatusSolved, *changes.Status)
			return nil
		})
	client.EXPECT().Attach("GUID-6", "doc.pdf", "credit_4716").Return(nil)

	r := NewReconciler(client, "first", zap.NewNop())
	result, err := r.Process(creditContext(), "doc.pdf", false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
	assert.Equal(t, int64(4716), result.CaseID)
}

func TestProcessDetectsRecordedCreditNote(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)

	attrs := CaseAttributes{
		CaseID:         4717,
		GUID:           "GUID-7",
		Status:         StatusSolved,
		StatusSales:    "1.500,00 EUR erhalten",
		RootCause:      RootCauseCreditIssued,
		DisputedAmount: "1.500,00",
	}

	client.EXPECT().FindCases(gomock.Any()).Return([]CaseRef{{CaseID: 4717, GUID: "GUID-7"}}, nil)
	client.EXPECT().CaseAttributes("GUID-7").Return(attrs, nil)

	r := NewReconciler(client, "first", zap.NewNop())
	result, err := r.Process(creditContext(), "doc.pdf", false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicated, result.Outcome)
}

func TestProcessCreditWithoutCase(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)

	client.EXPECT().FindCases(gomock.Any()).Return(nil, nil)

	r := NewReconciler(client, "first", zap.NewNop())
	result, err := r.Process(creditContext(), "doc.pdf", false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotApplicable, result.Outcome)
}

func TestProcessResetsOnCompanyCodeChange(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)

	client.EXPECT().FindCases(gomock.Any()).Return([]CaseRef{{CaseID: 1, GUID: "G"}}, nil).Times(2)
	client.EXPECT().Reset().Return(nil)

	first := customContext()
	second := customContext()
	second.Header.CompanyCode = "1072"

	r := NewReconciler(client, "first", zap.NewNop())
	_, err := r.Process(first, "doc.pdf", false)
	require.NoError(t, err)
	_, err = r.Process(second, "doc.pdf", false)
	require.NoError(t, err)
}

func TestDuplicatePolicyError(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)

	client.EXPECT().FindNotifications(gomock.Any()).Return([]int64{300, 301}, nil).Times(2)
	client.EXPECT().FindCases(gomock.Any()).Return(nil, nil)

	r := NewReconciler(client, "error", zap.NewNop())
	_, err := r.Process(standardContext(), "doc.pdf", false)
	assert.Error(t, err)
}
