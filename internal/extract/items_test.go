package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumReconciler(t *testing.T) {
	rows := []string{
		"10  4,50  45,00",
		"2  5,00  10,00",
	}

	items, err := SumReconciler{RelTol: 0.01}.Reconcile(rows, 55.00)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 45.0, items[0].Amount)
	assert.Equal(t, 10.0, items[1].Amount)

	_, err = SumReconciler{RelTol: 0.01}.Reconcile(rows, 70.00)
	assert.Error(t, err)
}

func TestDeliveryLossReconciler(t *testing.T) {
	rows := []string{
		"10  7  4,50  13,50", // 3 missing pieces x 4.50
		"5  5  2,00  0,00",
	}

	items, err := DeliveryLossReconciler{}.Reconcile(rows, 13.50)
	require.NoError(t, err)
	assert.Equal(t, 3.0, items[0].Pieces)
	assert.Equal(t, 4.5, items[0].UnitPrice)

	bad := []string{"10  7  4,50  20,00"}
	_, err = DeliveryLossReconciler{}.Reconcile(bad, 20.00)
	assert.Error(t, err)
}

func TestPenaltyReconcilerAcceptsKnownRates(t *testing.T) {
	rows := []string{
		"1.000,00  20,00",  // 2%
		"400,00  100,00",   // 25%
	}

	items, err := PenaltyReconciler{}.Reconcile(rows, 120.00)
	require.NoError(t, err)
	assert.Equal(t, 0.02, items[0].Rate)
	assert.Equal(t, 0.25, items[1].Rate)
}

func TestPenaltyReconcilerRejectsUnknownRate(t *testing.T) {
	// 13% is not an expected penalty rate.
	rows := []string{"1.000,00  130,00"}

	_, err := PenaltyReconciler{}.Reconcile(rows, 130.00)
	assert.Error(t, err)
}

func TestReturnDiscountReconciler(t *testing.T) {
	// 4.00 x 10 x (1 - 10/100) = 36.00
	rows := []string{"4,00  10  10  36,00"}

	items, err := ReturnDiscountReconciler{}.Reconcile(rows, 36.00)
	require.NoError(t, err)
	assert.Equal(t, 10.0, items[0].Discount)

	bad := []string{"4,00  10  10  40,00"}
	_, err = ReturnDiscountReconciler{}.Reconcile(bad, 40.00)
	assert.Error(t, err)
}

func TestReconcilerRegistryFallsBack(t *testing.T) {
	reg := NewReconcilerRegistry()
	reg.Register("OBI_DE_D005", PenaltyReconciler{})

	assert.IsType(t, PenaltyReconciler{}, reg.For("obi_de_d005"))
	assert.IsType(t, SumReconciler{}, reg.For("UNKNOWN_T01"))
}
