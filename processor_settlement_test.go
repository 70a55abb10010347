package reconbank

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func settlementTestStorage(t *testing.T) *Storage {
	t.Helper()
	path := t.TempDir() + "/settlement.db"
	storage, err := OpenStorage(path)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}

func TestBuildSupplierPaymentPlanMatchesWithinWindow(t *testing.T) {
	storage := settlementTestStorage(t)
	cfg := DefaultConfig()
	closeDate := time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC)
	payDate := closeDate.AddDate(0, 0, 1)

	err := storage.Update(func(tx *bbolt.Tx) error {
		return storage.PutPendingReconciliation(tx, PendingReconciliation{
			Folio: 1001, Account: "055003730017", Date: closeDate,
			AmountDec: "15000", Concept: "FACTURA 4521", Kind: "SUPPLIER",
		})
	})
	require.NoError(t, err)

	movements := []BankMovement{
		{Date: payDate, Account: "055003730017", Description: "PAGO PROVEEDOR FACTURA 4521", Debit: decimal.NewFromFloat(15000)},
	}

	plan, err := BuildSupplierPaymentPlan(storage, cfg, movements, payDate)
	require.NoError(t, err)
	require.Len(t, plan.Reconciliations, 1)
	assert.Equal(t, int64(1001), plan.Reconciliations[0].Folio)
	assert.Empty(t, plan.Movements, "supplier payment never inserts a new movement row")
}

func TestBuildSupplierPaymentPlanUnmatchedWarns(t *testing.T) {
	storage := settlementTestStorage(t)
	cfg := DefaultConfig()
	date := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)

	movements := []BankMovement{
		{Date: date, Account: "055003730017", Description: "PAGO PROVEEDOR SIN MATCH", Debit: decimal.NewFromFloat(999)},
	}
	plan, err := BuildSupplierPaymentPlan(storage, cfg, movements, date)
	require.NoError(t, err)
	assert.Empty(t, plan.Reconciliations)
	assert.NotEmpty(t, plan.Warnings)
}

func TestBuildCustomerCollectionPlanPhaseAByInvoiceNumber(t *testing.T) {
	storage := settlementTestStorage(t)
	cfg := DefaultConfig()
	date := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)

	err := storage.Update(func(tx *bbolt.Tx) error {
		return storage.PutPendingARInvoice(tx, ARInvoicePending{Number: "7788", BalanceDec: "11600"})
	})
	require.NoError(t, err)

	movements := []BankMovement{
		{Date: date, Account: "055003730017", Description: "DEPOSITO CLIENTE: 7788", Credit: decimal.NewFromFloat(11600)},
	}

	plan, err := BuildCustomerCollectionPlan(storage, cfg, movements, date)
	require.NoError(t, err)
	require.Len(t, plan.Movements, 1)
	require.Len(t, plan.ARCollectionSettlements, 1)
	assert.True(t, plan.ARCollectionSettlements[0].NewBalance.IsZero())
	assert.True(t, IsBalanced(plan.Lines))
}

func TestBuildExpenseAccountPaymentPlanMatchesByAmount(t *testing.T) {
	storage := settlementTestStorage(t)
	cfg := DefaultConfig()
	date := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)

	err := storage.Update(func(tx *bbolt.Tx) error {
		return storage.PutPendingAPInvoice(tx, APInvoicePending{
			Supplier: "001200", Invoice: "A991", TotalDec: "3480", BalanceDec: "3480", VATDec: "480", Status: "OPEN",
		})
	})
	require.NoError(t, err)

	movements := []BankMovement{
		{Date: date, Account: "055003730157", Description: "PAGO TARJETA EMPRESARIAL A991", Debit: decimal.NewFromFloat(3480)},
	}

	plan, err := BuildExpenseAccountPaymentPlan(storage, cfg, movements, date)
	require.NoError(t, err)
	require.Len(t, plan.Movements, 1)
	require.Len(t, plan.APPaymentSettlements, 1)
	assert.Equal(t, "PAID", plan.APPaymentSettlements[0].NewStatus)
	assert.True(t, IsBalanced(plan.Lines))
}
