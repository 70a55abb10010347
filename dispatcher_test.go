package reconbank

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func dispatcherTestEngine(t *testing.T) (*Storage, *Executor) {
	t.Helper()
	path := t.TempDir() + "/dispatch.db"
	storage, err := OpenStorage(path)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage, NewExecutor(storage)
}

func TestDispatchDaySingleCardDeposit(t *testing.T) {
	storage, executor := dispatcherTestEngine(t)
	date := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)

	err := storage.Update(func(tx *bbolt.Tx) error {
		return storage.PutInvoiceTaxBreakdown(tx, InvoiceTaxBreakdown{
			Series: "FD", Number: "9001", VATDec: "29706.97", IEPSDec: "0",
		})
	})
	require.NoError(t, err)

	close := DailyClose{CloseDate: date, GlobalNumber: "9001", TotalCard: decimal.NewFromFloat(215370.52)}
	movements := []BankMovement{
		{Date: date, Account: "038900320016", SourceSheet: "Banregio T", Description: "DEPOSITO TDC VENTA DEL DIA", Credit: decimal.NewFromFloat(215370.52)},
	}

	result, err := DispatchDay(storage, executor, DefaultConfig(), date, movements, DaySideChannel{Close: close}, nil)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, CardCreditSale, result.Results[0].Kind)
	assert.Equal(t, ActionInsert, result.Results[0].Action)
	assert.Len(t, result.Results[0].Folios, 1)
}

func TestDispatchDayWireFeeAggregation(t *testing.T) {
	storage, executor := dispatcherTestEngine(t)
	date := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)

	movements := []BankMovement{
		{Date: date, Account: "055003730017", Description: "COMISION TRANSFERENCIA SPEI", Debit: decimal.NewFromFloat(30)},
		{Date: date, Account: "055003730017", Description: "IVA COMISION TRANSFERENCIA SPEI", Debit: decimal.NewFromFloat(4.80)},
	}

	result, err := DispatchDay(storage, executor, DefaultConfig(), date, movements, DaySideChannel{}, nil)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	for _, r := range result.Results {
		assert.Equal(t, ActionInsert, r.Action)
	}
	// Both lines collapse into a single movement + AP invoice for 34.80.
	assert.Equal(t, result.Results[0].Folios, result.Results[1].Folios)
}

func TestDispatchDayInternalTransferOut(t *testing.T) {
	storage, executor := dispatcherTestEngine(t)
	date := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)

	movements := []BankMovement{
		{Date: date, Account: "055003730017", Description: "TRANSFERENCIA A CUENTA: 055003730157", Debit: decimal.NewFromFloat(500000)},
	}

	result, err := DispatchDay(storage, executor, DefaultConfig(), date, movements, DaySideChannel{}, nil)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, InternalTransferOut, result.Results[0].Kind)
	assert.Equal(t, ActionInsert, result.Results[0].Action)
}

func TestDispatchDayIdempotentReRun(t *testing.T) {
	storage, executor := dispatcherTestEngine(t)
	date := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)
	cfg := DefaultConfig()

	err := storage.Update(func(tx *bbolt.Tx) error {
		return storage.PutInvoiceTaxBreakdown(tx, InvoiceTaxBreakdown{
			Series: "FD", Number: "9001", VATDec: "29706.97", IEPSDec: "0",
		})
	})
	require.NoError(t, err)

	close := DailyClose{CloseDate: date, GlobalNumber: "9001", TotalCard: decimal.NewFromFloat(215370.52)}
	movements := []BankMovement{
		{Date: date, Account: "038900320016", SourceSheet: "Banregio T", Description: "DEPOSITO TDC VENTA DEL DIA", Credit: decimal.NewFromFloat(215370.52)},
	}

	first, err := DispatchDay(storage, executor, cfg, date, movements, DaySideChannel{Close: close}, nil)
	require.NoError(t, err)
	require.Equal(t, ActionInsert, first.Results[0].Action)
	firstFolios := first.Results[0].Folios

	second, err := DispatchDay(storage, executor, cfg, date, movements, DaySideChannel{Close: close}, nil)
	require.NoError(t, err)
	assert.Equal(t, ActionReconcile, second.Results[0].Action, "re-running the same day must reconcile, not double-insert")
	assert.Equal(t, firstFolios, second.Results[0].Folios, "the re-run must resolve to the same folio")
}

func TestDispatchDayThirdRunSkipsFullyReconciledDay(t *testing.T) {
	storage, executor := dispatcherTestEngine(t)
	date := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)
	cfg := DefaultConfig()

	err := storage.Update(func(tx *bbolt.Tx) error {
		return storage.PutInvoiceTaxBreakdown(tx, InvoiceTaxBreakdown{
			Series: "FD", Number: "9001", VATDec: "29706.97", IEPSDec: "0",
		})
	})
	require.NoError(t, err)

	close := DailyClose{CloseDate: date, GlobalNumber: "9001", TotalCard: decimal.NewFromFloat(215370.52)}
	movements := []BankMovement{
		{Date: date, Account: "038900320016", SourceSheet: "Banregio T", Description: "DEPOSITO TDC VENTA DEL DIA", Credit: decimal.NewFromFloat(215370.52)},
	}

	for i := 0; i < 2; i++ {
		_, err := DispatchDay(storage, executor, cfg, date, movements, DaySideChannel{Close: close}, nil)
		require.NoError(t, err)
	}

	third, err := DispatchDay(storage, executor, cfg, date, movements, DaySideChannel{Close: close}, nil)
	require.NoError(t, err)
	assert.Equal(t, ActionSkip, third.Results[0].Action)
	assert.Equal(t, "already registered and reconciled", third.Results[0].Note)
	assert.Empty(t, third.Results[0].Folios)
}

func TestDispatchDayDryRunBuildsPlansWithoutWriting(t *testing.T) {
	storage, executor := dispatcherTestEngine(t)
	date := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)

	err := storage.Update(func(tx *bbolt.Tx) error {
		return storage.PutInvoiceTaxBreakdown(tx, InvoiceTaxBreakdown{
			Series: "FD", Number: "9001", VATDec: "29706.97", IEPSDec: "0",
		})
	})
	require.NoError(t, err)

	close := DailyClose{CloseDate: date, GlobalNumber: "9001", TotalCard: decimal.NewFromFloat(215370.52)}
	movements := []BankMovement{
		{Date: date, Account: "038900320016", SourceSheet: "Banregio T", Description: "DEPOSITO TDC VENTA DEL DIA", Credit: decimal.NewFromFloat(215370.52)},
	}

	dry := DefaultConfig()
	dry.DryRun = true
	result, err := DispatchDay(storage, executor, dry, date, movements, DaySideChannel{Close: close}, nil)
	require.NoError(t, err)
	assert.Equal(t, ActionNotProcessed, result.Results[0].Action)
	assert.Contains(t, result.Results[0].Note, "dry run")
	assert.Empty(t, result.Results[0].Folios)

	// Nothing was committed: a real run afterwards still inserts.
	wet, err := DispatchDay(storage, executor, DefaultConfig(), date, movements, DaySideChannel{Close: close}, nil)
	require.NoError(t, err)
	assert.Equal(t, ActionInsert, wet.Results[0].Action)
}

func TestDispatchDayTDCMultiCloseAttributesFoliosPerLine(t *testing.T) {
	storage, executor := dispatcherTestEngine(t)
	date := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)

	err := storage.Update(func(tx *bbolt.Tx) error {
		for _, number := range []string{"7001", "7002", "7003"} {
			if err := storage.PutInvoiceTaxBreakdown(tx, InvoiceTaxBreakdown{Series: "FD", Number: number, VATDec: "0", IEPSDec: "0"}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	movements := []BankMovement{
		{Date: date, Account: "038900320016", SourceSheet: "Banregio T", Description: "DEPOSITO TDC 1", Credit: decimal.NewFromFloat(300000)},
		{Date: date, Account: "038900320016", SourceSheet: "Banregio T", Description: "DEPOSITO TDC 2", Credit: decimal.NewFromFloat(150000)},
		{Date: date, Account: "038900320016", SourceSheet: "Banregio T", Description: "DEPOSITO TDC 3", Credit: decimal.NewFromFloat(50000)},
	}
	side := DaySideChannel{TDCCloses: []TDCClose{
		{CloseDate: date.AddDate(0, 0, -3), CardTotal: decimal.NewFromFloat(250000), GlobalInvoiceNumber: "7001"},
		{CloseDate: date.AddDate(0, 0, -2), CardTotal: decimal.NewFromFloat(200000), GlobalInvoiceNumber: "7002"},
		{CloseDate: date.AddDate(0, 0, -1), CardTotal: decimal.NewFromFloat(50000), GlobalInvoiceNumber: "7003"},
	}}

	result, err := DispatchDay(storage, executor, DefaultConfig(), date, movements, side, nil)
	require.NoError(t, err)
	require.Len(t, result.Results, 3)

	// The sequential split feeds close 1 from deposit 0 and close 2 from
	// deposit 0's remainder plus deposit 1, so the 300000 line accrues the
	// folios of both movements; the other two lines accrue one each.
	assert.Len(t, result.Results[0].Folios, 2)
	assert.Len(t, result.Results[1].Folios, 1)
	assert.Len(t, result.Results[2].Folios, 1)
	assert.Equal(t, result.Results[0].Folios[1], result.Results[1].Folios[0], "the split remainder and deposit 1 fund the same movement")
}

func TestDispatchDayCustomerCollectionPhaseBReconciles(t *testing.T) {
	storage, executor := dispatcherTestEngine(t)
	date := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)

	err := storage.Update(func(tx *bbolt.Tx) error {
		return storage.PutPendingReconciliation(tx, PendingReconciliation{
			Folio: 2044, Account: "055003730017", Date: date,
			AmountDec: "18000", Concept: "DEPOSITS CLIENT 7788", Kind: "CUSTOMER",
		})
	})
	require.NoError(t, err)

	movements := []BankMovement{
		{Date: date, Account: "055003730017", SourceSheet: "Banregio F", Description: "COBRO CLIENTE 7788", Credit: decimal.NewFromFloat(18000)},
	}

	result, err := DispatchDay(storage, executor, DefaultConfig(), date, movements, DaySideChannel{}, nil)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, ActionReconcile, result.Results[0].Action)
	assert.Equal(t, []int64{2044}, result.Results[0].Folios)

	err = storage.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketPendingReconciliations).Get(int64Key(2044))
		require.NotNil(t, raw)
		var row PendingReconciliation
		require.NoError(t, gobDecode(raw, &row))
		assert.True(t, row.Reconciled, "the pending collection row must be marked reconciled")
		return nil
	})
	require.NoError(t, err)
}

func TestDispatchDayCheckCashedMixedMatchStampsPerLine(t *testing.T) {
	storage, executor := dispatcherTestEngine(t)
	date := time.Date(2026, 7, 16, 0, 0, 0, 0, time.UTC)

	pr := &Payroll{ChecksTotal: decimal.NewFromFloat(8000)}
	movements := []BankMovement{
		{Date: date, Account: "055003730017", SourceSheet: "Banregio F", Description: "CHEQUE COBRADO 991", Debit: decimal.NewFromFloat(8000)},
		{Date: date, Account: "055003730017", SourceSheet: "Banregio F", Description: "CHEQUE COBRADO 992", Debit: decimal.NewFromFloat(12345)},
	}

	result, err := DispatchDay(storage, executor, DefaultConfig(), date, movements, DaySideChannel{Payroll: pr}, nil)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)

	assert.Equal(t, ActionInsert, result.Results[0].Action)
	assert.Len(t, result.Results[0].Folios, 1)

	// The unmatched check must not inherit its sibling's outcome.
	assert.Equal(t, ActionUnknown, result.Results[1].Action)
	assert.Empty(t, result.Results[1].Folios)
	assert.Contains(t, result.Results[1].Note, "no payroll bucket match")
}

func TestDispatchDayCustomerCollectionMixedOutcomesPerLine(t *testing.T) {
	storage, executor := dispatcherTestEngine(t)
	date := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)

	err := storage.Update(func(tx *bbolt.Tx) error {
		if err := storage.PutPendingReconciliation(tx, PendingReconciliation{
			Folio: 2044, Account: "055003730017", Date: date,
			AmountDec: "18000", Concept: "DEPOSITS CLIENT", Kind: "CUSTOMER",
		}); err != nil {
			return err
		}
		return storage.PutPendingARInvoice(tx, ARInvoicePending{Number: "7788", BalanceDec: "11600"})
	})
	require.NoError(t, err)

	// One deposit reconciles a pre-existing row, one creates a fresh
	// collection against an open AR invoice, one matches nothing.
	movements := []BankMovement{
		{Date: date, Account: "055003730017", SourceSheet: "Banregio F", Description: "COBRO CLIENTE ABONO", Credit: decimal.NewFromFloat(18000)},
		{Date: date, Account: "055003730017", SourceSheet: "Banregio F", Description: "COBRO CLIENTE: 7788", Credit: decimal.NewFromFloat(11600)},
		{Date: date, Account: "055003730017", SourceSheet: "Banregio F", Description: "COBRO CLIENTE SIN FACTURA", Credit: decimal.NewFromFloat(555)},
	}

	result, err := DispatchDay(storage, executor, DefaultConfig(), date, movements, DaySideChannel{}, nil)
	require.NoError(t, err)
	require.Len(t, result.Results, 3)

	assert.Equal(t, ActionReconcile, result.Results[0].Action)
	assert.Equal(t, []int64{2044}, result.Results[0].Folios)

	assert.Equal(t, ActionInsert, result.Results[1].Action)
	require.Len(t, result.Results[1].Folios, 1)
	assert.NotEqual(t, int64(2044), result.Results[1].Folios[0])

	assert.Equal(t, ActionNeedsReview, result.Results[2].Action)
	assert.Empty(t, result.Results[2].Folios)
	assert.Contains(t, result.Results[2].Note, "no open AR invoice")
}

func TestDispatchDayStateTaxMixedMatchStampsPerLine(t *testing.T) {
	storage, executor := dispatcherTestEngine(t)
	date := time.Date(2026, 7, 17, 0, 0, 0, 0, time.UTC)

	st := &StateTax{Period: "JULIO 2026", Amount: decimal.NewFromFloat(5000), Confidence100: true}
	movements := []BankMovement{
		{Date: date, Account: "055003730017", SourceSheet: "Banregio F", Description: "IMPUESTO ESTATAL 3% JULIO", Debit: decimal.NewFromFloat(5000)},
		{Date: date, Account: "055003730017", SourceSheet: "Banregio F", Description: "IMPUESTO ESTATAL 3% COMPLEMENTO", Debit: decimal.NewFromFloat(4000)},
	}

	result, err := DispatchDay(storage, executor, DefaultConfig(), date, movements, DaySideChannel{StateTax: st}, nil)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)

	assert.Equal(t, ActionInsert, result.Results[0].Action)
	assert.Len(t, result.Results[0].Folios, 1)

	assert.Equal(t, ActionNeedsReview, result.Results[1].Action)
	assert.Empty(t, result.Results[1].Folios)
	assert.Contains(t, result.Results[1].Note, "does not match state-tax filing amount")
}

func TestDispatchDayMonthEdgeSkipsCashSale(t *testing.T) {
	storage, executor := dispatcherTestEngine(t)
	date := time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC) // within the first 4 days

	close := DailyClose{CloseDate: date, GlobalNumber: "9100", TotalCash: decimal.NewFromFloat(1000)}
	movements := []BankMovement{
		{Date: date, Account: "055003730017", SourceSheet: "Banregio F", Description: "DEPOSITO EFECTIVO VENTA DEL DIA", Credit: decimal.NewFromFloat(1000)},
	}

	cfg := DefaultConfig()
	result, err := DispatchDay(storage, executor, cfg, date, movements, DaySideChannel{Close: close}, nil)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, ActionSkip, result.Results[0].Action)
	assert.Contains(t, result.Results[0].Note, "month edge")
}

func TestDispatchDayEmptyMovements(t *testing.T) {
	storage, executor := dispatcherTestEngine(t)
	date := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)

	result, err := DispatchDay(storage, executor, DefaultConfig(), date, nil, DaySideChannel{}, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Results)
	assert.Empty(t, result.HeldForNextDay)
}

func TestDispatchDayExpenseAccountPaymentHeldForNextDay(t *testing.T) {
	storage, executor := dispatcherTestEngine(t)
	date := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)

	movements := []BankMovement{
		{Date: date, Account: "055003730157", SourceSheet: "BANREGIO GTS", Description: "PAGO TARJETA EMPRESARIAL", Debit: decimal.NewFromFloat(1200)},
	}

	result, err := DispatchDay(storage, executor, DefaultConfig(), date, movements, DaySideChannel{}, nil)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, ActionNotProcessed, result.Results[0].Action)
	require.Len(t, result.HeldForNextDay, 1)
	assert.Equal(t, ExpenseAccountPayment, result.HeldForNextDay[0].Kind)
}

func TestIsMonthEdge(t *testing.T) {
	assert.True(t, isMonthEdge(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), 4))
	assert.True(t, isMonthEdge(time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), 4))
	assert.False(t, isMonthEdge(time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC), 4))
}
