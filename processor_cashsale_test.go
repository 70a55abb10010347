package reconbank

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func cashSaleTestStorage(t *testing.T) *Storage {
	t.Helper()
	path := t.TempDir() + "/cashsale.db"
	storage, err := OpenStorage(path)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}

func TestBuildCashSalePlanIndividualThenGlobalRemainder(t *testing.T) {
	storage := cashSaleTestStorage(t)
	date := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)

	err := storage.Update(func(tx *bbolt.Tx) error {
		return storage.PutInvoiceTaxBreakdown(tx, InvoiceTaxBreakdown{Series: "FD", Number: "9200", VATDec: "0", IEPSDec: "0"})
	})
	require.NoError(t, err)

	close := DailyClose{
		CloseDate:    date,
		Individual:   []Invoice{{Series: "FA", Number: "100", Amount: decimal.NewFromFloat(300)}},
		GlobalNumber: "9200",
	}
	movements := []BankMovement{
		{Date: date, Account: "055003730017", Description: "DEPOSITO EFECTIVO VENTA DEL DIA", Credit: decimal.NewFromFloat(1000)},
	}

	plan, err := BuildCashSalePlan(storage, movements, date, close)
	require.NoError(t, err)
	require.Len(t, plan.Movements, 1)
	require.Len(t, plan.InvoiceLinks, 2)
	assert.Equal(t, LinkIndividual, plan.InvoiceLinks[0].Kind)
	assert.True(t, plan.InvoiceLinks[0].Applied.Equal(decimal.NewFromFloat(300)))
	assert.Equal(t, LinkGlobal, plan.InvoiceLinks[1].Kind)
	assert.True(t, plan.InvoiceLinks[1].Applied.Equal(decimal.NewFromFloat(700)))
	assert.True(t, IsBalanced(plan.Lines))
}

func TestBuildCashSalePlanIndividualsExceedDepositUncappedWithGlobalZeroed(t *testing.T) {
	storage := cashSaleTestStorage(t)
	date := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)

	err := storage.Update(func(tx *bbolt.Tx) error {
		if err := storage.PutInvoiceTaxBreakdown(tx, InvoiceTaxBreakdown{Series: "FA", Number: "100", VATDec: "0", IEPSDec: "0"}); err != nil {
			return err
		}
		return storage.PutInvoiceTaxBreakdown(tx, InvoiceTaxBreakdown{Series: "FA", Number: "101", VATDec: "0", IEPSDec: "0"})
	})
	require.NoError(t, err)

	// Two individual invoices (300 + 900 = 1200) together exceed the 1000
	// deposit. Each must still be linked at its own full stated amount;
	// only the global invoice's remainder is clamped to zero.
	close := DailyClose{
		CloseDate: date,
		Individual: []Invoice{
			{Series: "FA", Number: "100", Amount: decimal.NewFromFloat(300)},
			{Series: "FA", Number: "101", Amount: decimal.NewFromFloat(900)},
		},
		GlobalNumber: "9200",
	}
	movements := []BankMovement{
		{Date: date, Account: "055003730017", Description: "DEPOSITO EFECTIVO VENTA DEL DIA", Credit: decimal.NewFromFloat(1000)},
	}

	plan, err := BuildCashSalePlan(storage, movements, date, close)
	require.NoError(t, err)
	require.Len(t, plan.InvoiceLinks, 2)
	assert.True(t, plan.InvoiceLinks[0].Applied.Equal(decimal.NewFromFloat(300)), "first individual must link at its full stated amount, got %s", plan.InvoiceLinks[0].Applied)
	assert.True(t, plan.InvoiceLinks[1].Applied.Equal(decimal.NewFromFloat(900)), "second individual must link at its full stated amount, got %s", plan.InvoiceLinks[1].Applied)
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], "capped at zero")
}

func TestBuildCashSalePlanNoCloseNotProcessed(t *testing.T) {
	storage := cashSaleTestStorage(t)
	date := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)

	movements := []BankMovement{
		{Date: date, Account: "055003730017", Description: "DEPOSITO EFECTIVO VENTA DEL DIA", Credit: decimal.NewFromFloat(500)},
	}
	plan, err := BuildCashSalePlan(storage, movements, date, DailyClose{})
	require.NoError(t, err)
	assert.Empty(t, plan.Movements)
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], "NOT_PROCESSED")
}

func TestBuildCashSalePlanEmptyMovements(t *testing.T) {
	storage := cashSaleTestStorage(t)
	date := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	plan, err := BuildCashSalePlan(storage, nil, date, DailyClose{})
	require.NoError(t, err)
	assert.Empty(t, plan.Movements)
	assert.NotEmpty(t, plan.Warnings)
}
