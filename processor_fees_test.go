package reconbank

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFeesPlanGroupsByAccountAndRecomputesVAT(t *testing.T) {
	date := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)
	movements := []BankMovement{
		{Date: date, Account: "055003730017", Kind: FeeWire, Debit: decimal.NewFromFloat(30)},
		{Date: date, Account: "055003730017", Kind: FeeWireVAT, Debit: decimal.NewFromFloat(4.80)},
	}

	plan, err := BuildFeesPlan(movements, date)
	require.NoError(t, err)
	require.Len(t, plan.Movements, 1, "both lines for the same account collapse into one AP invoice")
	assert.Equal(t, BankFeeProviderCode, plan.Movements[0].Counterparty)
	assert.True(t, plan.Movements[0].Expense.Equal(decimal.NewFromFloat(34.80)))
	require.Len(t, plan.APInvoices, 1)
	assert.True(t, plan.APInvoices[0].Subtotal.Equal(decimal.NewFromFloat(30)))
	assert.True(t, plan.APInvoices[0].VAT.Equal(decimal.NewFromFloat(4.80)))
	assert.True(t, IsBalanced(plan.Lines))
}

func TestBuildFeesPlanUnrecognizedAccountWarns(t *testing.T) {
	date := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)
	movements := []BankMovement{
		{Date: date, Account: "000000000000", Kind: FeeWire, Debit: decimal.NewFromFloat(30)},
	}

	plan, err := BuildFeesPlan(movements, date)
	require.NoError(t, err)
	assert.Empty(t, plan.Movements)
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], "not recognized")
}

func TestBuildFeesPlanEmptyMovements(t *testing.T) {
	date := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)
	plan, err := BuildFeesPlan(nil, date)
	require.NoError(t, err)
	assert.Empty(t, plan.Movements)
	assert.NotEmpty(t, plan.Warnings)
}
