package reconbank

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPayrollPlanBalancedLedger(t *testing.T) {
	date := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	pr := &Payroll{
		Number:          42,
		DispersionTotal: decimal.NewFromFloat(50000),
		Perceptions:     []PayrollLine{{Concept: "sueldo", Account: "6200", SubAccount: "010000", Amount: decimal.NewFromFloat(60000)}},
		Deductions:      []PayrollLine{{Concept: "isr", Account: "2140", SubAccount: "020000", Amount: decimal.NewFromFloat(10000)}},
	}
	movements := []BankMovement{
		{Date: date, Account: "055003730017", Description: "DISPERSION NOMINA 42", Debit: decimal.NewFromFloat(50000)},
	}

	plan, err := BuildPayrollPlan(movements, date, pr)
	require.NoError(t, err)
	require.Len(t, plan.Movements, 1)
	assert.True(t, IsBalanced(plan.Lines))
	assert.Empty(t, plan.Warnings)
}

func TestBuildPayrollPlanMissingSideChannelWarns(t *testing.T) {
	date := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	movements := []BankMovement{
		{Date: date, Account: "055003730017", Description: "DISPERSION NOMINA 42", Debit: decimal.NewFromFloat(50000)},
	}

	plan, err := BuildPayrollPlan(movements, date, nil)
	require.NoError(t, err)
	assert.Empty(t, plan.Movements)
	assert.NotEmpty(t, plan.Warnings)
}

func TestBuildPayrollPlanShortfallAddsGenericSalaryLine(t *testing.T) {
	date := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	pr := &Payroll{
		Number:          43,
		DispersionTotal: decimal.NewFromFloat(50000),
		Perceptions:     []PayrollLine{{Concept: "sueldo", Account: "6200", SubAccount: "010000", Amount: decimal.NewFromFloat(40000)}},
		Deductions:      []PayrollLine{{Concept: "isr", Account: "2140", SubAccount: "020000", Amount: decimal.NewFromFloat(5000)}},
	}
	movements := []BankMovement{
		{Date: date, Account: "055003730017", Description: "DISPERSION NOMINA 43", Debit: decimal.NewFromFloat(50000)},
	}

	plan, err := BuildPayrollPlan(movements, date, pr)
	require.NoError(t, err)
	assert.True(t, IsBalanced(plan.Lines))

	found := false
	for _, l := range plan.Lines {
		if l.Account == genericSalaryAccount.Account && l.SubAccount == genericSalaryAccount.SubAccount && l.Note == "sueldos genericos (ajuste)" {
			found = true
			assert.True(t, l.Debit.Equal(decimal.NewFromFloat(15000)))
		}
	}
	assert.True(t, found, "shortfall between perceptions and required total must be covered by the generic salary line")
}

func TestBuildCheckCashedPlanMatchesSeveranceBucket(t *testing.T) {
	date := time.Date(2026, 7, 16, 0, 0, 0, 0, time.UTC)
	pr := &Payroll{SeveranceTotal: decimal.NewFromFloat(8000)}
	movements := []BankMovement{
		{Date: date, Account: "055003730017", Description: "CHEQUE 991", Debit: decimal.NewFromFloat(8000)},
	}

	plan, err := BuildCheckCashedPlan(DefaultConfig(), movements, date, pr)
	require.NoError(t, err)
	require.Len(t, plan.Movements, 1)
	assert.True(t, IsBalanced(plan.Lines))
	assert.True(t, pr.matchedBuckets["severance"])
}

func TestBuildCheckCashedPlanUnmatchedWarns(t *testing.T) {
	date := time.Date(2026, 7, 16, 0, 0, 0, 0, time.UTC)
	pr := &Payroll{ChecksTotal: decimal.NewFromFloat(500)}
	movements := []BankMovement{
		{Date: date, Account: "055003730017", Description: "CHEQUE 992", Debit: decimal.NewFromFloat(12345)},
	}

	plan, err := BuildCheckCashedPlan(DefaultConfig(), movements, date, pr)
	require.NoError(t, err)
	assert.Empty(t, plan.Movements)
	assert.NotEmpty(t, plan.Warnings)
}
