package reconbank

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountKeyByNumber(t *testing.T) {
	key, ok := AccountKeyByNumber("038900320016")
	assert.True(t, ok)
	assert.Equal(t, "tarjeta", key)

	_, ok = AccountKeyByNumber("000000000000")
	assert.False(t, ok)
}

func TestSheetAccountKeyHandlesTrailingSpaceQuirk(t *testing.T) {
	key, ok := SheetAccountKey("Banregio T ")
	assert.True(t, ok)
	assert.Equal(t, "tarjeta", key)

	key, ok = SheetAccountKey("Banregio T")
	assert.True(t, ok)
	assert.Equal(t, "tarjeta", key)

	_, ok = SheetAccountKey("Unknown Sheet")
	assert.False(t, ok)
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 4, cfg.MonthEdgeDays)
	assert.Equal(t, 2, cfg.SupplierReconcileWindowDays)
	assert.True(t, cfg.ToleranceCents.Equal(mustParseDecimal("0.01")))
	assert.True(t, cfg.ToleranceValidation.Equal(mustParseDecimal("0.50")))
}

func TestConfigFromEnvOverridesDefaults(t *testing.T) {
	os.Setenv("RECONBANK_COMPANY", "ACME")
	os.Setenv("RECONBANK_MONTH_EDGE_DAYS", "7")
	defer os.Unsetenv("RECONBANK_COMPANY")
	defer os.Unsetenv("RECONBANK_MONTH_EDGE_DAYS")

	cfg := ConfigFromEnv()
	assert.Equal(t, "ACME", cfg.Company)
	assert.Equal(t, 7, cfg.MonthEdgeDays)
	assert.Equal(t, "PESOS", cfg.Currency, "unset vars still fall back to defaults")
}
