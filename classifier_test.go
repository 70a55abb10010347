package reconbank

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClassifyCardSale(t *testing.T) {
	m := BankMovement{
		Account:     "038900320016", // tarjeta
		Description: "DEPOSITO TDC VENTA DEL DIA",
		Credit:      decimal.NewFromFloat(1000),
	}
	assert.Equal(t, CardCreditSale, Classify(m))
}

func TestClassifyCardFeeVATPrecedesBase(t *testing.T) {
	base := BankMovement{Account: "038900320016", Description: "COMISION POR USO DE TERMINAL"}
	vat := BankMovement{Account: "038900320016", Description: "IVA COMISION POR USO DE TERMINAL"}
	assert.Equal(t, FeeCard, Classify(base))
	assert.Equal(t, FeeCardVAT, Classify(vat))
}

func TestClassifyAccountFilterRejectsWrongAccount(t *testing.T) {
	// Card-fee language on the cash account must not match the
	// account-scoped card-fee rule.
	m := BankMovement{Account: "055003730017", Description: "COMISION POR USO DE TERMINAL"}
	assert.NotEqual(t, FeeCard, Classify(m))
}

func TestClassifyUnknownAccountNumberStillMatchesUnscopedRules(t *testing.T) {
	m := BankMovement{Account: "000000000000", Description: "COMISION TRANSFERENCIA SPEI"}
	assert.Equal(t, FeeWire, Classify(m))
}

func TestClassifyInternalTransfer(t *testing.T) {
	m := BankMovement{Account: "055003730017", Description: "TRANSFERENCIA A CUENTA: 055003730157"}
	assert.Equal(t, InternalTransferOut, Classify(m))

	dest, ok := ExtractTransferDestination(m.Description)
	assert.True(t, ok)
	assert.Equal(t, "055003730157", dest)
}

func TestClassifyTaxKinds(t *testing.T) {
	assert.Equal(t, TaxSocialSecurity, Classify(BankMovement{Description: "PAGO IMSS JULIO"}))
	assert.Equal(t, TaxFederal, Classify(BankMovement{Description: "DECLARACION FEDERAL MENSUAL"}))
	assert.Equal(t, TaxState, Classify(BankMovement{Description: "NOMINA 3% ESTATAL"}))
}

func TestClassifyUnknownFallsBackWhenNoRuleMatches(t *testing.T) {
	m := BankMovement{Account: "055003730017", Description: "CONCEPTO SIN CLASIFICAR XYZ"}
	assert.Equal(t, Unknown, Classify(m))
}
