package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.etcd.io/bbolt"

	"reconbank"
)

// Walks the engine through one statement day combining a card-deposit
// settlement, a wire-fee pair, and an internal transfer, then a second day
// exercising the social-security retention processor's M-2 lookup.
func main() {
	dbFile := "reconbank_demo.db"
	os.Remove(dbFile)

	cfg := reconbank.DefaultConfig()
	cfg.DBPath = dbFile
	reconbank.SetLogLevel(cfg.LogLevel)

	engine, err := reconbank.NewEngine(cfg)
	if err != nil {
		log.Fatalf("open engine: %v", err)
	}
	defer engine.Close()
	defer os.Remove(dbFile)

	fmt.Println("reconbank demo")
	fmt.Println("==============")

	seedInvoiceTaxBreakdown(engine.Storage, "FD", "9001", decimal.NewFromFloat(29706.97), decimal.Zero)
	seedMonthlyLedgerCredit(engine.Storage, "2140", "010000", 2026, 5, decimal.NewFromFloat(14548.30))

	day1 := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)

	close1 := reconbank.DailyClose{
		CloseDate:   day1,
		SheetName:   "06-07",
		GlobalNumber: "9001",
		TotalCard:   decimal.NewFromFloat(215370.52),
		TotalCash:   decimal.Zero,
		TotalSales:  decimal.NewFromFloat(215370.52),
	}

	movements := []reconbank.BankMovement{
		{
			Date: day1, Account: "038900320016", SourceSheet: "Banregio T",
			Description: "DEPOSITO TDC CORTE 06-07",
			Credit:      decimal.NewFromFloat(215370.52),
		},
		{
			Date: day1, Account: "055003730017", SourceSheet: "Banregio F",
			Description: "COMISION TRANSFERENCIA SPEI",
			Debit:       decimal.NewFromFloat(30),
		},
		{
			Date: day1, Account: "055003730017", SourceSheet: "Banregio F",
			Description: "IVA COMISION TRANSFERENCIA SPEI",
			Debit:       decimal.NewFromFloat(4.80),
		},
		{
			Date: day1, Account: "055003730017", SourceSheet: "Banregio F",
			Description: "TRANSFERENCIA A CUENTA: 055003730157",
			Debit:       decimal.NewFromFloat(500000),
		},
	}

	fmt.Printf("\nday 1: %s\n", day1.Format("2006-01-02"))
	result1, err := engine.RunDay(day1, movements, reconbank.DaySideChannel{Close: close1}, nil)
	if err != nil {
		log.Fatalf("run day 1: %v", err)
	}
	printResults(result1)

	ssTax := &reconbank.SSTax{
		PayDate:       time.Date(2026, 7, 17, 0, 0, 0, 0, time.UTC),
		Total:         decimal.NewFromFloat(93880.17),
		Bimestrial:    false,
		Confidence100: true,
	}
	day2 := ssTax.PayDate
	day2Movements := []reconbank.BankMovement{
		{
			Date: day2, Account: "055003730017", SourceSheet: "Banregio F",
			Description: "PAGO IMSS SUA JULIO 2026",
			Debit:       decimal.NewFromFloat(93880.17),
		},
	}

	fmt.Printf("\nday 2: %s\n", day2.Format("2006-01-02"))
	result2, err := engine.RunDay(day2, day2Movements, reconbank.DaySideChannel{SSTax: ssTax}, nil)
	if err != nil {
		log.Fatalf("run day 2: %v", err)
	}
	printResults(result2)

	fmt.Println("\nre-running day 1 to confirm idempotency")
	result1Again, err := engine.RunDay(day1, movements, reconbank.DaySideChannel{Close: close1}, nil)
	if err != nil {
		log.Fatalf("re-run day 1: %v", err)
	}
	printResults(result1Again)
}

func printResults(result reconbank.DispatchResult) {
	for _, r := range result.Results {
		note := r.Note
		if note == "" {
			note = "-"
		}
		fmt.Printf("  %-24s %-16s %-14s folios=%v note=%s\n", r.Movement.Description, r.Kind, r.Action, r.Folios, note)
	}
	if len(result.HeldForNextDay) > 0 {
		fmt.Printf("  held for next day: %d movement(s)\n", len(result.HeldForNextDay))
	}
}

func seedInvoiceTaxBreakdown(storage *reconbank.Storage, series, number string, vat, ieps decimal.Decimal) {
	err := storage.Update(func(tx *bbolt.Tx) error {
		return storage.PutInvoiceTaxBreakdown(tx, reconbank.InvoiceTaxBreakdown{
			Series: series, Number: number,
			VATDec: vat.String(), IEPSDec: ieps.String(),
		})
	})
	if err != nil {
		log.Fatalf("seed invoice tax breakdown: %v", err)
	}
}

// seedMonthlyLedgerCredit seeds May 2026's retention credit balance so the
// social-security processor's M-2 look-back (two months before the July
// pay date) has something to find.
func seedMonthlyLedgerCredit(storage *reconbank.Storage, account, subaccount string, year, month int, amount decimal.Decimal) {
	var credits [12]string
	for i := range credits {
		credits[i] = "0"
	}
	credits[month-1] = amount.String()

	err := storage.Update(func(tx *bbolt.Tx) error {
		return storage.PutLedgerBalance(tx, reconbank.LedgerBalanceRow{
			Account: account, SubAccount: subaccount,
			PeriodYear: year, CreditsByMonth: credits,
		})
	})
	if err != nil {
		log.Fatalf("seed monthly ledger credit: %v", err)
	}
}
