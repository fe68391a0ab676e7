// seed loads a small demo dataset: payment methods, two bank accounts and a
// product priced through every pricing source. Run it once on an empty database.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"

	"github.com/shopspring/decimal"

	"github.com/SediraYasser20/DOLX/internal/config"
	"github.com/SediraYasser20/DOLX/internal/core"
	"github.com/SediraYasser20/DOLX/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()
	backend, err := db.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer backend.Close()
	store := backend.Store

	log.Printf("Seeding %s backend...", backend.Name)

	log.Println("Restoring payment methods...")
	for code, label := range map[string]string{
		"VIR": "Bank transfer",
		"CHQ": "Cheque",
		"LIQ": "Cash",
		"CB":  "Card",
		"PRE": "Direct debit",
	} {
		if err := store.CreatePaymentMethod(ctx, code, label); err != nil {
			log.Fatalf("Failed to create payment method: %v", err)
		}
	}

	log.Println("Creating bank accounts...")
	for _, a := range []core.Account{
		{Ref: "BANK-EUR", Label: "Main current account", CurrencyCode: cfg.Posting.BaseCurrency},
		{Ref: "BANK-USD", Label: "USD account", CurrencyCode: "USD"},
	} {
		id, err := store.CreateAccount(ctx, a)
		if err != nil {
			log.Fatalf("Failed to create bank account: %v", err)
		}
		log.Printf("  %s -> id %d (%s)", a.Ref, id, a.CurrencyCode)
	}

	log.Println("Creating catalog...")
	productID, err := store.CreateProduct(ctx, core.Product{
		Ref:   "SVC-CONSULT",
		Label: "Consulting day",
		Price: core.PriceEntry{
			ExclTax:    decimal.NewNullDecimal(decimal.NewFromInt(90)),
			MinExclTax: decimal.NewFromInt(80),
			MinInclTax: decimal.NewFromInt(96),
			TaxRate:    "20 (FR-NORM)",
			Basis:      core.PriceBasisExclTax,
		},
	})
	if err != nil {
		log.Fatalf("Failed to create product: %v", err)
	}

	if err := store.SetLevelPrice(ctx, productID, 2, core.PriceEntry{
		ExclTax:    decimal.NewNullDecimal(decimal.NewFromInt(85)),
		MinExclTax: decimal.NewFromInt(75),
		TaxRate:    "20 (FR-NORM)",
		Basis:      core.PriceBasisExclTax,
	}); err != nil {
		log.Fatalf("Failed to set level price: %v", err)
	}

	if err := store.SetCustomerPrice(ctx, productID, 1, core.PriceEntry{
		ExclTax:    decimal.NewNullDecimal(decimal.NewFromInt(70)),
		MinExclTax: decimal.NewFromInt(65),
		TaxRate:    "20 (FR-NORM)",
		Basis:      core.PriceBasisExclTax,
	}); err != nil {
		log.Fatalf("Failed to set customer price: %v", err)
	}

	for _, b := range []core.QuantityBreak{
		{ProductID: productID, MinQuantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(88)},
		{ProductID: productID, MinQuantity: decimal.NewFromInt(50), UnitPrice: decimal.NewFromInt(84)},
	} {
		if err := store.AddQuantityBreak(ctx, b); err != nil {
			log.Fatalf("Failed to add quantity break: %v", err)
		}
	}
	log.Printf("  SVC-CONSULT -> id %d", productID)

	log.Println("Seed data restored successfully.")
}
