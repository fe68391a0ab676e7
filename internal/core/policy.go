package core

// PricingPolicy carries the pricing switches of a deployment.
type PricingPolicy struct {
	// EnforceMinimumPrice enables the floor check. When false no violation is ever reported.
	EnforceMinimumPrice bool `json:"enforce_minimum_price"`

	// OverrideProductPrice lets a manual price replace the product's unit price.
	// The floor of the winning source still applies.
	OverrideProductPrice bool `json:"override_product_price"`
}

// DefaultPricingPolicy returns the policy used when nothing is configured.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{EnforceMinimumPrice: true}
}

// PostingPolicy carries the ledger posting switches of a deployment.
type PostingPolicy struct {
	// RequireAccountingCode makes AccountingCode mandatory on every movement.
	RequireAccountingCode bool `json:"require_accounting_code"`

	// AllowCrossCurrencyLedger skips the movement/account currency check.
	AllowCrossCurrencyLedger bool `json:"allow_cross_currency_ledger"`

	// BaseCurrency is assumed for movements without an explicit currency.
	BaseCurrency string `json:"base_currency"`
}

// DefaultPostingPolicy returns the policy used when nothing is configured.
func DefaultPostingPolicy() PostingPolicy {
	return PostingPolicy{BaseCurrency: "EUR"}
}
