package coupon

import (
	"context"

	"github.com/shopspring/decimal"
)

// Validator defines the interface for coupon discount lookups.
type Validator interface {
	// Discount returns the amount a coupon takes off subtotal.
	// A usable code must:
	// - Be 4 to 20 alphanumeric characters long
	// - Appear in a loaded rule file
	// - Meet the rule's minimum subtotal, if any
	// The result never exceeds subtotal.
	Discount(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, error)

	// Close releases resources held by the validator.
	Close() error
}

// RuleSet is a lookup table of coupon rules keyed by code.
type RuleSet interface {
	// Lookup returns the rule for a code.
	Lookup(code string) (Rule, bool)

	// Size returns the number of rules in the set.
	Size() int
}

// Loader defines the interface for loading coupon rule files.
type Loader interface {
	// Load reads a gzipped rule file and returns a RuleSet.
	Load(ctx context.Context, filePath string) (RuleSet, error)
}
