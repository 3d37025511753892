package coupon

import (
	"context"
	"fmt"
	"sync"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// validator implements Validator over rule sets loaded at start-up.
// The sets are read-only after construction.
type validator struct {
	ruleSets []RuleSet
	logger   zerolog.Logger
}

// ValidatorConfig holds configuration for the coupon validator.
type ValidatorConfig struct {
	// FilePaths lists rule files in precedence order: a code defined in a
	// later file overrides the same code in an earlier one.
	FilePaths []string
}

// NewValidator loads all rule files concurrently and returns a validator.
// With no files configured every code is rejected.
func NewValidator(ctx context.Context, cfg ValidatorConfig, loader Loader, logger zerolog.Logger) (Validator, error) {
	logger = logger.With().Str("component", "coupon-validator").Logger()

	logger.Info().
		Int("file_count", len(cfg.FilePaths)).
		Msg("initialising coupon validator")

	type loadResult struct {
		set RuleSet
		err error
	}

	results := make([]loadResult, len(cfg.FilePaths))
	var wg sync.WaitGroup

	for i, path := range cfg.FilePaths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()
			set, err := loader.Load(ctx, path)
			results[index] = loadResult{set: set, err: err}
		}(i, path)
	}
	wg.Wait()

	v := &validator{
		ruleSets: make([]RuleSet, 0, len(cfg.FilePaths)),
		logger:   logger,
	}

	total := 0
	for i, result := range results {
		if result.err != nil {
			logger.Error().
				Err(result.err).
				Str("file", cfg.FilePaths[i]).
				Msg("failed to load coupon file")
			return nil, fmt.Errorf("failed to load coupon file %s: %w", cfg.FilePaths[i], result.err)
		}
		v.ruleSets = append(v.ruleSets, result.set)
		total += result.set.Size()
	}

	logger.Info().
		Int("total_rules", total).
		Msg("coupon validator initialised successfully")

	return v, nil
}

// Discount returns the discount a code grants on subtotal.
func (v *validator) Discount(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	normalized := normalizeCode(code)
	if !validCode(normalized) {
		v.logger.Debug().Int("length", len(code)).Msg("promo code format invalid")
		return decimal.Zero, model.ErrInvalidPromoCode
	}

	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	rule, ok := v.lookup(normalized)
	if !ok {
		v.logger.Debug().Str("promo_code", normalized).Msg("promo code not found")
		return decimal.Zero, model.ErrInvalidPromoCode
	}

	if subtotal.LessThan(rule.MinSubtotal) {
		v.logger.Debug().
			Str("promo_code", normalized).
			Str("subtotal", subtotal.String()).
			Str("min_subtotal", rule.MinSubtotal.String()).
			Msg("subtotal below promo code minimum")
		return decimal.Zero, model.NewDomainError(model.ErrCodeInvalidPromoCode,
			fmt.Sprintf("Promo code requires a minimum subtotal of %s", rule.MinSubtotal.StringFixed(2)))
	}

	amount := rule.Amount(subtotal)

	v.logger.Debug().
		Str("promo_code", normalized).
		Str("discount", amount.String()).
		Msg("promo code applied")

	return amount, nil
}

// lookup searches the newest file first so later files win.
func (v *validator) lookup(code string) (Rule, bool) {
	for i := len(v.ruleSets) - 1; i >= 0; i-- {
		if rule, ok := v.ruleSets[i].Lookup(code); ok {
			return rule, true
		}
	}
	return Rule{}, false
}

// Close releases the loaded rule sets.
func (v *validator) Close() error {
	v.ruleSets = nil
	v.logger.Info().Msg("coupon validator closed")
	return nil
}
