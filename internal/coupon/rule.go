package coupon

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind is how a rule's value is applied.
type Kind string

const (
	KindPercent Kind = "percent"
	KindFixed   Kind = "fixed"
)

var hundred = decimal.NewFromInt(100)

// Rule is one line of a coupon file: CODE,KIND,VALUE[,MIN_SUBTOTAL].
type Rule struct {
	Code        string
	Kind        Kind
	Value       decimal.Decimal
	MinSubtotal decimal.Decimal
}

// Amount returns the discount for subtotal, rounded to cents and capped at subtotal.
func (r Rule) Amount(subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch r.Kind {
	case KindPercent:
		amount = subtotal.Mul(r.Value).Div(hundred).Round(2)
	default:
		amount = r.Value
	}

	if amount.GreaterThan(subtotal) {
		return subtotal
	}
	return amount
}

// ParseRule parses a single rule line.
func ParseRule(line string) (Rule, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 3 || len(fields) > 4 {
		return Rule{}, fmt.Errorf("expected 3 or 4 fields, got %d", len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	code := normalizeCode(fields[0])
	if !validCode(code) {
		return Rule{}, fmt.Errorf("invalid code %q", fields[0])
	}

	kind := Kind(strings.ToLower(fields[1]))
	value, err := decimal.NewFromString(fields[2])
	if err != nil {
		return Rule{}, fmt.Errorf("invalid value %q: %w", fields[2], err)
	}

	switch kind {
	case KindPercent:
		if !value.IsPositive() || value.GreaterThan(hundred) {
			return Rule{}, fmt.Errorf("percent value must be in (0, 100], got %s", value)
		}
	case KindFixed:
		if !value.IsPositive() {
			return Rule{}, fmt.Errorf("fixed value must be positive, got %s", value)
		}
	default:
		return Rule{}, fmt.Errorf("unknown kind %q", fields[1])
	}

	rule := Rule{Code: code, Kind: kind, Value: value}
	if len(fields) == 4 && fields[3] != "" {
		minSubtotal, err := decimal.NewFromString(fields[3])
		if err != nil || minSubtotal.IsNegative() {
			return Rule{}, fmt.Errorf("invalid minimum subtotal %q", fields[3])
		}
		rule.MinSubtotal = minSubtotal
	}

	return rule, nil
}

// readRules scans an uncompressed rule stream into a set. Blank lines and
// lines starting with '#' are skipped.
func readRules(ctx context.Context, r io.Reader, source string) (*mapRuleSet, error) {
	set := newMapRuleSet(1024)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%100_000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rule, err := ParseRule(line)
		if err != nil {
			return nil, fmt.Errorf("invalid coupon rule at %s:%d: %w", source, lineNo, err)
		}
		set.Add(rule)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading coupon file %s: %w", source, err)
	}

	return set, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validCode(code string) bool {
	if len(code) < 4 || len(code) > 20 {
		return false
	}
	for _, c := range code {
		if !(c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
