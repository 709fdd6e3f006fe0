package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCurrency    = errors.New("invalid currency code")
	ErrAmountTooLarge     = errors.New("amount exceeds maximum allowed")
	ErrAmountTooSmall     = errors.New("amount below minimum allowed")
	ErrInvalidDescription = errors.New("invalid description")
)

// Limits on what an operator may enter for a payment, expense or note.
const (
	MaxDescriptionLength = 500
	DefaultPageSize      = 50
	MaxPageSize          = 1000
)

var (
	// MinAmount is one cent in either currency.
	MinAmount = decimal.New(1, -2)
	// MaxAmount bounds a single movement at one trillion.
	MaxAmount = decimal.New(1, 12)
)

// ValidateAmount checks an entered payment or expense amount.
func ValidateAmount(amount decimal.Decimal) error {
	switch {
	case !amount.IsPositive():
		return ErrInvalidAmount
	case amount.LessThan(MinAmount):
		return fmt.Errorf("%w: minimum amount is %s", ErrAmountTooSmall, MinAmount)
	case amount.GreaterThan(MaxAmount):
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxAmount)
	}
	return nil
}

// ValidateDescription checks free text such as descriptions, notes and
// rejection reasons. Newlines and tabs are allowed.
func ValidateDescription(s string) error {
	if utf8.RuneCountInString(s) > MaxDescriptionLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidDescription, MaxDescriptionLength)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: not valid utf-8", ErrInvalidDescription)
	}
	if strings.IndexFunc(s, func(r rune) bool { return unicode.IsControl(r) && r != '\n' && r != '\t' }) >= 0 {
		return fmt.Errorf("%w: contains control characters", ErrInvalidDescription)
	}
	return nil
}

// ClampPage applies the default page size and caps limit at MaxPageSize.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return min(limit, MaxPageSize), max(offset, 0)
}
