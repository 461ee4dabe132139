// Package money renders decimal amounts for receipts and API display fields.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter prints amounts with a currency symbol and locale-aware grouping.
type Formatter struct {
	symbol  string
	printer *message.Printer
}

func NewFormatter(symbol, locale string) (*Formatter, error) {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return nil, fmt.Errorf("invalid currency locale %q: %w", locale, err)
	}
	return &Formatter{symbol: symbol, printer: message.NewPrinter(tag)}, nil
}

// Format renders amount with two decimals, e.g. ₱1,064.00. Negative amounts
// keep the sign in front of the symbol.
func (f *Formatter) Format(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	return sign + f.symbol + f.printer.Sprintf("%v", number.Decimal(rounded.InexactFloat64(), number.Scale(2)))
}
