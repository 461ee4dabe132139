package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Price is a monetary amount read fail-open: numbers and numeric strings
// parse, anything else (null, "N/A", NaN, objects) becomes zero.
type Price struct {
	decimal.Decimal
}

func NewPrice(s string) Price {
	return ParsePrice(s)
}

// ParsePrice converts loosely typed price data. It never fails.
func ParsePrice(v any) Price {
	switch p := v.(type) {
	case Price:
		return p
	case *Price:
		if p != nil {
			return *p
		}
	case decimal.Decimal:
		return Price{p}
	case json.Number:
		return parsePriceString(p.String())
	case string:
		return parsePriceString(p)
	case []byte:
		return parsePriceString(string(p))
	case float64:
		if !math.IsNaN(p) && !math.IsInf(p, 0) {
			return Price{decimal.NewFromFloat(p)}
		}
	case float32:
		if f := float64(p); !math.IsNaN(f) && !math.IsInf(f, 0) {
			return Price{decimal.NewFromFloat32(p)}
		}
	case int:
		return Price{decimal.NewFromInt(int64(p))}
	case int32:
		return Price{decimal.NewFromInt32(p)}
	case int64:
		return Price{decimal.NewFromInt(p)}
	}
	return Price{Decimal: decimal.Zero}
}

func parsePriceString(s string) Price {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Price{Decimal: decimal.Zero}
	}
	return Price{Decimal: d}
}

// Scan implements sql.Scanner with the same fail-open rules.
func (p *Price) Scan(src any) error {
	*p = ParsePrice(src)
	return nil
}

func (p *Price) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		v = nil
	}
	*p = ParsePrice(v)
	return nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.StringFixed(2))
}
