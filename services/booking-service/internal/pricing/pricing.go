// Package pricing turns a service selection into a taxed total.
package pricing

import (
	"github.com/chonkyweb/petcare/services/booking-service/internal/model"
	"github.com/shopspring/decimal"
)

// VATRate is the flat value-added tax applied to every subtotal.
var VATRate = decimal.RequireFromString("0.12")

// SizePrice selects the tier price for a sized service. A nil size means Medium.
func SizePrice(svc model.Service, size *model.Size) decimal.Decimal {
	sel := model.SizeMedium
	if size != nil {
		sel = model.ParseSize(string(*size))
	}
	table := map[model.Size]model.Price{
		model.SizeSmall:      svc.SmallPrice,
		model.SizeMedium:     svc.MediumPrice,
		model.SizeLarge:      svc.LargePrice,
		model.SizeExtraLarge: svc.ExtraLargePrice,
	}
	return table[sel].Decimal
}

// ComputeTotals prices svc with the chosen size and attached add-ons.
// Tax is rounded half-up to centavos; the total is subtotal plus tax.
func ComputeTotals(svc model.Service, size *model.Size, addOns []model.Service) model.Breakdown {
	var b model.Breakdown
	if svc.HasSizes {
		sel := model.SizeMedium
		if size != nil {
			sel = model.ParseSize(string(*size))
		}
		b.Size = &sel
		b.ServicePrice = SizePrice(svc, &sel)
	} else {
		b.ServicePrice = svc.BasePrice.Decimal
	}

	b.AddOnsTotal = decimal.Zero
	for _, a := range addOns {
		b.AddOnsTotal = b.AddOnsTotal.Add(a.AddonPrice.Decimal)
	}
	b.Subtotal = b.ServicePrice.Add(b.AddOnsTotal)
	b.Tax = b.Subtotal.Mul(VATRate).Round(2)
	b.Total = b.Subtotal.Add(b.Tax)
	return b
}
