package pricing

import (
	"encoding/json"
	"testing"

	"github.com/chonkyweb/petcare/services/booking-service/internal/model"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s = %s, want %s", name, got.String(), want)
	}
}

func TestComputeTotals_Flat(t *testing.T) {
	svc := model.Service{ID: 1, BasePrice: model.NewPrice("500")}
	b := ComputeTotals(svc, nil, nil)
	assertDec(t, "subtotal", b.Subtotal, "500")
	assertDec(t, "tax", b.Tax, "60")
	assertDec(t, "total", b.Total, "560")
	assertDec(t, "add-ons", b.AddOnsTotal, "0")
	if b.Size != nil {
		t.Fatal("flat service should not record a size")
	}
}

func TestComputeTotals_SizedWithAddOn(t *testing.T) {
	svc := model.Service{ID: 1, HasSizes: true, MediumPrice: model.NewPrice("800"), LargePrice: model.NewPrice("1000")}
	addOn := model.Service{ID: 9, IsSolo: true, CanBeAddon: true, AddonPrice: model.NewPrice("150")}
	size := model.SizeMedium

	b := ComputeTotals(svc, &size, []model.Service{addOn})
	assertDec(t, "service", b.ServicePrice, "800")
	assertDec(t, "add-ons", b.AddOnsTotal, "150")
	assertDec(t, "subtotal", b.Subtotal, "950")
	assertDec(t, "tax", b.Tax, "114")
	assertDec(t, "total", b.Total, "1064")
}

func TestComputeTotals_SizeSelection(t *testing.T) {
	svc := model.Service{
		HasSizes:        true,
		SmallPrice:      model.NewPrice("100"),
		MediumPrice:     model.NewPrice("200"),
		LargePrice:      model.NewPrice("300"),
		ExtraLargePrice: model.NewPrice("400"),
	}
	cases := []struct {
		size *model.Size
		want string
	}{
		{nil, "200"},
		{sizePtr("S"), "100"},
		{sizePtr("M"), "200"},
		{sizePtr("L"), "300"},
		{sizePtr("XL"), "400"},
		{sizePtr("Q"), "200"},
	}
	for _, tc := range cases {
		b := ComputeTotals(svc, tc.size, nil)
		assertDec(t, "service", b.ServicePrice, tc.want)
	}
}

func sizePtr(s string) *model.Size {
	v := model.Size(s)
	return &v
}

func TestComputeTotals_FailOpenOnBadPrice(t *testing.T) {
	var svc model.Service
	if err := json.Unmarshal([]byte(`{"id":3,"base_price":"N/A"}`), &svc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	b := ComputeTotals(svc, nil, nil)
	assertDec(t, "service", b.ServicePrice, "0")
	assertDec(t, "total", b.Total, "0")
}

func TestComputeTotals_TaxRounding(t *testing.T) {
	b := ComputeTotals(model.Service{BasePrice: model.NewPrice("333.33")}, nil, nil)
	assertDec(t, "tax", b.Tax, "40")
	assertDec(t, "total", b.Total, "373.33")

	// 8.375 * 0.12 = 1.005, rounded half-up.
	b = ComputeTotals(model.Service{BasePrice: model.NewPrice("8.375")}, nil, nil)
	assertDec(t, "tax", b.Tax, "1.01")
}
