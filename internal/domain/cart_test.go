package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "dot decimal", raw: "29.9", want: "29.9"},
		{name: "comma decimal", raw: "29,90", want: "29.9"},
		{name: "integer", raw: "150", want: "150"},
		{name: "surrounding spaces", raw: "  12.50 ", want: "12.5"},
		{name: "zero", raw: "0.00", want: "0"},
		{name: "empty", raw: "", wantErr: true},
		{name: "not a number", raw: "abc", wantErr: true},
		{name: "NaN literal", raw: "NaN", wantErr: true},
		{name: "negative", raw: "-1", wantErr: true},
		{name: "mixed separators", raw: "1.234,56", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPrice) {
					t.Fatalf("ParsePrice(%q) error = %v, want ErrInvalidPrice", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePrice(%q) unexpected error: %v", tt.raw, err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParsePrice(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"29.9", 2990},
		{"0.1", 10},
		{"19.995", 2000},
		{"19.994", 1999},
		{"0", 0},
		{"1234.56", 123456},
	}

	for _, tt := range tests {
		got := ToMinorUnits(decimal.RequireFromString(tt.amount))
		if got != tt.want {
			t.Errorf("ToMinorUnits(%s) = %d, want %d", tt.amount, got, tt.want)
		}
	}
}

func TestCartTotalAndCount(t *testing.T) {
	items := []LineItem{
		{ID: "sku1", Name: "Tee", Price: decimal.RequireFromString("29.9"), Quantity: 2},
		{ID: "sku2", Name: "Cap", Price: decimal.RequireFromString("0.1"), Quantity: 3},
	}

	if got := CartTotal(items); !got.Equal(decimal.RequireFromString("60.1")) {
		t.Errorf("CartTotal = %s, want 60.1", got)
	}
	if got := CartCount(items); got != 5 {
		t.Errorf("CartCount = %d, want 5", got)
	}

	if got := CartTotal(nil); !got.IsZero() {
		t.Errorf("CartTotal(nil) = %s, want 0", got)
	}
	if got := CartCount(nil); got != 0 {
		t.Errorf("CartCount(nil) = %d, want 0", got)
	}
}

func TestLineItemValidate(t *testing.T) {
	valid := LineItem{ID: "sku1", Name: "Tee", Price: decimal.RequireFromString("10"), Quantity: 1}
	if errs := valid.Validate(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}

	invalid := LineItem{ID: " ", Price: decimal.RequireFromString("-1"), Quantity: 0}
	errs := invalid.Validate()
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
}

func TestCheckoutRequestAmountMinor(t *testing.T) {
	req := CheckoutRequest{Items: []CheckoutItem{
		{Description: "Tee", Quantity: 2, Price: 2990},
		{Description: "Cap", Quantity: 1, Price: 1500},
	}}
	if got := req.AmountMinor(); got != 7480 {
		t.Errorf("AmountMinor = %d, want 7480", got)
	}
}

func TestIsCheckoutFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unavailable", ErrCheckoutUnavailable, true},
		{"wrapped rejected", errors.Join(ErrCheckoutRejected, errors.New("status 500")), true},
		{"missing url", ErrCheckoutURLMissing, true},
		{"empty cart", ErrEmptyCart, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCheckoutFailure(tt.err); got != tt.want {
				t.Errorf("IsCheckoutFailure() = %v, want %v", got, tt.want)
			}
		})
	}
}
