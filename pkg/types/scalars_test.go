package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPriceQuantizesHalfUp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		value string
		prec  int32
		want  string
	}{
		{"rounds up at half", "100.125", 2, "100.13"},
		{"exact value unchanged", "100.50", 2, "100.50"},
		{"rounds down below half", "100.124", 2, "100.12"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d, err := decimal.NewFromString(tc.value)
			if err != nil {
				t.Fatalf("parse %s: %v", tc.value, err)
			}
			p := NewPrice(d, tc.prec)
			if p.String() != tc.want {
				t.Errorf("NewPrice(%s, %d) = %s, want %s", tc.value, tc.prec, p.String(), tc.want)
			}
		})
	}
}

func TestQuantityRejectsNegative(t *testing.T) {
	t.Parallel()

	_, err := NewQuantity(decimal.NewFromInt(-1), 0)
	if err == nil {
		t.Fatal("expected error constructing negative quantity")
	}
}

func TestMoneyAddRequiresSameCurrency(t *testing.T) {
	t.Parallel()

	a := NewMoneyFromFloat(10, USD)
	b := NewMoneyFromFloat(5, EUR)

	if _, err := a.Add(b); err == nil {
		t.Fatal("expected currency mismatch error")
	}

	c := NewMoneyFromFloat(5, USD)
	sum, err := a.Add(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sum.Amount().Equal(decimal.NewFromInt(15)) {
		t.Errorf("sum = %s, want 15", sum.Amount())
	}
}

func TestInstrumentIDRoundTrip(t *testing.T) {
	t.Parallel()

	id := NewInstrumentID("AAPL", "NASDAQ")
	parsed, err := ParseInstrumentID(id.String())
	if err != nil {
		t.Fatalf("parse %s: %v", id, err)
	}
	if !parsed.Equals(id) {
		t.Errorf("round trip mismatch: got %s, want %s", parsed, id)
	}
}

func TestParseInstrumentIDMalformed(t *testing.T) {
	t.Parallel()

	if _, err := ParseInstrumentID("nodot"); err == nil {
		t.Fatal("expected malformed instrument id error")
	}
}
