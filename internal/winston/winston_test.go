package winston_test

import (
	"testing"

	"github.com/permalab/permaweb-agent/internal/winston"
	"github.com/shopspring/decimal"
)

func TestParse_Valid(t *testing.T) {
	a, err := winston.Parse("1000000000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.String() != "1000000000000" {
		t.Errorf("unexpected wire form: %s", a)
	}
	if !a.AR().Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1 AR, got %s", a.AR())
	}
}

func TestParse_TrimsWhitespace(t *testing.T) {
	a, err := winston.Parse("  42  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.String() != "42" {
		t.Errorf("expected trimmed value 42, got %s", a)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, s := range []string{"", "1.5", "-1", "abc", "1e12", "+5"} {
		if _, err := winston.Parse(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestParsePositive_RejectsZero(t *testing.T) {
	if _, err := winston.ParsePositive("0"); err == nil {
		t.Error("expected error for zero amount")
	}
	if _, err := winston.ParsePositive("1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFromAR_Truncates(t *testing.T) {
	// 0.5 AR plus a sub-winston fraction
	ar := decimal.RequireFromString("0.5000000000000004")
	a, err := winston.FromAR(ar)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.String() != "500000000000" {
		t.Errorf("expected truncation to 500000000000, got %s", a)
	}
}

func TestFromAR_RejectsNegative(t *testing.T) {
	if _, err := winston.FromAR(decimal.NewFromInt(-1)); err == nil {
		t.Error("expected error for negative AR")
	}
}

func TestSub_GuardsUnderflow(t *testing.T) {
	one, _ := winston.FromInt64(1)
	two, _ := winston.FromInt64(2)

	if _, err := one.Sub(two); err == nil {
		t.Error("expected underflow error")
	}

	diff, err := two.Sub(one)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff.String() != "1" {
		t.Errorf("expected 1, got %s", diff)
	}
}

func TestAddCmp(t *testing.T) {
	a, _ := winston.FromInt64(10)
	b, _ := winston.FromInt64(32)

	if a.Add(b).String() != "42" {
		t.Errorf("expected 42, got %s", a.Add(b))
	}
	if a.Cmp(b) != -1 || b.Cmp(a) != 1 || a.Cmp(a) != 0 {
		t.Error("unexpected comparison results")
	}
}

func TestZeroValue(t *testing.T) {
	var a winston.Amount
	if !a.IsZero() {
		t.Error("zero value should report IsZero")
	}
	if a.String() != "0" {
		t.Errorf("expected 0, got %s", a)
	}
}
