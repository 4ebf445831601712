package money_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/corebank/internal/domain/money"
)

func dec(t *testing.T, s string) *decimal.Decimal {
	t.Helper()

	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}

	return &d
}

func TestAdd(t *testing.T) {
	tests := []struct {
		name string
		a    *decimal.Decimal
		b    *decimal.Decimal
		want string
	}{
		{"both present", dec(t, "10.5"), dec(t, "0.25"), "10.7500"},
		{"nil left operand", nil, dec(t, "5"), "5.0000"},
		{"nil right operand", dec(t, "5"), nil, "5.0000"},
		{"both nil", nil, nil, "0.0000"},
		{"excess precision rounds half up", dec(t, "0.00005"), dec(t, "0"), "0.0001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := money.Add(tt.a, tt.b)
			if money.Format(got) != tt.want {
				t.Errorf("Add() = %s, want %s", money.Format(got), tt.want)
			}
		})
	}
}

func TestSub(t *testing.T) {
	got := money.Sub(dec(t, "100"), dec(t, "40"))
	if money.Format(got) != "60.0000" {
		t.Errorf("Sub() = %s, want 60.0000", money.Format(got))
	}

	got = money.Sub(nil, dec(t, "40"))
	if money.Format(got) != "-40.0000" {
		t.Errorf("Sub(nil, 40) = %s, want -40.0000", money.Format(got))
	}
}

func TestMul(t *testing.T) {
	got := money.Mul(dec(t, "2.5"), dec(t, "4"))
	if money.Format(got) != "10.0000" {
		t.Errorf("Mul() = %s, want 10.0000", money.Format(got))
	}

	// Nil operand yields zero, not an error.
	got = money.Mul(nil, dec(t, "4"))
	if !got.IsZero() {
		t.Errorf("Mul(nil, 4) = %s, want 0", money.Format(got))
	}
}

func TestDiv(t *testing.T) {
	got, err := money.Div(dec(t, "10"), dec(t, "3"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if money.Format(got) != "3.3333" {
		t.Errorf("Div(10, 3) = %s, want 3.3333", money.Format(got))
	}

	_, err = money.Div(dec(t, "10.0000"), dec(t, "0"))
	if !errors.Is(err, money.ErrDivisionByZero) {
		t.Errorf("Div by zero: got %v, want ErrDivisionByZero", err)
	}

	got, err = money.Div(dec(t, "10"), nil)
	if err != nil || !got.IsZero() {
		t.Errorf("Div(10, nil) = %s, %v, want 0, nil", money.Format(got), err)
	}
}

func TestAbsMaxMin(t *testing.T) {
	if money.Format(money.Abs(dec(t, "-3.5"))) != "3.5000" {
		t.Error("Abs(-3.5) != 3.5000")
	}

	if money.Format(money.Abs(nil)) != "0.0000" {
		t.Error("Abs(nil) != 0.0000")
	}

	if money.Format(money.Max(dec(t, "1"), dec(t, "2"))) != "2.0000" {
		t.Error("Max(1, 2) != 2.0000")
	}

	if money.Format(money.Min(nil, dec(t, "2"))) != "0.0000" {
		t.Error("Min(nil, 2) != 0.0000")
	}
}

func TestParse(t *testing.T) {
	got, err := money.Parse("12.345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if money.Format(got) != "12.3457" {
		t.Errorf("Parse normalized to %s, want 12.3457", money.Format(got))
	}

	if _, err := money.Parse("not-a-number"); err == nil {
		t.Error("expected error for invalid input")
	}
}

func TestFormatFixedScale(t *testing.T) {
	got, _ := money.Parse("5")
	if money.Format(got) != "5.0000" {
		t.Errorf("Format(5) = %s, want 5.0000", money.Format(got))
	}
}
