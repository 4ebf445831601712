package domain_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/corebank/internal/domain"
)

func amt(t *testing.T, s string) decimal.Decimal {
	t.Helper()

	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}

	return d
}

func TestJournalEntry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		lines   []domain.JournalLine
		wantErr error
	}{
		{
			name: "balanced two-line entry",
			lines: []domain.JournalLine{
				{AccountID: "acc-1", Type: domain.LineTypeDebit, Amount: amt(t, "40"), Currency: "USD"},
				{AccountID: "acc-2", Type: domain.LineTypeCredit, Amount: amt(t, "40"), Currency: "USD"},
			},
		},
		{
			name: "balanced multi-line entry",
			lines: []domain.JournalLine{
				{AccountID: "acc-1", Type: domain.LineTypeDebit, Amount: amt(t, "100"), Currency: "USD"},
				{AccountID: "acc-2", Type: domain.LineTypeCredit, Amount: amt(t, "60"), Currency: "USD"},
				{AccountID: "acc-3", Type: domain.LineTypeCredit, Amount: amt(t, "40"), Currency: "USD"},
			},
		},
		{
			name:    "no lines",
			lines:   nil,
			wantErr: domain.ErrEmptyEntry,
		},
		{
			name: "zero amount",
			lines: []domain.JournalLine{
				{AccountID: "acc-1", Type: domain.LineTypeDebit, Amount: decimal.Zero, Currency: "USD"},
				{AccountID: "acc-2", Type: domain.LineTypeCredit, Amount: decimal.Zero, Currency: "USD"},
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "negative amount",
			lines: []domain.JournalLine{
				{AccountID: "acc-1", Type: domain.LineTypeDebit, Amount: amt(t, "-5"), Currency: "USD"},
				{AccountID: "acc-2", Type: domain.LineTypeCredit, Amount: amt(t, "-5"), Currency: "USD"},
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			// An unknown type must not slip through as "balanced" by
			// contributing to neither sum.
			name: "unknown line type",
			lines: []domain.JournalLine{
				{AccountID: "acc-1", Type: "ADJUSTMENT", Amount: amt(t, "40"), Currency: "USD"},
				{AccountID: "acc-2", Type: "ADJUSTMENT", Amount: amt(t, "40"), Currency: "USD"},
			},
			wantErr: domain.ErrInvalidLineType,
		},
		{
			name: "currency mismatch",
			lines: []domain.JournalLine{
				{AccountID: "acc-1", Type: domain.LineTypeDebit, Amount: amt(t, "40"), Currency: "USD"},
				{AccountID: "acc-2", Type: domain.LineTypeCredit, Amount: amt(t, "40"), Currency: "EUR"},
			},
			wantErr: domain.ErrCurrencyMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &domain.JournalEntry{ID: "je-1", Reference: "ref-1", Lines: tt.lines}

			err := entry.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestJournalEntry_ValidateUnbalanced(t *testing.T) {
	entry := &domain.JournalEntry{
		ID: "je-1",
		Lines: []domain.JournalLine{
			{AccountID: "acc-1", Type: domain.LineTypeDebit, Amount: amt(t, "100"), Currency: "USD"},
			{AccountID: "acc-2", Type: domain.LineTypeCredit, Amount: amt(t, "90"), Currency: "USD"},
		},
	}

	err := entry.Validate()

	var unbalanced *domain.UnbalancedEntryError
	if !errors.As(err, &unbalanced) {
		t.Fatalf("got %v, want UnbalancedEntryError", err)
	}

	if !unbalanced.Debits.Equal(amt(t, "100")) || !unbalanced.Credits.Equal(amt(t, "90")) {
		t.Errorf("error sums = %s/%s, want 100/90", unbalanced.Debits, unbalanced.Credits)
	}
}

func TestJournalLine_SignedAmount(t *testing.T) {
	debit := domain.JournalLine{Type: domain.LineTypeDebit, Amount: amt(t, "25")}
	if !debit.SignedAmount().Equal(amt(t, "-25")) {
		t.Errorf("debit signed amount = %s, want -25", debit.SignedAmount())
	}

	credit := domain.JournalLine{Type: domain.LineTypeCredit, Amount: amt(t, "25")}
	if !credit.SignedAmount().Equal(amt(t, "25")) {
		t.Errorf("credit signed amount = %s, want 25", credit.SignedAmount())
	}
}

func TestAccount_ValidateDebit(t *testing.T) {
	acc := &domain.Account{ID: "acc-1", Balance: amt(t, "50"), Status: domain.AccountStatusActive}

	if err := acc.ValidateDebit(amt(t, "50")); err != nil {
		t.Errorf("exact-balance debit should pass: %v", err)
	}

	err := acc.ValidateDebit(amt(t, "80"))

	var insufficient *domain.InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("got %v, want InsufficientFundsError", err)
	}

	if !insufficient.Shortfall.Equal(amt(t, "30")) {
		t.Errorf("shortfall = %s, want 30", insufficient.Shortfall)
	}

	// System accounts may go negative.
	cash := &domain.Account{ID: "cash", Balance: decimal.Zero, AllowNegative: true}
	if err := cash.ValidateDebit(amt(t, "100")); err != nil {
		t.Errorf("negative-allowed account should accept any debit: %v", err)
	}
}
