package domain

import "github.com/shopspring/decimal"

// MirrorCommandKind tags the variant of a mirror command.
type MirrorCommandKind string

const (
	MirrorDeposit  MirrorCommandKind = "DEPOSIT"
	MirrorWithdraw MirrorCommandKind = "WITHDRAW"
	MirrorTransfer MirrorCommandKind = "TRANSFER"
)

// MirrorCommand describes a committed ledger movement for the external
// ledger mirror. One tagged variant, one dispatcher: CounterpartyID is set
// only for transfers. Delivery is best-effort; the local ledger is the
// source of truth and a mirror failure never rolls it back.
type MirrorCommand struct {
	Kind           MirrorCommandKind `json:"kind"`
	AccountID      string            `json:"account_id"`
	CounterpartyID string            `json:"counterparty_id,omitempty"`
	Amount         decimal.Decimal   `json:"amount"`
	Currency       string            `json:"currency"`
	Reference      string            `json:"reference"`
}

// NewDepositCommand builds a DEPOSIT mirror command.
func NewDepositCommand(accountID string, amount decimal.Decimal, currency, reference string) MirrorCommand {
	return MirrorCommand{
		Kind:      MirrorDeposit,
		AccountID: accountID,
		Amount:    amount,
		Currency:  currency,
		Reference: reference,
	}
}

// NewWithdrawCommand builds a WITHDRAW mirror command.
func NewWithdrawCommand(accountID string, amount decimal.Decimal, currency, reference string) MirrorCommand {
	return MirrorCommand{
		Kind:      MirrorWithdraw,
		AccountID: accountID,
		Amount:    amount,
		Currency:  currency,
		Reference: reference,
	}
}

// NewTransferCommand builds a TRANSFER mirror command.
func NewTransferCommand(sourceID, destinationID string, amount decimal.Decimal, currency, reference string) MirrorCommand {
	return MirrorCommand{
		Kind:           MirrorTransfer,
		AccountID:      sourceID,
		CounterpartyID: destinationID,
		Amount:         amount,
		Currency:       currency,
		Reference:      reference,
	}
}
