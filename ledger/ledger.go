// Package ledger holds custody of staked value. Settlement code never touches
// balances directly; it asks the Ledger to move value keyed by settlement id.
package ledger

import (
	"context"

	"gorm.io/gorm"
)

// Ledger is the custody collaborator. Every call is atomic and fails closed.
type Ledger interface {
	// Escrow moves amount from payer's balance into the settlement's hold.
	Escrow(ctx context.Context, settlementID, payer string, amount uint64) error
	// Payout releases amount from the hold to recipient.
	Payout(ctx context.Context, settlementID, recipient string, amount uint64) error
	// Refund returns amount from the hold to a staker.
	Refund(ctx context.Context, settlementID, recipient string, amount uint64) error
	// Held is what the settlement still holds.
	Held(ctx context.Context, settlementID string) (uint64, error)
}

// TxBinder is implemented by ledgers that can join a caller's transaction so
// fund movements commit or roll back with the state change that caused them.
type TxBinder interface {
	WithTx(tx *gorm.DB) Ledger
}

// Bind returns l joined to tx when supported, otherwise l itself.
func Bind(l Ledger, tx *gorm.DB) Ledger {
	if b, ok := l.(TxBinder); ok {
		return b.WithTx(tx)
	}
	return l
}
