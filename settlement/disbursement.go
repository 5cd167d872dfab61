package settlement

import (
	"fmt"

	safemath "github.com/luxfi/math"

	"skill-wager-system/apperr"
	"skill-wager-system/models"
)

// Transfer is one movement out of a settlement's escrow.
type Transfer struct {
	Recipient string
	Amount    uint64
}

// Disbursement is the full release of a settlement's escrow. After Payouts and
// Refunds are executed, anything still held is sent to ResidualTo.
type Disbursement struct {
	Payouts    []Transfer
	Refunds    []Transfer
	ResidualTo string
}

// Total sums every planned transfer.
func (d Disbursement) Total() (uint64, error) {
	var total uint64
	for _, ts := range [][]Transfer{d.Payouts, d.Refunds} {
		for _, t := range ts {
			next, err := safemath.Add64(total, t.Amount)
			if err != nil {
				return 0, apperr.Wrap(apperr.CodeOverflow, "disbursement total", err)
			}
			total = next
		}
	}
	return total, nil
}

// Escrowed returns how much has been staked into s so far.
func Escrowed(s *models.Settlement) (uint64, error) {
	if s.PlayerB == "" {
		return s.Stake, nil
	}
	pot, err := safemath.Add64(s.Stake, s.Stake)
	if err != nil {
		return 0, fmt.Errorf("%w: pot of %d", apperr.ErrOverflow, s.Stake)
	}
	return pot, nil
}
