package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	safemath "github.com/luxfi/math"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skill-wager-system/apperr"
	"skill-wager-system/models"
)

// GormLedger keeps accounts and an append-only entry log in the service database.
type GormLedger struct {
	DB *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{DB: db}
}

// WithTx returns a ledger that runs every call on tx.
func (l *GormLedger) WithTx(tx *gorm.DB) Ledger {
	return &GormLedger{DB: tx}
}

// run executes fn in a transaction, or a savepoint when already inside one.
func (l *GormLedger) run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return l.DB.WithContext(ctx).Transaction(fn)
}

func lockAccount(tx *gorm.DB, participantID string) (*models.LedgerAccount, error) {
	var acct models.LedgerAccount
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("participant_id = ?", participantID).
		First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		acct = models.LedgerAccount{ID: uuid.NewString(), ParticipantID: participantID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&acct).Error; err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}
		// Re-read in case a concurrent writer won the insert.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("participant_id = ?", participantID).First(&acct).Error; err != nil {
			return nil, fmt.Errorf("load account: %w", err)
		}
		return &acct, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	return &acct, nil
}

func credit(tx *gorm.DB, participantID string, amount uint64) error {
	acct, err := lockAccount(tx, participantID)
	if err != nil {
		return err
	}
	balance, err := safemath.Add64(acct.Balance, amount)
	if err != nil {
		return apperr.Wrap(apperr.CodeOverflow, "balance of "+participantID, err)
	}
	if balance > models.MaxAmount {
		return apperr.ErrOverflow.With("balance of " + participantID)
	}
	return tx.Model(acct).Update("balance", balance).Error
}

func debit(tx *gorm.DB, participantID string, amount uint64) error {
	acct, err := lockAccount(tx, participantID)
	if err != nil {
		return err
	}
	if acct.Balance < amount {
		return apperr.ErrInsufficientFunds.With(fmt.Sprintf("balance %d, need %d", acct.Balance, amount))
	}
	return tx.Model(acct).Update("balance", acct.Balance-amount).Error
}

func record(tx *gorm.DB, reference, participantID string, kind models.LedgerEntryKind, amount uint64, externalRef *string) error {
	return tx.Create(&models.LedgerEntry{
		ID:            uuid.NewString(),
		Reference:     reference,
		ParticipantID: participantID,
		Kind:          kind,
		Amount:        amount,
		ExternalRef:   externalRef,
	}).Error
}

func (l *GormLedger) Escrow(ctx context.Context, settlementID, payer string, amount uint64) error {
	if amount == 0 {
		return apperr.ErrInvalidAmount
	}
	return l.run(ctx, func(tx *gorm.DB) error {
		if err := debit(tx, payer, amount); err != nil {
			return err
		}
		return record(tx, settlementID, payer, models.EntryEscrow, amount, nil)
	})
}

func (l *GormLedger) Payout(ctx context.Context, settlementID, recipient string, amount uint64) error {
	return l.release(ctx, settlementID, recipient, amount, models.EntryPayout)
}

func (l *GormLedger) Refund(ctx context.Context, settlementID, recipient string, amount uint64) error {
	return l.release(ctx, settlementID, recipient, amount, models.EntryRefund)
}

func (l *GormLedger) release(ctx context.Context, settlementID, recipient string, amount uint64, kind models.LedgerEntryKind) error {
	if amount == 0 {
		return nil
	}
	return l.run(ctx, func(tx *gorm.DB) error {
		h, err := held(tx, settlementID)
		if err != nil {
			return err
		}
		if h < amount {
			return apperr.ErrInsufficientFunds.With(fmt.Sprintf("settlement %s holds %d, release %d", settlementID, h, amount))
		}
		if err := credit(tx, recipient, amount); err != nil {
			return err
		}
		return record(tx, settlementID, recipient, kind, amount, nil)
	})
}

func (l *GormLedger) Held(ctx context.Context, settlementID string) (uint64, error) {
	return held(l.DB.WithContext(ctx), settlementID)
}

func held(tx *gorm.DB, reference string) (uint64, error) {
	var entries []models.LedgerEntry
	if err := tx.Where("reference = ? AND kind IN ?", reference,
		[]models.LedgerEntryKind{models.EntryEscrow, models.EntryPayout, models.EntryRefund}).
		Find(&entries).Error; err != nil {
		return 0, fmt.Errorf("load entries: %w", err)
	}
	var in, out uint64
	var err error
	for _, e := range entries {
		if e.Kind == models.EntryEscrow {
			in, err = safemath.Add64(in, e.Amount)
		} else {
			out, err = safemath.Add64(out, e.Amount)
		}
		if err != nil {
			return 0, apperr.Wrap(apperr.CodeOverflow, "held amount", err)
		}
	}
	if out > in {
		return 0, fmt.Errorf("settlement %s released %d of %d escrowed", reference, out, in)
	}
	return in - out, nil
}

// Deposit credits value arriving from custody. The external reference makes
// repeated deliveries of the same deposit a no-op; credited reports whether
// this call applied it.
func (l *GormLedger) Deposit(ctx context.Context, participantID string, amount uint64, externalRef string) (credited bool, err error) {
	if amount == 0 {
		return false, apperr.ErrInvalidAmount
	}
	if externalRef == "" {
		return false, apperr.ErrInvalidInput.With("deposit needs an external reference")
	}
	err = l.run(ctx, func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.LedgerEntry{}).Where("external_ref = ?", externalRef).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if err := credit(tx, participantID, amount); err != nil {
			return err
		}
		ref := externalRef
		if err := record(tx, "deposit:"+externalRef, participantID, models.EntryDeposit, amount, &ref); err != nil {
			return err
		}
		credited = true
		return nil
	})
	return credited, err
}

// Transfer moves value directly between two participants.
func (l *GormLedger) Transfer(ctx context.Context, reference, from, to string, amount uint64) error {
	if amount == 0 {
		return apperr.ErrInvalidAmount
	}
	if from == to {
		return apperr.ErrInvalidInput.With("cannot transfer to self")
	}
	return l.run(ctx, func(tx *gorm.DB) error {
		if err := debit(tx, from, amount); err != nil {
			return err
		}
		if err := credit(tx, to, amount); err != nil {
			return err
		}
		return record(tx, reference, to, models.EntryTransfer, amount, nil)
	})
}

// Balance returns a participant's spendable balance; unknown participants have zero.
func (l *GormLedger) Balance(ctx context.Context, participantID string) (uint64, error) {
	var acct models.LedgerAccount
	err := l.DB.WithContext(ctx).Where("participant_id = ?", participantID).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}
