package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"skill-wager-system/apperr"
	"skill-wager-system/models"
)

func newTestLedger(t *testing.T) *GormLedger {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.LedgerAccount{}, &models.LedgerEntry{}))
	return NewGormLedger(db)
}

func fund(t *testing.T, l *GormLedger, who string, amount uint64) {
	t.Helper()
	ok, err := l.Deposit(context.Background(), who, amount, uuid.NewString())
	require.NoError(t, err)
	require.True(t, ok)
}

func balance(t *testing.T, l *GormLedger, who string) uint64 {
	t.Helper()
	b, err := l.Balance(context.Background(), who)
	require.NoError(t, err)
	return b
}

func TestEscrowAndPayout(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	fund(t, l, "alice", 150)
	fund(t, l, "bob", 100)

	require.NoError(t, l.Escrow(ctx, "s1", "alice", 100))
	require.NoError(t, l.Escrow(ctx, "s1", "bob", 100))
	assert.Equal(t, uint64(50), balance(t, l, "alice"))
	assert.Zero(t, balance(t, l, "bob"))

	held, err := l.Held(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, uint64(200), held)

	require.ErrorIs(t, l.Payout(ctx, "s1", "alice", 201), apperr.ErrInsufficientFunds)
	require.NoError(t, l.Payout(ctx, "s1", "alice", 200))
	assert.Equal(t, uint64(250), balance(t, l, "alice"))

	held, err = l.Held(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, held)
}

func TestEscrowFailsClosed(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	fund(t, l, "alice", 10)

	err := l.Escrow(ctx, "s1", "alice", 11)
	require.ErrorIs(t, err, apperr.ErrInsufficientFunds)
	assert.Equal(t, uint64(10), balance(t, l, "alice"))

	held, err := l.Held(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, held)

	require.ErrorIs(t, l.Escrow(ctx, "s1", "alice", 0), apperr.ErrInvalidAmount)
}

func TestRefund(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	fund(t, l, "alice", 40)
	require.NoError(t, l.Escrow(ctx, "s2", "alice", 40))
	require.NoError(t, l.Refund(ctx, "s2", "alice", 40))
	assert.Equal(t, uint64(40), balance(t, l, "alice"))
	require.ErrorIs(t, l.Refund(ctx, "s2", "alice", 1), apperr.ErrInsufficientFunds)
}

func TestDepositIdempotent(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	ok, err := l.Deposit(ctx, "alice", 500, "tx-1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.Deposit(ctx, "alice", 500, "tx-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(500), balance(t, l, "alice"))

	_, err = l.Deposit(ctx, "alice", 1, "")
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestBalanceStaysInColumnRange(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	fund(t, l, "alice", models.MaxAmount)

	_, err := l.Deposit(ctx, "alice", 1, "tx-over")
	require.ErrorIs(t, err, apperr.ErrOverflow)
	assert.Equal(t, models.MaxAmount, balance(t, l, "alice"))
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	fund(t, l, "alice", 30)

	require.NoError(t, l.Transfer(ctx, "tip-1", "alice", "bob", 20))
	assert.Equal(t, uint64(10), balance(t, l, "alice"))
	assert.Equal(t, uint64(20), balance(t, l, "bob"))

	require.ErrorIs(t, l.Transfer(ctx, "tip-2", "alice", "bob", 11), apperr.ErrInsufficientFunds)
	require.ErrorIs(t, l.Transfer(ctx, "tip-3", "alice", "alice", 1), apperr.ErrInvalidInput)
}

func TestBindJoinsTransaction(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	fund(t, l, "alice", 100)

	err := l.DB.Transaction(func(tx *gorm.DB) error {
		if err := Bind(l, tx).Escrow(ctx, "s3", "alice", 60); err != nil {
			return err
		}
		return apperr.ErrInvalidStatus
	})
	require.ErrorIs(t, err, apperr.ErrInvalidStatus)
	assert.Equal(t, uint64(100), balance(t, l, "alice"), "escrow rolls back with the outer transaction")
}
