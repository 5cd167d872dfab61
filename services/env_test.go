package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"skill-wager-system/achievements"
	"skill-wager-system/ledger"
	"skill-wager-system/models"
	"skill-wager-system/rating"
	"skill-wager-system/settlement"
)

var epoch = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type fakeMinter struct {
	mu    sync.Mutex
	err   error
	calls []MintPayload
}

func (f *fakeMinter) Mint(_ context.Context, p MintPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	return f.err
}

func (f *fakeMinter) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeMetadata struct {
	keys []string
}

func (f *fakeMetadata) PutJSON(_ context.Context, key string, _ []byte) (string, error) {
	f.keys = append(f.keys, key)
	return "https://cdn.test/" + key, nil
}

type testEnv struct {
	db          *gorm.DB
	clock       *clockwork.FakeClock
	ledger      *ledger.GormLedger
	minter      *fakeMinter
	metadata    *fakeMetadata
	progression *ProgressionService
	settlements *SettlementService
	achieve     *AchievementService
	moderation  *ModerationService
	seasons     *SeasonService
}

var errMintDown = errors.New("mint service unavailable")

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	log := zaptest.NewLogger(t)
	e := &testEnv{
		db:       db,
		clock:    clockwork.NewFakeClockAt(epoch),
		ledger:   ledger.NewGormLedger(db),
		minter:   &fakeMinter{},
		metadata: &fakeMetadata{},
	}
	params := rating.DefaultParams()
	e.progression = NewProgressionService(db, e.ledger, params, e.clock, log)
	e.settlements = NewSettlementService(db, e.ledger, e.progression, settlement.DefaultPolicy(), "system", e.clock, log)
	e.achieve = NewAchievementService(db, achievements.DefaultPolicy(), e.minter, e.metadata, e.clock, log)
	e.moderation = NewModerationService(db, e.progression, e.clock, log)
	e.seasons = NewSeasonService(db, params, e.clock, log)
	return e
}

func (e *testEnv) fund(t *testing.T, who string, amount uint64) {
	t.Helper()
	ok, err := e.ledger.Deposit(context.Background(), who, amount, uuid.NewString())
	require.NoError(t, err)
	require.True(t, ok)
}

func (e *testEnv) balance(t *testing.T, who string) uint64 {
	t.Helper()
	b, err := e.ledger.Balance(context.Background(), who)
	require.NoError(t, err)
	return b
}

func (e *testEnv) held(t *testing.T, id string) uint64 {
	t.Helper()
	h, err := e.ledger.Held(context.Background(), id)
	require.NoError(t, err)
	return h
}

func player(id string) Actor { return Actor{ID: id} }

// agreedWager opens, joins and has both players vote for winner.
func (e *testEnv) agreedWager(t *testing.T, a, b, winner string, matchID, stake uint64) *models.Settlement {
	t.Helper()
	ctx := context.Background()
	st, err := e.settlements.Create(ctx, player(a), CreateInput{MatchID: matchID, GameID: "g-1", Stake: stake})
	require.NoError(t, err)
	_, err = e.settlements.Join(ctx, player(b), st.ID, stake)
	require.NoError(t, err)
	_, err = e.settlements.Vote(ctx, player(a), st.ID, winner)
	require.NoError(t, err)
	st, err = e.settlements.Vote(ctx, player(b), st.ID, winner)
	require.NoError(t, err)
	require.Equal(t, models.SettlementRetractable, st.Status)
	return st
}
