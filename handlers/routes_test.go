package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"skill-wager-system/achievements"
	"skill-wager-system/ledger"
	"skill-wager-system/middleware"
	"skill-wager-system/models"
	"skill-wager-system/rating"
	"skill-wager-system/services"
	"skill-wager-system/settlement"
)

type harness struct {
	app    *fiber.App
	clock  *clockwork.FakeClock
	ledger *ledger.GormLedger
}

func newHarness(t *testing.T) *harness {
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
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	book := ledger.NewGormLedger(db)
	params := rating.DefaultParams()
	prog := services.NewProgressionService(db, book, params, clock, log)
	settle := services.NewSettlementService(db, book, prog, settlement.DefaultPolicy(), "system", clock, log)
	ach := services.NewAchievementService(db, achievements.DefaultPolicy(), nil, nil, clock, log)
	mod := services.NewModerationService(db, prog, clock, log)
	season := services.NewSeasonService(db, params, clock, log)

	app := fiber.New()
	secured := app.Group("/s", middleware.UserContextMiddleware(log))
	SetupSettlementRoutes(secured, settle, log)
	SetupProgressionRoutes(secured, prog, ach, log)
	SetupAdminRoutes(secured, mod, season, log)
	return &harness{app: app, clock: clock, ledger: book}
}

func (h *harness) do(t *testing.T, method, path, user, roles string, body any) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	if roles != "" {
		req.Header.Set("X-User-Roles", roles)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (h *harness) fund(t *testing.T, who string, amount uint64) {
	t.Helper()
	_, err := h.ledger.Deposit(context.Background(), who, amount, uuid.NewString())
	require.NoError(t, err)
}

func TestSettlementLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	h.fund(t, "alice", 1000)
	h.fund(t, "bob", 1000)

	status, body := h.do(t, http.MethodPost, "/s/settlements", "alice", "", map[string]any{"match_id": 42, "game_id": "abc123", "stake": 100})
	require.Equal(t, fiber.StatusCreated, status, body)
	id := body["id"].(string)
	assert.Equal(t, "created", body["status"])

	status, body = h.do(t, http.MethodPost, "/s/settlements/"+id+"/join", "bob", "", map[string]any{"stake": 50})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "STAKE_MISMATCH", body["code"])

	status, _ = h.do(t, http.MethodPost, "/s/settlements/"+id+"/join", "bob", "", map[string]any{"stake": 100})
	require.Equal(t, fiber.StatusOK, status)

	for _, voter := range []string{"alice", "bob"} {
		status, body = h.do(t, http.MethodPost, "/s/settlements/"+id+"/vote", voter, "", map[string]any{"winner": "bob"})
		require.Equal(t, fiber.StatusOK, status, body)
	}
	assert.Equal(t, "retractable", body["status"])

	status, body = h.do(t, http.MethodPost, "/s/settlements/"+id+"/vote", "alice", "", map[string]any{"winner": "bob"})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "ALREADY_VOTED", body["code"])

	status, body = h.do(t, http.MethodPost, "/s/settlements/"+id+"/resolve", "bob", "", map[string]any{"winner": "bob"})
	assert.Equal(t, fiber.StatusTooEarly, status)
	assert.Equal(t, "VOTE_WINDOW_OPEN", body["code"])

	h.clock.Advance(5 * time.Minute)
	status, body = h.do(t, http.MethodPost, "/s/settlements/"+id+"/resolve", "bob", "", map[string]any{"winner": "bob", "duration_seconds": 300})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "resolved", body["settlement"].(map[string]any)["status"])
	assert.Contains(t, body["claimable"], "first_win")

	status, body = h.do(t, http.MethodGet, "/s/settlements/"+id, "carol", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "bob", body["winner"])

	status, body = h.do(t, http.MethodGet, "/s/settlements?status=resolved", "alice", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["settlements"], 1)

	status, body = h.do(t, http.MethodGet, "/s/user/profile/history", "bob", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])

	status, body = h.do(t, http.MethodPost, "/s/user/achievements/first_win/claim", "bob", "", nil)
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "failed", body["mint"].(map[string]any)["status"], "no minter configured")

	status, body = h.do(t, http.MethodGet, "/s/user/achievements", "bob", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["earned"])
}

func TestErrorMapping(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, http.MethodPost, "/s/settlements", "alice", "", map[string]any{"match_id": 1, "stake": 0})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_AMOUNT", body["code"])

	status, body = h.do(t, http.MethodGet, "/s/settlements/"+uuid.NewString(), "alice", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])

	status, _ = h.do(t, http.MethodGet, "/s/user/profile", "", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body = h.do(t, http.MethodPost, "/s/user/achievements/nope/claim", "alice", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status, "no profile yet")
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestProfileAndTips(t *testing.T) {
	h := newHarness(t)
	h.fund(t, "alice", 300)

	status, body := h.do(t, http.MethodGet, "/s/user/profile", "alice", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Bronze", body["rank_title"])
	assert.Equal(t, false, body["banned"])

	status, body = h.do(t, http.MethodPost, "/s/user/tips", "alice", "", map[string]any{"to": "bob", "amount": 120})
	require.Equal(t, fiber.StatusOK, status, body)

	status, body = h.do(t, http.MethodPost, "/s/user/tips", "alice", "", map[string]any{"to": "bob", "amount": 1000})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INSUFFICIENT_FUNDS", body["code"])
}

func TestAdminRoutes(t *testing.T) {
	h := newHarness(t)

	status, _ := h.do(t, http.MethodPost, "/s/admin/bans", "bob", "resolver", map[string]any{"participant_id": "alice", "duration_seconds": 60})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body := h.do(t, http.MethodPost, "/s/admin/bans", "mod", "moderator", map[string]any{"participant_id": "alice", "duration_seconds": 60})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, true, body["is_banned"])

	status, body = h.do(t, http.MethodPost, "/s/settlements", "alice", "", map[string]any{"match_id": 1, "stake": 10})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "PLAYER_BANNED", body["code"])

	status, _ = h.do(t, http.MethodPost, "/s/admin/season/reset", "mod", "moderator", nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = h.do(t, http.MethodPost, "/s/admin/season/reset", "root", "admin", nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.EqualValues(t, 2, body["current_season"])

	status, body = h.do(t, http.MethodGet, "/s/admin/platform", "root", "admin", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["total_players"])
}
