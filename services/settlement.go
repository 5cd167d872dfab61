package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skill-wager-system/achievements"
	"skill-wager-system/apperr"
	"skill-wager-system/ledger"
	"skill-wager-system/models"
	"skill-wager-system/rating"
	"skill-wager-system/settlement"
)

// maxMatchSeconds bounds the reported match duration.
const maxMatchSeconds = 7 * 24 * 60 * 60

type CreateInput struct {
	MatchID             uint64 `json:"match_id"`
	GameID              string `json:"game_id"`
	Stake               uint64 `json:"stake"`
	RequiresArbitration bool   `json:"requires_arbitration"`
}

type ResolveInput struct {
	Winner          string                        `json:"winner"`
	DurationSeconds uint64                        `json:"duration_seconds"`
	Performance     map[string]rating.Performance `json:"performance,omitempty"` // keyed by participant id
}

// ResolveResult is what a resolution did to the settlement and both profiles.
type ResolveResult struct {
	Settlement *models.Settlement  `json:"settlement"`
	Winner     rating.SideResult   `json:"winner"`
	Loser      rating.SideResult   `json:"loser"`
	Claimable  []achievements.Kind `json:"claimable"` // newly claimable by the winner
}

type SettlementService struct {
	DB             *gorm.DB
	Ledger         ledger.Ledger
	Progression    *ProgressionService
	Policy         settlement.Policy
	SystemResolver string
	Clock          clockwork.Clock
	Log            *zap.Logger
}

func NewSettlementService(db *gorm.DB, l ledger.Ledger, progression *ProgressionService, policy settlement.Policy, systemResolver string, clock clockwork.Clock, log *zap.Logger) *SettlementService {
	return &SettlementService{
		DB:             db,
		Ledger:         l,
		Progression:    progression,
		Policy:         policy,
		SystemResolver: systemResolver,
		Clock:          clock,
		Log:            log,
	}
}

func lockSettlement(tx *gorm.DB, id string) (*models.Settlement, error) {
	var s models.Settlement
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound.With("settlement " + id)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// banCheck answers from profiles already locked by the operation.
func banCheck(now time.Time, profiles ...*models.ParticipantProfile) settlement.BanCheck {
	return func(id string) bool {
		for _, p := range profiles {
			if p.ParticipantID == id {
				return p.BannedAt(now)
			}
		}
		return false
	}
}

func (s *SettlementService) event(name string, st *models.Settlement, fields ...zap.Field) {
	s.Log.Info(name, append([]zap.Field{
		zap.String("settlement_id", st.ID),
		zap.Uint64("match_id", st.MatchID),
		zap.String("status", string(st.Status)),
	}, fields...)...)
}

// Create opens a settlement with the actor's stake in escrow.
func (s *SettlementService) Create(ctx context.Context, actor Actor, in CreateInput) (*models.Settlement, error) {
	now := s.Clock.Now()
	var st *models.Settlement
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		creator, _, err := s.Progression.ensureProfile(tx, actor.ID, now)
		if err != nil {
			return err
		}
		st, err = settlement.Open(actor.caller(), settlement.OpenInput{
			MatchID:             in.MatchID,
			GameID:              in.GameID,
			Stake:               in.Stake,
			RequiresArbitration: in.RequiresArbitration,
		}, now, banCheck(now, creator))
		if err != nil {
			return err
		}
		if err := tx.Create(st).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.ErrInvalidMatchID.With("a wager for this match already exists")
			}
			return fmt.Errorf("create settlement: %w", err)
		}
		if err := ledger.Bind(s.Ledger, tx).Escrow(ctx, st.ID, actor.ID, st.Stake); err != nil {
			return err
		}
		ps, err := lockPlatform(tx, now)
		if err != nil {
			return err
		}
		if err := bumpCounter("total settlements", &ps.TotalSettlements, 1); err != nil {
			return err
		}
		return tx.Save(ps).Error
	})
	if err != nil {
		return nil, err
	}
	s.event("wager_created", st, zap.String("player_a", st.PlayerA), zap.Uint64("stake", st.Stake), zap.String("game_id", st.GameID))
	return st, nil
}

// Join escrows the second stake.
func (s *SettlementService) Join(ctx context.Context, actor Actor, id string, stake uint64) (*models.Settlement, error) {
	now := s.Clock.Now()
	var st *models.Settlement
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if st, err = lockSettlement(tx, id); err != nil {
			return err
		}
		joiner, _, err := s.Progression.ensureProfile(tx, actor.ID, now)
		if err != nil {
			return err
		}
		creator, err := lockProfile(tx, st.PlayerA)
		if err != nil {
			return err
		}
		if err := settlement.Join(st, actor.caller(), stake, now, banCheck(now, creator, joiner)); err != nil {
			return err
		}
		if err := tx.Save(st).Error; err != nil {
			return err
		}
		return ledger.Bind(s.Ledger, tx).Escrow(ctx, st.ID, actor.ID, stake)
	})
	if err != nil {
		return nil, err
	}
	s.event("wager_joined", st, zap.String("player_b", st.PlayerB))
	return st, nil
}

// mutate runs a pure transition on a locked settlement and persists it.
func (s *SettlementService) mutate(ctx context.Context, id string, fn func(st *models.Settlement, now time.Time) error) (*models.Settlement, error) {
	now := s.Clock.Now()
	var st *models.Settlement
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if st, err = lockSettlement(tx, id); err != nil {
			return err
		}
		if err := fn(st, now); err != nil {
			return err
		}
		return tx.Save(st).Error
	})
	return st, err
}

func (s *SettlementService) Vote(ctx context.Context, actor Actor, id, winner string) (*models.Settlement, error) {
	st, err := s.mutate(ctx, id, func(st *models.Settlement, now time.Time) error {
		return settlement.Vote(st, actor.caller(), winner, now, s.Policy)
	})
	if err != nil {
		return nil, err
	}
	fields := []zap.Field{zap.String("voter", actor.ID), zap.String("voted_for", winner)}
	if st.RetractDeadline != nil {
		fields = append(fields, zap.Time("retract_deadline", *st.RetractDeadline))
	}
	s.event("vote_submitted", st, fields...)
	return st, nil
}

func (s *SettlementService) Retract(ctx context.Context, actor Actor, id string) (*models.Settlement, error) {
	st, err := s.mutate(ctx, id, func(st *models.Settlement, now time.Time) error {
		return settlement.Retract(st, actor.caller(), now)
	})
	if err != nil {
		return nil, err
	}
	s.event("vote_retracted", st, zap.String("voter", actor.ID))
	return st, nil
}

// disburse executes a release plan and sends anything left in the hold to the
// residual recipient. Afterwards the settlement holds nothing.
func disburse(ctx context.Context, l ledger.Ledger, id string, plan settlement.Disbursement) error {
	for _, t := range plan.Payouts {
		if err := l.Payout(ctx, id, t.Recipient, t.Amount); err != nil {
			return fmt.Errorf("payout to %s: %w", t.Recipient, err)
		}
	}
	for _, t := range plan.Refunds {
		if err := l.Refund(ctx, id, t.Recipient, t.Amount); err != nil {
			return fmt.Errorf("refund to %s: %w", t.Recipient, err)
		}
	}
	residual, err := l.Held(ctx, id)
	if err != nil {
		return err
	}
	if residual > 0 {
		if err := l.Payout(ctx, id, plan.ResidualTo, residual); err != nil {
			return fmt.Errorf("residual to %s: %w", plan.ResidualTo, err)
		}
	}
	return nil
}

// Resolve settles the wager, pays the pot and updates both profiles in one
// transaction.
func (s *SettlementService) Resolve(ctx context.Context, actor Actor, id string, in ResolveInput) (*ResolveResult, error) {
	if in.DurationSeconds > maxMatchSeconds {
		return nil, apperr.ErrInvalidInput.With("match duration out of range")
	}
	now := s.Clock.Now()
	res := &ResolveResult{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := lockSettlement(tx, id)
		if err != nil {
			return err
		}
		plan, err := settlement.Resolve(st, actor.caller(), in.Winner, now, s.Policy)
		if err != nil {
			return err
		}
		if err := tx.Save(st).Error; err != nil {
			return err
		}
		if err := disburse(ctx, ledger.Bind(s.Ledger, tx), st.ID, plan); err != nil {
			return err
		}

		res.Winner, res.Loser, err = s.Progression.recordMatch(tx, st, in, now)
		if err != nil {
			return err
		}

		pot, err := settlement.Escrowed(st)
		if err != nil {
			return err
		}
		ps, err := lockPlatform(tx, now)
		if err != nil {
			return err
		}
		if err := bumpCounter("total volume", &ps.TotalVolume, pot); err != nil {
			return err
		}
		if err := tx.Save(ps).Error; err != nil {
			return err
		}

		winner, err := lockProfile(tx, in.Winner)
		if err != nil {
			return err
		}
		res.Claimable = achievements.Claimable(winner)
		res.Settlement = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	st := res.Settlement
	s.event("wager_resolved", st,
		zap.String("winner", *st.Winner),
		zap.String("resolved_by", actor.ID),
		zap.Uint64("xp_winner", res.Winner.XPEarned()),
		zap.Uint64("xp_loser", res.Loser.XPEarned()))
	return res, nil
}

// ForceClose voids a stale settlement and refunds every stake.
func (s *SettlementService) ForceClose(ctx context.Context, actor Actor, id string) (*models.Settlement, error) {
	now := s.Clock.Now()
	var st *models.Settlement
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if st, err = lockSettlement(tx, id); err != nil {
			return err
		}
		plan, err := settlement.ForceClose(st, actor.caller(), now, s.Policy)
		if err != nil {
			return err
		}
		if err := tx.Save(st).Error; err != nil {
			return err
		}
		return disburse(ctx, ledger.Bind(s.Ledger, tx), st.ID, plan)
	})
	if err != nil {
		return nil, err
	}
	s.event("wager_voided", st, zap.String("closed_by", actor.ID))
	return st, nil
}

// FinalizeMatured resolves every agreed settlement whose retraction window has
// passed, acting as the system resolver. Failures are logged and skipped.
func (s *SettlementService) FinalizeMatured(ctx context.Context) (int, error) {
	var due []models.Settlement
	err := s.DB.WithContext(ctx).
		Where("status = ? AND retract_deadline <= ? AND vote_a IS NOT NULL AND vote_b IS NOT NULL",
			models.SettlementRetractable, s.Clock.Now()).
		Order("retract_deadline ASC").
		Limit(100).
		Find(&due).Error
	if err != nil {
		return 0, fmt.Errorf("load matured settlements: %w", err)
	}

	system := SystemActor(s.SystemResolver)
	done := 0
	for _, st := range due {
		if _, err := s.Resolve(ctx, system, st.ID, ResolveInput{Winner: *st.VoteA}); err != nil {
			s.Log.Warn("finalize matured settlement failed", zap.String("settlement_id", st.ID), zap.Error(err))
			continue
		}
		done++
	}
	return done, nil
}

func (s *SettlementService) Get(ctx context.Context, id string) (*models.Settlement, error) {
	var st models.Settlement
	err := s.DB.WithContext(ctx).First(&st, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound.With("settlement " + id)
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListForParticipant returns the participant's settlements, optionally filtered by status.
func (s *SettlementService) ListForParticipant(ctx context.Context, participantID string, status models.SettlementStatus) ([]models.Settlement, error) {
	q := s.DB.WithContext(ctx).Where("player_a = ? OR player_b = ?", participantID, participantID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Settlement
	err := q.Order("opened_at DESC").Limit(100).Find(&out).Error
	return out, err
}
