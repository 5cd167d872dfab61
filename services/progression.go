package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skill-wager-system/apperr"
	"skill-wager-system/ledger"
	"skill-wager-system/models"
	"skill-wager-system/rating"
)

// Tipper moves value directly between participants.
type Tipper interface {
	Transfer(ctx context.Context, reference, from, to string, amount uint64) error
}

type ProgressionService struct {
	DB     *gorm.DB
	Ledger ledger.Ledger
	Params rating.Params
	Clock  clockwork.Clock
	Log    *zap.Logger
}

func NewProgressionService(db *gorm.DB, l ledger.Ledger, params rating.Params, clock clockwork.Clock, log *zap.Logger) *ProgressionService {
	return &ProgressionService{DB: db, Ledger: l, Params: params, Clock: clock, Log: log}
}

// ensureProfile returns the locked profile of participantID, creating it at the
// baseline rating and counting the new player on the platform record.
func (s *ProgressionService) ensureProfile(tx *gorm.DB, participantID string, now time.Time) (*models.ParticipantProfile, bool, error) {
	if participantID == "" {
		return nil, false, apperr.ErrInvalidInput.With("participant id required")
	}
	var prof models.ParticipantProfile
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("participant_id = ?", participantID).First(&prof).Error
	if err == nil {
		return &prof, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	created := s.Params.NewProfile(participantID)
	created.ID = uuid.NewString()
	if err := tx.Create(created).Error; err != nil {
		return nil, false, fmt.Errorf("create profile: %w", err)
	}
	ps, err := lockPlatform(tx, now)
	if err != nil {
		return nil, false, err
	}
	if err := bumpCounter("total players", &ps.TotalPlayers, 1); err != nil {
		return nil, false, err
	}
	if err := tx.Save(ps).Error; err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func lockProfile(tx *gorm.DB, participantID string) (*models.ParticipantProfile, error) {
	var prof models.ParticipantProfile
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("participant_id = ?", participantID).First(&prof).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound.With("profile " + participantID)
	}
	if err != nil {
		return nil, err
	}
	return &prof, nil
}

// EnsureProfile idempotently creates a participant's profile and records the
// activity for streak tracking.
func (s *ProgressionService) EnsureProfile(ctx context.Context, participantID string) (*models.ParticipantProfile, error) {
	now := s.Clock.Now()
	var prof *models.ParticipantProfile
	var created bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		prof, created, err = s.ensureProfile(tx, participantID, now)
		if err != nil {
			return err
		}
		rating.RollOver(prof, now)
		rating.Touch(prof, now)
		return tx.Save(prof).Error
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.Log.Info("player_initialized", zap.String("participant_id", participantID))
	}
	return prof, nil
}

// SyncProfile mirrors the ban state held by the profile service, creating the
// profile when it is new.
func (s *ProgressionService) SyncProfile(ctx context.Context, participantID string, banned bool, banExpiresAt *time.Time) error {
	now := s.Clock.Now()
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prof, _, err := s.ensureProfile(tx, participantID, now)
		if err != nil {
			return err
		}
		prof.IsBanned = banned
		prof.BanExpiresAt = nil
		if banned {
			prof.BanExpiresAt = banExpiresAt
		}
		return tx.Save(prof).Error
	})
}

func (s *ProgressionService) Profile(ctx context.Context, participantID string) (*models.ParticipantProfile, error) {
	var prof models.ParticipantProfile
	err := s.DB.WithContext(ctx).Where("participant_id = ?", participantID).First(&prof).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound.With("profile " + participantID)
	}
	return &prof, err
}

// History pages through a participant's match results, newest first.
func (s *ProgressionService) History(ctx context.Context, participantID string, page, size int) ([]models.MatchResult, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	q := s.DB.WithContext(ctx).Model(&models.MatchResult{}).Where("participant_id = ?", participantID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var results []models.MatchResult
	err := q.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&results).Error
	return results, total, err
}

// Tip transfers value from the actor to another participant and counts it
// toward the tipper's lifetime total.
func (s *ProgressionService) Tip(ctx context.Context, actor Actor, to string, amount uint64) error {
	if amount == 0 {
		return apperr.ErrInvalidAmount
	}
	if to == "" || to == actor.ID {
		return apperr.ErrInvalidInput.With("tip recipient must be another participant")
	}
	tipper, ok := s.Ledger.(Tipper)
	if !ok {
		return fmt.Errorf("ledger does not support transfers")
	}
	now := s.Clock.Now()
	ref := "tip:" + uuid.NewString()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		from, _, err := s.ensureProfile(tx, actor.ID, now)
		if err != nil {
			return err
		}
		if from.BannedAt(now) {
			return apperr.ErrPlayerBanned
		}
		if _, _, err := s.ensureProfile(tx, to, now); err != nil {
			return err
		}
		if err := bumpCounter("total tipped", &from.TotalTipped, amount); err != nil {
			return err
		}
		if t, ok := ledger.Bind(s.Ledger, tx).(Tipper); ok {
			tipper = t
		}
		if err := tipper.Transfer(ctx, ref, actor.ID, to, amount); err != nil {
			return err
		}
		return tx.Save(from).Error
	})
	if err != nil {
		return err
	}
	s.Log.Info("tip_sent",
		zap.String("from", actor.ID), zap.String("to", to), zap.Uint64("amount", amount))
	return nil
}

// recordMatch applies a resolved settlement to both profiles and appends the
// match history. It runs inside the caller's transaction.
func (s *ProgressionService) recordMatch(tx *gorm.DB, st *models.Settlement, in ResolveInput, now time.Time) (rating.SideResult, rating.SideResult, error) {
	winnerID := *st.Winner
	loserID := st.Opponent(winnerID)

	// Lock in a fixed order so concurrent resolutions cannot deadlock.
	first, second := winnerID, loserID
	if second < first {
		first, second = second, first
	}
	locked := map[string]*models.ParticipantProfile{}
	for _, id := range []string{first, second} {
		p, _, err := s.ensureProfile(tx, id, now)
		if err != nil {
			return rating.SideResult{}, rating.SideResult{}, err
		}
		locked[id] = p
	}
	w, l := locked[winnerID], locked[loserID]

	mi := rating.MatchInput{
		Stake:    st.Stake,
		Duration: time.Duration(in.DurationSeconds) * time.Second,
		Now:      now,
	}
	if perf, ok := in.Performance[winnerID]; ok {
		mi.WinnerPerformance = &perf
	}
	if perf, ok := in.Performance[loserID]; ok {
		mi.LoserPerformance = &perf
	}
	for id, perf := range in.Performance {
		if !perf.Valid() {
			s.Log.Warn("performance rejected", zap.String("settlement_id", st.ID), zap.String("participant_id", id))
		}
	}

	wr, lr, err := s.Params.ApplyMatch(w, l, mi)
	if err != nil {
		return rating.SideResult{}, rating.SideResult{}, err
	}
	if err := tx.Save(w).Error; err != nil {
		return rating.SideResult{}, rating.SideResult{}, err
	}
	if err := tx.Save(l).Error; err != nil {
		return rating.SideResult{}, rating.SideResult{}, err
	}

	rows := []models.MatchResult{
		matchRow(st, winnerID, loserID, models.ResultWin, in.DurationSeconds, wr),
		matchRow(st, loserID, winnerID, models.ResultLoss, in.DurationSeconds, lr),
	}
	if err := tx.Create(&rows).Error; err != nil {
		return rating.SideResult{}, rating.SideResult{}, fmt.Errorf("record match history: %w", err)
	}
	return wr, lr, nil
}

func matchRow(st *models.Settlement, self, opponent, result string, duration uint64, r rating.SideResult) models.MatchResult {
	return models.MatchResult{
		ID:            uuid.NewString(),
		SettlementID:  st.ID,
		ParticipantID: self,
		OpponentID:    opponent,
		GameID:        st.GameID,
		Result:        result,
		Stake:         st.Stake,
		DurationSec:   duration,
		MuBefore:      r.MuBefore,
		MuAfter:       r.MuAfter,
		SigmaBefore:   r.SigmaBefore,
		SigmaAfter:    r.SigmaAfter,
		XPEarned:      r.XPEarned(),
	}
}
