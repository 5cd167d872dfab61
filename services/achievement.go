package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"skill-wager-system/achievements"
	"skill-wager-system/apperr"
	"skill-wager-system/models"
	"skill-wager-system/rating"
	"skill-wager-system/utils"
)

// MaxMintAttempts caps how often the scheduler retries one mint.
const MaxMintAttempts = 5

// Minter is the external achievement-token service.
type Minter interface {
	Mint(ctx context.Context, req MintPayload) error
}

// MetadataStore publishes mint metadata and returns its public URL.
type MetadataStore interface {
	PutJSON(ctx context.Context, key string, body []byte) (string, error)
}

type MintPayload struct {
	ParticipantID string `json:"participant_id"`
	Kind          string `json:"kind"`
	RecordID      string `json:"record_id"`
	MetadataURL   string `json:"metadata_url,omitempty"`
}

// AchievementMetadata is the document published for each minted achievement.
type AchievementMetadata struct {
	Name        string          `json:"name"`
	Kind        string          `json:"kind"`
	Season      uint32          `json:"season"`
	Participant string          `json:"participant"`
	ClaimedAt   time.Time       `json:"claimed_at"`
	Rank        string          `json:"rank"`
	Snapshot    json.RawMessage `json:"snapshot"`
}

// claimSnapshot is the part of the profile recorded with a claim.
type claimSnapshot struct {
	Wins          uint64 `json:"wins"`
	Losses        uint64 `json:"losses"`
	MatchesPlayed uint64 `json:"matches_played"`
	MaxStreak     uint32 `json:"max_streak"`
	TotalWagered  uint64 `json:"total_wagered"`
	TotalTipped   uint64 `json:"total_tipped"`
	XP            uint64 `json:"xp"`
	Rank          string `json:"rank"`
	LoginStreak   uint32 `json:"login_streak"`
	SeasonWins    uint32 `json:"season_wins"`
}

type ClaimResult struct {
	Record *models.AchievementRecord `json:"record"`
	Mint   *models.MintRequest       `json:"mint"`
}

type AchievementService struct {
	DB       *gorm.DB
	Policy   achievements.Policy
	Minter   Minter
	Metadata MetadataStore
	Clock    clockwork.Clock
	Log      *zap.Logger
}

func NewAchievementService(db *gorm.DB, policy achievements.Policy, minter Minter, metadata MetadataStore, clock clockwork.Clock, log *zap.Logger) *AchievementService {
	return &AchievementService{DB: db, Policy: policy, Minter: minter, Metadata: metadata, Clock: clock, Log: log}
}

// Claim records an achievement and then requests the mint. The bit and the
// record are committed before the mint is attempted; a mint failure leaves
// them in place and marks the request for retry.
func (s *AchievementService) Claim(ctx context.Context, participantID string, kind achievements.Kind) (*ClaimResult, error) {
	now := s.Clock.Now()
	res := &ClaimResult{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prof, err := lockProfile(tx, participantID)
		if err != nil {
			return err
		}
		def, err := s.Policy.Claim(prof, kind, now)
		if err != nil {
			return err
		}
		if err := tx.Save(prof).Error; err != nil {
			return err
		}
		ps, err := lockPlatform(tx, now)
		if err != nil {
			return err
		}
		snap, err := json.Marshal(snapshotOf(prof))
		if err != nil {
			return err
		}
		res.Record = &models.AchievementRecord{
			ID:            uuid.NewString(),
			ParticipantID: participantID,
			Kind:          string(def.Kind),
			Bit:           def.Bit,
			Season:        ps.CurrentSeason,
			Snapshot:      string(snap),
			ClaimedAt:     now,
		}
		if err := tx.Create(res.Record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.ErrAlreadyClaimed
			}
			return err
		}
		res.Mint = &models.MintRequest{
			ID:                  uuid.NewString(),
			AchievementRecordID: res.Record.ID,
			ParticipantID:       participantID,
			Kind:                res.Record.Kind,
			Status:              models.MintPending,
		}
		return tx.Create(res.Mint).Error
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("achievement_claimed",
		zap.String("participant_id", participantID),
		zap.String("kind", string(kind)),
		zap.String("record_id", res.Record.ID))

	if err := s.mint(ctx, res.Mint, res.Record); err != nil {
		s.Log.Warn("mint failed, will retry",
			zap.String("mint_id", res.Mint.ID), zap.Error(err))
	}
	return res, nil
}

func snapshotOf(p *models.ParticipantProfile) claimSnapshot {
	return claimSnapshot{
		Wins:          p.Wins,
		Losses:        p.Losses,
		MatchesPlayed: p.MatchesPlayed,
		MaxStreak:     p.MaxStreak,
		TotalWagered:  p.TotalWagered,
		TotalTipped:   p.TotalTipped,
		XP:            p.XP,
		Rank:          rating.RankName(p.Rank),
		LoginStreak:   p.LoginStreak,
		SeasonWins:    p.SeasonWins,
	}
}

// mint publishes metadata when a store is configured and calls the minter. The
// request row is updated either way; the profile is never touched.
func (s *AchievementService) mint(ctx context.Context, req *models.MintRequest, rec *models.AchievementRecord) error {
	now := s.Clock.Now()
	req.Attempts++

	err := s.publishAndMint(ctx, req, rec)
	if err != nil {
		req.Status = models.MintFailed
		req.LastError = err.Error()
	} else {
		req.Status = models.MintMinted
		req.LastError = ""
		req.MintedAt = &now
	}
	if saveErr := s.DB.WithContext(ctx).Save(req).Error; saveErr != nil {
		return errors.Join(err, fmt.Errorf("save mint request: %w", saveErr))
	}
	return err
}

func (s *AchievementService) publishAndMint(ctx context.Context, req *models.MintRequest, rec *models.AchievementRecord) error {
	if req.MetadataURL == "" && s.Metadata != nil {
		def, _ := achievements.Lookup(achievements.Kind(rec.Kind))
		var snap claimSnapshot
		if err := json.Unmarshal([]byte(rec.Snapshot), &snap); err != nil {
			return fmt.Errorf("decode claim snapshot of %s: %w", rec.ID, err)
		}
		body, err := json.Marshal(AchievementMetadata{
			Name:        def.Title,
			Kind:        rec.Kind,
			Season:      rec.Season,
			Participant: rec.ParticipantID,
			ClaimedAt:   rec.ClaimedAt,
			Rank:        snap.Rank,
			Snapshot:    json.RawMessage(rec.Snapshot),
		})
		if err != nil {
			return err
		}
		url, err := s.Metadata.PutJSON(ctx, utils.MetadataKey(rec.ParticipantID, rec.Kind, rec.ID), body)
		if err != nil {
			return fmt.Errorf("publish metadata: %w", err)
		}
		req.MetadataURL = url
	}
	if s.Minter == nil {
		return errors.New("no minter configured")
	}
	return s.Minter.Mint(ctx, MintPayload{
		ParticipantID: rec.ParticipantID,
		Kind:          rec.Kind,
		RecordID:      rec.ID,
		MetadataURL:   req.MetadataURL,
	})
}

// RetryPendingMints re-attempts pending and failed mints below the attempt cap.
func (s *AchievementService) RetryPendingMints(ctx context.Context) (int, error) {
	var reqs []models.MintRequest
	err := s.DB.WithContext(ctx).
		Where("status IN ? AND attempts < ?", []models.MintStatus{models.MintPending, models.MintFailed}, MaxMintAttempts).
		Order("created_at ASC").Limit(50).Find(&reqs).Error
	if err != nil {
		return 0, fmt.Errorf("load mint requests: %w", err)
	}

	minted := 0
	for i := range reqs {
		req := &reqs[i]
		var rec models.AchievementRecord
		if err := s.DB.WithContext(ctx).First(&rec, "id = ?", req.AchievementRecordID).Error; err != nil {
			s.Log.Error("mint request without record", zap.String("mint_id", req.ID), zap.Error(err))
			continue
		}
		if err := s.mint(ctx, req, &rec); err != nil {
			s.Log.Warn("mint retry failed",
				zap.String("mint_id", req.ID), zap.Uint32("attempts", req.Attempts), zap.Error(err))
			continue
		}
		minted++
	}
	return minted, nil
}

// AchievementView is a participant's claimed records and what they can claim now.
type AchievementView struct {
	Claimed   []models.AchievementRecord `json:"claimed"`
	Claimable []achievements.Kind        `json:"claimable"`
	Earned    uint32                     `json:"earned"`
}

func (s *AchievementService) List(ctx context.Context, participantID string) (*AchievementView, error) {
	var prof models.ParticipantProfile
	err := s.DB.WithContext(ctx).Where("participant_id = ?", participantID).First(&prof).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound.With("profile " + participantID)
	}
	if err != nil {
		return nil, err
	}
	view := &AchievementView{Claimable: achievements.Claimable(&prof), Earned: prof.AchievementsEarned}
	err = s.DB.WithContext(ctx).Where("participant_id = ?", participantID).
		Order("claimed_at ASC").Find(&view.Claimed).Error
	return view, err
}
