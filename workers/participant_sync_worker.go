package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"skill-wager-system/utils"
)

// RemoteParticipant is the slice of the profile service record this service mirrors.
type RemoteParticipant struct {
	ExternalID   string     `json:"external_id"`
	IsBanned     bool       `json:"is_banned"`
	BanExpiresAt *time.Time `json:"ban_expires_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ProfileSyncer applies a mirrored participant to the local profile.
type ProfileSyncer interface {
	SyncProfile(ctx context.Context, participantID string, banned bool, banExpiresAt *time.Time) error
}

type ParticipantSyncWorker struct {
	baseURL      string
	endpointPath string
	serviceToken string
	interval     time.Duration
	httpClient   *http.Client
	profiles     ProfileSyncer
	clock        clockwork.Clock
	log          *zap.Logger
	cursor       time.Time
}

func NewParticipantSyncWorker(baseURL, endpointPath, token string, interval time.Duration, profiles ProfileSyncer, clock clockwork.Clock, log *zap.Logger) *ParticipantSyncWorker {
	return &ParticipantSyncWorker{
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: token,
		interval:     interval,
		httpClient:   utils.HTTPClient,
		profiles:     profiles,
		clock:        clock,
		log:          log,
	}
}

func (w *ParticipantSyncWorker) Start(ctx context.Context) {
	w.log.Info("starting participant sync worker", zap.Duration("interval", w.interval))
	go w.run(ctx)
}

func (w *ParticipantSyncWorker) run(ctx context.Context) {
	if _, err := w.SyncOnce(ctx); err != nil {
		w.log.Warn("initial participant sync failed", zap.Error(err))
	}

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if _, err := w.SyncOnce(ctx); err != nil {
				w.log.Warn("participant sync failed", zap.Error(err))
			}
		case <-ctx.Done():
			w.log.Info("participant sync worker stopped")
			return
		}
	}
}

// SyncOnce fetches participants changed since the last successful sync and
// mirrors them. It returns how many were applied.
func (w *ParticipantSyncWorker) SyncOnce(ctx context.Context) (int, error) {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return 0, fmt.Errorf("invalid sync service URL %q: %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", w.cursor.UTC().Format(time.RFC3339))
	endpointURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL.String(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP request to sync service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("sync service non-200 response: %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Participants []RemoteParticipant `json:"participants"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to decode sync service response: %w", err)
	}

	applied, failed := 0, 0
	latest := w.cursor
	for _, p := range response.Participants {
		if p.ExternalID == "" {
			continue
		}
		if err := w.profiles.SyncProfile(ctx, p.ExternalID, p.IsBanned, p.BanExpiresAt); err != nil {
			w.log.Warn("participant sync: apply failed", zap.String("participant_id", p.ExternalID), zap.Error(err))
			failed++
			continue
		}
		applied++
		if p.UpdatedAt.After(latest) {
			latest = p.UpdatedAt
		}
	}
	// Only advance past a fully applied batch.
	if failed == 0 {
		w.cursor = latest
	}
	if applied > 0 {
		w.log.Info("participants synced", zap.Int("applied", applied), zap.Int("failed", failed))
	}
	return applied, nil
}
