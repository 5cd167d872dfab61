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

// Depositor credits custody deposits idempotently by external reference.
type Depositor interface {
	Deposit(ctx context.Context, participantID string, amount uint64, externalRef string) (bool, error)
}

// RemoteDeposit is one confirmed deposit reported by the custody service.
type RemoteDeposit struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participant_id"`
	Amount        uint64    `json:"amount"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

type DepositSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Ledger     Depositor
	Clock      clockwork.Clock
	Log        *zap.Logger
}

func NewDepositSyncClient(baseURL, token string, l Depositor, clock clockwork.Clock, log *zap.Logger) *DepositSyncClient {
	return &DepositSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: utils.HTTPClient,
		Ledger:     l,
		Clock:      clock,
		Log:        log,
	}
}

func (c *DepositSyncClient) GetDeposits(ctx context.Context, since time.Time) ([]RemoteDeposit, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	u = u.JoinPath("/api/v1/public/deposits")
	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call custody service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("custody service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Deposits []RemoteDeposit `json:"deposits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode custody service response: %w", err)
	}
	return response.Deposits, nil
}

// SyncOnce credits every deposit confirmed since the cursor and returns the
// number newly credited and the advanced cursor.
func (c *DepositSyncClient) SyncOnce(ctx context.Context, since time.Time) (int, time.Time, error) {
	deposits, err := c.GetDeposits(ctx, since)
	if err != nil {
		return 0, since, err
	}
	credited := 0
	cursor := since
	for _, d := range deposits {
		ok, err := c.Ledger.Deposit(ctx, d.ParticipantID, d.Amount, d.ID)
		if err != nil {
			// Leave the cursor behind this deposit so it is retried.
			c.Log.Error("deposit credit failed", zap.String("deposit_id", d.ID), zap.Error(err))
			return credited, cursor, err
		}
		if ok {
			credited++
		}
		if d.ConfirmedAt.After(cursor) {
			cursor = d.ConfirmedAt
		}
	}
	return credited, cursor, nil
}

// PollDeposits runs SyncOnce every interval until ctx ends.
func PollDeposits(ctx context.Context, client *DepositSyncClient, interval time.Duration) {
	client.Log.Info("starting deposit polling", zap.Duration("interval", interval))
	cursor := client.Clock.Now().UTC().Add(-24 * time.Hour)

	ticker := client.Clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			client.Log.Info("deposit polling stopped")
			return
		case <-ticker.Chan():
			n, next, err := client.SyncOnce(ctx, cursor)
			cursor = next
			if err != nil {
				client.Log.Warn("deposit sync failed", zap.Error(err))
				continue
			}
			if n > 0 {
				client.Log.Info("deposits credited", zap.Int("count", n), zap.Time("cursor", cursor))
			}
		}
	}
}
