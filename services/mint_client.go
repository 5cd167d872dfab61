package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"skill-wager-system/utils"
)

// MintClient calls the external achievement mint service.
type MintClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewMintClient(baseURL, token string) *MintClient {
	return &MintClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  utils.HTTPClient,
	}
}

// Mint posts one mint request. Any non-2xx status is a failure.
func (c *MintClient) Mint(ctx context.Context, p MintPayload) error {
	jsonData, err := json.Marshal(p)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/mints", bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Idempotency-Key", p.RecordID)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("call mint service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mint service returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
