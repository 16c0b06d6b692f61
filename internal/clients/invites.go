package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Invitation is a single-use registration token for a debtor without a user
// account, issued by the identity collaborator.
type Invitation struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type InviteClient struct {
	baseURL string
	http    *http.Client
}

func NewInviteClient(baseURL string, timeout time.Duration) *InviteClient {
	return &InviteClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *InviteClient) IssueInvitation(ctx context.Context, debtorID int64, email string) (*Invitation, error) {
	body, err := json.Marshal(map[string]interface{}{
		"debtor_id": debtorID,
		"email":     email,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/invitations", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invite request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("invite service returned status %d", resp.StatusCode)
	}

	var inv Invitation
	if err := json.NewDecoder(resp.Body).Decode(&inv); err != nil {
		return nil, fmt.Errorf("invalid invite response: %w", err)
	}
	return &inv, nil
}
