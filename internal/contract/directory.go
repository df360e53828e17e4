package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPDirectory resolves clients through the auth-user-service API.
type HTTPDirectory struct {
	BaseURL string
	Client  *http.Client
}

type clientEnvelope struct {
	Success bool   `json:"success"`
	Data    Client `json:"data"`
}

// GetClient fetches the renter's identity for document rendering.
func (d *HTTPDirectory) GetClient(ctx context.Context, clientID string) (*Client, error) {
	if d.Client == nil {
		d.Client = &http.Client{Timeout: 10 * time.Second}
	}
	url := fmt.Sprintf("%s/api/users/%s", d.BaseURL, clientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("auth service: status %d", resp.StatusCode)
	}
	var env clientEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("auth service: lookup rejected")
	}
	return &env.Data, nil
}
