package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ekrini-reservation/internal/pkg/errs"
)

// Car is the subset of the fleet-service car document the booking flow needs.
type Car struct {
	CarID     string  `json:"carId"`
	Brand     string  `json:"brand"`
	Model     string  `json:"model"`
	DailyRate float64 `json:"dailyRate"`
	Status    string  `json:"status"`
}

// Service defines what the booking engine needs from the fleet service.
// GetCar and CheckAvailability are load-bearing; UpdateStatus is best-effort.
type Service interface {
	GetCar(ctx context.Context, carID string) (*Car, error)
	CheckAvailability(ctx context.Context, carIDs []string, start, end time.Time) ([]string, error)
	UpdateStatus(ctx context.Context, carID, status string) error
}

// HTTPClient is a Service backed by the fleet-service HTTP API.
type HTTPClient struct {
	BaseURL string
	Client  *http.Client
}

type carEnvelope struct {
	Success bool `json:"success"`
	Data    Car  `json:"data"`
}

type availabilityEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Available []string `json:"available"`
	} `json:"data"`
}

func (c *HTTPClient) httpClient() *http.Client {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 10 * time.Second}
	}
	return c.Client
}

// GetCar fetches car details. Unknown cars surface as errs.ErrNotFound.
func (c *HTTPClient) GetCar(ctx context.Context, carID string) (*Car, error) {
	url := fmt.Sprintf("%s/api/cars/%s", c.BaseURL, carID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, errs.Dependency("fleet service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errs.NotFound("Véhicule non trouvé")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, errs.Dependency(fmt.Sprintf("fleet service status %d: %s", resp.StatusCode, body), nil)
	}

	var env carEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, errs.Dependency("fleet response decode", err)
	}
	return &env.Data, nil
}

// CheckAvailability asks the fleet service which of carIDs are free over [start, end).
func (c *HTTPClient) CheckAvailability(ctx context.Context, carIDs []string, start, end time.Time) ([]string, error) {
	bodyBytes, _ := json.Marshal(map[string]interface{}{
		"carIds":    carIDs,
		"startDate": start.Format(time.RFC3339),
		"endDate":   end.Format(time.RFC3339),
	})
	url := fmt.Sprintf("%s/api/cars/availability", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, errs.Dependency("fleet availability check", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, errs.Dependency(fmt.Sprintf("fleet availability status %d: %s", resp.StatusCode, body), nil)
	}

	var env availabilityEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, errs.Dependency("fleet availability decode", err)
	}
	return env.Data.Available, nil
}

// UpdateStatus patches a car's status (e.g. "rented"). Callers treat failures
// as best-effort.
func (c *HTTPClient) UpdateStatus(ctx context.Context, carID, status string) error {
	bodyBytes, _ := json.Marshal(map[string]string{"status": status})
	url := fmt.Sprintf("%s/api/cars/%s", c.BaseURL, carID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("fleet status update: status %d body: %s", resp.StatusCode, body)
	}
	return nil
}
