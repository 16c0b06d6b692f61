package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// InvoiceClient triggers the billing invoice for the collection fee when a
// case is registered. Failures are logged by callers, never fatal to case
// creation.
type InvoiceClient struct {
	baseURL string
	http    *http.Client
}

func NewInvoiceClient(baseURL string, timeout time.Duration) *InvoiceClient {
	return &InvoiceClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *InvoiceClient) CreateInvoice(ctx context.Context, tenantID int64, amount, currency, description string) error {
	body, err := json.Marshal(map[string]interface{}{
		"tenant_id":   tenantID,
		"amount":      amount,
		"currency":    currency,
		"description": description,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/invoices", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("invoice request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("invoice service returned status %d", resp.StatusCode)
	}
	return nil
}
