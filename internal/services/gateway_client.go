package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/property-marketplace/backend/internal/apperrors"
	"go.uber.org/zap"
)

// Gateway is the contract the offer lifecycle expects from the payment
// provider. Capture completion arrives asynchronously through callbacks;
// GetCaptureStatus exists for the reconciliation job only.
type Gateway interface {
	InitiateCapture(ctx context.Context, offerID uuid.UUID, amount, currency string) (string, error)
	GetCaptureStatus(ctx context.Context, reference string) (string, error)
}

// GatewayClient talks to the payment provider's HTTP API.
type GatewayClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

func NewGatewayClient(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) *GatewayClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GatewayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type captureRequest struct {
	OfferID  string `json:"offer_id"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type captureResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// InitiateCapture asks the gateway to capture funds for an offer and returns
// the gateway's opaque reference. The gateway dedupes captures by offer id,
// so re-sending a request that may already have landed returns the existing
// reference. Connection failures and 5xx responses map to
// apperrors.ErrGatewayUnavailable (retryable); 4xx responses map to
// apperrors.ErrGatewayRejected (terminal).
func (c *GatewayClient) InitiateCapture(ctx context.Context, offerID uuid.UUID, amount, currency string) (string, error) {
	body, err := json.Marshal(captureRequest{
		OfferID:  offerID.String(),
		Amount:   amount,
		Currency: currency,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/api/v1/captures", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", fmt.Sprintf("token %s", c.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("initiate capture: %v: %w", err, apperrors.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("gateway returned %d: %w", resp.StatusCode, apperrors.ErrGatewayUnavailable)
	case resp.StatusCode >= 400:
		b, _ := io.ReadAll(resp.Body)
		c.log.Warn("gateway rejected capture",
			zap.String("offer_id", offerID.String()),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", b),
		)
		return "", fmt.Errorf("gateway returned %d: %w", resp.StatusCode, apperrors.ErrGatewayRejected)
	}

	var result captureResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode capture response: %v: %w", err, apperrors.ErrGatewayUnavailable)
	}
	if result.Reference == "" {
		return "", fmt.Errorf("gateway returned empty reference: %w", apperrors.ErrGatewayUnavailable)
	}
	return result.Reference, nil
}

// GetCaptureStatus polls the gateway for the current state of a capture.
func (c *GatewayClient) GetCaptureStatus(ctx context.Context, reference string) (string, error) {
	url := fmt.Sprintf("%s/api/v1/captures/%s", c.baseURL, reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", fmt.Sprintf("token %s", c.apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get capture status: %v: %w", err, apperrors.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("capture %s: %w", reference, apperrors.ErrNotFound)
	case resp.StatusCode >= 400:
		return "", fmt.Errorf("gateway returned %d: %w", resp.StatusCode, apperrors.ErrGatewayUnavailable)
	}

	var result captureResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode capture response: %v: %w", err, apperrors.ErrGatewayUnavailable)
	}
	return result.Status, nil
}
