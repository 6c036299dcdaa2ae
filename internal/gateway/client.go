package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"settlement-service/internal/util"

	"go.uber.org/zap"
)

// PaymentGateway is the external payment provider's cancellation contract.
// Point-only payments never reach it.
type PaymentGateway interface {
	// CancelPayment cancels a payment, partially when amount > 0 and in full
	// when amount == 0. A provider refusal comes back as *Error.
	CancelPayment(ctx context.Context, paymentID, reason string, amount int64) (*CancelConfirmation, error)
}

// CancelConfirmation is the provider's acknowledgement of a cancellation.
type CancelConfirmation struct {
	PaymentID       string `json:"payment_id"`
	CancelledAmount int64  `json:"cancelled_amount"`
	TxID            string `json:"tx_id"`
}

// Error is a payment-provider refusal. It is fatal for the cancellation:
// nothing local is mutated when the gateway says no.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway refused cancellation: status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
}

// HTTPClient talks to the payment provider over HTTP.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient creates a new gateway client
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  util.GetLogger(),
	}
}

type cancelRequest struct {
	Reason string `json:"reason"`
	Amount int64  `json:"amount,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CancelPayment implements PaymentGateway.
func (c *HTTPClient) CancelPayment(ctx context.Context, paymentID, reason string, amount int64) (*CancelConfirmation, error) {
	start := time.Now()
	defer func() {
		util.GatewayCancelLatency.Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(cancelRequest{Reason: reason, Amount: amount})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cancel request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/payments/%s/cancel", c.baseURL, paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		util.GatewayCancelFailedTotal.Inc()
		return nil, fmt.Errorf("gateway cancel call failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		util.GatewayCancelFailedTotal.Inc()

		var errResp errorResponse
		_ = json.Unmarshal(payload, &errResp)
		c.logger.Warn("Gateway refused cancellation",
			zap.String("payment_id", paymentID),
			zap.Int("status", resp.StatusCode),
			zap.String("code", errResp.Code))

		return nil, &Error{StatusCode: resp.StatusCode, Code: errResp.Code, Message: errResp.Message}
	}

	var conf CancelConfirmation
	if err := json.Unmarshal(payload, &conf); err != nil {
		return nil, fmt.Errorf("failed to decode gateway confirmation: %w", err)
	}

	c.logger.Info("Gateway cancellation confirmed",
		zap.String("payment_id", paymentID),
		zap.Int64("amount", conf.CancelledAmount),
		zap.String("tx_id", conf.TxID))

	return &conf, nil
}
