package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"settlement-service/internal/util"

	"go.uber.org/zap"
)

// Notice carries everything the notification channel needs about a
// cancellation.
type Notice struct {
	PartnerID    int64   `json:"partner_id"`
	UserID       int64   `json:"user_id"`
	StoreName    string  `json:"store_name"`
	OrderNumber  string  `json:"order_number"`
	CancelAmount int64   `json:"cancel_amount"`
	RefundAmount int64   `json:"refund_amount"`
	RefundRate   float64 `json:"refund_rate"`
	Reason       string  `json:"reason"`
	IsPartial    bool    `json:"is_partial"`
}

// Notifier delivers cancellation notices. Delivery is best effort: callers
// log failures and move on, nothing downstream depends on the outcome.
type Notifier interface {
	NotifyCancellation(ctx context.Context, notice Notice) error
}

// HTTPNotifier posts notices to the notification collaborator.
type HTTPNotifier struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPNotifier creates a new HTTP notifier
func NewHTTPNotifier(baseURL string, timeout time.Duration) *HTTPNotifier {
	return &HTTPNotifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  util.GetLogger(),
	}
}

// NotifyCancellation implements Notifier.
func (n *HTTPNotifier) NotifyCancellation(ctx context.Context, notice Notice) error {
	body, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}

	url := fmt.Sprintf("%s/v1/notifications/cancellation", n.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		util.NotificationsFailedTotal.Inc()
		return fmt.Errorf("notification call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		util.NotificationsFailedTotal.Inc()
		return fmt.Errorf("notification rejected: status=%d", resp.StatusCode)
	}

	n.logger.Info("Cancellation notice delivered",
		zap.String("order_number", notice.OrderNumber),
		zap.Bool("is_partial", notice.IsPartial))
	return nil
}
