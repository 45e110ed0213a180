// Package notification содержит отправку push-уведомлений пользователям.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// EventOrderConfirmed отправляется продавцу после подтверждения оплаты заказа.
const (
	EventOrderConfirmed = "order_confirmed"
	// EventPayoutCompleted отправляется продавцу после успешной выплаты.
	EventPayoutCompleted = "payout_completed"
)

// Dispatcher отправляет push-уведомления через внешний шлюз в режиме
// fire-and-forget: сбой доставки логируется и никогда не влияет на
// вызвавшую операцию.
type Dispatcher struct {
	gatewayURL string
	httpClient *retryablehttp.Client
	logger     *zap.Logger
}

// NewDispatcher создаёт диспетчер уведомлений. При пустом адресе шлюза
// все уведомления молча пропускаются.
func NewDispatcher(gatewayURL string, logger *zap.Logger) *Dispatcher {
	c := retryablehttp.NewClient()
	c.RetryMax = 1
	c.HTTPClient.Timeout = 5 * time.Second
	c.Logger = nil

	return &Dispatcher{
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		httpClient: c,
		logger:     logger,
	}
}

type pushMessage struct {
	To    string         `json:"to"`
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// Notify асинхронно отправляет событие на push-токен получателя.
// Пустой токен или ненастроенный шлюз — no-op.
func (d *Dispatcher) Notify(pushToken, event string, data map[string]any) {
	if d == nil || d.gatewayURL == "" || pushToken == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := d.send(ctx, pushToken, event, data); err != nil {
			d.logger.Warn("push notification failed",
				zap.String("event", event),
				zap.Error(err))
		}
	}()
}

func (d *Dispatcher) send(ctx context.Context, pushToken, event string, data map[string]any) error {
	body, err := json.Marshal(pushMessage{
		To:    pushToken,
		Event: event,
		Data:  data,
	})
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, d.gatewayURL+"/push", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}

	return nil
}
