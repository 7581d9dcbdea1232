// Package collab holds default adapters for the external collaborators
// the clock invokes during day advancement: monthly billing and
// inventory release.
package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/muellerb/shop-register-go/internal/domain"
	"github.com/muellerb/shop-register-go/internal/infra/resilience"
)

// WebhookBiller notifies the external billing system that a month
// boundary was crossed. The billing system settles the recurring
// contract charges itself and feeds them back through the settlement
// API.
type WebhookBiller struct {
	httpClient *http.Client
	url        string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewWebhookBiller creates a biller posting to the given URL.
func NewWebhookBiller(httpClient *http.Client, url string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *WebhookBiller {
	return &WebhookBiller{httpClient: httpClient, url: url, cb: cb, cfg: cfg, logger: logger}
}

// AddMonthlyCharges posts the billing trigger. An error here aborts the
// day advancement that requested it.
func (b *WebhookBiller) AddMonthlyCharges(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{"event": "month_closed"})
	if err != nil {
		return err
	}

	_, err = b.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, b.cfg, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(payload))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := b.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			io.Copy(io.Discard, resp.Body)

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return fmt.Errorf("billing webhook returned status %d", resp.StatusCode)
			}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &domain.ErrCircuitOpen{Service: "billing"}
		}
		return &domain.ErrExternalService{Service: "billing", Err: err}
	}

	b.logger.Info("monthly billing triggered", zap.String("url", b.url))
	return nil
}

// LoggingBiller is the fallback when no billing webhook is configured.
type LoggingBiller struct {
	Logger *zap.Logger
}

// AddMonthlyCharges records the month-boundary crossing and succeeds.
func (b *LoggingBiller) AddMonthlyCharges(_ context.Context) error {
	b.Logger.Info("month boundary crossed, no billing webhook configured")
	return nil
}
