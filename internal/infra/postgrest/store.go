// Package postgrest persists the register aggregate as a single row in
// a PostgREST-fronted Postgres table. The whole snapshot travels in one
// request, matching the single-aggregate transaction model of the core.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/muellerb/shop-register-go/internal/domain"
	"github.com/muellerb/shop-register-go/internal/infra/resilience"
)

var tracer = otel.Tracer("postgrest")

// registerID is the primary key of the single register row. One live
// register per deployment.
const registerID = 1

// Store implements port.RegisterStore over the PostgREST API.
type Store struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	logger         *zap.Logger
}

// New creates a PostgREST-backed register store.
func New(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Store {
	return &Store{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
}

// registerRow maps the shop_registers table columns.
type registerRow struct {
	ID            int             `json:"id"`
	Balance       string          `json:"balance"`
	IsOpen        bool            `json:"is_open"`
	SimulatedDate time.Time       `json:"simulated_date"`
	DayStartedAt  *time.Time      `json:"day_started_at"`
	Entries       json.RawMessage `json:"entries"`
	PendingOrders json.RawMessage `json:"pending_orders"`
	Version       int64           `json:"version"`
}

func (r *registerRow) toSnapshot() (*domain.RegisterSnapshot, error) {
	balance, err := domain.ParseAmount(r.Balance)
	if err != nil {
		return nil, fmt.Errorf("decode balance: %w", err)
	}

	snap := &domain.RegisterSnapshot{
		Balance:       balance,
		IsOpen:        r.IsOpen,
		SimulatedDate: r.SimulatedDate,
		Entries:       []domain.LedgerEntry{},
		PendingOrders: []domain.PendingOrder{},
		Version:       r.Version,
	}
	if r.DayStartedAt != nil {
		snap.DayStartedAt = *r.DayStartedAt
	}
	if len(r.Entries) > 0 {
		if err := json.Unmarshal(r.Entries, &snap.Entries); err != nil {
			return nil, fmt.Errorf("decode ledger entries: %w", err)
		}
	}
	if len(r.PendingOrders) > 0 {
		if err := json.Unmarshal(r.PendingOrders, &snap.PendingOrders); err != nil {
			return nil, fmt.Errorf("decode pending orders: %w", err)
		}
	}
	return snap, nil
}

func rowPayload(snapshot *domain.RegisterSnapshot, version int64) (map[string]any, error) {
	entries, err := json.Marshal(snapshot.Entries)
	if err != nil {
		return nil, fmt.Errorf("encode ledger entries: %w", err)
	}
	pending, err := json.Marshal(snapshot.PendingOrders)
	if err != nil {
		return nil, fmt.Errorf("encode pending orders: %w", err)
	}

	payload := map[string]any{
		"balance":        snapshot.Balance.String(),
		"is_open":        snapshot.IsOpen,
		"simulated_date": snapshot.SimulatedDate,
		"entries":        json.RawMessage(entries),
		"pending_orders": json.RawMessage(pending),
		"version":        version,
	}
	if !snapshot.DayStartedAt.IsZero() {
		payload["day_started_at"] = snapshot.DayStartedAt
	}
	return payload, nil
}

// Load fetches the register row. Only transport failures are retried
// and counted by the breaker; an absent row is a deterministic outcome
// recorded inside the attempt and surfaced as the uninitialized-state
// error on every call, without retries.
func (s *Store) Load(ctx context.Context) (*domain.RegisterSnapshot, error) {
	ctx, span := tracer.Start(ctx, "Postgrest.Load")
	defer span.End()

	var snap *domain.RegisterSnapshot
	var missing bool

	_, err := s.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, s.cfg, func() error {
			path := fmt.Sprintf("shop_registers?id=eq.%d&limit=1", registerID)
			body, err := s.do(ctx, http.MethodGet, path, nil, "return=representation")
			if err != nil {
				return err
			}

			var rows []registerRow
			if len(body) > 0 {
				if err := json.Unmarshal(body, &rows); err != nil {
					return fmt.Errorf("decode register row: %w", err)
				}
			}
			if len(rows) == 0 {
				missing = true
				return nil
			}

			missing = false
			snap, err = rows[0].toSnapshot()
			return err
		})
	})
	if err != nil {
		return nil, s.externalError(err)
	}
	if missing {
		return nil, &domain.ErrUninitialized{}
	}

	return snap, nil
}

// Save patches the register row guarded by the version token. No retry:
// a failed conditional write must be resolved against fresh state, not
// replayed.
func (s *Store) Save(ctx context.Context, snapshot *domain.RegisterSnapshot) error {
	ctx, span := tracer.Start(ctx, "Postgrest.Save")
	defer span.End()

	next := snapshot.Version + 1
	payload, err := rowPayload(snapshot, next)
	if err != nil {
		return err
	}

	var missing, stale bool

	_, err = s.cb.Execute(func() (any, error) {
		path := fmt.Sprintf("shop_registers?id=eq.%d&version=eq.%d", registerID, snapshot.Version)
		body, err := s.do(ctx, http.MethodPatch, path, payload, "return=representation")
		if err != nil {
			return nil, err
		}

		var rows []registerRow
		if len(body) > 0 {
			if err := json.Unmarshal(body, &rows); err != nil {
				return nil, fmt.Errorf("decode patched row: %w", err)
			}
		}
		if len(rows) == 0 {
			// Nothing matched: either the row is missing or the version
			// token is stale. Both are deterministic outcomes, not
			// breaker failures.
			exists, err := s.rowExists(ctx)
			if err != nil {
				return nil, err
			}
			missing = !exists
			stale = exists
			return nil, nil
		}
		return nil, nil
	})
	if err != nil {
		return s.externalError(err)
	}
	if missing {
		return &domain.ErrUninitialized{}
	}
	if stale {
		return &domain.ErrConflict{Message: "register snapshot is stale, reload and retry"}
	}

	snapshot.Version = next
	return nil
}

// externalError classifies a breaker/transport failure. A tripped
// breaker gets its own identity so the handler layer can answer 503
// instead of a generic upstream failure.
func (s *Store) externalError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: "postgrest/register"}
	}
	return &domain.ErrExternalService{Service: "postgrest/register", Err: err}
}

func (s *Store) rowExists(ctx context.Context) (bool, error) {
	path := fmt.Sprintf("shop_registers?id=eq.%d&select=id&limit=1", registerID)
	body, err := s.do(ctx, http.MethodGet, path, nil, "return=representation")
	if err != nil {
		return false, err
	}
	return len(body) > 0 && string(body) != "[]", nil
}

// do executes an authenticated PostgREST request.
func (s *Store) do(ctx context.Context, method, path string, payload map[string]any, prefer string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", s.baseURL, path)

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", prefer)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("postgrest: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("postgrest: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, fmt.Errorf("postgrest returned status %d: %s", resp.StatusCode, string(body))
	}

	s.logger.Debug("postgrest: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return body, nil
}
