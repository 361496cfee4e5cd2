package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/speedwagon-io/gauge/internal/config"
	"github.com/speedwagon-io/gauge/internal/gauge"
	"github.com/speedwagon-io/gauge/internal/lib/logger/sl"
	"github.com/speedwagon-io/gauge/internal/model"
)

// WorstLevelHeader carries the highest gauge level in the posted payload.
const WorstLevelHeader = "X-Gauge-Worst"

type Sender interface {
	Send(ctx context.Context, envelope *model.Envelope) error
	SendBatch(ctx context.Context, envelopes []*model.Envelope) error
	Health(ctx context.Context) error
}

type HTTPSender struct {
	log         *slog.Logger
	url         string
	token       string
	client      *http.Client
	maxAttempts int
	backoff     *ExponentialBackoff
}

// NewHTTPSender posts envelopes to <sender.url>/<sourceID>.
func NewHTTPSender(log *slog.Logger, cfg *config.SenderConfig, sourceID string) *HTTPSender {
	maxAttempts := cfg.Retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &HTTPSender{
		log:   log,
		url:   fmt.Sprintf("%s/%s", strings.TrimRight(cfg.URL, "/"), sourceID),
		token: cfg.Token,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxAttempts: maxAttempts,
		backoff:     NewExponentialBackoff(cfg.Retry.InitialDelay, cfg.Retry.MaxDelay),
	}
}

func (s *HTTPSender) Send(ctx context.Context, envelope *model.Envelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	return s.sendWithRetry(ctx, data, envelope.Worst())
}

func (s *HTTPSender) SendBatch(ctx context.Context, envelopes []*model.Envelope) error {
	data, err := json.Marshal(envelopes)
	if err != nil {
		return fmt.Errorf("failed to marshal envelopes: %w", err)
	}

	worst := gauge.LevelNone
	for _, e := range envelopes {
		if w := e.Worst(); w > worst {
			worst = w
		}
	}

	return s.sendWithRetry(ctx, data, worst)
}

func (s *HTTPSender) sendWithRetry(ctx context.Context, data []byte, worst gauge.Level) error {
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err := s.doSend(ctx, data, worst)
		if err == nil {
			return nil
		}

		lastErr = err
		s.log.Warn("send attempt failed",
			slog.Int("attempt", attempt),
			slog.String("worst", worst.String()),
			slog.Int("max_attempts", s.maxAttempts),
			sl.Err(err),
		)

		if attempt < s.maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff.NextDelay(attempt - 1)):
			}
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", s.maxAttempts, lastErr)
}

func (s *HTTPSender) doSend(ctx context.Context, data []byte, worst gauge.Level) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set(WorstLevelHeader, worst.String())

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}

func (s *HTTPSender) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("server unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

// LogSender logs envelopes instead of sending them (for testing)
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, envelope *model.Envelope) error {
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	s.log.Info("SEND",
		slog.String("target_id", envelope.TargetID),
		slog.String("target_name", envelope.TargetName),
		slog.String("target_group", envelope.TargetGroup),
		slog.Int("readings_count", len(envelope.Readings)),
		slog.String("worst", envelope.Worst().String()),
		slog.String("payload", string(data)),
	)

	return nil
}

func (s *LogSender) SendBatch(ctx context.Context, envelopes []*model.Envelope) error {
	for _, envelope := range envelopes {
		if err := s.Send(ctx, envelope); err != nil {
			return err
		}
	}
	return nil
}

func (s *LogSender) Health(ctx context.Context) error {
	return nil
}
