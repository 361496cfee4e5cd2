package collector

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/speedwagon-io/gauge/internal/buffer"
	"github.com/speedwagon-io/gauge/internal/config"
	"github.com/speedwagon-io/gauge/internal/lib/logger/sl"
	"github.com/speedwagon-io/gauge/internal/model"
	"github.com/speedwagon-io/gauge/internal/sender"
)

const bufferRetryInterval = 30 * time.Second

type Manager struct {
	log           *slog.Logger
	cfg           *config.Config
	targetsCfg    *config.TargetsConfig
	collector     Collector
	sender        sender.Sender
	buffer        buffer.Buffer
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
	bufferEnabled bool

	mu     sync.RWMutex
	latest map[string]*model.Envelope
}

func NewManager(
	log *slog.Logger,
	cfg *config.Config,
	targetsCfg *config.TargetsConfig,
	collector Collector,
	sender sender.Sender,
	buffer buffer.Buffer,
) *Manager {
	return &Manager{
		log:           log,
		cfg:           cfg,
		targetsCfg:    targetsCfg,
		collector:     collector,
		sender:        sender,
		buffer:        buffer,
		stopCh:        make(chan struct{}),
		bufferEnabled: cfg.Buffer.Enabled && buffer != nil,
		latest:        make(map[string]*model.Envelope),
	}
}

// Latest returns the most recent envelope of every target, ordered by target ID.
func (m *Manager) Latest() []*model.Envelope {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Envelope, 0, len(m.latest))
	for _, e := range m.latest {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out
}

// record stores envelope as the target's latest and logs worst-level changes.
func (m *Manager) record(envelope *model.Envelope) {
	worst := envelope.Worst()

	m.mu.Lock()
	prev, seen := m.latest[envelope.TargetID]
	m.latest[envelope.TargetID] = envelope
	m.mu.Unlock()

	if seen {
		if was := prev.Worst(); was != worst {
			m.log.Info("gauge level changed",
				slog.String("target_id", envelope.TargetID),
				slog.String("from", was.String()),
				slog.String("to", worst.String()),
			)
			return
		}
	}

	m.log.Debug("readings classified",
		slog.String("target_id", envelope.TargetID),
		slog.String("worst", worst.String()),
	)
}

func (m *Manager) Start(ctx context.Context) {
	m.log.Info("starting collector manager",
		slog.String("source_id", m.targetsCfg.SourceID),
		slog.Int("targets", len(m.targetsCfg.Targets)),
		slog.Duration("interval", m.targetsCfg.Polling.Interval),
	)

	ticker := time.NewTicker(m.targetsCfg.Polling.Interval)
	defer ticker.Stop()

	m.wg.Add(1)
	go m.retryBufferedData(ctx)

	m.collectAndSend(ctx)

	for {
		select {
		case <-ctx.Done():
			m.log.Info("context cancelled, stopping manager")
			return
		case <-m.stopCh:
			m.log.Info("stop signal received, stopping manager")
			return
		case <-ticker.C:
			m.collectAndSend(ctx)
		}
	}
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
	if err := m.collector.Close(); err != nil {
		m.log.Error("failed to close collector", sl.Err(err))
	}
}

func (m *Manager) collectAndSend(ctx context.Context) {
	var wg sync.WaitGroup
	results := make(chan *CollectedData, len(m.targetsCfg.Targets))

	for i := range m.targetsCfg.Targets {
		target := &m.targetsCfg.Targets[i]
		wg.Add(1)
		go func(t *config.TargetConfig) {
			defer wg.Done()

			collectCtx, cancel := context.WithTimeout(ctx, m.targetsCfg.Polling.Timeout)
			defer cancel()

			data, err := m.collector.Collect(collectCtx, t)
			if err != nil {
				m.log.Error("failed to collect readings",
					slog.String("target_id", t.ID),
					sl.Err(err),
				)
				return
			}
			results <- data
		}(target)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for data := range results {
		if len(data.Readings) == 0 {
			m.log.Debug("skipping empty readings",
				slog.String("target_id", data.TargetID),
			)
			continue
		}

		envelope := model.NewEnvelope(
			m.targetsCfg.SourceID,
			m.targetsCfg.SourceName,
			data.TargetID,
			data.TargetName,
			data.TargetGroup,
			data.Readings,
		)

		m.record(envelope)

		if err := m.sender.Send(ctx, envelope); err != nil {
			m.log.Error("failed to send readings",
				slog.String("target_id", data.TargetID),
				sl.Err(err),
			)

			if m.bufferEnabled {
				if bufErr := m.buffer.Store(ctx, envelope); bufErr != nil {
					m.log.Error("failed to buffer readings",
						slog.String("target_id", data.TargetID),
						sl.Err(bufErr),
					)
				} else {
					m.log.Info("readings buffered for later retry",
						slog.String("target_id", data.TargetID),
					)
				}
			}
		} else {
			m.log.Debug("readings sent successfully",
				slog.String("target_id", data.TargetID),
			)
		}
	}
}

func (m *Manager) retryBufferedData(ctx context.Context) {
	defer m.wg.Done()

	if !m.bufferEnabled {
		return
	}

	ticker := time.NewTicker(bufferRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.processBufferedData(ctx)
		}
	}
}

func (m *Manager) processBufferedData(ctx context.Context) {
	pending, err := m.buffer.GetPending(ctx, 100)
	if err != nil {
		m.log.Error("failed to get pending envelopes from buffer", sl.Err(err))
		return
	}

	if len(pending) == 0 {
		return
	}

	m.log.Info("processing buffered envelopes", slog.Int("count", len(pending)))

	var sentIDs []string
	for _, envelope := range pending {
		if err := m.sender.Send(ctx, envelope); err != nil {
			m.log.Debug("failed to send buffered envelope",
				slog.String("id", envelope.ID),
				sl.Err(err),
			)
			break
		}
		sentIDs = append(sentIDs, envelope.ID)
	}

	if len(sentIDs) > 0 {
		if err := m.buffer.MarkSent(ctx, sentIDs); err != nil {
			m.log.Error("failed to mark buffered envelopes as sent", sl.Err(err))
		} else {
			m.log.Info("buffered envelopes sent successfully", slog.Int("count", len(sentIDs)))
		}
	}

	if err := m.buffer.Cleanup(ctx, m.cfg.Buffer.MaxAge); err != nil {
		m.log.Error("failed to cleanup old buffered envelopes", sl.Err(err))
	}
}
