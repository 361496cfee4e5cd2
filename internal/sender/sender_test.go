package sender

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedwagon-io/gauge/internal/config"
	"github.com/speedwagon-io/gauge/internal/gauge"
	"github.com/speedwagon-io/gauge/internal/lib/logger/sl"
	"github.com/speedwagon-io/gauge/internal/model"
)

func senderConfig(url string, attempts int) *config.SenderConfig {
	return &config.SenderConfig{
		URL:     url,
		Token:   "t0ken",
		Timeout: time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:  attempts,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
		},
	}
}

func testEnvelope() *model.Envelope {
	return model.NewEnvelope("edge-1", "Edge", "api", "API", "frontend", []model.Reading{
		model.NewReading("p99", gauge.MetricLatency, "ms", 310),
	})
}

func TestHTTPSenderSend(t *testing.T) {
	var got model.Envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/readings/edge-1", r.URL.Path)
		assert.Equal(t, "Bearer t0ken", r.Header.Get("Authorization"))
		assert.Equal(t, "high", r.Header.Get(WorstLevelHeader))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewHTTPSender(sl.Discard(), senderConfig(srv.URL+"/readings/", 1), "edge-1")
	env := testEnvelope()

	require.NoError(t, s.Send(context.Background(), env))
	assert.Equal(t, env.ID, got.ID)
	require.Len(t, got.Readings, 1)
	assert.Equal(t, gauge.LevelHigh, got.Readings[0].Level)
}

func TestHTTPSenderBatchWorstHeader(t *testing.T) {
	var header string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get(WorstLevelHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewHTTPSender(sl.Discard(), senderConfig(srv.URL, 1), "edge-1")

	calm := model.NewEnvelope("edge-1", "Edge", "db", "DB", "backend", []model.Reading{
		model.NewReading("cpu", gauge.MetricCPU, "%", 72),
	})
	unread := model.NewEnvelope("edge-1", "Edge", "cache", "Cache", "backend", []model.Reading{
		model.BadReading("cpu", gauge.MetricCPU, "%"),
	})

	require.NoError(t, s.SendBatch(context.Background(), []*model.Envelope{calm, unread}))
	assert.Equal(t, "med", header)

	require.NoError(t, s.Send(context.Background(), unread))
	assert.Equal(t, "none", header)
}

func TestHTTPSenderRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewHTTPSender(sl.Discard(), senderConfig(srv.URL, 5), "edge-1")

	require.NoError(t, s.Send(context.Background(), testEnvelope()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPSenderGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewHTTPSender(sl.Discard(), senderConfig(srv.URL, 2), "edge-1")

	err := s.SendBatch(context.Background(), []*model.Envelope{testEnvelope()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 attempts failed")
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPSenderHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewHTTPSender(sl.Discard(), senderConfig(srv.URL, 1), "edge-1")
	assert.Error(t, s.Health(context.Background()))
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(sl.Discard())
	assert.NoError(t, s.Send(context.Background(), testEnvelope()))
	assert.NoError(t, s.Health(context.Background()))
}
