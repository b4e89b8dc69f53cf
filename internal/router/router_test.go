package router

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"container-health/internal/config"
	"container-health/internal/domain"
	"container-health/internal/endpoints"
	"container-health/internal/metrics"
	"container-health/internal/monitor"
	"container-health/internal/repository"
	"container-health/internal/util"
)

type fixedSource struct{}

func (fixedSource) Name() string { return "fixed" }

func (fixedSource) Read(ctx context.Context) (domain.Reading, error) {
	return domain.Reading{CPUPercent: 10, MemoryPercent: 20}, nil
}

func newTestRouter(store domain.SnapshotStore) http.Handler {
	mon := monitor.New(monitor.Options{Source: fixedSource{}, Store: store})
	return NewRouter(mon, store, nil, &util.ServiceLogger{})
}

func TestRouter_Routes(t *testing.T) {
	handler := newTestRouter(repository.NewMemoryStore())

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/", http.StatusOK},
		{"GET", "/api/metrics", http.StatusOK},
		{"GET", "/api/health", http.StatusOK},
		{"GET", "/api/score?cpu=10&memory=20", http.StatusOK},
		{"GET", "/healthz", http.StatusOK},
		{"GET", "/snapshots/10/0", http.StatusOK},
		{"GET", "/prometheus", http.StatusOK},
		{"POST", "/api/health", http.StatusMethodNotAllowed},
		{"GET", "/ws", http.StatusNotFound},
		{"GET", "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestRouter_SnapshotsAfterSampling(t *testing.T) {
	handler := newTestRouter(repository.NewMemoryStore())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/snapshots/10/0", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Status bool              `json:"status"`
		Value  []domain.Snapshot `json:"value"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Status)
	require.Len(t, resp.Value, 1)
	assert.Equal(t, "fixed", resp.Value[0].Source)
	assert.Equal(t, 87, resp.Value[0].Score)
}

func TestRouter_StorageDisabled(t *testing.T) {
	handler := newTestRouter(nil)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/snapshots/10/0", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp endpoints.APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, endpoints.STORAGE_DISABLED, resp.ErrorCode)
}

func TestRouter_CountsRequests(t *testing.T) {
	handler := newTestRouter(nil)
	counter := metrics.RequestsTotal.WithLabelValues("GET", "400")
	before := testutil.ToFloat64(counter)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/score?cpu=abc", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	server := NewServer(addr, newTestRouter(nil), config.Defaults().Server)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, server, time.Second, &util.ServiceLogger{}) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRouter_RequestID(t *testing.T) {
	handler := newTestRouter(nil)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))
	generated := rr.Header().Get("X-Request-ID")
	assert.Len(t, generated, 36)

	req := httptest.NewRequest("GET", "/unknown", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
}
