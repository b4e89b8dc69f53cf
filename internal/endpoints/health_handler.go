package endpoints

import (
	"net/http"
	"strconv"

	"container-health/internal/monitor"
	"container-health/internal/util"
)

// Health serves the live usage and scoring endpoints backed by a Monitor.
type Health struct {
	Response APIResponse
	logger   *util.ServiceLogger
	monitor  *monitor.Monitor
}

type livenessStatus struct {
	Status        string  `json:"status"`
	Source        string  `json:"source"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

func (h *Health) Init(mon *monitor.Monitor, logger *util.ServiceLogger) {
	h.monitor = mon
	h.logger = logger
}

// UsageHandler handles GET /api/metrics. Every call samples the source once
// and returns the running CPU and memory statistics.
func (h *Health) UsageHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.monitor.Sample(r.Context())
	if err != nil {
		h.writeSampleError(w, err)
		return
	}
	h.Response.WriteResultResponse(w, report.Usage)
}

// HealthHandler handles GET /api/health. It samples the source and returns
// the full scored report.
func (h *Health) HealthHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.monitor.Sample(r.Context())
	if err != nil {
		h.writeSampleError(w, err)
		return
	}
	h.Response.WriteResultResponse(w, report)
}

// ScoreHandler handles GET /api/score?cpu=&memory=&uptime=. Missing values
// count as zero. Nothing is sampled or recorded.
func (h *Health) ScoreHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	values := make([]float64, 3)
	for i, key := range []string{"cpu", "memory", "uptime"} {
		raw := query.Get(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.logger.LogEvent(util.LOG_LEVEL_ERROR, "While parsing", key, "from query. Err -", err)
			h.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidScoreParams, http.StatusBadRequest)
			return
		}
		values[i] = v
	}

	report, err := h.monitor.ScoreReport(values[0], values[1], values[2])
	if err != nil {
		h.logger.LogEvent(util.LOG_LEVEL_WARN, "Score rejected. Err -", err)
		h.Response.WriteErrorResponseWithStatusCode(w, err, http.StatusUnprocessableEntity)
		return
	}
	h.Response.WriteResultResponse(w, report)
}

// LivenessHandler handles GET /healthz.
func (h *Health) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	h.Response.WriteResultResponse(w, livenessStatus{
		Status:        "ok",
		Source:        h.monitor.SourceName(),
		UptimeSeconds: h.monitor.Uptime().Seconds(),
	})
}

func (h *Health) writeSampleError(w http.ResponseWriter, err error) {
	switch {
	case GetErrorCode(err) == REQUEST_CANCELLED:
		h.logger.LogEvent(util.LOG_LEVEL_WARN, "Context cancelled")
		h.Response.WriteErrorResponseWithStatusCode(w, ErrRequestCancelled, http.StatusRequestTimeout)
	default:
		h.logger.LogEvent(util.LOG_LEVEL_ERROR, "Occured while sampling. Err -", err)
		h.Response.WriteErrorResponse(w, err)
	}
}
