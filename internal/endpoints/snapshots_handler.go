package endpoints

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"container-health/internal/domain"
	"container-health/internal/util"
)

const defaultSnapshotLimit = 100

type SnapshotsRequest struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Snapshots serves the persisted snapshot log.
type Snapshots struct {
	Response APIResponse
	logger   *util.ServiceLogger
	store    domain.SnapshotStore
}

func (m *Snapshots) Init(store domain.SnapshotStore, logger *util.ServiceLogger) {
	m.store = store
	m.logger = logger
}

// GetSnapshotsHandler handles GET /snapshots/{limit}/{offset}. The optional
// JSON body {start, end} bounds the time range; it defaults to the last 24h.
func (m *Snapshots) GetSnapshotsHandler(w http.ResponseWriter, r *http.Request) {

	if r.Method != http.MethodGet {
		m.logger.LogEvent(util.LOG_LEVEL_ERROR, "Method Not Allowed. Only GET requests are supported", http.StatusMethodNotAllowed)
		m.Response.WriteErrorResponseWithStatusCode(w, errors.New("method Not Allowed. Only GET requests are supported"), http.StatusMethodNotAllowed)
		return
	}

	if m.store == nil {
		m.Response.WriteErrorResponseWithStatusCode(w, ErrStorageDisabled, http.StatusServiceUnavailable)
		return
	}

	routeParamValue := mux.Vars(r)

	limit, err := strconv.Atoi(routeParamValue["limit"])
	if err != nil {
		m.logger.LogEvent(util.LOG_LEVEL_ERROR, "While getting limit from URL. Err -", err)
		m.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidParameters, http.StatusBadRequest)
		return
	}

	offset, err := strconv.Atoi(routeParamValue["offset"])
	if err != nil {
		m.logger.LogEvent(util.LOG_LEVEL_ERROR, "While getting offset from URL. Err -", err)
		m.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidParameters, http.StatusBadRequest)
		return
	}

	var reqBody SnapshotsRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil && !errors.Is(err, io.EOF) {
			m.logger.LogEvent(util.LOG_LEVEL_ERROR, "Occured while unmarshalling JSON Body. Err -", err)
			m.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidRequestBody, http.StatusBadRequest)
			return
		}
	}

	startTime := reqBody.Start
	endTime := reqBody.End

	if startTime == 0 {
		startTime = time.Now().Add(-24 * time.Hour).Unix()
	}
	if endTime == 0 {
		endTime = time.Now().Unix()
	}

	if startTime > endTime {
		m.logger.LogEvent(util.LOG_LEVEL_ERROR, "Given startTime is greater than endTime. startTime -", startTime, "endTime -", endTime)
		m.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidTimeRange, http.StatusBadRequest)
		return
	}

	if limit <= 0 {
		limit = defaultSnapshotLimit
	}
	if offset < 0 {
		offset = 0
	}

	fetched, err := m.store.GetSnapshots(r.Context(), startTime, endTime, limit, offset)
	if err != nil {
		if r.Context().Err() != nil {
			m.logger.LogEvent(util.LOG_LEVEL_WARN, "Context cancelled")
			m.Response.WriteErrorResponseWithStatusCode(w, ErrRequestCancelled, http.StatusRequestTimeout)
			return
		}
		m.logger.LogEvent(util.LOG_LEVEL_ERROR, "Occured while GetSnapshots(). Err -", err)
		m.Response.WriteErrorResponse(w, err)
		return
	}

	if len(fetched) == 0 {
		m.logger.LogEvent(util.LOG_LEVEL_WARN, "Insufficient Snapshot Data")
		m.Response.WriteErrorResponseWithStatusCode(w, ErrNoSnapshotsAvailable, http.StatusNotFound)
		return
	}

	m.Response.WriteResultResponse(w, fetched)
}
