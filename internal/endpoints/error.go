package endpoints

import (
	"context"
	"errors"

	"container-health/internal/health"
	"container-health/internal/history"
)

const (
	API_SUCCESS      = iota + 303000 // 303000
	API_FAILURE                      // 303001 - Generic API failure
	API_UNAUTHORIZED                 // 303002 - Authentication/Authorization failure
)

const (
	SNAPSHOTS_NOT_AVAILABLE = iota + 101 // 101 - No snapshots found for the given criteria
	INVALID_REQUEST_BODY                 // 102 - Error parsing request body
	INVALID_PARAMETERS                   // 103 - Invalid URL or query parameters
	INVALID_TIME_RANGE                   // 104 - Start time is after end time
	REQUEST_CANCELLED                    // 105 - Request was cancelled by client or server timeout
	HISTORY_EMPTY                        // 106 - No sample recorded yet
	INVALID_METRIC                       // 107 - Metric value rejected by strict scoring
	STORAGE_DISABLED                     // 108 - Snapshot storage is not configured
)

var (
	ErrNoSnapshotsAvailable = errors.New("no snapshots available for the specified criteria")
	ErrInvalidRequestBody   = errors.New("invalid request body format or missing fields")
	ErrInvalidParameters    = errors.New("invalid limit or offset parameter; must be integers")
	ErrInvalidScoreParams   = errors.New("invalid cpu, memory or uptime parameter; must be numbers")
	ErrInvalidTimeRange     = errors.New("start timestamp cannot be after end timestamp")
	ErrRequestCancelled     = errors.New("request cancelled by client or server timeout")
	ErrStorageDisabled      = errors.New("snapshot storage is disabled")
)

func GetErrorCode(err error) int {
	if err == nil {
		return API_SUCCESS
	}

	switch {
	case errors.Is(err, ErrNoSnapshotsAvailable):
		return SNAPSHOTS_NOT_AVAILABLE
	case errors.Is(err, ErrInvalidRequestBody):
		return INVALID_REQUEST_BODY
	case errors.Is(err, ErrInvalidParameters), errors.Is(err, ErrInvalidScoreParams):
		return INVALID_PARAMETERS
	case errors.Is(err, ErrInvalidTimeRange):
		return INVALID_TIME_RANGE
	case errors.Is(err, ErrRequestCancelled), errors.Is(err, context.Canceled):
		return REQUEST_CANCELLED
	case errors.Is(err, history.ErrEmptyHistory):
		return HISTORY_EMPTY
	case errors.Is(err, health.ErrInvalidMetric):
		return INVALID_METRIC
	case errors.Is(err, ErrStorageDisabled):
		return STORAGE_DISABLED
	default:
		return API_FAILURE // Default for any unhandled error
	}
}
