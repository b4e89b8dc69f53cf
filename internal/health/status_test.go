package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		want  Status
	}{
		{100, StatusExcellent},
		{90, StatusExcellent},
		{89, StatusGood},
		{75, StatusGood},
		{74, StatusFair},
		{60, StatusFair},
		{59, StatusWarning},
		{40, StatusWarning},
		{39, StatusCritical},
		{20, StatusCritical},
		{19, StatusEmergency},
		{0, StatusEmergency},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, Classify(tc.score), "score=%d", tc.score)
	}
}

func TestStatus_Message(t *testing.T) {
	assert.Equal(t, "Excellent - System running optimally", StatusExcellent.Message())
	assert.Equal(t, "Good - System performing well", StatusGood.Message())
	assert.Equal(t, "Fair - System under moderate load", StatusFair.Message())
	assert.Equal(t, "Warning - System experiencing elevated resource usage", StatusWarning.Message())
	assert.Equal(t, "Critical - System resources heavily strained", StatusCritical.Message())
	assert.Equal(t, "Emergency - System resources critically exhausted", StatusEmergency.Message())
}
