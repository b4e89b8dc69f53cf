package health

// Status is the severity band for a score.
type Status struct {
	Level       string
	Description string
}

// Message renders the band as "<Level> - <Description>".
func (s Status) Message() string {
	return s.Level + " - " + s.Description
}

// Band floors, lower bound inclusive.
const (
	ThresholdExcellent = 90
	ThresholdGood      = 75
	ThresholdFair      = 60
	ThresholdWarning   = 40
	ThresholdCritical  = 20
)

var (
	StatusExcellent = Status{"Excellent", "System running optimally"}
	StatusGood      = Status{"Good", "System performing well"}
	StatusFair      = Status{"Fair", "System under moderate load"}
	StatusWarning   = Status{"Warning", "System experiencing elevated resource usage"}
	StatusCritical  = Status{"Critical", "System resources heavily strained"}
	StatusEmergency = Status{"Emergency", "System resources critically exhausted"}
)

// Classify maps a score to its band.
func Classify(score int) Status {
	switch {
	case score >= ThresholdExcellent:
		return StatusExcellent
	case score >= ThresholdGood:
		return StatusGood
	case score >= ThresholdFair:
		return StatusFair
	case score >= ThresholdWarning:
		return StatusWarning
	case score >= ThresholdCritical:
		return StatusCritical
	default:
		return StatusEmergency
	}
}
