package models

import "math"

type Quality string

const (
	QualityExcellent Quality = "Excellent"
	QualityGood      Quality = "Good"
	QualityFair      Quality = "Fair"
	QualityPoor      Quality = "Poor"
)

// Band thresholds, exclusive upper bounds.
const (
	excellentBelow = 0.5
	goodBelow      = 1.0
	fairBelow      = 2.0
)

// Classify maps a distance onto a quality band. NaN and +Inf are Poor.
func Classify(d Distance) Quality {
	v := float64(d)

	switch {
	case math.IsNaN(v):
		return QualityPoor
	case v < excellentBelow:
		return QualityExcellent
	case v < goodBelow:
		return QualityGood
	case v < fairBelow:
		return QualityFair
	default:
		return QualityPoor
	}
}

// Hint is the user-facing advice shown next to the band.
func (q Quality) Hint() string {
	switch q {
	case QualityExcellent:
		return "Excellent match!"
	case QualityGood:
		return "Good match!"
	case QualityFair:
		return "Fair match. Try adjusting your pose."
	default:
		return "Poor match. Please check your pose alignment."
	}
}

// Accuracy is max(0, 100-10d) for a detected pose and 0 otherwise.
func Accuracy(poseDetected bool, d Distance) float64 {
	if !poseDetected {
		return 0
	}

	v := float64(d)
	if math.IsNaN(v) {
		return 0
	}

	return math.Max(0, 100-v*10)
}
