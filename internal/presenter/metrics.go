package presenter

import (
	"fmt"
	"math"

	"posecompare/internal/models"
)

const infinityGlyph = "∞"

// Metrics is a ComparisonResult projected onto display fields.
type Metrics struct {
	Distance     string
	PoseDetected string
	Accuracy     string
	Quality      models.Quality
	Message      string
}

func Render(r models.ComparisonResult) Metrics {
	distance := FormatDistance(r.Distance)
	accuracy := fmt.Sprintf("%.1f%%", models.Accuracy(r.PoseDetected, r.Distance))

	m := Metrics{
		Distance:     distance,
		PoseDetected: "No",
		Accuracy:     accuracy,
		Quality:      models.Classify(r.Distance),
	}

	if r.PoseDetected {
		m.PoseDetected = "Yes"
		m.Message = fmt.Sprintf("Pose detected! Distance: %s, Accuracy: %s. %s", distance, accuracy, m.Quality.Hint())
	} else {
		m.Message = "No pose detected in the current frame. Please ensure you are visible in the camera."
	}

	return m
}

// FormatDistance prints four decimals, or the infinity glyph.
func FormatDistance(d models.Distance) string {
	if math.IsInf(d.Float(), 0) {
		return infinityGlyph
	}
	return fmt.Sprintf("%.4f", d.Float())
}
