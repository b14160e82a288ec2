package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Distance is the dissimilarity the backend reports between the captured
// pose and the reference. It is +Inf when no meaningful distance exists.
type Distance float64

func (d Distance) IsInf() bool {
	return math.IsInf(float64(d), 1)
}

func (d Distance) Float() float64 {
	return float64(d)
}

// UnmarshalJSON accepts a number, null, or the infinity spellings the
// backend uses when it has no pose to measure against ("inf").
func (d *Distance) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*d = Distance(math.Inf(1))
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		switch strings.ToLower(strings.TrimSpace(s)) {
		case "inf", "+inf", "infinity", "+infinity":
			*d = Distance(math.Inf(1))
			return nil
		}

		return fmt.Errorf("invalid distance %q", s)
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid distance: %w", err)
	}

	*d = Distance(f)
	return nil
}

// ComparisonResult is produced once per capture request and never cached.
type ComparisonResult struct {
	PoseDetected   bool     `json:"pose_detected"`
	Distance       Distance `json:"distance"`
	LandmarksCount int      `json:"landmarks_count"`
}

// UnmarshalJSON treats a missing distance as +Inf.
func (r *ComparisonResult) UnmarshalJSON(data []byte) error {
	type raw ComparisonResult

	out := raw{Distance: Distance(math.Inf(1))}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}

	*r = ComparisonResult(out)
	return nil
}

// UploadOutcome is all the client keeps about the server-side reference pose.
type UploadOutcome struct {
	Accepted       bool
	LandmarksCount int
	Message        string
}
