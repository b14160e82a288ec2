package capture

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNoDevice         = errors.New("no camera device available")
	ErrAlreadyActive    = errors.New("camera is already active")
	ErrNoReference      = errors.New("upload a reference pose before starting the camera")
)

// classifyFFmpegError maps ffmpeg's stderr onto the camera error taxonomy.
func classifyFFmpegError(cause error, stderr string) error {
	detail := lastLine(stderr)
	if detail == "" && cause != nil {
		detail = cause.Error()
	}

	lower := strings.ToLower(stderr)

	switch {
	case strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "not authorized"),
		strings.Contains(lower, "access is denied"):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, detail)

	case strings.Contains(lower, "no such file or directory"),
		strings.Contains(lower, "no such device"),
		strings.Contains(lower, "could not find video device"),
		strings.Contains(lower, "could not enumerate"),
		strings.Contains(lower, "device or resource busy"),
		strings.Contains(lower, "i/o error"):
		return fmt.Errorf("%w: %s", ErrNoDevice, detail)
	}

	if detail == "" {
		return errors.New("camera stream ended")
	}

	return fmt.Errorf("camera stream failed: %s", detail)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
