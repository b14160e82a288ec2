package capture

import (
	"fmt"

	config "posecompare/internal/config"
)

func NewStreamer(t *config.Config) (VideoStreamer, error) {
	switch t.GetSource() {
	case config.SourceWebcam:
		return NewFFmpegWebcam(t.GetDevice(), t.GetFPS(), t.GetWidth(), t.GetHeight()), nil
	case config.SourceLocal:
		return NewLocalStreamer(t.GetLocalPath(), t.GetFPS())
	default:
		return nil, fmt.Errorf("unknown source: %s", t.GetSource())
	}
}

// NewOpener reads the config on every call so the UI can switch sources
// between sessions.
func NewOpener(t *config.Config) Opener {
	return func() (VideoStreamer, string, error) {
		s, err := NewStreamer(t)
		if err != nil {
			return nil, "", err
		}

		device := t.GetDevice()
		if t.GetSource() == config.SourceLocal {
			device = t.GetLocalPath()
		}

		return s, device, nil
	}
}
