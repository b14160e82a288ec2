package ui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"posecompare/processing/capture"
)

type stubStreamer struct {
	frames   chan image.Image
	errs     chan error
	stopOnce sync.Once
}

func newStubStreamer() *stubStreamer {
	s := &stubStreamer{
		frames: make(chan image.Image, 1),
		errs:   make(chan error, 1),
	}
	s.frames <- image.NewRGBA(image.Rect(0, 0, 320, 240))
	return s
}

func (s *stubStreamer) Start() error                  { return nil }
func (s *stubStreamer) FrameChan() <-chan image.Image { return s.frames }
func (s *stubStreamer) ErrorChan() <-chan error       { return s.errs }

func (s *stubStreamer) Stop() {
	s.stopOnce.Do(func() {
		close(s.frames)
		close(s.errs)
	})
}

func TestCameraButtonsFollowSession(t *testing.T) {
	test.NewTempApp(t)

	gate := &capture.ReferenceGate{}
	session := capture.NewSession(func() (capture.VideoStreamer, string, error) {
		return newStubStreamer(), "/dev/stub0", nil
	}, gate, capture.WithAcquireTimeout(time.Second), capture.WithLogger(zaptest.NewLogger(t)))

	a := &PoseApp{Deps: Deps{Session: session, Log: zaptest.NewLogger(t)}}
	a.buildMain()

	type buttons struct{ start, stop, capture bool }
	enabled := func() buttons {
		a.syncCameraButtons()
		return buttons{
			start:   !a.startBtn.Disabled(),
			stop:    !a.stopBtn.Disabled(),
			capture: !a.captureBtn.Disabled(),
		}
	}

	assert.Equal(t, buttons{}, enabled(), "no reference yet")

	gate.Open()
	assert.Equal(t, buttons{start: true}, enabled())

	require.NoError(t, session.Start(context.Background()))
	assert.Equal(t, buttons{stop: true, capture: true}, enabled())

	session.Stop()
	assert.Equal(t, buttons{start: true}, enabled())
}

func TestCameraErrorText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{
			err:  fmt.Errorf("%w: /dev/video0", capture.ErrPermissionDenied),
			want: "Error accessing camera. Please ensure you have granted camera permissions.",
		},
		{
			err:  capture.ErrNoReference,
			want: "Upload a reference pose before starting the camera.",
		},
		{
			err:  errors.New("boom"),
			want: "Error: boom",
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cameraErrorText(tt.err))
	}

	assert.Contains(t, cameraErrorText(fmt.Errorf("%w: no frame", capture.ErrNoDevice)), "No camera available")
}
