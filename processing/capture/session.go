package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Opener builds an unstarted frame source and names the device behind it.
type Opener func() (VideoStreamer, string, error)

// nativeSizer is a source with a stored resolution, such as a video file.
type nativeSizer interface {
	NativeSize() (int, int)
}

// SessionState is the camera lifecycle as other components see it.
// Width and Height are the negotiated frame size, zero while idle.
type SessionState struct {
	Active bool
	Width  int
	Height int
	Device string
}

const DefaultAcquireTimeout = 10 * time.Second

// Session owns the capture device. Everyone else borrows frames through
// Snapshot and never starts or stops the source themselves.
type Session struct {
	mu sync.RWMutex

	open           Opener
	gate           *ReferenceGate
	acquireTimeout time.Duration
	log            *zap.Logger

	starting bool
	streamer VideoStreamer
	state    SessionState
	frame    image.Image
	done     chan struct{}
}

type SessionOption func(*Session)

func WithAcquireTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.acquireTimeout = d
		}
	}
}

func WithLogger(log *zap.Logger) SessionOption {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// NewSession creates an idle session. A nil gate lets Start proceed without
// a reference upload.
func NewSession(open Opener, gate *ReferenceGate, opts ...SessionOption) *Session {
	s := &Session{
		open:           open,
		gate:           gate,
		acquireTimeout: DefaultAcquireTimeout,
		log:            zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CanStart reports whether the reference gate allows activation.
func (s *Session) CanStart() bool {
	return s.gate == nil || s.gate.IsOpen()
}

// Snapshot returns the most recent frame. ok is false when the session is idle.
func (s *Session) Snapshot() (image.Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.state.Active || s.frame == nil {
		return nil, false
	}

	return s.frame, true
}

// Start acquires the device and blocks until the first frame arrives, the
// acquire timeout passes, or ctx is done. On failure the session stays idle.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.state.Active || s.starting:
		s.mu.Unlock()
		return ErrAlreadyActive
	case !s.CanStart():
		s.mu.Unlock()
		return ErrNoReference
	}
	s.starting = true
	s.mu.Unlock()

	streamer, device, first, err := s.acquire(ctx)

	s.mu.Lock()
	s.starting = false
	if err != nil {
		s.mu.Unlock()
		s.log.Warn("camera start failed", zap.String("device", device), zap.Error(err))
		return err
	}

	bounds := first.Bounds()
	done := make(chan struct{})

	s.streamer = streamer
	s.frame = first
	s.done = done
	s.state = SessionState{
		Active: true,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Device: device,
	}
	state := s.state
	s.mu.Unlock()

	fields := []zap.Field{
		zap.String("device", state.Device),
		zap.Int("width", state.Width),
		zap.Int("height", state.Height),
	}
	if ns, ok := streamer.(nativeSizer); ok {
		w, h := ns.NativeSize()
		fields = append(fields, zap.Int("native_width", w), zap.Int("native_height", h))
	}
	s.log.Info("camera started", fields...)

	go s.pump(streamer, done)

	return nil
}

func (s *Session) acquire(ctx context.Context) (VideoStreamer, string, image.Image, error) {
	streamer, device, err := s.open()
	if err != nil {
		return nil, device, nil, err
	}

	if err := streamer.Start(); err != nil {
		streamer.Stop()
		return nil, device, nil, err
	}

	first, err := s.awaitFirstFrame(ctx, streamer)
	if err != nil {
		streamer.Stop()
		return nil, device, nil, err
	}

	return streamer, device, first, nil
}

func (s *Session) awaitFirstFrame(ctx context.Context, streamer VideoStreamer) (image.Image, error) {
	timer := time.NewTimer(s.acquireTimeout)
	defer timer.Stop()

	for {
		select {
		case frame, ok := <-streamer.FrameChan():
			if !ok {
				if err, ok := <-streamer.ErrorChan(); ok && err != nil {
					return nil, err
				}
				return nil, fmt.Errorf("%w: stream closed before the first frame", ErrNoDevice)
			}
			if frame == nil || frame.Bounds().Empty() {
				continue
			}
			return frame, nil

		case err, ok := <-streamer.ErrorChan():
			if ok && err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: stream closed before the first frame", ErrNoDevice)

		case <-timer.C:
			return nil, fmt.Errorf("%w: no frame within %s", ErrNoDevice, s.acquireTimeout)

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// pump keeps the latest frame until the source ends or Stop releases it.
func (s *Session) pump(streamer VideoStreamer, done chan struct{}) {
	defer close(done)

	for {
		select {
		case frame, ok := <-streamer.FrameChan():
			if !ok {
				s.release(streamer, nil)
				return
			}
			if frame == nil {
				continue
			}

			s.mu.Lock()
			if s.streamer == streamer {
				s.frame = frame
			}
			s.mu.Unlock()

		case err, ok := <-streamer.ErrorChan():
			if !ok {
				err = nil
			}
			s.release(streamer, err)
			return
		}
	}
}

// release returns the session to idle if streamer is still the active one.
func (s *Session) release(streamer VideoStreamer, cause error) {
	s.mu.Lock()
	if s.streamer == streamer {
		if cause != nil && !errors.Is(cause, context.Canceled) {
			s.log.Error("camera stream lost", zap.Error(cause))
		} else {
			s.log.Warn("camera stream ended")
		}

		s.streamer = nil
		s.frame = nil
		s.done = nil
		s.state = SessionState{}
	}
	s.mu.Unlock()

	streamer.Stop()
}

// Stop releases the device. Calling it while idle does nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	streamer, done := s.streamer, s.done
	s.streamer = nil
	s.frame = nil
	s.done = nil
	s.state = SessionState{}
	s.mu.Unlock()

	if streamer == nil {
		return
	}

	streamer.Stop()
	<-done

	s.log.Info("camera stopped")
}
