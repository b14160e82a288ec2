package pose

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"sync/atomic"

	"go.uber.org/zap"

	"posecompare/internal/models"
)

var ErrComparison = errors.New("pose comparison failed")

const DefaultJPEGQuality = 80

// FrameSource lends the latest live frame. ok is false when no camera is active.
type FrameSource interface {
	Snapshot() (image.Image, bool)
}

type CompareBackend interface {
	ComparePose(ctx context.Context, dataURL string) (*models.ComparisonResult, error)
}

// CaptureComparator borrows a frame from the camera session and asks the
// backend how far it is from the reference pose.
type CaptureComparator struct {
	frames  FrameSource
	backend CompareBackend
	quality atomic.Int32
	log     *zap.Logger
}

func NewCaptureComparator(frames FrameSource, backend CompareBackend, quality int, log *zap.Logger) *CaptureComparator {
	if log == nil {
		log = zap.NewNop()
	}

	c := &CaptureComparator{frames: frames, backend: backend, log: log}
	c.SetQuality(quality)

	return c
}

// SetQuality changes the JPEG quality of later captures. Values outside
// 1..100 select the default.
func (c *CaptureComparator) SetQuality(quality int) {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	c.quality.Store(int32(quality))
}

// CaptureAndCompare returns (nil, nil) without touching the network when no
// camera is active. Backend and transport failures wrap ErrComparison.
func (c *CaptureComparator) CaptureAndCompare(ctx context.Context) (*models.ComparisonResult, error) {
	frame, ok := c.frames.Snapshot()
	if !ok {
		c.log.Debug("capture skipped, no active camera")
		return nil, nil
	}

	still := Still(frame)

	dataURL, err := EncodeDataURL(still, int(c.quality.Load()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrComparison, err)
	}

	result, err := c.backend.ComparePose(ctx, dataURL)
	if err != nil {
		msg := messageOf(err, "Comparison failed")
		c.log.Warn("comparison failed", zap.String("reason", msg))
		return nil, fmt.Errorf("%w: %s", ErrComparison, msg)
	}

	c.log.Info("pose compared",
		zap.Int("width", still.Bounds().Dx()),
		zap.Int("height", still.Bounds().Dy()),
		zap.Bool("pose_detected", result.PoseDetected),
		zap.Float64("distance", result.Distance.Float()),
	)

	return result, nil
}

// Still copies frame into a fresh RGBA image of the frame's own size, so the
// capture is independent of the live buffer.
func Still(frame image.Image) *image.RGBA {
	b := frame.Bounds()
	still := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(still, still.Bounds(), frame, b.Min, draw.Src)
	return still
}

// EncodeDataURL JPEG-encodes img and wraps it as a base64 data URL.
func EncodeDataURL(img image.Image, quality int) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("JPEG encode: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
