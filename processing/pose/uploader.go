package pose

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	// Decoders for the preview.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"go.uber.org/zap"

	"posecompare/internal/models"
	"posecompare/processing/capture"
)

var ErrUpload = errors.New("reference upload failed")

// ImageFile is a user-selected reference image.
type ImageFile struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// ImageFileFromPath reads the image lazily from disk.
func ImageFileFromPath(path string) *ImageFile {
	return &ImageFile{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// Preview is the locally decoded reference image, delivered independently of
// the upload result.
type Preview struct {
	Name  string
	Image image.Image
	Err   error
}

type ReferenceBackend interface {
	UploadReference(ctx context.Context, name string, image io.Reader) (int, error)
}

type ReferenceUploader struct {
	backend ReferenceBackend
	gate    *capture.ReferenceGate
	log     *zap.Logger

	// OnPreview receives the decoded image from its own goroutine.
	OnPreview func(Preview)
}

func NewReferenceUploader(backend ReferenceBackend, gate *capture.ReferenceGate, log *zap.Logger) *ReferenceUploader {
	if log == nil {
		log = zap.NewNop()
	}

	return &ReferenceUploader{backend: backend, gate: gate, log: log}
}

// Upload sends file to the backend. A nil file does nothing. On success the
// reference gate opens; on failure the outcome carries the message and the
// error wraps ErrUpload.
func (u *ReferenceUploader) Upload(ctx context.Context, file *ImageFile) (models.UploadOutcome, error) {
	if file == nil {
		return models.UploadOutcome{}, nil
	}

	if u.OnPreview != nil {
		go u.preview(file)
	}

	count, err := u.send(ctx, file)
	if err != nil {
		msg := messageOf(err, "Upload failed")
		u.log.Warn("reference upload rejected", zap.String("file", file.Name), zap.String("reason", msg))

		return models.UploadOutcome{Accepted: false, Message: msg}, fmt.Errorf("%w: %s", ErrUpload, msg)
	}

	if u.gate != nil {
		u.gate.Open()
	}

	u.log.Info("reference pose uploaded", zap.String("file", file.Name), zap.Int("landmarks", count))

	return models.UploadOutcome{
		Accepted:       true,
		LandmarksCount: count,
		Message:        fmt.Sprintf("Reference pose uploaded successfully! (%d landmarks detected)", count),
	}, nil
}

func (u *ReferenceUploader) send(ctx context.Context, file *ImageFile) (int, error) {
	r, err := file.Open()
	if err != nil {
		return 0, err
	}
	defer r.Close()

	return u.backend.UploadReference(ctx, file.Name, r)
}

func (u *ReferenceUploader) preview(file *ImageFile) {
	p := Preview{Name: file.Name}

	r, err := file.Open()
	if err != nil {
		p.Err = err
		u.OnPreview(p)
		return
	}
	defer r.Close()

	img, _, err := image.Decode(r)
	if err != nil {
		p.Err = fmt.Errorf("preview %s: %w", file.Name, err)
	}
	p.Image = img

	u.OnPreview(p)
}
