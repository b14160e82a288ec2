package capture

import (
	"image"
)

// VideoStreamer is a frame source. Start launches it, Stop releases every
// resource it acquired and may be called more than once. Both channels are
// closed when the source ends.
type VideoStreamer interface {
	Start() error
	Stop()
	FrameChan() <-chan image.Image
	ErrorChan() <-chan error
}
