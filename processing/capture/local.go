package capture

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"sync"
)

// LocalFileStreamer loops a video file and stands in for a camera, which is
// handy on machines without one.
type LocalFileStreamer struct {
	stopOnce sync.Once

	path      string
	targetFPS uint

	nativeWidth  uint16
	nativeHeight uint16

	cmd       *exec.Cmd
	frameChan chan image.Image
	errChan   chan error
	stopChan  chan struct{}
}

const standartFps uint = 30

func NewLocalStreamer(path string, targetFPS uint) (*LocalFileStreamer, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	w, h, err := probeVideoDimensions(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to probe video: %v", ErrNoDevice, err)
	}

	if targetFPS == 0 {
		targetFPS = standartFps
	}

	return &LocalFileStreamer{
		path:         path,
		targetFPS:    targetFPS,
		nativeWidth:  w,
		nativeHeight: h,
		frameChan:    make(chan image.Image, 10),
		errChan:      make(chan error, 1),
		stopChan:     make(chan struct{}),
	}, nil
}

// NativeSize is the file's stored resolution as reported by ffprobe.
func (ls *LocalFileStreamer) NativeSize() (int, int) {
	return int(ls.nativeWidth), int(ls.nativeHeight)
}

func (ls *LocalFileStreamer) Start() error {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-re",
		"-stream_loop", "-1",
		"-i", ls.path,
		"-vf", fmt.Sprintf("fps=%d", ls.targetFPS),
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "3",
		"-",
	}

	ls.cmd = exec.Command("ffmpeg", args...)

	stdout, err := ls.cmd.StdoutPipe()
	if err != nil {
		return err
	}

	if err := ls.cmd.Start(); err != nil {
		return err
	}

	go ls.readFrames(stdout)

	return nil
}

func (ls *LocalFileStreamer) readFrames(stdout io.ReadCloser) {
	defer close(ls.frameChan)
	defer close(ls.errChan)
	defer stdout.Close()
	defer ls.stopCmdOut()

	err := readMJPEG(stdout, func(img image.Image) bool {
		select {
		case ls.frameChan <- img:
			return true
		case <-ls.stopChan:
			return false
		}
	})

	select {
	case <-ls.stopChan:
		return
	default:
	}

	if err != nil {
		ls.errChan <- fmt.Errorf("read error: %v", err)
	}
}

func (ls *LocalFileStreamer) stopCmdOut() {
	if ls.cmd != nil && ls.cmd.Process != nil {
		ls.cmd.Process.Kill()
		ls.cmd.Wait()
	}
}

func (ls *LocalFileStreamer) Stop() {
	ls.stopOnce.Do(func() {
		close(ls.stopChan)
		if ls.cmd != nil && ls.cmd.Process != nil {
			ls.cmd.Process.Kill()
		}
	})
}

func (ls *LocalFileStreamer) FrameChan() <-chan image.Image {
	return ls.frameChan
}

func (ls *LocalFileStreamer) ErrorChan() <-chan error {
	return ls.errChan
}

type probeData struct {
	Streams []struct {
		Width  uint16 `json:"width"`
		Height uint16 `json:"height"`
	} `json:"streams"`
}

func probeVideoDimensions(path string) (uint16, uint16, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, 0, err
	}

	return parseProbe(output)
}

func parseProbe(output []byte) (uint16, uint16, error) {
	var data probeData
	if err := json.Unmarshal(output, &data); err != nil {
		return 0, 0, err
	}

	if len(data.Streams) == 0 {
		return 0, 0, fmt.Errorf("no video streams found")
	}

	return data.Streams[0].Width, data.Streams[0].Height, nil
}
