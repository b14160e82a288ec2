package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"sync"
)

// FFmpegWebcamStreamer acquires a capture device through ffmpeg and emits
// decoded frames. The requested size is a hint; the driver picks the nearest
// mode it supports, so consumers read dimensions off each frame.
type FFmpegWebcamStreamer struct {
	stopOnce sync.Once

	deviceName string
	width      int
	height     int
	targetFPS  uint

	cmd       *exec.Cmd
	stderr    bytes.Buffer
	frameChan chan image.Image
	errChan   chan error

	stopChan chan struct{}
}

func NewFFmpegWebcam(deviceName string, targetFps uint, preferredWidth int, preferredHeight int) *FFmpegWebcamStreamer {
	return &FFmpegWebcamStreamer{
		deviceName: deviceName,
		width:      preferredWidth,
		height:     preferredHeight,
		targetFPS:  targetFps,

		frameChan: make(chan image.Image),
		errChan:   make(chan error, 1),
		stopChan:  make(chan struct{}),
	}
}

func (ws *FFmpegWebcamStreamer) args() []string {
	size := fmt.Sprintf("%dx%d", ws.width, ws.height)
	fps := fmt.Sprintf("%d", ws.targetFPS)

	var input []string

	switch runtime.GOOS {
	case "windows":
		input = []string{"-f", "dshow", "-video_size", size, "-i", fmt.Sprintf("video=%s", ws.deviceName)}
	case "darwin":
		input = []string{"-f", "avfoundation", "-framerate", fps, "-video_size", size, "-i", ws.deviceName}
	default:
		input = []string{"-f", "v4l2", "-framerate", fps, "-video_size", size, "-i", ws.deviceName}
	}

	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, input...)

	return append(args,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "3",
		"-",
	)
}

func (ws *FFmpegWebcamStreamer) Start() error {
	if err := probeDevice(ws.deviceName); err != nil {
		return err
	}

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("%w: ffmpeg not found in PATH", ErrNoDevice)
	}

	ws.cmd = exec.Command("ffmpeg", ws.args()...)
	ws.cmd.Stderr = &ws.stderr

	stdout, err := ws.cmd.StdoutPipe()
	if err != nil {
		return err
	}

	if err := ws.cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	go ws.readLoop(stdout)

	return nil
}

func (ws *FFmpegWebcamStreamer) readLoop(stdout io.ReadCloser) {
	defer close(ws.frameChan)
	defer close(ws.errChan)
	defer stdout.Close()

	err := readMJPEG(stdout, func(img image.Image) bool {
		select {
		case <-ws.stopChan:
			return false
		case ws.frameChan <- img:
		default:
		}
		return true
	})

	// stderr is only safe to read once the process has been reaped.
	ws.stopCmdOut()

	select {
	case <-ws.stopChan:
		return
	default:
	}

	if err != nil {
		ws.errChan <- classifyFFmpegError(err, ws.stderr.String())
	}
}

func (ws *FFmpegWebcamStreamer) stopCmdOut() {
	if ws.cmd != nil && ws.cmd.Process != nil {
		ws.cmd.Process.Kill()
		ws.cmd.Wait()
	}
}

func (ws *FFmpegWebcamStreamer) Stop() {
	ws.stopOnce.Do(func() {
		close(ws.stopChan)
		if ws.cmd != nil && ws.cmd.Process != nil {
			ws.cmd.Process.Kill()
		}
	})
}

func (ws *FFmpegWebcamStreamer) FrameChan() <-chan image.Image { return ws.frameChan }
func (ws *FFmpegWebcamStreamer) ErrorChan() <-chan error       { return ws.errChan }

// probeDevice catches a missing or unreadable device node before ffmpeg runs.
// Only Linux exposes cameras as files.
func probeDevice(device string) error {
	if runtime.GOOS != "linux" {
		return nil
	}

	if device == "" {
		return fmt.Errorf("%w: no device configured", ErrNoDevice)
	}

	f, err := os.OpenFile(device, os.O_RDWR, 0)
	switch {
	case err == nil:
		return f.Close()
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s does not exist", ErrNoDevice, device)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, device)
	default:
		return fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
}

var dshowVideoDevice = regexp.MustCompile(`"([^"]+)"\s+\(video\)`)

func ListCameras() ([]string, error) {
	var cameras []string

	switch runtime.GOOS {
	case "windows":
		cmd := exec.Command("ffmpeg", "-hide_banner", "-list_devices", "true", "-f", "dshow", "-i", "dummy")
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		// ffmpeg always exits non-zero here; the listing is on stderr.
		cmd.Run()

		cameras = parseDshowDevices(stderr.String())

	case "darwin":
		cameras = []string{"0"}

	default:
		matches, err := filepath.Glob("/dev/video*")
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		cameras = matches
	}

	return cameras, nil
}

func parseDshowDevices(output string) []string {
	var cameras []string
	seen := make(map[string]bool)

	for _, m := range dshowVideoDevice.FindAllStringSubmatch(output, -1) {
		name := m[1]
		if name != "dummy" && !seen[name] {
			cameras = append(cameras, name)
			seen[name] = true
		}
	}

	return cameras
}
