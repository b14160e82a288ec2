package capture

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
)

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// Largest single MJPEG frame the scanner will hold.
const maxFrameBytes = 16 << 20

// splitJpeg is a bufio.SplitFunc yielding one complete JPEG per token.
func splitJpeg(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, jpegSOI)
	if start == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
	end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
	if end == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
	end += start + len(jpegSOI)
	return end + 2, data[start : end+2], nil
}

// readMJPEG decodes frames from r and hands each to emit until emit returns
// false or r is exhausted. A clean EOF returns io.EOF.
func readMJPEG(r io.Reader, emit func(image.Image) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 512<<10), maxFrameBytes)
	scanner.Split(splitJpeg)

	for scanner.Scan() {
		img, err := jpeg.Decode(bytes.NewReader(scanner.Bytes()))
		if err != nil {
			return fmt.Errorf("decode frame: %w", err)
		}

		if !emit(img) {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	return io.EOF
}
