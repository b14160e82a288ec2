package pose

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"posecompare/internal/models"
)

const (
	uploadReferencePath = "/api/pose/upload_reference"
	comparePosePath     = "/api/pose/compare_pose"
	historyPath         = "/api/pose/get_csv_data"

	DefaultTimeout = 30 * time.Second
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return e.Message
}

// Client talks to the pose-estimation backend.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type uploadResponse struct {
	LandmarksCount int    `json:"landmarks_count"`
	Message        string `json:"message"`
}

// UploadReference sends the reference image as multipart field "image" and
// returns the landmark count the backend detected.
func (c *Client) UploadReference(ctx context.Context, name string, image io.Reader) (int, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("image", filepath.Base(name))
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(part, image); err != nil {
		return 0, fmt.Errorf("read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+uploadReferencePath, &body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out uploadResponse
	if err := c.do(req, &out); err != nil {
		return 0, err
	}

	return out.LandmarksCount, nil
}

type compareRequest struct {
	Image string `json:"image"`
}

// ComparePose submits a data-URL encoded frame for comparison against the
// current reference.
func (c *Client) ComparePose(ctx context.Context, dataURL string) (*models.ComparisonResult, error) {
	payload, err := json.Marshal(compareRequest{Image: dataURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+comparePosePath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out models.ComparisonResult
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

type historyResponse struct {
	Data []models.DataRow `json:"data"`
}

// FetchHistory returns every logged comparison in the backend's order.
func (c *Client) FetchHistory(ctx context.Context) ([]models.DataRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+historyPath, nil)
	if err != nil {
		return nil, err
	}

	var out historyResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return out.Data, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}

		var er errorResponse
		if json.Unmarshal(body, &er) == nil {
			apiErr.Message = er.Error
		}

		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}

	return nil
}

// messageOf extracts the text shown to the user, falling back when the
// backend gave none.
func messageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}
	return err.Error()
}
