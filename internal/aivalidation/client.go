// Package aivalidation calls the image analysis service used for advisory
// checks on donated items.
package aivalidation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("ai validation endpoint not configured")

const DefaultTimeout = 20 * time.Second

// Image is the payload forwarded to the service as the multipart "image" field.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Prediction struct {
	Class      string    `json:"class"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox,omitempty"`
}

type PredictResult struct {
	Predictions []Prediction `json:"predictions"`
}

// Top returns the prediction with the highest confidence. Ties keep the first.
func (r PredictResult) Top() (Prediction, bool) {
	if len(r.Predictions) == 0 {
		return Prediction{}, false
	}
	top := r.Predictions[0]
	for _, p := range r.Predictions[1:] {
		if p.Confidence > top.Confidence {
			top = p
		}
	}
	return top, true
}

type ExpiryResult struct {
	ExpiryTextDetected *string `json:"expiry_text_detected"`
	IsValid            *bool   `json:"is_valid"`
	ParsedExpiryDate   *string `json:"parsed_expiry_date"`
	FullOCRText        string  `json:"full_ocr_text"`
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient returns a client for baseURL. An empty baseURL yields a client
// whose calls return ErrNotConfigured.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

func (c *Client) Predict(ctx context.Context, img Image) (PredictResult, error) {
	var out PredictResult
	if err := c.postImage(ctx, "/predict", img, &out); err != nil {
		return PredictResult{}, err
	}
	return out, nil
}

func (c *Client) CheckExpiry(ctx context.Context, img Image) (ExpiryResult, error) {
	var out ExpiryResult
	if err := c.postImage(ctx, "/check-expiry", img, &out); err != nil {
		return ExpiryResult{}, err
	}
	return out, nil
}

func (c *Client) postImage(ctx context.Context, path string, img Image, out interface{}) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}

	body, contentType, err := encodeImage(img)
	if err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("AI service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}

func encodeImage(img Image) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	filename := img.Filename
	if filename == "" {
		filename = "image"
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
