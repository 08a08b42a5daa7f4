// Package extractor talks to the external face embedding and landmark services.
package extractor

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

	"github.com/kozaktomas/rollcall/internal/imageutil"
	"github.com/kozaktomas/rollcall/internal/liveness"
)

// ErrUnavailable is returned when no provider could process an image.
var ErrUnavailable = errors.New("extractor unavailable")

// ErrNoProviders is returned by a Chain without providers.
var ErrNoProviders = errors.New("no extractor providers configured")

// Face is one face found by the embedding service.
type Face struct {
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// Rect converts the [x1, y1, x2, y2] box to an integer rectangle.
func (f Face) Rect() (liveness.Rect, bool) {
	if len(f.BBox) < 4 {
		return liveness.Rect{}, false
	}
	r := liveness.Rect{
		X: int(f.BBox[0]),
		Y: int(f.BBox[1]),
		W: int(f.BBox[2] - f.BBox[0]),
		H: int(f.BBox[3] - f.BBox[1]),
	}
	return r, !r.Empty()
}

// Extraction is the result of one image submitted to the embedding service.
// Zero faces is a successful extraction.
type Extraction struct {
	Faces []Face `json:"faces"`
	// FacesCount is the number of faces the service detected. It can exceed
	// len(Faces) when some detections came back without an embedding.
	FacesCount int    `json:"faces_count"`
	Model      string `json:"model"`
	Provider   string `json:"-"`
}

// Count returns how many faces were detected in the image.
func (e *Extraction) Count() int {
	return max(e.FacesCount, len(e.Faces))
}

// Embedder turns an image into zero or more face embeddings.
type Embedder interface {
	Extract(ctx context.Context, image []byte) (*Extraction, error)
}

const defaultEmbeddingURL = "http://localhost:8000"

// Client computes face embeddings and landmarks using an HTTP extractor service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new extractor client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Name identifies the provider in logs.
func (c *Client) Name() string {
	return c.baseURL
}

type faceResponse struct {
	FacesCount int    `json:"faces_count"`
	Faces      []Face `json:"faces"`
	Model      string `json:"model"`
}

// Extract detects faces and computes their embeddings.
func (c *Client) Extract(ctx context.Context, image []byte) (*Extraction, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", image, nil)
	if err != nil {
		return nil, err
	}

	var resp faceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	for i, f := range resp.Faces {
		if len(f.Embedding) == 0 {
			return nil, fmt.Errorf("face %d: empty embedding returned", i)
		}
	}
	return &Extraction{
		Faces:      resp.Faces,
		FacesCount: resp.FacesCount,
		Model:      resp.Model,
		Provider:   c.baseURL,
	}, nil
}

// DetectFace returns the first detected face box, or nil when the frame has no face.
func (c *Client) DetectFace(ctx context.Context, frame []byte) (*liveness.Rect, error) {
	ext, err := c.Extract(ctx, frame)
	if err != nil {
		return nil, err
	}
	for _, f := range ext.Faces {
		if r, ok := f.Rect(); ok {
			return &r, nil
		}
	}
	return nil, nil
}

type landmarkResponse struct {
	Landmarks [][2]float64 `json:"landmarks"`
}

// Landmarks returns the 68-point shape of the face inside box.
func (c *Client) Landmarks(ctx context.Context, frame []byte, box liveness.Rect) (liveness.Landmarks, error) {
	fields := map[string]string{
		"x": fmt.Sprint(box.X),
		"y": fmt.Sprint(box.Y),
		"w": fmt.Sprint(box.W),
		"h": fmt.Sprint(box.H),
	}
	body, err := c.postMultipartImage(ctx, "/landmarks", frame, fields)
	if err != nil {
		return nil, err
	}

	var resp landmarkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(resp.Landmarks) < liveness.LandmarkCount {
		return nil, fmt.Errorf("expected %d landmarks, got %d", liveness.LandmarkCount, len(resp.Landmarks))
	}

	lm := make(liveness.Landmarks, len(resp.Landmarks))
	for i, p := range resp.Landmarks {
		lm[i] = liveness.Point{X: p[0], Y: p[1]}
	}
	return lm, nil
}

// postMultipartImage posts the image as the "file" part, plus any extra form fields.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte, fields map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", imageutil.DetectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}
