package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"trackguard-telemetry-go/internal/config"
	"trackguard-telemetry-go/internal/models"
)

// ErrNotVideo is returned when an upload's declared media type is not a
// video type. The file is rejected before any network call.
var ErrNotVideo = errors.New("file is not a video")

// UploadError wraps any upload failure: bad file type, network error or
// a non-2xx backend response.
type UploadError struct {
	StatusCode int
	Err        error
}

func (e *UploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Service is the HTTP side of the transport: upload, health probe and
// analytics pull. The streaming side lives in Stream.
type Service struct {
	cfg    *config.Config
	client *http.Client
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.UploadTimeout},
	}
}

// Upload posts the video as a multipart request and returns the job
// identifier used to correlate later stream messages.
func (s *Service) Upload(ctx context.Context, filename, contentType string, r io.Reader) (*models.UploadResponse, error) {
	if !strings.HasPrefix(contentType, "video/") {
		return nil, &UploadError{Err: fmt.Errorf("%w: %s", ErrNotVideo, contentType)}
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, &UploadError{Err: err}
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, &UploadError{Err: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &UploadError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BackendURL+s.cfg.UploadPath, &body)
	if err != nil {
		return nil, &UploadError{Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &UploadError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UploadError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", resp.Status)}
	}

	var upload models.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		return nil, &UploadError{Err: fmt.Errorf("decoding upload response: %w", err)}
	}

	log.Info().
		Str("video_id", upload.VideoID).
		Str("filename", filename).
		Msg("Video uploaded")

	return &upload, nil
}

// Health probes the backend. A failure means the system runs in demo
// mode with locally generated frames; it is not an error state.
func (s *Service) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BackendURL+s.cfg.HealthPath, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %s", resp.Status)
	}
	return nil
}

// Analytics pulls the aggregate counters fed into the store by the
// pipeline's periodic poller.
func (s *Service) Analytics(ctx context.Context) (models.AnalyticsSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BackendURL+s.cfg.AnalyticsPath, nil)
	if err != nil {
		return models.AnalyticsSummary{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return models.AnalyticsSummary{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.AnalyticsSummary{}, fmt.Errorf("analytics fetch failed: %s", resp.Status)
	}

	var summary models.AnalyticsSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return models.AnalyticsSummary{}, fmt.Errorf("decoding analytics: %w", err)
	}
	return summary, nil
}
