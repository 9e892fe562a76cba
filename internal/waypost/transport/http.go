package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/waypost/waypost/api/types/v1alpha1"
	werrors "github.com/waypost/waypost/internal/waypost/errors"
)

// HTTPSender delivers batches via POST <endpoint>/monitoring/<category>
type HTTPSender struct {
	// baseURL is the root URL of the ingestion endpoint
	baseURL string
	// httpClient is the underlying HTTP client
	httpClient *http.Client
	// beaconTimeout bounds shutdown sends
	beaconTimeout time.Duration
	// logger records delivery failures; transport errors never propagate
	// beyond the queue manager
	logger *slog.Logger
}

// Option configures an HTTPSender
type Option func(*HTTPSender)

// WithSendTimeout sets the per-request timeout for async sends
func WithSendTimeout(timeout time.Duration) Option {
	return func(s *HTTPSender) {
		s.httpClient.Timeout = timeout
	}
}

// WithBeaconTimeout sets the hard deadline for shutdown sends
func WithBeaconTimeout(timeout time.Duration) Option {
	return func(s *HTTPSender) {
		s.beaconTimeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(s *HTTPSender) {
		s.httpClient = client
	}
}

// NewHTTPSender creates a sender for the given ingestion endpoint
func NewHTTPSender(baseURL string, logger *slog.Logger, options ...Option) (*HTTPSender, error) {
	// Validate and normalize base URL
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}

	s := &HTTPSender{
		baseURL: u.String(),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		beaconTimeout: 200 * time.Millisecond,
		logger:        logger,
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// Send implements Sender.Send
func (s *HTTPSender) Send(ctx context.Context, batch v1alpha1.EventBatch) error {
	const op = "HTTPSender.Send"

	if err := s.post(ctx, batch); err != nil {
		return werrors.NewError("SEND_FAILED", err.Error(), op, werrors.ErrTransport)
	}
	return nil
}

// SendBeacon implements Sender.SendBeacon. The batch is marked sync and sent
// under the beacon deadline; the outcome is logged and discarded.
func (s *HTTPSender) SendBeacon(batch v1alpha1.EventBatch) {
	ctx, cancel := context.WithTimeout(context.Background(), s.beaconTimeout)
	defer cancel()

	batch.Metadata.Sync = true
	if err := s.post(ctx, batch); err != nil {
		s.logger.Debug("beacon send failed",
			"category", batch.Category,
			"events", batch.Len(),
			"error", err,
		)
	}
}

func (s *HTTPSender) post(ctx context.Context, batch v1alpha1.EventBatch) error {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}
	u.Path = path.Join(u.Path, "monitoring", string(batch.Category))

	payload := v1alpha1.BatchPayload{
		Events:   batch.Events,
		Metadata: batch.Metadata,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error encoding batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending batch: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	// Any 2xx counts as accepted
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ingestion endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
