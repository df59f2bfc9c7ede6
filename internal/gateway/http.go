package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/verte-zerg/tracepad/internal/model"
)

const maxReplyBytes = 1 << 20

// HTTP posts batches as a JSON array of samples.
type HTTP struct {
	url     string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTP returns an HTTP gateway posting to url.
func NewHTTP(url string, timeout time.Duration) *HTTP {
	return &HTTP{url: url, timeout: timeout, client: &http.Client{}, logger: slog.Default()}
}

// Submit implements Submitter.
func (h *HTTP) Submit(ctx context.Context, batch model.Batch) (model.SubmitResult, error) {
	ctx, cancel := contextWithTimeout(ctx, h.timeout)
	defer cancel()

	body, err := json.Marshal(batch.Samples)
	if err != nil {
		return model.SubmitResult{}, fmt.Errorf("failed to encode batch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return model.SubmitResult{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if batch.SessionID != "" {
		req.Header.Set("X-Session-ID", batch.SessionID)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return model.SubmitResult{}, fmt.Errorf("failed to submit batch: %w", err)
	}
	defer closeLogged(h.logger, "response body", resp.Body)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return model.SubmitResult{}, fmt.Errorf("failed to read reply: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.SubmitResult{}, fmt.Errorf("gateway returned %s", resp.Status)
	}
	return parseReply(data)
}
