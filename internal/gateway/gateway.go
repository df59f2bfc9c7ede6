// Package gateway delivers completed batches to the analysis backend.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/verte-zerg/tracepad/internal/model"
)

// DefaultPath is the submission endpoint used when a URL carries no path.
const DefaultPath = "/api/get_points"

// ErrNoMetric is returned when a reply carries no usable metric.
var ErrNoMetric = errors.New("reply carries no metric")

// Submitter transmits one batch and returns the backend metric.
type Submitter interface {
	Submit(ctx context.Context, batch model.Batch) (model.SubmitResult, error)
}

// Options configure a gateway.
type Options struct {
	URL     string
	Timeout time.Duration
	Logger  *slog.Logger
}

// New picks a Submitter from the URL scheme: http(s), ws(s), file or a bare path.
// An empty URL yields a sink that only logs.
func New(opts Options) (Submitter, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	raw := strings.TrimSpace(opts.URL)
	if raw == "" {
		return Discard{Logger: logger}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway url: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		h := NewHTTP(withDefaultPath(u).String(), opts.Timeout)
		h.logger = logger
		return h, nil
	case "ws", "wss":
		ws := NewWebSocket(withDefaultPath(u).String(), opts.Timeout)
		ws.logger = logger
		return ws, nil
	case "file":
		return NewFile(u.Path), nil
	case "":
		return NewFile(raw), nil
	}
	return nil, fmt.Errorf("unsupported gateway scheme %q", u.Scheme)
}

func withDefaultPath(u *url.URL) *url.URL {
	out := *u
	if out.Path == "" || out.Path == "/" {
		out.Path = DefaultPath
	}
	return &out
}

// Discard drops batches after logging them.
type Discard struct {
	Logger *slog.Logger
}

// Submit implements Submitter.
func (d Discard) Submit(_ context.Context, batch model.Batch) (model.SubmitResult, error) {
	if d.Logger != nil {
		d.Logger.Info("no gateway configured; batch discarded",
			slog.String("session", batch.SessionID),
			slog.Int("samples", len(batch.Samples)))
	}
	return model.SubmitResult{}, nil
}

// parseReply accepts a bare JSON number or an object carrying the metric.
func parseReply(data []byte) (model.SubmitResult, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return model.SubmitResult{}, nil
	}
	var metric float64
	if err := json.Unmarshal([]byte(trimmed), &metric); err == nil {
		return model.SubmitResult{Metric: metric, HasMetric: true}, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return model.SubmitResult{}, fmt.Errorf("failed to decode reply: %w", err)
	}
	for _, key := range []string{"result", "error_mean", "metric"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &metric); err != nil {
			return model.SubmitResult{}, fmt.Errorf("failed to decode %q: %w", key, err)
		}
		return model.SubmitResult{Metric: metric, HasMetric: true}, nil
	}
	return model.SubmitResult{}, ErrNoMetric
}

// closeLogged closes c and logs a failure at debug level.
func closeLogged(logger *slog.Logger, what string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Debug("gateway close failed", slog.String("what", what), slog.Any("error", err))
	}
}

func contextWithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
