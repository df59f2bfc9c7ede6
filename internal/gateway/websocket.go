package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/verte-zerg/tracepad/internal/model"
)

// WebSocket sends each batch as one text message and reads one reply.
type WebSocket struct {
	url     string
	timeout time.Duration
	dialer  *websocket.Dialer
	logger  *slog.Logger
}

// NewWebSocket returns a WebSocket gateway for url.
func NewWebSocket(url string, timeout time.Duration) *WebSocket {
	return &WebSocket{url: url, timeout: timeout, dialer: websocket.DefaultDialer, logger: slog.Default()}
}

// Submit implements Submitter.
func (w *WebSocket) Submit(ctx context.Context, batch model.Batch) (model.SubmitResult, error) {
	ctx, cancel := contextWithTimeout(ctx, w.timeout)
	defer cancel()

	conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return model.SubmitResult{}, fmt.Errorf("failed to dial gateway: %w", err)
	}
	defer func() {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		closeLogged(w.logger, "websocket", conn)
	}()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
		_ = conn.SetReadDeadline(deadline)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := conn.WriteJSON(batch.Samples); err != nil {
		return model.SubmitResult{}, fmt.Errorf("failed to send batch: %w", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return model.SubmitResult{}, fmt.Errorf("failed to read reply: %w", ctx.Err())
		}
		return model.SubmitResult{}, fmt.Errorf("failed to read reply: %w", err)
	}
	return parseReply(data)
}
