package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/verte-zerg/tracepad/internal/model"
)

// FileRecord is one line of a batch file.
type FileRecord struct {
	SessionID string                  `json:"session_id"`
	Mode      model.Mode              `json:"mode,omitempty"`
	StartedAt time.Time               `json:"started_at"`
	EndedAt   time.Time               `json:"ended_at"`
	Samples   []model.TelemetrySample `json:"samples"`
}

// File appends batches as JSON lines for offline collection. It returns no metric.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a file gateway appending to path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Submit implements Submitter.
func (f *File) Submit(ctx context.Context, batch model.Batch) (model.SubmitResult, error) {
	if err := ctx.Err(); err != nil {
		return model.SubmitResult{}, err
	}
	line, err := json.Marshal(FileRecord{
		SessionID: batch.SessionID,
		Mode:      batch.Mode,
		StartedAt: batch.StartedAt.UTC(),
		EndedAt:   batch.EndedAt.UTC(),
		Samples:   batch.Samples,
	})
	if err != nil {
		return model.SubmitResult{}, fmt.Errorf("failed to encode batch: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return model.SubmitResult{}, fmt.Errorf("failed to create batch dir: %w", err)
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return model.SubmitResult{}, fmt.Errorf("failed to open batch file: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		_ = file.Close()
		return model.SubmitResult{}, fmt.Errorf("failed to write batch: %w", err)
	}
	if err := file.Close(); err != nil {
		return model.SubmitResult{}, fmt.Errorf("failed to close batch file: %w", err)
	}
	return model.SubmitResult{}, nil
}
