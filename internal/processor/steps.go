package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/nao1215/spiderman/internal/model"
)

// JSONLinesStep writes each page as one JSON object per line.
// It is safe for concurrent use.
type JSONLinesStep struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewJSONLinesStep returns a step writing to w.
func NewJSONLinesStep(w io.Writer) *JSONLinesStep {
	return &JSONLinesStep{encoder: json.NewEncoder(w)}
}

// Name implements Step.
func (s *JSONLinesStep) Name() string {
	return "jsonl"
}

// Do implements Step.
func (s *JSONLinesStep) Do(_ context.Context, page *model.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.encoder.Encode(page); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}
	return nil
}

// PageSaver persists pages.
type PageSaver interface {
	SavePage(ctx context.Context, page *model.Page) error
}

// SaveStep persists pages through a PageSaver.
type SaveStep struct {
	saver PageSaver
}

// NewSaveStep returns a step saving pages with saver.
func NewSaveStep(saver PageSaver) *SaveStep {
	return &SaveStep{saver: saver}
}

// Name implements Step.
func (s *SaveStep) Name() string {
	return "save"
}

// Do implements Step.
func (s *SaveStep) Do(ctx context.Context, page *model.Page) error {
	return s.saver.SavePage(ctx, page)
}
