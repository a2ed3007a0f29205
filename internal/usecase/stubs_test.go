package usecase

import (
	"context"
	"errors"

	"github.com/cavtal/backend/internal/domain"
)

// stubRetriever returns a fixed passage list (or error) for every query and
// records the last query it saw.
type stubRetriever struct {
	passages  []domain.Passage
	err       error
	lastQuery string
	lastK     int
}

func (s *stubRetriever) Search(ctx context.Context, query string, k int) ([]domain.Passage, error) {
	s.lastQuery = query
	s.lastK = k
	if s.err != nil {
		return nil, s.err
	}
	return s.passages, nil
}

// stubLLM returns a fixed completion (or error) and records the last prompt.
type stubLLM struct {
	response   string
	err        error
	lastPrompt string
	calls      int
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	s.calls++
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

var errBackendDown = errors.New("backend unavailable")
