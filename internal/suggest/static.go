package suggest

import (
	"context"

	"github.com/google/uuid"

	"github.com/vovakirdan/supportchat-server/internal/core"
)

const (
	placeholderMessage    = "AI-generated response based on FAQs"
	placeholderConfidence = 0.92
)

// Static answers every request with the same canned suggestion.
// It stands in for the AI service when none is configured.
type Static struct {
	Message    string
	Confidence float64
}

// NewStatic returns the default placeholder suggester.
func NewStatic() *Static {
	return &Static{Message: placeholderMessage, Confidence: placeholderConfidence}
}

// Suggest implements core.Suggester.
func (s *Static) Suggest(_ context.Context, _ core.SuggestionRequest) (*core.Suggestion, error) {
	return &core.Suggestion{
		ID:         uuid.NewString(),
		Message:    s.Message,
		Confidence: core.ClampConfidence(s.Confidence),
		Sources:    []core.SuggestionSource{},
	}, nil
}
