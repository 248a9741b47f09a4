package chat

import (
	"context"
	"errors"
	"strings"

	"saku-backend/internal/llm"
	"saku-backend/internal/rag"
	"saku-backend/internal/shared/telemetry"
)

const defaultTopK = 5

// notConfiguredReply mirrors the placeholder answer served without a model
// key.
const notConfiguredReply = "Model key not configured. Please set GEMINI_API_KEY or GOOGLE_GENERATIVE_AI_API_KEY."

// Service answers questions over the indexed knowledge base.
type Service struct {
	Engine *rag.Engine
	LLM    llm.Client
}

// Answer is a retrieval-augmented reply with its supporting citations.
type Answer struct {
	Text      string         `json:"answer"`
	Citations []rag.Citation `json:"citations"`
	Degraded  bool           `json:"degraded,omitempty"`
}

// Search runs a semantic query and renders citations.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]rag.Citation, error) {
	if strings.TrimSpace(query) == "" {
		return []rag.Citation{}, nil
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	hits, err := s.Engine.Query(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	return rag.FormatCitations(hits), nil
}

// Chat retrieves context for the message and asks the model for an answer.
// Without a configured model the reply degrades to a fixed notice; retrieval
// and citations still work.
func (s *Service) Chat(ctx context.Context, message string) (Answer, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Answer{}, ErrEmptyMessage
	}

	hits, err := s.Engine.Query(ctx, message, defaultTopK)
	if err != nil {
		return Answer{}, err
	}
	citations := rag.FormatCitations(hits)

	contexts := make([]string, len(hits))
	for i, h := range hits {
		contexts[i] = h.Text
	}
	prompt := buildPrompt(strings.Join(contexts, "\n\n"), message)

	text, err := s.LLM.Complete(ctx, prompt)
	if err != nil {
		if !errors.Is(err, llm.ErrNotConfigured) {
			telemetry.Warn("chat completion failed", map[string]any{
				"error": err.Error(),
			})
		}
		return Answer{Text: notConfiguredReply, Citations: citations, Degraded: true}, nil
	}

	return Answer{Text: text, Citations: citations}, nil
}

func buildPrompt(context, question string) string {
	var b strings.Builder
	b.WriteString("You are SakuAI. Use the context to answer.\n\nContext:\n")
	b.WriteString(context)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}
