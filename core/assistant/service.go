package assistant

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

const (
	MinArticleLength = 100

	quizInstruction = `You are an assistant that writes quizzes for students.
Read the article supplied by the user and write exactly 3 multiple-choice questions about it.
Each question has 4 options and exactly one correct answer.
Respond with JSON only, in this exact shape:
{"questions": [{"question": "...", "options": ["...", "...", "...", "..."], "answer": "..."}]}
The "answer" must be identical to one of the options.`

	chatInstruction = `You are a helpful tutor. Answer the student's question using ONLY the article context provided.
If the answer cannot be found in the context, say that the article does not cover it.
Keep the answer short and clear.`
)

var (
	// errors
	ErrUnavailable = errors.New("AI service is not configured")
	ErrUpstream    = errors.New("AI service failed to produce a valid response")
)

type (
	QuizRequest struct {
		Text string `json:"text" validate:"required,notblank"`
	}

	ChatRequest struct {
		Question string `json:"question" validate:"required,notblank"`
		Context  string `json:"context" validate:"required,notblank"`
	}

	Service interface {
		// GenerateQuiz returns the generated quiz JSON verbatim.
		GenerateQuiz(ctx context.Context, text string) (json.RawMessage, error)
		Answer(ctx context.Context, question, articleCtx string) (string, error)
	}

	service struct {
		provider  Provider // nil when no API key is configured
		maxTokens int
		logger    core.Logger
	}
)

var _ Service = (*service)(nil)

// NewService returns a Service; a nil provider makes every call fail with ErrUnavailable.
func NewService(provider Provider, maxTokens int, logger core.Logger) Service {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &service{provider: provider, maxTokens: maxTokens, logger: logger}
}

func (svc *service) GenerateQuiz(ctx context.Context, text string) (json.RawMessage, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < MinArticleLength {
		return nil, core.NewValidationError(nil, core.FieldError{
			Field: "text",
			Error: "article text must contain at least 100 characters",
		})
	}
	if svc.provider == nil {
		return nil, ErrUnavailable
	}

	resp, err := svc.provider.Generate(ctx, Request{
		System:    quizInstruction,
		Messages:  []Message{{Role: RoleUser, Content: text}},
		Schema:    quizSchema,
		MaxTokens: svc.maxTokens,
	})
	if err != nil {
		return nil, svc.upstream("generating quiz", err)
	}

	raw := []byte(stripCodeFence(resp.Text))
	if _, err := ValidateJSON(acceptedQuizSchema, raw); err != nil {
		return nil, svc.upstream("validating generated quiz", err)
	}
	return json.RawMessage(raw), nil
}

func (svc *service) Answer(ctx context.Context, question, articleCtx string) (string, error) {
	if svc.provider == nil {
		return "", ErrUnavailable
	}

	prompt := "Context:\n" + strings.TrimSpace(articleCtx) + "\n\nQuestion: " + strings.TrimSpace(question)
	resp, err := svc.provider.Generate(ctx, Request{
		System:    chatInstruction,
		Messages:  []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens: svc.maxTokens,
	})
	if err != nil {
		return "", svc.upstream("answering question", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// upstream logs err and hides it behind ErrUpstream.
func (svc *service) upstream(action string, err error) error {
	if svc.logger != nil {
		svc.logger.Error(action, errors.Wrap(err, action))
	}
	return errors.Wrap(ErrUpstream, action)
}

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drop the language tag line
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
