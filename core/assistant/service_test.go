package assistant_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/assistant"
	"github.com/trezcool/elimu/services/llm"
)

const validQuiz = `{"questions": [
	{"question": "Q1?", "options": ["a", "b", "c", "d"], "answer": "a"},
	{"question": "Q2?", "options": ["a", "b", "c", "d"], "answer": "b"},
	{"question": "Q3?", "options": ["a", "b", "c", "d"], "answer": "c"}
]}`

const quizWithExtras = `{"title": "T", "questions": [{"question": "Q1?", "options": ["a", "b"], "answer": "a", "explanation": "x"}]}`

var article = strings.Repeat("Go is an open source programming language. ", 5)

func TestService_GenerateQuiz(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		text     string
		provider assistant.Provider
		want     string
		wantErr  error
	}{
		{name: "short article", text: "too short", provider: llm.NewMockProvider(), wantErr: &core.ValidationError{}},
		{name: "no provider", text: article, wantErr: assistant.ErrUnavailable},
		{
			name:     "valid quiz",
			text:     article,
			provider: llm.NewMockProvider(llm.MockResponse{Text: validQuiz}),
			want:     validQuiz,
		},
		{
			name:     "fenced quiz",
			text:     article,
			provider: llm.NewMockProvider(llm.MockResponse{Text: "```json\n" + validQuiz + "\n```"}),
			want:     validQuiz,
		},
		{
			name:     "malformed JSON",
			text:     article,
			provider: llm.NewMockProvider(llm.MockResponse{Text: "Sure! Here is your quiz"}),
			wantErr:  assistant.ErrUpstream,
		},
		{
			name:     "extra keys are kept",
			text:     article,
			provider: llm.NewMockProvider(llm.MockResponse{Text: quizWithExtras}),
			want:     quizWithExtras,
		},
		{
			name:     "questions not a list",
			text:     article,
			provider: llm.NewMockProvider(llm.MockResponse{Text: `{"questions": "none"}`}),
			wantErr:  assistant.ErrUpstream,
		},
		{
			name:     "missing questions",
			text:     article,
			provider: llm.NewMockProvider(llm.MockResponse{Text: `{"items": []}`}),
			wantErr:  assistant.ErrUpstream,
		},
		{
			name:     "provider failure",
			text:     article,
			provider: llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrRateLimit{Err: errors.New("429")}}),
			wantErr:  assistant.ErrUpstream,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := assistant.NewService(tt.provider, 512, nil)

			got, err := svc.GenerateQuiz(ctx, tt.text)
			switch want := tt.wantErr.(type) {
			case nil:
				require.NoError(t, err)
				assert.JSONEq(t, tt.want, string(got))
			case *core.ValidationError:
				var vErr *core.ValidationError
				assert.True(t, errors.As(err, &vErr), "got %v", err)
			default:
				assert.Equal(t, want, errors.Cause(err))
			}
		})
	}
}

func TestService_GenerateQuiz_verbatim(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{Text: quizWithExtras})
	svc := assistant.NewService(provider, 0, nil)

	got, err := svc.GenerateQuiz(context.Background(), article)
	require.NoError(t, err)
	assert.Equal(t, quizWithExtras, string(got))
}

func TestService_GenerateQuiz_request(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{Text: validQuiz})
	svc := assistant.NewService(provider, 0, nil)

	_, err := svc.GenerateQuiz(context.Background(), "  "+article+"  ")
	require.NoError(t, err)

	req, ok := provider.LastCall()
	require.True(t, ok)
	assert.Contains(t, req.System, "exactly 3 multiple-choice questions")
	require.NotNil(t, req.Schema)
	assert.Equal(t, "article-quiz", req.Schema.Name)
	assert.Equal(t, 1024, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, strings.TrimSpace(article), req.Messages[0].Content)
}

func TestService_Answer(t *testing.T) {
	ctx := context.Background()

	_, err := assistant.NewService(nil, 0, nil).Answer(ctx, "What is Go?", article)
	assert.Equal(t, assistant.ErrUnavailable, err)

	provider := llm.NewMockProvider(llm.MockResponse{Text: "  A programming language.\n"})
	svc := assistant.NewService(provider, 0, nil)
	answer, err := svc.Answer(ctx, "What is Go?", article)
	require.NoError(t, err)
	assert.Equal(t, "A programming language.", answer)

	req, _ := provider.LastCall()
	assert.Nil(t, req.Schema)
	assert.Contains(t, req.System, "ONLY the article context")
	assert.Contains(t, req.Messages[0].Content, "Question: What is Go?")

	_, err = svc.Answer(ctx, "Again?", article) // queue exhausted
	assert.Equal(t, assistant.ErrUpstream, errors.Cause(err))
}
