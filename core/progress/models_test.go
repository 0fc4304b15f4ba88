package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/elimu/core/course"
)

func TestGrade(t *testing.T) {
	questions := []course.Question{
		{ID: "a", CorrectOption: 0},
		{ID: "b", CorrectOption: 2},
		{ID: "", CorrectOption: 1}, // keyed by index
	}

	tests := []struct {
		name    string
		answers map[string]int
		want    Result
	}{
		{
			name:    "no answers",
			answers: map[string]int{},
			want:    Result{Score: 0, Total: 3, Percentage: 0},
		},
		{
			name:    "all correct",
			answers: map[string]int{"a": 0, "b": 2, "2": 1},
			want:    Result{Score: 3, Total: 3, Percentage: 100},
		},
		{
			name:    "one of three",
			answers: map[string]int{"a": 0, "b": 1, "unknown": 4},
			want:    Result{Score: 1, Total: 3, Percentage: 33.33},
		},
		{
			name:    "two of three",
			answers: map[string]int{"a": 0, "2": 1},
			want:    Result{Score: 2, Total: 3, Percentage: 66.67},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Grade(questions, tt.answers)
			assert.Equal(t, tt.want.Score, got.Score)
			assert.Equal(t, tt.want.Total, got.Total)
			assert.Equal(t, tt.want.Percentage, got.Percentage)
			assert.Equal(t, map[string]int{"a": 0, "b": 2, "2": 1}, got.CorrectAnswers)
		})
	}
}

func TestGrade_emptyQuiz(t *testing.T) {
	got := Grade(nil, map[string]int{"a": 1})
	assert.Equal(t, Result{Score: 0, Total: 0, Percentage: 0, CorrectAnswers: map[string]int{}}, got)
}
