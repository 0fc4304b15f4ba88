package progress

import (
	"time"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

type Status string

// Statuses
const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusSkipped    Status = "skipped"
)

// Record is the current completion state of one student against one content item.
type Record struct {
	ID             string     `json:"id"`
	StudentID      string     `json:"student_id"`
	ContentID      string     `json:"content_id"`
	Status         Status     `json:"status"`
	StartedAt      *time.Time `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at"`
}

// Attempt is one graded quiz submission. Attempts are never updated.
type Attempt struct {
	ID            string         `json:"id"`
	ContentID     string         `json:"content_id"`
	StudentID     string         `json:"student_id"`
	AttemptNumber int            `json:"attempt_number"`
	Score         float64        `json:"score"` // percentage
	MaxScore      float64        `json:"max_score"`
	Answers       map[string]int `json:"answers"`
	SubmittedAt   time.Time      `json:"submitted_at"`
}

// MaxScore is the MaxScore of every attempt; scores are percentages.
const MaxScore = 100

// Submission contains the selected option index per question ID.
type Submission struct {
	Answers map[string]int `json:"answers" validate:"required"`
}

type Result struct {
	Score          int            `json:"score"` // number of correct answers
	Total          int            `json:"total"`
	Percentage     float64        `json:"percentage"`
	CorrectAnswers map[string]int `json:"correct_answers"`
}

// Grade compares answers against the quiz answer key.
func Grade(questions []course.Question, answers map[string]int) Result {
	key := course.AnswerKey(questions)
	var correct int
	for id, want := range key {
		if got, ok := answers[id]; ok && got == want {
			correct++
		}
	}
	return Result{
		Score:          correct,
		Total:          len(questions),
		Percentage:     core.Percentage(correct, len(questions)),
		CorrectAnswers: key,
	}
}

// Graded is the outcome of a quiz submission.
type Graded struct {
	Result
	SubmittedAnswers map[string]int `json:"submitted_answers"`
	AttemptNumber    int            `json:"attempt_number"`
	AttemptID        string         `json:"attempt_id"`
}
