package progress

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

var (
	// errors
	ErrRecordNotFound = core.NewNotFoundError("progress record not found")
	// ErrAttemptTaken is returned by CreateAttempt when the attempt number is already used.
	ErrAttemptTaken = errors.New("another submission of this quiz was recorded at the same time, please retry")
)


type (
	Repository interface {
		// UpsertCompleted marks (studentID, contentID) completed, keeping an existing started_at.
		UpsertCompleted(ctx context.Context, studentID, contentID string, at time.Time, exec ...core.DBExecutor) (Record, error)
		GetRecord(ctx context.Context, studentID, contentID string, exec ...core.DBExecutor) (Record, error)
		// CourseStatuses maps content ID to status for the student's records in the course.
		CourseStatuses(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) (map[string]Status, error)
		CountAttempts(ctx context.Context, studentID, contentID string, exec ...core.DBExecutor) (int, error)
		// CreateAttempt fails with ErrAttemptTaken when a.AttemptNumber is in use.
		CreateAttempt(ctx context.Context, a Attempt, exec ...core.DBExecutor) (Attempt, error)
		// QueryAttempts returns the attempts ordered by attempt number.
		QueryAttempts(ctx context.Context, studentID, contentID string, exec ...core.DBExecutor) ([]Attempt, error)
	}

	Service interface {
		MarkComplete(ctx context.Context, studentID, contentID string) (Record, error)
		SubmitQuiz(ctx context.Context, studentID, contentID string, answers map[string]int) (Graded, error)
		// Statuses returns a course.StatusLookup defaulting to not_started.
		Statuses(ctx context.Context, studentID, courseID string) (course.StatusLookup, error)
		Attempts(ctx context.Context, studentID, contentID string) ([]Attempt, error)
	}

	service struct {
		db        core.DB
		repo      Repository
		courseSvc course.Service
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, courseSvc course.Service) Service {
	return &service{db: db, repo: repo, courseSvc: courseSvc}
}

func (svc *service) MarkComplete(ctx context.Context, studentID, contentID string) (Record, error) {
	if _, err := svc.courseSvc.GetContent(ctx, contentID); err != nil {
		return Record{}, err
	}
	return svc.repo.UpsertCompleted(ctx, studentID, contentID, core.Now())
}

// SubmitQuiz grades answers and appends a new attempt numbered after the prior ones.
func (svc *service) SubmitQuiz(ctx context.Context, studentID, contentID string, answers map[string]int) (Graded, error) {
	quiz, err := svc.courseSvc.GetQuiz(ctx, contentID)
	if err != nil {
		return Graded{}, err
	}
	if answers == nil {
		answers = map[string]int{}
	}
	res := Grade(quiz.Quiz, answers)

	attempt, err := svc.appendAttempt(ctx, Attempt{
		ContentID:   contentID,
		StudentID:   studentID,
		Score:       res.Percentage,
		MaxScore:    MaxScore,
		Answers:     answers,
		SubmittedAt: core.Now(),
	})
	if errors.Cause(err) == ErrAttemptTaken {
		// a concurrent submission took the number; the caller may resubmit
		return Graded{}, core.NewConflictError("attempt_number", ErrAttemptTaken)
	}
	if err != nil {
		return Graded{}, err
	}

	return Graded{
		Result:           res,
		SubmittedAnswers: answers,
		AttemptNumber:    attempt.AttemptNumber,
		AttemptID:        attempt.ID,
	}, nil
}

// appendAttempt numbers a after the student's prior attempts and inserts it.
func (svc *service) appendAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		prior, err := svc.repo.CountAttempts(ctx, a.StudentID, a.ContentID, tx)
		if err != nil {
			return err
		}
		a.AttemptNumber = prior + 1
		a, err = svc.repo.CreateAttempt(ctx, a, tx)
		return err
	})
	return a, err
}

func (svc *service) Statuses(ctx context.Context, studentID, courseID string) (course.StatusLookup, error) {
	statuses, err := svc.repo.CourseStatuses(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	return func(contentID string) string {
		if st, ok := statuses[contentID]; ok {
			return string(st)
		}
		return string(StatusNotStarted)
	}, nil
}

func (svc *service) Attempts(ctx context.Context, studentID, contentID string) ([]Attempt, error) {
	return svc.repo.QueryAttempts(ctx, studentID, contentID)
}
