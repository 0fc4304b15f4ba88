package analytics

import (
	"context"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

type (
	Repository interface {
		// CourseContentIDs returns the distinct content IDs across the course's modules.
		CourseContentIDs(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]string, error)
		CourseCompletions(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Completion, error)
		// CourseQuizAttempts returns all attempts on the course's quiz contents.
		CourseQuizAttempts(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]AttemptRow, error)
		// CompletedContents returns the student's completed contents in completion order.
		CompletedContents(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]CompletedContent, error)
		// Candidates returns up to limit tagged contents the student has not completed.
		Candidates(ctx context.Context, studentID string, limit int, exec ...core.DBExecutor) ([]Candidate, error)
	}

	Service interface {
		CourseProgress(ctx context.Context, courseID string) ([]StudentProgress, error)
		CoursePerformance(ctx context.Context, courseID string) ([]StudentPerformance, error)
		Recommendations(ctx context.Context, studentID string) ([]Candidate, error)
	}

	service struct {
		repo      Repository
		courseSvc course.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseSvc course.Service) Service {
	return &service{repo: repo, courseSvc: courseSvc}
}

func (svc *service) CourseProgress(ctx context.Context, courseID string) ([]StudentProgress, error) {
	if _, err := svc.courseSvc.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	ids, err := svc.repo.CourseContentIDs(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []StudentProgress{}, nil
	}
	completions, err := svc.repo.CourseCompletions(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return ProgressReport(ids, completions), nil
}

func (svc *service) CoursePerformance(ctx context.Context, courseID string) ([]StudentPerformance, error) {
	if _, err := svc.courseSvc.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	rows, err := svc.repo.CourseQuizAttempts(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return PerformanceReport(rows), nil
}

func (svc *service) Recommendations(ctx context.Context, studentID string) ([]Candidate, error) {
	completed, err := svc.repo.CompletedContents(ctx, studentID)
	if err != nil {
		return nil, err
	}
	tagStrings := make([]string, 0, len(completed))
	done := make(map[string]bool, len(completed))
	for _, c := range completed {
		done[c.ContentID] = true
		tagStrings = append(tagStrings, c.Tags)
	}
	top := TopTags(tagStrings, TopTagCount)
	if len(top) == 0 {
		return []Candidate{}, nil
	}

	candidates, err := svc.repo.Candidates(ctx, studentID, CandidateLimit)
	if err != nil {
		return nil, err
	}
	return Recommend(candidates, top, done, RecommendationSize), nil
}
