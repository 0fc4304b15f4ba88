package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/analytics"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/progress"
)

type analyticsRepository struct {
	repository
}

var _ analytics.Repository = (*analyticsRepository)(nil) // interface compliance check

// NewAnalyticsRepository returns the read-only queries behind course reports and recommendations.
func NewAnalyticsRepository(db *sqlx.DB) analytics.Repository {
	return &analyticsRepository{repository{db: db}}
}

func (repo analyticsRepository) CourseContentIDs(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]string, error) {
	ex := repo.getExec(exec)
	var ids []string
	q := ex.Rebind(`
		SELECT DISTINCT lc.id
		FROM learning_contents lc JOIN modules m ON m.id = lc.module_id
		WHERE m.course_id = ?`)
	if err := sqlx.SelectContext(ctx, ex, &ids, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying course content ids")
	}
	return ids, nil
}

func (repo analyticsRepository) CourseCompletions(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]analytics.Completion, error) {
	ex := repo.getExec(exec)
	var rows []struct {
		StudentID string `db:"student_id"`
		FirstName string `db:"first_name"`
		LastName  string `db:"last_name"`
		ContentID string `db:"content_id"`
	}
	q := ex.Rebind(`
		SELECT pr.student_id, s.first_name, s.last_name, pr.content_id
		FROM progress_records pr
			JOIN students s ON s.id = pr.student_id
			JOIN learning_contents lc ON lc.id = pr.content_id
			JOIN modules m ON m.id = lc.module_id
		WHERE m.course_id = ? AND pr.status = ?`)
	if err := sqlx.SelectContext(ctx, ex, &rows, q, courseID, string(progress.StatusCompleted)); err != nil {
		return nil, errors.Wrap(err, "querying course completions")
	}
	completions := make([]analytics.Completion, 0, len(rows))
	for _, r := range rows {
		completions = append(completions, analytics.Completion{
			StudentID: r.StudentID,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			ContentID: r.ContentID,
		})
	}
	return completions, nil
}

func (repo analyticsRepository) CourseQuizAttempts(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]analytics.AttemptRow, error) {
	ex := repo.getExec(exec)
	var rows []struct {
		StudentID     string  `db:"student_id"`
		FirstName     string  `db:"first_name"`
		LastName      string  `db:"last_name"`
		QuizTitle     string  `db:"quiz_title"`
		AttemptNumber int     `db:"attempt_number"`
		Score         float64 `db:"score"`
	}
	q := ex.Rebind(`
		SELECT aa.student_id, s.first_name, s.last_name, lc.title AS quiz_title, aa.attempt_number, aa.score
		FROM assessment_attempts aa
			JOIN students s ON s.id = aa.student_id
			JOIN learning_contents lc ON lc.id = aa.content_id
			JOIN modules m ON m.id = lc.module_id
		WHERE m.course_id = ? AND lc.content_type = ?`)
	if err := sqlx.SelectContext(ctx, ex, &rows, q, courseID, string(course.ContentQuiz)); err != nil {
		return nil, errors.Wrap(err, "querying course quiz attempts")
	}
	attempts := make([]analytics.AttemptRow, 0, len(rows))
	for _, r := range rows {
		attempts = append(attempts, analytics.AttemptRow{
			StudentID:     r.StudentID,
			FirstName:     r.FirstName,
			LastName:      r.LastName,
			QuizTitle:     r.QuizTitle,
			AttemptNumber: r.AttemptNumber,
			Score:         r.Score,
		})
	}
	return attempts, nil
}

func (repo analyticsRepository) CompletedContents(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]analytics.CompletedContent, error) {
	ex := repo.getExec(exec)
	var rows []struct {
		ContentID string      `db:"content_id"`
		Tags      null.String `db:"tags"`
	}
	q := ex.Rebind(`
		SELECT pr.content_id, lc.tags
		FROM progress_records pr JOIN learning_contents lc ON lc.id = pr.content_id
		WHERE pr.student_id = ? AND pr.status = ?
		ORDER BY pr.completed_at, pr.id`)
	if err := sqlx.SelectContext(ctx, ex, &rows, q, studentID, string(progress.StatusCompleted)); err != nil {
		return nil, errors.Wrap(err, "querying completed contents")
	}
	completed := make([]analytics.CompletedContent, 0, len(rows))
	for _, r := range rows {
		completed = append(completed, analytics.CompletedContent{ContentID: r.ContentID, Tags: r.Tags.String})
	}
	return completed, nil
}

func (repo analyticsRepository) Candidates(ctx context.Context, studentID string, limit int, exec ...core.DBExecutor) ([]analytics.Candidate, error) {
	ex := repo.getExec(exec)
	var rows []struct {
		ContentID   string `db:"content_id"`
		Title       string `db:"title"`
		ContentType string `db:"content_type"`
		Tags        string `db:"tags"`
		ModuleID    string `db:"module_id"`
		ModuleTitle string `db:"module_title"`
		CourseID    string `db:"course_id"`
		CourseTitle string `db:"course_title"`
	}
	q := ex.Rebind(`
		SELECT lc.id AS content_id, lc.title, lc.content_type, lc.tags,
			m.id AS module_id, m.title AS module_title, c.id AS course_id, c.title AS course_title
		FROM learning_contents lc
			JOIN modules m ON m.id = lc.module_id
			JOIN courses c ON c.id = m.course_id
		WHERE lc.tags IS NOT NULL AND lc.tags <> ''
			AND lc.id NOT IN (SELECT content_id FROM progress_records WHERE student_id = ? AND status = ?)
		ORDER BY c.title, m.sort_order, lc.sort_order, lc.id
		LIMIT ?`)
	if err := sqlx.SelectContext(ctx, ex, &rows, q, studentID, string(progress.StatusCompleted), limit); err != nil {
		return nil, errors.Wrap(err, "querying recommendation candidates")
	}
	candidates := make([]analytics.Candidate, 0, len(rows))
	for _, r := range rows {
		candidates = append(candidates, analytics.Candidate{
			ContentID:   r.ContentID,
			Title:       r.Title,
			Type:        course.ContentType(r.ContentType),
			Tags:        r.Tags,
			ModuleID:    r.ModuleID,
			ModuleTitle: r.ModuleTitle,
			CourseID:    r.CourseID,
			CourseTitle: r.CourseTitle,
		})
	}
	return candidates, nil
}
