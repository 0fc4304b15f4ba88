package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/progress"
)

type progressRepository struct {
	repository
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *sqlx.DB) progress.Repository {
	return &progressRepository{repository{db: db}}
}

type recordRow struct {
	ID             string    `db:"id"`
	StudentID      string    `db:"student_id"`
	ContentID      string    `db:"content_id"`
	Status         string    `db:"status"`
	StartedAt      null.Time `db:"started_at"`
	CompletedAt    null.Time `db:"completed_at"`
	LastAccessedAt null.Time `db:"last_accessed_at"`
}

func timePtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func (r recordRow) unboil() progress.Record {
	return progress.Record{
		ID:             r.ID,
		StudentID:      r.StudentID,
		ContentID:      r.ContentID,
		Status:         progress.Status(r.Status),
		StartedAt:      timePtr(r.StartedAt),
		CompletedAt:    timePtr(r.CompletedAt),
		LastAccessedAt: timePtr(r.LastAccessedAt),
	}
}

type attemptRow struct {
	ID            string    `db:"id"`
	ContentID     string    `db:"content_id"`
	StudentID     string    `db:"student_id"`
	AttemptNumber int       `db:"attempt_number"`
	Score         float64   `db:"score"`
	MaxScore      float64   `db:"max_score"`
	Answers       string    `db:"answers"`
	SubmittedAt   time.Time `db:"submitted_at"`
}

func (r attemptRow) unboil() (progress.Attempt, error) {
	a := progress.Attempt{
		ID:            r.ID,
		ContentID:     r.ContentID,
		StudentID:     r.StudentID,
		AttemptNumber: r.AttemptNumber,
		Score:         r.Score,
		MaxScore:      r.MaxScore,
		Answers:       map[string]int{},
		SubmittedAt:   r.SubmittedAt.UTC(),
	}
	if r.Answers != "" {
		if err := json.Unmarshal([]byte(r.Answers), &a.Answers); err != nil {
			return progress.Attempt{}, errors.Wrapf(err, "decoding answers of attempt %s", r.ID)
		}
	}
	return a, nil
}

func (repo progressRepository) UpsertCompleted(
	ctx context.Context,
	studentID, contentID string,
	at time.Time,
	exec ...core.DBExecutor,
) (progress.Record, error) {
	ex := repo.getExec(exec)
	q := ex.Rebind(`
		INSERT INTO progress_records (id, student_id, content_id, status, started_at, completed_at, last_accessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (student_id, content_id) DO UPDATE SET
			status = excluded.status,
			started_at = COALESCE(progress_records.started_at, excluded.started_at),
			completed_at = excluded.completed_at,
			last_accessed_at = excluded.last_accessed_at`)
	_, err := ex.ExecContext(ctx, q,
		uuid.NewString(), studentID, contentID, string(progress.StatusCompleted), at, at, at)
	if err != nil {
		return progress.Record{}, errors.Wrap(err, "upserting progress record")
	}
	return repo.GetRecord(ctx, studentID, contentID, ex)
}

func (repo progressRepository) GetRecord(ctx context.Context, studentID, contentID string, exec ...core.DBExecutor) (progress.Record, error) {
	ex := repo.getExec(exec)
	var row recordRow
	q := ex.Rebind(`
		SELECT id, student_id, content_id, status, started_at, completed_at, last_accessed_at
		FROM progress_records WHERE student_id = ? AND content_id = ?`)
	if err := sqlx.GetContext(ctx, ex, &row, q, studentID, contentID); err != nil {
		return progress.Record{}, trapNoRowsErr(err, progress.ErrRecordNotFound, "getting progress record")
	}
	return row.unboil(), nil
}

func (repo progressRepository) CourseStatuses(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) (map[string]progress.Status, error) {
	ex := repo.getExec(exec)
	var rows []struct {
		ContentID string `db:"content_id"`
		Status    string `db:"status"`
	}
	q := ex.Rebind(`
		SELECT pr.content_id, pr.status
		FROM progress_records pr
			JOIN learning_contents lc ON lc.id = pr.content_id
			JOIN modules m ON m.id = lc.module_id
		WHERE pr.student_id = ? AND m.course_id = ?`)
	if err := sqlx.SelectContext(ctx, ex, &rows, q, studentID, courseID); err != nil {
		return nil, errors.Wrap(err, "querying course statuses")
	}
	statuses := make(map[string]progress.Status, len(rows))
	for _, r := range rows {
		statuses[r.ContentID] = progress.Status(r.Status)
	}
	return statuses, nil
}

func (repo progressRepository) CountAttempts(ctx context.Context, studentID, contentID string, exec ...core.DBExecutor) (int, error) {
	ex := repo.getExec(exec)
	var n int
	q := ex.Rebind(`SELECT COUNT(*) FROM assessment_attempts WHERE student_id = ? AND content_id = ?`)
	if err := sqlx.GetContext(ctx, ex, &n, q, studentID, contentID); err != nil {
		return 0, errors.Wrap(err, "counting attempts")
	}
	return n, nil
}

func (repo progressRepository) CreateAttempt(ctx context.Context, a progress.Attempt, exec ...core.DBExecutor) (progress.Attempt, error) {
	ex := repo.getExec(exec)
	a.ID = uuid.NewString()
	if a.Answers == nil {
		a.Answers = map[string]int{}
	}
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return progress.Attempt{}, errors.Wrap(err, "encoding answers")
	}

	q := ex.Rebind(`
		INSERT INTO assessment_attempts (id, content_id, student_id, attempt_number, score, max_score, answers, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = ex.ExecContext(ctx, q,
		a.ID, a.ContentID, a.StudentID, a.AttemptNumber, a.Score, a.MaxScore, string(answers), a.SubmittedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return progress.Attempt{}, progress.ErrAttemptTaken
		}
		return progress.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return a, nil
}

func (repo progressRepository) QueryAttempts(ctx context.Context, studentID, contentID string, exec ...core.DBExecutor) ([]progress.Attempt, error) {
	ex := repo.getExec(exec)
	var rows []attemptRow
	q := ex.Rebind(`
		SELECT id, content_id, student_id, attempt_number, score, max_score, answers, submitted_at
		FROM assessment_attempts
		WHERE student_id = ? AND content_id = ?
		ORDER BY attempt_number`)
	if err := sqlx.SelectContext(ctx, ex, &rows, q, studentID, contentID); err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	attempts := make([]progress.Attempt, 0, len(rows))
	for _, r := range rows {
		a, err := r.unboil()
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}
