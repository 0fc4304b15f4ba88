package sqlxrepos

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

type courseRepository struct {
	repository
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{repository{db: db}}
}

const courseSelect = `
	SELECT c.id, c.title, c.description, c.teacher_id, c.created_at, c.updated_at,
		t.first_name AS author_first_name, t.last_name AS author_last_name
	FROM courses c LEFT JOIN teachers t ON t.id = c.teacher_id`

type courseRow struct {
	ID              string      `db:"id"`
	Title           string      `db:"title"`
	Description     null.String `db:"description"`
	TeacherID       null.String `db:"teacher_id"`
	AuthorFirstName null.String `db:"author_first_name"`
	AuthorLastName  null.String `db:"author_last_name"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func (r courseRow) unboil() course.Course {
	c := course.Course{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description.String,
		AuthorID:    r.TeacherID.String,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.AuthorFirstName.Valid {
		c.AuthorName = strings.TrimSpace(r.AuthorFirstName.String + " " + r.AuthorLastName.String)
	} else {
		c.AuthorName = course.NoAuthor
	}
	return c
}

type moduleRow struct {
	ID          string      `db:"id"`
	CourseID    string      `db:"course_id"`
	Title       string      `db:"title"`
	Description null.String `db:"description"`
	SortOrder   int         `db:"sort_order"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (r moduleRow) unboil() course.Module {
	return course.Module{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Title:       r.Title,
		Description: r.Description.String,
		Order:       r.SortOrder,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

const contentColumns = `lc.id, lc.module_id, lc.content_type, lc.title, lc.url, lc.body, lc.sort_order, lc.quiz, lc.tags, lc.created_at`

type contentRow struct {
	ID          string      `db:"id"`
	ModuleID    string      `db:"module_id"`
	ContentType string      `db:"content_type"`
	Title       string      `db:"title"`
	URL         null.String `db:"url"`
	Body        null.String `db:"body"`
	SortOrder   int         `db:"sort_order"`
	Quiz        null.String `db:"quiz"`
	Tags        null.String `db:"tags"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (r contentRow) unboil() (course.Content, error) {
	c := course.Content{
		ID:        r.ID,
		ModuleID:  r.ModuleID,
		Type:      course.ContentType(r.ContentType),
		Title:     r.Title,
		URL:       r.URL.String,
		Body:      r.Body.String,
		Order:     r.SortOrder,
		Tags:      r.Tags.String,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.Quiz.Valid && r.Quiz.String != "" {
		if err := json.Unmarshal([]byte(r.Quiz.String), &c.Quiz); err != nil {
			return course.Content{}, errors.Wrapf(err, "decoding quiz of content %s", r.ID)
		}
	}
	return c, nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	ex := repo.getExec(exec)
	c.ID = uuid.NewString()
	q := ex.Rebind(`INSERT INTO courses (id, title, description, teacher_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := ex.ExecContext(ctx, q,
		c.ID, c.Title,
		null.NewString(c.Description, c.Description != ""),
		null.NewString(c.AuthorID, c.AuthorID != ""),
		c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return repo.GetCourse(ctx, c.ID, ex)
}

func (repo courseRepository) QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]course.Course, error) {
	ex := repo.getExec(exec)
	var rows []courseRow
	if err := sqlx.SelectContext(ctx, ex, &rows, courseSelect+` ORDER BY c.title, c.id`); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.unboil())
	}
	return courses, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	ex := repo.getExec(exec)
	var row courseRow
	if err := sqlx.GetContext(ctx, ex, &row, ex.Rebind(courseSelect+` WHERE c.id = ?`), id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrCourseNotFound, "getting course")
	}
	return row.unboil(), nil
}

func (repo courseRepository) CreateModule(ctx context.Context, m course.Module, exec ...core.DBExecutor) (course.Module, error) {
	ex := repo.getExec(exec)
	m.ID = uuid.NewString()
	q := ex.Rebind(`INSERT INTO modules (id, course_id, title, description, sort_order, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := ex.ExecContext(ctx, q,
		m.ID, m.CourseID, m.Title,
		null.NewString(m.Description, m.Description != ""),
		m.Order, m.CreatedAt)
	if err != nil {
		return course.Module{}, errors.Wrap(err, "inserting module")
	}
	return m, nil
}

func (repo courseRepository) GetModule(ctx context.Context, id string, exec ...core.DBExecutor) (course.Module, error) {
	ex := repo.getExec(exec)
	var row moduleRow
	q := ex.Rebind(`SELECT id, course_id, title, description, sort_order, created_at FROM modules WHERE id = ?`)
	if err := sqlx.GetContext(ctx, ex, &row, q, id); err != nil {
		return course.Module{}, trapNoRowsErr(err, course.ErrModuleNotFound, "getting module")
	}
	return row.unboil(), nil
}

func (repo courseRepository) QueryModules(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Module, error) {
	ex := repo.getExec(exec)
	var rows []moduleRow
	q := ex.Rebind(`SELECT id, course_id, title, description, sort_order, created_at FROM modules WHERE course_id = ? ORDER BY sort_order, title`)
	if err := sqlx.SelectContext(ctx, ex, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	modules := make([]course.Module, 0, len(rows))
	for _, r := range rows {
		modules = append(modules, r.unboil())
	}
	return modules, nil
}

func (repo courseRepository) CreateContent(ctx context.Context, c course.Content, exec ...core.DBExecutor) (course.Content, error) {
	ex := repo.getExec(exec)
	c.ID = uuid.NewString()

	var quiz null.String
	if c.Quiz != nil {
		data, err := json.Marshal(c.Quiz)
		if err != nil {
			return course.Content{}, errors.Wrap(err, "encoding quiz")
		}
		quiz = null.StringFrom(string(data))
	}

	q := ex.Rebind(`
		INSERT INTO learning_contents (id, module_id, content_type, title, url, body, sort_order, quiz, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := ex.ExecContext(ctx, q,
		c.ID, c.ModuleID, string(c.Type), c.Title,
		null.NewString(c.URL, c.URL != ""),
		null.NewString(c.Body, c.Body != ""),
		c.Order, quiz,
		null.NewString(c.Tags, c.Tags != ""),
		c.CreatedAt)
	if err != nil {
		return course.Content{}, errors.Wrap(err, "inserting content")
	}
	return c, nil
}

func (repo courseRepository) GetContent(ctx context.Context, id string, exec ...core.DBExecutor) (course.Content, error) {
	ex := repo.getExec(exec)
	var row contentRow
	q := ex.Rebind(`SELECT ` + contentColumns + ` FROM learning_contents lc WHERE lc.id = ?`)
	if err := sqlx.GetContext(ctx, ex, &row, q, id); err != nil {
		return course.Content{}, trapNoRowsErr(err, course.ErrContentNotFound, "getting content")
	}
	return row.unboil()
}

func (repo courseRepository) QueryCourseContents(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Content, error) {
	ex := repo.getExec(exec)
	var rows []contentRow
	q := ex.Rebind(`
		SELECT ` + contentColumns + `
		FROM learning_contents lc JOIN modules m ON m.id = lc.module_id
		WHERE m.course_id = ?
		ORDER BY lc.sort_order, lc.title`)
	if err := sqlx.SelectContext(ctx, ex, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying course contents")
	}
	contents := make([]course.Content, 0, len(rows))
	for _, r := range rows {
		c, err := r.unboil()
		if err != nil {
			return nil, err
		}
		contents = append(contents, c)
	}
	return contents, nil
}

// cascade runs the delete statements in order, each with the same id argument.
func cascade(ctx context.Context, ex core.DBExecutor, id string, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := ex.ExecContext(ctx, ex.Rebind(stmt), id); err != nil {
			return errors.Wrapf(err, "cascading delete: %s", stmt)
		}
	}
	return nil
}

func (repo courseRepository) DeleteCourseCascade(ctx context.Context, id string, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	const contents = `SELECT lc.id FROM learning_contents lc JOIN modules m ON m.id = lc.module_id WHERE m.course_id = ?`
	err := cascade(ctx, ex, id,
		`DELETE FROM assessment_attempts WHERE content_id IN (`+contents+`)`,
		`DELETE FROM progress_records WHERE content_id IN (`+contents+`)`,
		`DELETE FROM learning_contents WHERE module_id IN (SELECT id FROM modules WHERE course_id = ?)`,
		`DELETE FROM modules WHERE course_id = ?`,
	)
	if err != nil {
		return err
	}
	res, err := ex.ExecContext(ctx, ex.Rebind(`DELETE FROM courses WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return checkAffected(res, course.ErrCourseNotFound)
}

func (repo courseRepository) DeleteModuleCascade(ctx context.Context, id string, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	const contents = `SELECT id FROM learning_contents WHERE module_id = ?`
	err := cascade(ctx, ex, id,
		`DELETE FROM assessment_attempts WHERE content_id IN (`+contents+`)`,
		`DELETE FROM progress_records WHERE content_id IN (`+contents+`)`,
		`DELETE FROM learning_contents WHERE module_id = ?`,
	)
	if err != nil {
		return err
	}
	res, err := ex.ExecContext(ctx, ex.Rebind(`DELETE FROM modules WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return checkAffected(res, course.ErrModuleNotFound)
}

func (repo courseRepository) DeleteContentCascade(ctx context.Context, id string, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	err := cascade(ctx, ex, id,
		`DELETE FROM assessment_attempts WHERE content_id = ?`,
		`DELETE FROM progress_records WHERE content_id = ?`,
	)
	if err != nil {
		return err
	}
	res, err := ex.ExecContext(ctx, ex.Rebind(`DELETE FROM learning_contents WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting content")
	}
	return checkAffected(res, course.ErrContentNotFound)
}
