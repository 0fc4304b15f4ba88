package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{repository{db: db}}
}

type userRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) unboil(roles []user.Role) user.User {
	if roles == nil {
		roles = []user.Role{}
	}
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Roles:        roles,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type profileRow struct {
	ID        string      `db:"id"`
	UserID    string      `db:"user_id"`
	FirstName string      `db:"first_name"`
	LastName  string      `db:"last_name"`
	Title     null.String `db:"title"`
	CreatedAt time.Time   `db:"created_at"`
}

// mapUniqueErr converts a unique violation on users into the matching user error.
func mapUniqueErr(err error, msg string) error {
	if constraint, ok := uniqueViolation(err); ok {
		switch constraint {
		case "users_username_key":
			return user.ErrUsernameExists
		case "users_email_key":
			return user.ErrEmailExists
		}
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email string, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	var rows []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	q := ex.Rebind(`SELECT username, email FROM users WHERE username = ? OR email = ?`)
	if err := sqlx.SelectContext(ctx, ex, &rows, q, username, email); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, r := range rows {
		if r.Username == username {
			return user.ErrUsernameExists
		}
	}
	if len(rows) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	ex := repo.getExec(exec)
	usr.ID = uuid.NewString()
	q := ex.Rebind(`INSERT INTO users (id, username, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := ex.ExecContext(ctx, q, usr.ID, usr.Username, usr.Email, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt); err != nil {
		return user.User{}, mapUniqueErr(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) CreateStudentProfile(ctx context.Context, p user.StudentProfile, exec ...core.DBExecutor) (user.StudentProfile, error) {
	ex := repo.getExec(exec)
	p.ID = uuid.NewString()
	q := ex.Rebind(`INSERT INTO students (id, user_id, first_name, last_name, created_at) VALUES (?, ?, ?, ?, ?)`)
	if _, err := ex.ExecContext(ctx, q, p.ID, p.UserID, p.FirstName, p.LastName, p.CreatedAt); err != nil {
		return user.StudentProfile{}, errors.Wrap(err, "inserting student profile")
	}
	return p, nil
}

func (repo userRepository) CreateTeacherProfile(ctx context.Context, p user.TeacherProfile, exec ...core.DBExecutor) (user.TeacherProfile, error) {
	ex := repo.getExec(exec)
	p.ID = uuid.NewString()
	q := ex.Rebind(`INSERT INTO teachers (id, user_id, first_name, last_name, title, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	title := null.NewString(p.Title, p.Title != "")
	if _, err := ex.ExecContext(ctx, q, p.ID, p.UserID, p.FirstName, p.LastName, title, p.CreatedAt); err != nil {
		return user.TeacherProfile{}, errors.Wrap(err, "inserting teacher profile")
	}
	return p, nil
}

func (repo userRepository) GrantRole(ctx context.Context, userID string, role user.Role, grantedAt time.Time, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	q := ex.Rebind(`INSERT INTO user_roles (user_id, role, granted_at) VALUES (?, ?, ?)`)
	_, err := ex.ExecContext(ctx, q, userID, string(role), grantedAt)
	return errors.Wrap(err, "granting role")
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	ex := repo.getExec(exec)

	var (
		where string
		args  []interface{}
	)
	switch {
	case filter.ID != "":
		where, args = "id = ?", []interface{}{filter.ID}
	case filter.Email != "":
		where, args = "email = ?", []interface{}{filter.Email}
	case filter.Username != "":
		where, args = "username = ?", []interface{}{filter.Username}
	case filter.UsernameOrEmail != "":
		where, args = "username = ? OR email = ?", []interface{}{filter.UsernameOrEmail, filter.UsernameOrEmail}
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	q := ex.Rebind(`SELECT id, username, email, password_hash, created_at, updated_at FROM users WHERE ` + where + ` LIMIT 1`)
	if err := sqlx.GetContext(ctx, ex, &row, q, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}

	var roles []user.Role
	q = ex.Rebind(`SELECT role FROM user_roles WHERE user_id = ? ORDER BY role`)
	if err := sqlx.SelectContext(ctx, ex, &roles, q, row.ID); err != nil {
		return user.User{}, errors.Wrap(err, "getting user roles")
	}
	return row.unboil(roles), nil
}

func (repo userRepository) GetRoles(ctx context.Context, userID string, exec ...core.DBExecutor) ([]user.Role, error) {
	ex := repo.getExec(exec)
	var rows []struct {
		UserID string      `db:"user_id"`
		Role   null.String `db:"role"`
	}
	q := ex.Rebind(`
		SELECT u.id AS user_id, r.role
		FROM users u LEFT JOIN user_roles r ON r.user_id = u.id
		WHERE u.id = ?
		ORDER BY r.role`)
	if err := sqlx.SelectContext(ctx, ex, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "getting user roles")
	}
	if len(rows) == 0 {
		return nil, user.ErrNotFound
	}
	roles := make([]user.Role, 0, len(rows))
	for _, r := range rows {
		if r.Role.Valid {
			roles = append(roles, user.Role(r.Role.String))
		}
	}
	return roles, nil
}

func (repo userRepository) QuerySummaries(ctx context.Context, exec ...core.DBExecutor) ([]user.Summary, error) {
	ex := repo.getExec(exec)
	var rows []struct {
		ID               string      `db:"id"`
		Username         string      `db:"username"`
		Email            string      `db:"email"`
		StudentFirstName null.String `db:"student_first_name"`
		StudentLastName  null.String `db:"student_last_name"`
		TeacherFirstName null.String `db:"teacher_first_name"`
		TeacherLastName  null.String `db:"teacher_last_name"`
	}
	q := `
		SELECT u.id, u.username, u.email,
			s.first_name AS student_first_name, s.last_name AS student_last_name,
			t.first_name AS teacher_first_name, t.last_name AS teacher_last_name
		FROM users u
			LEFT JOIN students s ON s.user_id = u.id
			LEFT JOIN teachers t ON t.user_id = u.id
		ORDER BY u.username`
	if err := sqlx.SelectContext(ctx, ex, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	var grants []struct {
		UserID string `db:"user_id"`
		Role   string `db:"role"`
	}
	if err := sqlx.SelectContext(ctx, ex, &grants, `SELECT user_id, role FROM user_roles ORDER BY role`); err != nil {
		return nil, errors.Wrap(err, "querying user roles")
	}
	roles := make(map[string][]user.Role, len(rows))
	for _, g := range grants {
		roles[g.UserID] = append(roles[g.UserID], user.Role(g.Role))
	}

	summaries := make([]user.Summary, 0, len(rows))
	for _, r := range rows {
		s := user.Summary{ID: r.ID, Username: r.Username, Email: r.Email, Roles: roles[r.ID]}
		if s.Roles == nil {
			s.Roles = []user.Role{}
		}
		if r.StudentFirstName.Valid {
			s.FirstName, s.LastName = r.StudentFirstName.String, r.StudentLastName.String
		} else if r.TeacherFirstName.Valid {
			s.FirstName, s.LastName = r.TeacherFirstName.String, r.TeacherLastName.String
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func (repo userRepository) GetStudentProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (user.StudentProfile, error) {
	ex := repo.getExec(exec)
	var row profileRow
	q := ex.Rebind(`SELECT id, user_id, first_name, last_name, created_at FROM students WHERE user_id = ?`)
	if err := sqlx.GetContext(ctx, ex, &row, q, userID); err != nil {
		return user.StudentProfile{}, trapNoRowsErr(err, user.ErrStudentProfileNotFound, "getting student profile")
	}
	return user.StudentProfile{
		ID:        row.ID,
		UserID:    row.UserID,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		CreatedAt: row.CreatedAt.UTC(),
	}, nil
}

func (repo userRepository) GetTeacherProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (user.TeacherProfile, error) {
	ex := repo.getExec(exec)
	var row profileRow
	q := ex.Rebind(`SELECT id, user_id, first_name, last_name, title, created_at FROM teachers WHERE user_id = ?`)
	if err := sqlx.GetContext(ctx, ex, &row, q, userID); err != nil {
		return user.TeacherProfile{}, trapNoRowsErr(err, user.ErrTeacherProfileNotFound, "getting teacher profile")
	}
	return user.TeacherProfile{
		ID:        row.ID,
		UserID:    row.UserID,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Title:     row.Title.String,
		CreatedAt: row.CreatedAt.UTC(),
	}, nil
}

func (repo userRepository) UpdatePassword(ctx context.Context, userID, hash string, updatedAt time.Time, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	q := ex.Rebind(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`)
	res, err := ex.ExecContext(ctx, q, hash, updatedAt, userID)
	if err != nil {
		return errors.Wrap(err, "updating password")
	}
	return checkAffected(res, user.ErrNotFound)
}

func (repo userRepository) DeleteUserCascade(ctx context.Context, userID string, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	steps := []struct {
		query string
		msg   string
	}{
		{`DELETE FROM assessment_attempts WHERE student_id IN (SELECT id FROM students WHERE user_id = ?)`, "deleting attempts"},
		{`DELETE FROM progress_records WHERE student_id IN (SELECT id FROM students WHERE user_id = ?)`, "deleting progress"},
		{`DELETE FROM students WHERE user_id = ?`, "deleting student profile"},
		{`UPDATE courses SET teacher_id = NULL WHERE teacher_id IN (SELECT id FROM teachers WHERE user_id = ?)`, "detaching courses"},
		{`DELETE FROM teachers WHERE user_id = ?`, "deleting teacher profile"},
		{`DELETE FROM user_roles WHERE user_id = ?`, "deleting role grants"},
	}
	for _, step := range steps {
		if _, err := ex.ExecContext(ctx, ex.Rebind(step.query), userID); err != nil {
			return errors.Wrap(err, step.msg)
		}
	}

	res, err := ex.ExecContext(ctx, ex.Rebind(`DELETE FROM users WHERE id = ?`), userID)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return checkAffected(res, user.ErrNotFound)
}
