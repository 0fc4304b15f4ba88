package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/storage/database"
)

// Config returns the configuration used across tests.
func Config() *core.Config {
	return &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Elimu",
		Build:     "test",
		SecretKey: "secret",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
			ShutdownTimeout:    time.Second,
		},
		Email: core.EmailConfig{DefaultFromEmail: "Elimu <noreply@test.cd>"},
	}
}

// PrepareDB opens a fresh, migrated in-memory sqlite database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, "sqlite://"+uuid.NewString()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// NewValidator returns a validator with every custom tag and translation registered.
func NewValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	return validate
}

// CreateStudent registers a student through the service, so the profile and role grant exist.
func CreateStudent(t *testing.T, svc user.Service, uname, first, last string) user.User {
	t.Helper()
	usr, err := svc.Register(context.Background(), user.Registration{
		Username:  uname,
		Email:     uname + "@test.cd",
		Password:  "pass1234",
		FirstName: first,
		LastName:  last,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return usr
}

// CreateStaff provisions a teacher or an administrator.
func CreateStaff(t *testing.T, svc user.Service, uname string, role user.Role) user.User {
	t.Helper()
	usr, err := svc.CreateStaff(context.Background(), user.NewStaff{
		Registration: user.Registration{
			Username:  uname,
			Email:     uname + "@test.cd",
			Password:  "pass1234",
			FirstName: "Staff",
			LastName:  uname,
		},
		Role: role,
	})
	if err != nil {
		t.Fatalf("CreateStaff() failed: %v", err)
	}
	return usr
}

func StudentID(t *testing.T, svc user.Service, usr user.User) string {
	t.Helper()
	p, err := svc.StudentProfile(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("StudentID() failed: %v", err)
	}
	return p.ID
}

func TeacherID(t *testing.T, svc user.Service, usr user.User) string {
	t.Helper()
	p, err := svc.TeacherProfile(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("TeacherID() failed: %v", err)
	}
	return p.ID
}

func CreateCourse(t *testing.T, svc course.Service, title, authorID string) course.Course {
	t.Helper()
	crs, err := svc.CreateCourse(context.Background(), course.NewCourse{Title: title}, authorID)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateModule(t *testing.T, svc course.Service, courseID, title string, order int) course.Module {
	t.Helper()
	mod, err := svc.CreateModule(context.Background(), courseID, course.NewModule{Title: title, Order: &order})
	if err != nil {
		t.Fatalf("CreateModule() failed: %v", err)
	}
	return mod
}

// CreateContent adds a content item; quiz is only stored for quiz contents.
func CreateContent(
	t *testing.T,
	svc course.Service,
	moduleID, title string,
	typ course.ContentType,
	order int,
	tags string,
	quiz ...course.Question,
) course.Content {
	t.Helper()
	nc := course.NewContent{Title: title, Type: typ, Order: &order, Tags: tags}
	if typ == course.ContentQuiz {
		nc.Quiz = quiz
	}
	c, err := svc.CreateContent(context.Background(), moduleID, nc)
	if err != nil {
		t.Fatalf("CreateContent() failed: %v", err)
	}
	return c
}

// SampleQuiz has two questions whose correct options are 1 and 0.
func SampleQuiz() []course.Question {
	return []course.Question{
		{ID: "q1", Text: "2 + 2?", Options: []string{"3", "4", "5"}, CorrectOption: 1},
		{ID: "q2", Text: "Capital of DRC?", Options: []string{"Kinshasa", "Lubumbashi"}, CorrectOption: 0},
	}
}
