package sqlxrepos

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/tests"
)

func TestCourseRepository_QueryCourses(t *testing.T) {
	e := setup(t)
	teacher := testutil.CreateStaff(t, e.usrSvc, "teacher", user.RoleTeacher)
	testutil.CreateCourse(t, e.crsSvc, "Rust", "")
	testutil.CreateCourse(t, e.crsSvc, "Go", testutil.TeacherID(t, e.usrSvc, teacher))

	courses, err := e.crsSvc.QueryAll(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "Go", courses[0].Title)
	assert.Equal(t, "Staff teacher", courses[0].AuthorName)
	assert.Equal(t, "Rust", courses[1].Title)
	assert.Equal(t, course.NoAuthor, courses[1].AuthorName)
}

func TestCourseService_Tree(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	student := testutil.CreateStudent(t, e.usrSvc, "student", "Stu", "Dent")
	studentID := testutil.StudentID(t, e.usrSvc, student)

	crs := testutil.CreateCourse(t, e.crsSvc, "Go", "")
	mod2 := testutil.CreateModule(t, e.crsSvc, crs.ID, "Concurrency", 2)
	mod1 := testutil.CreateModule(t, e.crsSvc, crs.ID, "Basics", 1)
	video := testutil.CreateContent(t, e.crsSvc, mod1.ID, "Intro", "video", 1, "go")
	quiz := testutil.CreateContent(t, e.crsSvc, mod1.ID, "Check", "quiz", 0, "go", testutil.SampleQuiz()...)
	testutil.CreateContent(t, e.crsSvc, mod2.ID, "Channels", "article", 0, "")

	_, err := e.prgSvc.MarkComplete(ctx, studentID, video.ID)
	require.NoError(t, err)

	status, err := e.prgSvc.Statuses(ctx, studentID, crs.ID)
	require.NoError(t, err)
	tree, err := e.crsSvc.Tree(ctx, crs.ID, status)
	require.NoError(t, err)

	assert.Equal(t, course.NoAuthor, tree.Author)
	require.Len(t, tree.Modules, 2)
	assert.Equal(t, "Basics", tree.Modules[0].Title)
	assert.Equal(t, "Concurrency", tree.Modules[1].Title)

	contents := tree.Modules[0].Contents
	require.Len(t, contents, 2)
	assert.Equal(t, quiz.ID, contents[0].ID)
	assert.Equal(t, "not_started", contents[0].Status)
	assert.Equal(t, video.ID, contents[1].ID)
	assert.Equal(t, "completed", contents[1].Status)

	noStatus, err := e.crsSvc.Tree(ctx, crs.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, noStatus.Modules[0].Contents[0].Status)

	_, err = e.crsSvc.Tree(ctx, "00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, course.ErrCourseNotFound, err)
}

func TestCourseService_GetQuiz(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	crs := testutil.CreateCourse(t, e.crsSvc, "Go", "")
	mod := testutil.CreateModule(t, e.crsSvc, crs.ID, "Basics", 0)
	quiz := testutil.CreateContent(t, e.crsSvc, mod.ID, "Check", "quiz", 0, "", testutil.SampleQuiz()...)
	video := testutil.CreateContent(t, e.crsSvc, mod.ID, "Intro", "video", 1, "")

	got, err := e.crsSvc.GetQuiz(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleQuiz(), got.Quiz)

	_, err = e.crsSvc.GetQuiz(ctx, video.ID)
	assert.Equal(t, course.ErrQuizNotFound, err)
	_, err = e.crsSvc.GetQuiz(ctx, "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, course.ErrQuizNotFound, err)
}

func TestCourseService_CreateModule_unknownCourse(t *testing.T) {
	e := setup(t)
	_, err := e.crsSvc.CreateModule(context.Background(), "00000000-0000-0000-0000-000000000000", course.NewModule{Title: "x", Order: new(int)})
	assert.Equal(t, course.ErrCourseNotFound, err)

	_, err = e.crsSvc.CreateContent(context.Background(), "00000000-0000-0000-0000-000000000000", course.NewContent{Title: "x", Type: "video", Order: new(int)})
	assert.Equal(t, course.ErrModuleNotFound, err)
}

func TestCourseService_deleteCascades(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	student := testutil.CreateStudent(t, e.usrSvc, "student", "Stu", "Dent")
	studentID := testutil.StudentID(t, e.usrSvc, student)

	seed := func() (course.Course, course.Module, course.Content) {
		crs := testutil.CreateCourse(t, e.crsSvc, "Go", "")
		mod := testutil.CreateModule(t, e.crsSvc, crs.ID, "Basics", 0)
		quiz := testutil.CreateContent(t, e.crsSvc, mod.ID, "Check", "quiz", 0, "", testutil.SampleQuiz()...)
		_, err := e.prgSvc.MarkComplete(ctx, studentID, quiz.ID)
		require.NoError(t, err)
		_, err = e.prgSvc.SubmitQuiz(ctx, studentID, quiz.ID, map[string]int{"q1": 1, "q2": 0})
		require.NoError(t, err)
		return crs, mod, quiz
	}
	assertEmpty := func(t *testing.T) {
		for _, table := range []string{"assessment_attempts", "progress_records", "learning_contents"} {
			assert.Equal(t, 0, count(t, e.db, table), table)
		}
	}

	t.Run("course", func(t *testing.T) {
		crs, _, _ := seed()
		deleted, err := e.crsSvc.DeleteCourse(ctx, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, "Go", deleted.Title)
		assertEmpty(t)
		assert.Equal(t, 0, count(t, e.db, "modules"))
		assert.Equal(t, 0, count(t, e.db, "courses"))

		_, err = e.crsSvc.DeleteCourse(ctx, crs.ID)
		assert.Equal(t, course.ErrCourseNotFound, err)
	})

	t.Run("module", func(t *testing.T) {
		crs, mod, _ := seed()
		_, err := e.crsSvc.DeleteModule(ctx, mod.ID)
		require.NoError(t, err)
		assertEmpty(t)
		assert.Equal(t, 0, count(t, e.db, "modules"))

		_, err = e.crsSvc.GetCourse(ctx, crs.ID)
		assert.NoError(t, err)
		_, err = e.crsSvc.DeleteCourse(ctx, crs.ID)
		require.NoError(t, err)
	})

	t.Run("content", func(t *testing.T) {
		crs, mod, quiz := seed()
		_, err := e.crsSvc.DeleteContent(ctx, quiz.ID)
		require.NoError(t, err)
		assertEmpty(t)

		_, err = e.crsSvc.GetModule(ctx, mod.ID)
		assert.NoError(t, err)
		_, err = e.crsSvc.DeleteContent(ctx, quiz.ID)
		assert.Equal(t, course.ErrContentNotFound, err)
		_, err = e.crsSvc.DeleteCourse(ctx, crs.ID)
		require.NoError(t, err)
	})
}
