package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/analytics"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/tests"
)

func Test_analyticsApi_course(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	teacher := testutil.CreateStaff(t, e.usrSvc, "teacher", user.RoleTeacher)
	alice := testutil.CreateStudent(t, e.usrSvc, "alice", "Alice", "A")
	bob := testutil.CreateStudent(t, e.usrSvc, "bob", "Bob", "B")
	aliceID := testutil.StudentID(t, e.usrSvc, alice)
	bobID := testutil.StudentID(t, e.usrSvc, bob)
	teacherToken := getToken(t, e, teacher)

	crs := testutil.CreateCourse(t, e.crsSvc, "Algebra", "")
	mod := testutil.CreateModule(t, e.crsSvc, crs.ID, "Basics", 0)
	video := testutil.CreateContent(t, e.crsSvc, mod.ID, "Intro", course.ContentVideo, 0, "")
	article := testutil.CreateContent(t, e.crsSvc, mod.ID, "Read", course.ContentArticle, 1, "")
	quiz := testutil.CreateContent(t, e.crsSvc, mod.ID, "Check", course.ContentQuiz, 2, "", testutil.SampleQuiz()...)
	empty := testutil.CreateCourse(t, e.crsSvc, "Empty", "")

	for _, id := range []string{video.ID, article.ID} {
		_, err := e.prgSvc.MarkComplete(ctx, aliceID, id)
		require.NoError(t, err)
	}
	_, err := e.prgSvc.MarkComplete(ctx, bobID, quiz.ID)
	require.NoError(t, err)

	_, err = e.prgSvc.SubmitQuiz(ctx, aliceID, quiz.ID, map[string]int{"q1": 1})
	require.NoError(t, err)
	_, err = e.prgSvc.SubmitQuiz(ctx, aliceID, quiz.ID, map[string]int{"q1": 1, "q2": 0})
	require.NoError(t, err)

	tests := []httpTest{
		{
			name: "progress: Student forbidden", path: "/api/courses/" + crs.ID + "/progress", token: getToken(t, e, alice),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "progress: unknown course", path: "/api/courses/6f1c2a8e-0b6d-4a7e-9a43-2b2f3f1b9c10/progress", token: teacherToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{
			name: "progress: no contents", path: "/api/courses/" + empty.ID + "/progress", token: teacherToken,
			wantCode: http.StatusOK, wantData: []byte(`[]`),
		},
		{
			name: "progress", path: "/api/courses/" + crs.ID + "/progress", token: teacherToken, wantCode: http.StatusOK,
			wantData: marchallObj(t, []analytics.StudentProgress{
				{StudentID: aliceID, StudentName: "Alice A", CompletedItems: 2, TotalItems: 3, Percentage: 66.67},
				{StudentID: bobID, StudentName: "Bob B", CompletedItems: 1, TotalItems: 3, Percentage: 33.33},
			}),
		},
		{
			name: "performance: Student forbidden", path: "/api/courses/" + crs.ID + "/performance", token: getToken(t, e, bob),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "performance", path: "/api/courses/" + crs.ID + "/performance", token: teacherToken, wantCode: http.StatusOK,
			wantData: marchallObj(t, []analytics.StudentPerformance{
				{
					StudentID:   aliceID,
					StudentName: "Alice A",
					Attempts: []analytics.AttemptSummary{
						{QuizTitle: "Check", AttemptNumber: 1, Score: 50},
						{QuizTitle: "Check", AttemptNumber: 2, Score: 100},
					},
					AverageScore: 75,
				},
			}),
		},
	}
	runTests(t, e.app, tests)
}

func Test_analyticsApi_recommendations(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	teacher := testutil.CreateStaff(t, e.usrSvc, "teacher", user.RoleTeacher)
	student := testutil.CreateStudent(t, e.usrSvc, "student", "Stu", "Dent")
	newbie := testutil.CreateStudent(t, e.usrSvc, "newbie", "New", "Bie")
	token := getToken(t, e, student)

	crs := testutil.CreateCourse(t, e.crsSvc, "Algebra", "")
	mod := testutil.CreateModule(t, e.crsSvc, crs.ID, "Basics", 0)
	done := testutil.CreateContent(t, e.crsSvc, mod.ID, "Done", course.ContentVideo, 0, "math")
	for i := 1; i <= 6; i++ {
		testutil.CreateContent(t, e.crsSvc, mod.ID, fmt.Sprintf("Next %d", i), course.ContentArticle, i, "math")
	}
	testutil.CreateContent(t, e.crsSvc, mod.ID, "Unrelated", course.ContentArticle, 7, "history")

	_, err := e.prgSvc.MarkComplete(ctx, testutil.StudentID(t, e.usrSvc, student), done.ID)
	require.NoError(t, err)

	tests := []httpTest{
		{
			name: "Auth required", path: "/api/students/me/recommendations",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Teacher forbidden", path: "/api/students/me/recommendations", token: getToken(t, e, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "nothing completed", path: "/api/students/me/recommendations", token: getToken(t, e, newbie),
			wantCode: http.StatusOK, wantData: []byte(`[]`),
		},
	}
	runTests(t, e.app, tests)

	rec := serve(e.app, httpTest{path: "/api/students/me/recommendations", token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var recs []analytics.Candidate
	decode(t, rec, &recs)
	require.Len(t, recs, analytics.RecommendationSize)
	for i, r := range recs {
		assert.Equal(t, fmt.Sprintf("Next %d", i+1), r.Title)
		assert.Equal(t, "math", r.Tags)
		assert.Equal(t, crs.ID, r.CourseID)
		assert.Equal(t, "Algebra", r.CourseTitle)
	}
}
