package tests

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/services/llm"
	"github.com/trezcool/elimu/tests"
)

const generatedQuiz = `{"questions":[` +
	`{"question":"Q1?","options":["a","b","c","d"],"answer":"a"},` +
	`{"question":"Q2?","options":["a","b","c","d"],"answer":"b"},` +
	`{"question":"Q3?","options":["a","b","c","d"],"answer":"c"}]}`

func Test_assistantApi_generateQuiz(t *testing.T) {
	e := setup(t)
	teacher := testutil.CreateStaff(t, e.usrSvc, "teacher", user.RoleTeacher)
	student := testutil.CreateStudent(t, e.usrSvc, "student", "Stu", "Dent")
	token := getToken(t, e, teacher)

	article := marchallObj(t, map[string]string{"text": strings.Repeat("Photosynthesis turns light into sugar. ", 5)})
	e.ai.AddResponse(llm.MockResponse{Text: "```json\n" + generatedQuiz + "\n```"})
	e.ai.AddResponse(llm.MockResponse{Text: `{"questions": "nope"}`})
	e.ai.AddResponse(llm.MockResponse{Err: errors.New("boom")})

	upstream := marchallObj(t, httpErr{Error: "AI service failed, please try again later"})
	tests := []httpTest{
		{
			name: "Student forbidden", method: http.MethodPost, path: "/api/ai/generate-quiz", token: getToken(t, e, student),
			body: article, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "missing text", method: http.MethodPost, path: "/api/ai/generate-quiz", token: token,
			body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"text": "this field is required"}),
		},
		{
			name: "short text", method: http.MethodPost, path: "/api/ai/generate-quiz", token: token,
			body: []byte(`{"text":"too short"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"text": "article text must contain at least 100 characters"}),
		},
		{
			name: "success", method: http.MethodPost, path: "/api/ai/generate-quiz", token: token,
			body: article, wantCode: http.StatusOK, wantData: []byte(generatedQuiz),
		},
		{
			name: "malformed output", method: http.MethodPost, path: "/api/ai/generate-quiz", token: token,
			body: article, wantCode: http.StatusBadGateway, wantData: upstream,
		},
		{
			name: "provider failure", method: http.MethodPost, path: "/api/ai/generate-quiz", token: token,
			body: article, wantCode: http.StatusBadGateway, wantData: upstream,
		},
	}
	runTests(t, e.app, tests)

	// only the last three requests reached the provider
	assert.Equal(t, 3, e.ai.CallCount())
}

func Test_assistantApi_chat(t *testing.T) {
	e := setup(t)
	teacher := testutil.CreateStaff(t, e.usrSvc, "teacher", user.RoleTeacher)
	student := testutil.CreateStudent(t, e.usrSvc, "student", "Stu", "Dent")
	token := getToken(t, e, student)

	e.ai.AddResponse(llm.MockResponse{Text: "  Chlorophyll absorbs light.  "})
	body := marchallObj(t, map[string]string{"question": "What absorbs light?", "context": "Chlorophyll absorbs light."})

	tests := []httpTest{
		{
			name: "Teacher forbidden", method: http.MethodPost, path: "/api/ai/chatbot", token: getToken(t, e, teacher),
			body: body, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "missing context", method: http.MethodPost, path: "/api/ai/chatbot", token: token,
			body: []byte(`{"question":"Why?"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"context": "this field is required"}),
		},
		{
			name: "success", method: http.MethodPost, path: "/api/ai/chatbot", token: token,
			body: body, wantCode: http.StatusOK, wantData: marchallObj(t, map[string]string{"answer": "Chlorophyll absorbs light."}),
		},
	}
	runTests(t, e.app, tests)

	req, ok := e.ai.LastCall()
	require.True(t, ok)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "Chlorophyll absorbs light.")
	assert.Contains(t, req.Messages[0].Content, "What absorbs light?")
}

func Test_assistantApi_unavailable(t *testing.T) {
	e := setupWithProvider(t, nil)
	teacher := testutil.CreateStaff(t, e.usrSvc, "teacher", user.RoleTeacher)
	student := testutil.CreateStudent(t, e.usrSvc, "student", "Stu", "Dent")

	unavailable := marchallObj(t, httpErr{Error: "AI service is not configured"})
	tests := []httpTest{
		{
			name: "generate-quiz", method: http.MethodPost, path: "/api/ai/generate-quiz", token: getToken(t, e, teacher),
			body:     marchallObj(t, map[string]string{"text": strings.Repeat("x", 120)}),
			wantCode: http.StatusServiceUnavailable, wantData: unavailable,
		},
		{
			name: "chatbot", method: http.MethodPost, path: "/api/ai/chatbot", token: getToken(t, e, student),
			body:     marchallObj(t, map[string]string{"question": "Why?", "context": "Because."}),
			wantCode: http.StatusServiceUnavailable, wantData: unavailable,
		},
	}
	runTests(t, e.app, tests)
}
