package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/assistant"
	"github.com/trezcool/elimu/core/user"
)

type assistantAPI struct {
	svc      assistant.Service
	validate *validator.Validate
}

func registerAssistantAPI(g *echo.Group, jwt echo.MiddlewareFunc, ua *userAPI, deps *Deps) {
	api := assistantAPI{svc: deps.AssistantSvc, validate: deps.Validate}

	g.POST("/ai/generate-quiz", api.generateQuiz, guard(jwt, ua, staffOnly)...)
	g.POST("/ai/chatbot", api.chat, guard(jwt, ua, AnyRole(user.RoleStudent))...)
}

func (api *assistantAPI) generateQuiz(ctx echo.Context) error {
	var data assistant.QuizRequest
	if err := ctx.Bind(&data); err != nil {
		return invalidBody(err)
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	quiz, err := api.svc.GenerateQuiz(ctx.Request().Context(), data.Text)
	if err != nil {
		return errors.Wrap(err, "generating quiz")
	}
	return ctx.JSONBlob(http.StatusOK, quiz)
}

func (api *assistantAPI) chat(ctx echo.Context) error {
	var data assistant.ChatRequest
	if err := ctx.Bind(&data); err != nil {
		return invalidBody(err)
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	answer, err := api.svc.Answer(ctx.Request().Context(), data.Question, data.Context)
	if err != nil {
		return errors.Wrap(err, "answering question")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"answer": answer})
}
