package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/user"
)

type progressAPI struct {
	svc      progress.Service
	users    *userAPI
	validate *validator.Validate
}

func registerProgressAPI(g *echo.Group, jwt echo.MiddlewareFunc, ua *userAPI, deps *Deps) {
	api := progressAPI{svc: deps.ProgressSvc, users: ua, validate: deps.Validate}

	g.POST("/quizzes/:id/submit", api.submitQuiz, guard(jwt, ua, AnyRole(user.RoleStudent))...)
	g.GET("/quizzes/:id/attempts", api.queryAttempts, guard(jwt, ua, AnyRole(user.RoleStudent))...)
	g.POST("/progress/:id/complete", api.markComplete, guard(jwt, ua, Authenticated())...)
}

// Handlers

func (api *progressAPI) submitQuiz(ctx echo.Context) error {
	contentID, err := pathID(ctx, "id", course.ErrQuizNotFound)
	if err != nil {
		return err
	}
	var data progress.Submission
	if err := ctx.Bind(&data); err != nil {
		return invalidBody(err)
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	studentID, err := api.users.studentID(ctx)
	if err != nil {
		return err
	}
	graded, err := api.svc.SubmitQuiz(ctx.Request().Context(), studentID, contentID, data.Answers)
	if err != nil {
		return errors.Wrap(err, "submitting quiz")
	}
	return ctx.JSON(http.StatusOK, graded)
}

func (api *progressAPI) queryAttempts(ctx echo.Context) error {
	contentID, err := pathID(ctx, "id", course.ErrQuizNotFound)
	if err != nil {
		return err
	}
	studentID, err := api.users.studentID(ctx)
	if err != nil {
		return err
	}
	attempts, err := api.svc.Attempts(ctx.Request().Context(), studentID, contentID)
	if err != nil {
		return errors.Wrap(err, "querying attempts")
	}
	return ctx.JSON(http.StatusOK, attempts)
}

func (api *progressAPI) markComplete(ctx echo.Context) error {
	contentID, err := pathID(ctx, "id", course.ErrContentNotFound)
	if err != nil {
		return err
	}
	studentID, err := api.users.studentID(ctx)
	if err != nil {
		return err
	}
	rec, err := api.svc.MarkComplete(ctx.Request().Context(), studentID, contentID)
	if err != nil {
		return errors.Wrap(err, "marking content complete")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Content marked as completed", "progress": rec})
}
