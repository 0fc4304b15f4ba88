package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/progress"
)

type (
	courseAPI struct {
		svc         course.Service
		progressSvc progress.Service
		users       *userAPI
		validate    *validator.Validate
	}

	courseSummary struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Author      string `json:"author"`
	}
)

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, ua *userAPI, deps *Deps) {
	api := courseAPI{
		svc:         deps.CourseSvc,
		progressSvc: deps.ProgressSvc,
		users:       ua,
		validate:    deps.Validate,
	}
	anyone := guard(jwt, ua, Authenticated())
	staff := guard(jwt, ua, staffOnly)

	g.GET("/courses", api.query, anyone...)
	g.POST("/courses", api.create, staff...)
	g.GET("/courses/:id", api.retrieve, anyone...)
	g.DELETE("/courses/:id", api.destroy, staff...)

	g.POST("/courses/:id/modules", api.createModule, staff...)
	g.DELETE("/modules/:id", api.destroyModule, staff...)

	g.POST("/modules/:id/content", api.createContent, staff...)
	g.DELETE("/content/:id", api.destroyContent, staff...)

	g.GET("/quizzes/:id", api.retrieveQuiz, anyone...)
}

// Handlers

func (api *courseAPI) query(ctx echo.Context) error {
	courses, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	res := make([]courseSummary, 0, len(courses))
	for _, c := range courses {
		res = append(res, courseSummary{ID: c.ID, Title: c.Title, Description: c.Description, Author: c.AuthorName})
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *courseAPI) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return invalidBody(err)
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	authorID, err := api.users.teacherID(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.CreateCourse(ctx.Request().Context(), data, authorID)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"message": "Course created successfully", "course_id": c.ID})
}

func (api *courseAPI) retrieve(ctx echo.Context) error {
	courseID, err := pathID(ctx, "id", course.ErrCourseNotFound)
	if err != nil {
		return err
	}

	// staff without a student profile see the tree without statuses
	var status course.StatusLookup
	studentID, err := api.users.studentID(ctx)
	switch {
	case err == nil:
		if status, err = api.progressSvc.Statuses(ctx.Request().Context(), studentID, courseID); err != nil {
			return errors.Wrap(err, "loading statuses")
		}
	case err != errStudentsOnly:
		return err
	}

	tree, err := api.svc.Tree(ctx.Request().Context(), courseID, status)
	if err != nil {
		return errors.Wrap(err, "building course tree")
	}
	return ctx.JSON(http.StatusOK, tree)
}

func (api *courseAPI) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, "id", course.ErrCourseNotFound)
	if err != nil {
		return err
	}
	c, err := api.svc.DeleteCourse(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("Course '%s' and all its contents have been deleted.", c.Title),
	})
}

func (api *courseAPI) createModule(ctx echo.Context) error {
	courseID, err := pathID(ctx, "id", course.ErrCourseNotFound)
	if err != nil {
		return err
	}
	var data course.NewModule
	if err := ctx.Bind(&data); err != nil {
		return invalidBody(err)
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.CreateModule(ctx.Request().Context(), courseID, data)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"message": "Module created successfully", "module_id": m.ID})
}

func (api *courseAPI) destroyModule(ctx echo.Context) error {
	id, err := pathID(ctx, "id", course.ErrModuleNotFound)
	if err != nil {
		return err
	}
	m, err := api.svc.DeleteModule(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("Module '%s' and all its contents have been deleted.", m.Title),
	})
}

func (api *courseAPI) createContent(ctx echo.Context) error {
	moduleID, err := pathID(ctx, "id", course.ErrModuleNotFound)
	if err != nil {
		return err
	}
	var data course.NewContent
	if err := ctx.Bind(&data); err != nil {
		return invalidBody(err)
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.CreateContent(ctx.Request().Context(), moduleID, data)
	if err != nil {
		return errors.Wrap(err, "creating content")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"message": "Content created successfully", "content_id": c.ID})
}

func (api *courseAPI) destroyContent(ctx echo.Context) error {
	id, err := pathID(ctx, "id", course.ErrContentNotFound)
	if err != nil {
		return err
	}
	c, err := api.svc.DeleteContent(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "deleting content")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("Content '%s' has been deleted.", c.Title),
	})
}

func (api *courseAPI) retrieveQuiz(ctx echo.Context) error {
	id, err := pathID(ctx, "id", course.ErrQuizNotFound)
	if err != nil {
		return err
	}
	quiz, err := api.svc.GetQuiz(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting quiz")
	}
	return ctx.JSON(http.StatusOK, quiz.QuizView())
}
