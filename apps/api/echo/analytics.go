package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/analytics"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

type analyticsAPI struct {
	svc   analytics.Service
	users *userAPI
}

func registerAnalyticsAPI(g *echo.Group, jwt echo.MiddlewareFunc, ua *userAPI, deps *Deps) {
	api := analyticsAPI{svc: deps.AnalyticsSvc, users: ua}
	staff := guard(jwt, ua, staffOnly)

	g.GET("/courses/:id/progress", api.courseProgress, staff...)
	g.GET("/courses/:id/performance", api.coursePerformance, staff...)
	g.GET("/students/me/recommendations", api.recommendations, guard(jwt, ua, AnyRole(user.RoleStudent))...)
}

func (api *analyticsAPI) courseProgress(ctx echo.Context) error {
	courseID, err := pathID(ctx, "id", course.ErrCourseNotFound)
	if err != nil {
		return err
	}
	report, err := api.svc.CourseProgress(ctx.Request().Context(), courseID)
	if err != nil {
		return errors.Wrap(err, "computing course progress")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *analyticsAPI) coursePerformance(ctx echo.Context) error {
	courseID, err := pathID(ctx, "id", course.ErrCourseNotFound)
	if err != nil {
		return err
	}
	report, err := api.svc.CoursePerformance(ctx.Request().Context(), courseID)
	if err != nil {
		return errors.Wrap(err, "computing course performance")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *analyticsAPI) recommendations(ctx echo.Context) error {
	studentID, err := api.users.studentID(ctx)
	if err != nil {
		return err
	}
	recs, err := api.svc.Recommendations(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "computing recommendations")
	}
	return ctx.JSON(http.StatusOK, recs)
}
