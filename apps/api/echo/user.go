package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

type (
	userAPI struct {
		conf     *core.Config
		svc      user.Service
		validate *validator.Validate
	}

	loginRequest struct {
		Email    string `json:"email" validate:"required,notblank"`
		Password string `json:"password" validate:"required"`
	}

	profileResponse struct {
		ID       string      `json:"id"`
		Username string      `json:"username"`
		Email    string      `json:"email"`
		Roles    []user.Role `json:"roles"`
	}
)

func newUserAPI(conf *core.Config, deps *Deps) *userAPI {
	return &userAPI{conf: conf, svc: deps.UserSvc, validate: deps.Validate}
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *userAPI) {
	// un-authed endpoints
	g.POST("/auth/register", api.register)
	g.POST("/auth/login", api.login)

	// authed endpoints
	g.GET("/profile", api.profile, guard(jwt, api, Authenticated())...)

	admin := guard(jwt, api, AdminOnly())
	g.GET("/admin/users", api.query, admin...)
	g.POST("/admin/users", api.create, admin...)
	g.DELETE("/admin/users/:id", api.destroy, admin...)
}

// Handlers

func (api *userAPI) register(ctx echo.Context) error {
	var data user.Registration
	if err := ctx.Bind(&data); err != nil {
		return invalidBody(err)
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{
		"message": fmt.Sprintf("User '%s' registered successfully!", usr.Username),
	})
}

func (api *userAPI) login(ctx echo.Context) error {
	var data loginRequest
	if err := ctx.Bind(&data); err != nil {
		return invalidBody(err)
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), core.CleanString(data.Email, true /* lower */), data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"access_token": token})
}

func (api *userAPI) profile(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), id.UserID)
	if err != nil {
		return errors.Wrap(err, "getting user")
	}
	return ctx.JSON(http.StatusOK, profileResponse{
		ID:       usr.ID,
		Username: usr.Username,
		Email:    usr.Email,
		Roles:    usr.Roles,
	})
}

func (api *userAPI) query(ctx echo.Context) error {
	users, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userAPI) create(ctx echo.Context) error {
	var data user.NewStaff
	if err := ctx.Bind(&data); err != nil {
		return invalidBody(err)
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.CreateStaff(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating staff user")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{
		"message": fmt.Sprintf("%s '%s' created successfully.", data.Role.Title(), usr.Username),
	})
}

func (api *userAPI) destroy(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	targetID, err := pathID(ctx, "id", user.ErrNotFound)
	if err != nil {
		return err
	}

	usr, err := api.svc.Delete(ctx.Request().Context(), id.UserID, targetID)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("User '%s' has been deleted.", usr.Username),
	})
}

// Helpers

// resolveIdentity loads the roles of the token's subject and caches the Identity on ctx.
func (api *userAPI) resolveIdentity(ctx echo.Context) (Identity, error) {
	if id, err := getContextIdentity(ctx); err == nil {
		return id, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return Identity{}, err
	}

	roles, err := api.svc.Roles(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) { // deleted since the token was issued
			return Identity{}, errUnauthorized
		}
		return Identity{}, errors.Wrap(err, "loading roles")
	}
	id := Identity{UserID: claims.Subject, Username: claims.Username, Roles: roles}
	ctx.Set(contextIdentityKey, id)
	return id, nil
}

// studentID returns the caller's student profile ID, or errStudentsOnly.
func (api *userAPI) studentID(ctx echo.Context) (string, error) {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return "", err
	}
	profile, err := api.svc.StudentProfile(ctx.Request().Context(), id.UserID)
	if err != nil {
		if core.IsNotFound(err) {
			return "", errStudentsOnly
		}
		return "", errors.Wrap(err, "getting student profile")
	}
	return profile.ID, nil
}

// teacherID returns the caller's teacher profile ID, or "" when there is none.
func (api *userAPI) teacherID(ctx echo.Context) (string, error) {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return "", err
	}
	profile, err := api.svc.TeacherProfile(ctx.Request().Context(), id.UserID)
	if err != nil {
		if core.IsNotFound(err) {
			return "", nil
		}
		return "", errors.Wrap(err, "getting teacher profile")
	}
	return profile.ID, nil
}

// pathID returns the named path parameter, or notFound when it is not a UUID.
func pathID(ctx echo.Context, name string, notFound error) (string, error) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		return "", notFound
	}
	return id.String(), nil
}
