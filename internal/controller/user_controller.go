package controller

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"github.com/bilawal506/online-mart/internal/dto"
	"github.com/bilawal506/online-mart/internal/middleware"
	"github.com/bilawal506/online-mart/internal/service"
	pkgdto "github.com/bilawal506/online-mart/pkg/dto"
	"github.com/bilawal506/online-mart/pkg/errs"
	"github.com/bilawal506/online-mart/pkg/response"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type UserController struct {
	service service.UserService
}

func CreateUserController(e *echo.Echo, service service.UserService, auth echo.MiddlewareFunc) {
	uc := UserController{
		service: service,
	}

	e.POST("/signup/", uc.Signup)
	e.POST("/token", uc.Login)
	e.POST("/forgot-password/", uc.ForgotPassword)
	e.GET("/reset-password", uc.ResetPasswordForm)
	e.POST("/reset-password", uc.ResetPassword)
	e.GET("/users/me/", uc.GetCurrentUser, auth)
	e.GET("/users/", uc.GetUsers, auth, middleware.RequireAdmin)
	e.DELETE("/delete-user/:id", uc.DeleteUser, auth, middleware.RequireAdmin)
}

func (uc *UserController) Signup(c echo.Context) error {
	payload := dto.UserRequest{}
	if err := c.Bind(&payload); err != nil {
		log.Ctx(c.Request().Context()).Warn().Err(err).Str("component", "Signup").Msg("")
		return response.WriteErrorResponse(c, errs.ErrClient)
	}
	if err := c.Validate(payload); err != nil {
		return response.WriteErrorResponse(c, err)
	}

	resp, err := uc.service.Signup(c.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(c, err)
	}

	return response.WriteSuccessResponse(c, "", resp)
}

// Login implements the OAuth2 password grant, so the body is the bare token
// object rather than the usual envelope.
func (uc *UserController) Login(c echo.Context) error {
	payload := dto.TokenRequest{}
	if err := c.Bind(&payload); err != nil {
		return response.WriteErrorResponse(c, errs.ErrClient)
	}
	if err := c.Validate(payload); err != nil {
		return response.WriteErrorResponse(c, err)
	}

	resp, err := uc.service.Login(c.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

func (uc *UserController) GetCurrentUser(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.WriteErrorResponse(c, errs.ErrNotLoggedIn)
	}
	if principal.User != nil {
		return response.WriteSuccessResponse(c, "", dto.NewUserResponse(*principal.User))
	}

	resp, err := uc.service.GetCurrentUser(c.Request().Context(), principal.Username)
	if err != nil {
		return response.WriteErrorResponse(c, err)
	}

	return response.WriteSuccessResponse(c, "", resp)
}

func (uc *UserController) GetUsers(c echo.Context) error {
	filter := pkgdto.Filter{}
	if err := c.Bind(&filter); err != nil {
		return response.WriteErrorResponse(c, errs.ErrClient)
	}

	resp, err := uc.service.GetUsers(c.Request().Context(), filter)
	if err != nil {
		return response.WriteErrorResponse(c, err)
	}

	return response.WriteSuccessResponse(c, "", resp)
}

func (uc *UserController) ForgotPassword(c echo.Context) error {
	payload := dto.ForgotPasswordRequest{}
	if err := c.Bind(&payload); err != nil {
		return response.WriteErrorResponse(c, errs.ErrClient)
	}
	if err := c.Validate(payload); err != nil {
		return response.WriteErrorResponse(c, err)
	}

	if err := uc.service.ForgotPassword(c.Request().Context(), payload); err != nil {
		return response.WriteErrorResponse(c, err)
	}

	return response.WriteSuccessResponse(c, "Password reset email has been sent", nil)
}

func (uc *UserController) ResetPasswordForm(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return response.WriteErrorResponse(c, errs.ErrInvalidResetToken)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "reset_password.html", map[string]string{"Token": token}); err != nil {
		return response.WriteErrorResponse(c, err)
	}

	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (uc *UserController) ResetPassword(c echo.Context) error {
	payload := dto.ResetPasswordRequest{}
	if err := c.Bind(&payload); err != nil {
		return response.WriteErrorResponse(c, errs.ErrClient)
	}
	if err := c.Validate(payload); err != nil {
		return response.WriteErrorResponse(c, err)
	}

	if err := uc.service.ResetPassword(c.Request().Context(), payload); err != nil {
		return response.WriteErrorResponse(c, err)
	}

	return response.WriteSuccessResponse(c, "Password has been reset successfully", nil)
}

func (uc *UserController) DeleteUser(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.WriteErrorResponse(c, errs.ErrClient)
	}

	resp, err := uc.service.DeleteUser(c.Request().Context(), id)
	if err != nil {
		return response.WriteErrorResponse(c, err)
	}

	return response.WriteSuccessResponse(c, "", resp)
}
