package bloglist

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type createUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Name     string `json:"name" validate:"max=200"`
	Password string `json:"password" validate:"required,min=3,max=72"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

var createUserMessages = map[string]string{
	"required": "Username and/or password missing",
	"min":      "Username and/or password too short",
}

func (a *App) handleCreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Name = strings.TrimSpace(req.Name)
	if err := c.Validate(&req); err != nil {
		return validationError(err, createUserMessages)
	}

	ctx := c.Request().Context()
	if _, err := a.Store.GetUserByUsername(ctx, req.Username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	hash, err := HashPassword(req.Password, a.Config.PasswordCost)
	if err != nil {
		return err
	}
	user, err := a.Store.CreateUser(ctx, User{Username: req.Username, Name: req.Name, PasswordHash: hash})
	if err != nil {
		return err
	}
	a.Logger.Info("user created", zap.String("id", user.ID), zap.String("username", user.Username))
	return c.JSON(http.StatusCreated, user)
}

func (a *App) handleListUsers(c echo.Context) error {
	users, err := a.Store.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

func (a *App) handleGetUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	user, err := a.Store.GetUser(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	user, err := a.Store.GetUserByUsername(c.Request().Context(), strings.TrimSpace(req.Username))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil || !CheckPassword(user.PasswordHash, req.Password) {
		a.loginLimiter.Record(ip)
		a.metrics.loginFailures.Inc()
		return ErrInvalidCredentials
	}
	a.loginLimiter.Reset(ip)

	token, err := a.tokens.Issue(user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, Username: user.Username, Name: user.Name})
}
