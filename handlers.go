package bloglist

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type createBlogRequest struct {
	Title  string `json:"title"`
	Author string `json:"author" validate:"max=200"`
	URL    string `json:"url" validate:"max=2048"`
	Likes  *int   `json:"likes" validate:"omitempty,min=0"`
}

type updateBlogRequest struct {
	Title  *string `json:"title" validate:"omitempty,min=1"`
	Author *string `json:"author" validate:"omitempty,max=200"`
	URL    *string `json:"url" validate:"omitempty,min=1,max=2048"`
	Likes  *int    `json:"likes" validate:"omitempty,min=0"`
}

type commentRequest struct {
	Comment string `json:"comment" validate:"required,max=1000"`
}

func (a *App) handleListBlogs(c echo.Context) error {
	blogs, err := a.Cache.ListBlogs(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, blogs)
}

func (a *App) handleGetBlog(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	blog, err := a.Store.GetBlog(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Blog not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, blog)
}

func (a *App) handleCreateBlog(c echo.Context) error {
	var req createBlogRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	req.Title = strings.TrimSpace(req.Title)
	req.URL = strings.TrimSpace(req.URL)
	if req.Title == "" || req.URL == "" {
		return badRequest("Title and url are mandatory")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(err, nil)
	}
	user, ok := CurrentUser(c)
	if !ok {
		return ErrTokenInvalid
	}

	blog := Blog{Title: req.Title, Author: strings.TrimSpace(req.Author), URL: req.URL}
	if req.Likes != nil {
		blog.Likes = *req.Likes
	}
	created, err := a.Store.CreateBlog(c.Request().Context(), blog, user.ID)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.metrics.blogsCreated.Inc()
	a.Logger.Info("blog created", zap.String("id", created.ID), zap.String("user", user.Username))
	return c.JSON(http.StatusCreated, created)
}

func (a *App) handleUpdateBlog(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req updateBlogRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	req.Title, req.Author, req.URL = trimmed(req.Title), trimmed(req.Author), trimmed(req.URL)
	if err := c.Validate(&req); err != nil {
		return validationError(err, nil)
	}
	updated, err := a.Store.UpdateBlog(c.Request().Context(), id, BlogUpdate{
		Title:  req.Title,
		Author: req.Author,
		URL:    req.URL,
		Likes:  req.Likes,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Blog not found")
		}
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, updated)
}

func (a *App) handleDeleteBlog(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	user, ok := CurrentUser(c)
	if !ok {
		return ErrTokenInvalid
	}
	ctx := c.Request().Context()
	blog, err := a.Store.GetBlog(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Blog not found")
		}
		return err
	}
	if blog.User == nil || blog.User.ID != user.ID {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized")
	}
	if err := a.Store.DeleteBlog(ctx, id); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleAddComment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if err := c.Validate(&req); err != nil {
		return validationError(err, map[string]string{"required": "Comment is mandatory"})
	}
	blog, err := a.Store.AddComment(c.Request().Context(), id, req.Comment)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Blog not found")
		}
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusCreated, blog)
}

func (a *App) handleReset(c echo.Context) error {
	if err := a.Store.Reset(c.Request().Context()); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}
