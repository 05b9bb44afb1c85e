package bloglist

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/bloglist/stats"
)

// Summary holds every statistic. It keeps the historical wire shape: absent
// results are rendered as an empty object rather than null.
type Summary struct {
	Dummy        int `json:"dummy"`
	TotalLikes   int `json:"totalLikes"`
	FavoriteBlog any `json:"favoriteBlog"`
	MostBlogs    any `json:"mostBlogs"`
	MostLikes    any `json:"mostLikes"`
}

type empty struct{}

// Summarize runs every statistic over blogs.
func Summarize(blogs []Blog) (Summary, error) {
	recs := records(blogs)
	if err := stats.Check(recs); err != nil {
		return Summary{}, err
	}
	resp := Summary{
		Dummy:        stats.Probe(recs),
		TotalLikes:   stats.TotalLikes(recs),
		FavoriteBlog: empty{},
		MostBlogs:    empty{},
		MostLikes:    empty{},
	}
	if i, ok := stats.FavoriteIndex(recs); ok {
		resp.FavoriteBlog = blogs[i]
	}
	if mb, ok := stats.MostBlogs(recs); ok {
		resp.MostBlogs = mb
	}
	if ml, ok := stats.MostLikes(recs); ok {
		resp.MostLikes = ml
	}
	return resp, nil
}

func (a *App) handleStats(c echo.Context) error {
	blogs, err := a.Cache.ListBlogs(c.Request().Context())
	if err != nil {
		return err
	}
	resp, err := Summarize(blogs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}
