package bloglist

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	Description string  `xml:"description"`
	GUID        rssGUID `xml:"guid"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

func (a *App) handleFeed(c echo.Context) error {
	blogs, err := a.Cache.ListBlogs(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, blogs)
}

func (a *App) renderRSS(c echo.Context, blogs []Blog) error {
	items := make([]rssItem, 0, len(blogs))
	for _, b := range blogs {
		desc := b.Title
		if b.Author != "" {
			desc = "by " + b.Author
		}
		items = append(items, rssItem{
			Title:       b.Title,
			Link:        b.URL,
			Description: desc,
			GUID:        rssGUID{Value: BuildURL(a.Config.BaseURL, "api", "blogs", b.ID)},
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        a.Config.BaseURL,
			Description: a.Config.Description,
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
