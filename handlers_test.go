package bloglist

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var initialBlogs = []Blog{
	{Title: "React patterns", Author: "Michael Chan", URL: "https://reactpatterns.com/", Likes: 7},
	{Title: "Go To Statement Considered Harmful", Author: "Edsger W. Dijkstra", URL: "http://www.u.arizona.edu/~rubinson/copyright_violations/Go_To_Considered_Harmful.html", Likes: 5},
	{Title: "Canonical string reduction", Author: "Edsger W. Dijkstra", URL: "http://www.cs.utexas.edu/~EWD/transcriptions/EWD08xx/EWD808.html", Likes: 12},
	{Title: "First class tests", Author: "Robert C. Martin", URL: "http://blog.cleancoder.com/uncle-bob/2017/05/05/TestDefinitions.htmll", Likes: 10},
	{Title: "TDD harms architecture", Author: "Robert C. Martin", URL: "http://blog.cleancoder.com/uncle-bob/2017/03/03/TDD-Harms-Architecture.html", Likes: 0},
	{Title: "Type wars", Author: "Robert C. Martin", URL: "http://blog.cleancoder.com/uncle-bob/2016/05/01/TypeWars.html", Likes: 2},
}

const missingID = "0b6f4f3c-5c44-4a4e-9b2d-2a8f0c5c1d11"

func newTestApp(t *testing.T) *App {
	t.Helper()
	app := New(Config{
		Env:          "test",
		TokenSecret:  "sekret",
		DatabasePath: filepath.Join(t.TempDir(), "bloglist.db"),
		PasswordCost: bcrypt.MinCost,
		BaseURL:      "http://blogs.test",
	})
	require.NoError(t, app.Setup())
	t.Cleanup(func() { app.Close() })
	return app
}

func seedBlogs(t *testing.T, app *App) []Blog {
	t.Helper()
	var out []Blog
	for _, b := range initialBlogs {
		created, err := app.Store.CreateBlog(context.Background(), b, "")
		require.NoError(t, err)
		out = append(out, created)
	}
	app.Cache.Invalidate()
	return out
}

func do(t *testing.T, app *App, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decode[errorBody](t, rec).Error
}

// signup creates a user through the API and logs in, returning its token.
func signup(t *testing.T, app *App, username string) (User, string) {
	t.Helper()
	rec := do(t, app, http.MethodPost, "/api/users", map[string]string{
		"username": username, "name": "User " + username, "password": "sekret",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decode[User](t, rec)

	rec = do(t, app, http.MethodPost, "/api/login", map[string]string{
		"username": username, "password": "sekret",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return user, decode[loginResponse](t, rec).Token
}

func TestListBlogs(t *testing.T) {
	app := newTestApp(t)
	seedBlogs(t, app)

	rec := do(t, app, http.MethodGet, "/api/blogs", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Len(t, raw, len(initialBlogs))
	assert.NotEmpty(t, raw[0]["id"])
	assert.NotContains(t, raw[0], "_id")
}

func TestGetBlog(t *testing.T) {
	app := newTestApp(t)
	blogs := seedBlogs(t, app)

	rec := do(t, app, http.MethodGet, "/api/blogs/"+blogs[0].ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "React patterns", decode[Blog](t, rec).Title)

	rec = do(t, app, http.MethodGet, "/api/blogs/"+missingID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, app, http.MethodGet, "/api/blogs/12345", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "malformatted id", errorMessage(t, rec))
}

func TestCreateBlog(t *testing.T) {
	app := newTestApp(t)
	seedBlogs(t, app)
	user, token := signup(t, app, "root")

	newBlog := map[string]any{"title": "Test", "author": "Test author", "url": "http:/testurl.html", "likes": 3}
	rec := do(t, app, http.MethodPost, "/api/blogs", newBlog, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[Blog](t, rec)
	assert.Equal(t, "Test", created.Title)
	require.NotNil(t, created.User)
	assert.Equal(t, user.ID, created.User.ID)
	assert.Equal(t, "root", created.User.Username)

	rec = do(t, app, http.MethodGet, "/api/blogs", nil, "")
	blogs := decode[[]Blog](t, rec)
	require.Len(t, blogs, len(initialBlogs)+1)
	assert.Equal(t, "Test", blogs[len(blogs)-1].Title)

	rec = do(t, app, http.MethodGet, "/api/users/"+user.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	owner := decode[User](t, rec)
	require.Len(t, owner.Blogs, 1)
	assert.Equal(t, created.ID, owner.Blogs[0].ID)
}

func TestCreateBlogLikesDefaultToZero(t *testing.T) {
	app := newTestApp(t)
	_, token := signup(t, app, "root")

	rec := do(t, app, http.MethodPost, "/api/blogs", map[string]string{"title": "No likes", "url": "http://x"}, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 0, decode[Blog](t, rec).Likes)
}

func TestCreateBlogValidation(t *testing.T) {
	app := newTestApp(t)
	_, token := signup(t, app, "root")

	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"missing title", map[string]any{"author": "a", "url": "http://x"}, "Title and url are mandatory"},
		{"missing url", map[string]any{"title": "t", "author": "a"}, "Title and url are mandatory"},
		{"blank title", map[string]any{"title": "  ", "url": "http://x"}, "Title and url are mandatory"},
		{"negative likes", map[string]any{"title": "t", "url": "http://x", "likes": -1}, "likes must be at least 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, app, http.MethodPost, "/api/blogs", tt.body, token)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, errorMessage(t, rec))
		})
	}
}

func TestCreateBlogRequiresToken(t *testing.T) {
	app := newTestApp(t)
	seedBlogs(t, app)
	body := map[string]any{"title": "t", "url": "http://x"}

	rec := do(t, app, http.MethodPost, "/api/blogs", body, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token invalid", errorMessage(t, rec))

	rec = do(t, app, http.MethodPost, "/api/blogs", body, "bogus")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := NewTokenIssuer("sekret", -time.Minute).Issue(User{ID: missingID, Username: "ghost"})
	require.NoError(t, err)
	rec = do(t, app, http.MethodPost, "/api/blogs", body, expired)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token expired", errorMessage(t, rec))

	// valid signature, but the user no longer exists
	orphan, err := app.tokens.Issue(User{ID: missingID, Username: "ghost"})
	require.NoError(t, err)
	rec = do(t, app, http.MethodPost, "/api/blogs", body, orphan)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	blogs, err := app.Store.ListBlogs(context.Background())
	require.NoError(t, err)
	assert.Len(t, blogs, len(initialBlogs))
}

func TestDeleteBlog(t *testing.T) {
	app := newTestApp(t)
	_, token := signup(t, app, "root")
	_, otherToken := signup(t, app, "mallory")

	rec := do(t, app, http.MethodPost, "/api/blogs", map[string]any{"title": "mine", "url": "http://mine"}, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	blog := decode[Blog](t, rec)

	rec = do(t, app, http.MethodDelete, "/api/blogs/"+blog.ID, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, app, http.MethodDelete, "/api/blogs/"+blog.ID, nil, otherToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized", errorMessage(t, rec))

	rec = do(t, app, http.MethodDelete, "/api/blogs/"+blog.ID, nil, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, app, http.MethodGet, "/api/blogs/"+blog.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, app, http.MethodDelete, "/api/blogs/"+blog.ID, nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateBlog(t *testing.T) {
	app := newTestApp(t)
	blogs := seedBlogs(t, app)

	rec := do(t, app, http.MethodPut, "/api/blogs/"+blogs[0].ID, map[string]any{"likes": 99}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[Blog](t, rec)
	assert.Equal(t, 99, updated.Likes)
	assert.Equal(t, blogs[0].Title, updated.Title)

	rec = do(t, app, http.MethodGet, "/api/blogs/"+blogs[0].ID, nil, "")
	assert.Equal(t, 99, decode[Blog](t, rec).Likes)

	rec = do(t, app, http.MethodPut, "/api/blogs/"+blogs[0].ID, map[string]any{"likes": -5}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, app, http.MethodPut, "/api/blogs/"+blogs[0].ID, map[string]any{"title": ""}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, app, http.MethodPut, "/api/blogs/"+missingID, map[string]any{"likes": 1}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddComment(t *testing.T) {
	app := newTestApp(t)
	blogs := seedBlogs(t, app)

	rec := do(t, app, http.MethodPost, "/api/blogs/"+blogs[1].ID+"/comments", map[string]string{"comment": "classic"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"classic"}, decode[Blog](t, rec).Comments)

	rec = do(t, app, http.MethodPost, "/api/blogs/"+blogs[1].ID+"/comments", map[string]string{"comment": ""}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Comment is mandatory", errorMessage(t, rec))

	rec = do(t, app, http.MethodPost, "/api/blogs/"+missingID+"/comments", map[string]string{"comment": "x"}, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Blog not found", errorMessage(t, rec))

	rec = do(t, app, http.MethodGet, "/api/blogs", nil, "")
	listed := decode[[]Blog](t, rec)
	assert.Equal(t, []string{"classic"}, listed[1].Comments)
}

func TestCreateUser(t *testing.T) {
	app := newTestApp(t)

	rec := do(t, app, http.MethodPost, "/api/users", map[string]string{"username": "root", "name": "Superuser", "password": "sekret"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sekret")
	assert.NotContains(t, strings.ToLower(rec.Body.String()), "hash")

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{"missing password", map[string]string{"username": "someone"}, "Username and/or password missing"},
		{"missing username", map[string]string{"password": "sekret"}, "Username and/or password missing"},
		{"short username", map[string]string{"username": "ab", "password": "sekret"}, "Username and/or password too short"},
		{"short password", map[string]string{"username": "someone", "password": "pw"}, "Username and/or password too short"},
		{"short and missing", map[string]string{"username": "ab"}, "Username and/or password missing"},
		{"duplicate", map[string]string{"username": "root", "password": "sekret"}, "Username already in use"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, app, http.MethodPost, "/api/users", tt.body, "")
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, errorMessage(t, rec))
		})
	}

	rec = do(t, app, http.MethodGet, "/api/users", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]User](t, rec), 1)
}

func TestGetUserNotFound(t *testing.T) {
	app := newTestApp(t)
	rec := do(t, app, http.MethodGet, "/api/users/"+missingID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, app, http.MethodGet, "/api/users/nope", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)
	user, token := signup(t, app, "root")

	claims, err := app.tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)

	rec := do(t, app, http.MethodPost, "/api/login", map[string]string{"username": "root", "password": "sekret"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[loginResponse](t, rec)
	assert.Equal(t, "root", resp.Username)
	assert.Equal(t, "User root", resp.Name)

	rec = do(t, app, http.MethodPost, "/api/login", map[string]string{"username": "root", "password": "wrong"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid username or password", errorMessage(t, rec))

	rec = do(t, app, http.MethodPost, "/api/login", map[string]string{"username": "nobody", "password": "sekret"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRateLimited(t *testing.T) {
	app := newTestApp(t)
	signup(t, app, "root")
	bad := map[string]string{"username": "root", "password": "wrong"}

	for i := 0; i < app.Config.LoginAttempts; i++ {
		rec := do(t, app, http.MethodPost, "/api/login", bad, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i)
	}
	rec := do(t, app, http.MethodPost, "/api/login", map[string]string{"username": "root", "password": "sekret"}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	app := newTestApp(t)

	rec := do(t, app, http.MethodGet, "/api/blogs/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"dummy":1,"totalLikes":0,"favoriteBlog":{},"mostBlogs":{},"mostLikes":{}}`, rec.Body.String())

	blogs := seedBlogs(t, app)
	rec = do(t, app, http.MethodGet, "/api/blogs/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"dummy": 1,
		"totalLikes": 36,
		"favoriteBlog": {"id":"`+blogs[2].ID+`","title":"Canonical string reduction","author":"Edsger W. Dijkstra","url":"http://www.cs.utexas.edu/~EWD/transcriptions/EWD08xx/EWD808.html","likes":12,"comments":[]},
		"mostBlogs": {"author":"Robert C. Martin","blogs":3},
		"mostLikes": {"author":"Edsger W. Dijkstra","likes":17}
	}`, rec.Body.String())
}

func TestStatsFavoriteKeepsOwner(t *testing.T) {
	app := newTestApp(t)
	u, token := signup(t, app, "root")

	rec := do(t, app, http.MethodPost, "/api/blogs", map[string]any{"title": "owned", "author": "Zed", "url": "http://z", "likes": 9}, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[Blog](t, rec)

	rec = do(t, app, http.MethodGet, "/api/blogs/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary struct {
		FavoriteBlog Blog `json:"favoriteBlog"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, created.ID, summary.FavoriteBlog.ID)
	require.NotNil(t, summary.FavoriteBlog.User)
	assert.Equal(t, u.ID, summary.FavoriteBlog.User.ID)
}

func TestStatsSeesWritesThroughCache(t *testing.T) {
	app := newTestApp(t)
	_, token := signup(t, app, "root")

	rec := do(t, app, http.MethodGet, "/api/blogs/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, app, http.MethodPost, "/api/blogs", map[string]any{"title": "t", "author": "Zed", "url": "http://z", "likes": 4}, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, app, http.MethodGet, "/api/blogs/stats", nil, "")
	summary := decode[map[string]any](t, rec)
	assert.EqualValues(t, 4, summary["totalLikes"])
}

func TestSummarizeRejectsInvalidRecords(t *testing.T) {
	_, err := Summarize([]Blog{{Title: "bad", Likes: -1}})
	require.Error(t, err)
	code, _ := classifyError(err)
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestFeed(t *testing.T) {
	app := newTestApp(t)
	blogs := seedBlogs(t, app)

	rec := do(t, app, http.MethodGet, "/api/blogs/feed.xml", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/rss+xml")

	var feed rssXML
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &feed))
	require.Len(t, feed.Channel.Items, len(initialBlogs))
	assert.Equal(t, "Bloglist", feed.Channel.Title)
	assert.Equal(t, initialBlogs[0].URL, feed.Channel.Items[0].Link)
	assert.Equal(t, "by Michael Chan", feed.Channel.Items[0].Description)
	assert.Equal(t, "http://blogs.test/api/blogs/"+blogs[0].ID, feed.Channel.Items[0].GUID.Value)
}

func TestReset(t *testing.T) {
	app := newTestApp(t)
	seedBlogs(t, app)
	signup(t, app, "root")

	rec := do(t, app, http.MethodPost, "/api/testing/reset", nil, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, app, http.MethodGet, "/api/blogs", nil, "")
	assert.Len(t, decode[[]Blog](t, rec), 0)
	rec = do(t, app, http.MethodGet, "/api/users", nil, "")
	assert.Len(t, decode[[]User](t, rec), 0)
}

func TestResetOnlyInTestMode(t *testing.T) {
	app := New(Config{
		Env:          "production",
		TokenSecret:  "sekret",
		DatabasePath: filepath.Join(t.TempDir(), "bloglist.db"),
	}, WithLogger(zap.NewNop()))
	require.NoError(t, app.Setup())
	t.Cleanup(func() { app.Close() })

	rec := do(t, app, http.MethodPost, "/api/testing/reset", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownEndpoint(t *testing.T) {
	app := newTestApp(t)
	rec := do(t, app, http.MethodGet, "/api/nothing-here", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown endpoint", errorMessage(t, rec))
}

func TestTrailingSlash(t *testing.T) {
	app := newTestApp(t)
	rec := do(t, app, http.MethodGet, "/api/blogs/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMalformedJSON(t *testing.T) {
	app := newTestApp(t)
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)
	_, token := signup(t, app, "root")
	do(t, app, http.MethodPost, "/api/blogs", map[string]any{"title": "t", "url": "http://x"}, token)
	do(t, app, http.MethodPost, "/api/login", map[string]string{"username": "root", "password": "bad"}, "")

	rec := do(t, app, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "bloglist_blogs_created_total 1")
	assert.Contains(t, body, "bloglist_login_failures_total 1")
	assert.Contains(t, body, "bloglist_requests_total")
}

func TestCustomRoutes(t *testing.T) {
	app := New(Config{
		Env:          "test",
		TokenSecret:  "sekret",
		DatabasePath: filepath.Join(t.TempDir(), "bloglist.db"),
	}, WithCustomRoutes(func(a *App) {
		a.Echo.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	}))
	require.NoError(t, app.Setup())
	t.Cleanup(func() { app.Close() })

	rec := do(t, app, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
