package bloglist

import "github.com/eringen/bloglist/stats"

// Blog is a saved blog link together with the user who added it.
type Blog struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	URL      string   `json:"url"`
	Likes    int      `json:"likes"`
	User     *UserRef `json:"user,omitempty"`
	Comments []string `json:"comments"`
}

// Record returns the fields the statistics package works on.
func (b Blog) Record() stats.Record {
	return stats.Record{Title: b.Title, Author: b.Author, URL: b.URL, Likes: b.Likes}
}

// UserRef is the user summary embedded in a Blog.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Blogs        []BlogRef `json:"blogs"`
}

// BlogRef is the blog summary embedded in a User.
type BlogRef struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// BlogUpdate carries the fields of a partial blog update; nil means unchanged.
type BlogUpdate struct {
	Title  *string
	Author *string
	URL    *string
	Likes  *int
}

func records(blogs []Blog) []stats.Record {
	out := make([]stats.Record, len(blogs))
	for i, b := range blogs {
		out[i] = b.Record()
	}
	return out
}
