package bloglist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a requested blog or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUsernameTaken is returned when creating a user whose username exists.
	ErrUsernameTaken = errors.New("username already in use")
)

// Store wraps a SQLite database and provides CRUD operations for blogs,
// users and comments.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	// busy_timeout and foreign_keys are per connection, so they go in the DSN.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    password_hash TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS blogs (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    author TEXT NOT NULL,
    url TEXT NOT NULL,
    likes INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
    user_id TEXT REFERENCES users(id) ON DELETE SET NULL
);
CREATE TABLE IF NOT EXISTS comments (
    id TEXT PRIMARY KEY,
    blog_id TEXT NOT NULL REFERENCES blogs(id) ON DELETE CASCADE,
    body TEXT NOT NULL
);
`)
	return err
}

const blogColumns = `b.id, b.title, b.author, b.url, b.likes, u.id, u.username, u.name`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlog(row rowScanner) (Blog, error) {
	var b Blog
	var uid, uname, name sql.NullString
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &b.URL, &b.Likes, &uid, &uname, &name); err != nil {
		return Blog{}, err
	}
	if uid.Valid {
		b.User = &UserRef{ID: uid.String, Username: uname.String, Name: name.String}
	}
	b.Comments = []string{}
	return b, nil
}

// ListBlogs returns every blog in insertion order with its user and comments.
func (s *Store) ListBlogs(ctx context.Context) ([]Blog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+blogColumns+`
FROM blogs b LEFT JOIN users u ON u.id = b.user_id
ORDER BY b.rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blogs := []Blog{}
	byID := make(map[string]int)
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		byID[b.ID] = len(blogs)
		blogs = append(blogs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	crows, err := s.db.QueryContext(ctx, `SELECT blog_id, body FROM comments ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer crows.Close()
	for crows.Next() {
		var blogID, body string
		if err := crows.Scan(&blogID, &body); err != nil {
			return nil, err
		}
		if i, ok := byID[blogID]; ok {
			blogs[i].Comments = append(blogs[i].Comments, body)
		}
	}
	return blogs, crows.Err()
}

// GetBlog returns a single blog by id.
func (s *Store) GetBlog(ctx context.Context, id string) (Blog, error) {
	b, err := scanBlog(s.db.QueryRowContext(ctx, `SELECT `+blogColumns+`
FROM blogs b LEFT JOIN users u ON u.id = b.user_id
WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Blog{}, ErrNotFound
	}
	if err != nil {
		return Blog{}, err
	}
	comments, err := s.blogComments(ctx, id)
	if err != nil {
		return Blog{}, err
	}
	b.Comments = comments
	return b, nil
}

func (s *Store) blogComments(ctx context.Context, blogID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM comments WHERE blog_id = ? ORDER BY rowid`, blogID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	comments := []string{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		comments = append(comments, body)
	}
	return comments, rows.Err()
}

// CreateBlog inserts b under a fresh id owned by userID and returns the
// stored blog.
func (s *Store) CreateBlog(ctx context.Context, b Blog, userID string) (Blog, error) {
	id := uuid.NewString()
	var owner any
	if userID != "" {
		owner = userID
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO blogs (id, title, author, url, likes, user_id) VALUES (?, ?, ?, ?, ?, ?)`,
		id, b.Title, b.Author, b.URL, b.Likes, owner)
	if err != nil {
		return Blog{}, fmt.Errorf("insert blog: %w", err)
	}
	return s.GetBlog(ctx, id)
}

// UpdateBlog applies the non-nil fields of u to the blog with the given id.
func (s *Store) UpdateBlog(ctx context.Context, id string, u BlogUpdate) (Blog, error) {
	var sets []string
	var args []any
	if u.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Author != nil {
		sets = append(sets, "author = ?")
		args = append(args, *u.Author)
	}
	if u.URL != nil {
		sets = append(sets, "url = ?")
		args = append(args, *u.URL)
	}
	if u.Likes != nil {
		sets = append(sets, "likes = ?")
		args = append(args, *u.Likes)
	}
	if len(sets) == 0 {
		return s.GetBlog(ctx, id)
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE blogs SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return Blog{}, fmt.Errorf("update blog: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Blog{}, ErrNotFound
	}
	return s.GetBlog(ctx, id)
}

// DeleteBlog removes a blog and its comments.
func (s *Store) DeleteBlog(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE blog_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM blogs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// AddComment appends a comment to a blog and returns the updated blog.
func (s *Store) AddComment(ctx context.Context, blogID, body string) (Blog, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM blogs WHERE id = ?`, blogID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return Blog{}, ErrNotFound
	}
	if err != nil {
		return Blog{}, err
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO comments (id, blog_id, body) VALUES (?, ?, ?)`,
		uuid.NewString(), blogID, body); err != nil {
		return Blog{}, fmt.Errorf("insert comment: %w", err)
	}
	return s.GetBlog(ctx, blogID)
}

// CreateUser inserts u under a fresh id. The username must be unused.
func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	u.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, username, name, password_hash) VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.Name, u.PasswordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return User{}, ErrUsernameTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	u.Blogs = []BlogRef{}
	return u, nil
}

// GetUser returns a user by id with their blogs.
func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	return s.getUserWhere(ctx, "id = ?", id)
}

// GetUserByUsername returns a user by username with their blogs.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return s.getUserWhere(ctx, "username = ?", username)
}

func (s *Store) getUserWhere(ctx context.Context, where string, arg any) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `SELECT id, username, name, password_hash FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Username, &u.Name, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	refs, err := s.blogRefs(ctx, `WHERE user_id = ?`, u.ID)
	if err != nil {
		return User{}, err
	}
	u.Blogs = refs[u.ID]
	if u.Blogs == nil {
		u.Blogs = []BlogRef{}
	}
	return u, nil
}

// ListUsers returns every user with their blogs.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, username, name, password_hash FROM users ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Name, &u.PasswordHash); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs, err := s.blogRefs(ctx, `WHERE user_id IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Blogs = refs[users[i].ID]
		if users[i].Blogs == nil {
			users[i].Blogs = []BlogRef{}
		}
	}
	return users, nil
}

// blogRefs returns blog summaries keyed by owning user id.
func (s *Store) blogRefs(ctx context.Context, where string, args ...any) (map[string][]BlogRef, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, url, title, author, user_id FROM blogs `+where+` ORDER BY rowid`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	refs := make(map[string][]BlogRef)
	for rows.Next() {
		var r BlogRef
		var owner string
		if err := rows.Scan(&r.ID, &r.URL, &r.Title, &r.Author, &owner); err != nil {
			return nil, err
		}
		refs[owner] = append(refs[owner], r)
	}
	return refs, rows.Err()
}

// Reset deletes every row from every table.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, table := range []string{"comments", "blogs", "users"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}
