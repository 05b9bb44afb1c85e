// Package stats computes aggregate metrics over a list of blog records.
//
// Every function is pure: it reads the records it is given, never mutates
// them, and keeps no state between calls, so it is safe to call from
// concurrent request handlers. Ties are broken in favour of the record or
// author encountered first in input order.
package stats

import (
	"errors"
	"fmt"
)

// ErrInvalidRecord is the error kind reported by Check.
var ErrInvalidRecord = errors.New("stats: invalid record")

// Record is a single blog entry as seen by the statistics functions.
type Record struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
	Likes  int    `json:"likes"`
}

// AuthorBlogs is the result of MostBlogs.
type AuthorBlogs struct {
	Author string `json:"author"`
	Blogs  int    `json:"blogs"`
}

// AuthorLikes is the result of MostLikes.
type AuthorLikes struct {
	Author string `json:"author"`
	Likes  int    `json:"likes"`
}

// InvalidRecordError describes the first record Check rejected.
type InvalidRecordError struct {
	Index  int
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("stats: invalid record at index %d: %s", e.Index, e.Reason)
}

func (e *InvalidRecordError) Unwrap() error { return ErrInvalidRecord }

// Check reports whether every record carries a usable like count.
// The aggregate functions assume it has passed.
func Check(records []Record) error {
	for i, r := range records {
		if r.Likes < 0 {
			return &InvalidRecordError{Index: i, Reason: fmt.Sprintf("negative likes (%d)", r.Likes)}
		}
	}
	return nil
}

// Probe always returns 1.
func Probe(records []Record) int {
	return 1
}

// TotalLikes returns the sum of likes over all records, 0 for none.
func TotalLikes(records []Record) int {
	total := 0
	for _, r := range records {
		total += r.Likes
	}
	return total
}

// FavoriteBlog returns the record with the most likes. ok is false when
// records is empty.
func FavoriteBlog(records []Record) (Record, bool) {
	i, ok := FavoriteIndex(records)
	if !ok {
		return Record{}, false
	}
	return records[i], true
}

// FavoriteIndex returns the position of the record FavoriteBlog picks, so
// callers can map it back to their own richer value.
func FavoriteIndex(records []Record) (int, bool) {
	if len(records) == 0 {
		return 0, false
	}
	best := 0
	for i, r := range records[1:] {
		if r.Likes > records[best].Likes {
			best = i + 1
		}
	}
	return best, true
}

// MostBlogs returns the author with the most records.
func MostBlogs(records []Record) (AuthorBlogs, bool) {
	authors, counts := groupByAuthor(records, func(Record) int { return 1 })
	i, ok := maxIndex(counts)
	if !ok {
		return AuthorBlogs{}, false
	}
	return AuthorBlogs{Author: authors[i], Blogs: counts[i]}, true
}

// MostLikes returns the author whose records have the highest like total.
func MostLikes(records []Record) (AuthorLikes, bool) {
	authors, sums := groupByAuthor(records, func(r Record) int { return r.Likes })
	i, ok := maxIndex(sums)
	if !ok {
		return AuthorLikes{}, false
	}
	return AuthorLikes{Author: authors[i], Likes: sums[i]}, true
}

// groupByAuthor sums value(r) per author in one pass. The returned slices
// are parallel and ordered by each author's first appearance.
func groupByAuthor(records []Record, value func(Record) int) ([]string, []int) {
	index := make(map[string]int, len(records))
	var authors []string
	var totals []int
	for _, r := range records {
		i, seen := index[r.Author]
		if !seen {
			i = len(authors)
			index[r.Author] = i
			authors = append(authors, r.Author)
			totals = append(totals, 0)
		}
		totals[i] += value(r)
	}
	return authors, totals
}

// maxIndex returns the index of the first maximum in vals.
func maxIndex(vals []int) (int, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	best := 0
	for i, v := range vals[1:] {
		if v > vals[best] {
			best = i + 1
		}
	}
	return best, true
}
