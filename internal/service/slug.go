package service

import (
	"strconv"
	"time"

	"github.com/gosimple/slug"
)

// articleSlug derives the slug from the article's creation time and title. The
// timestamp prefix keeps slugs unique across articles with equal titles.
func articleSlug(createdAt time.Time, title string) string {
	return strconv.FormatInt(createdAt.Unix(), 10) + "-" + slug.Make(title)
}
