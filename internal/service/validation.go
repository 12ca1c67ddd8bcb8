package service

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	msgBlank = "can't be blank"
	msgTaken = "has already been taken"
	msgEmail = "is invalid"

	minUsernameLength = 3
	minPasswordLength = 8
)

var emailPattern = regexp.MustCompile(
	`(?i)\A[a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+(?:\.[a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+)*@(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\z`)

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func tooShort(s string, min int) bool {
	return utf8.RuneCountInString(s) < min
}

func msgTooShort(min int) string {
	return "is too short (minimum is " + strconv.Itoa(min) + " characters)"
}

// normalizeTags trims each tag, drops empty ones and duplicates, and returns
// the rest sorted.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
