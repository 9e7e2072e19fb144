package mediarelay

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	// ImagePrefix is the blob store prefix all user images live under.
	ImagePrefix = "users/"
	// ImageRoute is the relay route images are served from.
	ImageRoute = "/images/"
)

// IsValidFilename validates an image filename before it is turned into a
// blob store key. The name is kept as uploaded; only names that could escape
// the "users/" prefix or that no backend can store are rejected:
//   - empty, absolute, or ending with "/"
//   - an empty, "." or ".." path segment (a backslash counts as a separator)
//   - invalid UTF-8 or control characters
func IsValidFilename(p string) bool {
	if p == "" || p[0] == '/' || strings.HasSuffix(p, "/") {
		return false
	}

	if !utf8.ValidString(p) {
		return false
	}

	for _, r := range p {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}

	for _, segment := range strings.Split(strings.ReplaceAll(p, `\`, "/"), "/") {
		switch segment {
		case "", ".", "..":
			return false
		}
	}

	return true
}

// ImageKey returns the blob store key for an image filename.
func ImageKey(filename string) string {
	return ImagePrefix + filename
}

// ImageURL returns the relay route serving an image filename, path-escaped.
// It never points at the blob store itself.
func ImageURL(filename string) string {
	u := url.URL{Path: ImageRoute + filename}
	return u.EscapedPath()
}
