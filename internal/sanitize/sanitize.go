// Package sanitize derives filesystem-safe project names from uploaded paths.
package sanitize

import (
	"errors"
	"strings"
)

// ErrEmptyProjectName is returned when an upload path has no usable first segment.
var ErrEmptyProjectName = errors.New("project name is empty")

// ProjectName replaces every character outside [a-zA-Z0-9-_] with '-' and
// then lowercases the result. It is idempotent.
//
//	"My Site!"   -> "my-site-"
//	"index.html" -> "index-html"
func ProjectName(s string) string {
	// Replace before lowering: ToLower maps some non-ASCII runes (U+212A,
	// U+0130) onto ASCII letters.
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, s)
	return strings.ToLower(s)
}

// FirstSegment returns the first path component of an uploaded name.
// Leading separators are skipped: drag-and-drop uploads arrive as "/Folder/file".
func FirstSegment(name string) string {
	name = strings.TrimLeft(strings.ReplaceAll(name, "\\", "/"), "/")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[:i]
	}
	return name
}

// Resolve returns the sanitized project name for an uploaded path.
func Resolve(name string) (string, error) {
	seg := FirstSegment(name)
	if seg == "" {
		return "", ErrEmptyProjectName
	}
	return ProjectName(seg), nil
}

// ArchiveName returns the project name implied by an archive file name: the
// first segment with a trailing ".zip" (any case) removed.
func ArchiveName(name string) (string, error) {
	seg := FirstSegment(name)
	if len(seg) > len(".zip") && strings.EqualFold(seg[len(seg)-4:], ".zip") {
		seg = seg[:len(seg)-4]
	}
	if seg == "" {
		return "", ErrEmptyProjectName
	}
	return ProjectName(seg), nil
}

// InProjectPath strips the leading segment (the project folder) from an
// uploaded name. A name without a folder keeps its own base name.
func InProjectPath(name string) string {
	name = strings.TrimLeft(strings.ReplaceAll(name, "\\", "/"), "/")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}
