// Package pathutil is the lexical path layer shared by every protocol
// client: it turns caller paths (absolute or working-directory relative)
// into normalized absolute paths and into the string forms each backend
// keys off. Pure string manipulation; no operation here touches a
// filesystem or fails.
package pathutil

import (
	"path"
	"strings"
)

// Resolve absolutizes input against wrkdir and normalizes the result,
// collapsing "." and "..". wrkdir must itself be absolute. An empty input
// resolves to wrkdir.
func Resolve(wrkdir, input string) string {
	if !strings.HasPrefix(input, "/") {
		input = path.Join(wrkdir, input)
	}
	resolved := path.Clean(input)
	if resolved == "." || resolved == "" {
		return "/"
	}
	return resolved
}

// Diff computes the relative remainder of p with base stripped from its
// front. When p does not live under base the remainder climbs out with
// ".." segments. Both arguments are treated lexically.
func Diff(p, base string) string {
	p = path.Clean(p)
	base = path.Clean(base)
	if p == base {
		return "."
	}
	pParts := split(p)
	baseParts := split(base)
	common := 0
	for common < len(pParts) && common < len(baseParts) && pParts[common] == baseParts[common] {
		common++
	}
	var parts []string
	for range baseParts[common:] {
		parts = append(parts, "..")
	}
	parts = append(parts, pParts[common:]...)
	return strings.Join(parts, "/")
}

// FmtPath renders p in the relative, slash-terminated form object stores
// key off:
//   - the root ("/") maps to the empty string,
//   - a leading "/" is stripped,
//   - an already-relative input passes through unchanged,
//   - directories end with exactly one trailing "/".
func FmtPath(p string, isDir bool) string {
	if p == "/" {
		return ""
	}
	p = strings.TrimPrefix(p, "/")
	if isDir {
		p = strings.TrimSuffix(p, "/") + "/"
	}
	return p
}

// Name returns the leaf component of p, or "/" for the root directory.
func Name(p string) string {
	if p == "/" || p == "" {
		return "/"
	}
	return path.Base(strings.TrimSuffix(p, "/"))
}

func split(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
