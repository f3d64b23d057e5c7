// Package source gives the fingerprinter read-only access to the analysed
// source files.
package source

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when the requested file does not exist in the source.
var ErrNotFound = errors.New("source file not found")

// Provider reads source files by their repository-relative path.
type Provider interface {
	// ReadLines returns the lines of the file without line terminators.
	ReadLines(ctx context.Context, path string) ([]string, error)
}

// SplitLines splits file content into lines. A trailing line terminator does
// not produce an extra empty line, and CRLF endings are accepted.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.TrimSuffix(content, "\n")
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// relativePath turns an issue file name into a provider-relative path.
// Absolute names below root are made relative to it; tools such as javac and
// gcc usually report absolute paths.
func relativePath(root, p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if root = strings.TrimSuffix(strings.ReplaceAll(root, "\\", "/"), "/"); root != "" {
		if rel, ok := strings.CutPrefix(p, root+"/"); ok {
			p = rel
		}
	}
	return strings.TrimPrefix(strings.TrimPrefix(p, "./"), "/")
}
