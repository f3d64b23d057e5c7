// Package parser maps tool identifiers to the strategies that turn raw report
// bytes into issues.
package parser

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/xkilldash9x/issuetrail/api/schemas"
	"github.com/xkilldash9x/issuetrail/internal/issues"
)

// ParseFunc converts UTF-8 report content into issues. Implementations must be
// pure and must not keep state between calls. When the content is malformed a
// ParseFunc may return the issues recovered so far together with the error.
type ParseFunc func(content []byte) ([]schemas.Issue, error)

// Tool describes one supported static analysis tool.
type Tool struct {
	ID          string
	DisplayName string
	Parse       ParseFunc
}

// Registry holds the known tools. It is safe for concurrent use; lookups take a
// read lock only, so parses for any tool can run in parallel.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. IDs are matched exactly.
func (r *Registry) Register(tool Tool) error {
	if tool.ID == "" || tool.Parse == nil {
		return ErrInvalidTool
	}
	if tool.DisplayName == "" {
		tool.DisplayName = tool.ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, tool.ID)
	}
	r.tools[tool.ID] = tool
	return nil
}

// MustRegister is Register for process start up; it panics on error.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the tool registered under id.
func (r *Registry) Lookup(id string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[id]
	return t, ok
}

// Tools returns all registered tools sorted by ID.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Parse decodes raw in the given charset and runs the parser of toolID.
//
// It returns *UnknownToolError for unregistered tools, *EncodingError when the
// bytes cannot be decoded and *ParseError for malformed content. A ParseError
// comes with the recovered issues both in its Partial field and as the
// returned set. Every returned issue is normalized and carries its origin.
func (r *Registry) Parse(toolID string, raw []byte, charset string) (issues.Set, error) {
	tool, ok := r.Lookup(toolID)
	if !ok {
		return issues.Set{}, &UnknownToolError{ToolID: toolID}
	}

	content, err := Decode(raw, charset)
	if err != nil {
		if charset == "" {
			charset = DefaultCharset
		}
		return issues.Set{}, &EncodingError{ToolID: toolID, Charset: charset, Cause: err}
	}

	parsed, parseErr := tool.Parse(content)
	set := finish(toolID, parsed)
	if parseErr != nil {
		var pe *ParseError
		if errors.As(parseErr, &pe) {
			parseErr = pe.Cause
		}
		return set, &ParseError{ToolID: toolID, Cause: parseErr, Partial: set}
	}
	return set, nil
}

func finish(toolID string, parsed []schemas.Issue) issues.Set {
	if len(parsed) == 0 {
		return issues.Set{}
	}
	out := make([]schemas.Issue, len(parsed))
	for i, issue := range parsed {
		if issue.Origin == "" {
			issue.Origin = toolID
		}
		out[i] = issue.Normalized()
	}
	return issues.New(out...)
}
