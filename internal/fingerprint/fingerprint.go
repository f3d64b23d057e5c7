// Package fingerprint assigns issues an identity that survives line shifts
// between builds.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/issuetrail/api/schemas"
	"github.com/xkilldash9x/issuetrail/internal/issues"
	"github.com/xkilldash9x/issuetrail/internal/source"
)

// Defaults used when Options leave a value unset.
const (
	DefaultContextLines = 3
	DefaultReadTimeout  = 5 * time.Second
)

// Options tune the context window.
type Options struct {
	// ContextLines is the number of lines taken before and after the issue.
	ContextLines int
	// StripComments removes trailing line comments from context lines. The
	// comment syntax follows the file extension.
	StripComments bool
	// ReadTimeout bounds every source read. Zero means DefaultReadTimeout.
	ReadTimeout time.Duration
}

// DefaultOptions returns the standard window settings.
func DefaultOptions() Options {
	return Options{ContextLines: DefaultContextLines, StripComments: true, ReadTimeout: DefaultReadTimeout}
}

// Fingerprinter computes issue fingerprints. A nil source provider is valid;
// every fingerprint is then weak.
type Fingerprinter struct {
	provider source.Provider
	opts     Options
	logger   *zap.Logger
}

// New creates a Fingerprinter reading context from provider.
func New(provider source.Provider, opts Options, logger *zap.Logger) *Fingerprinter {
	if opts.ContextLines < 0 {
		opts.ContextLines = 0
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fingerprinter{provider: provider, opts: opts, logger: logger.Named("fingerprint")}
}

// Fingerprint returns issue with its fingerprint set.
func (f *Fingerprinter) Fingerprint(ctx context.Context, issue schemas.Issue) schemas.Issue {
	return f.fingerprint(ctx, issue, newFileCache(f))
}

// Apply fingerprints every issue of set. Each source file is read at most
// once per call.
func (f *Fingerprinter) Apply(ctx context.Context, set issues.Set) issues.Set {
	cache := newFileCache(f)
	out := set.Map(func(issue schemas.Issue) schemas.Issue {
		return f.fingerprint(ctx, issue, cache)
	})
	if cache.misses > 0 {
		f.logger.Debug("Computed weak fingerprints for unreadable sources.",
			zap.Int("files", cache.misses), zap.Int("issues", set.Size()))
	}
	return out
}

func (f *Fingerprinter) fingerprint(ctx context.Context, issue schemas.Issue, cache *fileCache) schemas.Issue {
	issue.Fingerprint = Weak(issue)
	if f.provider == nil || issue.LineStart == 0 || issue.FileName == schemas.UnknownFile {
		return issue
	}

	lines, ok := cache.lines(ctx, issue.FileName)
	end := issue.LineEnd
	if end < issue.LineStart {
		end = issue.LineStart
	}
	// A file shorter than the reported range is not the file the tool analysed.
	if !ok || len(lines) < end {
		return issue
	}

	issue.Fingerprint = schemas.Fingerprint{Value: f.contextDigest(issue, lines, end)}
	return issue
}

func (f *Fingerprinter) contextDigest(issue schemas.Issue, lines []string, end int) string {
	from := issue.LineStart - f.opts.ContextLines
	if from < 1 {
		from = 1
	}
	to := end + f.opts.ContextLines
	if to > len(lines) {
		to = len(lines)
	}

	syntax := commentSyntaxFor(issue.FileName)
	h := sha256.New()
	for i := from; i <= to; i++ {
		h.Write([]byte(f.normalize(lines[i-1], syntax)))
		h.Write([]byte{'\n'})
	}
	writeFields(h, issue.Category, issue.Type)
	return hex.EncodeToString(h.Sum(nil))
}

// normalize strips a trailing comment if enabled and collapses whitespace.
func (f *Fingerprinter) normalize(line string, syntax commentSyntax) string {
	if f.opts.StripComments {
		line = syntax.strip(line)
	}
	return strings.Join(strings.Fields(line), " ")
}

// Weak returns the fallback fingerprint over the issue's location and text.
// It changes whenever the issue moves.
func Weak(issue schemas.Issue) schemas.Fingerprint {
	h := sha256.New()
	writeFields(h, issue.FileName, strconv.Itoa(issue.LineStart), issue.Category, issue.Type, issue.Message)
	return schemas.Fingerprint{Value: hex.EncodeToString(h.Sum(nil)), Weak: true}
}

// writeFields length-prefixes each field so adjacent values cannot run together.
func writeFields(h hash.Hash, fields ...string) {
	for _, v := range fields {
		h.Write([]byte(strconv.Itoa(len(v))))
		h.Write([]byte{':'})
		h.Write([]byte(v))
	}
}

// fileCache memoizes source reads for one Apply call. Failed reads are cached
// too so an unreadable file costs one timeout, not one per issue.
type fileCache struct {
	f      *Fingerprinter
	files  map[string][]string
	failed map[string]bool
	misses int
}

func newFileCache(f *Fingerprinter) *fileCache {
	return &fileCache{f: f, files: make(map[string][]string), failed: make(map[string]bool)}
}

func (c *fileCache) lines(ctx context.Context, path string) ([]string, bool) {
	if l, ok := c.files[path]; ok {
		return l, true
	}
	if c.failed[path] {
		return nil, false
	}

	l, err := c.f.read(ctx, path)
	if err != nil {
		c.failed[path] = true
		c.misses++
		if !errors.Is(err, source.ErrNotFound) {
			c.f.logger.Warn("Failed to read source file, using weak fingerprints.", zap.String("file", path), zap.Error(err))
		}
		return nil, false
	}
	c.files[path] = l
	return l, true
}

type readResult struct {
	lines []string
	err   error
}

// read calls the provider under the read timeout. The provider runs in its own
// goroutine so a provider that ignores its context cannot stall fingerprinting.
func (f *Fingerprinter) read(ctx context.Context, path string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.ReadTimeout)
	defer cancel()

	done := make(chan readResult, 1)
	go func() {
		lines, err := f.provider.ReadLines(ctx, path)
		done <- readResult{lines: lines, err: err}
	}()

	select {
	case r := <-done:
		return r.lines, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
