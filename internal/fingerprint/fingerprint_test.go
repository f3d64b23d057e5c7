package fingerprint

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/issuetrail/api/schemas"
	"github.com/xkilldash9x/issuetrail/internal/issues"
	"github.com/xkilldash9x/issuetrail/internal/source"
)

// -- Test Helpers --

const calcSource = `package calc

import "fmt"

func Div(a, b int) int {
	// guard against zero
	return a / b
}

func Print(v int) {
	fmt.Println(v)
}
`

func memProvider(t *testing.T, files map[string]string) *source.FSProvider {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return source.NewFSProvider(fs)
}

func divIssue(line int) schemas.Issue {
	return schemas.Issue{
		FileName:  "calc/calc.go",
		LineStart: line,
		LineEnd:   line,
		Severity:  schemas.SeverityError,
		Category:  "bugs",
		Type:      "DivideByZero",
		Message:   "possible division by zero",
	}
}

// countingProvider counts reads per path.
type countingProvider struct {
	source.Provider
	reads atomic.Int32
}

func (c *countingProvider) ReadLines(ctx context.Context, path string) ([]string, error) {
	c.reads.Add(1)
	return c.Provider.ReadLines(ctx, path)
}

// blockingProvider never answers until released, ignoring its context.
type blockingProvider struct {
	release chan struct{}
}

func (b *blockingProvider) ReadLines(context.Context, string) ([]string, error) {
	<-b.release
	return nil, nil
}

// -- Test Cases --

func TestFingerprint_Deterministic(t *testing.T) {
	f := New(memProvider(t, map[string]string{"calc/calc.go": calcSource}), DefaultOptions(), nil)
	ctx := context.Background()

	a := f.Fingerprint(ctx, divIssue(7))
	b := f.Fingerprint(ctx, divIssue(7))

	assert.False(t, a.Fingerprint.Weak)
	assert.Len(t, a.Fingerprint.Value, 64)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)
}

func TestFingerprint_StableUnderLineShift(t *testing.T) {
	shifted := "// Copyright header\n// spanning\n// several lines\n\n" + calcSource
	ctx := context.Background()

	before := New(memProvider(t, map[string]string{"calc/calc.go": calcSource}), DefaultOptions(), nil).
		Fingerprint(ctx, divIssue(7))
	after := New(memProvider(t, map[string]string{"calc/calc.go": shifted}), DefaultOptions(), nil).
		Fingerprint(ctx, divIssue(11))

	assert.Equal(t, before.Fingerprint, after.Fingerprint)
	assert.NotEqual(t, before.Fingerprint, Weak(divIssue(7)))
}

func TestFingerprint_IgnoresWhitespaceAndComments(t *testing.T) {
	reformatted := strings.Replace(calcSource, "\treturn a / b", "    return   a / b   // TODO check b", 1)
	reformatted = strings.Replace(reformatted, "\t// guard against zero", "\t// a different note", 1)
	ctx := context.Background()

	original := New(memProvider(t, map[string]string{"calc/calc.go": calcSource}), DefaultOptions(), nil).
		Fingerprint(ctx, divIssue(7))
	changed := New(memProvider(t, map[string]string{"calc/calc.go": reformatted}), DefaultOptions(), nil).
		Fingerprint(ctx, divIssue(7))
	assert.Equal(t, original.Fingerprint, changed.Fingerprint)

	opts := DefaultOptions()
	opts.StripComments = false
	keepComments := New(memProvider(t, map[string]string{"calc/calc.go": reformatted}), opts, nil).
		Fingerprint(ctx, divIssue(7))
	assert.NotEqual(t, original.Fingerprint, keepComments.Fingerprint)
}

func TestFingerprint_CategoryAndTypeMatter(t *testing.T) {
	f := New(memProvider(t, map[string]string{"calc/calc.go": calcSource}), DefaultOptions(), nil)
	ctx := context.Background()

	base := f.Fingerprint(ctx, divIssue(7))
	other := divIssue(7)
	other.Type = "IntegerOverflow"
	assert.NotEqual(t, base.Fingerprint, f.Fingerprint(ctx, other).Fingerprint)

	reworded := divIssue(7)
	reworded.Message = "b may be zero"
	assert.Equal(t, base.Fingerprint, f.Fingerprint(ctx, reworded).Fingerprint, "message is not part of the strong identity")
}

func TestFingerprint_WeakFallback(t *testing.T) {
	provider := memProvider(t, map[string]string{"calc/calc.go": calcSource})
	ctx := context.Background()

	tests := []struct {
		name     string
		provider source.Provider
		issue    func() schemas.Issue
	}{
		{"no provider", nil, func() schemas.Issue { return divIssue(7) }},
		{"missing file", provider, func() schemas.Issue { i := divIssue(7); i.FileName = "calc/gone.go"; return i }},
		{"unknown line", provider, func() schemas.Issue { return divIssue(0) }},
		{"unknown file", provider, func() schemas.Issue { i := divIssue(7); i.FileName = schemas.UnknownFile; return i }},
		{"file shorter than range", provider, func() schemas.Issue { i := divIssue(12); i.LineEnd = 40; return i }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := New(tc.provider, DefaultOptions(), nil)
			issue := tc.issue()
			got := f.Fingerprint(ctx, issue)
			assert.True(t, got.Fingerprint.Weak)
			assert.Equal(t, Weak(issue), got.Fingerprint)
		})
	}
}

func TestWeak_SensitiveToLocation(t *testing.T) {
	assert.Equal(t, Weak(divIssue(7)), Weak(divIssue(7)))
	assert.NotEqual(t, Weak(divIssue(7)), Weak(divIssue(8)))
}

func TestFingerprint_WindowClippedAtFileEdges(t *testing.T) {
	f := New(memProvider(t, map[string]string{"calc/calc.go": calcSource}), DefaultOptions(), nil)
	ctx := context.Background()

	first := f.Fingerprint(ctx, divIssue(1))
	last := f.Fingerprint(ctx, divIssue(12))
	assert.False(t, first.Fingerprint.Weak)
	assert.False(t, last.Fingerprint.Weak)
	assert.NotEqual(t, first.Fingerprint, last.Fingerprint)
}

func TestApply_ReadsEachFileOnce(t *testing.T) {
	provider := &countingProvider{Provider: memProvider(t, map[string]string{"calc/calc.go": calcSource})}
	f := New(provider, DefaultOptions(), nil)

	missing := divIssue(3)
	missing.FileName = "calc/missing.go"
	set := issues.New(divIssue(5), divIssue(7), divIssue(11), missing, missing)

	out := f.Apply(context.Background(), set)

	require.Equal(t, 5, out.Size())
	assert.Equal(t, int32(2), provider.reads.Load(), "one read per distinct file, failures included")
	assert.False(t, out.At(0).Fingerprint.Weak)
	assert.True(t, out.At(3).Fingerprint.Weak)
	assert.False(t, set.At(0).HasFingerprint(), "source set is untouched")
}

func TestApply_ReadTimeoutFallsBack(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	blocking := &blockingProvider{release: make(chan struct{})}
	t.Cleanup(func() { close(blocking.release) })

	opts := DefaultOptions()
	opts.ReadTimeout = 20 * time.Millisecond
	f := New(blocking, opts, zap.New(core))

	start := time.Now()
	out := f.Apply(context.Background(), issues.New(divIssue(7), divIssue(8)))

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, out.At(0).Fingerprint.Weak)
	assert.True(t, out.At(1).Fingerprint.Weak)
	assert.Equal(t, 1, logs.FilterMessage("Failed to read source file, using weak fingerprints.").Len())
}
