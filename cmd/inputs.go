package cmd

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/issuetrail/internal/config"
	"github.com/xkilldash9x/issuetrail/internal/fingerprint"
	"github.com/xkilldash9x/issuetrail/internal/ingest"
	"github.com/xkilldash9x/issuetrail/internal/source"
)

// parseInputArg parses a report argument of the form tool=path[@charset].
func parseInputArg(arg string) (ingest.Input, error) {
	toolID, rest, ok := strings.Cut(arg, "=")
	toolID = strings.TrimSpace(toolID)
	if !ok || toolID == "" || rest == "" {
		return ingest.Input{}, fmt.Errorf("invalid report %q: expected tool=path[@charset]", arg)
	}

	input := ingest.Input{ToolID: toolID, Path: rest}
	// A suffix with a path separator belongs to the path.
	if at := strings.LastIndex(rest, "@"); at > 0 && !strings.ContainsAny(rest[at+1:], `/\`) {
		input.Path, input.Encoding = rest[:at], rest[at+1:]
	}
	if input.Path == "" {
		return ingest.Input{}, fmt.Errorf("invalid report %q: empty path", arg)
	}
	return input, nil
}

func parseInputArgs(args []string) ([]ingest.Input, error) {
	inputs := make([]ingest.Input, 0, len(args))
	for _, arg := range args {
		input, err := parseInputArg(arg)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}

// newSourceProvider selects the source of analysed files. A git repository
// takes precedence over a directory; without either there is none and all
// fingerprints are weak.
func newSourceProvider(cfg config.Interface, logger *zap.Logger) (source.Provider, error) {
	src := cfg.Source()
	switch {
	case src.GitRepository != "":
		p, err := source.OpenGitProvider(src.GitRepository, src.GitRevision)
		if err != nil {
			return nil, err
		}
		logger.Debug("Reading sources from git.",
			zap.String("repository", src.GitRepository), zap.String("revision", p.Revision()))
		return p, nil
	case src.Root != "":
		p, err := source.NewDirProvider(src.Root)
		if err != nil {
			return nil, err
		}
		logger.Debug("Reading sources from directory.", zap.String("root", src.Root))
		return p, nil
	default:
		logger.Debug("No source configured, fingerprints will be weak.")
		return nil, nil
	}
}

func newFingerprinter(cfg config.Interface, logger *zap.Logger) (*fingerprint.Fingerprinter, error) {
	provider, err := newSourceProvider(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open sources: %w", err)
	}
	fp := cfg.Fingerprint()
	return fingerprint.New(provider, fingerprint.Options{
		ContextLines:  fp.ContextLines,
		StripComments: fp.StripComments,
		ReadTimeout:   fp.ReadTimeout,
	}, logger), nil
}
