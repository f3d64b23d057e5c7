package fingerprint

import (
	"path"
	"strings"
)

// commentSyntax is the line comment marker of a source language. The zero
// value strips nothing.
type commentSyntax struct {
	marker string
	// spaced requires whitespace or line start before the marker, as in shell
	// where "$#" and "a#b" are not comments.
	spaced bool
}

var (
	slashSyntax = commentSyntax{marker: "//"}
	hashSyntax  = commentSyntax{marker: "#", spaced: true}
)

var syntaxByExt = map[string]commentSyntax{
	".c": slashSyntax, ".h": slashSyntax, ".cc": slashSyntax, ".cpp": slashSyntax,
	".cxx": slashSyntax, ".hh": slashSyntax, ".hpp": slashSyntax, ".hxx": slashSyntax,
	".m": slashSyntax, ".mm": slashSyntax, ".cs": slashSyntax, ".java": slashSyntax,
	".kt": slashSyntax, ".kts": slashSyntax, ".scala": slashSyntax, ".groovy": slashSyntax,
	".js": slashSyntax, ".jsx": slashSyntax, ".mjs": slashSyntax, ".ts": slashSyntax,
	".tsx": slashSyntax, ".go": slashSyntax, ".rs": slashSyntax, ".swift": slashSyntax,
	".dart": slashSyntax,

	".sh": hashSyntax, ".bash": hashSyntax, ".zsh": hashSyntax, ".py": hashSyntax,
	".rb": hashSyntax, ".pl": hashSyntax, ".yml": hashSyntax, ".yaml": hashSyntax,
	".toml": hashSyntax, ".r": hashSyntax, ".cmake": hashSyntax, ".mk": hashSyntax,
	".tf": hashSyntax, ".ps1": hashSyntax,
}

// commentSyntaxFor picks the syntax from the file extension. Unknown
// languages keep their lines intact.
func commentSyntaxFor(fileName string) commentSyntax {
	base := path.Base(strings.ReplaceAll(fileName, `\`, "/"))
	switch base {
	case "Makefile", "Dockerfile", "CMakeLists.txt", "Gemfile", "Rakefile":
		return hashSyntax
	}
	return syntaxByExt[strings.ToLower(path.Ext(base))]
}

// strip removes a trailing line comment. Markers inside string or character
// literals are ignored.
func (c commentSyntax) strip(line string) string {
	if c.marker == "" {
		return line
	}
	var quote byte
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if quote != 0 {
			switch ch {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch {
		case ch == '"' || ch == '\'' || ch == '`':
			quote = ch
		case strings.HasPrefix(line[i:], c.marker):
			if !c.spaced || i == 0 || line[i-1] == ' ' || line[i-1] == '\t' {
				return line[:i]
			}
		}
	}
	return line
}
