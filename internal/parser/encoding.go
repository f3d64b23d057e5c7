package parser

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultCharset is assumed when a report does not declare its encoding.
const DefaultCharset = "UTF-8"

// Decode converts raw report bytes in the named charset into UTF-8. A leading
// byte order mark is removed. For UTF-8 input, invalid byte sequences are an
// error instead of being replaced silently.
func Decode(raw []byte, charset string) ([]byte, error) {
	name := strings.TrimSpace(charset)
	if name == "" {
		name = DefaultCharset
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset: %w", err)
	}

	if isUTF8(enc) {
		// BOMOverride also honours UTF-16 byte order marks; the validator makes
		// sure what remains is well formed.
		t := transform.Chain(unicode.BOMOverride(transform.Nop), encoding.UTF8Validator)
		out, _, err := transform.Bytes(t, raw)
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	out, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), raw)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func isUTF8(enc encoding.Encoding) bool {
	name, err := htmlindex.Name(enc)
	return err == nil && name == "utf-8"
}
