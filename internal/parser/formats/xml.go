package formats

import (
	"io"

	"github.com/beevik/etree"
)

// readXML parses content into a document. Elements whose start tag was read
// before a syntax error stay attached to the tree, so on error the returned
// document still holds everything recovered up to the failure point.
func readXML(content []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	// Registry.Parse has already decoded the report; ignore the declared charset.
	doc.ReadSettings.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	err := doc.ReadFromBytes(content)
	if err == nil && doc.Root() == nil {
		err = io.ErrUnexpectedEOF
	}
	return doc, err
}
