package querybuilder

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Document maps dotted paths (`book.author.name`, `book.@isbn`) to the text
// values found at that path. Repeated elements contribute several values.
type Document map[string][]string

// ParseDocument flattens an XML document into a Document.
func ParseDocument(content string) (Document, error) {
	doc := Document{}
	dec := xml.NewDecoder(strings.NewReader(content))

	var (
		path []string
		text []*strings.Builder
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid document: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			path = append(path, t.Name.Local)
			text = append(text, &strings.Builder{})
			prefix := strings.Join(path, ".")
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				key := prefix + ".@" + a.Name.Local
				doc[key] = append(doc[key], a.Value)
			}
		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1].Write(t)
			}
		case xml.EndElement:
			if len(path) == 0 {
				return nil, fmt.Errorf("invalid document: unexpected end element %s", t.Name.Local)
			}
			if v := strings.TrimSpace(text[len(text)-1].String()); v != "" {
				key := strings.Join(path, ".")
				doc[key] = append(doc[key], v)
			}
			path = path[:len(path)-1]
			text = text[:len(text)-1]
		}
	}

	if len(doc) == 0 && len(path) == 0 && strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("invalid document: empty content")
	}
	return doc, nil
}
