package explore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// Export formats.
const (
	FormatXML  = "xml"
	FormatJSON = "json"
)

// ErrUnsupportedFormat is returned for an unknown export format.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ExportedDocument is the JSON form of an exported document.
type ExportedDocument struct {
	ID         string `json:"id"`
	TemplateID string `json:"template_id"`
	Title      string `json:"title"`
	XMLContent string `json:"xml_content"`
}

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	if format == FormatJSON {
		return "application/json"
	}
	return "application/xml"
}

// Export writes every document matching the query to w.
func (s *Service) Export(ctx context.Context, queryID, format string, w io.Writer) (int, error) {
	if format == "" {
		format = FormatXML
	}
	if format != FormatXML && format != FormatJSON {
		return 0, fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}

	q, err := s.store.GetQuery(ctx, queryID)
	if err != nil {
		return 0, err
	}
	docs, err := s.MatchingData(ctx, q)
	if err != nil {
		return 0, err
	}

	if format == FormatJSON {
		out := make([]ExportedDocument, len(docs))
		for i, d := range docs {
			out[i] = ExportedDocument{ID: d.ID, TemplateID: d.TemplateID, Title: d.Title, XMLContent: d.XMLContent}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return len(docs), enc.Encode(out)
	}

	return len(docs), writeXMLCollection(w, queryID, docs)
}

func writeXMLCollection(w io.Writer, queryID string, docs []*core.Data) error {
	if _, err := fmt.Fprintf(w, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<results query=\"%s\">\n", templ.EscapeString(queryID)); err != nil {
		return err
	}
	for _, d := range docs {
		_, err := fmt.Fprintf(w, "<result id=\"%s\" title=\"%s\">%s</result>\n",
			templ.EscapeString(d.ID), templ.EscapeString(d.Title), stripDeclaration(d.XMLContent))
		if err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</results>\n")
	return err
}

func stripDeclaration(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "<?xml") {
		if i := strings.Index(content, "?>"); i >= 0 {
			return strings.TrimSpace(content[i+2:])
		}
	}
	return content
}
