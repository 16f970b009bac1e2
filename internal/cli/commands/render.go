package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	mdtable "github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// Output formats.
const (
	outputAuto     = "auto"
	outputText     = "text"
	outputMarkdown = "markdown"
	outputJSON     = "json"
)

var markdownConverter = converter.NewConverter(converter.WithPlugins(
	base.NewBasePlugin(),
	commonmark.NewCommonmarkPlugin(),
	mdtable.NewTablePlugin(),
))

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// effectiveMode resolves the auto output mode for w.
func effectiveMode(mode string, w io.Writer) string {
	if mode != outputAuto && mode != "" {
		return mode
	}
	if isTerminal(w) {
		return outputText
	}
	return outputMarkdown
}

// renderTable writes rows in the requested output mode.
func renderTable(w io.Writer, mode string, header table.Row, rows []table.Row) error {
	mode = effectiveMode(mode, w)

	if mode == outputJSON {
		return renderJSON(w, header, rows)
	}

	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.AppendHeader(header)
	t.AppendRows(rows)

	if mode == outputMarkdown {
		// Cells hold user input; the HTML round trip escapes markdown syntax in them.
		md, err := markdownConverter.ConvertString(t.RenderHTML())
		if err != nil {
			return fmt.Errorf("failed to render markdown: %w", err)
		}
		_, err = fmt.Fprintln(w, md)
		return err
	}

	if isTerminal(w) {
		t.SetStyle(table.StyleLight)
	} else {
		t.SetStyle(table.StyleDefault)
	}
	t.SetOutputMirror(w)
	t.Render()
	return nil
}

func renderJSON(w io.Writer, header table.Row, rows []table.Row) error {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		item := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(row) {
				item[fmt.Sprint(col)] = row[i]
			}
		}
		out = append(out, item)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
