package template

import (
	"bytes"
	"strings"

	"github.com/dgallion1/bondgen/internal/bonderr"
	"github.com/fumiama/go-docx"
)

// Preview returns the non-empty paragraph text of a .docx document, with
// table cells flattened in reading order.
func Preview(data []byte) ([]string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, bonderr.Wrap(bonderr.InvalidTemplate, err, "parse docx")
	}

	lines := []string{}
	for _, item := range doc.Document.Body.Items {
		switch v := item.(type) {
		case *docx.Paragraph:
			if text := paragraphText(v); text != "" {
				lines = append(lines, text)
			}
		case *docx.Table:
			lines = append(lines, tableText(v)...)
		}
	}
	return lines, nil
}

func tableText(t *docx.Table) []string {
	var lines []string
	for _, row := range t.TableRows {
		var cells []string
		for _, cell := range row.TableCells {
			var parts []string
			for _, p := range cell.Paragraphs {
				if text := paragraphText(p); text != "" {
					parts = append(parts, text)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		if line := strings.TrimSpace(strings.Join(cells, " | ")); line != "" && strings.Trim(line, "| ") != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch t := rc.(type) {
			case *docx.Text:
				buf.WriteString(t.Text)
			case *docx.Tab:
				buf.WriteByte('\t')
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
