package tables

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

var converter = md.NewConverter("", true, nil).Use(plugin.Table())

// Markdown renders t as a GitHub-flavoured pipe table. A table without a
// header gets the column indices as headings.
func Markdown(t Table) (string, error) {
	out, err := converter.ConvertString(tableHTML(t))
	if err != nil {
		return "", fmt.Errorf("failed to render table %q: %w", t.Label, err)
	}
	return strings.TrimSpace(out), nil
}

func tableHTML(t Table) string {
	width := len(t.Header)
	for _, row := range t.Rows {
		width = max(width, len(row))
	}
	header := t.Header
	if len(header) == 0 {
		header = IndexHeader(width)
	}

	var b strings.Builder
	b.WriteString("<table><thead><tr>")
	for i := 0; i < width; i++ {
		b.WriteString("<th>")
		b.WriteString(cellHTML(header, i))
		b.WriteString("</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for _, row := range t.Rows {
		b.WriteString("<tr>")
		for i := 0; i < width; i++ {
			b.WriteString("<td>")
			b.WriteString(cellHTML(row, i))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

func cellHTML(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return html.EscapeString(strings.Join(strings.Fields(row[i]), " "))
}

// IndexHeader returns "0", "1", ... "n-1".
func IndexHeader(n int) []string {
	h := make([]string, n)
	for i := range h {
		h[i] = strconv.Itoa(i)
	}
	return h
}
