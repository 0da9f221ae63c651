package tables

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

func renderHTML(t *testing.T, markdown string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, goldmark.New(goldmark.WithExtensions(extension.GFM)).Convert([]byte(markdown), &buf))
	return buf.String()
}

func TestMarkdown(t *testing.T) {
	out, err := Markdown(Table{
		Label:  "Table 1",
		Header: []string{"Item", "Price"},
		Rows: [][]string{
			{"Widget", "4.50"},
			{"Gadget", "10"},
			{"Short row"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Item")
	assert.Contains(t, out, "Widget")

	html := renderHTML(t, out)
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<th>Item</th>")
	assert.Contains(t, html, "<td>Widget</td>")
	assert.Contains(t, html, "<td>4.50</td>")
	assert.Contains(t, html, "<td>Gadget</td>")
}

func TestMarkdown_IndexHeader(t *testing.T) {
	out, err := Markdown(Table{Rows: [][]string{{"a", "b", "c"}}})
	require.NoError(t, err)
	html := renderHTML(t, out)
	assert.Contains(t, html, "<th>0</th>")
	assert.Contains(t, html, "<th>2</th>")
	assert.Contains(t, html, "<td>c</td>")
}

func TestIndexHeader(t *testing.T) {
	assert.Equal(t, []string{"0", "1", "2"}, IndexHeader(3))
	assert.Empty(t, IndexHeader(0))
}
