package parsers

import (
	"strings"
)

// nanValues are spreadsheet renderings of missing numbers.
var nanValues = map[string]bool{
	"nan":  true,
	"-nan": true,
	"+nan": true,
}

// EscapeCell makes a value safe inside a Markdown table cell: pipes are
// escaped, line breaks become <br>, and NaN renderings become empty.
func EscapeCell(v string) string {
	v = strings.TrimSpace(v)
	if nanValues[strings.ToLower(v)] {
		return ""
	}
	v = strings.ReplaceAll(v, "\r\n", "\n")
	v = strings.ReplaceAll(v, "|", `\|`)
	v = strings.ReplaceAll(v, "\n", "<br>")
	return v
}

// MarkdownTable renders rows as a Markdown table using the first row as the
// header. Fully empty rows are dropped, ragged rows are padded, and columns
// empty in every row are trimmed from the right. Returns "" when nothing
// remains.
func MarkdownTable(rows [][]string) string {
	var cleaned [][]string
	width := 0
	for _, row := range rows {
		cells := make([]string, len(row))
		empty := true
		for i, c := range row {
			cells[i] = EscapeCell(c)
			if cells[i] != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		for j := len(cells) - 1; j >= 0 && cells[j] == ""; j-- {
			cells = cells[:j]
		}
		if len(cells) > width {
			width = len(cells)
		}
		cleaned = append(cleaned, cells)
	}
	if len(cleaned) == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}

	writeRow(cleaned[0])
	b.WriteString("|")
	for i := 0; i < width; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range cleaned[1:] {
		writeRow(row)
	}

	return strings.TrimRight(b.String(), "\n")
}
