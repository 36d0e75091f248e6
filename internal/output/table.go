package output

import (
	"io"
	"strings"

	"github.com/rodaine/table"
)

// RenderTable renders rows as an aligned table. header, when non-nil,
// formats the header row.
func RenderTable(w io.Writer, columns []Column, rows []map[string]string, header table.Formatter) {
	if len(rows) == 0 {
		return
	}

	headers := make([]any, len(columns))
	for i, col := range columns {
		headers[i] = col.Name
	}

	tbl := table.New(headers...).WithWriter(w)
	if header != nil {
		tbl.WithHeaderFormatter(header)
	}

	for _, row := range rows {
		values := make([]any, len(columns))
		for i, col := range columns {
			value := row[col.Key]
			if col.Width > 0 {
				value = TruncateString(value, col.Width)
			}
			values[i] = value
		}
		tbl.AddRow(values...)
	}

	tbl.Print()
}

// TruncateString truncates a string to maxLen and adds "..." if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// PadString pads a string to the specified width
func PadString(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
