package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/termenv"
)

// Formatter is the interface for output formatting
type Formatter interface {
	Print(data any) error
	PrintList(items any, columns []Column) error
	PrintError(err error)
	PrintHint(msg string)
}

// Column defines a column for table/list output
type Column struct {
	Name  string // Display name
	Key   string // Struct field name or map key
	Width int    // Truncation width for rich mode (0 = none)
}

// New creates a formatter for the specified mode writing to stdout/stderr.
func New(mode string) Formatter {
	return NewWithWriters(mode, os.Stdout, os.Stderr)
}

// NewWithWriters creates a formatter writing data to out and diagnostics to errOut.
func NewWithWriters(mode string, out, errOut io.Writer) Formatter {
	switch mode {
	case "json":
		return &jsonFormatter{out: out, errOut: errOut}
	case "rich":
		return newRichFormatter(out, errOut)
	default:
		return &plainFormatter{out: out, errOut: errOut}
	}
}

// jsonFormatter outputs JSON
type jsonFormatter struct {
	out    io.Writer
	errOut io.Writer
}

func (f *jsonFormatter) Print(data any) error {
	enc := json.NewEncoder(f.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (f *jsonFormatter) PrintList(items any, columns []Column) error {
	v := indirect(reflect.ValueOf(items))

	count := 0
	if v.Kind() == reflect.Slice {
		count = v.Len()
	}

	return f.Print(map[string]any{
		"data":  items,
		"count": count,
	})
}

func (f *jsonFormatter) PrintError(err error) {
	enc := json.NewEncoder(f.errOut)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]string{"error": err.Error()})
}

// Hints are for humans; JSON consumers get the error object only.
func (f *jsonFormatter) PrintHint(msg string) {}

// plainFormatter outputs tab-separated values
type plainFormatter struct {
	out    io.Writer
	errOut io.Writer
}

func (f *plainFormatter) Print(data any) error {
	fields, ok := structFields(data)
	if !ok {
		fmt.Fprintf(f.out, "%v\n", data)
		return nil
	}
	for _, kv := range fields {
		fmt.Fprintf(f.out, "%s\t%s\n", kv[0], kv[1])
	}
	return nil
}

func (f *plainFormatter) PrintList(items any, columns []Column) error {
	rows, err := extractRows(items, columns)
	if err != nil {
		return err
	}

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.Name
	}
	fmt.Fprintf(f.out, "%s\n", strings.Join(headers, "\t"))

	for _, row := range rows {
		values := make([]string, len(columns))
		for j, col := range columns {
			values[j] = row[col.Key]
		}
		fmt.Fprintf(f.out, "%s\n", strings.Join(values, "\t"))
	}

	return nil
}

func (f *plainFormatter) PrintError(err error) {
	fmt.Fprintf(f.errOut, "error: %v\n", err)
}

func (f *plainFormatter) PrintHint(msg string) {
	fmt.Fprintf(f.errOut, "hint: %v\n", msg)
}

// richFormatter outputs styled content for terminal
type richFormatter struct {
	out    io.Writer
	errOut io.Writer
	styled bool

	keyStyle    lipgloss.Style
	headerStyle lipgloss.Style
	errorStyle  lipgloss.Style
	hintStyle   lipgloss.Style
}

func newRichFormatter(out, errOut io.Writer) *richFormatter {
	// Styling is dropped when the writer cannot show color (pipes, NO_COLOR,
	// dumb terminals).
	profile := termenv.NewOutput(out).EnvColorProfile()

	return &richFormatter{
		out:         out,
		errOut:      errOut,
		styled:      profile != termenv.Ascii,
		keyStyle:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33")),
		headerStyle: lipgloss.NewStyle().Bold(true).Underline(true),
		errorStyle:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		hintStyle:   lipgloss.NewStyle().Faint(true).Foreground(lipgloss.Color("8")),
	}
}

func (f *richFormatter) render(style lipgloss.Style, s string) string {
	if !f.styled {
		return s
	}
	return style.Render(s)
}

func (f *richFormatter) Print(data any) error {
	fields, ok := structFields(data)
	if !ok {
		fmt.Fprintf(f.out, "%v\n", data)
		return nil
	}

	width := 0
	for _, kv := range fields {
		width = max(width, len(kv[0]))
	}
	for _, kv := range fields {
		fmt.Fprintf(f.out, "%s  %s\n", f.render(f.keyStyle, PadString(kv[0]+":", width+1)), kv[1])
	}
	return nil
}

func (f *richFormatter) PrintList(items any, columns []Column) error {
	rows, err := extractRows(items, columns)
	if err != nil {
		return err
	}

	var header func(string, ...any) string
	if f.styled {
		header = func(format string, vals ...any) string {
			return f.headerStyle.Render(fmt.Sprintf(format, vals...))
		}
	}
	RenderTable(f.out, columns, rows, header)
	return nil
}

func (f *richFormatter) PrintError(err error) {
	fmt.Fprintf(f.errOut, "%s\n", f.render(f.errorStyle, "error: "+err.Error()))
}

func (f *richFormatter) PrintHint(msg string) {
	fmt.Fprintf(f.errOut, "%s\n", f.render(f.hintStyle, "hint: "+msg))
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}

// structFields returns the name/value pairs of a struct, or false for other
// values. Fields tagged json:"-" are skipped.
func structFields(data any) ([][2]string, bool) {
	v := indirect(reflect.ValueOf(data))
	if v.Kind() != reflect.Struct {
		return nil, false
	}

	t := v.Type()
	var out [][2]string
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get("json") == "-" {
			continue
		}
		out = append(out, [2]string{field.Name, formatValue(v.Field(i))})
	}
	return out, true
}

func formatValue(v reflect.Value) string {
	v = indirect(v)
	if !v.IsValid() || (v.Kind() == reflect.Ptr && v.IsNil()) {
		return ""
	}
	return fmt.Sprintf("%v", v.Interface())
}

// extractRows converts a slice of structs or maps into rows keyed by Column.Key.
func extractRows(items any, columns []Column) ([]map[string]string, error) {
	v := indirect(reflect.ValueOf(items))
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("PrintList requires a slice")
	}

	rows := make([]map[string]string, v.Len())
	for i := 0; i < v.Len(); i++ {
		item := indirect(v.Index(i))

		row := make(map[string]string, len(columns))
		for _, col := range columns {
			switch item.Kind() {
			case reflect.Map:
				if mapVal := item.MapIndex(reflect.ValueOf(col.Key)); mapVal.IsValid() {
					row[col.Key] = formatValue(mapVal)
				}
			case reflect.Struct:
				if field := item.FieldByName(col.Key); field.IsValid() {
					row[col.Key] = formatValue(field)
				}
			}
		}
		rows[i] = row
	}
	return rows, nil
}
