// Package render writes command output as json, yaml, or an aligned
// text table.
//
// The output format is chosen in this order:
//   - --format always wins when set
//   - otherwise table when stdout is a TTY
//   - otherwise json, so piped output stays machine readable
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies an output format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// maxCell caps table cell width. Post texts span multiple paragraphs,
// and an uncapped cell would stretch every column in the row. JSON and
// YAML output is never truncated.
const maxCell = 80

// ParseFormat parses a --format flag value. The empty string parses to
// the empty Format so each caller can apply its own default.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	case "yaml":
		return FormatYAML, nil
	case "":
		return "", nil
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

// Renderer writes command payloads to one writer in one format.
type Renderer struct {
	format Format
	out    io.Writer
}

// NewRenderer creates a renderer from CLI context, applying the format
// selection rules.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}

	if format == "" {
		if isTTY(os.Stdout) {
			format = FormatTable
		} else {
			format = FormatJSON
		}
	}

	return &Renderer{format: format, out: os.Stdout}, nil
}

// NewRendererWithWriter creates a renderer that writes to out. Tests
// use it to capture output.
func NewRendererWithWriter(format Format, out io.Writer) *Renderer {
	return &Renderer{format: format, out: out}
}

// Render writes data in the renderer's format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		return r.renderJSON(data)
	case FormatTable:
		return r.renderTable(data)
	case FormatYAML:
		return r.renderYAML(data)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

func (r *Renderer) renderJSON(data any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (r *Renderer) renderYAML(data any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	return enc.Encode(data)
}

// renderTable routes slices to the list layout and everything else to
// the key/value detail layout. The payloads that reach it are post
// history rows, per-runner stats, runner listings, and the version
// response, so the reflection below only has to understand structs of
// scalar fields.
func (r *Renderer) renderTable(data any) error {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Slice {
		return r.listTable(v)
	}
	return r.detailTable(v)
}

// listTable prints a header row derived from the element type's json
// tags, then one row per element.
func (r *Renderer) listTable(v reflect.Value) error {
	if v.Len() == 0 {
		fmt.Fprintln(r.out, "(no results)")
		return nil
	}

	elem := v.Type().Elem()
	if elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		for i := 0; i < v.Len(); i++ {
			fmt.Fprintln(r.out, cell(v.Index(i)))
		}
		return nil
	}

	cols := columnsOf(elem)
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.name
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))

	for i := 0; i < v.Len(); i++ {
		row := v.Index(i)
		if row.Kind() == reflect.Pointer {
			if row.IsNil() {
				fmt.Fprintln(w)
				continue
			}
			row = row.Elem()
		}
		fields := make([]string, len(cols))
		for j, c := range cols {
			fields[j] = cell(row.Field(c.index))
		}
		fmt.Fprintln(w, strings.Join(fields, "\t"))
	}

	return w.Flush()
}

// detailTable prints one "key: value" line per field.
func (r *Renderer) detailTable(v reflect.Value) error {
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if !v.IsValid() {
		fmt.Fprintln(r.out, "(no results)")
		return nil
	}
	if v.Kind() != reflect.Struct {
		_, err := fmt.Fprintf(r.out, "%v\n", v.Interface())
		return err
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, c := range columnsOf(v.Type()) {
		fmt.Fprintf(w, "%s:\t%s\n", c.name, cell(v.Field(c.index)))
	}
	return w.Flush()
}

// tableColumn pairs a header with the index of the struct field it
// reads.
type tableColumn struct {
	name  string
	index int
}

func columnsOf(t reflect.Type) []tableColumn {
	cols := make([]tableColumn, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		cols = append(cols, tableColumn{name: fieldName(f), index: i})
	}
	return cols
}

// fieldName prefers the json tag name over the lowered field name.
func fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return strings.ToLower(f.Name)
}

// cell formats one table cell. Embedded newlines and tabs collapse to
// single spaces so a multi-line post text cannot break the row, and
// anything longer than maxCell runes is cut with an ellipsis.
func cell(v reflect.Value) string {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return ""
	}

	s := fmt.Sprintf("%v", v.Interface())
	s = strings.Join(strings.Fields(s), " ")
	if runes := []rune(s); len(runes) > maxCell {
		s = string(runes[:maxCell-3]) + "..."
	}
	return s
}

// isTTY reports whether f is attached to a terminal.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
