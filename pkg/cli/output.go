package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// OutputFormat is the output format of command results.
type OutputFormat string

const (
	// FormatText renders tables for terminals (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON of the underlying result.
	FormatJSON OutputFormat = "json"
	// FormatCSV writes the rows of the tables as CSV.
	FormatCSV OutputFormat = "csv"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case "", FormatText, "table":
		return FormatText, nil
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", NewConfigError("output", fmt.Sprintf("unknown format %q (want text, table, json or csv)", s))
	}
}

// Table is one block of tabular output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string

	// AlignRight lists the zero-based columns rendered right aligned.
	AlignRight []int
}

// Render draws t with rounded borders.
func (t Table) Render() string {
	columns := len(t.Headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if t.Title != "" {
		tw.SetTitle(t.Title)
	}

	header := make(table.Row, columns)
	for i, h := range t.Headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range t.Rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		for _, right := range t.AlignRight {
			if right == i {
				align = text.AlignRight
			}
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// View pairs a value with its tabular rendering. JSON output encodes Data;
// text and CSV output use Tables.
type View struct {
	Data   any
	Tables []Table
}

// Formatter formats command output.
type Formatter interface {
	Format(data any) ([]byte, error)
	FormatTo(w io.Writer, data any) error
}

// TextFormatter renders tables, or %v for anything else.
type TextFormatter struct{}

// Format converts data to text.
func (f *TextFormatter) Format(data any) ([]byte, error) {
	var sb strings.Builder
	if err := f.FormatTo(&sb, data); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// FormatTo writes data to w as text.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	tables, ok := tablesOf(data)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}
	for i, t := range tables {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, t.Render()); err != nil {
			return err
		}
	}
	return nil
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// Format converts data to JSON.
func (f *JSONFormatter) Format(data any) ([]byte, error) {
	data = jsonValue(data)
	if f.Indent {
		return json.MarshalIndent(data, "", "  ")
	}
	return json.Marshal(data)
}

// FormatTo writes data to w as JSON.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(jsonValue(data))
}

// CSVFormatter writes the header and rows of each table. Tables are
// separated by an empty record.
type CSVFormatter struct{}

// Format converts data to CSV.
func (f *CSVFormatter) Format(data any) ([]byte, error) {
	var sb strings.Builder
	if err := f.FormatTo(&sb, data); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// FormatTo writes data to w as CSV. Only tabular data is supported.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	tables, ok := tablesOf(data)
	if !ok {
		return fmt.Errorf("CSV output needs tabular data, got %T", data)
	}

	cw := csv.NewWriter(w)
	for i, t := range tables {
		if i > 0 {
			if err := cw.Write([]string{}); err != nil {
				return err
			}
		}
		if err := cw.Write(t.Headers); err != nil {
			return err
		}
		if err := cw.WriteAll(t.Rows); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// NewFormatter creates a formatter for format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}

func tablesOf(data any) ([]Table, bool) {
	switch v := data.(type) {
	case View:
		return v.Tables, true
	case *View:
		return v.Tables, true
	case Table:
		return []Table{v}, true
	case *Table:
		return []Table{*v}, true
	case []Table:
		return v, true
	default:
		return nil, false
	}
}

func jsonValue(data any) any {
	switch v := data.(type) {
	case View:
		return v.Data
	case *View:
		return v.Data
	default:
		return data
	}
}
