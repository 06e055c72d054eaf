// Package output renders command results as tables, JSON or YAML.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Format represents the output format type.
type Format string

const (
	// FormatTable outputs data in a formatted table.
	FormatTable Format = "table"
	// FormatJSON outputs data as JSON.
	FormatJSON Format = "json"
	// FormatYAML outputs data as YAML.
	FormatYAML Format = "yaml"
)

// ParseFormat parses a string into a Format, returning an error if invalid.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %q (valid: table, json, yaml)", s)
	}
}

func (f Format) String() string {
	return string(f)
}

// Structured reports whether f is a machine readable format.
func (f Format) Structured() bool {
	return f == FormatJSON || f == FormatYAML
}

// Printer writes command results to out in a single format.
type Printer struct {
	out    io.Writer
	format Format
	color  bool
}

// NewPrinter creates a Printer. color only affects status messages.
func NewPrinter(out io.Writer, format Format, color bool) *Printer {
	return &Printer{out: out, format: format, color: color}
}

// Format returns the printer's output format.
func (p *Printer) Format() Format {
	return p.format
}

// Writer returns the printer's output writer.
func (p *Printer) Writer() io.Writer {
	return p.out
}

// List prints a collection. In table format rows are rendered through
// table, or emptyMsg is printed when there are none.
func (p *Printer) List(data any, table TableRenderer, emptyMsg string) error {
	if p.format.Structured() {
		return p.encode(data)
	}
	if len(table.Rows()) == 0 {
		_, _ = fmt.Fprintln(p.out, emptyMsg)
		return nil
	}
	return PrintTable(p.out, table)
}

// Resource prints a single record. In table format it is rendered as
// field/value pairs.
func (p *Printer) Resource(data any, fields Fields) error {
	if p.format.Structured() {
		return p.encode(data)
	}
	return PrintFields(p.out, fields)
}

// Result reports a completed mutation: data for structured formats, the
// success message otherwise.
func (p *Printer) Result(data any, msg string) error {
	if p.format.Structured() {
		return p.encode(data)
	}
	p.Success(msg)
	return nil
}

func (p *Printer) encode(data any) error {
	switch p.format {
	case FormatJSON:
		return PrintJSON(p.out, data)
	case FormatYAML:
		return PrintYAML(p.out, data)
	default:
		return fmt.Errorf("unknown format: %s", p.format)
	}
}

// Println prints a message followed by a newline.
func (p *Printer) Println(args ...any) {
	_, _ = fmt.Fprintln(p.out, args...)
}

// Success prints msg in green.
func (p *Printer) Success(msg string) {
	p.paint("32", msg)
}

// Warning prints msg in yellow.
func (p *Printer) Warning(msg string) {
	p.paint("33", msg)
}

// Error prints msg in red.
func (p *Printer) Error(msg string) {
	p.paint("31", msg)
}

func (p *Printer) paint(code, msg string) {
	if p.color {
		_, _ = fmt.Fprintf(p.out, "\033[%sm%s\033[0m\n", code, msg)
		return
	}
	_, _ = fmt.Fprintln(p.out, msg)
}
