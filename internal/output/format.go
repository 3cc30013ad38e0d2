// Package output renders command results as text, JSON or CSV.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/gocarina/gocsv"
	"golang.org/x/term"
)

// Format is an output encoding.
type Format string

// Output formats. Auto picks text on a terminal and JSON otherwise.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatAuto Format = "auto"
)

// Formatter writes values to one writer in one format.
type Formatter struct {
	format Format
	w      io.Writer
}

// NewFormatter creates a formatter writing format to w.
func NewFormatter(format Format, w io.Writer) *Formatter {
	return &Formatter{format: format, w: w}
}

// Format returns the output format.
func (f *Formatter) Format() Format { return f.format }

// Writer returns the destination writer.
func (f *Formatter) Writer() io.Writer { return f.w }

// Structured reports whether output is meant for another program (JSON or CSV).
func (f *Formatter) Structured() bool {
	return f.format == FormatJSON || f.format == FormatCSV
}

// Print writes v in the formatter's format. CSV needs a slice of csv-tagged
// structs; any other value is written as text.
func (f *Formatter) Print(v any) error {
	switch {
	case f.format == FormatJSON:
		enc := json.NewEncoder(f.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case f.format == FormatCSV && isSlice(v):
		return gocsv.Marshal(v, f.w)
	}

	_, err := fmt.Fprintln(f.w, v)
	return err
}

// PrintCSV writes rows, a slice of csv-tagged structs, under a header line.
func (f *Formatter) PrintCSV(rows any) error {
	return gocsv.Marshal(rows, f.w)
}

// Printf writes formatted text.
func (f *Formatter) Printf(format string, args ...any) error {
	_, err := fmt.Fprintf(f.w, format, args...)
	return err
}

// Println writes a line of text.
func (f *Formatter) Println(args ...any) error {
	_, err := fmt.Fprintln(f.w, args...)
	return err
}

func isSlice(v any) bool {
	t := reflect.TypeOf(v)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t != nil && (t.Kind() == reflect.Slice || t.Kind() == reflect.Array)
}

// DetectFormat resolves FormatAuto: text when w is a terminal, JSON when piped.
// Any other format is returned unchanged.
func DetectFormat(w io.Writer, explicit Format) Format {
	if explicit != FormatAuto {
		return explicit
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // G115: Fd fits in int on supported platforms
		return FormatText
	}
	return FormatJSON
}

// ParseFormat parses a format name. Unknown names mean auto.
func ParseFormat(s string) Format {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatText, FormatCSV:
		return f
	default:
		return FormatAuto
	}
}
