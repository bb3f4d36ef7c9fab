// Package output renders command results, tables, and errors as text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Format selects how results are rendered.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatAuto Format = "auto"
)

// Formatter writes one command's results. In JSON mode stdout carries only
// the result document; progress notices go to a separate sink.
type Formatter struct {
	format  Format
	out     io.Writer
	notices io.Writer
}

// NewFormatter returns a formatter writing results to w. Notices share w in
// text mode and are dropped in JSON mode until WithNotices sets a sink.
func NewFormatter(format Format, w io.Writer) *Formatter {
	return &Formatter{format: format, out: w}
}

// WithNotices sets where notices go in JSON mode, typically stderr.
func (f *Formatter) WithNotices(w io.Writer) *Formatter {
	f.notices = w
	return f
}

// Format returns the active format.
func (f *Formatter) Format() Format {
	return f.format
}

// Writer returns the result writer.
func (f *Formatter) Writer() io.Writer {
	return f.out
}

// Notices returns the writer for progress notices and toasts.
func (f *Formatter) Notices() io.Writer {
	if f.format != FormatJSON {
		return f.out
	}
	if f.notices == nil {
		return io.Discard
	}
	return f.notices
}

// IsJSON reports whether results are rendered as JSON.
func (f *Formatter) IsJSON() bool {
	return f.format == FormatJSON
}

// Print writes v as an indented JSON document, or as one text line.
func (f *Formatter) Print(v any) error {
	if f.format == FormatJSON {
		return writeJSON(f.out, v)
	}
	var err error
	switch val := v.(type) {
	case string:
		_, err = fmt.Fprintln(f.out, val)
	case fmt.Stringer:
		_, err = fmt.Fprintln(f.out, val.String())
	case []string:
		_, err = fmt.Fprintln(f.out, strings.Join(val, "\n"))
	default:
		_, err = fmt.Fprintf(f.out, "%v\n", val)
	}
	return err
}

// PrintEither writes jsonValue in JSON mode and runs text otherwise.
func (f *Formatter) PrintEither(jsonValue any, text func(w io.Writer) error) error {
	if f.format == FormatJSON {
		return writeJSON(f.out, jsonValue)
	}
	return text(f.out)
}

// writeJSON keeps '&' and '<' literal so image URLs read back unchanged.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// DetectFormat resolves FormatAuto: text on a terminal, JSON when piped.
func DetectFormat(w io.Writer, explicit Format) Format {
	switch {
	case explicit != FormatAuto:
		return explicit
	case IsTerminal(w):
		return FormatText
	default:
		return FormatJSON
	}
}

// ParseFormat reads a format name. Unknown names mean auto.
func ParseFormat(s string) Format {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatText:
		return f
	default:
		return FormatAuto
	}
}
