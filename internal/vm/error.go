package vm

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"ember/internal/backtrace"
	"ember/internal/source"
)

// FatalError reports an exception that escaped every handler. It carries
// the frozen raw backtrace; decoding happens only when the error is
// formatted.
type FatalError struct {
	Exn *Exception
	Raw backtrace.Raw
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("uncaught exception %s", e.Exn.Name)
}

// FormatOptions controls FatalError rendering.
type FormatOptions struct {
	Color bool
	Width int // terminal width for excerpt truncation, 0 = no limit
}

var (
	fatalHeaderColor = color.New(color.FgRed, color.Bold)
	frameLocColor    = color.New(color.FgCyan)
)

// Format writes the uncaught-exception report: a header, the decoded
// backtrace, and a one-line source excerpt under each resolved frame when
// the source is on hand. Missing debug info degrades frames to "unknown
// location"; it never suppresses the report.
func (e *FatalError) Format(w io.Writer, store backtrace.Store, files *source.FileSet, opts FormatOptions) {
	header := fmt.Sprintf("Fatal error: exception %s", e.Exn.Name)
	if opts.Color {
		header = fatalHeaderColor.Sprint(header)
	}
	fmt.Fprintln(w, header)

	if e.Raw.Len() == 0 {
		fmt.Fprintln(w, "(backtrace unavailable: run with backtrace recording enabled)")
		return
	}

	for i, fr := range backtrace.Decode(e.Raw, store) {
		line := backtrace.FrameLine(i, fr)
		if opts.Color && fr.Known {
			line = frameLocColor.Sprint(line)
		}
		fmt.Fprintf(w, "  %s\n", line)

		if excerpt := sourceExcerpt(files, fr, opts.Width); excerpt != "" {
			fmt.Fprintf(w, "      %s\n", excerpt)
		}
	}
}

// sourceExcerpt returns the trimmed source line behind a resolved frame,
// truncated to the terminal width.
func sourceExcerpt(files *source.FileSet, fr backtrace.Frame, width int) string {
	if files == nil || !fr.Known {
		return ""
	}
	file, ok := files.GetByPath(fr.Loc.File)
	if !ok {
		return ""
	}
	text := strings.TrimSpace(file.GetLine(fr.Loc.Line))
	if text == "" {
		return ""
	}
	if width > 8 && runewidth.StringWidth(text) > width-8 {
		text = runewidth.Truncate(text, width-8, "...")
	}
	return text
}
