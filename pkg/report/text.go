package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteText writes human-readable output to w.
func (r *Report) WriteText(w io.Writer) {
	for _, m := range r.Messages {
		fmt.Fprintln(w, m.String())
	}
	if r.IsValid() && r.WarningCount() == 0 {
		fmt.Fprintln(w, "No errors or warnings detected.")
	} else {
		fmt.Fprintf(w, "Finished. Errors: %d, Warnings: %d, Fatal: %d\n",
			r.ErrorCount(), r.WarningCount(), r.FatalCount())
	}
	if len(r.Moves) > 0 || r.Elapsed > 0 {
		fmt.Fprintf(w, "Moved %d files in %s\n", len(r.Moves), r.Elapsed)
	}
}

// WriteTable renders the messages as a table.
func (r *Report) WriteTable(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Severity", "Code", "Location", "Message"})
	for _, m := range r.Messages {
		t.AppendRow(table.Row{m.Severity, m.Code, m.Location, m.Message})
	}
	t.AppendFooter(table.Row{"", "", "Errors", r.ErrorCount() + r.FatalCount()})
	t.Render()
}
