package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// field is one labelled value of a key/value report.
type field struct {
	Label string
	Value string
}

// renderFields writes a two-column report. Terminals get a rounded table,
// pipes get tab-separated lines that are easy to cut.
func renderFields(w io.Writer, fields []field) {
	if !isTerminal(w) {
		for _, f := range fields {
			fmt.Fprintf(w, "%s\t%s\n", strings.ToLower(strings.ReplaceAll(f.Label, " ", "_")), f.Value)
		}
		return
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	for _, f := range fields {
		tw.AppendRow(table.Row{f.Label, f.Value})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, Colors: text.Colors{text.Bold}},
		{Number: 2, Align: text.AlignLeft},
	})
	fmt.Fprintln(w, tw.Render())
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
