package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// resultJSON is the JSON form of one statement's outcome.
type resultJSON struct {
	SQL     string   `json:"sql"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Changes int      `json:"changes,omitempty"`
}

func toJSON(r *result) resultJSON {
	out := resultJSON{
		SQL:     r.sql,
		Columns: r.set.Columns,
		Rows:    make([][]any, 0, r.set.Len()),
		Changes: r.changes,
	}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	for _, row := range r.set.Rows {
		vals := make([]any, len(row))
		for i, rec := range row {
			vals[i] = rec.Value()
		}
		out.Rows = append(out.Rows, vals)
	}
	return out
}

// renderJSON writes results as an indented JSON array.
func renderJSON(w io.Writer, results []*result) error {
	docs := make([]resultJSON, len(results))
	for i, r := range results {
		docs[i] = toJSON(r)
	}
	output, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// renderText writes one result as an aligned table, or as a change count
// for statements without columns.
func renderText(w io.Writer, r *result) {
	if len(r.set.Columns) == 0 {
		fmt.Fprintf(w, "OK (%d change(s))\n", r.changes)
		return
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(r.set.Columns, "\t"))
	rule := make([]string, len(r.set.Columns))
	for i, c := range r.set.Columns {
		rule[i] = strings.Repeat("-", max(len(c), 1))
	}
	fmt.Fprintln(tw, strings.Join(rule, "\t"))
	for _, row := range r.set.Rows {
		cells := make([]string, len(row))
		for i, rec := range row {
			cells[i] = strings.ReplaceAll(rec.String(), "\t", " ")
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()

	// Print output, trimming trailing whitespace from each line
	for _, line := range strings.Split(strings.TrimSuffix(sb.String(), "\n"), "\n") {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	fmt.Fprintf(w, "(%d row(s))\n", r.set.Len())
}
