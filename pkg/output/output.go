// Package output renders entity streams as terminal tables or CSV files.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/afero"

	"github.com/tfullert/ultra-cli/pkg/entity"
)

// Sink consumes a stream of entities of one kind. Write returns the number
// of entities written. When the stream fails, everything read before the
// failure is still written out and the stream's error is returned.
type Sink interface {
	Write(kind entity.Kind, it entity.Iterator) (int, error)
}

// Table renders entities as an aligned table.
type Table struct {
	w io.Writer
}

// NewTable returns a Table writing to w.
func NewTable(w io.Writer) *Table {
	return &Table{w: w}
}

// Write implements Sink. Column alignment needs every row, so rows are held
// until the stream ends.
func (t *Table) Write(kind entity.Kind, it entity.Iterator) (int, error) {
	tw := tabwriter.NewWriter(t.w, 0, 0, 2, ' ', 0)

	n := 0
	for it.Next() {
		if n == 0 {
			fmt.Fprintln(tw, strings.Join(headers(kind), "\t"))
		}
		fmt.Fprintln(tw, strings.Join(cells(it.Current()), "\t"))
		n++
	}
	streamErr := it.Err()

	if err := tw.Flush(); err != nil {
		return n, fmt.Errorf("failed to write table: %w", err)
	}
	if n == 0 && streamErr == nil {
		fmt.Fprintf(t.w, "No %s found\n", kind.Plural())
	}
	return n, streamErr
}

func headers(kind entity.Kind) []string {
	fields := kind.Fields()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.ToUpper(f)
	}
	return out
}

var cellReplacer = strings.NewReplacer("\t", " ", "\n", " ")

func cells(e entity.Entity) []string {
	values := e.Values()
	for i, v := range values {
		if v == "" {
			v = "-"
		}
		values[i] = cellReplacer.Replace(v)
	}
	return values
}

// CSV writes entities to a file as comma-separated values with a header
// row of field names.
type CSV struct {
	fs   afero.Fs
	path string
}

// NewCSV returns a CSV sink creating path on fs.
func NewCSV(fs afero.Fs, path string) *CSV {
	return &CSV{fs: fs, path: path}
}

// Path returns the file the sink writes to.
func (c *CSV) Path() string {
	return c.path
}

// Write implements Sink. The file is created before the first entity is
// read, so a failed stream leaves a file holding the header and every row
// read before the failure.
func (c *CSV) Write(kind entity.Kind, it entity.Iterator) (int, error) {
	f, err := c.fs.Create(c.path)
	if err != nil {
		return 0, fmt.Errorf("failed to create export file: %w", err)
	}

	n, werr := WriteCSV(f, kind, it)
	if cerr := f.Close(); cerr != nil && werr == nil {
		werr = fmt.Errorf("failed to close export file: %w", cerr)
	}
	return n, werr
}

// WriteCSV writes the header and one row per entity of it to w.
func WriteCSV(w io.Writer, kind entity.Kind, it entity.Iterator) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(kind.Fields()); err != nil {
		return 0, fmt.Errorf("failed to write CSV header: %w", err)
	}

	n := 0
	for it.Next() {
		if err := cw.Write(it.Current().Values()); err != nil {
			return n, fmt.Errorf("failed to write CSV row: %w", err)
		}
		n++
	}
	streamErr := it.Err()

	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("failed to write CSV: %w", err)
	}
	return n, streamErr
}
