package report

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"adinsights/internal/table"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// WriteCSV writes t with a header row. Nulls are written as empty cells.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	rec := make([]string, t.Width())
	for i := 0; i < t.Len(); i++ {
		for j, c := range t.Row(i) {
			rec[j] = c.Text()
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonResult struct {
	Name    string          `json:"name"`
	Title   string          `json:"title"`
	Columns []string        `json:"columns"`
	Rows    json.RawMessage `json:"rows"`
}

// WriteJSON writes res as an object whose rows keep the column order.
func WriteJSON(w io.Writer, res *Result) error {
	var rows bytes.Buffer
	rows.WriteByte('[')
	for i := 0; i < res.Table.Len(); i++ {
		m := table.NewMap()
		for j, c := range res.Table.Columns() {
			m.Set(c, res.Table.Row(i)[j])
		}
		b, err := json.Marshal(table.MappingCell(m))
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if i > 0 {
			rows.WriteByte(',')
		}
		rows.Write(b)
	}
	rows.WriteByte(']')

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonResult{
		Name:    res.Name,
		Title:   res.Title,
		Columns: res.Table.Columns(),
		Rows:    rows.Bytes(),
	})
}

// Save writes res into dir as <name>.<format>, plus every term file, and
// returns the paths written.
func Save(dir, name, format string, res *Result) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	switch format {
	case "":
		format = FormatCSV
	case FormatCSV, FormatJSON:
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	if name == "" {
		name = res.Name
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}

	var paths []string
	main := filepath.Join(dir, name+"."+format)
	err := writeFile(main, func(w io.Writer) error {
		if format == FormatJSON {
			return WriteJSON(w, res)
		}
		return WriteCSV(w, res.Table)
	})
	if err != nil {
		return nil, err
	}
	paths = append(paths, main)

	for _, tf := range res.TermFiles {
		p := filepath.Join(dir, tf.Name)
		if err := writeFile(p, func(w io.Writer) error { return WriteTerms(w, tf.Terms) }); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
