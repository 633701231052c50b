package table

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes the snapshot as CSV: header row first, then one line per
// row with absent values as empty fields.
func (snap Snapshot) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(snap.Headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range snap.Rows {
		if err := cw.Write(row.Fields()); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
