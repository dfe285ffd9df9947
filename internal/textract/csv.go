package textract

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSV renders each data row as "header: value" pairs, one block per row.
type CSV struct{}

func (CSV) Blocks(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	headers := records[0]
	blocks := make([]string, 0, len(records)-1)
	for _, row := range records[1:] {
		cells := make([]string, len(row))
		for j, cell := range row {
			if j < len(headers) {
				cells[j] = headers[j] + ": " + cell
			} else {
				cells[j] = cell
			}
		}
		blocks = append(blocks, strings.Join(cells, "\n"))
	}
	return blocks, nil
}
