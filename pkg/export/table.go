package export

// Column describes one exported column. Width is a PDF weight; zero means equal share.
type Column struct {
	Header string
	Width  float64
}

// Table is the tabular content shared by every renderer.
type Table struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
}

// Headers returns the column headers in order.
func (t Table) Headers() []string {
	headers := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		headers[i] = col.Header
	}
	return headers
}

func (t Table) record(row map[string]string) []string {
	record := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		record[i] = row[col.Header]
	}
	return record
}
